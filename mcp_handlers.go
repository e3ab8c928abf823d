package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
)

// MCP 工具处理函数

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

func jsonResult(prefix string, v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("序列化结果失败: " + err.Error())
	}
	return textResult(prefix + "\n\n" + string(data))
}

// handleStartButler 启动管家模式
func (s *AppServer) handleStartButler(ctx context.Context) *mcp.CallToolResult {
	logrus.Info("MCP: 启动管家模式")

	status, err := s.service.StartButler(ctx)
	if err != nil {
		return errorResult("启动管家模式失败: " + err.Error())
	}
	return textResult(fmt.Sprintf("管家模式已启动，动作上限 %d，评论上限 %d", status.MaxActions, status.MaxComments))
}

// handleStopButler 停止管家模式
func (s *AppServer) handleStopButler(ctx context.Context) *mcp.CallToolResult {
	logrus.Info("MCP: 停止管家模式")

	status, err := s.service.StopButler(ctx)
	if err != nil {
		return errorResult("停止管家模式失败: " + err.Error())
	}
	return textResult(fmt.Sprintf("管家模式已停止，本次动作 %d 次，评论 %d 条", status.ActionsCount, status.CommentsCount))
}

// handleButlerStatus 查询状态
func (s *AppServer) handleButlerStatus(ctx context.Context) *mcp.CallToolResult {
	logrus.Info("MCP: 查询管家模式状态")

	status, err := s.service.ButlerStatus(ctx)
	if err != nil {
		return errorResult("查询状态失败: " + err.Error())
	}
	return jsonResult("管家模式状态:", status)
}

// handleGenerateComment 为单个帖子生成评论
func (s *AppServer) handleGenerateComment(ctx context.Context, args GenerateCommentArgs) *mcp.CallToolResult {
	logrus.Infof("MCP: 生成评论 %s", args.PostURL)

	if args.PostURL == "" {
		return errorResult("缺少 post_url 参数")
	}
	result, err := s.service.GenerateComment(ctx, args.PostURL)
	if err != nil {
		return errorResult("生成评论失败: " + err.Error())
	}
	if result.Skipped {
		return textResult("内容不适合评论，已跳过")
	}
	return textResult("评论已发布: " + result.Comment)
}

// handleExtractPost 离线提取帖子内容
func (s *AppServer) handleExtractPost(ctx context.Context, args ExtractPostArgs) *mcp.CallToolResult {
	logrus.Info("MCP: 提取帖子内容")

	if args.HTML == "" {
		return errorResult("缺少 html 参数")
	}
	pc, err := s.service.ExtractHTML(ctx, args.HTML)
	if err != nil {
		return errorResult("提取失败: " + err.Error())
	}
	return jsonResult("帖子内容:", pc)
}
