package main

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GenerateCommentArgs generate_comment 工具参数
type GenerateCommentArgs struct {
	PostURL string `json:"post_url" jsonschema:"Instagram 帖子链接，例如 https://www.instagram.com/p/CODE/"`
}

// ExtractPostArgs extract_post 工具参数
type ExtractPostArgs struct {
	HTML string `json:"html" jsonschema:"保存下来的帖子页面 HTML"`
}

// EmptyArgs 无参数工具
type EmptyArgs struct{}

func (s *AppServer) initMCPServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "instagram-butler",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "start_butler",
			Description: "打开 Instagram 信息流并启动管家模式：自动点赞、关注，并为有评论的帖子生成评论",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, _ EmptyArgs) (*mcp.CallToolResult, any, error) {
			return s.handleStartButler(ctx), nil, nil
		},
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "stop_butler",
			Description: "停止管家模式",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, _ EmptyArgs) (*mcp.CallToolResult, any, error) {
			return s.handleStopButler(ctx), nil, nil
		},
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "butler_status",
			Description: "查询管家模式运行状态和累计统计",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, _ EmptyArgs) (*mcp.CallToolResult, any, error) {
			return s.handleButlerStatus(ctx), nil, nil
		},
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "generate_comment",
			Description: "打开指定帖子，生成一条评论并发布。内容不合适时会跳过",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, args GenerateCommentArgs) (*mcp.CallToolResult, any, error) {
			return s.handleGenerateComment(ctx, args), nil, nil
		},
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "extract_post",
			Description: "从帖子页面 HTML 中提取作者、正文、话题标签和配图信息",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, args ExtractPostArgs) (*mcp.CallToolResult, any, error) {
			return s.handleExtractPost(ctx, args), nil, nil
		},
	)

	return server
}
