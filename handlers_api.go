package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/instagram-butler/configs"
	"github.com/xpzouying/instagram-butler/instagram"
	"github.com/xpzouying/instagram-butler/llm"
)

// SuccessResponse 成功响应
type SuccessResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// GenerateCommentRequest 单次生成请求
type GenerateCommentRequest struct {
	PostURL string `json:"post_url" binding:"required"`
}

// ExtractRequest 离线提取请求
type ExtractRequest struct {
	HTML string `json:"html" binding:"required"`
}

func respondSuccess(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data, Message: message})
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	logrus.Warnf("%s %s: %s", c.Request.Method, c.Request.URL.Path, message)
	c.JSON(status, ErrorResponse{Error: message, Code: code, Details: details})
}

// respondServiceError 按错误类型选择状态码
func respondServiceError(c *gin.Context, err error) {
	var (
		genErr *llm.GenerationError
		extErr *instagram.ExtractionError
	)
	switch {
	case errors.As(err, &genErr):
		respondError(c, http.StatusBadGateway, string(genErr.Kind), err.Error(), genErr.StatusCode)
	case errors.As(err, &extErr):
		respondError(c, http.StatusUnprocessableEntity, string(extErr.Reason), err.Error(), nil)
	case errors.Is(err, instagram.ErrAlreadyRunning), errors.Is(err, errBrowserBusy):
		respondError(c, http.StatusConflict, "BUSY", err.Error(), nil)
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logrus.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("http request")
	}
}

func (s *AppServer) healthHandler(c *gin.Context) {
	respondSuccess(c, map[string]any{
		"status":    "healthy",
		"service":   "instagram-butler",
		"timestamp": time.Now().Unix(),
	}, "服务正常")
}

func (s *AppServer) getSettingsHandler(c *gin.Context) {
	settings, err := s.service.GetSettings(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, settings, "")
}

func (s *AppServer) updateSettingsHandler(c *gin.Context) {
	var req configs.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "请求参数错误", err.Error())
		return
	}
	settings, err := s.service.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, settings, "配置已保存")
}

func (s *AppServer) startButlerHandler(c *gin.Context) {
	status, err := s.service.StartButler(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, status, "管家模式已启动")
}

func (s *AppServer) stopButlerHandler(c *gin.Context) {
	status, err := s.service.StopButler(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, status, "管家模式已停止")
}

func (s *AppServer) butlerStatusHandler(c *gin.Context) {
	status, err := s.service.ButlerStatus(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, status, "")
}

func (s *AppServer) generateCommentHandler(c *gin.Context) {
	var req GenerateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "请求参数错误", err.Error())
		return
	}
	result, err := s.service.GenerateComment(c.Request.Context(), req.PostURL)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, result, "")
}

func (s *AppServer) extractHandler(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "请求参数错误", err.Error())
		return
	}
	pc, err := s.service.ExtractHTML(c.Request.Context(), req.HTML)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, pc, "")
}
