package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// AppServer HTTP 和 MCP 服务
type AppServer struct {
	service    *ButlerService
	registry   *prometheus.Registry
	mcpServer  *mcp.Server
	router     *gin.Engine
	httpServer *http.Server
}

// NewAppServer 创建应用服务器
func NewAppServer(service *ButlerService, registry *prometheus.Registry) *AppServer {
	s := &AppServer{
		service:  service,
		registry: registry,
	}
	s.mcpServer = s.initMCPServer()
	s.router = s.setupRoutes()
	return s
}

// Start 启动 HTTP 服务，收到退出信号后优雅关闭
func (s *AppServer) Start(port string) error {
	s.httpServer = &http.Server{
		Addr:    port,
		Handler: s.router,
	}

	go func() {
		logrus.Infof("启动 HTTP 服务器: %s", port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Errorf("服务器启动失败: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("正在关闭服务器...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.service.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logrus.Warnf("服务器关闭失败: %v", err)
		return err
	}
	logrus.Info("服务器已关闭")
	return nil
}

// StartSTDIO 以 STDIO 方式运行 MCP 服务
func (s *AppServer) StartSTDIO() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer s.service.Close()

	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
