package main

import (
	"context"
	"flag"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/instagram-butler/browser"
	"github.com/xpzouying/instagram-butler/configs"
	"github.com/xpzouying/instagram-butler/cookies"
	"github.com/xpzouying/instagram-butler/llm"
	"github.com/xpzouying/instagram-butler/metrics"
)

func main() {
	var (
		headless     bool
		binPath      string // 浏览器二进制文件路径
		port         string
		stdioMode    bool // 是否使用 STDIO 模式
		settingsPath string
		logLevel     string
	)
	flag.BoolVar(&headless, "headless", true, "是否无头模式")
	flag.StringVar(&binPath, "bin", "", "浏览器二进制文件路径")
	flag.StringVar(&port, "port", ":18060", "端口")
	flag.BoolVar(&stdioMode, "stdio", false, "使用 STDIO 模式（用于 MCP 客户端）")
	flag.StringVar(&settingsPath, "settings", "", "配置文件路径，默认 ~/.instagram-butler/settings.json")
	flag.StringVar(&logLevel, "log-level", "info", "日志级别")
	flag.Parse()

	configs.LoadEnv()

	level, err := logrus.ParseLevel(configs.GetEnv("LOG_LEVEL", logLevel))
	if err != nil {
		logrus.Warnf("无效的日志级别 %q，使用 info", logLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if len(binPath) == 0 {
		binPath = os.Getenv("ROD_BROWSER_BIN")
	}

	configs.InitHeadless(headless)
	configs.SetBinPath(binPath)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.New(registry)

	store := configs.NewFileStore(settingsPath)
	logrus.Infof("配置文件: %s", store.Path())

	browsers := browser.NewManager(configs.IsHeadless(), configs.GetBinPath(), cookies.GetCookiesFilePath())
	defer browsers.CloseBrowser()

	var llmOpts []llm.Option
	if baseURL := configs.GetEnv("OPENAI_BASE_URL", ""); baseURL != "" {
		llmOpts = append(llmOpts, llm.WithBaseURL(baseURL))
	}

	// 初始化服务
	service := NewButlerService(store, browsers, collector, llmOpts...)
	if err := service.ResumeIfEnabled(context.Background()); err != nil {
		logrus.Warnf("恢复管家模式失败: %v", err)
	}

	// 创建应用服务器
	appServer := NewAppServer(service, registry)

	if stdioMode {
		// STDIO 模式：直接运行 MCP 服务器，不启动 HTTP 服务
		logrus.SetOutput(os.Stderr)
		logrus.Info("启动 STDIO 模式 MCP 服务器")
		if err := appServer.StartSTDIO(); err != nil {
			logrus.Fatalf("failed to run STDIO server: %v", err)
		}
		return
	}

	if err := appServer.Start(port); err != nil {
		logrus.Fatalf("failed to run server: %v", err)
	}
}
