package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xpzouying/instagram-butler/configs"
	"github.com/xpzouying/instagram-butler/cookies"
	"github.com/xpzouying/instagram-butler/dom"
	"github.com/xpzouying/instagram-butler/instagram"
	"github.com/xpzouying/instagram-butler/llm"
	"github.com/xpzouying/instagram-butler/post"
	"github.com/xpzouying/instagram-butler/runner"
)

func resetCookiesFiles() error {
	basePath := cookies.GetCookiesFilePath()
	dir := filepath.Dir(basePath)
	base := filepath.Base(basePath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if name == "" {
		name = "cookies"
	}

	// 1) 删除主 cookies 文件
	if err := cookies.NewLoadCookie(basePath).DeleteCookies(); err != nil {
		return err
	}

	// 2) 删除同目录下派生的 instance cookies 文件
	pattern := filepath.Join(dir, fmt.Sprintf("%s_*%s", name, ext))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	for _, p := range matches {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}

// extractFile 对保存下来的帖子 HTML 运行提取，打印结果
func extractFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := dom.Parse(f)
	if err != nil {
		return err
	}
	pc, err := instagram.ExtractDocument(doc)
	if err != nil {
		return err
	}

	fmt.Printf("正文: %s\n话题: %s\n配图: %s\n",
		post.Truncate(pc.Caption, 80),
		strings.Join(pc.Hashtags, " "),
		post.Truncate(pc.ImageAlt, 60),
	)
	return nil
}

// 这个 CLI 程序用于直接从命令行运行管家模式（支持多账号多实例），
// 复用服务层的页面链路，而不依赖 MCP 客户端。
func main() {
	var (
		headless     bool
		binPath      string
		duration     int
		instances    int
		settingsPath string
		resetCookies bool
		extractHTML  string
	)

	flag.BoolVar(&headless, "headless", false, "是否无头模式，默认 false（有界面，便于首次登录）")
	flag.StringVar(&binPath, "bin", "", "浏览器二进制文件路径（可选，不传则使用 ROD_BROWSER_BIN 环境变量）")
	flag.IntVar(&duration, "duration", 30, "最长运行时长（分钟），达到动作上限会提前结束")
	flag.IntVar(&instances, "instances", 1, "浏览器实例数量，每个实例使用独立的 cookies 文件")
	flag.StringVar(&settingsPath, "settings", "", "配置文件路径")
	flag.BoolVar(&resetCookies, "reset-cookies", false, "启动前清理 cookies 文件并重新登录")
	flag.StringVar(&extractHTML, "extract-html", "", "只对保存的帖子 HTML 文件运行内容提取")

	flag.Parse()

	configs.LoadEnv()

	if extractHTML != "" {
		if err := extractFile(extractHTML); err != nil {
			logrus.Fatalf("提取失败: %v", err)
		}
		return
	}

	if resetCookies {
		if err := resetCookiesFiles(); err != nil {
			logrus.Fatalf("failed to reset cookies: %v", err)
		}
		logrus.Infof("cookies 已清理（含 instance 派生文件），将重新登录")
	}

	if headless {
		logrus.Warn("当前以无头模式运行，首次登录时无法手动输入账号，建议第一次使用时 headless=false")
	}
	if len(binPath) == 0 {
		binPath = os.Getenv("ROD_BROWSER_BIN")
	}
	configs.InitHeadless(headless)
	configs.SetBinPath(binPath)

	deps := runner.Deps{Store: configs.NewFileStore(settingsPath)}
	if baseURL := configs.GetEnv("OPENAI_BASE_URL", ""); baseURL != "" {
		deps.LLMOptions = append(deps.LLMOptions, llm.WithBaseURL(baseURL))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(duration)*time.Minute)
	defer cancel()

	logrus.Infof("开始运行管家模式，实例数=%d，时长=%d 分钟", instances, duration)
	results, err := runner.RunParallel(ctx, deps, instances)
	if err != nil {
		logrus.WithError(err).Error("运行过程中出现错误")
	}

	var successCount int
	for _, res := range results {
		if res == nil {
			continue
		}
		id := res.InstanceID
		if id == "" {
			id = "default"
		}
		if res.Status == nil {
			fmt.Printf("实例 %s 失败：%s\n", id, res.Error)
			continue
		}
		successCount++
		fmt.Printf("实例 %s 运行结束：\n- 状态: %s\n- 动作: %d/%d\n- 评论: %d/%d\n- 已评论帖子: %d 个\n\n",
			id,
			res.Status.State,
			res.Status.ActionsCount, res.Status.MaxActions,
			res.Status.CommentsCount, res.Status.MaxComments,
			res.Status.Commented,
		)
	}

	if successCount == 0 {
		logrus.Fatal("所有实例均未成功运行，请检查登录状态或网络情况")
	}
}
