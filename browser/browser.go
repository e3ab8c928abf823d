package browser

import (
	"encoding/json"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
	"github.com/xpzouying/headless_browser"

	"github.com/xpzouying/instagram-butler/cookies"
)

type browserConfig struct {
	binPath    string
	cookiePath string
}

type Option func(*browserConfig)

func WithBinPath(binPath string) Option {
	return func(c *browserConfig) {
		c.binPath = binPath
	}
}

// WithCookiesPath 指定启动时加载的 cookies 文件，保持 Instagram 登录态
func WithCookiesPath(path string) Option {
	return func(c *browserConfig) {
		c.cookiePath = path
	}
}

func NewBrowser(headless bool, options ...Option) *headless_browser.Browser {
	cfg := &browserConfig{}
	for _, opt := range options {
		opt(cfg)
	}

	opts := []headless_browser.Option{
		headless_browser.WithHeadless(headless),
	}
	if cfg.binPath != "" {
		opts = append(opts, headless_browser.WithChromeBinPath(cfg.binPath))
	}

	cookiePath := cfg.cookiePath
	if cookiePath == "" {
		cookiePath = cookies.GetCookiesFilePath()
	}
	if data, err := cookies.NewLoadCookie(cookiePath).LoadCookies(); err == nil {
		opts = append(opts, headless_browser.WithCookies(string(data)))
		logrus.WithField("cookies_path", cookiePath).Debug("loaded cookies from file successfully")
	} else {
		logrus.WithField("cookies_path", cookiePath).Warnf("failed to load cookies, instagram will ask for login: %v", err)
	}

	return headless_browser.New(opts...)
}

// ConfigurePage 页面级设置：桌面视口，保证信息流按桌面布局渲染出 article
func ConfigurePage(page *rod.Page) {
	err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1280,
		Height:            900,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		logrus.Warnf("failed to set viewport: %v", err)
	}
}

// SaveCookies 把当前登录态写回 cookies 文件，下次启动免登录
func SaveCookies(page *rod.Page, path string) error {
	if path == "" {
		path = cookies.GetCookiesFilePath()
	}
	cks, err := page.Browser().GetCookies()
	if err != nil {
		return err
	}
	data, err := json.Marshal(cks)
	if err != nil {
		return err
	}
	return cookies.NewLoadCookie(path).SaveCookies(data)
}
