package browser

import (
	"sync"

	"github.com/go-rod/rod"
	"github.com/sirupsen/logrus"
	"github.com/xpzouying/headless_browser"
)

// Manager 浏览器实例管理器。同一个 Instagram 账号同一时间只驱动一个页面会话，
// 管家模式和单次生成评论共用一个浏览器，轮流使用
type Manager struct {
	mu          sync.Mutex
	cond        *sync.Cond
	browser     *headless_browser.Browser
	headless    bool
	binPath     string
	cookiesPath string
	inUse       bool
}

// NewManager 创建管理器
func NewManager(headless bool, binPath, cookiesPath string) *Manager {
	m := &Manager{headless: headless, binPath: binPath, cookiesPath: cookiesPath}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// AcquireBrowser 获取浏览器实例，正在使用时阻塞等待。
// 用完必须调用返回的 release
func (m *Manager) AcquireBrowser() (*headless_browser.Browser, func()) {
	m.mu.Lock()
	for m.inUse {
		logrus.Info("浏览器正在使用中，等待释放...")
		m.cond.Wait()
	}

	if m.browser == nil {
		logrus.Info("创建新的浏览器实例...")
		m.browser = NewBrowser(m.headless, WithBinPath(m.binPath), WithCookiesPath(m.cookiesPath))
	}
	m.inUse = true
	b := m.browser
	m.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.inUse = false
			logrus.Debug("浏览器实例已释放")
			m.cond.Signal()
		})
	}
	return b, release
}

// CloseBrowser 关闭浏览器实例
func (m *Manager) CloseBrowser() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		logrus.Info("关闭浏览器实例...")
		m.browser.Close()
		m.browser = nil
		m.inUse = false
		m.cond.Broadcast()
	}
}

// NewPageWithRelease 获取浏览器并打开新页面，release 先关闭页面再释放浏览器
func (m *Manager) NewPageWithRelease() (*rod.Page, func()) {
	b, releaseBrowser := m.AcquireBrowser()
	page := b.NewPage()
	ConfigurePage(page)

	release := func() {
		if err := SaveCookies(page, m.cookiesPath); err != nil {
			logrus.Debugf("保存 cookies 失败: %v", err)
		}
		_ = page.Close()
		releaseBrowser()
	}
	return page, release
}
