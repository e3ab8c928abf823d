// Package runner 把一个浏览器页面接成完整的评论链路：页面侧会话、消息通道和后台生成。
package runner

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/instagram-butler/assistant"
	"github.com/xpzouying/instagram-butler/configs"
	"github.com/xpzouying/instagram-butler/dom"
	"github.com/xpzouying/instagram-butler/instagram"
	"github.com/xpzouying/instagram-butler/llm"
	"github.com/xpzouying/instagram-butler/messaging"
	"github.com/xpzouying/instagram-butler/metrics"
)

const navigateTimeout = 60 * time.Second

// Deps 页面会话共用的依赖
type Deps struct {
	Store      configs.Store
	Metrics    *metrics.Collector
	LLMOptions []llm.Option
}

// Page 一个已经接好的页面
type Page struct {
	Rod       *rod.Page
	Doc       *dom.RodDocument
	Session   *instagram.Session
	Bus       *messaging.Bus
	Assistant *assistant.Service

	stopShortcut func() error
}

// Open 导航到 url 并接好整条链路
func Open(ctx context.Context, page *rod.Page, url string, deps Deps) (*Page, error) {
	navCtx, cancel := context.WithTimeout(ctx, navigateTimeout)
	defer cancel()
	if err := page.Context(navCtx).Navigate(url); err != nil {
		return nil, errors.Wrapf(err, "navigate %s", url)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		return nil, errors.Wrapf(err, "wait load %s", url)
	}

	doc := dom.NewRodDocument(page)
	notifier := instagram.NewPageNotifier(page)
	bus := messaging.NewBus(messaging.WithDisconnectHandler(func(message string) {
		notifier.Notify(context.Background(), message, instagram.LevelError)
	}))

	sess := instagram.NewSession(doc, deps.Store, bus,
		instagram.WithNotifier(notifier),
		instagram.WithMetrics(deps.Metrics),
	)
	sess.RegisterHandlers(bus)

	opts := append([]llm.Option{llm.WithClassificationHook(assistant.VisionLogger(bus))}, deps.LLMOptions...)
	svc := assistant.NewService(deps.Store, bus, llm.NewClient(opts...), deps.Metrics)
	svc.Register()

	p := &Page{
		Rod:       page,
		Doc:       doc,
		Session:   sess,
		Bus:       bus,
		Assistant: svc,
	}

	stop, err := instagram.InstallShortcut(context.Background(), page, doc, sess)
	if err != nil {
		logrus.Warnf("注册快捷键失败: %v", err)
	} else {
		p.stopShortcut = stop
	}

	logrus.WithField("url", url).Info("页面会话已打开")
	return p, nil
}

// Close 结束页面会话，页面本身由调用方关闭
func (p *Page) Close() {
	p.Session.Close()
	p.Bus.Close()
	if p.stopShortcut != nil {
		if err := p.stopShortcut(); err != nil {
			logrus.Debugf("注销快捷键失败: %v", err)
		}
	}
}
