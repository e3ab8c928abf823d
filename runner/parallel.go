package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xpzouying/instagram-butler/browser"
	"github.com/xpzouying/instagram-butler/configs"
	"github.com/xpzouying/instagram-butler/cookies"
	"github.com/xpzouying/instagram-butler/instagram"
)

const (
	feedURL          = "https://www.instagram.com/"
	loginWait        = 60 * time.Second
	loginPoll        = 2 * time.Second
	statusPoll       = time.Second
	defaultInstances = 1
)

// InstanceResult 单个浏览器实例的运行结果
type InstanceResult struct {
	InstanceID string            `json:"instance_id"`
	Status     *instagram.Status `json:"status,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// RunParallel 用多个浏览器实例并行运行管家模式。
// 每个实例有独立的 cookies 文件和登录会话，登录等待时间统一为 60 秒。
// 实例在达到动作上限或 ctx 结束时退出。
func RunParallel(ctx context.Context, deps Deps, instances int) ([]*InstanceResult, error) {
	if instances <= 0 {
		instances = defaultInstances
	}

	results := make([]*InstanceResult, instances)
	var wg sync.WaitGroup

	loginCtx, cancel := context.WithTimeout(ctx, loginWait)
	defer cancel()

	for i := 0; i < instances; i++ {
		instanceID := fmt.Sprintf("instance%d", i+1)
		if instances == 1 {
			instanceID = ""
		}
		results[i] = &InstanceResult{InstanceID: instanceID}

		wg.Add(1)
		go func(res *InstanceResult) {
			defer wg.Done()
			runInstance(ctx, loginCtx, deps, res)
		}(results[i])
	}

	wg.Wait()

	for _, res := range results {
		if res.Status != nil {
			return results, nil
		}
	}
	return results, fmt.Errorf("60 秒内没有任何浏览器实例完成登录，任务已终止")
}

func runInstance(ctx, loginCtx context.Context, deps Deps, res *InstanceResult) {
	cookiePath := cookies.GetInstanceCookiesFilePath(res.InstanceID)
	log := logrus.WithFields(logrus.Fields{
		"instance":     res.InstanceID,
		"cookies_path": cookiePath,
	})
	log.Info("启动浏览器实例")

	b := browser.NewBrowser(configs.IsHeadless(),
		browser.WithBinPath(configs.GetBinPath()),
		browser.WithCookiesPath(cookiePath),
	)
	defer b.Close()

	page := b.NewPage()
	defer page.Close()
	browser.ConfigurePage(page)

	p, err := Open(ctx, page, feedURL, deps)
	if err != nil {
		res.Error = err.Error()
		return
	}
	defer p.Close()

	if !WaitForLogin(loginCtx, p.Doc, loginPoll) {
		if loginCtx.Err() != nil {
			res.Error = "登录等待超时或被取消"
		} else {
			res.Error = "登录失败"
		}
		return
	}
	log.Info("已登录，启动管家模式")
	if err := browser.SaveCookies(page, cookiePath); err != nil {
		log.WithError(err).Warn("保存 cookies 失败")
	}

	if err := p.Session.Start(ctx); err != nil {
		res.Error = err.Error()
		return
	}

	status := waitDone(ctx, p.Session)
	if status.State == instagram.StateRunning {
		if err := p.Session.Stop(context.WithoutCancel(ctx)); err != nil {
			log.WithError(err).Warn("停止管家模式失败")
		}
		status = p.Session.Status()
	}
	res.Status = &status

	if err := browser.SaveCookies(page, cookiePath); err != nil {
		log.WithError(err).Warn("保存 cookies 失败")
	}
}

// waitDone 等待会话离开运行状态或 ctx 结束
func waitDone(ctx context.Context, sess *instagram.Session) instagram.Status {
	ticker := time.NewTicker(statusPoll)
	defer ticker.Stop()
	for {
		status := sess.Status()
		if status.State != instagram.StateRunning {
			return status
		}
		select {
		case <-ctx.Done():
			return sess.Status()
		case <-ticker.C:
		}
	}
}
