package runner

import (
	"context"
	"time"

	"github.com/xpzouying/instagram-butler/dom"
)

const (
	loginFormSelector = `input[name="username"]`
	loggedInSelector  = `svg[aria-label="Home"], a[href="/direct/inbox/"], article`
)

// IsLoggedIn 页面上有导航栏或信息流且没有登录表单
func IsLoggedIn(doc dom.Document) bool {
	if form, err := doc.Query(loginFormSelector); err == nil && form != nil {
		return false
	}
	el, err := doc.Query(loggedInSelector)
	return err == nil && el != nil
}

// WaitForLogin 轮询登录状态，直到登录或 ctx 结束
func WaitForLogin(ctx context.Context, doc dom.Document, interval time.Duration) bool {
	if IsLoggedIn(doc) {
		return true
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if IsLoggedIn(doc) {
				return true
			}
		}
	}
}
