package instagram

import (
	"context"

	"github.com/go-rod/rod"
	"github.com/sirupsen/logrus"
)

// Level 提示类型
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notifier 页面上的短暂提示
type Notifier interface {
	Notify(ctx context.Context, message string, level Level)
}

// LogNotifier 没有页面时只写日志
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, message string, level Level) {
	entry := logrus.WithField("level", string(level))
	if level == LevelError {
		entry.Warn(message)
		return
	}
	entry.Info(message)
}

// PageNotifier 在页面右上角显示提示，约 1 秒后消失
type PageNotifier struct {
	page *rod.Page
}

// NewPageNotifier 创建页面提示
func NewPageNotifier(page *rod.Page) *PageNotifier {
	return &PageNotifier{page: page}
}

const notifyJS = `(message, level) => {
	const prev = document.getElementById("ig-butler-notification");
	if (prev) prev.remove();

	if (!document.getElementById("ig-butler-styles")) {
		const style = document.createElement("style");
		style.id = "ig-butler-styles";
		style.textContent = "@keyframes igButlerSlideIn { from { transform: translateX(400px); opacity: 0; } to { transform: translateX(0); opacity: 1; } }";
		document.head.appendChild(style);
	}

	const colors = { info: "#0095f6", success: "#00c853", error: "#ed4956" };
	const el = document.createElement("div");
	el.id = "ig-butler-notification";
	el.textContent = message;
	el.style.cssText = "position: fixed; top: 20px; right: 20px; padding: 16px 24px; border-radius: 8px;" +
		"font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; font-size: 14px; font-weight: 500;" +
		"z-index: 999999; box-shadow: 0 4px 12px rgba(0, 0, 0, 0.15); color: white;" +
		"animation: igButlerSlideIn 0.3s ease-out; transition: opacity 0.3s ease-out;" +
		"background: " + (colors[level] || colors.info) + ";";
	document.body.appendChild(el);

	setTimeout(() => {
		el.style.opacity = "0";
		setTimeout(() => el.remove(), 100);
	}, 1000);
}`

func (n *PageNotifier) Notify(ctx context.Context, message string, level Level) {
	if _, err := n.page.Context(ctx).Eval(notifyJS, message, string(level)); err != nil {
		logrus.Warnf("显示提示失败: %v", err)
	}
	LogNotifier{}.Notify(ctx, message, level)
}
