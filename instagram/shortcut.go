package instagram

import (
	"context"

	"github.com/go-rod/rod"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ysmood/gson"

	"github.com/xpzouying/instagram-butler/dom"
)

const (
	shortcutBinding = "__igButlerShortcut"
	focusAttr       = "data-butler-focus"
)

// 点击评论输入框时打上标记；Cmd/Meta+Ctrl+G 通过绑定通知 Go 侧
const shortcutJS = `() => {
	if (window.__igButlerInstalled) return;
	window.__igButlerInstalled = true;

	const inputSelector = ` + "`" + `textarea[placeholder*="comment" i], textarea[aria-label*="comment" i], div[contenteditable="true"][aria-label*="comment" i]` + "`" + `;

	document.addEventListener("click", (e) => {
		if (!e.target.matches || !e.target.matches(inputSelector)) return;
		document.querySelectorAll("[` + focusAttr + `]").forEach((el) => el.removeAttribute("` + focusAttr + `"));
		e.target.setAttribute("` + focusAttr + `", "1");
	}, true);

	document.addEventListener("keydown", (e) => {
		if (!(e.metaKey && e.ctrlKey) || e.shiftKey || e.altKey) return;
		if ((e.key || "").toLowerCase() !== "g") return;
		e.preventDefault();
		e.stopPropagation();
		window.` + shortcutBinding + `({
			key: "g",
			focused: !!document.querySelector("[` + focusAttr + `]"),
		});
	}, true);
}`

// InstallShortcut 在页面上注册手动触发快捷键，返回注销函数
func InstallShortcut(ctx context.Context, page *rod.Page, doc *dom.RodDocument, s *Session) (func() error, error) {
	stop, err := page.Expose(shortcutBinding, func(payload gson.JSON) (interface{}, error) {
		logrus.WithField("focused", payload.Get("focused").Bool()).Info("检测到快捷键 Cmd+Ctrl+G")

		if el, err := doc.Query("[" + focusAttr + "]"); err == nil && el != nil {
			s.SetFocusedInput(el)
		}
		go func() {
			if err := s.TriggerManual(ctx); err != nil {
				logrus.Warnf("手动触发失败: %v", err)
			}
		}()
		return nil, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "expose shortcut binding")
	}

	if _, err := page.EvalOnNewDocument("(" + shortcutJS + ")()"); err != nil {
		_ = stop()
		return nil, errors.Wrap(err, "install shortcut on new documents")
	}
	if _, err := page.Eval(shortcutJS); err != nil {
		_ = stop()
		return nil, errors.Wrap(err, "install shortcut")
	}
	return stop, nil
}
