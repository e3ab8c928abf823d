// Package dom 抽象出帖子提取和自动化所需的最小 DOM 能力。
// 线上使用 go-rod 驱动真实页面，离线（测试、保存的 HTML）使用快照实现。
package dom

import "github.com/pkg/errors"

// ErrNotRendered 元素无法栅格化（快照中没有图片数据，或页面上元素不可见）
var ErrNotRendered = errors.New("element cannot be rendered")

// Element 页面元素
//
// Query/Closest/Parent/NextSibling 找不到时返回 nil, nil，只有驱动层故障才返回 error。
type Element interface {
	TagName() string
	Attr(name string) string
	HasAttr(name string) bool
	// Text 近似 innerText：块级元素换行，行内空白折叠
	Text() string
	Value() string
	IsContentEditable() bool
	ChildCount() int

	Query(selector string) (Element, error)
	QueryAll(selector string) ([]Element, error)
	Closest(selector string) (Element, error)
	Matches(selector string) (bool, error)
	Parent() (Element, error)
	NextSibling() (Element, error)

	Click() error
	Focus() error
	SetAttr(name, value string) error
	RemoveAttr(name string) error
	// SetValue 写入表单值并派发 input/change 事件
	SetValue(text string) error
	// SetInnerText 写入可编辑区域文本并派发 input/change 事件
	SetInnerText(text string) error
	MoveCaretToEnd() error
	// Rasterize 把元素渲染为图片数据
	Rasterize() ([]byte, error)
}

// Document 页面
type Document interface {
	Query(selector string) (Element, error)
	QueryAll(selector string) ([]Element, error)
	ScrollBy(dy float64) error
	ViewportHeight() (float64, error)
}

// FirstText 依次尝试选择器，返回第一个非空文本
func FirstText(root Element, selectors ...string) string {
	for _, sel := range selectors {
		el, err := root.Query(sel)
		if err != nil || el == nil {
			continue
		}
		if text := el.Text(); text != "" {
			return text
		}
	}
	return ""
}

// FindByText 在 root 下按选择器查找文本完全等于 label 的元素
func FindByText(root interface {
	QueryAll(string) ([]Element, error)
}, selector, label string) (Element, error) {
	elems, err := root.QueryAll(selector)
	if err != nil {
		return nil, err
	}
	for _, el := range elems {
		if el.Text() == label {
			return el, nil
		}
	}
	return nil, nil
}
