package dom

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pkg/errors"
)

// RodDocument 基于 go-rod 页面的文档实现
type RodDocument struct {
	page *rod.Page
}

// NewRodDocument 包装 rod 页面，调用方负责通过 page.Context 控制超时
func NewRodDocument(page *rod.Page) *RodDocument {
	return &RodDocument{page: page}
}

// Page 底层 rod 页面
func (d *RodDocument) Page() *rod.Page {
	return d.page
}

func (d *RodDocument) Query(selector string) (Element, error) {
	elems, err := d.page.Elements(selector)
	if err != nil {
		return nil, errors.Wrapf(err, "query %q", selector)
	}
	if len(elems) == 0 {
		return nil, nil
	}
	return &rodElement{el: elems.First()}, nil
}

func (d *RodDocument) QueryAll(selector string) ([]Element, error) {
	elems, err := d.page.Elements(selector)
	if err != nil {
		return nil, errors.Wrapf(err, "query all %q", selector)
	}
	return wrapAll(elems), nil
}

func (d *RodDocument) ScrollBy(dy float64) error {
	_, err := d.page.Eval(`(dy) => window.scrollBy(0, dy)`, dy)
	return errors.Wrap(err, "scroll")
}

func (d *RodDocument) ViewportHeight() (float64, error) {
	res, err := d.page.Eval(`() => window.innerHeight`)
	if err != nil {
		return 0, errors.Wrap(err, "viewport height")
	}
	return res.Value.Num(), nil
}

// WrapElement 把 rod 元素包装为 Element
func WrapElement(el *rod.Element) Element {
	if el == nil {
		return nil
	}
	return &rodElement{el: el}
}

func wrapAll(elems rod.Elements) []Element {
	out := make([]Element, 0, len(elems))
	for _, el := range elems {
		out = append(out, &rodElement{el: el})
	}
	return out
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) evalString(js string, args ...interface{}) string {
	res, err := e.el.Eval(js, args...)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func (e *rodElement) TagName() string {
	return e.evalString(`() => this.tagName.toLowerCase()`)
}

func (e *rodElement) Attr(name string) string {
	v, err := e.el.Attribute(name)
	if err != nil || v == nil {
		return ""
	}
	return *v
}

func (e *rodElement) HasAttr(name string) bool {
	v, err := e.el.Attribute(name)
	return err == nil && v != nil
}

func (e *rodElement) Text() string {
	return e.evalString(`() => (this.innerText || '').trim()`)
}

func (e *rodElement) Value() string {
	return e.evalString(`() => this.value || ''`)
}

func (e *rodElement) IsContentEditable() bool {
	res, err := e.el.Eval(`() => !!this.isContentEditable`)
	return err == nil && res.Value.Bool()
}

func (e *rodElement) ChildCount() int {
	res, err := e.el.Eval(`() => this.childElementCount`)
	if err != nil {
		return 0
	}
	return res.Value.Int()
}

func (e *rodElement) Query(selector string) (Element, error) {
	elems, err := e.el.Elements(selector)
	if err != nil {
		return nil, errors.Wrapf(err, "query %q", selector)
	}
	if len(elems) == 0 {
		return nil, nil
	}
	return &rodElement{el: elems.First()}, nil
}

func (e *rodElement) QueryAll(selector string) ([]Element, error) {
	elems, err := e.el.Elements(selector)
	if err != nil {
		return nil, errors.Wrapf(err, "query all %q", selector)
	}
	return wrapAll(elems), nil
}

// byJS 执行返回元素的脚本，脚本返回 null 时视为未找到
func (e *rodElement) byJS(js string, args ...interface{}) (Element, error) {
	el, err := e.el.ElementByJS(rod.Eval(js, args...))
	if err != nil {
		var notFound *rod.ElementNotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rodElement{el: el}, nil
}

func (e *rodElement) Closest(selector string) (Element, error) {
	return e.byJS(`(s) => this.closest(s)`, selector)
}

func (e *rodElement) Matches(selector string) (bool, error) {
	res, err := e.el.Eval(`(s) => this.matches(s)`, selector)
	if err != nil {
		return false, errors.Wrapf(err, "matches %q", selector)
	}
	return res.Value.Bool(), nil
}

func (e *rodElement) Parent() (Element, error) {
	return e.byJS(`() => this.parentElement`)
}

func (e *rodElement) NextSibling() (Element, error) {
	return e.byJS(`() => this.nextElementSibling`)
}

func (e *rodElement) Click() error {
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Focus() error {
	return e.el.Focus()
}

func (e *rodElement) SetAttr(name, value string) error {
	_, err := e.el.Eval(`(k, v) => this.setAttribute(k, v)`, name, value)
	return err
}

func (e *rodElement) RemoveAttr(name string) error {
	_, err := e.el.Eval(`(k) => this.removeAttribute(k)`, name)
	return err
}

// SetValue 通过原型上的 setter 写值，保证页面框架能感知到变化
func (e *rodElement) SetValue(text string) error {
	_, err := e.el.Eval(`(v) => {
		const proto = this.tagName === 'TEXTAREA' ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
		const desc = Object.getOwnPropertyDescriptor(proto, 'value');
		if (desc && desc.set) {
			desc.set.call(this, v);
		} else {
			this.value = v;
		}
		this.dispatchEvent(new Event('input', { bubbles: true }));
		this.dispatchEvent(new Event('change', { bubbles: true }));
	}`, text)
	return err
}

func (e *rodElement) SetInnerText(text string) error {
	_, err := e.el.Eval(`(v) => {
		this.innerText = v;
		this.dispatchEvent(new Event('input', { bubbles: true }));
		this.dispatchEvent(new Event('change', { bubbles: true }));
	}`, text)
	return err
}

func (e *rodElement) MoveCaretToEnd() error {
	_, err := e.el.Eval(`() => {
		if (this.isContentEditable) {
			const range = document.createRange();
			const sel = window.getSelection();
			range.selectNodeContents(this);
			range.collapse(false);
			sel.removeAllRanges();
			sel.addRange(range);
		} else if (typeof this.setSelectionRange === 'function') {
			const n = (this.value || '').length;
			this.setSelectionRange(n, n);
		}
	}`)
	return err
}

func (e *rodElement) Rasterize() ([]byte, error) {
	visible, err := e.el.Visible()
	if err != nil || !visible {
		return nil, ErrNotRendered
	}
	data, err := e.el.Screenshot(proto.PageCaptureScreenshotFormatJpeg, 80)
	if err != nil {
		return nil, errors.Wrap(ErrNotRendered, err.Error())
	}
	return data, nil
}
