package instagram

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/xpzouying/instagram-butler/dom"
)

// commentInput 评论输入框。textarea 和 contenteditable 写入方式不同
type commentInput interface {
	Element() dom.Element
	IsEmpty() bool
	Write(text string) error
}

// newCommentInput 按元素类型选择实现
func newCommentInput(el dom.Element) commentInput {
	if el.TagName() != "textarea" && el.IsContentEditable() {
		return richInput{el: el}
	}
	return plainInput{el: el}
}

// plainInput textarea：写 value 并派发 input/change
type plainInput struct {
	el dom.Element
}

func (p plainInput) Element() dom.Element { return p.el }

func (p plainInput) IsEmpty() bool {
	return p.el.Value() == ""
}

func (p plainInput) Write(text string) error {
	return errors.Wrap(p.el.SetValue(text), "set textarea value")
}

// richInput contenteditable：写 innerText 并派发 input/change
type richInput struct {
	el dom.Element
}

func (r richInput) Element() dom.Element { return r.el }

func (r richInput) IsEmpty() bool {
	return strings.TrimSpace(r.el.Text()) == ""
}

func (r richInput) Write(text string) error {
	return errors.Wrap(r.el.SetInnerText(text), "set editable text")
}

// fillInput 写入文本，然后恢复焦点并把光标移到末尾
func fillInput(in commentInput, text string) error {
	if err := in.Write(text); err != nil {
		return err
	}
	el := in.Element()
	if err := el.Focus(); err != nil {
		return errors.Wrap(err, "focus input")
	}
	return errors.Wrap(el.MoveCaretToEnd(), "move caret")
}
