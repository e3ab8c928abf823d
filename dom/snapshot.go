package dom

import (
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Snapshot 基于已保存 HTML 的离线文档，支持选择器查询和模拟交互
type Snapshot struct {
	mu       sync.Mutex
	root     *html.Node
	scrollY  float64
	viewport float64
	focused  *html.Node
	caret    *html.Node
	clicks   map[*html.Node]int

	imageLoader func(src string) ([]byte, error)
	onClick     func(el Element)
}

// SnapshotOption 快照配置
type SnapshotOption func(*Snapshot)

// WithImageLoader 按 img 的 src 提供图片数据，用于栅格化
func WithImageLoader(fn func(src string) ([]byte, error)) SnapshotOption {
	return func(s *Snapshot) {
		s.imageLoader = fn
	}
}

// WithClickHandler 点击元素时回调，可以在回调里修改文档模拟页面反应
func WithClickHandler(fn func(el Element)) SnapshotOption {
	return func(s *Snapshot) {
		s.onClick = fn
	}
}

// WithViewportHeight 设置视口高度
func WithViewportHeight(h float64) SnapshotOption {
	return func(s *Snapshot) {
		s.viewport = h
	}
}

// Parse 解析 HTML 为快照文档
func Parse(r io.Reader, opts ...SnapshotOption) (*Snapshot, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse html")
	}

	s := &Snapshot{
		root:     root,
		viewport: 900,
		clicks:   make(map[*html.Node]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ParseString 解析 HTML 字符串
func ParseString(doc string, opts ...SnapshotOption) (*Snapshot, error) {
	return Parse(strings.NewReader(doc), opts...)
}

func (s *Snapshot) Query(selector string) (Element, error) {
	return queryOne(s, s.root, selector)
}

func (s *Snapshot) QueryAll(selector string) ([]Element, error) {
	return queryAll(s, s.root, selector)
}

func (s *Snapshot) ScrollBy(dy float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollY += dy
	return nil
}

func (s *Snapshot) ViewportHeight() (float64, error) {
	return s.viewport, nil
}

// ScrollY 当前滚动位置
func (s *Snapshot) ScrollY() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollY
}

// TotalClicks 所有元素被点击的总次数
func (s *Snapshot) TotalClicks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.clicks {
		total += n
	}
	return total
}

// ClickCount 某个元素被点击的次数
func (s *Snapshot) ClickCount(el Element) int {
	n, ok := el.(*snapshotElement)
	if !ok {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clicks[n.node]
}

// Focused 当前获得焦点的元素
func (s *Snapshot) Focused() Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focused == nil {
		return nil
	}
	return &snapshotElement{doc: s, node: s.focused}
}

// CaretAtEnd 光标是否被移动到该元素末尾
func (s *Snapshot) CaretAtEnd(el Element) bool {
	n, ok := el.(*snapshotElement)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caret == n.node
}

// HTML 渲染当前文档
func (s *Snapshot) HTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sb strings.Builder
	_ = html.Render(&sb, s.root)
	return sb.String()
}

func compile(selector string) (cascadia.Matcher, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, errors.Wrapf(err, "compile selector %q", selector)
	}
	return m, nil
}

func queryOne(doc *Snapshot, n *html.Node, selector string) (Element, error) {
	m, err := compile(selector)
	if err != nil {
		return nil, err
	}
	doc.mu.Lock()
	found := cascadia.Query(n, m)
	doc.mu.Unlock()
	if found == nil {
		return nil, nil
	}
	return &snapshotElement{doc: doc, node: found}, nil
}

func queryAll(doc *Snapshot, n *html.Node, selector string) ([]Element, error) {
	m, err := compile(selector)
	if err != nil {
		return nil, err
	}
	doc.mu.Lock()
	nodes := cascadia.QueryAll(n, m)
	doc.mu.Unlock()
	elems := make([]Element, 0, len(nodes))
	for _, node := range nodes {
		elems = append(elems, &snapshotElement{doc: doc, node: node})
	}
	return elems, nil
}

type snapshotElement struct {
	doc  *Snapshot
	node *html.Node
}

func (e *snapshotElement) TagName() string {
	return strings.ToLower(e.node.Data)
}

func (e *snapshotElement) Attr(name string) string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	v, _ := getAttr(e.node, name)
	return v
}

func (e *snapshotElement) HasAttr(name string) bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	_, ok := getAttr(e.node, name)
	return ok
}

func (e *snapshotElement) Text() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return innerText(e.node)
}

func (e *snapshotElement) Value() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if v, ok := getAttr(e.node, "value"); ok {
		return v
	}
	if e.node.DataAtom == atom.Textarea {
		return textContent(e.node)
	}
	return ""
}

func (e *snapshotElement) IsContentEditable() bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for n := e.node; n != nil; n = n.Parent {
		if v, ok := getAttr(n, "contenteditable"); ok {
			return v == "" || strings.EqualFold(v, "true") || strings.EqualFold(v, "plaintext-only")
		}
	}
	return false
}

func (e *snapshotElement) ChildCount() int {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	count := 0
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			count++
		}
	}
	return count
}

func (e *snapshotElement) Query(selector string) (Element, error) {
	return queryOne(e.doc, e.node, selector)
}

func (e *snapshotElement) QueryAll(selector string) ([]Element, error) {
	return queryAll(e.doc, e.node, selector)
}

func (e *snapshotElement) Closest(selector string) (Element, error) {
	m, err := compile(selector)
	if err != nil {
		return nil, err
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for n := e.node; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && m.Match(n) {
			return &snapshotElement{doc: e.doc, node: n}, nil
		}
	}
	return nil, nil
}

func (e *snapshotElement) Matches(selector string) (bool, error) {
	m, err := compile(selector)
	if err != nil {
		return false, err
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return m.Match(e.node), nil
}

func (e *snapshotElement) Parent() (Element, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	p := e.node.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil, nil
	}
	return &snapshotElement{doc: e.doc, node: p}, nil
}

func (e *snapshotElement) NextSibling() (Element, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for n := e.node.NextSibling; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode {
			return &snapshotElement{doc: e.doc, node: n}, nil
		}
	}
	return nil, nil
}

func (e *snapshotElement) Click() error {
	e.doc.mu.Lock()
	e.doc.clicks[e.node]++
	handler := e.doc.onClick
	e.doc.mu.Unlock()

	if handler != nil {
		handler(e)
	}
	return nil
}

func (e *snapshotElement) Focus() error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.doc.focused = e.node
	return nil
}

func (e *snapshotElement) SetAttr(name, value string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for i, a := range e.node.Attr {
		if a.Key == name {
			e.node.Attr[i].Val = value
			return nil
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
	return nil
}

func (e *snapshotElement) RemoveAttr(name string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	attrs := e.node.Attr[:0]
	for _, a := range e.node.Attr {
		if a.Key != name {
			attrs = append(attrs, a)
		}
	}
	e.node.Attr = attrs
	return nil
}

func (e *snapshotElement) SetValue(text string) error {
	if err := e.SetAttr("value", text); err != nil {
		return err
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if e.node.DataAtom == atom.Textarea {
		replaceChildren(e.node, text)
	}
	return nil
}

func (e *snapshotElement) SetInnerText(text string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	replaceChildren(e.node, text)
	return nil
}

func (e *snapshotElement) MoveCaretToEnd() error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.doc.caret = e.node
	return nil
}

func (e *snapshotElement) Rasterize() ([]byte, error) {
	src := e.Attr("src")
	if e.doc.imageLoader == nil || src == "" {
		return nil, ErrNotRendered
	}
	data, err := e.doc.imageLoader(src)
	if err != nil {
		return nil, errors.Wrapf(ErrNotRendered, "load %s: %v", src, err)
	}
	return data, nil
}

func getAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func replaceChildren(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// 块级元素会在 innerText 中产生换行
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true, atom.Figcaption: true,
	atom.Figure: true, atom.Footer: true, atom.Form: true, atom.H1: true, atom.H2: true,
	atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true,
	atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true, atom.P: true,
	atom.Section: true, atom.Table: true, atom.Tr: true, atom.Ul: true,
}

// innerText 近似浏览器 innerText：脚本和样式不计入，块级元素与 br 分行，
// 行内连续空白折叠为一个空格，首尾空行去掉
func innerText(root *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(strings.Map(sourceWhitespace, n.Data))
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			case atom.Textarea:
				// 表单控件的内容不属于祖先的 innerText
				if n != root {
					return
				}
			case atom.Br:
				sb.WriteByte('\n')
				return
			}
		}

		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			sb.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			sb.WriteByte('\n')
		}
	}
	walk(root)

	lines := strings.Split(sb.String(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func sourceWhitespace(r rune) rune {
	switch r {
	case '\n', '\r', '\t', '\f':
		return ' '
	}
	return r
}
