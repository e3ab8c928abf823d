package instagram

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/xpzouying/instagram-butler/dom"
	"github.com/xpzouying/instagram-butler/post"
)

// FindContainer 从输入框向上查找帖子容器
func FindContainer(input dom.Element) (dom.Element, error) {
	for _, sel := range containerSelectors {
		c, err := input.Closest(sel)
		if err != nil {
			return nil, err
		}
		if c != nil {
			return c, nil
		}
	}
	return nil, &ExtractionError{Reason: ReasonNoContainer}
}

// FirstContainer 在整个页面中查找第一个帖子容器，用于离线 HTML
func FirstContainer(doc dom.Document) (dom.Element, error) {
	for _, sel := range containerSelectors {
		c, err := doc.Query(sel)
		if err != nil {
			return nil, err
		}
		if c != nil {
			return c, nil
		}
	}
	return nil, &ExtractionError{Reason: ReasonNoContainer}
}

// Extract 提取输入框所在帖子的上下文
func Extract(input dom.Element) (*post.Context, error) {
	if input == nil {
		return nil, &ExtractionError{Reason: ReasonNoInput}
	}
	container, err := FindContainer(input)
	if err != nil {
		return nil, err
	}
	return ExtractContainer(container), nil
}

// ExtractDocument 提取页面中第一个帖子的上下文
func ExtractDocument(doc dom.Document) (*post.Context, error) {
	container, err := FirstContainer(doc)
	if err != nil {
		return nil, err
	}
	return ExtractContainer(container), nil
}

// ExtractContainer 从帖子容器提取正文、话题标签和主图，单个字段失败不影响其它字段
func ExtractContainer(container dom.Element) *post.Context {
	pc := &post.Context{
		Caption:  extractCaption(container),
		Hashtags: extractHashtags(container),
	}

	img := mainImage(container)
	if img == nil {
		return pc
	}
	pc.ImageAlt = img.Attr("alt")

	raw, err := img.Rasterize()
	if err != nil {
		logrus.Debugf("主图栅格化失败: %v", err)
		return pc
	}
	data, err := post.EncodeImage(raw)
	if err != nil {
		logrus.Warnf("主图编码失败: %v", err)
		return pc
	}
	pc.ImageData = data
	pc.HasImage = true
	return pc
}

// ExpandCaption 点击正文的 "more" 展开按钮，返回是否点击
func ExpandCaption(input dom.Element) bool {
	container, err := FindContainer(input)
	if err != nil {
		logrus.Debug("找不到帖子容器，无法展开正文")
		return false
	}
	buttons, err := container.QueryAll(expandSelector)
	if err != nil {
		return false
	}
	for _, btn := range buttons {
		text := strings.ToLower(btn.Text())
		if text == "" {
			continue
		}
		if strings.Contains(text, "more") || strings.Contains(text, "…") {
			if err := btn.Click(); err != nil {
				logrus.Warnf("点击展开按钮失败: %v", err)
				return false
			}
			logrus.Debugf("展开正文: %q", btn.Text())
			return true
		}
	}
	logrus.Debug("没有展开按钮，正文可能已经完整")
	return false
}

// captionStrategy 一种正文提取方式，没有结果时返回 false
type captionStrategy func(container dom.Element) (string, bool)

var captionStrategies = []struct {
	name string
	fn   captionStrategy
}{
	{"actions_sibling", captionAfterActions},
	{"selectors", captionBySelectors},
	{"text_scan", captionByTextScan},
}

func extractCaption(container dom.Element) string {
	for _, s := range captionStrategies {
		if caption, ok := s.fn(container); ok {
			logrus.WithField("strategy", s.name).Debugf("找到正文, 长度: %d", utf8.RuneCountInString(caption))
			return caption
		}
	}
	return ""
}

// captionAfterActions 点赞/分享按钮所在 section 之后的几个 div 中通常是 "用户名 正文"
func captionAfterActions(container dom.Element) (string, bool) {
	section, err := container.Query("section")
	if err != nil || section == nil {
		return "", false
	}

	sib, _ := section.NextSibling()
	for i := 0; i < 3 && sib != nil; i++ {
		if sib.TagName() == "div" {
			if caption, ok := stripAuthor(strings.TrimSpace(sib.Text())); ok {
				return caption, true
			}
		}
		sib, _ = sib.NextSibling()
	}
	return "", false
}

// stripAuthor 去掉开头的作者名：多行时去掉第一行，否则去掉第一个词
func stripAuthor(full string) (string, bool) {
	if utf8.RuneCountInString(full) <= 10 || strings.Contains(full, "Suggested for you") {
		return "", false
	}

	lines := strings.Split(full, "\n")
	if len(lines) > 1 {
		rest := strings.TrimSpace(strings.Join(lines[1:], "\n"))
		if utf8.RuneCountInString(rest) > 5 {
			return rest, true
		}
	}

	words := strings.Split(full, " ")
	if len(words) > 1 {
		rest := strings.TrimSpace(strings.Join(words[1:], " "))
		if rest != "" {
			return rest, true
		}
	}
	return "", false
}

// captionBySelectors 按选择器优先级查找，同一选择器下取最长的合格文本
func captionBySelectors(container dom.Element) (string, bool) {
	for _, sel := range captionSelectors {
		elems, err := container.QueryAll(sel)
		if err != nil {
			continue
		}
		best := ""
		for _, el := range elems {
			text := strings.TrimSpace(el.Text())
			if utf8.RuneCountInString(text) <= utf8.RuneCountInString(best) {
				continue
			}
			if qualifiesAsCaption(text) {
				best = text
			}
		}
		if best != "" {
			return best, true
		}
	}
	return "", false
}

func qualifiesAsCaption(text string) bool {
	if utf8.RuneCountInString(text) <= 10 {
		return false
	}
	for _, b := range captionBoilerplate {
		if strings.Contains(text, b) {
			return false
		}
	}
	// 纯表情、数字或符号不算正文
	return strings.IndexFunc(text, unicode.IsLetter) >= 0
}

// captionByTextScan 兜底：扫描叶子文本元素，取第一个长度合适且不像界面文字的
func captionByTextScan(container dom.Element) (string, bool) {
	elems, err := container.QueryAll("span")
	if err != nil {
		return "", false
	}
	for _, el := range elems {
		if !isTextLeaf(el) {
			continue
		}
		text := strings.TrimSpace(el.Text())
		n := utf8.RuneCountInString(text)
		if n <= 15 || n >= 5000 || containsAny(text, chromeTokens) {
			continue
		}
		return text, true
	}
	return "", false
}

// isTextLeaf 内部没有再嵌套 span/div，只含文本和行内链接
func isTextLeaf(el dom.Element) bool {
	if el.ChildCount() == 0 {
		return true
	}
	nested, err := el.Query("span, div")
	return err == nil && nested == nil
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// mainImage 第一张来自站点图床、且不是头像或占位图的图片
func mainImage(container dom.Element) dom.Element {
	imgs, err := container.QueryAll(imageSelector)
	if err != nil {
		return nil
	}
	for _, img := range imgs {
		alt := img.Attr("alt")
		if alt == "" || alt == "Instagram" {
			continue
		}
		lower := strings.ToLower(alt)
		if strings.Contains(lower, "avatar") || strings.Contains(lower, "profile") {
			continue
		}
		return img
	}
	return nil
}

// extractHashtags 按文档顺序收集话题链接，不去重
func extractHashtags(container dom.Element) []string {
	links, err := container.QueryAll(hashtagSelector)
	if err != nil {
		return []string{}
	}
	tags := make([]string, 0, len(links))
	for _, a := range links {
		if text := strings.TrimSpace(a.Text()); text != "" {
			tags = append(tags, text)
		}
	}
	return tags
}
