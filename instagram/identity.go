package instagram

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/xpzouying/instagram-butler/dom"
)

// Identity 帖子标识
type Identity string

var postLinkPattern = regexp.MustCompile(`/(p|reel)/([^/?#]+)`)

// identityHashRunes 内容哈希只取开头这么多字符
const identityHashRunes = 200

// identitySources 依次尝试：帖子链接、发布时间、图片文件名、正文哈希
var identitySources = []func(container dom.Element) (Identity, bool){
	identityFromLink,
	identityFromTimestamp,
	identityFromImage,
	identityFromText,
}

// ComputeIdentity 计算帖子标识，所有来源都没有时返回 false，调用方应视为无法识别
func ComputeIdentity(container dom.Element) (Identity, bool) {
	if container == nil {
		return "", false
	}
	for _, src := range identitySources {
		if id, ok := src(container); ok {
			return id, true
		}
	}
	return "", false
}

func identityFromLink(container dom.Element) (Identity, bool) {
	links, err := container.QueryAll(postLinkSelector)
	if err != nil {
		return "", false
	}
	for _, a := range links {
		m := postLinkPattern.FindStringSubmatch(a.Attr("href"))
		if m != nil {
			return Identity(m[1] + ":" + m[2]), true
		}
	}
	return "", false
}

func identityFromTimestamp(container dom.Element) (Identity, bool) {
	t, err := container.Query(timestampSelector)
	if err != nil || t == nil {
		return "", false
	}
	if dt := strings.TrimSpace(t.Attr("datetime")); dt != "" {
		return Identity("time:" + dt), true
	}
	return "", false
}

func identityFromImage(container dom.Element) (Identity, bool) {
	img := mainImage(container)
	if img == nil {
		return "", false
	}
	src := img.Attr("src")
	u, err := url.Parse(src)
	if err != nil {
		return "", false
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", false
	}
	return Identity("img:" + name), true
}

// identityFromText 标记重新生成后哈希可能变化，只作为最后手段
func identityFromText(container dom.Element) (Identity, bool) {
	text := strings.TrimSpace(container.Text())
	if text == "" {
		return "", false
	}
	runes := []rune(text)
	if len(runes) > identityHashRunes {
		runes = runes[:identityHashRunes]
	}
	return Identity(fmt.Sprintf("hash:%016x", xxhash.Sum64String(string(runes)))), true
}

// Tracker 本次页面会话中已经评论过的帖子，只增不减。
// 不做并发保护，由 Session 持锁访问
type Tracker struct {
	acted map[Identity]struct{}
}

// NewTracker 创建空的记录
func NewTracker() *Tracker {
	return &Tracker{acted: make(map[Identity]struct{})}
}

// HasAlreadyActed 是否已经评论过
func (t *Tracker) HasAlreadyActed(id Identity) bool {
	_, ok := t.acted[id]
	return ok
}

// MarkActed 记录帖子已经评论，只在确认发布之后调用
func (t *Tracker) MarkActed(id Identity) {
	t.acted[id] = struct{}{}
}

// Len 已记录的帖子数
func (t *Tracker) Len() int {
	return len(t.acted)
}
