package instagram

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpzouying/instagram-butler/dom"
)

const hikePost = `<html><body>
<article>
  <header><a href="/alice/">alice</a></header>
  <div><img src="https://scontent.cdninstagram.com/v/t51/alice_avatar.jpg" alt="alice's profile picture"></div>
  <div><img src="https://scontent.cdninstagram.com/v/t51/hike_123.jpg" alt="Photo by Alice on a mountain trail"></div>
  <section>
    <div role="button"><svg aria-label="Like"></svg></div>
    <div role="button"><svg aria-label="Share"></svg></div>
  </section>
  <div><span>Alice</span> <span>Had the best hike today! <a href="/explore/tags/nature/">#nature</a> <a href="/explore/tags/sunset/">#sunset</a></span></div>
  <div><time datetime="2024-05-01T10:00:00.000Z">2h</time></div>
  <form><textarea placeholder="Add a comment…"></textarea><div role="button">Post</div></form>
</article>
</body></html>`

func TestExtractEndToEnd(t *testing.T) {
	var loaded []string
	img := pngBytes(t, 64, 48)
	doc := parse(t, hikePost, dom.WithImageLoader(func(src string) ([]byte, error) {
		loaded = append(loaded, src)
		return img, nil
	}))

	pc, err := Extract(query(t, doc, "textarea"))
	require.NoError(t, err)

	assert.Equal(t, "Had the best hike today! #nature #sunset", pc.Caption)
	assert.Equal(t, []string{"#nature", "#sunset"}, pc.Hashtags)
	assert.True(t, pc.HasImage)
	assert.True(t, strings.HasPrefix(pc.ImageData, "data:image/jpeg;base64,"))
	assert.Equal(t, "Photo by Alice on a mountain trail", pc.ImageAlt)
	assert.Equal(t, []string{"https://scontent.cdninstagram.com/v/t51/hike_123.jpg"}, loaded)
}

func TestExtractImageFailureIsNotFatal(t *testing.T) {
	doc := parse(t, hikePost)

	pc, err := Extract(query(t, doc, "textarea"))
	require.NoError(t, err)
	assert.False(t, pc.HasImage)
	assert.Empty(t, pc.ImageData)
	assert.Equal(t, "Had the best hike today! #nature #sunset", pc.Caption)
}

func TestExtractNoContainer(t *testing.T) {
	doc := parse(t, `<html><body><textarea placeholder="Add a comment…"></textarea></body></html>`)

	_, err := Extract(query(t, doc, "textarea"))
	var extErr *ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, ReasonNoContainer, extErr.Reason)

	_, err = Extract(nil)
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, ReasonNoInput, extErr.Reason)
}

func TestCaptionStrategies(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		fn       captionStrategy
		expected string
		ok       bool
	}{
		{
			name:     "多行时去掉第一行作者名",
			html:     `<article><section></section><div><div>alice</div><div>Sunday brunch with friends</div></div></article>`,
			fn:       captionAfterActions,
			expected: "Sunday brunch with friends",
			ok:       true,
		},
		{
			name:     "单行时去掉第一个词",
			html:     `<article><section></section><span>x</span><div>alice Sunday brunch with friends</div></article>`,
			fn:       captionAfterActions,
			expected: "Sunday brunch with friends",
			ok:       true,
		},
		{
			name: "推荐内容不算正文",
			html: `<article><section></section><div>Suggested for you: more accounts</div></article>`,
			fn:   captionAfterActions,
		},
		{
			name: "只看后面三个兄弟节点",
			html: `<article><section></section><p>a</p><p>b</p><p>c</p><div>alice Sunday brunch with friends</div></article>`,
			fn:   captionAfterActions,
		},
		{
			name:     "同一选择器取最长",
			html:     `<article><ul><li><span>bob</span><span>Rainy day in Lisbon with coffee</span><span>Rainy day in Lisbon</span></li></ul></article>`,
			fn:       captionBySelectors,
			expected: "Rainy day in Lisbon with coffee",
			ok:       true,
		},
		{
			name: "纯数字和符号不算正文",
			html: `<article><h1>1234567890 !!!</h1><span dir="auto">View all 12 comments</span></article>`,
			fn:   captionBySelectors,
		},
		{
			name:     "兜底扫描跳过界面文字",
			html:     `<article><span>Liked by bob and others</span><span>3 hours ago, in Porto</span><span>Just finished painting my kitchen wall blue</span></article>`,
			fn:       captionByTextScan,
			expected: "Just finished painting my kitchen wall blue",
			ok:       true,
		},
		{
			name: "兜底扫描要求足够长",
			html: `<article><span>short text</span></article>`,
			fn:   captionByTextScan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, tt.html)
			caption, ok := tt.fn(query(t, doc, "article"))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, caption)
		})
	}
}

func TestExtractFallsThroughTiers(t *testing.T) {
	doc := parse(t, `<div role="dialog">
  <span>Like</span>
  <span>Just finished painting my kitchen wall blue</span>
  <a href="/explore/tags/diy/">#diy</a>
  <a href="/explore/tags/diy/">#diy</a>
  <div contenteditable="true" aria-label="Add a comment…"></div>
</div>`)

	pc, err := Extract(query(t, doc, `div[contenteditable="true"]`))
	require.NoError(t, err)
	assert.Equal(t, "Just finished painting my kitchen wall blue", pc.Caption)
	assert.Equal(t, []string{"#diy", "#diy"}, pc.Hashtags)
	assert.False(t, pc.HasImage)
}

func TestExpandCaption(t *testing.T) {
	doc := parse(t, `<article>
  <div><span>alice</span> <span>Long story about</span> <span role="button">… more</span></div>
  <textarea placeholder="Add a comment…"></textarea>
</article>`)

	assert.True(t, ExpandCaption(query(t, doc, "textarea")))
	assert.Equal(t, 1, doc.ClickCount(query(t, doc, `span[role="button"]`)))
}
