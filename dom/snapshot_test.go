package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `<html><body>
<article id="a1">
  <header><a href="/alice/">alice</a></header>
  <section><span>Like</span></section>
  <div>
    <a href="/alice/">Alice</a>
    <span>Had the best hike</span>
  </div>
  <div><p>line one</p><p>line two</p></div>
  <form><textarea placeholder="Add a comment…">draft</textarea></form>
</article>
</body></html>`

func TestInnerText(t *testing.T) {
	doc, err := ParseString(fixture)
	require.NoError(t, err)

	section, err := doc.Query("article section")
	require.NoError(t, err)
	next, err := section.NextSibling()
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "Alice Had the best hike", next.Text())

	multi, err := next.NextSibling()
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", multi.Text())

	article, err := doc.Query("article")
	require.NoError(t, err)
	assert.NotContains(t, article.Text(), "draft")
}

func TestClosestAndParent(t *testing.T) {
	doc, err := ParseString(fixture)
	require.NoError(t, err)

	input, err := doc.Query("textarea")
	require.NoError(t, err)

	article, err := input.Closest("article")
	require.NoError(t, err)
	require.NotNil(t, article)
	assert.Equal(t, "a1", article.Attr("id"))

	missing, err := input.Closest("[role=\"dialog\"]")
	require.NoError(t, err)
	assert.Nil(t, missing)

	parent, err := input.Parent()
	require.NoError(t, err)
	assert.Equal(t, "form", parent.TagName())
}

func TestInteractions(t *testing.T) {
	var clicked []string
	doc, err := ParseString(fixture, WithClickHandler(func(el Element) {
		clicked = append(clicked, el.TagName())
	}))
	require.NoError(t, err)

	input, err := doc.Query("textarea")
	require.NoError(t, err)
	assert.Equal(t, "draft", input.Value())
	assert.False(t, input.IsContentEditable())

	require.NoError(t, input.SetValue("nice shot"))
	assert.Equal(t, "nice shot", input.Value())

	require.NoError(t, input.SetAttr("data-comment-id", "7"))
	tagged, err := doc.Query(`[data-comment-id="7"]`)
	require.NoError(t, err)
	require.NotNil(t, tagged)
	require.NoError(t, tagged.RemoveAttr("data-comment-id"))
	assert.False(t, tagged.HasAttr("data-comment-id"))

	require.NoError(t, input.Focus())
	require.NoError(t, input.MoveCaretToEnd())
	assert.True(t, doc.CaretAtEnd(doc.Focused()))

	require.NoError(t, input.Click())
	assert.Equal(t, []string{"textarea"}, clicked)
	assert.Equal(t, 1, doc.ClickCount(input))
	assert.Equal(t, 1, doc.TotalClicks())

	require.NoError(t, doc.ScrollBy(900))
	assert.Equal(t, 900.0, doc.ScrollY())
}

func TestRasterizeWithoutLoader(t *testing.T) {
	doc, err := ParseString(`<img src="https://scontent.cdninstagram.com/x.jpg">`)
	require.NoError(t, err)
	img, err := doc.Query("img")
	require.NoError(t, err)
	_, err = img.Rasterize()
	assert.ErrorIs(t, err, ErrNotRendered)
}
