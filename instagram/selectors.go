package instagram

// 页面结构没有版本，选择器按优先级排列，前面的命中即停止
var (
	// 帖子容器：信息流中的 article，其次是弹窗和旧版布局
	containerSelectors = []string{
		"article",
		`[role="dialog"]`,
		`div[class*="Post"]`,
	}

	// 管家模式只扫描信息流中的帖子
	feedContainerSelector = "article"

	commentInputSelector = `textarea[placeholder*="comment"], textarea[placeholder*="Comment"], ` +
		`textarea[aria-label*="comment"], textarea[aria-label*="Comment"], ` +
		`div[contenteditable="true"][aria-label*="comment"], div[contenteditable="true"][aria-label*="Comment"]`

	likeSelector         = `svg[aria-label="Like"]`
	buttonSelector       = `div[role="button"]`
	submitSelector       = `div[role="button"], button`
	expandSelector       = `button, div[role="button"], span[role="button"]`
	imageSelector        = `img[src*="instagram"]`
	hashtagSelector      = `a[href*="/explore/tags/"]`
	authorSelector       = `header a[href^="/"]`
	postLinkSelector     = `a[href*="/p/"], a[href*="/reel/"]`
	timestampSelector    = `time[datetime]`
	commentCountSelector = `a, span, div[role="button"]`

	captionSelectors = []string{
		"ul > div > li:first-child span",
		"ul > li:first-child span",
		`span[dir="auto"]`,
		"h1",
	}
)

const (
	followLabel = "Follow"
	submitLabel = "Post"

	// 评论请求编号写在输入框的这个属性上
	commentIDAttr = "data-comment-id"
)

// 正文候选中出现即丢弃
var captionBoilerplate = []string{
	"Suggested for you",
	"View all",
	"Log in",
	"Sign up",
}

// 界面文字（按钮、时间等），兜底扫描时跳过
var chromeTokens = []string{
	"Like",
	"Comment",
	"Share",
	"Suggested for you",
	"View all",
	"ago",
}
