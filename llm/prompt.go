package llm

import (
	"fmt"
	"strings"

	"github.com/xpzouying/instagram-butler/post"
)

const (
	placeholderCaption  = "{caption}"
	placeholderHashtags = "{hashtags}"

	// SkipToken 模型无法给出相关评论时的回复
	SkipToken = "SKIP"

	skipInstruction = "If you cannot write a comment that is genuinely relevant to this post, reply with exactly SKIP and nothing else."
)

// BuildUserPrompt 用帖子上下文替换模板中的占位符，缺失的字段替换为空串
func BuildUserPrompt(template string, pc *post.Context) string {
	captionText := ""
	hashtagsText := ""
	if pc != nil {
		if pc.HasCaption() {
			captionText = "Post caption: " + strings.TrimSpace(pc.Caption)
		}
		if len(pc.Hashtags) > 0 {
			hashtagsText = "Hashtags: " + strings.Join(pc.Hashtags, " ")
		}
	}

	out := strings.ReplaceAll(template, placeholderCaption, captionText)
	return strings.ReplaceAll(out, placeholderHashtags, hashtagsText)
}

// BuildSystemPrompt 在系统提示词后补充 SKIP 约定
func BuildSystemPrompt(system string) string {
	if strings.Contains(system, SkipToken) {
		return system
	}
	return strings.TrimSpace(system) + "\n\n" + skipInstruction
}

// IsSkip 回复中完整或部分出现 SKIP 即视为放弃评论
func IsSkip(reply string) bool {
	return strings.Contains(reply, SkipToken)
}

const gatePromptTemplate = `Look at this Instagram post and decide whether it is about %s.

%s

%s

First describe in one or two sentences what you see in the image and caption.
Then finish with a final line that is exactly "RESULT: YES" if the post is about %s, or exactly "RESULT: NO" otherwise.`

// BuildGatePrompt 主题判定的提示词
func BuildGatePrompt(topic string, pc *post.Context) string {
	captionText := "Post caption: (none)"
	hashtagsText := "Hashtags: (none)"
	if pc != nil {
		if pc.HasCaption() {
			captionText = "Post caption: " + strings.TrimSpace(pc.Caption)
		}
		if len(pc.Hashtags) > 0 {
			hashtagsText = "Hashtags: " + strings.Join(pc.Hashtags, " ")
		}
	}
	return fmt.Sprintf(gatePromptTemplate, topic, captionText, hashtagsText, topic)
}

// IsOnTopic 解析主题判定结果：出现 "RESULT: YES"，或出现 YES 且没有 "RESULT: NO"
func IsOnTopic(reply string) bool {
	if strings.Contains(reply, "RESULT: YES") {
		return true
	}
	return strings.Contains(reply, "YES") && !strings.Contains(reply, "RESULT: NO")
}
