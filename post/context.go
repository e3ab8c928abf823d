package post

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Context 一次提取得到的帖子上下文，仅在单次提取调用中有效，不做持久化
type Context struct {
	// 帖子正文（已去掉作者名）
	Caption string `json:"caption"`
	// 话题标签，按文档顺序，不去重
	Hashtags []string `json:"hashtags"`
	// 主图的 data URL（image/jpeg;base64），栅格化失败时为空
	ImageData string `json:"image_data,omitempty"`
	// 主图的 alt 文本
	ImageAlt string `json:"image_alt,omitempty"`
	HasImage bool   `json:"has_image"`
}

// HasCaption 是否提取到正文
func (c *Context) HasCaption() bool {
	return strings.TrimSpace(c.Caption) != ""
}

// Summary 用于日志的简短描述，正文按显示宽度截断
func (c *Context) Summary() string {
	return runewidth.Truncate(c.Caption, 60, "...")
}

// Truncate 按显示宽度截断文本，供日志和命令行输出使用
func Truncate(s string, width int) string {
	return runewidth.Truncate(strings.TrimSpace(s), width, "...")
}
