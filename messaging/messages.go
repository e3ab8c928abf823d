package messaging

import "github.com/xpzouying/instagram-butler/post"

// Kind 消息类型
type Kind string

const (
	KindTriggerGeneration Kind = "triggerGeneration"
	KindGetPostContext    Kind = "getPostContext"
	KindInsertComment     Kind = "insertComment"
	KindShowError         Kind = "showError"
	KindLogAIVision       Kind = "logAIVision"
	KindStartButler       Kind = "startButler"
	KindStopButler        Kind = "stopButler"
)

// Request 页面侧与后台侧之间的请求
type Request interface {
	Kind() Kind
}

// TriggerGeneration 页面侧请求后台为某个输入框生成评论
type TriggerGeneration struct {
	CommentID  int64 `json:"comment_id"`
	ButlerMode bool  `json:"butler_mode"`
}

// GetPostContext 后台请求页面侧提取帖子上下文
type GetPostContext struct {
	CommentID int64 `json:"comment_id"`
}

// InsertComment 后台把生成的评论交给页面侧插入并提交
type InsertComment struct {
	Comment   string `json:"comment"`
	CommentID int64  `json:"comment_id"`
}

// ShowError 在页面上提示错误
type ShowError struct {
	Message string `json:"message"`
}

// LogAIVision 主题判定的模型描述
type LogAIVision struct {
	Analysis  string `json:"analysis"`
	IsOnTopic bool   `json:"is_on_topic"`
}

// StartButler 启动管家模式
type StartButler struct{}

// StopButler 停止管家模式
type StopButler struct{}

func (TriggerGeneration) Kind() Kind { return KindTriggerGeneration }
func (GetPostContext) Kind() Kind    { return KindGetPostContext }
func (InsertComment) Kind() Kind     { return KindInsertComment }
func (ShowError) Kind() Kind         { return KindShowError }
func (LogAIVision) Kind() Kind       { return KindLogAIVision }
func (StartButler) Kind() Kind       { return KindStartButler }
func (StopButler) Kind() Kind        { return KindStopButler }

// Response 请求的应答，GetPostContext 返回 Context 或 Error
type Response struct {
	Context *post.Context `json:"context,omitempty"`
	Error   string        `json:"error,omitempty"`
}
