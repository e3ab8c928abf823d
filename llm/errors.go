package llm

import "fmt"

// ErrorKind 生成错误分类
type ErrorKind string

const (
	// ErrKindAPI 生成接口返回非成功响应
	ErrKindAPI ErrorKind = "ApiError"
	// ErrKindNoAPIKey 没有配置凭据
	ErrKindNoAPIKey ErrorKind = "NoAPIKey"
	// ErrKindEmpty 响应中没有候选结果
	ErrKindEmpty ErrorKind = "EmptyResponse"
)

// GenerationError 生成失败，不自动重试，由调用方提示给用户
type GenerationError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation %s (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("generation %s: %s", e.Kind, e.Message)
}
