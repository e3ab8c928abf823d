package instagram

import (
	"fmt"

	"github.com/pkg/errors"
)

// ExtractionReason 提取失败原因
type ExtractionReason string

const (
	// ReasonNoContainer 找不到帖子容器
	ReasonNoContainer ExtractionReason = "NoContainer"
	// ReasonNoInput 找不到评论输入框
	ReasonNoInput ExtractionReason = "NoInput"
)

// ExtractionError 只有容器和输入框缺失才会返回，其它字段缺失都降级为空值
type ExtractionError struct {
	Reason ExtractionReason
}

func (e *ExtractionError) Error() string {
	switch e.Reason {
	case ReasonNoContainer:
		return "Could not find post container"
	case ReasonNoInput:
		return "No comment input focused"
	}
	return fmt.Sprintf("extraction failed: %s", e.Reason)
}

// SimilarityRejection 生成的评论和最近的评论太像，放弃本次插入
type SimilarityRejection struct {
	Comment string
	Score   float64
}

func (e *SimilarityRejection) Error() string {
	return fmt.Sprintf("comment too similar to a recent one (%.2f)", e.Score)
}

var (
	// ErrDuplicateRequest 同一个请求编号已经在插入中
	ErrDuplicateRequest = errors.New("comment request already pending")
	// ErrAlreadyActed 帖子已经评论过
	ErrAlreadyActed = errors.New("post already commented")
	// ErrNoSubmitControl 找不到发布按钮，本次评论放弃
	ErrNoSubmitControl = errors.New("submit control not found")
	// ErrNotRunning 管家模式没有运行
	ErrNotRunning = errors.New("butler is not running")
	// ErrAlreadyRunning 管家模式已经在运行
	ErrAlreadyRunning = errors.New("butler is already running")
)
