// Package instagram 运行在页面侧：提取帖子内容、插入并发布评论、驱动管家模式。
package instagram

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xpzouying/instagram-butler/configs"
	"github.com/xpzouying/instagram-butler/dom"
	"github.com/xpzouying/instagram-butler/messaging"
	"github.com/xpzouying/instagram-butler/metrics"
)

const (
	DefaultTickInterval = 5 * time.Second
	DefaultSubmitDelay  = 500 * time.Millisecond
	DefaultExpandDelay  = 400 * time.Millisecond
)

// Session 一个页面会话。计数、已评论记录、进行中的插入和评论历史都挂在这里，
// 重新启动管家模式时显式重置计数
type Session struct {
	doc      dom.Document
	store    configs.Store
	bus      *messaging.Bus
	notifier Notifier
	metrics  *metrics.Collector

	tickInterval time.Duration
	submitDelay  time.Duration
	expandDelay  time.Duration
	findRetries  int
	findBackoff  time.Duration

	mu            sync.Mutex
	state         State
	maxActions    int
	maxComments   int
	actionsCount  int
	commentsCount int
	// 已发出但还没结束的生成请求，占用评论名额
	reservedComments int
	ownUsername      string
	stopCh        chan struct{}

	nextID  int64
	pending map[int64]struct{}
	focused dom.Element
	history *History
	tracker *Tracker
}

// Option Session 配置
type Option func(*Session)

// WithNotifier 页面提示，默认只写日志
func WithNotifier(n Notifier) Option {
	return func(s *Session) {
		s.notifier = n
	}
}

// WithMetrics 指标
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithTickInterval 管家模式的扫描间隔
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) {
		s.tickInterval = d
	}
}

// WithSubmitDelay 写入评论到点击发布之间的等待
func WithSubmitDelay(d time.Duration) Option {
	return func(s *Session) {
		s.submitDelay = d
	}
}

// WithExpandDelay 展开正文后的等待
func WithExpandDelay(d time.Duration) Option {
	return func(s *Session) {
		s.expandDelay = d
	}
}

// WithInputRetry 查找带编号输入框的重试次数和间隔（页面可能正在重新渲染）
func WithInputRetry(retries int, backoff time.Duration) Option {
	return func(s *Session) {
		s.findRetries = retries
		s.findBackoff = backoff
	}
}

// NewSession 创建页面会话
func NewSession(doc dom.Document, store configs.Store, bus *messaging.Bus, opts ...Option) *Session {
	s := &Session{
		doc:          doc,
		store:        store,
		bus:          bus,
		notifier:     LogNotifier{},
		tickInterval: DefaultTickInterval,
		submitDelay:  DefaultSubmitDelay,
		expandDelay:  DefaultExpandDelay,
		findRetries:  3,
		findBackoff:  200 * time.Millisecond,
		state:        StateIdle,
		nextID:       1,
		pending:      make(map[int64]struct{}),
		history:      NewHistory(),
		tracker:      NewTracker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify 显示页面提示
func (s *Session) Notify(ctx context.Context, message string, level Level) {
	s.notifier.Notify(ctx, message, level)
}

// SetFocusedInput 记录用户最后点击的评论输入框
func (s *Session) SetFocusedInput(el dom.Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = el
}

func (s *Session) focusedInput() dom.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}

// allocateID 分配单调递增的请求编号并写到输入框上
func (s *Session) allocateID(input dom.Element) (int64, error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.mu.Unlock()

	if err := input.SetAttr(commentIDAttr, strconv.FormatInt(id, 10)); err != nil {
		return 0, err
	}
	return id, nil
}

func taggedSelector(id int64) string {
	return `[` + commentIDAttr + `="` + strconv.FormatInt(id, 10) + `"]`
}

// TriggerManual 手动模式：为最后点击的输入框生成评论
func (s *Session) TriggerManual(ctx context.Context) error {
	input := s.focusedInput()
	if input == nil {
		s.Notify(ctx, "Please click on a comment input field first.", LevelError)
		return &ExtractionError{Reason: ReasonNoInput}
	}

	s.Notify(ctx, "Generating comment...", LevelInfo)
	id, err := s.PrepareManual(ctx, input)
	if err != nil {
		return err
	}
	logrus.WithField("comment_id", id).Info("手动触发评论生成")
	s.bus.Post(context.WithoutCancel(ctx), messaging.TriggerGeneration{CommentID: id})
	return nil
}

// PrepareManual 展开正文，等待渲染后给输入框分配编号
func (s *Session) PrepareManual(ctx context.Context, input dom.Element) (int64, error) {
	if ExpandCaption(input) {
		select {
		case <-time.After(s.expandDelay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	s.SetFocusedInput(input)
	return s.allocateID(input)
}

// FindCommentInput 页面上第一个评论输入框
func FindCommentInput(doc dom.Document) (dom.Element, error) {
	el, err := doc.Query(commentInputSelector)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, &ExtractionError{Reason: ReasonNoInput}
	}
	return el, nil
}

// RegisterHandlers 在消息通道上注册页面侧的处理器
func (s *Session) RegisterHandlers(bus *messaging.Bus) {
	bus.Handle(messaging.KindGetPostContext, func(ctx context.Context, req messaging.Request) (messaging.Response, error) {
		r := req.(messaging.GetPostContext)
		input := s.resolveInput(r.CommentID)
		pc, err := Extract(input)
		if err != nil {
			logrus.WithField("comment_id", r.CommentID).Warnf("提取帖子内容失败: %v", err)
			return messaging.Response{Error: err.Error()}, nil
		}
		return messaging.Response{Context: pc}, nil
	})

	bus.Handle(messaging.KindInsertComment, func(ctx context.Context, req messaging.Request) (messaging.Response, error) {
		r := req.(messaging.InsertComment)
		if err := s.Insert(ctx, r.Comment, r.CommentID); err != nil {
			logrus.WithField("comment_id", r.CommentID).Warnf("评论没有发布: %v", err)
			return messaging.Response{Error: err.Error()}, nil
		}
		s.Notify(ctx, "Comment generated successfully!", LevelSuccess)
		return messaging.Response{}, nil
	})

	bus.Handle(messaging.KindShowError, func(ctx context.Context, req messaging.Request) (messaging.Response, error) {
		msg := req.(messaging.ShowError).Message
		if msg == "" {
			msg = "Error generating comment"
		}
		s.Notify(ctx, msg, LevelError)
		return messaging.Response{}, nil
	})

	bus.Handle(messaging.KindLogAIVision, func(ctx context.Context, req messaging.Request) (messaging.Response, error) {
		r := req.(messaging.LogAIVision)
		logrus.WithField("on_topic", r.IsOnTopic).Infof("模型看到的内容: %s", r.Analysis)
		return messaging.Response{}, nil
	})

	bus.Handle(messaging.KindStartButler, func(ctx context.Context, req messaging.Request) (messaging.Response, error) {
		return messaging.Response{}, s.Start(ctx)
	})

	bus.Handle(messaging.KindStopButler, func(ctx context.Context, req messaging.Request) (messaging.Response, error) {
		return messaging.Response{}, s.Stop(ctx)
	})
}

// resolveInput 优先按编号找输入框，找不到时使用最后点击的输入框
func (s *Session) resolveInput(id int64) dom.Element {
	if el, err := s.doc.Query(taggedSelector(id)); err == nil && el != nil {
		return el
	}
	return s.focusedInput()
}
