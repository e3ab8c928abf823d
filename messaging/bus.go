// Package messaging 页面侧与后台侧之间的类型化异步消息通道
package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// RefreshMessage 通道失效时提示用户的文案
const RefreshMessage = "Extension was updated. Please refresh the page."

var (
	// ErrChannelClosed 通道已关闭（页面会话失效）
	ErrChannelClosed = errors.New("message channel closed")
	// ErrNoHandler 没有注册对应消息的处理器
	ErrNoHandler = errors.New("no handler registered")
)

// MessagingError 消息通道错误
type MessagingError struct {
	Kind Kind
	Err  error
}

func (e *MessagingError) Error() string {
	return fmt.Sprintf("messaging %s: %v", e.Kind, e.Err)
}

func (e *MessagingError) Unwrap() error {
	return e.Err
}

// Handler 处理一种消息
type Handler func(ctx context.Context, req Request) (Response, error)

// Bus 消息通道。每个请求都在独立 goroutine 中处理，调用方等待应答或 ctx 结束
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind]Handler
	closed   bool
	reported bool

	onDisconnect func(message string)
}

// Option Bus 配置
type Option func(*Bus)

// WithDisconnectHandler 通道失效后第一次发送时回调一次
func WithDisconnectHandler(fn func(message string)) Option {
	return func(b *Bus) {
		b.onDisconnect = fn
	}
}

// NewBus 创建消息通道
func NewBus(opts ...Option) *Bus {
	b := &Bus{handlers: make(map[Kind]Handler)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handle 注册处理器，重复注册会覆盖
func (b *Bus) Handle(kind Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = h
}

// Send 发送请求并等待应答
func (b *Bus) Send(ctx context.Context, req Request) (Response, error) {
	h, err := b.handler(req.Kind())
	if err != nil {
		return Response{}, err
	}

	type result struct {
		resp Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: errors.Errorf("handler %s panic: %v", req.Kind(), r)}
			}
		}()
		resp, err := h(ctx, req)
		done <- result{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Post 发送请求但不等待应答，错误只记录日志
func (b *Bus) Post(ctx context.Context, req Request) {
	go func() {
		if _, err := b.Send(ctx, req); err != nil {
			var me *MessagingError
			if errors.As(err, &me) && errors.Is(err, ErrChannelClosed) {
				return
			}
			logrus.WithError(err).Warnf("消息 %s 处理失败", req.Kind())
		}
	}()
}

// Close 关闭通道，之后的发送在本地直接失败
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Closed 通道是否已关闭
func (b *Bus) Closed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

func (b *Bus) handler(kind Kind) (Handler, error) {
	b.mu.Lock()
	if b.closed {
		first := !b.reported
		b.reported = true
		notify := b.onDisconnect
		b.mu.Unlock()

		if first {
			logrus.Warn("消息通道已失效，需要刷新页面")
			if notify != nil {
				notify(RefreshMessage)
			}
		}
		return nil, &MessagingError{Kind: kind, Err: ErrChannelClosed}
	}
	h := b.handlers[kind]
	b.mu.Unlock()

	if h == nil {
		return nil, &MessagingError{Kind: kind, Err: ErrNoHandler}
	}
	return h, nil
}
