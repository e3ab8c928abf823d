package messaging

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpzouying/instagram-butler/post"
)

func TestSendDispatchesByKind(t *testing.T) {
	bus := NewBus()
	bus.Handle(KindGetPostContext, func(ctx context.Context, req Request) (Response, error) {
		r := req.(GetPostContext)
		assert.Equal(t, int64(3), r.CommentID)
		return Response{Context: &post.Context{Caption: "hello"}}, nil
	})

	resp, err := bus.Send(context.Background(), GetPostContext{CommentID: 3})
	require.NoError(t, err)
	require.NotNil(t, resp.Context)
	assert.Equal(t, "hello", resp.Context.Caption)
}

func TestSendWithoutHandler(t *testing.T) {
	bus := NewBus()
	_, err := bus.Send(context.Background(), StartButler{})
	var me *MessagingError
	require.True(t, errors.As(err, &me))
	assert.ErrorIs(t, err, ErrNoHandler)
	assert.Equal(t, KindStartButler, me.Kind)
}

func TestClosedBusReportsOnce(t *testing.T) {
	var notified int32
	var handled int32
	bus := NewBus(WithDisconnectHandler(func(message string) {
		assert.Equal(t, RefreshMessage, message)
		atomic.AddInt32(&notified, 1)
	}))
	bus.Handle(KindTriggerGeneration, func(ctx context.Context, req Request) (Response, error) {
		atomic.AddInt32(&handled, 1)
		return Response{}, nil
	})

	bus.Close()
	assert.True(t, bus.Closed())

	for i := 0; i < 3; i++ {
		_, err := bus.Send(context.Background(), TriggerGeneration{CommentID: int64(i)})
		assert.ErrorIs(t, err, ErrChannelClosed)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&notified))
	assert.Equal(t, int32(0), atomic.LoadInt32(&handled))
}

func TestSendHonoursContext(t *testing.T) {
	bus := NewBus()
	release := make(chan struct{})
	defer close(release)
	bus.Handle(KindShowError, func(ctx context.Context, req Request) (Response, error) {
		<-release
		return Response{}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := bus.Send(ctx, ShowError{Message: "boom"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHandlerPanicBecomesError(t *testing.T) {
	bus := NewBus()
	bus.Handle(KindStopButler, func(ctx context.Context, req Request) (Response, error) {
		panic("boom")
	})
	_, err := bus.Send(context.Background(), StopButler{})
	assert.Error(t, err)
}
