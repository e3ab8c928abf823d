package instagram

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpzouying/instagram-butler/configs"
	"github.com/xpzouying/instagram-butler/messaging"
)

const likeFeed = `<html><body>
<article><header><a href="/amy/">amy</a></header><section><div role="button"><svg aria-label="Like"></svg></div></section></article>
<article><header><a href="/ben/">ben</a></header><section><div role="button"><svg aria-label="Like"></svg></div></section></article>
<article><header><a href="/cat/">cat</a></header><section><div role="button"><svg aria-label="Like"></svg></div></section></article>
</body></html>`

func TestButlerStopsAtActionCap(t *testing.T) {
	ctx := context.Background()
	doc := parse(t, likeFeed)
	store := configs.NewMemoryStore(configs.Settings{MaxActions: 2})
	s := newTestSession(doc, store, messaging.NewBus())

	require.NoError(t, s.Start(ctx))
	assert.Equal(t, StateRunning, s.Status().State)

	s.Tick(ctx)
	assert.Equal(t, 2, doc.TotalClicks())
	assert.Equal(t, StateStopped, s.Status().State)
	assert.Equal(t, 2, s.Status().ActionsCount)

	s.Tick(ctx)
	assert.Equal(t, 2, doc.TotalClicks())

	settings, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, settings.ButlerEnabled)
	assert.Equal(t, 2, settings.Stats.Likes)
}

func TestButlerScrollsOneScreenPerTick(t *testing.T) {
	ctx := context.Background()
	doc := parse(t, `<html><body></body></html>`)
	s := newTestSession(doc, configs.NewMemoryStore(configs.Settings{}), messaging.NewBus())

	require.NoError(t, s.Start(ctx))
	s.Tick(ctx)
	s.Tick(ctx)
	assert.Equal(t, float64(1800), doc.ScrollY())
	require.NoError(t, s.Stop(ctx))
}

func TestButlerStartResetsCounters(t *testing.T) {
	ctx := context.Background()
	doc := parse(t, likeFeed)
	store := configs.NewMemoryStore(configs.Settings{MaxActions: 1, MaxComments: 3})
	s := newTestSession(doc, store, messaging.NewBus())

	require.NoError(t, s.Start(ctx))
	assert.ErrorIs(t, s.Start(ctx), ErrAlreadyRunning)
	s.Tick(ctx)
	assert.Equal(t, StateStopped, s.Status().State)

	require.NoError(t, s.Start(ctx))
	status := s.Status()
	assert.Equal(t, StateRunning, status.State)
	assert.Equal(t, 0, status.ActionsCount)
	assert.Equal(t, 1, status.MaxActions)
	assert.Equal(t, 3, status.MaxComments)

	settings, _ := store.Load(ctx)
	assert.True(t, settings.ButlerEnabled)

	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, StateStopped, s.Status().State)
	settings, _ = store.Load(ctx)
	assert.False(t, settings.ButlerEnabled)
}

func TestButlerResume(t *testing.T) {
	ctx := context.Background()
	doc := parse(t, likeFeed)

	idle := newTestSession(doc, configs.NewMemoryStore(configs.Settings{}), messaging.NewBus())
	require.NoError(t, idle.Resume(ctx))
	assert.Equal(t, StateIdle, idle.Status().State)

	resumedStore := configs.NewMemoryStore(configs.Settings{ButlerEnabled: true})
	resumed := newTestSession(doc, resumedStore, messaging.NewBus())
	require.NoError(t, resumed.Resume(ctx))
	assert.Equal(t, StateRunning, resumed.Status().State)
	resumed.Close()
	assert.Equal(t, StateCompleted, resumed.Status().State)

	// 页面关闭不清除运行标记，下一个页面会话会自动恢复
	settings, err := resumedStore.Load(ctx)
	require.NoError(t, err)
	assert.True(t, settings.ButlerEnabled)
}

const commentFeed = `<html><body>
<article id="mine">
  <header><a href="/me/">me</a></header>
  <a href="/p/MINE1/">1h</a>
  <a href="/p/MINE1/comments/">View all 4 comments</a>
  <form><textarea placeholder="Add a comment…"></textarea></form>
</article>
<article id="fresh">
  <header><a href="/zoe/">zoe</a></header>
  <a href="/p/FRESH1/">1h</a>
  <form><textarea placeholder="Add a comment…"></textarea></form>
</article>
<article id="busy">
  <header><a href="/yan/">yan</a></header>
  <a href="/p/BUSY1/">2h</a>
  <a href="/p/BUSY1/comments/">View all 12 comments</a>
  <form><textarea placeholder="Add a comment…"></textarea></form>
</article>
<article id="typed">
  <header><a href="/xia/">xia</a></header>
  <a href="/p/TYPED1/">2h</a>
  <a href="/p/TYPED1/comments/">View all 2 comments</a>
  <form><textarea placeholder="Add a comment…">half written</textarea></form>
</article>
</body></html>`

func TestButlerDispatchesCommentRequests(t *testing.T) {
	ctx := context.Background()
	doc := parse(t, commentFeed)

	triggered := make(chan messaging.TriggerGeneration, 4)
	bus := messaging.NewBus()
	bus.Handle(messaging.KindTriggerGeneration, func(ctx context.Context, req messaging.Request) (messaging.Response, error) {
		triggered <- req.(messaging.TriggerGeneration)
		return messaging.Response{}, nil
	})

	store := configs.NewMemoryStore(configs.Settings{OwnUsername: "Me"})
	s := newTestSession(doc, store, bus)
	require.NoError(t, s.Start(ctx))
	defer s.Stop(ctx)

	s.Tick(ctx)

	select {
	case req := <-triggered:
		assert.True(t, req.ButlerMode)
		assert.Equal(t, int64(1), req.CommentID)
	case <-time.After(time.Second):
		t.Fatal("no generation request")
	}
	select {
	case req := <-triggered:
		t.Fatalf("unexpected request %+v", req)
	case <-time.After(50 * time.Millisecond):
	}

	assert.Equal(t, "1", query(t, doc, "#busy textarea").Attr(commentIDAttr))
	for _, id := range []string{"#mine", "#fresh", "#typed"} {
		assert.False(t, query(t, doc, id+" textarea").HasAttr(commentIDAttr), id)
	}

	// 已经带编号的输入框下一轮不会重复请求
	s.Tick(ctx)
	select {
	case req := <-triggered:
		t.Fatalf("unexpected request %+v", req)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestButlerSkipsOwnPostForLike(t *testing.T) {
	ctx := context.Background()
	doc := parse(t, `<html><body>
<article><header><a href="/me/">me</a></header><section><div role="button" id="like"><svg aria-label="Like"></svg></div></section>
  <div role="button" id="follow">Follow</div></article>
</body></html>`)
	store := configs.NewMemoryStore(configs.Settings{OwnUsername: "me"})
	s := newTestSession(doc, store, messaging.NewBus())

	require.NoError(t, s.Start(ctx))
	defer s.Stop(ctx)
	s.Tick(ctx)

	assert.Equal(t, 0, doc.ClickCount(query(t, doc, "#like")))
	// 关注没有自己帖子的检查
	assert.Equal(t, 1, doc.ClickCount(query(t, doc, "#follow")))

	settings, _ := store.Load(ctx)
	assert.Equal(t, configs.Stats{Follows: 1}, settings.Stats)
}

const busyFeed = `<html><body>
<article id="a1">
  <header><a href="/amy/">amy</a></header>
  <a href="/p/BUSYA/">2h</a>
  <a href="/p/BUSYA/comments/">View all 3 comments</a>
  <form><textarea placeholder="Add a comment…"></textarea><div role="button">Post</div></form>
</article>
<article id="a2">
  <header><a href="/ben/">ben</a></header>
  <a href="/p/BUSYB/">3h</a>
  <a href="/p/BUSYB/comments/">View all 3 comments</a>
  <form><textarea placeholder="Add a comment…"></textarea><div role="button">Post</div></form>
</article>
<article id="a3">
  <header><a href="/cat/">cat</a></header>
  <a href="/p/BUSYC/">4h</a>
  <a href="/p/BUSYC/comments/">View all 3 comments</a>
  <form><textarea placeholder="Add a comment…"></textarea><div role="button">Post</div></form>
</article>
</body></html>`

func TestButlerCommentCapCountsInFlightRequests(t *testing.T) {
	ctx := context.Background()
	doc := parse(t, busyFeed)
	bus := messaging.NewBus()
	store := configs.NewMemoryStore(configs.Settings{MaxComments: 1})
	s := newTestSession(doc, store, bus)

	replies := map[int64]string{
		1: "Those colors are unreal",
		2: "Saving this trail for later",
		3: "What lens did you shoot with",
	}
	bus.Handle(messaging.KindTriggerGeneration, func(ctx context.Context, req messaging.Request) (messaging.Response, error) {
		id := req.(messaging.TriggerGeneration).CommentID
		return messaging.Response{}, s.Insert(ctx, replies[id], id)
	})

	require.NoError(t, s.Start(ctx))
	defer s.Stop(ctx)

	s.Tick(ctx)
	require.Eventually(t, func() bool {
		st := s.Status()
		return st.CommentsCount == 1 && st.Reserved == 0
	}, time.Second, 5*time.Millisecond)

	s.Tick(ctx)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, doc.TotalClicks())
	assert.Equal(t, 1, s.Status().CommentsCount)
	assert.Equal(t, 0, s.Status().Reserved)
}

func TestButlerReleasesSlotAfterSkip(t *testing.T) {
	ctx := context.Background()
	doc := parse(t, busyFeed)
	bus := messaging.NewBus()

	triggered := make(chan int64, 4)
	unblock := make(chan struct{})
	bus.Handle(messaging.KindTriggerGeneration, func(ctx context.Context, req messaging.Request) (messaging.Response, error) {
		triggered <- req.(messaging.TriggerGeneration).CommentID
		<-unblock
		// 内容不合适，不插入
		return messaging.Response{}, nil
	})

	s := newTestSession(doc, configs.NewMemoryStore(configs.Settings{MaxComments: 1}), bus)
	require.NoError(t, s.Start(ctx))
	defer s.Stop(ctx)

	s.Tick(ctx)
	select {
	case id := <-triggered:
		assert.Equal(t, int64(1), id)
	case <-time.After(time.Second):
		t.Fatal("no generation request")
	}
	assert.Equal(t, 1, s.Status().Reserved)
	assert.False(t, query(t, doc, "#a2 textarea").HasAttr(commentIDAttr))

	close(unblock)
	require.Eventually(t, func() bool { return s.Status().Reserved == 0 }, time.Second, 5*time.Millisecond)

	s.Tick(ctx)
	select {
	case id := <-triggered:
		assert.Equal(t, int64(2), id)
	case <-time.After(time.Second):
		t.Fatal("slot was not released")
	}
	assert.Equal(t, "2", query(t, doc, "#a2 textarea").Attr(commentIDAttr))
	assert.Equal(t, 0, s.Status().CommentsCount)
}
