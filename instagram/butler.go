package instagram

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/instagram-butler/configs"
	"github.com/xpzouying/instagram-butler/dom"
	"github.com/xpzouying/instagram-butler/messaging"
)

// State 管家模式状态
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateStopped   State = "stopped"
	StateCompleted State = "completed"
)

// Status 管家模式运行状态
type Status struct {
	State         State `json:"state"`
	ActionsCount  int   `json:"actions_count"`
	CommentsCount int   `json:"comments_count"`
	MaxActions    int   `json:"max_actions"`
	MaxComments   int   `json:"max_comments"`
	Pending       int   `json:"pending"`
	Reserved      int   `json:"reserved_comments"`
	Commented     int   `json:"commented_posts"`
}

// Status 当前状态
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:         s.state,
		ActionsCount:  s.actionsCount,
		CommentsCount: s.commentsCount,
		MaxActions:    s.maxActions,
		MaxComments:   s.maxComments,
		Pending:       len(s.pending),
		Reserved:      s.reservedComments,
		Commented:     s.tracker.Len(),
	}
}

// Start 启动管家模式：读取上限、重置计数，然后按固定间隔扫描
func (s *Session) Start(ctx context.Context) error {
	settings, err := s.store.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.maxActions, s.maxComments = settings.Caps()
	s.ownUsername = strings.ToLower(strings.TrimSpace(settings.OwnUsername))
	s.actionsCount = 0
	s.commentsCount = 0
	s.state = StateRunning
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	maxActions, maxComments := s.maxActions, s.maxComments
	s.mu.Unlock()

	if err := s.store.SetButlerEnabled(ctx, true); err != nil {
		logrus.Warnf("保存运行状态失败: %v", err)
	}
	s.metrics.SetRunning(true)
	logrus.Infof("管家模式启动, 动作上限: %d, 评论上限: %d", maxActions, maxComments)

	go s.loop(context.WithoutCancel(ctx), stopCh)
	return nil
}

// Resume 页面会话开始时，如果上次没有停止则自动启动
func (s *Session) Resume(ctx context.Context) error {
	settings, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if !settings.ButlerEnabled {
		return nil
	}
	logrus.Info("恢复上次未停止的管家模式")
	return s.Start(ctx)
}

// Stop 停止管家模式并保存"未运行"标记
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	wasRunning := s.halt(StateStopped)
	s.mu.Unlock()

	if wasRunning {
		logrus.Info("管家模式停止")
	}
	return s.persistStopped(ctx)
}

// Close 页面会话结束
func (s *Session) Close() {
	s.mu.Lock()
	s.halt(StateCompleted)
	s.mu.Unlock()
}

// halt 需持有 s.mu
func (s *Session) halt(next State) bool {
	if s.state != StateRunning {
		return false
	}
	s.state = next
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
	s.metrics.SetRunning(false)
	return true
}

func (s *Session) persistStopped(ctx context.Context) error {
	if err := s.store.SetButlerEnabled(ctx, false); err != nil {
		logrus.Warnf("保存停止状态失败: %v", err)
		return err
	}
	return nil
}

func (s *Session) loop(ctx context.Context, stopCh <-chan struct{}) {
	interval := s.tickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			s.Close()
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// capReached 达到动作上限时停止，需持有 s.mu
func (s *Session) capReached() bool {
	return s.actionsCount >= s.maxActions
}

// Tick 一次扫描：滚动一屏，按文档顺序处理当前渲染的帖子
func (s *Session) Tick(ctx context.Context) {
	if s.stopIfCapped(ctx) {
		return
	}

	if h, err := s.doc.ViewportHeight(); err == nil {
		if err := s.doc.ScrollBy(h); err != nil {
			logrus.Debugf("滚动失败: %v", err)
		}
	}

	articles, err := s.doc.QueryAll(feedContainerSelector)
	if err != nil {
		logrus.Warnf("查找帖子失败: %v", err)
		return
	}

	for _, article := range articles {
		if s.stopIfCapped(ctx) {
			return
		}
		s.tryLike(ctx, article)

		if s.stopIfCapped(ctx) {
			return
		}
		s.tryFollow(ctx, article)

		s.tryComment(ctx, article)
	}
}

// stopIfCapped 没在运行或达到上限时返回 true
func (s *Session) stopIfCapped(ctx context.Context) bool {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return true
	}
	if !s.capReached() {
		s.mu.Unlock()
		return false
	}
	s.halt(StateStopped)
	actions := s.actionsCount
	s.mu.Unlock()

	logrus.Infof("已达到动作上限 %d，管家模式停止", actions)
	_ = s.persistStopped(ctx)
	return true
}

func (s *Session) tryLike(ctx context.Context, article dom.Element) {
	icon, err := article.Query(likeSelector)
	if err != nil || icon == nil {
		return
	}
	if s.isOwnPost(article) {
		logrus.Debug("自己的帖子，不点赞")
		return
	}
	button, err := icon.Parent()
	if err != nil || button == nil {
		return
	}
	if err := button.Click(); err != nil {
		logrus.Warnf("点赞失败: %v", err)
		return
	}

	s.countAction()
	s.metrics.Action("like")
	s.persistStats(ctx, func(st *configs.Stats) { st.Likes++ })
	logrus.Info("点赞了一个帖子")
}

func (s *Session) tryFollow(ctx context.Context, article dom.Element) {
	button, err := dom.FindByText(article, buttonSelector, followLabel)
	if err != nil || button == nil {
		return
	}
	logrus.Debug("关注不检查是否是自己的帖子")
	if err := button.Click(); err != nil {
		logrus.Warnf("关注失败: %v", err)
		return
	}

	s.countAction()
	s.metrics.Action("follow")
	s.persistStats(ctx, func(st *configs.Stats) { st.Follows++ })
	logrus.Info("关注了一个用户")
}

// tryComment 满足条件时给输入框分配编号并请求后台生成评论，不等待结果
func (s *Session) tryComment(ctx context.Context, article dom.Element) {
	if !s.commentSlotFree() {
		return
	}

	el, err := article.Query(commentInputSelector)
	if err != nil || el == nil {
		return
	}
	input := newCommentInput(el)
	if !input.IsEmpty() || el.HasAttr(commentIDAttr) {
		return
	}
	if s.isOwnPost(article) {
		return
	}
	if id, ok := ComputeIdentity(article); ok {
		s.mu.Lock()
		acted := s.tracker.HasAlreadyActed(id)
		s.mu.Unlock()
		if acted {
			return
		}
	}
	// 不做第一个评论的人
	if !hasExistingComments(article) {
		return
	}

	if !s.reserveComment() {
		return
	}
	id, err := s.allocateID(el)
	if err != nil {
		s.releaseComment()
		logrus.Warnf("标记输入框失败: %v", err)
		return
	}
	s.SetFocusedInput(el)
	logrus.WithField("comment_id", id).Info("请求生成评论")

	go func() {
		defer s.releaseComment()
		_, err := s.bus.Send(ctx, messaging.TriggerGeneration{CommentID: id, ButlerMode: true})
		if err != nil && !errors.Is(err, messaging.ErrChannelClosed) {
			logrus.WithError(err).WithField("comment_id", id).Warn("生成评论请求失败")
		}
	}()
}

// commentSlotFree 已发布和进行中的评论都算入上限
func (s *Session) commentSlotFree() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commentsCount+s.reservedComments < s.maxComments
}

// reserveComment 占用一个评论名额，请求结束（发布、跳过或失败）后由 releaseComment 归还
func (s *Session) reserveComment() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commentsCount+s.reservedComments >= s.maxComments {
		return false
	}
	s.reservedComments++
	return true
}

func (s *Session) releaseComment() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reservedComments > 0 {
		s.reservedComments--
	}
}

func (s *Session) countAction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actionsCount++
}

func (s *Session) persistStats(ctx context.Context, fn func(*configs.Stats)) {
	if err := s.store.UpdateStats(ctx, fn); err != nil {
		logrus.Warnf("保存统计失败: %v", err)
	}
}

// isOwnPost 帖子作者是否是自己，没有配置用户名时总是 false
func (s *Session) isOwnPost(article dom.Element) bool {
	s.mu.Lock()
	own := s.ownUsername
	s.mu.Unlock()
	if own == "" {
		return false
	}
	return strings.EqualFold(postAuthor(article), own)
}

// postAuthor 帖子头部第一个个人主页链接中的用户名
func postAuthor(article dom.Element) string {
	links, err := article.QueryAll(authorSelector)
	if err != nil {
		return ""
	}
	for _, a := range links {
		u, err := url.Parse(a.Attr("href"))
		if err != nil {
			continue
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 1 && parts[0] != "" {
			return parts[0]
		}
	}
	return ""
}

var commentCountPattern = regexp.MustCompile(`(?i)^view (all )?[\d,.]+[km]? comments?$`)

// hasExistingComments 帖子下是否已经有评论
func hasExistingComments(article dom.Element) bool {
	if items, err := article.QueryAll("ul li"); err == nil && len(items) > 1 {
		return true
	}
	elems, err := article.QueryAll(commentCountSelector)
	if err != nil {
		return false
	}
	for _, el := range elems {
		if commentCountPattern.MatchString(strings.TrimSpace(el.Text())) {
			return true
		}
	}
	return false
}
