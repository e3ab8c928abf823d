package instagram

import (
	"context"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/instagram-butler/configs"
	"github.com/xpzouying/instagram-butler/dom"
)

var errInputNotFound = errors.New("tagged input not found")

// Insert 把评论写入带编号的输入框并发布。
//
// 同一编号只允许一个插入在进行；与最近评论太像时放弃并提示用户。
// 发布按钮只点击一次，找不到时放弃本次评论，不重试。
func (s *Session) Insert(ctx context.Context, comment string, id int64) error {
	log := logrus.WithField("comment_id", id)

	s.mu.Lock()
	if _, ok := s.pending[id]; ok {
		s.mu.Unlock()
		s.metrics.Rejection("duplicate")
		log.Debug("评论已经在插入中，忽略重复请求")
		return ErrDuplicateRequest
	}
	if score := s.history.MostSimilar(comment); score > SimilarityThreshold {
		s.mu.Unlock()
		s.metrics.Rejection("similar")
		log.Infof("评论与最近的评论太像 (%.2f)，放弃: %q", score, comment)
		s.Notify(ctx, "Generated comment was too similar to a recent one. Skipped.", LevelError)
		return &SimilarityRejection{Comment: comment, Score: score}
	}
	s.pending[id] = struct{}{}
	s.metrics.SetPending(len(s.pending))
	s.mu.Unlock()

	input, err := s.findTaggedInput(ctx, id)
	if err != nil {
		s.clearPending(id)
		s.metrics.Rejection("no_input")
		log.Warnf("找不到评论输入框: %v", err)
		return &ExtractionError{Reason: ReasonNoInput}
	}

	container, _ := FindContainer(input)
	identity, identified := ComputeIdentity(container)
	if identified {
		s.mu.Lock()
		acted := s.tracker.HasAlreadyActed(identity)
		s.mu.Unlock()
		if acted {
			s.clearPending(id)
			s.metrics.Rejection("already_acted")
			log.WithField("post", identity).Info("帖子已经评论过，跳过")
			return ErrAlreadyActed
		}
	}

	if err := fillInput(newCommentInput(input), comment); err != nil {
		s.clearPending(id)
		return errors.Wrap(err, "fill comment input")
	}

	select {
	case <-time.After(s.submitDelay):
	case <-ctx.Done():
		s.clearPending(id)
		return ctx.Err()
	}

	button := findSubmitControl(s.doc, input, container)
	if button == nil {
		s.clearPending(id)
		s.metrics.Rejection("no_submit")
		log.Warn("找不到发布按钮，放弃本次评论")
		return ErrNoSubmitControl
	}
	if err := button.Click(); err != nil {
		s.clearPending(id)
		return errors.Wrap(err, "click submit")
	}

	s.mu.Lock()
	s.history.Track(comment)
	if identified {
		s.tracker.MarkActed(identity)
	}
	delete(s.pending, id)
	s.metrics.SetPending(len(s.pending))
	s.commentsCount++
	s.actionsCount++
	s.mu.Unlock()

	if err := input.RemoveAttr(commentIDAttr); err != nil {
		log.Debugf("清除输入框编号失败: %v", err)
	}
	s.metrics.Action("comment")
	s.persistStats(ctx, func(st *configs.Stats) { st.Comments++ })

	log.WithField("post", identity).Infof("已发布评论: %q", comment)
	return nil
}

func (s *Session) clearPending(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
	s.metrics.SetPending(len(s.pending))
}

// PendingCount 进行中的插入数量
func (s *Session) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// findTaggedInput 页面可能在重新渲染，找不到时按退避重试几次
func (s *Session) findTaggedInput(ctx context.Context, id int64) (dom.Element, error) {
	policy := retrypolicy.NewBuilder[dom.Element]().
		HandleErrors(errInputNotFound).
		WithBackoff(s.findBackoff, 4*s.findBackoff).
		WithMaxRetries(s.findRetries).
		Build()

	return failsafe.With[dom.Element](policy).WithContext(ctx).Get(func() (dom.Element, error) {
		el, err := s.doc.Query(taggedSelector(id))
		if err != nil {
			return nil, err
		}
		if el == nil {
			return nil, errInputNotFound
		}
		return el, nil
	})
}

// findSubmitControl 先在帖子内按文字精确匹配发布按钮，再在输入框所在表单内查找
func findSubmitControl(doc dom.Document, input, container dom.Element) dom.Element {
	if container != nil {
		if btn, err := dom.FindByText(container, submitSelector, submitLabel); err == nil && btn != nil {
			return btn
		}
	} else if btn, err := dom.FindByText(doc, submitSelector, submitLabel); err == nil && btn != nil {
		return btn
	}

	form, err := input.Closest("form")
	if err != nil || form == nil {
		return nil
	}
	if btn, err := form.Query(`button[type="submit"]`); err == nil && btn != nil {
		return btn
	}
	if btn, err := dom.FindByText(form, submitSelector, submitLabel); err == nil && btn != nil {
		return btn
	}
	return nil
}
