// Package assistant 后台侧：收到生成请求后向页面要帖子内容、调用模型、把评论交回页面。
package assistant

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/instagram-butler/configs"
	"github.com/xpzouying/instagram-butler/llm"
	"github.com/xpzouying/instagram-butler/messaging"
	"github.com/xpzouying/instagram-butler/metrics"
	"github.com/xpzouying/instagram-butler/post"
)

const (
	missingKeyMessage = "Please configure your API key first."
	failedMessage     = "Failed to generate comment"
)

// Generator 评论生成
type Generator interface {
	Generate(ctx context.Context, s configs.Settings, pc *post.Context, mode llm.Mode) (string, bool, error)
}

// Service 处理 triggerGeneration
type Service struct {
	store   configs.Store
	bus     *messaging.Bus
	gen     Generator
	metrics *metrics.Collector
}

// NewService 创建后台服务
func NewService(store configs.Store, bus *messaging.Bus, gen Generator, m *metrics.Collector) *Service {
	return &Service{store: store, bus: bus, gen: gen, metrics: m}
}

// Register 注册到消息通道
func (s *Service) Register() {
	s.bus.Handle(messaging.KindTriggerGeneration, func(ctx context.Context, req messaging.Request) (messaging.Response, error) {
		_, err := s.HandleTrigger(ctx, req.(messaging.TriggerGeneration))
		return messaging.Response{}, err
	})
}

// VisionLogger 把主题判定的描述转发给页面侧记录
func VisionLogger(bus *messaging.Bus) llm.ClassificationHook {
	return func(analysis string, onTopic bool) {
		bus.Post(context.Background(), messaging.LogAIVision{Analysis: analysis, IsOnTopic: onTopic})
	}
}

// HandleTrigger 完成一次生成往返，返回已交给页面插入的评论；模型放弃时返回空串
func (s *Service) HandleTrigger(ctx context.Context, req messaging.TriggerGeneration) (string, error) {
	mode := llm.ModeManual
	if req.ButlerMode {
		mode = llm.ModeButler
	}
	log := logrus.WithFields(logrus.Fields{
		"trace_id":   uuid.NewString(),
		"comment_id": req.CommentID,
		"mode":       mode.String(),
	})

	settings, err := s.store.Load(ctx)
	if err != nil {
		return "", errors.Wrap(err, "load settings")
	}
	log.Debugf("读取配置, 是否有 API key: %v", settings.APIKey != "")
	if settings.APIKey == "" {
		s.showError(ctx, missingKeyMessage)
		s.metrics.Generation("error")
		return "", &llm.GenerationError{Kind: llm.ErrKindNoAPIKey, Message: missingKeyMessage}
	}

	log.Debug("向页面请求帖子内容")
	resp, err := s.bus.Send(ctx, messaging.GetPostContext{CommentID: req.CommentID})
	if err != nil {
		return "", err
	}
	if resp.Error != "" || resp.Context == nil {
		msg := resp.Error
		if msg == "" {
			msg = "No post context"
		}
		log.Warnf("获取帖子内容失败: %s", msg)
		s.showError(ctx, msg)
		return "", errors.New(msg)
	}

	pc := resp.Context
	log.WithFields(logrus.Fields{
		"caption":   pc.Summary(),
		"has_image": pc.HasImage,
		"hashtags":  pc.Hashtags,
	}).Info("帖子内容")

	comment, ok, err := s.gen.Generate(ctx, settings, pc, mode)
	if err != nil {
		log.Errorf("生成评论失败: %v", err)
		s.metrics.Generation("error")
		s.showError(ctx, errorMessage(err))
		return "", err
	}
	if !ok {
		log.Info("没有生成评论")
		s.metrics.Generation("skip")
		return "", nil
	}
	s.metrics.Generation("ok")
	log.Infof("生成评论: %q", comment)

	ins, err := s.bus.Send(ctx, messaging.InsertComment{Comment: comment, CommentID: req.CommentID})
	if err != nil {
		return comment, err
	}
	if ins.Error != "" {
		return comment, errors.New(ins.Error)
	}
	return comment, nil
}

func (s *Service) showError(ctx context.Context, message string) {
	if _, err := s.bus.Send(ctx, messaging.ShowError{Message: message}); err != nil {
		logrus.Warnf("无法显示错误提示: %v", err)
	}
}

func errorMessage(err error) string {
	var genErr *llm.GenerationError
	if errors.As(err, &genErr) && genErr.Message != "" {
		return failedMessage + ": " + genErr.Message
	}
	return failedMessage + ". Check logs for details."
}
