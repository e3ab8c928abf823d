package main

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/xpzouying/instagram-butler/browser"
	"github.com/xpzouying/instagram-butler/configs"
	"github.com/xpzouying/instagram-butler/dom"
	"github.com/xpzouying/instagram-butler/instagram"
	"github.com/xpzouying/instagram-butler/llm"
	"github.com/xpzouying/instagram-butler/messaging"
	"github.com/xpzouying/instagram-butler/metrics"
	"github.com/xpzouying/instagram-butler/post"
	"github.com/xpzouying/instagram-butler/runner"
)

const feedURL = "https://www.instagram.com/"

var errBrowserBusy = errors.New("butler is running on the browser, stop it first")

// ButlerService 业务服务层：管理浏览器中的页面会话，给 HTTP 和 MCP 共用
type ButlerService struct {
	store    configs.Store
	metrics  *metrics.Collector
	browsers *browser.Manager
	llmOpts  []llm.Option

	mu   sync.Mutex
	feed *pageSession
}

// NewButlerService 创建服务。browsers 为 nil 时只能使用离线能力（提取、配置）
func NewButlerService(store configs.Store, browsers *browser.Manager, m *metrics.Collector, llmOpts ...llm.Option) *ButlerService {
	return &ButlerService{
		store:    store,
		metrics:  m,
		browsers: browsers,
		llmOpts:  llmOpts,
	}
}

// pageSession 页面会话和它占用的浏览器
type pageSession struct {
	*runner.Page
	release func()
}

func (p *pageSession) close() {
	p.Close()
	p.release()
}

func (s *ButlerService) openSession(ctx context.Context, url string) (*pageSession, error) {
	if s.browsers == nil {
		return nil, errors.New("browser is not available")
	}

	page, release := s.browsers.NewPageWithRelease()
	p, err := runner.Open(ctx, page, url, runner.Deps{
		Store:      s.store,
		Metrics:    s.metrics,
		LLMOptions: s.llmOpts,
	})
	if err != nil {
		release()
		return nil, err
	}
	return &pageSession{Page: p, release: release}, nil
}

// ensureFeed 需持有 s.mu
func (s *ButlerService) ensureFeed(ctx context.Context) (*pageSession, error) {
	if s.feed != nil {
		return s.feed, nil
	}
	ps, err := s.openSession(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	s.feed = ps
	return ps, nil
}

// StartButler 打开信息流并启动管家模式
func (s *ButlerService) StartButler(ctx context.Context) (instagram.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, err := s.ensureFeed(ctx)
	if err != nil {
		return instagram.Status{}, err
	}
	if err := ps.Session.Start(ctx); err != nil {
		return ps.Session.Status(), err
	}
	return ps.Session.Status(), nil
}

// StopButler 停止管家模式，页面保持打开以便手动触发
func (s *ButlerService) StopButler(ctx context.Context) (instagram.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.feed == nil {
		return instagram.Status{State: instagram.StateIdle}, s.store.SetButlerEnabled(ctx, false)
	}
	if err := s.feed.Session.Stop(ctx); err != nil {
		return s.feed.Session.Status(), err
	}
	return s.feed.Session.Status(), nil
}

// ResumeIfEnabled 启动时恢复上次未停止的管家模式
func (s *ButlerService) ResumeIfEnabled(ctx context.Context) error {
	settings, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if !settings.ButlerEnabled || s.browsers == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.ensureFeed(ctx)
	if err != nil {
		return err
	}
	return ps.Session.Resume(ctx)
}

// ButlerStatusResponse 管家模式状态和累计统计
type ButlerStatusResponse struct {
	instagram.Status
	Enabled bool          `json:"enabled"`
	Stats   configs.Stats `json:"stats"`
}

// ButlerStatus 查询状态
func (s *ButlerService) ButlerStatus(ctx context.Context) (*ButlerStatusResponse, error) {
	settings, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	resp := &ButlerStatusResponse{
		Status:  instagram.Status{State: instagram.StateIdle},
		Enabled: settings.ButlerEnabled,
		Stats:   settings.Stats,
	}
	s.mu.Lock()
	if s.feed != nil {
		resp.Status = s.feed.Session.Status()
	}
	s.mu.Unlock()
	return resp, nil
}

// GenerateCommentResponse 单次生成结果
type GenerateCommentResponse struct {
	PostURL string `json:"post_url"`
	Comment string `json:"comment"`
	Skipped bool   `json:"skipped"`
}

// GenerateComment 打开帖子页面，生成评论并发布
func (s *ButlerService) GenerateComment(ctx context.Context, postURL string) (*GenerateCommentResponse, error) {
	if !strings.HasPrefix(postURL, "https://www.instagram.com/") {
		return nil, errors.Errorf("not an instagram post url: %s", postURL)
	}

	s.mu.Lock()
	if s.feed != nil {
		if s.feed.Session.Status().State == instagram.StateRunning {
			s.mu.Unlock()
			return nil, errBrowserBusy
		}
		s.feed.close()
		s.feed = nil
	}
	s.mu.Unlock()

	ps, err := s.openSession(ctx, postURL)
	if err != nil {
		return nil, err
	}
	defer ps.close()

	input, err := instagram.FindCommentInput(ps.Doc)
	if err != nil {
		return nil, err
	}
	id, err := ps.Session.PrepareManual(ctx, input)
	if err != nil {
		return nil, err
	}

	comment, err := ps.Assistant.HandleTrigger(ctx, messaging.TriggerGeneration{CommentID: id})
	if err != nil {
		return nil, err
	}
	return &GenerateCommentResponse{PostURL: postURL, Comment: comment, Skipped: comment == ""}, nil
}

// ExtractHTML 对保存下来的页面 HTML 运行内容提取
func (s *ButlerService) ExtractHTML(ctx context.Context, html string) (*post.Context, error) {
	doc, err := dom.ParseString(html)
	if err != nil {
		return nil, err
	}
	return instagram.ExtractDocument(doc)
}

// GetSettings 读取配置，API key 打码
func (s *ButlerService) GetSettings(ctx context.Context) (configs.Settings, error) {
	settings, err := s.store.Load(ctx)
	if err != nil {
		return configs.Settings{}, err
	}
	settings.APIKey = maskKey(settings.APIKey)
	return settings, nil
}

// UpdateSettings 保存配置。统计和运行标记由核心维护，这里保持原值；
// api_key 为空或是打码后的值时保留原来的 key
func (s *ButlerService) UpdateSettings(ctx context.Context, in configs.Settings) (configs.Settings, error) {
	current, err := s.store.Load(ctx)
	if err != nil {
		return configs.Settings{}, err
	}
	in.Stats = current.Stats
	in.ButlerEnabled = current.ButlerEnabled
	if in.APIKey == "" || strings.Contains(in.APIKey, "****") {
		in.APIKey = current.APIKey
	}
	if err := s.store.Save(ctx, in); err != nil {
		return configs.Settings{}, err
	}
	in.APIKey = maskKey(in.APIKey)
	return in, nil
}

// Close 关闭页面会话
func (s *ButlerService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feed != nil {
		s.feed.close()
		s.feed = nil
	}
}

func maskKey(key string) string {
	if len(key) <= 8 {
		if key == "" {
			return ""
		}
		return "****"
	}
	return key[:3] + "****" + key[len(key)-4:]
}
