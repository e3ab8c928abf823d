// Package llm 调用生成式接口为帖子生成评论，管家模式下先做主题判定。
//
// 接口兼容 OpenAI chat completions，有图片时发送低精度的多模态请求。
package llm

import (
	"context"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/instagram-butler/configs"
	"github.com/xpzouying/instagram-butler/post"
)

// Mode 触发方式
type Mode int

const (
	// ModeManual 用户手动触发
	ModeManual Mode = iota
	// ModeButler 管家模式自动触发，生成前先做主题判定
	ModeButler
)

func (m Mode) String() string {
	if m == ModeButler {
		return "butler"
	}
	return "manual"
}

const (
	generationMaxTokens   = 100
	generationTemperature = 0.8

	// 判定偏向确定性，生成偏向多样性
	gateMaxTokens   = 300
	gateTemperature = 0.2

	gateSystemPrompt = "You are a careful content classifier for social media posts. Describe what you observe, then answer with the exact result line requested."
)

// ClassificationHook 主题判定完成后的回调
type ClassificationHook func(analysis string, onTopic bool)

// Client 生成客户端，本身不保存任何跟踪状态
type Client struct {
	httpClient *http.Client
	baseURL    string
	onClassify ClassificationHook
}

// Option 客户端配置
type Option func(*Client)

// WithHTTPClient 自定义 HTTP 客户端
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL 覆盖接口地址，优先于配置中的 base_url
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithClassificationHook 主题判定回调
func WithClassificationHook(fn ClassificationHook) Option {
	return func(c *Client) {
		c.onClassify = fn
	}
}

// NewClient 创建生成客户端
func NewClient(opts ...Option) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) api(s configs.Settings) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		// 失败即终止，不自动重试
		option.WithMaxRetries(0),
	}

	baseURL := s.BaseURL
	if c.baseURL != "" {
		baseURL = c.baseURL
	}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if c.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(c.httpClient))
	}
	return openai.NewClient(opts...)
}

// Generate 生成评论。ok 为 false 表示模型放弃（SKIP）或帖子不符合主题，
// 调用方什么都不做即可，这不是错误
func (c *Client) Generate(ctx context.Context, s configs.Settings, pc *post.Context, mode Mode) (comment string, ok bool, err error) {
	if s.APIKey == "" {
		return "", false, &GenerationError{Kind: ErrKindNoAPIKey, Message: "API key is not configured"}
	}

	if mode == ModeButler {
		if onTopic, _ := c.Classify(ctx, s, pc); !onTopic {
			logrus.Info("帖子不符合主题，跳过评论")
			return "", false, nil
		}
	}

	userPrompt := BuildUserPrompt(s.UserPromptOrDefault(), pc)
	params := openai.ChatCompletionNewParams{
		Model: s.ModelOrDefault(),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(BuildSystemPrompt(s.SystemPromptOrDefault())),
			userMessage(userPrompt, pc),
		},
		MaxTokens:   openai.Int(generationMaxTokens),
		Temperature: openai.Float(generationTemperature),
	}

	if pc != nil {
		logrus.WithFields(logrus.Fields{
			"model":     params.Model,
			"mode":      mode.String(),
			"has_image": pc.HasImage,
			"caption":   pc.Summary(),
		}).Debug("发送生成请求")
	}

	reply, err := c.complete(ctx, s, params)
	if err != nil {
		return "", false, err
	}

	if IsSkip(reply) || reply == "" {
		logrus.Infof("模型放弃评论: %q", post.Truncate(reply, 40))
		return "", false, nil
	}
	return reply, true, nil
}

// Classify 主题判定。接口失败时按不相关处理
func (c *Client) Classify(ctx context.Context, s configs.Settings, pc *post.Context) (onTopic bool, analysis string) {
	topic := s.GateTopicOrDefault()
	params := openai.ChatCompletionNewParams{
		Model: s.ModelOrDefault(),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(gateSystemPrompt),
			userMessage(BuildGatePrompt(topic, pc), pc),
		},
		MaxTokens:   openai.Int(gateMaxTokens),
		Temperature: openai.Float(gateTemperature),
	}

	reply, err := c.complete(ctx, s, params)
	if err != nil {
		logrus.WithError(err).Warn("主题判定失败，按不相关处理")
		return false, ""
	}

	onTopic = IsOnTopic(reply)
	logrus.WithFields(logrus.Fields{
		"topic":    topic,
		"on_topic": onTopic,
	}).Infof("主题判定: %s", post.Truncate(reply, 80))

	if c.onClassify != nil {
		c.onClassify(reply, onTopic)
	}
	return onTopic, reply
}

func (c *Client) complete(ctx context.Context, s configs.Settings, params openai.ChatCompletionNewParams) (string, error) {
	api := c.api(s)
	resp, err := api.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			msg := apiErr.Message
			if msg == "" {
				msg = http.StatusText(apiErr.StatusCode)
			}
			return "", &GenerationError{Kind: ErrKindAPI, StatusCode: apiErr.StatusCode, Message: msg}
		}
		return "", &GenerationError{Kind: ErrKindAPI, Message: err.Error()}
	}

	if len(resp.Choices) == 0 {
		return "", &GenerationError{Kind: ErrKindEmpty, Message: "no choices in response"}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// userMessage 有图片时发送文本+低精度图片，否则纯文本
func userMessage(text string, pc *post.Context) openai.ChatCompletionMessageParamUnion {
	if pc == nil || !pc.HasImage || pc.ImageData == "" {
		return openai.UserMessage(text)
	}
	return openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(text),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    pc.ImageData,
			Detail: "low",
		}),
	})
}
