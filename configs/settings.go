package configs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxActions  = 40
	DefaultMaxComments = 10
	DefaultGateTopic   = "board games"

	DefaultSystemPrompt = "You are a helpful assistant that generates natural, authentic Instagram comments. Keep comments brief, friendly, and relevant to the post content and images."

	DefaultUserPrompt = `Generate a friendly, relevant, and engaging Instagram comment for this post.

{caption}

{hashtags}

Generate a comment that:
- Is 1-2 sentences long
- Feels natural and authentic
- References specific details from both the image and text
- Is positive and encouraging
- Does not use excessive emojis (max 1-2)
- Sounds like a real person, not AI-generated

If you cannot write a relevant comment for this post, reply with exactly SKIP.

Comment:`
)

// Stats 累计统计
type Stats struct {
	Likes    int `json:"likes"`
	Follows  int `json:"follows"`
	Comments int `json:"comments"`
}

// Settings 自动化配置，由设置界面（HTTP/MCP）写入，核心逻辑只回写统计和运行标记
type Settings struct {
	APIKey       string `json:"api_key"`
	BaseURL      string `json:"base_url,omitempty"`
	Model        string `json:"model,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	UserPrompt   string `json:"user_prompt,omitempty"`

	MaxActions  int `json:"max_actions,omitempty"`
	MaxComments int `json:"max_comments,omitempty"`

	// 管家模式下主题判定使用的话题
	GateTopic string `json:"gate_topic,omitempty"`
	// 自己的用户名，用于排除自己的帖子
	OwnUsername string `json:"own_username,omitempty"`

	ButlerEnabled bool  `json:"butler_enabled"`
	Stats         Stats `json:"stats"`
}

// ModelOrDefault 未配置时使用默认模型
func (s Settings) ModelOrDefault() string {
	if s.Model == "" {
		return DefaultModel
	}
	return s.Model
}

// SystemPromptOrDefault 未配置时使用默认系统提示词
func (s Settings) SystemPromptOrDefault() string {
	if s.SystemPrompt == "" {
		return DefaultSystemPrompt
	}
	return s.SystemPrompt
}

// UserPromptOrDefault 未配置时使用默认用户提示词模板
func (s Settings) UserPromptOrDefault() string {
	if s.UserPrompt == "" {
		return DefaultUserPrompt
	}
	return s.UserPrompt
}

// GateTopicOrDefault 未配置时使用默认话题
func (s Settings) GateTopicOrDefault() string {
	if s.GateTopic == "" {
		return DefaultGateTopic
	}
	return s.GateTopic
}

// Caps 本次运行的动作上限和评论上限
func (s Settings) Caps() (maxActions, maxComments int) {
	maxActions, maxComments = s.MaxActions, s.MaxComments
	if maxActions <= 0 {
		maxActions = DefaultMaxActions
	}
	if maxComments <= 0 {
		maxComments = DefaultMaxComments
	}
	return maxActions, maxComments
}

// Store 配置存储
type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
	UpdateStats(ctx context.Context, fn func(*Stats)) error
	SetButlerEnabled(ctx context.Context, enabled bool) error
}

// GetSettingsFilePath 配置文件路径，可通过 BUTLER_SETTINGS_PATH 覆盖
func GetSettingsFilePath() string {
	if p := os.Getenv("BUTLER_SETTINGS_PATH"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "settings.json"
	}
	return filepath.Join(home, ".instagram-butler", "settings.json")
}

// FileStore 以 JSON 文件保存配置
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore 创建文件存储，path 为空时使用默认路径
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = GetSettingsFilePath()
	}
	return &FileStore{path: path}
}

// Path 配置文件路径
func (f *FileStore) Path() string {
	return f.path
}

// Load 读取配置；文件中没有凭据时回退到 OPENAI_API_KEY / OPENAI_BASE_URL
func (f *FileStore) Load(ctx context.Context) (Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, err := f.read()
	if err != nil {
		return Settings{}, err
	}
	if s.APIKey == "" {
		s.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if s.BaseURL == "" {
		s.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	return s, nil
}

func (f *FileStore) Save(ctx context.Context, s Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(s)
}

func (f *FileStore) UpdateStats(ctx context.Context, fn func(*Stats)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, err := f.read()
	if err != nil {
		return err
	}
	fn(&s.Stats)
	return f.write(s)
}

func (f *FileStore) SetButlerEnabled(ctx context.Context, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, err := f.read()
	if err != nil {
		return err
	}
	s.ButlerEnabled = enabled
	return f.write(s)
}

func (f *FileStore) read() (Settings, error) {
	var s Settings
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, errors.Wrapf(err, "read settings %s", f.path)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, errors.Wrapf(err, "parse settings %s", f.path)
	}
	return s, nil
}

func (f *FileStore) write(s Settings) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(err, "create settings dir")
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal settings")
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "write settings")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return errors.Wrap(err, "replace settings")
	}
	logrus.WithField("path", f.path).Debug("settings saved")
	return nil
}

// MemoryStore 内存配置存储，用于离线模式和测试
type MemoryStore struct {
	mu sync.Mutex
	s  Settings
}

// NewMemoryStore 以初始配置创建内存存储
func NewMemoryStore(initial Settings) *MemoryStore {
	return &MemoryStore{s: initial}
}

func (m *MemoryStore) Load(ctx context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *MemoryStore) Save(ctx context.Context, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	return nil
}

func (m *MemoryStore) UpdateStats(ctx context.Context, fn func(*Stats)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.s.Stats)
	return nil
}

func (m *MemoryStore) SetButlerEnabled(ctx context.Context, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.ButlerEnabled = enabled
	return nil
}
