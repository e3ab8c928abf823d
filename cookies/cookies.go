package cookies

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Cookier cookies 读写
type Cookier interface {
	LoadCookies() ([]byte, error)
	SaveCookies(data []byte) error
	DeleteCookies() error
}

type localCookie struct {
	path string
}

// NewLoadCookie 基于本地文件的 cookies 读写
func NewLoadCookie(path string) Cookier {
	if path == "" {
		panic("path is required")
	}
	return &localCookie{path: path}
}

func (c *localCookie) LoadCookies() ([]byte, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read cookies from file")
	}
	return data, nil
}

func (c *localCookie) SaveCookies(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return errors.Wrap(err, "failed to create cookies dir")
	}
	return errors.Wrap(os.WriteFile(c.path, data, 0o600), "failed to write cookies")
}

func (c *localCookie) DeleteCookies() error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete cookies")
	}
	return nil
}

// GetCookiesFilePath cookies 文件路径，可通过 COOKIES_PATH 覆盖
func GetCookiesFilePath() string {
	if p := os.Getenv("COOKIES_PATH"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "instagram-butler-cookies.json")
	}
	return filepath.Join(home, ".instagram-butler", "cookies.json")
}

// GetInstanceCookiesFilePath 多实例运行时每个实例独立的 cookies 文件，
// 例如 cookies.json -> cookies_instance2.json
func GetInstanceCookiesFilePath(instanceID string) string {
	base := GetCookiesFilePath()
	if instanceID == "" {
		return base
	}
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(filepath.Base(base), ext)
	return filepath.Join(filepath.Dir(base), fmt.Sprintf("%s_%s%s", name, instanceID, ext))
}
