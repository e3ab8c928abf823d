package cookies

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCookie(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cookies.json")
	c := NewLoadCookie(path)

	_, err := c.LoadCookies()
	assert.Error(t, err)

	require.NoError(t, c.SaveCookies([]byte(`[{"name":"sessionid"}]`)))
	data, err := c.LoadCookies()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"sessionid"}]`, string(data))

	require.NoError(t, c.DeleteCookies())
	require.NoError(t, c.DeleteCookies())
}

func TestGetCookiesFilePathEnv(t *testing.T) {
	t.Setenv("COOKIES_PATH", "/tmp/custom-cookies.json")
	assert.Equal(t, "/tmp/custom-cookies.json", GetCookiesFilePath())
}

func TestGetInstanceCookiesFilePath(t *testing.T) {
	t.Setenv("COOKIES_PATH", "/tmp/ig/cookies.json")

	tests := []struct {
		instance string
		want     string
	}{
		{"", "/tmp/ig/cookies.json"},
		{"instance1", "/tmp/ig/cookies_instance1.json"},
		{"instance2", "/tmp/ig/cookies_instance2.json"},
	}
	for _, tt := range tests {
		t.Run(tt.instance, func(t *testing.T) {
			assert.Equal(t, tt.want, GetInstanceCookiesFilePath(tt.instance))
		})
	}
}
