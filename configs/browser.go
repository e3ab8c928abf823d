package configs

import "sync"

var (
	mu       sync.RWMutex
	headless = true
	binPath  string
)

// InitHeadless 设置是否无头模式
func InitHeadless(h bool) {
	mu.Lock()
	defer mu.Unlock()
	headless = h
}

// IsHeadless 是否无头模式
func IsHeadless() bool {
	mu.RLock()
	defer mu.RUnlock()
	return headless
}

// SetBinPath 设置浏览器二进制路径
func SetBinPath(b string) {
	mu.Lock()
	defer mu.Unlock()
	binPath = b
}

// GetBinPath 浏览器二进制路径
func GetBinPath() string {
	mu.RLock()
	defer mu.RUnlock()
	return binPath
}
