package instagram

import (
	"strings"
)

const (
	// HistoryCapacity 参与相似度比较的最近评论条数
	HistoryCapacity = 10
	// SimilarityThreshold 超过该值视为重复
	SimilarityThreshold = 0.7

	minTokenLength = 3
)

// Similarity 两条评论的相似度：相同为 1，互相包含为 0.9，
// 否则为较长一方的长词（超过 3 个字符）在另一方中出现的比例
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == b {
		return 1.0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.9
	}

	wordsA, wordsB := longWords(a), longWords(b)
	larger, other := wordsA, wordsB
	if len(wordsB) > len(wordsA) {
		larger, other = wordsB, wordsA
	}
	if len(larger) == 0 {
		return 0
	}

	otherSet := make(map[string]struct{}, len(other))
	for _, w := range other {
		otherSet[w] = struct{}{}
	}
	common := 0
	for _, w := range larger {
		if _, ok := otherSet[w]; ok {
			common++
		}
	}
	return float64(common) / float64(len(larger))
}

func longWords(s string) []string {
	fields := strings.Fields(s)
	words := fields[:0]
	for _, w := range fields {
		if len([]rune(w)) > minTokenLength {
			words = append(words, w)
		}
	}
	return words
}

// History 最近发布的评论，容量固定，先进先出。
// 不做并发保护，由 Session 持锁访问
type History struct {
	items []string
}

// NewHistory 创建空的历史
func NewHistory() *History {
	return &History{items: make([]string, 0, HistoryCapacity)}
}

// Track 追加一条评论，超出容量时淘汰最早的
func (h *History) Track(comment string) {
	h.items = append(h.items, comment)
	if over := len(h.items) - HistoryCapacity; over > 0 {
		h.items = append(h.items[:0], h.items[over:]...)
	}
}

// MostSimilar 与历史中最相近的一条的相似度
func (h *History) MostSimilar(candidate string) float64 {
	best := 0.0
	for _, prev := range h.items {
		if s := Similarity(candidate, prev); s > best {
			best = s
		}
	}
	return best
}

// IsTooSimilar 与任意一条历史评论相似度超过阈值
func (h *History) IsTooSimilar(candidate string) bool {
	return h.MostSimilar(candidate) > SimilarityThreshold
}

// Items 历史评论副本，从旧到新
func (h *History) Items() []string {
	return append([]string(nil), h.items...)
}

// Len 当前条数
func (h *History) Len() int {
	return len(h.items)
}
