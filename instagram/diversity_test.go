package instagram

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{"忽略大小写和首尾空白", "  Love this view!", "love this view!  ", 1.0},
		{"互相包含", "Amazing shot", "amazing shot, well done", 0.9},
		{"没有共同长词", "Great colors here", "Lovely sunset vibe", 0},
		{"部分共同长词", "what a beautiful sunset tonight", "beautiful sunset indeed friend", 0.5},
		{"短词不计入", "so it is", "is it so", 0},
		{"空串被任何评论包含", "", "Nice one", 0.9},
		{"全空白视为空串", "Nice one", "   ", 0.9},
		{"两边都为空", "", "", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestHistoryIsTooSimilar(t *testing.T) {
	h := NewHistory()
	h.Track("This board game setup looks incredible!")

	assert.True(t, h.IsTooSimilar("this board game setup looks incredible!"))
	assert.True(t, h.IsTooSimilar("Wow, this board game setup looks incredible! Enjoy"))
	assert.True(t, h.IsTooSimilar("Board game setup looks incredible! Love it"))
	assert.False(t, h.IsTooSimilar("Which expansion are you playing next?"))
}

func TestHistoryCapacity(t *testing.T) {
	h := NewHistory()
	for i := 1; i <= HistoryCapacity+1; i++ {
		h.Track(fmt.Sprintf("comment number %d", i))
	}

	items := h.Items()
	assert.Len(t, items, HistoryCapacity)
	assert.NotContains(t, items, "comment number 1")
	assert.Equal(t, "comment number 2", items[0])
	assert.Equal(t, "comment number 11", items[HistoryCapacity-1])
}
