package instagram

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xpzouying/instagram-butler/configs"
	"github.com/xpzouying/instagram-butler/dom"
	"github.com/xpzouying/instagram-butler/messaging"
)

type notice struct {
	message string
	level   Level
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (r *recordingNotifier) Notify(_ context.Context, message string, level Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice{message: message, level: level})
}

func (r *recordingNotifier) all() []notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notice(nil), r.notices...)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func parse(t *testing.T, doc string, opts ...dom.SnapshotOption) *dom.Snapshot {
	t.Helper()
	snap, err := dom.ParseString(doc, opts...)
	require.NoError(t, err)
	return snap
}

func query(t *testing.T, root interface {
	Query(string) (dom.Element, error)
}, selector string) dom.Element {
	t.Helper()
	el, err := root.Query(selector)
	require.NoError(t, err)
	require.NotNil(t, el, selector)
	return el
}

func newTestSession(doc dom.Document, store configs.Store, bus *messaging.Bus, opts ...Option) *Session {
	base := []Option{
		WithSubmitDelay(10 * time.Millisecond),
		WithExpandDelay(time.Millisecond),
		WithInputRetry(1, 5*time.Millisecond),
		WithTickInterval(time.Hour),
	}
	return NewSession(doc, store, bus, append(base, opts...)...)
}
