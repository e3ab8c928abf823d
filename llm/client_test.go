package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpzouying/instagram-butler/configs"
	"github.com/xpzouying/instagram-butler/post"
)

type fakeAPI struct {
	mu      sync.Mutex
	replies []string
	status  int
	bodies  []map[string]any
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	f.bodies = append(f.bodies, body)
	status := f.status
	reply := ""
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","param":null,"code":"invalid_api_key"}}`)
		return
	}

	content, _ := json.Marshal(reply)
	fmt.Fprintf(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":%s},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`, content)
}

func (f *fakeAPI) requests() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.bodies...)
}

func newTestClient(t *testing.T, api *fakeAPI, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return NewClient(append([]Option{WithBaseURL(srv.URL)}, opts...)...)
}

func testSettings() configs.Settings {
	return configs.Settings{APIKey: "sk-test"}
}

func hikePost() *post.Context {
	return &post.Context{
		Caption:   "Had the best hike today! #nature #sunset",
		Hashtags:  []string{"#nature", "#sunset"},
		ImageData: "data:image/jpeg;base64,AAAA",
		HasImage:  true,
	}
}

func TestGenerateSendsContextInPrompt(t *testing.T) {
	api := &fakeAPI{replies: []string{"  What a view, enjoy the trails!  "}}
	client := newTestClient(t, api)

	comment, ok, err := client.Generate(context.Background(), testSettings(), hikePost(), ModeManual)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "What a view, enjoy the trails!", comment)

	reqs := api.requests()
	require.Len(t, reqs, 1)
	body := reqs[0]
	assert.Equal(t, configs.DefaultModel, body["model"])
	assert.EqualValues(t, generationMaxTokens, body["max_tokens"])
	assert.InDelta(t, generationTemperature, body["temperature"], 1e-9)

	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	system := messages[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Contains(t, system["content"], SkipToken)

	user := messages[1].(map[string]any)
	parts := user["content"].([]any)
	require.Len(t, parts, 2)
	text := parts[0].(map[string]any)["text"].(string)
	assert.Contains(t, text, "Post caption: Had the best hike today!")
	assert.Contains(t, text, "Hashtags: #nature #sunset")
	assert.Contains(t, text, "hike")

	image := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "low", image["detail"])
	assert.Equal(t, "data:image/jpeg;base64,AAAA", image["url"])
}

func TestGenerateTextOnlyWithoutImage(t *testing.T) {
	api := &fakeAPI{replies: []string{"Love this!"}}
	client := newTestClient(t, api)

	settings := testSettings()
	settings.Model = "gpt-4o"
	settings.UserPrompt = "Write about {caption} {hashtags}"
	_, ok, err := client.Generate(context.Background(), settings, &post.Context{Caption: "Sunset run"}, ModeManual)
	require.NoError(t, err)
	require.True(t, ok)

	body := api.requests()[0]
	assert.Equal(t, "gpt-4o", body["model"])
	user := body["messages"].([]any)[1].(map[string]any)
	assert.Equal(t, "Write about Post caption: Sunset run ", user["content"])
}

func TestGenerateSkip(t *testing.T) {
	for _, reply := range []string{"SKIP", "I would rather SKIP this one", ""} {
		t.Run(fmt.Sprintf("%q", reply), func(t *testing.T) {
			api := &fakeAPI{replies: []string{reply}}
			client := newTestClient(t, api)

			comment, ok, err := client.Generate(context.Background(), testSettings(), hikePost(), ModeManual)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Empty(t, comment)
		})
	}
}

func TestGenerateAPIError(t *testing.T) {
	api := &fakeAPI{status: http.StatusUnauthorized}
	client := newTestClient(t, api)

	_, ok, err := client.Generate(context.Background(), testSettings(), hikePost(), ModeManual)
	require.Error(t, err)
	assert.False(t, ok)

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, ErrKindAPI, genErr.Kind)
	assert.Equal(t, http.StatusUnauthorized, genErr.StatusCode)
	assert.NotEmpty(t, genErr.Message)
	assert.Len(t, api.requests(), 1, "no automatic retry")
}

func TestGenerateWithoutAPIKey(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api)

	_, _, err := client.Generate(context.Background(), configs.Settings{}, hikePost(), ModeManual)
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, ErrKindNoAPIKey, genErr.Kind)
	assert.Empty(t, api.requests())
}

func TestButlerModeRunsGateFirst(t *testing.T) {
	t.Run("符合主题时继续生成", func(t *testing.T) {
		var analysis string
		var onTopic bool
		api := &fakeAPI{replies: []string{"I see a chess board and dice.\nRESULT: YES", "Great game night!"}}
		client := newTestClient(t, api, WithClassificationHook(func(a string, ok bool) {
			analysis, onTopic = a, ok
		}))

		comment, ok, err := client.Generate(context.Background(), testSettings(), hikePost(), ModeButler)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "Great game night!", comment)
		assert.True(t, onTopic)
		assert.Contains(t, analysis, "chess")

		reqs := api.requests()
		require.Len(t, reqs, 2)
		assert.InDelta(t, gateTemperature, reqs[0]["temperature"], 1e-9)
		assert.InDelta(t, generationTemperature, reqs[1]["temperature"], 1e-9)
		assert.Less(t, reqs[0]["temperature"].(float64), reqs[1]["temperature"].(float64))
	})

	t.Run("不符合主题时不生成", func(t *testing.T) {
		api := &fakeAPI{replies: []string{"A mountain trail at sunset.\nRESULT: NO"}}
		client := newTestClient(t, api)

		_, ok, err := client.Generate(context.Background(), testSettings(), hikePost(), ModeButler)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Len(t, api.requests(), 1)
	})
}

func TestClassifyFailsClosed(t *testing.T) {
	api := &fakeAPI{status: http.StatusInternalServerError}
	client := newTestClient(t, api)

	onTopic, analysis := client.Classify(context.Background(), testSettings(), hikePost())
	assert.False(t, onTopic)
	assert.Empty(t, analysis)
}
