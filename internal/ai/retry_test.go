package ai

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cvforge/internal/config"
	"cvforge/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted returns the scripted results in order and counts calls.
type scripted struct {
	calls   int
	results []func() (*Completion, error)
}

func (s *scripted) Complete(ctx context.Context, req ChatRequest) (*Completion, error) {
	fn := s.results[s.calls]
	s.calls++
	return fn()
}

func ok(text string) func() (*Completion, error) {
	return func() (*Completion, error) { return &Completion{Text: text}, nil }
}

func status(code int, body string) func() (*Completion, error) {
	return func() (*Completion, error) { return nil, &CompletionError{StatusCode: code, Body: body} }
}

// recordingWait replaces the sleep and records requested durations.
func recordingWait(h *CallHelper) *[]time.Duration {
	var waits []time.Duration
	h.wait = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return &waits
}

func TestCallHelperRetriesOnceOnRateLimit(t *testing.T) {
	next := &scripted{results: []func() (*Completion, error){
		status(http.StatusTooManyRequests, "slow down"),
		ok("rewritten"),
	}}
	h := NewCallHelper(next, 8*time.Second, errors.Discard())
	waits := recordingWait(h)

	resp, err := h.Complete(context.Background(), ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "rewritten", resp.Text)
	assert.Equal(t, 2, next.calls)
	assert.Equal(t, []time.Duration{8 * time.Second}, *waits)
}

func TestCallHelperFailures(t *testing.T) {
	tests := []struct {
		name      string
		results   []func() (*Completion, error)
		wantCalls int
		wantWaits int
		wantCode  int
		wantMsg   string
	}{
		{
			name: "second rate limit is returned",
			results: []func() (*Completion, error){
				status(http.StatusTooManyRequests, "slow down"),
				status(http.StatusTooManyRequests, "still slow"),
			},
			wantCalls: 2,
			wantWaits: 1,
			wantCode:  http.StatusTooManyRequests,
			wantMsg:   "Error 429: still slow",
		},
		{
			name:      "server error is not retried",
			results:   []func() (*Completion, error){status(http.StatusInternalServerError, "oops")},
			wantCalls: 1,
			wantCode:  http.StatusInternalServerError,
			wantMsg:   "Error 500: oops",
		},
		{
			name: "transport failure has no status",
			results: []func() (*Completion, error){func() (*Completion, error) {
				return nil, stderrors.New("dial tcp: connection refused")
			}},
			wantCalls: 1,
			wantMsg:   "dial tcp: connection refused",
		},
		{
			name: "panic is contained",
			results: []func() (*Completion, error){func() (*Completion, error) {
				panic("provider bug")
			}},
			wantCalls: 1,
			wantMsg:   "completion panicked: provider bug",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &scripted{results: tt.results}
			h := NewCallHelper(next, time.Second, errors.Discard())
			waits := recordingWait(h)

			resp, err := h.Complete(context.Background(), ChatRequest{})
			assert.Nil(t, resp)

			var ce *CompletionError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantCode, ce.StatusCode)
			assert.Equal(t, tt.wantMsg, ce.Error())
			assert.Equal(t, tt.wantCalls, next.calls)
			assert.Len(t, *waits, tt.wantWaits)
		})
	}
}

func TestCallHelperWaitHonoursCancellation(t *testing.T) {
	next := &scripted{results: []func() (*Completion, error){
		status(http.StatusTooManyRequests, "slow down"),
		ok("never"),
	}}
	h := NewCallHelper(next, time.Hour, errors.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Complete(ctx, ChatRequest{})
	var ce *CompletionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 0, ce.StatusCode)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, next.calls)
}

const chatReply = `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"mistral-medium",
"choices":[{"index":0,"message":{"role":"assistant","content":"tailored resume"},"finish_reason":"stop"}],
"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}}`

func TestCallHelperAgainstOpenAICompatibleServer(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer mistral-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"Requests rate limit exceeded","type":"rate_limited"}}`))
			return
		}
		_, _ = w.Write([]byte(chatReply))
	}))
	defer srv.Close()

	timeout := 5 * time.Second
	provider := NewOpenAIProvider(config.OperationAIConfig{
		Provider: config.ProviderOpenAI,
		Model:    "mistral-medium",
		BaseURL:  srv.URL + "/v1",
		APIKey:   "mistral-key",
		Timeout:  &timeout,
	}, config.OpTailor, errors.Discard())

	h := NewCallHelper(provider, 8*time.Second, errors.Discard())
	waits := recordingWait(h)

	resp, err := h.Complete(context.Background(), ChatRequest{
		Model:    "mistral-medium",
		Messages: []Message{{Role: RoleUser, Content: "resume"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "tailored resume", resp.Text)
	assert.Equal(t, int32(2), hits.Load(), "exactly one retry")
	assert.Equal(t, []time.Duration{8 * time.Second}, *waits, "exactly one wait")
	require.NotNil(t, resp.Usage)
	assert.Equal(t, int64(15), resp.Usage.TotalTokens)
}

func TestOpenAIProviderErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	timeout := 5 * time.Second
	provider := NewOpenAIProvider(config.OperationAIConfig{
		Model:   "llama3-70b-8192",
		BaseURL: srv.URL,
		APIKey:  "k",
		Timeout: &timeout,
	}, config.OpParse, errors.Discard())

	_, err := provider.Complete(context.Background(), ChatRequest{Model: "llama3-70b-8192", JSONOutput: true})
	var ce *CompletionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusBadGateway, ce.StatusCode)
	assert.True(t, strings.HasPrefix(ce.Error(), "Error 502: "), ce.Error())
}

func TestOpenAIProviderSendsJSONMode(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatReply))
	}))
	defer srv.Close()

	timeout := 5 * time.Second
	provider := NewOpenAIProvider(config.OperationAIConfig{
		Model:   "llama3-70b-8192",
		BaseURL: srv.URL,
		APIKey:  "k",
		Timeout: &timeout,
	}, config.OpParse, errors.Discard())

	_, err := provider.Complete(context.Background(), ChatRequest{
		Model:       "llama3-70b-8192",
		Temperature: 0.1,
		JSONOutput:  true,
		Messages: []Message{
			{Role: RoleSystem, Content: DefaultSystemPrompts.Parse},
			{Role: RoleUser, Content: "text"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, body, `"response_format":{"type":"json_object"}`)
	assert.Contains(t, body, `"role":"system"`)
	assert.Contains(t, body, `"temperature":0.1`)
}
