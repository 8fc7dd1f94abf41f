package anthropic_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/npcbrain/internal/model"
	"github.com/cory-johannsen/npcbrain/internal/model/anthropic"
)

func messageBody(text string) string {
	content := "[]"
	if text != "" {
		b, _ := json.Marshal([]map[string]string{{"type": "text", "text": text}})
		content = string(b)
	}
	return `{"id":"msg_01","type":"message","role":"assistant","model":"claude-test",` +
		`"content":` + content + `,"stop_reason":"end_turn","stop_sequence":null,` +
		`"usage":{"input_tokens":10,"output_tokens":5}}`
}

func newServer(t *testing.T, status int, body string, delay time.Duration, calls *atomic.Int32, gotBody *atomic.Value) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		if gotBody != nil {
			gotBody.Store(string(raw))
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := anthropic.New(anthropic.Options{}, nil)
	assert.ErrorIs(t, err, anthropic.ErrMissingAPIKey)
}

func TestGenerate_ReturnsText(t *testing.T) {
	var calls atomic.Int32
	var body atomic.Value
	srv := newServer(t, http.StatusOK, messageBody("Decide: DEFEND"), 0, &calls, &body)

	g, err := anthropic.New(anthropic.Options{APIKey: "test", Model: "claude-test", BaseURL: srv.URL + "/"}, nil)
	require.NoError(t, err)

	text, err := g.Generate(context.Background(), model.Request{Prompt: "hello", MaxTokens: 100, Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "Decide: DEFEND", text)
	assert.Equal(t, int32(1), calls.Load())

	sent, _ := body.Load().(string)
	assert.Contains(t, sent, `"max_tokens":100`)
	assert.Contains(t, sent, `"claude-test"`)
	assert.Contains(t, sent, "hello")
}

func TestGenerate_EmptyContentIsNoResponse(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, http.StatusOK, messageBody(""), 0, &calls, nil)
	g, err := anthropic.New(anthropic.Options{APIKey: "test", BaseURL: srv.URL + "/"}, nil)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), model.Request{Prompt: "p", MaxTokens: 10})
	assert.ErrorIs(t, err, model.ErrNoResponse)
}

func TestGenerate_ServerErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, http.StatusInternalServerError,
		`{"type":"error","error":{"type":"api_error","message":"boom"}}`, 0, &calls, nil)
	g, err := anthropic.New(anthropic.Options{APIKey: "test", BaseURL: srv.URL + "/"}, nil)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), model.Request{Prompt: "p", MaxTokens: 10})
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerate_HonorsContextDeadline(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, http.StatusOK, messageBody("late"), 2*time.Second, &calls, nil)
	g, err := anthropic.New(anthropic.Options{APIKey: "test", BaseURL: srv.URL + "/"}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = g.Generate(ctx, model.Request{Prompt: "p", MaxTokens: 10})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
