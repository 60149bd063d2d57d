package chatbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floritechat/internal/pkg/upstream"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(Config{
		Enabled:      true,
		Stream:       true,
		APIBase:      srv.URL + "/v1/",
		APIKey:       "sk-test",
		Model:        "test-model",
		SystemPrompt: "be brief",
	}, upstream.New("chatbot-test-"+t.Name(), 0))
}

func TestCompleteStreamingDeliversDeltasInOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "hello?", req.Messages[1].Content)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hel", "", "lo", " there"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, ": keep-alive\n\ndata: [DONE]\n\n")
	})

	var chunks []string
	full, err := c.CompleteStreaming(context.Background(), "hello?", func(s string) error {
		chunks = append(chunks, s)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo", " there"}, chunks)
	assert.Equal(t, "Hello there", full)
}

func TestCompleteStreamingStopsOnCallbackError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		for _, part := range []string{"a", "b", "c"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
		}
	})

	stop := errors.New("stop")
	calls := 0
	_, err := c.CompleteStreaming(context.Background(), "x", func(string) error {
		calls++
		return stop
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestComplete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"42"}}]}`))
	})

	got, err := c.Complete(context.Background(), "meaning of life")

	require.NoError(t, err)
	assert.Equal(t, "42", got)
}

func TestCompleteUpstreamFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Complete(context.Background(), "x")

	var statusErr *upstream.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestEnabled(t *testing.T) {
	assert.False(t, New(Config{Enabled: true}, nil).Enabled())
	assert.False(t, New(Config{APIKey: "k", APIBase: "http://x"}, nil).Enabled())
	assert.True(t, New(Config{Enabled: true, APIKey: "k", APIBase: "http://x"}, nil).Enabled())
}
