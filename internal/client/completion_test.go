package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/stepflow/internal/client"
	"github.com/kode4food/stepflow/internal/config"
	"github.com/kode4food/stepflow/pkg/api"
)

func chatReply(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
}

func completionServer(
	t *testing.T, status int, reply any,
) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "Stepflow/1.0", r.Header.Get("User-Agent"))
			w.WriteHeader(status)
			if reply != nil {
				_ = json.NewEncoder(w).Encode(reply)
			}
		},
	))
	t.Cleanup(server.Close)
	return server, &calls
}

func newCompletionClient(endpoint string) *client.CompletionClient {
	return client.NewCompletionClient(config.CompletionConfig{
		Endpoint:  endpoint,
		APIKey:    "secret",
		Model:     "test-model",
		RateLimit: 100,
	})
}

func TestCompleteText(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_ = json.NewEncoder(w).Encode(chatReply("  Keep going!  "))
		},
	))
	defer server.Close()

	c := newCompletionClient(server.URL)
	out, err := c.Complete(context.Background(), client.CompletionRequest{
		System: "You are a coach",
		Prompt: "Motivate me",
	})
	require.NoError(t, err)
	assert.Equal(t, "Keep going!", out)

	assert.Equal(t, "test-model", got["model"])
	assert.Len(t, got["messages"], 2)
	assert.NotContains(t, got, "response_format")
}

func TestCompleteJSON(t *testing.T) {
	server, _ := completionServer(t, http.StatusOK,
		chatReply("```json\n{\"score\": 7.5}\n```"),
	)

	c := newCompletionClient(server.URL)
	res, err := client.CompleteJSON(context.Background(), c, "", "score it")
	require.NoError(t, err)
	assert.Equal(t, 7.5, res.Get("score").Float())
}

func TestCompleteInvalidJSON(t *testing.T) {
	server, _ := completionServer(t, http.StatusOK, chatReply("not json"))

	c := newCompletionClient(server.URL)
	_, err := client.CompleteJSON(context.Background(), c, "", "score it")
	assert.ErrorIs(t, err, client.ErrInvalidJSON)
	assert.False(t, api.IsPermanent(err))
}

func TestCompleteEmpty(t *testing.T) {
	server, _ := completionServer(t, http.StatusOK, chatReply("   "))

	c := newCompletionClient(server.URL)
	_, err := c.Complete(context.Background(), client.CompletionRequest{
		Prompt: "anything",
	})
	assert.ErrorIs(t, err, client.ErrEmptyCompletion)
}

func TestCompleteStatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		permanent bool
	}{
		{http.StatusTooManyRequests, false},
		{http.StatusBadGateway, false},
		{http.StatusServiceUnavailable, false},
		{http.StatusBadRequest, true},
		{http.StatusUnauthorized, true},
		{http.StatusNotFound, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server, _ := completionServer(t, tt.status, nil)
			c := newCompletionClient(server.URL)
			_, err := c.Complete(context.Background(),
				client.CompletionRequest{Prompt: "x"},
			)
			assert.ErrorIs(t, err, client.ErrHTTPError)
			assert.Equal(t, tt.permanent, api.IsPermanent(err))
		})
	}
}

func TestCompleteNoEndpoint(t *testing.T) {
	c := newCompletionClient("")
	_, err := c.Complete(context.Background(),
		client.CompletionRequest{Prompt: "x"},
	)
	assert.ErrorIs(t, err, client.ErrNoEndpoint)
	assert.True(t, api.IsPermanent(err))
}

func TestCompleteRateLimited(t *testing.T) {
	server, calls := completionServer(t, http.StatusOK, chatReply("ok"))
	c := client.NewCompletionClient(config.CompletionConfig{
		Endpoint:  server.URL,
		RateLimit: 0.001,
	})

	_, err := c.Complete(context.Background(),
		client.CompletionRequest{Prompt: "first"},
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Complete(ctx, client.CompletionRequest{Prompt: "second"})
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
