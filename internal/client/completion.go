package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/kode4food/stepflow/internal/config"
)

type (
	// Completer produces text for a prompt
	Completer interface {
		Complete(ctx context.Context, req CompletionRequest) (string, error)
	}

	// CompletionRequest is a single prompt. With JSON set, the service is
	// asked for a JSON object and the reply is checked before returning
	CompletionRequest struct {
		System string
		Prompt string
		JSON   bool
	}

	// CompletionClient calls an OpenAI-style chat completions endpoint,
	// throttled to the configured request rate
	CompletionClient struct {
		httpClient *http.Client
		limiter    *rate.Limiter
		endpoint   string
		apiKey     string
		model      string
	}

	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	responseFormat struct {
		Type string `json:"type"`
	}

	chatRequest struct {
		ResponseFormat *responseFormat `json:"response_format,omitempty"`
		Model          string          `json:"model"`
		Messages       []chatMessage   `json:"messages"`
	}
)

var (
	ErrEmptyCompletion = errors.New("completion returned no content")
	ErrInvalidJSON     = errors.New("completion returned invalid JSON")
)

var _ Completer = (*CompletionClient)(nil)

// NewCompletionClient creates a client from configuration. Per-request
// deadlines come from the step context
func NewCompletionClient(cfg config.CompletionConfig) *CompletionClient {
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	return &CompletionClient{
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(limit, max(1, int(cfg.RateLimit))),
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
	}
}

func (c *CompletionClient) Complete(
	ctx context.Context, req CompletionRequest,
) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	payload := chatRequest{
		Model:    c.model,
		Messages: messages(req),
	}
	if req.JSON {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	body, err := postJSON(ctx, c.httpClient, c.endpoint, headers, payload)
	if err != nil {
		return "", err
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: not JSON", ErrInvalidResponse)
	}

	content := strings.TrimSpace(
		gjson.GetBytes(body, "choices.0.message.content").String(),
	)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	if req.JSON {
		content = stripCodeFence(content)
		if !gjson.Valid(content) {
			return "", ErrInvalidJSON
		}
	}
	return content, nil
}

// CompleteJSON requests a JSON reply and returns it parsed
func CompleteJSON(
	ctx context.Context, c Completer, system, prompt string,
) (gjson.Result, error) {
	content, err := c.Complete(ctx, CompletionRequest{
		System: system,
		Prompt: prompt,
		JSON:   true,
	})
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.Valid(content) {
		return gjson.Result{}, ErrInvalidJSON
	}
	return gjson.Parse(content), nil
}

func messages(req CompletionRequest) []chatMessage {
	var res []chatMessage
	if req.System != "" {
		res = append(res, chatMessage{Role: "system", Content: req.System})
	}
	return append(res, chatMessage{Role: "user", Content: req.Prompt})
}

// stripCodeFence removes a markdown code fence that some models wrap around
// JSON output
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
