package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kode4food/stepflow/pkg/api"
	"github.com/kode4food/stepflow/pkg/log"
)

const (
	userAgent       = "Stepflow/1.0"
	maxResponseSize = 4 << 20
	maxErrorBody    = 512
)

var (
	ErrHTTPError       = errors.New("service returned HTTP error")
	ErrInvalidResponse = errors.New("service returned invalid response")
	ErrNoEndpoint      = errors.New("service endpoint not configured")
)

func postJSON(
	ctx context.Context, hc *http.Client, endpoint string,
	headers map[string]string, payload any,
) ([]byte, error) {
	if endpoint == "" {
		return nil, api.Permanent(ErrNoEndpoint)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, api.Permanent(err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, endpoint, bytes.NewReader(body),
	)
	if err != nil {
		return nil, api.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		slog.Warn("HTTP request failed",
			slog.String("endpoint", endpoint),
			log.Duration(time.Since(start)),
			log.Error(err))
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		slog.Warn("HTTP error",
			slog.String("endpoint", endpoint),
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", truncate(respBody)))
		return nil, statusError(resp.StatusCode)
	}
	return respBody, nil
}

// statusError marks client errors permanent, except for throttling
func statusError(code int) error {
	err := fmt.Errorf("%w: HTTP %d", ErrHTTPError, code)
	if code == http.StatusTooManyRequests || code >= 500 {
		return err
	}
	return api.Permanent(err)
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
