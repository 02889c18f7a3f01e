// ABOUTME: Remote intent extractor calling an external classification service
// ABOUTME: Any failure or incomplete extraction maps to ErrNoIntent

package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// HTTPExtractor sends text to an external classification endpoint that
// returns the extracted token/amount fields. The service is opaque; only
// the response shape matters here.
type HTTPExtractor struct {
	url    string
	httpc  *http.Client
	logger *slog.Logger
}

// NewHTTPExtractor creates an extractor posting to url.
func NewHTTPExtractor(url string, timeout time.Duration, logger *slog.Logger) *HTTPExtractor {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPExtractor{
		url:    url,
		httpc:  &http.Client{Timeout: timeout},
		logger: logger.With("component", "intent"),
	}
}

// Extract posts the text and decodes the extraction. Transport errors,
// non-2xx responses, unparsable bodies and incomplete extractions all
// return ErrNoIntent: the caller re-prompts either way.
func (e *HTTPExtractor) Extract(ctx context.Context, text string) (*SwapIntent, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpc.Do(req)
	if err != nil {
		e.logger.Debug("intent extraction failed", "error", err)
		return nil, ErrNoIntent
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e.logger.Debug("intent extraction rejected", "status", resp.StatusCode)
		return nil, ErrNoIntent
	}

	var out SwapIntent
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		e.logger.Debug("unparsable intent response", "error", err)
		return nil, ErrNoIntent
	}

	out.InputSymbol = strings.ToUpper(strings.TrimSpace(out.InputSymbol))
	out.OutputSymbol = strings.ToUpper(strings.TrimSpace(out.OutputSymbol))
	if out.InputSymbol == "" || out.OutputSymbol == "" || out.Amount <= 0 {
		return nil, ErrNoIntent
	}
	return &out, nil
}
