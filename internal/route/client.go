// ABOUTME: HTTP client for the swap aggregator route and transaction endpoints
// ABOUTME: Maps upstream failures onto ErrRouteUnavailable / ErrTransactionBuild

package route

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
)

// Client errors. Callers branch on these: an empty route is NOT an error,
// ErrRouteUnavailable means the quote never happened.
var (
	// ErrRouteUnavailable means the route endpoint failed (transport or HTTP error).
	ErrRouteUnavailable = errors.New("route service unavailable")

	// ErrTransactionBuild means the prepare endpoint failed.
	ErrTransactionBuild = errors.New("transaction build failed")
)

// blockchain is the chain identifier sent with every token reference.
const blockchain = "ton"

// Client talks to the swap aggregator REST API.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewClient creates an aggregator client. A zero timeout defaults to 30s.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger.With("component", "route-client"),
	}
}

// Tokens fetches the aggregator's supported token list wholesale.
func (c *Client) Tokens(ctx context.Context) ([]Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/tokens", nil)
	if err != nil {
		return nil, fmt.Errorf("building token request: %w", err)
	}

	var tokens []Token
	if err := c.do(req, &tokens); err != nil {
		return nil, fmt.Errorf("fetching tokens: %w", err)
	}
	return tokens, nil
}

// Quote asks the aggregator for a swap route. A 2xx response with no paths
// is returned as an empty Route; any transport or HTTP failure is wrapped
// in ErrRouteUnavailable.
func (c *Client) Quote(ctx context.Context, qr QuoteRequest) (*Route, error) {
	body := map[string]any{
		"input_token": map[string]string{
			"blockchain": blockchain,
			"address":    qr.InputAddress,
		},
		"output_token": map[string]string{
			"blockchain": blockchain,
			"address":    qr.OutputAddress,
		},
		"max_splits": qr.MaxSplits,
		"max_length": qr.MaxLength,
	}
	if qr.AmountIsInput {
		body["input_amount"] = qr.Amount
	} else {
		body["output_amount"] = qr.Amount
	}

	req, err := c.jsonRequest(ctx, http.MethodPost, "/v1/route", body)
	if err != nil {
		return nil, err
	}

	var route Route
	if err := c.do(req, &route); err != nil {
		c.logger.Warn("route quote failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrRouteUnavailable, err)
	}

	c.logger.Debug("route quoted",
		"input", route.InputToken.Metadata.Symbol,
		"output", route.OutputToken.Metadata.Symbol,
		"paths", len(route.Paths))
	return &route, nil
}

// Prepare builds signable transactions for a quoted route.
func (c *Client) Prepare(ctx context.Context, pr PrepareRequest) ([]TransactionPayload, error) {
	body := map[string]any{
		"sender_address": pr.SenderAddress,
		"slippage":       pr.Slippage,
		"mev_protection": pr.MEVProtection,
		"paths":          pr.Paths,
	}

	req, err := c.jsonRequest(ctx, http.MethodPost, "/v2/route/transactions", body)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Transactions []TransactionPayload `json:"transactions"`
	}
	if err := c.do(req, &resp); err != nil {
		c.logger.Warn("transaction build failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrTransactionBuild, err)
	}
	if len(resp.Transactions) == 0 {
		return nil, fmt.Errorf("%w: empty transaction list", ErrTransactionBuild)
	}
	return resp.Transactions, nil
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do executes the request and decodes a 2xx JSON response into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read a little of the body for the log line, then discard
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
