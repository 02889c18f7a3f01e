// ABOUTME: HTTP+WebSocket client for the external wallet pairing bridge
// ABOUTME: Commands go over REST, events arrive on a websocket stream

package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// BridgeClient implements Connector against a wallet bridge service. The
// bridge owns the actual pairing protocol; this client issues commands over
// HTTP and consumes the per-user event stream over a websocket.
type BridgeClient struct {
	baseURL     string
	manifestURL string
	httpc       *http.Client
	logger      *slog.Logger
	events      chan Event

	// dialBackoff is the reconnect interval after a lost event stream.
	// It doubles per consecutive failed dial and resets on success.
	dialBackoff time.Duration
}

// NewBridgeClient creates a bridge client. manifestURL is forwarded on
// connect so wallets can display the dapp identity.
func NewBridgeClient(baseURL, manifestURL string, timeout time.Duration, logger *slog.Logger) *BridgeClient {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BridgeClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		manifestURL: manifestURL,
		httpc:       &http.Client{Timeout: timeout},
		logger:      logger.With("component", "wallet-bridge"),
		events:      make(chan Event, 64),
		dialBackoff: time.Second,
	}
}

// Connect asks the bridge to start a pairing and returns the pairing URL.
func (c *BridgeClient) Connect(ctx context.Context, userID, walletAppID string) (string, error) {
	var resp struct {
		PairingURL string `json:"pairing_url"`
	}
	err := c.post(ctx, "/v1/connect", map[string]string{
		"user_id":      userID,
		"wallet_app":   walletAppID,
		"manifest_url": c.manifestURL,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("starting pairing: %w", err)
	}
	if resp.PairingURL == "" {
		return "", fmt.Errorf("starting pairing: bridge returned no pairing url")
	}
	return resp.PairingURL, nil
}

// Disconnect asks the bridge to tear down the user's pairing.
func (c *BridgeClient) Disconnect(ctx context.Context, userID string) error {
	if err := c.post(ctx, "/v1/disconnect", map[string]string{"user_id": userID}, nil); err != nil {
		return fmt.Errorf("disconnecting: %w", err)
	}
	return nil
}

// SendTransaction submits messages for signing and returns the request id.
// Each submission carries a fresh idempotency key so a retried HTTP call
// cannot create a second signing request.
func (c *BridgeClient) SendTransaction(ctx context.Context, userID string, messages []Message, validity time.Duration) (string, error) {
	var resp struct {
		RequestID string `json:"request_id"`
	}
	err := c.post(ctx, "/v1/transactions", map[string]any{
		"user_id":         userID,
		"valid_until":     time.Now().Add(validity).Unix(),
		"messages":        messages,
		"idempotency_key": uuid.NewString(),
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("sending transaction: %w", err)
	}
	if resp.RequestID == "" {
		return "", fmt.Errorf("sending transaction: bridge returned no request id")
	}
	return resp.RequestID, nil
}

// CancelPending withdraws an outstanding signing request.
func (c *BridgeClient) CancelPending(ctx context.Context, userID, requestID string) error {
	err := c.post(ctx, "/v1/transactions/cancel", map[string]string{
		"user_id":    userID,
		"request_id": requestID,
	}, nil)
	if err != nil {
		return fmt.Errorf("cancelling request %s: %w", requestID, err)
	}
	return nil
}

// IsPending reports whether the request is still outstanding. Transport
// failures are logged and reported as not pending.
func (c *BridgeClient) IsPending(ctx context.Context, userID, requestID string) bool {
	if requestID == "" {
		return false
	}
	u := fmt.Sprintf("%s/v1/transactions/pending?user_id=%s&request_id=%s",
		c.baseURL, url.QueryEscape(userID), url.QueryEscape(requestID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false
	}
	httpResp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Debug("pending check failed", "request_id", requestID, "error", err)
		return false
	}
	defer httpResp.Body.Close()

	var resp struct {
		Pending bool `json:"pending"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return false
	}
	return resp.Pending
}

// Events returns the inbound event channel.
func (c *BridgeClient) Events() <-chan Event {
	return c.events
}

// Run consumes the bridge's websocket event stream until ctx is cancelled,
// reconnecting with backoff on stream failures. The events channel is
// closed on return.
func (c *BridgeClient) Run(ctx context.Context) {
	defer close(c.events)

	backoff := c.dialBackoff
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		connected, err := c.consumeStream(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			// The dial succeeded, so the escalated interval belongs to a
			// previous outage.
			backoff = c.dialBackoff
		}
		c.logger.Warn("event stream lost, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// consumeStream opens the websocket and pumps events until it breaks.
// The bool reports whether the dial itself succeeded.
func (c *BridgeClient) consumeStream(ctx context.Context) (bool, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/v1/events"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return false, fmt.Errorf("dialing event stream: %w", err)
	}
	defer conn.Close()

	c.logger.Info("wallet event stream connected", "url", wsURL)

	// Unblock ReadJSON when ctx is cancelled
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var evt Event
		if err := conn.ReadJSON(&evt); err != nil {
			return true, fmt.Errorf("reading event: %w", err)
		}
		if evt.UserID == "" || evt.Kind == "" {
			c.logger.Debug("dropping malformed bridge event")
			continue
		}

		select {
		case c.events <- evt:
		case <-ctx.Done():
			return true, ctx.Err()
		}
	}
}

// post issues a JSON POST and decodes the 2xx response into out (if non-nil).
func (c *BridgeClient) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
