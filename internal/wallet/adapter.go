// ABOUTME: Connector interface for the external wallet-pairing protocol
// ABOUTME: Connect/disconnect/send/cancel operations plus the event channel

package wallet

import (
	"context"
	"time"
)

// Message is one transfer inside a wallet transaction request. Amount and
// Payload are passed through opaquely to the wallet protocol.
type Message struct {
	Address   string `json:"address"`
	Amount    string `json:"amount"`
	Payload   string `json:"payload,omitempty"`
	StateInit string `json:"state_init,omitempty"`
}

// Connector wraps the external wallet-pairing protocol. All operations are
// keyed by user id. Connect and SendTransaction only initiate the protocol
// exchange: the outcome arrives later on the Events channel.
type Connector interface {
	// Connect starts a pairing for the user with the chosen wallet app and
	// returns the pairing URL to present (QR code or deep link). The
	// Connected / ConnectFailed event arrives asynchronously.
	Connect(ctx context.Context, userID, walletAppID string) (string, error)

	// Disconnect tears down the user's pairing. Completion is signalled by
	// a Disconnected / DisconnectFailed event.
	Disconnect(ctx context.Context, userID string) error

	// SendTransaction submits messages for signing and returns the request
	// id used to correlate the eventual confirmation or failure event.
	SendTransaction(ctx context.Context, userID string, messages []Message, validity time.Duration) (string, error)

	// CancelPending withdraws an outstanding signing request. Best effort:
	// callers proceed even if the cancel fails.
	CancelPending(ctx context.Context, userID, requestID string) error

	// IsPending reports whether the given request is still outstanding.
	IsPending(ctx context.Context, userID, requestID string) bool

	// Events is the inbound event channel. It is closed when the connector
	// shuts down.
	Events() <-chan Event
}
