// ABOUTME: Wallet-protocol event types delivered on the inbound event channel
// ABOUTME: Connection, disconnection and transaction outcomes with typed errors

package wallet

import "fmt"

// EventKind classifies an inbound wallet-protocol event.
type EventKind string

const (
	EventConnected            EventKind = "connected"
	EventDisconnected         EventKind = "disconnected"
	EventTransactionConfirmed EventKind = "transaction_confirmed"
	EventTransactionFailed    EventKind = "transaction_failed"
	EventConnectFailed        EventKind = "connect_failed"
	EventDisconnectFailed     EventKind = "disconnect_failed"
)

// ErrorKind is the sub-variant carried by failure events.
type ErrorKind string

const (
	ErrUserRejected ErrorKind = "user_rejected"
	ErrTimeout      ErrorKind = "timeout"
	ErrOther        ErrorKind = "other"
)

// ProtocolError is the typed error payload of a failure event.
type ProtocolError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message,omitempty"`
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Event is one asynchronous push from the wallet protocol. RequestID is set
// on transaction outcomes and lets the state machine match the event against
// the session's outstanding request; events referencing a stale or absent
// request id are dropped by the consumer.
type Event struct {
	UserID        string         `json:"user_id"`
	Kind          EventKind      `json:"kind"`
	RequestID     string         `json:"request_id,omitempty"`
	TxHash        string         `json:"tx_hash,omitempty"`
	WalletAddress string         `json:"wallet_address,omitempty"`
	Err           *ProtocolError `json:"error,omitempty"`
}
