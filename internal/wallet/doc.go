// Package wallet wraps the external wallet-pairing protocol behind the
// Connector interface: connect, disconnect, send-transaction and
// cancel-pending commands plus an inbound channel of typed Events.
//
// Operations only initiate a protocol exchange; outcomes (Connected,
// TransactionConfirmed, failures with a UserRejected/Timeout/Other
// sub-variant) arrive asynchronously on Events and may interleave
// arbitrarily with commands. BridgeClient is the production implementation
// talking to a pairing bridge service over HTTP and a websocket event
// stream.
package wallet
