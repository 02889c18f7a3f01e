// Package session defines the per-user swap conversation state and its
// persistence.
//
// A SwapSession records which Screen the conversation is on, the draft
// swap parameters, routing options, and the bookkeeping fields the state
// machine needs to reconcile asynchronous wallet events (PendingRequestID,
// PendingRoute, LastMessageRef).
//
// The Store interface abstracts persistence. SQLiteStore is the production
// implementation; MemoryStore backs tests. Sessions are created lazily by
// the caller on the first interaction and are never explicitly expired.
package session
