// Package swap is the conversation core: a per-user state machine over
// swap sessions, plus the dispatcher that serializes events per user.
//
// The machine is pure orchestration. It owns no I/O loops and no
// persistence; it receives one event at a time together with the user's
// session, mutates the session, and returns the screens to render. The
// dispatcher wraps it with per-user FIFO mailboxes so that two events
// from the same user never interleave while different users proceed
// concurrently, loads the session before each event and persists it
// after.
package swap
