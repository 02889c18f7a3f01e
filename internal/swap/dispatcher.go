// ABOUTME: Per-user serialized event dispatch around the state machine
// ABOUTME: FIFO mailbox per user, session load/persist, wallet event pump

package swap

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/screen"
	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/session"
	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/wallet"
)

// Transport delivers rendered screens to a user and retracts old ones.
// Implemented by the chat frontend.
type Transport interface {
	// SendScreen shows a screen and returns an opaque message reference
	// used for later retraction.
	SendScreen(ctx context.Context, userID string, sc screen.Screen) (string, error)

	// RetractMessage removes a previously sent screen. Best effort.
	RetractMessage(ctx context.Context, userID, ref string) error
}

const (
	mailboxSize   = 32
	handleTimeout = 45 * time.Second
)

// Dispatcher funnels every inbound event through a per-user FIFO
// mailbox. Within one user events are handled strictly in arrival order;
// across users they run concurrently. Each event is handled with the
// user's session loaded fresh from the store and persisted afterwards.
type Dispatcher struct {
	machine   *Machine
	store     session.Store
	transport Transport
	logger    *slog.Logger

	mu        sync.Mutex
	mailboxes map[string]chan Event
	closed    bool
	wg        sync.WaitGroup
}

// NewDispatcher builds a dispatcher around machine, store and transport.
func NewDispatcher(machine *Machine, store session.Store, transport Transport, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		machine:   machine,
		store:     store,
		transport: transport,
		logger:    logger.With("component", "swap-dispatcher"),
		mailboxes: make(map[string]chan Event),
	}
}

// Submit enqueues one event for the user. The first event for a user
// starts that user's worker. When the mailbox is full the event is
// dropped with a log line rather than blocking the caller.
func (d *Dispatcher) Submit(userID string, ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	mb, ok := d.mailboxes[userID]
	if !ok {
		mb = make(chan Event, mailboxSize)
		d.mailboxes[userID] = mb
		d.wg.Add(1)
		go d.worker(userID, mb)
	}

	// The send stays under the lock so Close cannot close the mailbox
	// between the closed check and the enqueue.
	select {
	case mb <- ev:
	default:
		d.logger.Warn("mailbox full, dropping event", "user_id", userID)
	}
}

// Run consumes wallet-protocol events until ctx is cancelled or the
// channel closes, then shuts the dispatcher down and drains the workers.
func (d *Dispatcher) Run(ctx context.Context, events <-chan wallet.Event) {
	defer d.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.UserID == "" {
				d.logger.Warn("wallet event without user id", "kind", ev.Kind)
				continue
			}
			d.Submit(ev.UserID, WalletEvent{Event: ev})
		}
	}
}

// Close stops accepting events and waits for in-flight ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, mb := range d.mailboxes {
		close(mb)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(userID string, mb <-chan Event) {
	defer d.wg.Done()
	for ev := range mb {
		d.process(userID, ev)
	}
}

func (d *Dispatcher) process(userID string, ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	s, err := d.store.Get(ctx, userID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		s = session.New(userID)
	case err != nil:
		d.logger.Error("loading session failed", "error", err, "user_id", userID)
		return
	}

	screens := d.machine.Handle(ctx, s, ev)

	for _, sc := range screens {
		if s.LastMessageRef != "" {
			if err := d.transport.RetractMessage(ctx, userID, s.LastMessageRef); err != nil {
				d.logger.Debug("retracting message failed", "error", err, "user_id", userID)
			}
			s.LastMessageRef = ""
		}
		ref, err := d.transport.SendScreen(ctx, userID, sc)
		if err != nil {
			d.logger.Error("sending screen failed", "error", err, "user_id", userID)
			continue
		}
		s.LastMessageRef = ref
	}

	s.UpdatedAt = time.Now()
	if err := d.store.Put(ctx, s); err != nil {
		d.logger.Error("persisting session failed", "error", err, "user_id", userID)
	}
}
