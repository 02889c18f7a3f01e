// ABOUTME: Dispatcher tests for per-user ordering and cross-user concurrency
// ABOUTME: Uses a recording transport and the in-memory session store

package swap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/screen"
	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/session"
	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/wallet"
)

type sentScreen struct {
	userID string
	text   string
}

type recordingTransport struct {
	mu        sync.Mutex
	sent      []sentScreen
	retracted []string
	nextRef   int

	// blockUser, when set, makes sends for that user wait on unblock.
	blockUser string
	unblock   chan struct{}
}

func (r *recordingTransport) SendScreen(_ context.Context, userID string, sc screen.Screen) (string, error) {
	if r.blockUser == userID {
		<-r.unblock
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextRef++
	r.sent = append(r.sent, sentScreen{userID: userID, text: sc.Text})
	return fmt.Sprintf("msg-%d", r.nextRef), nil
}

func (r *recordingTransport) RetractMessage(_ context.Context, _, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retracted = append(r.retracted, ref)
	return nil
}

func (r *recordingTransport) snapshot() []sentScreen {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentScreen(nil), r.sent...)
}

type dispatcherFixture struct {
	dispatcher *Dispatcher
	transport  *recordingTransport
	store      *session.MemoryStore
	wallet     *fakeWallet
}

func newDispatcherFixture(t *testing.T) *dispatcherFixture {
	t.Helper()
	mf := newMachineFixture(t)
	store := session.NewMemoryStore()
	transport := &recordingTransport{unblock: make(chan struct{})}
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	d := NewDispatcher(mf.machine, store, transport, logger)
	t.Cleanup(d.Close)
	return &dispatcherFixture{dispatcher: d, transport: transport, store: store, wallet: mf.wallet}
}

func (f *dispatcherFixture) seedConnected(t *testing.T, userID string) {
	t.Helper()
	require.NoError(t, f.store.Put(context.Background(), connectedSession(userID)))
}

func waitForSends(t *testing.T, tr *recordingTransport, n int) []sentScreen {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(tr.snapshot()) >= n
	}, 2*time.Second, 5*time.Millisecond)
	return tr.snapshot()
}

func TestDispatcherHandlesEventsInOrder(t *testing.T) {
	f := newDispatcherFixture(t)
	f.seedConnected(t, "u1")

	// Walk a draft through the mailbox; ordering matters.
	f.dispatcher.Submit("u1", ButtonPress{Action: screen.ActionStartSwap})
	f.dispatcher.Submit("u1", TextInput{Text: "ton"})
	f.dispatcher.Submit("u1", ButtonPress{Action: screen.ActionEditToken2})
	f.dispatcher.Submit("u1", TextInput{Text: "usdt"})
	f.dispatcher.Submit("u1", ButtonPress{Action: screen.ActionEditAmount})
	f.dispatcher.Submit("u1", TextInput{Text: "10"})

	sent := waitForSends(t, f.transport, 6)
	assert.Contains(t, sent[0].text, "pay with")
	assert.Contains(t, sent[1].text, "Swap:")
	assert.Contains(t, sent[2].text, "receive")
	assert.Contains(t, sent[3].text, "Swap:")
	assert.Contains(t, sent[4].text, "amount")
	assert.Contains(t, sent[5].text, "Swap:")

	s, err := f.store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, session.ScreenSwapReview, s.Screen)
	assert.True(t, s.Draft.Complete())
}

func TestDispatcherUsersRunConcurrently(t *testing.T) {
	f := newDispatcherFixture(t)
	f.seedConnected(t, "blocked")
	f.seedConnected(t, "free")
	f.transport.blockUser = "blocked"

	f.dispatcher.Submit("blocked", ButtonPress{Action: screen.ActionStartSwap})
	f.dispatcher.Submit("free", ButtonPress{Action: screen.ActionStartSwap})

	// The free user's screen arrives while the blocked user's send hangs.
	require.Eventually(t, func() bool {
		for _, s := range f.transport.snapshot() {
			if s.userID == "free" {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	close(f.transport.unblock)
	waitForSends(t, f.transport, 2)
}

func TestDispatcherRetractsPreviousPrompt(t *testing.T) {
	f := newDispatcherFixture(t)
	f.seedConnected(t, "u1")

	f.dispatcher.Submit("u1", ButtonPress{Action: screen.ActionStartSwap})
	f.dispatcher.Submit("u1", TextInput{Text: "ton"})
	waitForSends(t, f.transport, 2)

	f.transport.mu.Lock()
	defer f.transport.mu.Unlock()
	assert.Equal(t, []string{"msg-1"}, f.transport.retracted)
}

func TestDispatcherCreatesSessionOnFirstEvent(t *testing.T) {
	f := newDispatcherFixture(t)

	f.dispatcher.Submit("newcomer", Command{Name: "start"})
	waitForSends(t, f.transport, 1)

	s, err := f.store.Get(context.Background(), "newcomer")
	require.NoError(t, err)
	assert.Equal(t, session.ScreenDisconnected, s.Screen)
	assert.NotEmpty(t, s.LastMessageRef)
}

func TestDispatcherRunPumpsWalletEvents(t *testing.T) {
	f := newDispatcherFixture(t)
	events := make(chan wallet.Event, 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.dispatcher.Run(ctx, events)
		close(done)
	}()

	events <- wallet.Event{UserID: "u1", Kind: wallet.EventConnected, WalletAddress: "UQCuser"}

	require.Eventually(t, func() bool {
		s, err := f.store.Get(context.Background(), "u1")
		return err == nil && s.Connected()
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not shut down")
	}
}

func TestDispatcherIgnoresSubmitAfterClose(t *testing.T) {
	f := newDispatcherFixture(t)
	f.dispatcher.Close()

	// Must not panic or deadlock.
	f.dispatcher.Submit("u1", Command{Name: "start"})
	assert.Empty(t, f.transport.snapshot())
}

func TestDispatcherSubmitRacingCloseDoesNotPanic(t *testing.T) {
	f := newDispatcherFixture(t)
	f.seedConnected(t, "u1")

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 200; j++ {
				f.dispatcher.Submit("u1", ButtonPress{Action: screen.ActionOptions})
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		f.dispatcher.Close()
	}()

	close(start)
	wg.Wait()
}
