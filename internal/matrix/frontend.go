// ABOUTME: Matrix client frontend feeding the swap dispatcher
// ABOUTME: Sync loop, inbound event mapping, screen delivery and retraction

package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/screen"
	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/swap"
)

// Config holds the Matrix connection and bridge behavior settings.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string

	// CommandPrefix marks explicit commands, e.g. "!swap disconnect".
	// A bare prefix maps to the start command.
	CommandPrefix string

	// AllowedUsers limits who the bot listens to. Empty allows everyone.
	AllowedUsers []string

	TypingIndicator bool

	// DedupeTTL bounds how long event ids are remembered to absorb
	// sync redeliveries.
	DedupeTTL time.Duration
}

// Sink receives the mapped events. Implemented by the swap dispatcher.
type Sink interface {
	Submit(userID string, ev swap.Event)
}

const (
	defaultCommandPrefix = "!swap"
	defaultDedupeTTL     = 10 * time.Minute
	dedupeMaxSize        = 4096

	typingTimeout  = 30 * time.Second
	networkTimeout = 10 * time.Second
)

// ErrNoRoom is returned when a screen is addressed to a user the
// frontend has never received a message from.
var ErrNoRoom = errors.New("no known room for user")

// Frontend bridges one Matrix account to the dispatcher. Users are keyed
// by their Matrix user id; replies go to the room their last message
// came from.
type Frontend struct {
	cfg    Config
	client *mautrix.Client
	logger *slog.Logger
	seen   *seenCache
	start  time.Time

	mu     sync.Mutex
	sink   Sink
	rooms  map[string]id.RoomID
	labels map[string]map[string]string
}

// New builds the frontend. Attach a sink before calling Run.
func New(cfg Config, logger *slog.Logger) (*Frontend, error) {
	if cfg.CommandPrefix == "" {
		cfg.CommandPrefix = defaultCommandPrefix
	}
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = defaultDedupeTTL
	}

	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}

	return &Frontend{
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "matrix"),
		seen:   newSeenCache(cfg.DedupeTTL, dedupeMaxSize),
		start:  time.Now(),
		rooms:  make(map[string]id.RoomID),
		labels: make(map[string]map[string]string),
	}, nil
}

// AttachSink wires the event consumer. Must be called before Run.
func (f *Frontend) AttachSink(sink Sink) {
	f.mu.Lock()
	f.sink = sink
	f.mu.Unlock()
}

// Run syncs with the homeserver until ctx is cancelled.
func (f *Frontend) Run(ctx context.Context) error {
	syncer, ok := f.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", f.client.Syncer)
	}
	syncer.OnEventType(event.EventMessage, f.handleMessage)

	f.logger.Info("connecting to matrix homeserver",
		"homeserver", f.cfg.Homeserver, "user_id", f.cfg.UserID)

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- f.client.SyncWithContext(ctx)
	}()

	select {
	case <-ctx.Done():
		f.logger.Info("matrix frontend shutting down")
		return nil
	case err := <-syncErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("matrix sync failed: %w", err)
		}
		return nil
	}
}

func (f *Frontend) handleMessage(ctx context.Context, evt *event.Event) {
	if evt.Sender == id.UserID(f.cfg.UserID) {
		return
	}
	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok || content.MsgType != event.MsgText {
		return
	}

	sender := evt.Sender.String()
	if !f.userAllowed(sender) {
		f.logger.Debug("ignoring message from non-allowed user", "sender", sender)
		return
	}

	// Skip history replayed by the initial sync and redelivered events.
	if time.UnixMilli(evt.Timestamp).Before(f.start) {
		return
	}
	if f.seen.seen(evt.ID.String()) {
		return
	}

	body := strings.TrimSpace(content.Body)
	if body == "" {
		return
	}

	f.mu.Lock()
	f.rooms[sender] = evt.RoomID
	sink := f.sink
	f.mu.Unlock()
	if sink == nil {
		f.logger.Error("no sink attached, dropping message", "sender", sender)
		return
	}

	f.logger.Debug("received message", "sender", sender, "room", evt.RoomID.String())

	if f.cfg.TypingIndicator {
		f.setTyping(evt.RoomID, true)
	}
	sink.Submit(sender, f.mapEvent(sender, body))
}

// mapEvent turns a message body into a state-machine event: commands by
// prefix, button presses by label match, free text otherwise.
func (f *Frontend) mapEvent(sender, body string) swap.Event {
	if rest, ok := strings.CutPrefix(body, f.cfg.CommandPrefix); ok {
		name := "start"
		if fields := strings.Fields(rest); len(fields) > 0 {
			name = strings.ToLower(fields[0])
		}
		return swap.Command{Name: name}
	}

	f.mu.Lock()
	action, ok := f.labels[sender][normalizeLabel(body)]
	f.mu.Unlock()
	if ok {
		return swap.ButtonPress{Action: action}
	}
	return swap.TextInput{Text: body}
}

func (f *Frontend) userAllowed(sender string) bool {
	if len(f.cfg.AllowedUsers) == 0 {
		return true
	}
	for _, u := range f.cfg.AllowedUsers {
		if u == sender {
			return true
		}
	}
	return false
}

// SendScreen renders the screen into the user's room and remembers its
// option labels for reply matching. The returned reference identifies
// the message for later retraction.
func (f *Frontend) SendScreen(ctx context.Context, userID string, sc screen.Screen) (string, error) {
	f.mu.Lock()
	room, ok := f.rooms[userID]
	f.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoRoom, userID)
	}

	var options []replyOption
	var links []namedLink
	labelMap := make(map[string]string)
	for _, a := range sc.Actions {
		switch {
		case a.URL != "":
			links = append(links, namedLink{label: a.Label, url: a.URL})
		case a.Action != "":
			options = append(options, replyOption{label: a.Label, action: a.Action})
			labelMap[normalizeLabel(a.Label)] = a.Action
		}
	}

	body := renderBody(sc.Text, options, links)
	content := &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    body,
	}
	if html, err := renderHTML(body); err == nil {
		content.Format = event.FormatHTML
		content.FormattedBody = html
	} else {
		f.logger.Warn("falling back to plain text", "error", err, "user_id", userID)
	}

	if f.cfg.TypingIndicator {
		f.setTyping(room, false)
	}

	resp, err := f.client.SendMessageEvent(ctx, room, event.EventMessage, content)
	if err != nil {
		return "", fmt.Errorf("sending screen: %w", err)
	}

	f.mu.Lock()
	f.labels[userID] = labelMap
	f.mu.Unlock()

	return encodeRef(room, resp.EventID), nil
}

// RetractMessage redacts a previously sent screen.
func (f *Frontend) RetractMessage(ctx context.Context, userID, ref string) error {
	room, eventID, err := decodeRef(ref)
	if err != nil {
		return err
	}
	if _, err := f.client.RedactEvent(ctx, room, eventID); err != nil {
		return fmt.Errorf("redacting message: %w", err)
	}
	return nil
}

func (f *Frontend) setTyping(room id.RoomID, typing bool) {
	var timeout time.Duration
	if typing {
		timeout = typingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()
	if _, err := f.client.UserTyping(ctx, room, typing, timeout); err != nil {
		f.logger.Debug("setting typing indicator failed", "room", room.String(), "error", err)
	}
}

// encodeRef packs room and event id into one opaque reference.
func encodeRef(room id.RoomID, eventID id.EventID) string {
	return room.String() + "|" + eventID.String()
}

func decodeRef(ref string) (id.RoomID, id.EventID, error) {
	room, ev, ok := strings.Cut(ref, "|")
	if !ok || room == "" || ev == "" {
		return "", "", fmt.Errorf("malformed message reference %q", ref)
	}
	return id.RoomID(room), id.EventID(ev), nil
}
