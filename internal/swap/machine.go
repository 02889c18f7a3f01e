// ABOUTME: The conversation state machine driving the swap flow
// ABOUTME: Maps (session, event) to session mutations and screens to render

package swap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/intent"
	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/route"
	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/screen"
	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/session"
	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/wallet"
)

// TokenResolver maps token symbols to on-chain addresses.
type TokenResolver interface {
	Resolve(symbol string) (string, bool)
	Symbols() []string
}

// RoutePlanner quotes swap routes and builds signable transactions.
type RoutePlanner interface {
	Quote(ctx context.Context, qr route.QuoteRequest) (*route.Route, error)
	Prepare(ctx context.Context, pr route.PrepareRequest) ([]route.TransactionPayload, error)
}

// WalletControl is the command side of the wallet protocol. Outcomes
// arrive separately as WalletEvents through the dispatcher.
type WalletControl interface {
	Connect(ctx context.Context, userID, walletAppID string) (string, error)
	Disconnect(ctx context.Context, userID string) error
	SendTransaction(ctx context.Context, userID string, messages []wallet.Message, validity time.Duration) (string, error)
	CancelPending(ctx context.Context, userID, requestID string) error
}

// Config carries the machine's swap-execution knobs.
type Config struct {
	// TransactionValidity bounds how long a submitted transaction stays
	// signable in the wallet.
	TransactionValidity time.Duration

	// MEVProtection is passed through to the transaction builder.
	MEVProtection bool
}

const defaultTransactionValidity = 10 * time.Minute

// Machine applies one event to one session. It never does its own
// locking: the dispatcher guarantees events for a user arrive one at a
// time, and the session passed in is exclusively owned for the call.
type Machine struct {
	tokens  TokenResolver
	routes  RoutePlanner
	wallets WalletControl
	catalog *wallet.Catalog
	intents intent.Extractor
	cfg     Config
	logger  *slog.Logger
}

// NewMachine wires the machine's collaborators.
func NewMachine(tokens TokenResolver, routes RoutePlanner, wallets WalletControl, catalog *wallet.Catalog, intents intent.Extractor, cfg Config, logger *slog.Logger) *Machine {
	if cfg.TransactionValidity <= 0 {
		cfg.TransactionValidity = defaultTransactionValidity
	}
	return &Machine{
		tokens:  tokens,
		routes:  routes,
		wallets: wallets,
		catalog: catalog,
		intents: intents,
		cfg:     cfg,
		logger:  logger.With("component", "swap-machine"),
	}
}

// Handle applies ev to s and returns the screens to render, in order.
// A nil return means the event was dropped (stale or not applicable on
// the current screen) and nothing should be shown.
func (m *Machine) Handle(ctx context.Context, s *session.SwapSession, ev Event) []screen.Screen {
	switch e := ev.(type) {
	case Command:
		return m.handleCommand(ctx, s, e.Name)
	case ButtonPress:
		return m.handleButton(ctx, s, e.Action)
	case TextInput:
		return m.handleText(ctx, s, e.Text)
	case WalletEvent:
		return m.handleWalletEvent(s, e.Event)
	}
	return nil
}

func one(sc screen.Screen) []screen.Screen {
	return []screen.Screen{sc}
}

func (m *Machine) handleCommand(ctx context.Context, s *session.SwapSession, name string) []screen.Screen {
	switch name {
	case "disconnect":
		return m.disconnect(ctx, s)
	case "start":
	default:
		// A mistyped command must not restart the flow, which would
		// withdraw an outstanding wallet request.
		m.logger.Debug("unknown command", "command", name, "user_id", s.UserID)
		return m.renderCurrent(s)
	}
	if s.Connected() {
		// Starting over withdraws any outstanding wallet request.
		if s.PendingRequestID != "" {
			if err := m.wallets.CancelPending(ctx, s.UserID, s.PendingRequestID); err != nil {
				m.logger.Warn("cancel pending request failed", "error", err, "user_id", s.UserID)
			}
		}
		s.ClearPending()
		s.Screen = session.ScreenMainMenu
		s.PreviousScreen = ""
		return one(screen.MainMenu(s.WalletAddress))
	}
	return m.connect(ctx, s)
}

func (m *Machine) handleButton(ctx context.Context, s *session.SwapSession, action string) []screen.Screen {
	// An outstanding wallet request pins the session: until the wallet
	// answers, only cancel and disconnect may move it. Buttons from
	// earlier prompts can still arrive here because retraction is best
	// effort.
	if s.Screen == session.ScreenAwaitingWallet || s.PendingRequestID != "" {
		switch action {
		case screen.ActionCancel:
			return m.cancel(ctx, s)
		case screen.ActionDisconnect:
			return m.disconnect(ctx, s)
		}
		m.logger.Debug("dropping action while wallet confirmation pending",
			"action", action, "user_id", s.UserID)
		return m.renderCurrent(s)
	}

	if app, ok := screen.ParseSelectWallet(action); ok {
		if s.Connected() {
			return nil
		}
		s.SelectedWallet = app
		return m.connect(ctx, s)
	}

	switch action {
	case screen.ActionConnectWallet:
		if s.Connected() {
			s.Screen = session.ScreenMainMenu
			return one(screen.MainMenu(s.WalletAddress))
		}
		return m.connect(ctx, s)

	case screen.ActionDisconnect:
		return m.disconnect(ctx, s)

	case screen.ActionMainMenu:
		if !s.Connected() {
			return one(connectHint())
		}
		s.Screen = session.ScreenMainMenu
		s.PreviousScreen = ""
		return one(screen.MainMenu(s.WalletAddress))

	case screen.ActionStartSwap:
		if !s.Connected() {
			return one(connectHint())
		}
		if s.Draft.InputSymbol != "" {
			s.Screen = session.ScreenSwapReview
			s.PreviousScreen = ""
			return one(screen.SwapReview(s.Draft))
		}
		s.Screen = session.ScreenEditingToken1
		s.PreviousScreen = session.ScreenMainMenu
		return one(screen.TokenPrompt(1, m.tokens.Symbols()))

	case screen.ActionEditToken1:
		s.Screen = session.ScreenEditingToken1
		s.PreviousScreen = session.ScreenSwapReview
		return one(screen.TokenPrompt(1, m.tokens.Symbols()))

	case screen.ActionEditToken2:
		s.Screen = session.ScreenEditingToken2
		s.PreviousScreen = session.ScreenSwapReview
		return one(screen.TokenPrompt(2, m.tokens.Symbols()))

	case screen.ActionEditAmount:
		s.Screen = session.ScreenEditingAmount
		s.PreviousScreen = session.ScreenSwapReview
		return one(screen.AmountPrompt(s.Draft))

	case screen.ActionToggleDirection:
		if s.Draft.Direction == session.AmountIsOutput {
			s.Draft.Direction = session.AmountIsInput
		} else {
			s.Draft.Direction = session.AmountIsOutput
		}
		s.ClearDraftRoute()
		s.Screen = session.ScreenSwapReview
		return one(screen.SwapReview(s.Draft))

	case screen.ActionOptions:
		// The options menu is a view over the current screen, not a
		// screen of its own.
		return one(screen.OptionsMenu(s.Options))

	case screen.ActionSetSlippage:
		return m.enterOption(s, session.ScreenSettingSlippage)
	case screen.ActionSetMaxSplits:
		return m.enterOption(s, session.ScreenSettingMaxSplits)
	case screen.ActionSetMaxLength:
		return m.enterOption(s, session.ScreenSettingMaxLength)

	case screen.ActionBuildRoute:
		return m.buildRoute(ctx, s)

	case screen.ActionConfirm:
		return m.confirm(ctx, s)

	case screen.ActionBack:
		return m.back(s)

	case screen.ActionCancel:
		return m.cancel(ctx, s)
	}

	m.logger.Debug("unknown action", "action", action, "user_id", s.UserID)
	return nil
}

func (m *Machine) enterOption(s *session.SwapSession, target session.Screen) []screen.Screen {
	s.PreviousScreen = s.Screen
	s.Screen = target
	return one(screen.OptionPrompt(target))
}

func (m *Machine) back(s *session.SwapSession) []screen.Screen {
	switch s.Screen {
	case session.ScreenAwaitingRoute:
		s.PendingRoute = nil
		s.Screen = session.ScreenSwapReview
		s.PreviousScreen = ""
		return one(screen.SwapReview(s.Draft))

	case session.ScreenSettingSlippage, session.ScreenSettingMaxSplits, session.ScreenSettingMaxLength:
		return m.leaveOption(s)
	}
	return m.renderCurrent(s)
}

func (m *Machine) leaveOption(s *session.SwapSession) []screen.Screen {
	target := s.PreviousScreen
	if !target.Valid() || target == s.Screen {
		target = session.ScreenMainMenu
	}
	s.Screen = target
	s.PreviousScreen = ""
	return one(screen.OptionsMenu(s.Options))
}

func (m *Machine) cancel(ctx context.Context, s *session.SwapSession) []screen.Screen {
	switch s.Screen {
	case session.ScreenAwaitingWallet:
		if s.PendingRequestID != "" {
			if err := m.wallets.CancelPending(ctx, s.UserID, s.PendingRequestID); err != nil {
				m.logger.Warn("cancel pending request failed", "error", err, "user_id", s.UserID)
			}
		}
		s.ClearPending()
		s.Screen = session.ScreenMainMenu
		s.PreviousScreen = ""
		return one(screen.MainMenu(s.WalletAddress))

	case session.ScreenEditingToken1, session.ScreenEditingToken2, session.ScreenEditingAmount:
		if s.PreviousScreen == session.ScreenSwapReview {
			s.Screen = session.ScreenSwapReview
			s.PreviousScreen = ""
			return one(screen.SwapReview(s.Draft))
		}
		s.Screen = session.ScreenMainMenu
		s.PreviousScreen = ""
		return one(screen.MainMenu(s.WalletAddress))

	case session.ScreenSettingSlippage, session.ScreenSettingMaxSplits, session.ScreenSettingMaxLength:
		return m.leaveOption(s)

	case session.ScreenSwapReview, session.ScreenAwaitingRoute:
		s.PendingRoute = nil
		s.Screen = session.ScreenMainMenu
		s.PreviousScreen = ""
		return one(screen.MainMenu(s.WalletAddress))
	}
	return m.renderCurrent(s)
}

func (m *Machine) handleText(ctx context.Context, s *session.SwapSession, text string) []screen.Screen {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	switch s.Screen {
	case session.ScreenDisconnected:
		return one(connectHint())

	case session.ScreenEditingToken1:
		return m.acceptToken(s, text, 1)
	case session.ScreenEditingToken2:
		return m.acceptToken(s, text, 2)

	case session.ScreenEditingAmount:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return one(screen.Error("Amount must be a positive number, e.g. `10.5`.", "Cancel", screen.ActionCancel))
		}
		s.Draft.Amount = v
		s.ClearDraftRoute()
		s.Screen = session.ScreenSwapReview
		s.PreviousScreen = ""
		return one(screen.SwapReview(s.Draft))

	case session.ScreenSettingSlippage:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil || v < 0 || v > 1 {
			return one(screen.Error("Slippage must be a number between 0 and 1.", "Cancel", screen.ActionBack))
		}
		s.Options.Slippage = v
		return m.leaveOption(s)

	case session.ScreenSettingMaxSplits:
		v, err := strconv.Atoi(text)
		if err != nil || v < 1 || v > 20 {
			return one(screen.Error("Max splits must be an integer between 1 and 20.", "Cancel", screen.ActionBack))
		}
		s.Options.MaxSplits = v
		return m.leaveOption(s)

	case session.ScreenSettingMaxLength:
		v, err := strconv.Atoi(text)
		if err != nil || v < 2 || v > 5 {
			return one(screen.Error("Max length must be an integer between 2 and 5.", "Cancel", screen.ActionBack))
		}
		s.Options.MaxLength = v
		return m.leaveOption(s)

	case session.ScreenMainMenu, session.ScreenSwapReview:
		return m.acceptIntent(ctx, s, text)
	}

	// Awaiting screens: free text changes nothing, just restate the prompt.
	return m.renderCurrent(s)
}

func (m *Machine) acceptToken(s *session.SwapSession, text string, which int) []screen.Screen {
	sym := strings.ToUpper(strings.TrimSpace(text))
	if _, ok := m.tokens.Resolve(sym); !ok {
		return one(screen.Error(fmt.Sprintf("Token `%s` isn't supported.", sym), "Cancel", screen.ActionCancel))
	}

	other := s.Draft.OutputSymbol
	if which == 2 {
		other = s.Draft.InputSymbol
	}
	if sym == other {
		return one(screen.Error("Input and output tokens must differ.", "Cancel", screen.ActionCancel))
	}

	if which == 1 {
		s.Draft.InputSymbol = sym
	} else {
		s.Draft.OutputSymbol = sym
	}
	s.ClearDraftRoute()

	// Every accepted edit lands back on the review hub.
	s.Screen = session.ScreenSwapReview
	s.PreviousScreen = ""
	return one(screen.SwapReview(s.Draft))
}

func (m *Machine) acceptIntent(ctx context.Context, s *session.SwapSession, text string) []screen.Screen {
	it, err := m.intents.Extract(ctx, text)
	if err != nil {
		if !errors.Is(err, intent.ErrNoIntent) {
			m.logger.Warn("intent extraction failed", "error", err, "user_id", s.UserID)
		}
		return m.renderCurrent(s)
	}

	for _, sym := range []string{it.InputSymbol, it.OutputSymbol} {
		if _, ok := m.tokens.Resolve(sym); !ok {
			return one(screen.Error(fmt.Sprintf("Token `%s` isn't supported.", sym), "Main menu", screen.ActionMainMenu))
		}
	}

	s.Draft = session.Draft{
		InputSymbol:  it.InputSymbol,
		OutputSymbol: it.OutputSymbol,
		Amount:       it.Amount,
		Direction:    session.AmountIsInput,
	}
	s.ClearDraftRoute()
	s.Screen = session.ScreenSwapReview
	s.PreviousScreen = ""
	return one(screen.SwapReview(s.Draft))
}

func (m *Machine) buildRoute(ctx context.Context, s *session.SwapSession) []screen.Screen {
	s.Screen = session.ScreenSwapReview
	s.PreviousScreen = ""
	if !s.Draft.Complete() {
		return one(screen.SwapReview(s.Draft))
	}

	inAddr, ok := m.tokens.Resolve(s.Draft.InputSymbol)
	if !ok {
		return one(screen.Error(fmt.Sprintf("Token `%s` isn't supported anymore.", s.Draft.InputSymbol), "Change token", screen.ActionEditToken1))
	}
	outAddr, ok := m.tokens.Resolve(s.Draft.OutputSymbol)
	if !ok {
		return one(screen.Error(fmt.Sprintf("Token `%s` isn't supported anymore.", s.Draft.OutputSymbol), "Change token", screen.ActionEditToken2))
	}

	r, err := m.routes.Quote(ctx, route.QuoteRequest{
		InputAddress:  inAddr,
		OutputAddress: outAddr,
		Amount:        s.Draft.Amount,
		AmountIsInput: s.Draft.Direction != session.AmountIsOutput,
		MaxSplits:     s.Options.MaxSplits,
		MaxLength:     s.Options.MaxLength,
	})
	if err != nil {
		m.logger.Warn("route quote failed", "error", err, "user_id", s.UserID)
		return one(screen.Error("The routing service is unavailable right now. Try again in a moment.", "Retry", screen.ActionBuildRoute))
	}
	if r.Empty() {
		s.ClearDraftRoute()
		return one(screen.RouteNotFound())
	}

	raw, err := json.Marshal(r)
	if err != nil {
		m.logger.Error("encoding quoted route failed", "error", err, "user_id", s.UserID)
		return one(screen.Error("The routing service returned an unusable route. Try again.", "Retry", screen.ActionBuildRoute))
	}
	s.PendingRoute = raw
	s.Screen = session.ScreenAwaitingRoute
	s.PreviousScreen = session.ScreenSwapReview
	return one(screen.RouteSummary(r, s.Options))
}

func (m *Machine) confirm(ctx context.Context, s *session.SwapSession) []screen.Screen {
	// One outstanding wallet request at a time: a confirm that races a
	// previous confirm, or arrives on a stale screen, is dropped.
	if s.Screen != session.ScreenAwaitingRoute || len(s.PendingRoute) == 0 || s.PendingRequestID != "" {
		return nil
	}

	var r route.Route
	if err := json.Unmarshal(s.PendingRoute, &r); err != nil {
		m.logger.Error("decoding stored route failed", "error", err, "user_id", s.UserID)
		s.ClearDraftRoute()
		s.Screen = session.ScreenSwapReview
		return one(screen.Error("The stored route is no longer usable. Build it again.", "Build route", screen.ActionBuildRoute))
	}

	payloads, err := m.routes.Prepare(ctx, route.PrepareRequest{
		SenderAddress: s.WalletAddress,
		Slippage:      s.Options.Slippage,
		MEVProtection: m.cfg.MEVProtection,
		Paths:         r.Paths,
	})
	if err != nil {
		m.logger.Warn("transaction build failed", "error", err, "user_id", s.UserID)
		s.ClearDraftRoute()
		s.Screen = session.ScreenSwapReview
		return one(screen.Error("Could not build the transaction. Build the route again.", "Build route", screen.ActionBuildRoute))
	}

	msgs := make([]wallet.Message, 0, len(payloads))
	for _, p := range payloads {
		msgs = append(msgs, wallet.Message{
			Address:   p.Address,
			Amount:    p.Value.String(),
			Payload:   p.Cell,
			StateInit: p.StateInit,
		})
	}

	reqID, err := m.wallets.SendTransaction(ctx, s.UserID, msgs, m.cfg.TransactionValidity)
	if err != nil {
		m.logger.Warn("sending transaction failed", "error", err, "user_id", s.UserID)
		s.ClearDraftRoute()
		s.Screen = session.ScreenSwapReview
		return one(screen.Error("Could not deliver the transaction to the wallet. Build the route again.", "Build route", screen.ActionBuildRoute))
	}

	s.PendingRequestID = reqID
	s.PendingRoute = nil
	s.Screen = session.ScreenAwaitingWallet
	s.PreviousScreen = session.ScreenSwapReview
	return one(screen.AwaitingWallet(m.catalog.ByAppName(s.SelectedWallet).DisplayName))
}

func (m *Machine) handleWalletEvent(s *session.SwapSession, ev wallet.Event) []screen.Screen {
	switch ev.Kind {
	case wallet.EventConnected:
		if ev.WalletAddress == "" {
			return nil
		}
		s.WalletAddress = ev.WalletAddress
		s.ClearPending()
		s.Screen = session.ScreenMainMenu
		s.PreviousScreen = ""
		return one(screen.MainMenu(s.WalletAddress))

	case wallet.EventConnectFailed:
		if s.Connected() {
			return nil
		}
		msg := "Wallet pairing failed. Try again."
		if ev.Err != nil && ev.Err.Kind == wallet.ErrTimeout {
			msg = "Wallet pairing timed out. Try again."
		}
		return one(screen.Error(msg, "Connect wallet", screen.ActionConnectWallet))

	case wallet.EventDisconnected:
		if !s.Connected() {
			return nil
		}
		m.resetToDisconnected(s)
		return one(screen.Error("Wallet disconnected.", "Connect wallet", screen.ActionConnectWallet))

	case wallet.EventDisconnectFailed:
		m.logger.Debug("wallet disconnect failed", "user_id", s.UserID, "error", ev.Err)
		return nil

	case wallet.EventTransactionConfirmed:
		if m.staleTransactionEvent(s, ev) {
			return nil
		}
		s.ClearPending()
		s.Draft = session.Draft{Direction: session.AmountIsInput}
		s.Screen = session.ScreenMainMenu
		s.PreviousScreen = ""
		return one(screen.SwapSuccess(ev.TxHash))

	case wallet.EventTransactionFailed:
		if m.staleTransactionEvent(s, ev) {
			return nil
		}
		s.ClearPending()
		s.Screen = session.ScreenSwapReview
		s.PreviousScreen = ""
		msg := "The wallet reported an error."
		if ev.Err != nil {
			switch ev.Err.Kind {
			case wallet.ErrUserRejected:
				msg = "You rejected the transaction in the wallet."
			case wallet.ErrTimeout:
				msg = "The wallet confirmation timed out."
			}
		}
		return one(screen.Error(msg, "Build route again", screen.ActionBuildRoute))
	}

	m.logger.Debug("unknown wallet event", "kind", ev.Kind, "user_id", s.UserID)
	return nil
}

// staleTransactionEvent reports whether a transaction outcome refers to
// anything other than the session's single outstanding request.
func (m *Machine) staleTransactionEvent(s *session.SwapSession, ev wallet.Event) bool {
	if s.Screen != session.ScreenAwaitingWallet || ev.RequestID == "" || ev.RequestID != s.PendingRequestID {
		m.logger.Debug("dropping stale transaction event",
			"user_id", s.UserID, "event_request_id", ev.RequestID, "pending_request_id", s.PendingRequestID)
		return true
	}
	return false
}

func (m *Machine) connect(ctx context.Context, s *session.SwapSession) []screen.Screen {
	app := m.catalog.ByAppName(s.SelectedWallet)
	s.SelectedWallet = app.AppName
	s.Screen = session.ScreenDisconnected
	s.PreviousScreen = ""

	url, err := m.wallets.Connect(ctx, s.UserID, app.AppName)
	if err != nil {
		m.logger.Warn("starting wallet pairing failed", "error", err, "user_id", s.UserID)
		return one(screen.Error("Could not start wallet pairing. Try again.", "Retry", screen.ActionConnectWallet))
	}
	return one(screen.ConnectPrompt(url, m.catalog.Wallets, app))
}

func (m *Machine) disconnect(ctx context.Context, s *session.SwapSession) []screen.Screen {
	if !s.Connected() {
		return m.connect(ctx, s)
	}
	if err := m.wallets.Disconnect(ctx, s.UserID); err != nil {
		m.logger.Warn("wallet disconnect failed", "error", err, "user_id", s.UserID)
	}
	m.resetToDisconnected(s)
	return m.connect(ctx, s)
}

func (m *Machine) resetToDisconnected(s *session.SwapSession) {
	s.WalletAddress = ""
	s.ClearPending()
	s.Draft = session.Draft{Direction: session.AmountIsInput}
	s.Screen = session.ScreenDisconnected
	s.PreviousScreen = ""
}

// renderCurrent restates the screen for the session's current state.
func (m *Machine) renderCurrent(s *session.SwapSession) []screen.Screen {
	switch s.Screen {
	case session.ScreenMainMenu:
		return one(screen.MainMenu(s.WalletAddress))
	case session.ScreenSwapReview:
		return one(screen.SwapReview(s.Draft))
	case session.ScreenEditingToken1:
		return one(screen.TokenPrompt(1, m.tokens.Symbols()))
	case session.ScreenEditingToken2:
		return one(screen.TokenPrompt(2, m.tokens.Symbols()))
	case session.ScreenEditingAmount:
		return one(screen.AmountPrompt(s.Draft))
	case session.ScreenSettingSlippage, session.ScreenSettingMaxSplits, session.ScreenSettingMaxLength:
		return one(screen.OptionPrompt(s.Screen))
	case session.ScreenAwaitingRoute:
		var r route.Route
		if err := json.Unmarshal(s.PendingRoute, &r); err == nil && !r.Empty() {
			return one(screen.RouteSummary(&r, s.Options))
		}
		s.Screen = session.ScreenSwapReview
		return one(screen.SwapReview(s.Draft))
	case session.ScreenAwaitingWallet:
		return one(screen.AwaitingWallet(m.catalog.ByAppName(s.SelectedWallet).DisplayName))
	}
	return one(connectHint())
}

func connectHint() screen.Screen {
	return screen.Error("Connect a wallet to start swapping.", "Connect wallet", screen.ActionConnectWallet)
}
