// ABOUTME: Session data model for the swap bot conversation state
// ABOUTME: Defines Screen enum, Draft, Options and the per-user SwapSession

package session

import (
	"encoding/json"
	"time"
)

// Screen identifies which conversation screen a session is currently on.
// It drives which inbound inputs the state machine accepts.
type Screen string

const (
	ScreenDisconnected     Screen = "disconnected"
	ScreenMainMenu         Screen = "main_menu"
	ScreenEditingToken1    Screen = "editing_token1"
	ScreenEditingToken2    Screen = "editing_token2"
	ScreenEditingAmount    Screen = "editing_amount"
	ScreenSwapReview       Screen = "swap_review"
	ScreenSettingSlippage  Screen = "setting_slippage"
	ScreenSettingMaxSplits Screen = "setting_max_splits"
	ScreenSettingMaxLength Screen = "setting_max_length"
	ScreenAwaitingRoute    Screen = "awaiting_route_confirmation"
	ScreenAwaitingWallet   Screen = "awaiting_wallet_confirmation"
)

// Valid reports whether s is one of the known screens.
func (s Screen) Valid() bool {
	switch s {
	case ScreenDisconnected, ScreenMainMenu,
		ScreenEditingToken1, ScreenEditingToken2, ScreenEditingAmount,
		ScreenSwapReview,
		ScreenSettingSlippage, ScreenSettingMaxSplits, ScreenSettingMaxLength,
		ScreenAwaitingRoute, ScreenAwaitingWallet:
		return true
	}
	return false
}

// Direction says whether the draft amount refers to the input or the
// output side of the swap.
type Direction string

const (
	AmountIsInput  Direction = "input"
	AmountIsOutput Direction = "output"
)

// Draft holds the in-progress swap parameters. Zero values mean "not set".
// Fields are mutable only while the session is on an editing screen.
type Draft struct {
	InputSymbol  string    `json:"input_symbol,omitempty"`
	OutputSymbol string    `json:"output_symbol,omitempty"`
	Amount       float64   `json:"amount,omitempty"`
	Direction    Direction `json:"direction,omitempty"`
}

// Complete reports whether the draft has everything needed to quote a route.
func (d Draft) Complete() bool {
	return d.InputSymbol != "" && d.OutputSymbol != "" && d.Amount > 0
}

// Options are the per-user routing constraints. They persist across swaps
// until the user changes them.
type Options struct {
	Slippage  float64 `json:"slippage"`
	MaxSplits int     `json:"max_splits"`
	MaxLength int     `json:"max_length"`
}

// DefaultOptions returns the options applied to a fresh session.
func DefaultOptions() Options {
	return Options{
		Slippage:  0.05,
		MaxSplits: 1,
		MaxLength: 2,
	}
}

// SwapSession is the full per-user conversation state. It is owned
// exclusively by the state machine; the dispatcher loads it before each
// event and persists it after.
type SwapSession struct {
	UserID         string
	Screen         Screen
	PreviousScreen Screen // single-level back target, empty when none
	Draft          Draft
	Options        Options

	// PendingRoute is the last successful quote, kept opaque for the
	// store and round-tripped to the prepare call. Cleared on any draft
	// mutation and on confirm/cancel.
	PendingRoute json.RawMessage

	// PendingRequestID correlates the one outstanding wallet-protocol
	// request. At most one per session; it must be empty before a new
	// send-transaction call is issued.
	PendingRequestID string

	// LastMessageRef is the transport handle of the most recently sent
	// prompt, retracted on the next render.
	LastMessageRef string

	SelectedWallet string
	WalletAddress  string

	UpdatedAt time.Time
}

// New returns a fresh session for the given user: disconnected, empty
// draft, default options.
func New(userID string) *SwapSession {
	return &SwapSession{
		UserID:  userID,
		Screen:  ScreenDisconnected,
		Draft:   Draft{Direction: AmountIsInput},
		Options: DefaultOptions(),
	}
}

// Connected reports whether a wallet is currently paired.
func (s *SwapSession) Connected() bool {
	return s.WalletAddress != ""
}

// ClearPending drops the outstanding wallet request and the quoted route.
func (s *SwapSession) ClearPending() {
	s.PendingRequestID = ""
	s.PendingRoute = nil
}

// ClearDraftRoute invalidates the quoted route after a draft mutation.
func (s *SwapSession) ClearDraftRoute() {
	s.PendingRoute = nil
}
