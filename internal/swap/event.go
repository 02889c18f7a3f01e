// ABOUTME: Inbound event union consumed by the state machine
// ABOUTME: User text, button presses, commands and wallet-protocol pushes

package swap

import "github.com/tg-dex-swap-bot/dex-swap-bot/internal/wallet"

// Event is one inbound occurrence for a single user. The transport
// produces TextInput, ButtonPress and Command; the wallet event pump
// produces WalletEvent.
type Event interface {
	isEvent()
}

// TextInput is a free-text message from the user.
type TextInput struct {
	Text string
}

// ButtonPress is an action identifier echoed back by the transport.
type ButtonPress struct {
	Action string
}

// Command is an explicit bot command, already stripped of its prefix.
type Command struct {
	Name string
}

// WalletEvent wraps an asynchronous wallet-protocol push.
type WalletEvent struct {
	Event wallet.Event
}

func (TextInput) isEvent()   {}
func (ButtonPress) isEvent() {}
func (Command) isEvent()     {}
func (WalletEvent) isEvent() {}
