// ABOUTME: Screen and action types forming the UI contract
// ABOUTME: Renderable text plus action buttons, independent of any transport

package screen

import "strings"

// Action identifiers. These are the button payloads the transport echoes
// back; the state machine switches on them.
const (
	ActionConnectWallet   = "connect_wallet"
	ActionDisconnect      = "disconnect_wallet"
	ActionMainMenu        = "main_menu"
	ActionStartSwap       = "swap"
	ActionEditToken1      = "edit_token1"
	ActionEditToken2      = "edit_token2"
	ActionEditAmount      = "edit_amount"
	ActionToggleDirection = "toggle_direction"
	ActionBuildRoute      = "build_route"
	ActionConfirm         = "confirm"
	ActionCancel          = "cancel"
	ActionBack            = "back"
	ActionOptions         = "swap_options"
	ActionSetSlippage     = "set_slippage"
	ActionSetMaxSplits    = "set_max_splits"
	ActionSetMaxLength    = "set_max_length"
)

// selectWalletPrefix namespaces the wallet-picker actions.
const selectWalletPrefix = "select_wallet:"

// SelectWallet builds the action for picking a wallet app during pairing.
func SelectWallet(appName string) string {
	return selectWalletPrefix + appName
}

// ParseSelectWallet returns the wallet app name if action is a wallet pick.
func ParseSelectWallet(action string) (string, bool) {
	if !strings.HasPrefix(action, selectWalletPrefix) {
		return "", false
	}
	return strings.TrimPrefix(action, selectWalletPrefix), true
}

// ActionButton is one element of a screen's action list. Exactly one of
// Action or URL is set: Action round-trips through the transport as a
// button press, URL opens externally.
type ActionButton struct {
	Label  string
	Action string
	URL    string
}

// Screen is a renderable screen description: markdown text plus the
// ordered action list. The transport decides how both are displayed.
type Screen struct {
	Text    string
	Actions []ActionButton
}
