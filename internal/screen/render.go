// ABOUTME: Pure render functions mapping session data to screen descriptions
// ABOUTME: All user-visible swap bot text lives here

package screen

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/route"
	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/session"
	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/wallet"
)

// qrServiceURL renders a pairing URL as a scannable image.
const qrServiceURL = "https://qrcode.ness.su/create?box_size=20&border=7&image_padding=20"

// PairingQRURL builds the QR image URL for a pairing link.
func PairingQRURL(pairingURL, iconURL string) string {
	u := qrServiceURL + "&data=" + base64.StdEncoding.EncodeToString([]byte(pairingURL))
	if iconURL != "" {
		u += "&image_url=" + base64.StdEncoding.EncodeToString([]byte(iconURL))
	}
	return u
}

// ConnectPrompt is shown while no wallet is paired: pairing link, QR image
// and the wallet-app picker with the current selection marked.
func ConnectPrompt(pairingURL string, wallets []wallet.WalletApp, selected wallet.WalletApp) Screen {
	var b strings.Builder
	fmt.Fprintf(&b, "Connect your wallet!\n\n[Scan QR code](%s)", PairingQRURL(pairingURL, selected.IconURL))

	actions := []ActionButton{
		{Label: "Connect " + selected.DisplayName, URL: pairingURL},
	}
	for _, w := range wallets {
		label := w.DisplayName
		if w.AppName == selected.AppName {
			label = "• " + w.DisplayName + " •"
		}
		actions = append(actions, ActionButton{Label: label, Action: SelectWallet(w.AppName)})
	}
	return Screen{Text: b.String(), Actions: actions}
}

// MainMenu is the post-connection hub.
func MainMenu(walletAddress string) Screen {
	return Screen{
		Text: fmt.Sprintf("Connected wallet:\n`%s`\n\nChoose an action:", walletAddress),
		Actions: []ActionButton{
			{Label: "Swap", Action: ActionStartSwap},
			{Label: "Options", Action: ActionOptions},
			{Label: "Disconnect wallet", Action: ActionDisconnect},
		},
	}
}

// TokenPrompt asks for one token symbol of the draft.
func TokenPrompt(which int, symbols []string) Screen {
	side := "pay with"
	if which == 2 {
		side = "receive"
	}
	text := fmt.Sprintf("Enter the token you want to %s.", side)
	if len(symbols) > 0 {
		shown := symbols
		if len(shown) > 12 {
			shown = shown[:12]
		}
		text += "\nSupported tokens include: `" + strings.Join(shown, "` `") + "`"
	}
	text += "\n\nYou can also type the whole swap at once, e.g. `swap 10 TON to USDT`."
	return Screen{
		Text:    text,
		Actions: []ActionButton{{Label: "Cancel", Action: ActionCancel}},
	}
}

// AmountPrompt asks for the swap amount.
func AmountPrompt(d session.Draft) Screen {
	return Screen{
		Text: fmt.Sprintf("Enter the amount of `%s` to swap for `%s`.\nExample: `10.5`",
			orUnset(d.InputSymbol), orUnset(d.OutputSymbol)),
		Actions: []ActionButton{{Label: "Cancel", Action: ActionCancel}},
	}
}

// SwapReview is the draft hub: current parameters plus edit/build actions.
func SwapReview(d session.Draft) Screen {
	dir := "amount is what you send"
	if d.Direction == session.AmountIsOutput {
		dir = "amount is what you receive"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**Swap:** `%s` → `%s`\n", orUnset(d.InputSymbol), orUnset(d.OutputSymbol))
	if d.Amount > 0 {
		fmt.Fprintf(&b, "**Amount:** %g (%s)\n", d.Amount, dir)
	} else {
		fmt.Fprintf(&b, "**Amount:** _not set_\n")
	}
	if !d.Complete() {
		b.WriteString("\nFill in the missing fields, then build a route.")
	}

	return Screen{
		Text: b.String(),
		Actions: []ActionButton{
			{Label: "Build route", Action: ActionBuildRoute},
			{Label: "Change token in", Action: ActionEditToken1},
			{Label: "Change token out", Action: ActionEditToken2},
			{Label: "Change amount", Action: ActionEditAmount},
			{Label: "Flip amount side", Action: ActionToggleDirection},
			{Label: "Options", Action: ActionOptions},
			{Label: "Cancel", Action: ActionCancel},
		},
	}
}

// RouteSummary presents a quoted route for confirmation.
func RouteSummary(r *route.Route, opts session.Options) Screen {
	var b strings.Builder
	fmt.Fprintf(&b, "**Route found**\n%g `%s` → %g `%s`\n",
		r.InputAmount, r.InputToken.Metadata.Symbol,
		r.OutputAmount, r.OutputToken.Metadata.Symbol)

	legs := r.Legs()
	if len(legs) > 0 {
		b.WriteString("\nLegs:\n")
		for _, leg := range legs {
			fmt.Fprintf(&b, "- %s: `%s` → `%s` (%g)\n", leg.DEX, leg.InputSymbol, leg.OutputSymbol, leg.OutputAmount)
		}
	}
	fmt.Fprintf(&b, "\nSlippage: %g%%", opts.Slippage*100)

	return Screen{
		Text: b.String(),
		Actions: []ActionButton{
			{Label: "Confirm", Action: ActionConfirm},
			{Label: "Back", Action: ActionBack},
		},
	}
}

// RouteNotFound is the valid-but-empty quote result.
func RouteNotFound() Screen {
	return Screen{
		Text: "No route found for this pair and amount. Try a different amount or loosen the routing options.",
		Actions: []ActionButton{
			{Label: "Options", Action: ActionOptions},
			{Label: "Back", Action: ActionBack},
		},
	}
}

// OptionsMenu shows the current routing options.
func OptionsMenu(o session.Options) Screen {
	return Screen{
		Text: fmt.Sprintf("**Current values:**\nSlippage = `%g`\nMax Splits = `%d`\nMax Length = `%d`",
			o.Slippage, o.MaxSplits, o.MaxLength),
		Actions: []ActionButton{
			{Label: "Slippage", Action: ActionSetSlippage},
			{Label: "Max Splits", Action: ActionSetMaxSplits},
			{Label: "Max Length", Action: ActionSetMaxLength},
			{Label: "Back", Action: ActionBack},
		},
	}
}

// OptionPrompt asks for a new value of one routing option.
func OptionPrompt(target session.Screen) Screen {
	var text string
	switch target {
	case session.ScreenSettingSlippage:
		text = "Enter new slippage value between 0 and 1 (e.g. `0.05`):"
	case session.ScreenSettingMaxSplits:
		text = "Enter new max splits value between 1 and 20 (e.g. `3`):"
	case session.ScreenSettingMaxLength:
		text = "Enter new max length value between 2 and 5 (e.g. `3`):"
	}
	return Screen{
		Text:    text,
		Actions: []ActionButton{{Label: "Cancel", Action: ActionBack}},
	}
}

// AwaitingWallet is shown while a transaction waits for in-wallet approval.
func AwaitingWallet(walletName string) Screen {
	return Screen{
		Text: fmt.Sprintf("Please confirm the transaction in %s.", walletName),
		Actions: []ActionButton{
			{Label: "Cancel", Action: ActionCancel},
		},
	}
}

// SwapSuccess reports a confirmed transaction.
func SwapSuccess(txHash string) Screen {
	return Screen{
		Text: fmt.Sprintf("Transaction sent!\n\nTransaction hash:\n`%s`", txHash),
		Actions: []ActionButton{
			{Label: "Main menu", Action: ActionMainMenu},
		},
	}
}

// Error renders a recoverable error with a retry action.
func Error(text, retryLabel, retryAction string) Screen {
	return Screen{
		Text: text,
		Actions: []ActionButton{
			{Label: retryLabel, Action: retryAction},
		},
	}
}

func orUnset(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
