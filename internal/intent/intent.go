// ABOUTME: Swap-intent extraction from free text
// ABOUTME: Narrow interface over an external classifier, with a local fallback

package intent

import (
	"context"
	"errors"
)

// ErrNoIntent is returned when no complete swap intent could be extracted
// from the text. Incomplete or malformed extractions map here too.
var ErrNoIntent = errors.New("no swap intent found")

// SwapIntent is a structured swap request extracted from free text.
// Symbols are uppercase; Amount is always positive.
type SwapIntent struct {
	InputSymbol  string  `json:"input_token"`
	OutputSymbol string  `json:"output_token"`
	Amount       float64 `json:"amount"`
}

// Extractor turns free text into a swap intent or ErrNoIntent. The
// implementation may be a remote classification service or a local parser;
// the state machine doesn't care which.
type Extractor interface {
	Extract(ctx context.Context, text string) (*SwapIntent, error)
}
