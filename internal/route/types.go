// ABOUTME: Wire types for the swap aggregator REST API
// ABOUTME: Tokens, route graphs and prepared transaction payloads

package route

import "encoding/json"

// Token is an aggregator token list entry.
type Token struct {
	Address  TokenAddress  `json:"address"`
	Metadata TokenMetadata `json:"metadata"`
}

// TokenAddress wraps the on-chain identifier.
type TokenAddress struct {
	Address string `json:"address"`
}

// TokenMetadata carries display information for a token.
type TokenMetadata struct {
	Symbol string `json:"symbol"`
}

// QuoteRequest describes a route quote. Amount refers to the input or the
// output side depending on AmountIsInput.
type QuoteRequest struct {
	InputAddress  string
	OutputAddress string
	Amount        float64
	AmountIsInput bool
	MaxSplits     int
	MaxLength     int
}

// Route is the aggregator's answer to a quote: aggregate amounts plus the
// path graph. Paths are kept verbatim so they can be round-tripped to the
// prepare call without loss.
type Route struct {
	InputToken   Token             `json:"input_token"`
	OutputToken  Token             `json:"output_token"`
	InputAmount  float64           `json:"input_amount"`
	OutputAmount float64           `json:"output_amount"`
	Paths        []json.RawMessage `json:"paths"`
}

// Empty reports whether the aggregator found no viable path. An empty route
// is a valid "not found" result, distinct from a transport failure.
func (r *Route) Empty() bool {
	return r == nil || len(r.Paths) == 0
}

// Leg is a flattened view of one hop in the route graph, used for rendering.
type Leg struct {
	DEX          string
	InputSymbol  string
	OutputSymbol string
	OutputAmount float64
}

// pathNode is the subset of a path object this client understands. Unknown
// fields stay inside the raw paths.
type pathNode struct {
	DEX          string            `json:"dex"`
	InputToken   Token             `json:"input_token"`
	OutputToken  Token             `json:"output_token"`
	OutputAmount float64           `json:"output_amount"`
	Next         []json.RawMessage `json:"next"`
}

// Legs walks the path graph depth-first and returns the flattened legs.
// Parsing is best effort: a path node that doesn't decode is skipped.
func (r *Route) Legs() []Leg {
	if r == nil {
		return nil
	}
	var legs []Leg
	var walk func(raw []json.RawMessage)
	walk = func(raw []json.RawMessage) {
		for _, p := range raw {
			var node pathNode
			if err := json.Unmarshal(p, &node); err != nil {
				continue
			}
			legs = append(legs, Leg{
				DEX:          node.DEX,
				InputSymbol:  node.InputToken.Metadata.Symbol,
				OutputSymbol: node.OutputToken.Metadata.Symbol,
				OutputAmount: node.OutputAmount,
			})
			walk(node.Next)
		}
	}
	walk(r.Paths)
	return legs
}

// PrepareRequest asks the aggregator to build signable transactions for a
// previously quoted route.
type PrepareRequest struct {
	SenderAddress string
	Slippage      float64
	MEVProtection bool
	Paths         []json.RawMessage
}

// TransactionPayload is one signable transaction produced by the prepare
// endpoint. Value is the attached amount in base units.
type TransactionPayload struct {
	Address   string      `json:"address"`
	Value     json.Number `json:"value"`
	Cell      string      `json:"cell"`
	StateInit string      `json:"stateInit,omitempty"`
}
