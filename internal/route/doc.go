// Package route wraps the swap aggregator's HTTP API behind two pure
// operations: Quote (token pair + amount + constraints -> route graph) and
// Prepare (route graph + sender + slippage -> signable transactions), plus
// the token list used to build the token registry.
//
// Error contract: a quote that succeeds but finds no path returns an empty
// Route (Route.Empty() == true); a quote that cannot reach or be served by
// the upstream returns an error wrapping ErrRouteUnavailable. Callers
// render the two cases differently.
package route
