// ABOUTME: Refreshable symbol-to-address token registry
// ABOUTME: Readers see an atomic snapshot; refresh swaps the whole mapping

package token

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/route"
)

// Source provides the token list the registry is rebuilt from.
type Source interface {
	Tokens(ctx context.Context) ([]route.Token, error)
}

// Registry maps uppercase token symbols to on-chain addresses. Reads never
// block: each refresh builds a new map and atomically replaces the snapshot
// visible to readers. On refresh failure the last-known-good snapshot is
// retained.
type Registry struct {
	source   Source
	logger   *slog.Logger
	snapshot atomic.Pointer[map[string]string]
}

// NewRegistry creates an empty registry reading from source.
func NewRegistry(source Source, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		source: source,
		logger: logger.With("component", "token-registry"),
	}
	empty := make(map[string]string)
	r.snapshot.Store(&empty)
	return r
}

// Resolve returns the on-chain address for a symbol. The lookup is
// case-insensitive; a symbol absent from the current snapshot is invalid
// regardless of whether it resolved before.
func (r *Registry) Resolve(symbol string) (string, bool) {
	m := *r.snapshot.Load()
	addr, ok := m[strings.ToUpper(strings.TrimSpace(symbol))]
	return addr, ok
}

// Symbols returns the known symbols in sorted order.
func (r *Registry) Symbols() []string {
	m := *r.snapshot.Load()
	symbols := make([]string, 0, len(m))
	for sym := range m {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// Len returns the number of known tokens.
func (r *Registry) Len() int {
	return len(*r.snapshot.Load())
}

// Refresh rebuilds the registry wholesale from the source. On failure the
// previous snapshot stays in place and the error is returned.
func (r *Registry) Refresh(ctx context.Context) error {
	tokens, err := r.source.Tokens(ctx)
	if err != nil {
		r.logger.Warn("token refresh failed, keeping previous snapshot",
			"error", err, "tokens", r.Len())
		return fmt.Errorf("refreshing token registry: %w", err)
	}

	next := make(map[string]string, len(tokens))
	for _, t := range tokens {
		sym := strings.ToUpper(strings.TrimSpace(t.Metadata.Symbol))
		if sym == "" || t.Address.Address == "" {
			continue
		}
		next[sym] = t.Address.Address
	}

	r.snapshot.Store(&next)
	r.logger.Info("token registry refreshed", "tokens", len(next))
	return nil
}

// Run refreshes the registry on a ticker until ctx is cancelled. Refresh
// errors are logged and the loop keeps going.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.Error("scheduled token refresh failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
