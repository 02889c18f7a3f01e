// ABOUTME: Tests for the token registry
// ABOUTME: Verifies snapshot swap, case-insensitive lookup and failure retention

package token

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/route"
)

type fakeSource struct {
	tokens []route.Token
	err    error
}

func (f *fakeSource) Tokens(ctx context.Context) ([]route.Token, error) {
	return f.tokens, f.err
}

func entry(symbol, addr string) route.Token {
	return route.Token{
		Address:  route.TokenAddress{Address: addr},
		Metadata: route.TokenMetadata{Symbol: symbol},
	}
}

func TestRegistry_ResolveCaseInsensitive(t *testing.T) {
	src := &fakeSource{tokens: []route.Token{entry("USDT", "EQUsdt"), entry("TON", "EQTon")}}
	r := NewRegistry(src, nil)
	require.NoError(t, r.Refresh(context.Background()))

	addr, ok := r.Resolve("usdt")
	require.True(t, ok)
	assert.Equal(t, "EQUsdt", addr)

	addr, ok = r.Resolve(" TON ")
	require.True(t, ok)
	assert.Equal(t, "EQTon", addr)

	_, ok = r.Resolve("FAKE")
	assert.False(t, ok)
}

func TestRegistry_EmptyBeforeRefresh(t *testing.T) {
	r := NewRegistry(&fakeSource{}, nil)

	_, ok := r.Resolve("TON")
	assert.False(t, ok)
	assert.Zero(t, r.Len())
}

func TestRegistry_RefreshReplacesWholesale(t *testing.T) {
	src := &fakeSource{tokens: []route.Token{entry("TON", "EQTon"), entry("USDT", "EQUsdt")}}
	r := NewRegistry(src, nil)
	require.NoError(t, r.Refresh(context.Background()))
	require.Equal(t, 2, r.Len())

	// USDT disappears upstream; a stale entry must vanish with it
	src.tokens = []route.Token{entry("TON", "EQTon2")}
	require.NoError(t, r.Refresh(context.Background()))

	_, ok := r.Resolve("USDT")
	assert.False(t, ok, "dropped symbol must become invalid")

	addr, ok := r.Resolve("TON")
	require.True(t, ok)
	assert.Equal(t, "EQTon2", addr)
}

func TestRegistry_RefreshFailureRetainsSnapshot(t *testing.T) {
	src := &fakeSource{tokens: []route.Token{entry("TON", "EQTon")}}
	r := NewRegistry(src, nil)
	require.NoError(t, r.Refresh(context.Background()))

	src.err = errors.New("upstream down")
	err := r.Refresh(context.Background())
	require.Error(t, err)

	addr, ok := r.Resolve("TON")
	require.True(t, ok, "last-known-good snapshot must be retained")
	assert.Equal(t, "EQTon", addr)
}

func TestRegistry_SkipsMalformedEntries(t *testing.T) {
	src := &fakeSource{tokens: []route.Token{
		entry("TON", "EQTon"),
		entry("", "EQNoSymbol"),
		entry("NADDR", ""),
	}}
	r := NewRegistry(src, nil)
	require.NoError(t, r.Refresh(context.Background()))

	assert.Equal(t, []string{"TON"}, r.Symbols())
}
