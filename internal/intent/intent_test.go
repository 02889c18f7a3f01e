// ABOUTME: Tests for intent extraction
// ABOUTME: Pattern table plus HTTP extractor behavior against a stub service

package intent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternExtractor(t *testing.T) {
	tests := []struct {
		text string
		want *SwapIntent
	}{
		{"swap 10 TON to USDT", &SwapIntent{"TON", "USDT", 10}},
		{"10 ton usdt", &SwapIntent{"TON", "USDT", 10}},
		{"TON USDT 10.5", &SwapIntent{"TON", "USDT", 10.5}},
		{"usdt ton 3", &SwapIntent{"USDT", "TON", 3}},
		{"ton to usdt 0.25", &SwapIntent{"TON", "USDT", 0.25}},
		{"swap 1.5 eth for btc", &SwapIntent{"ETH", "BTC", 1.5}},
		{"  swap   10   TON   to   USDT  ", &SwapIntent{"TON", "USDT", 10}},

		{"hello there", nil},
		{"swap TON USDT", nil},          // no amount
		{"0 TON USDT", nil},             // non-positive amount
		{"TON TON 5", nil},              // same token on both sides
		{"swap ten TON to USDT", nil},   // non-numeric amount
		{"10 TON to USDT and more", nil},
		{"", nil},
	}

	p := NewPatternExtractor()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := p.Extract(context.Background(), tt.text)
			if tt.want == nil {
				require.ErrorIs(t, err, ErrNoIntent)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTTPExtractor_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"input_token":"ton","output_token":"usdt","amount":12.5}`))
	}))
	defer srv.Close()

	e := NewHTTPExtractor(srv.URL, time.Second, nil)
	got, err := e.Extract(context.Background(), "I want to trade twelve and a half toncoin for tether")
	require.NoError(t, err)
	assert.Equal(t, &SwapIntent{InputSymbol: "TON", OutputSymbol: "USDT", Amount: 12.5}, got)
}

func TestHTTPExtractor_IncompleteIsNoIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"input_token":"TON","amount":5}`))
	}))
	defer srv.Close()

	e := NewHTTPExtractor(srv.URL, time.Second, nil)
	_, err := e.Extract(context.Background(), "swap something")
	require.ErrorIs(t, err, ErrNoIntent)
}

func TestHTTPExtractor_FailuresAreNoIntent(t *testing.T) {
	t.Run("http error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusInternalServerError)
		}))
		defer srv.Close()

		e := NewHTTPExtractor(srv.URL, time.Second, nil)
		_, err := e.Extract(context.Background(), "swap")
		require.ErrorIs(t, err, ErrNoIntent)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}))
		defer srv.Close()

		e := NewHTTPExtractor(srv.URL, time.Second, nil)
		_, err := e.Extract(context.Background(), "swap")
		require.ErrorIs(t, err, ErrNoIntent)
	})

	t.Run("transport error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		e := NewHTTPExtractor(srv.URL, time.Second, nil)
		_, err := e.Extract(context.Background(), "swap")
		require.ErrorIs(t, err, ErrNoIntent)
	})
}
