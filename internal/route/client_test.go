// ABOUTME: Tests for the aggregator HTTP client
// ABOUTME: Uses httptest servers to verify request shape and error mapping

package route

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Tokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/tokens", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"address":{"address":"EQTon"},"metadata":{"symbol":"TON"}},
			{"address":{"address":"EQUsdt"},"metadata":{"symbol":"USDT"}}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	tokens, err := c.Tokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "TON", tokens[0].Metadata.Symbol)
	assert.Equal(t, "EQUsdt", tokens[1].Address.Address)
}

func TestClient_Quote_InputAmount(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/route", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{
			"input_token":{"address":{"address":"EQTon"},"metadata":{"symbol":"TON"}},
			"output_token":{"address":{"address":"EQUsdt"},"metadata":{"symbol":"USDT"}},
			"input_amount":10,
			"output_amount":9.95,
			"paths":[{"dex":"stonfi","input_token":{"metadata":{"symbol":"TON"}},"output_token":{"metadata":{"symbol":"USDT"}},"output_amount":9.95}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	route, err := c.Quote(context.Background(), QuoteRequest{
		InputAddress:  "EQTon",
		OutputAddress: "EQUsdt",
		Amount:        10,
		AmountIsInput: true,
		MaxSplits:     1,
		MaxLength:     2,
	})
	require.NoError(t, err)

	// Request shape
	assert.Equal(t, float64(10), got["input_amount"])
	assert.NotContains(t, got, "output_amount")
	assert.Equal(t, float64(1), got["max_splits"])
	assert.Equal(t, float64(2), got["max_length"])
	in := got["input_token"].(map[string]any)
	assert.Equal(t, "ton", in["blockchain"])
	assert.Equal(t, "EQTon", in["address"])

	// Response shape
	assert.False(t, route.Empty())
	assert.Equal(t, 9.95, route.OutputAmount)
	legs := route.Legs()
	require.Len(t, legs, 1)
	assert.Equal(t, "stonfi", legs[0].DEX)
	assert.Equal(t, "USDT", legs[0].OutputSymbol)
}

func TestClient_Quote_OutputAmount(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"paths":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	_, err := c.Quote(context.Background(), QuoteRequest{Amount: 5, AmountIsInput: false})
	require.NoError(t, err)

	assert.Equal(t, float64(5), got["output_amount"])
	assert.NotContains(t, got, "input_amount")
}

func TestClient_Quote_EmptyPathsIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"input_amount":10,"output_amount":0,"paths":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	route, err := c.Quote(context.Background(), QuoteRequest{Amount: 10, AmountIsInput: true})
	require.NoError(t, err)
	assert.True(t, route.Empty())
}

func TestClient_Quote_HTTPErrorIsRouteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	_, err := c.Quote(context.Background(), QuoteRequest{Amount: 1, AmountIsInput: true})
	require.ErrorIs(t, err, ErrRouteUnavailable)
}

func TestClient_Quote_TransportErrorIsRouteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, time.Second, nil)
	_, err := c.Quote(context.Background(), QuoteRequest{Amount: 1, AmountIsInput: true})
	require.ErrorIs(t, err, ErrRouteUnavailable)
}

func TestClient_Prepare(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/route/transactions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"transactions":[{"address":"EQDest","value":100000000,"cell":"te6cc","stateInit":"abc"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	payloads, err := c.Prepare(context.Background(), PrepareRequest{
		SenderAddress: "UQSender",
		Slippage:      0.05,
		MEVProtection: true,
		Paths:         []json.RawMessage{json.RawMessage(`{"dex":"stonfi"}`)},
	})
	require.NoError(t, err)

	assert.Equal(t, "UQSender", got["sender_address"])
	assert.Equal(t, 0.05, got["slippage"])
	assert.Equal(t, true, got["mev_protection"])

	require.Len(t, payloads, 1)
	assert.Equal(t, "EQDest", payloads[0].Address)
	assert.Equal(t, "100000000", payloads[0].Value.String())
	assert.Equal(t, "abc", payloads[0].StateInit)
}

func TestClient_Prepare_UpstreamErrorIsTransactionBuild(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad route", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	_, err := c.Prepare(context.Background(), PrepareRequest{})
	require.ErrorIs(t, err, ErrTransactionBuild)
}

func TestRoute_Legs_NestedPaths(t *testing.T) {
	route := &Route{
		Paths: []json.RawMessage{json.RawMessage(`{
			"dex":"stonfi",
			"input_token":{"metadata":{"symbol":"TON"}},
			"output_token":{"metadata":{"symbol":"USDT"}},
			"output_amount":9.95,
			"next":[{
				"dex":"dedust",
				"input_token":{"metadata":{"symbol":"USDT"}},
				"output_token":{"metadata":{"symbol":"USDC"}},
				"output_amount":9.9
			}]
		}`)},
	}

	legs := route.Legs()
	require.Len(t, legs, 2)
	assert.Equal(t, "stonfi", legs[0].DEX)
	assert.Equal(t, "dedust", legs[1].DEX)
	// Chained legs: output of one is input of the next
	assert.Equal(t, legs[0].OutputSymbol, legs[1].InputSymbol)
}
