package quote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JoshuaSLim/Finance/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatic(t *testing.T) {
	tests := []struct {
		name        string
		table       string
		expectError bool
		lookups     map[string]string
	}{
		{
			name:    "Success",
			table:   "AAPL:150.00:Apple Inc., goog:2800.5",
			lookups: map[string]string{"AAPL": "Apple Inc.", "GOOG": "GOOG"},
		},
		{name: "Empty", table: "", lookups: map[string]string{}},
		{name: "MissingPrice", table: "AAPL", expectError: true},
		{name: "BadPrice", table: "AAPL:abc", expectError: true},
		{name: "ZeroPrice", table: "AAPL:0", expectError: true},
		{name: "MissingSymbol", table: ":10", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseStatic(tt.table)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for symbol, name := range tt.lookups {
				q, err := p.Lookup(context.Background(), symbol)
				require.NoError(t, err)
				assert.Equal(t, name, q.Name)
				assert.Equal(t, symbol, q.Symbol)
			}
		})
	}
}

func TestStaticProvider_Lookup(t *testing.T) {
	p := NewStaticProvider(models.Quote{Symbol: "AAPL", Name: "Apple Inc.", Price: decimal.RequireFromString("150")})

	q, err := p.Lookup(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("150")))

	p.Set("AAPL", "Apple Inc.", decimal.RequireFromString("160"))
	q, err = p.Lookup(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("160")))

	_, err = p.Lookup(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, models.ErrUnknownSymbol)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Lookup(ctx, "AAPL")
	assert.ErrorIs(t, err, models.ErrQuoteUnavailable)
}

func TestHTTPProvider_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.URL.Path {
		case "/stock/AAPL/quote":
			w.Write([]byte(`{"symbol":"AAPL","companyName":"Apple Inc.","latestPrice":150.25}`))
		case "/stock/BRK.B/quote":
			w.Write([]byte(`{"symbol":"brk.b","companyName":"Berkshire","latestPrice":"412.10"}`))
		case "/stock/NONAME/quote":
			w.Write([]byte(`{"latestPrice":3}`))
		case "/stock/NULLPRICE/quote":
			w.Write([]byte(`{"symbol":"NULLPRICE","latestPrice":null}`))
		case "/stock/NEG/quote":
			w.Write([]byte(`{"symbol":"NEG","latestPrice":-1}`))
		case "/stock/NULL/quote":
			w.Write([]byte(`null`))
		case "/stock/GARBAGE/quote":
			w.Write([]byte(`<html>`))
		case "/stock/DOWN/quote":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPConfig{
		URL:    srv.URL + "/stock/{symbol}/quote?token={token}",
		APIKey: "secret",
	})

	tests := []struct {
		symbol      string
		wantSymbol  string
		wantName    string
		wantPrice   string
		expectError error
	}{
		{symbol: "AAPL", wantSymbol: "AAPL", wantName: "Apple Inc.", wantPrice: "150.25"},
		{symbol: "BRK.B", wantSymbol: "BRK.B", wantName: "Berkshire", wantPrice: "412.10"},
		{symbol: "NONAME", wantSymbol: "NONAME", wantName: "NONAME", wantPrice: "3"},
		{symbol: "ZZZZ", expectError: models.ErrUnknownSymbol},
		{symbol: "NULLPRICE", expectError: models.ErrUnknownSymbol},
		{symbol: "NULL", expectError: models.ErrUnknownSymbol},
		{symbol: "NEG", expectError: models.ErrQuoteUnavailable},
		{symbol: "GARBAGE", expectError: models.ErrQuoteUnavailable},
		{symbol: "DOWN", expectError: models.ErrQuoteUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			q, err := p.Lookup(context.Background(), tt.symbol)
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSymbol, q.Symbol)
			assert.Equal(t, tt.wantName, q.Name)
			assert.True(t, q.Price.Equal(decimal.RequireFromString(tt.wantPrice)), "got %s", q.Price)
		})
	}
}

func TestHTTPProvider_CustomPaths(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteResponse":{"result":[{"symbol":"VOD.L","longName":"Vodafone","regularMarketPrice":71.2}]}}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPConfig{
		URL: srv.URL + "/v7/quote?symbols={symbol}",
		Paths: Paths{
			Symbol: "$.quoteResponse.result[0].symbol",
			Name:   "$.quoteResponse.result[0].longName",
			Price:  "$.quoteResponse.result[0].regularMarketPrice",
		},
	})

	q, err := p.Lookup(context.Background(), "VOD.L")
	require.NoError(t, err)
	assert.Equal(t, "VOD.L", q.Symbol)
	assert.Equal(t, "Vodafone", q.Name)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("71.2")))
}

func TestHTTPProvider_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := NewHTTPProvider(HTTPConfig{URL: srv.URL + "/{symbol}"})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Lookup(ctx, "AAPL")
	assert.ErrorIs(t, err, models.ErrQuoteUnavailable)
}

type countingProvider struct {
	calls atomic.Int32
	err   error
}

func (c *countingProvider) Lookup(ctx context.Context, symbol string) (models.Quote, error) {
	c.calls.Add(1)
	if c.err != nil {
		return models.Quote{}, c.err
	}
	return models.Quote{Symbol: symbol, Name: symbol, Price: decimal.NewFromInt(int64(c.calls.Load()))}, nil
}

func TestCachedProvider(t *testing.T) {
	next := &countingProvider{}
	p := NewCachedProvider(next, time.Minute)
	ctx := context.Background()

	q1, err := p.Lookup(ctx, "AAPL")
	require.NoError(t, err)
	q2, err := p.Lookup(ctx, "aapl")
	require.NoError(t, err)
	assert.Equal(t, q1, q2)
	assert.EqualValues(t, 1, next.calls.Load())

	_, err = p.Lookup(ctx, "GOOG")
	require.NoError(t, err)
	assert.EqualValues(t, 2, next.calls.Load())
}

func TestCachedProvider_DoesNotCacheFailures(t *testing.T) {
	next := &countingProvider{err: models.ErrUnknownSymbol}
	p := NewCachedProvider(next, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := p.Lookup(context.Background(), "ZZZZ")
		assert.ErrorIs(t, err, models.ErrUnknownSymbol)
	}
	assert.EqualValues(t, 3, next.calls.Load())
}
