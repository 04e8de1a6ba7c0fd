package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JoshuaSLim/Finance/internal/models"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// DefaultURL is an IEX Cloud style quote endpoint
const DefaultURL = "https://cloud.iexapis.com/stable/stock/{symbol}/quote?token={token}"

// Paths are the JSONPath expressions locating each field in a quote response
type Paths struct {
	Symbol string
	Name   string
	Price  string
}

// DefaultPaths match the IEX quote payload
var DefaultPaths = Paths{
	Symbol: "$.symbol",
	Name:   "$.companyName",
	Price:  "$.latestPrice",
}

// HTTPConfig configures an HTTPProvider
type HTTPConfig struct {
	URL       string // template with {symbol} and {token}
	APIKey    string
	Paths     Paths
	RateLimit float64 // requests per second, 0 for unlimited
	Client    *http.Client
	Logger    *slog.Logger
}

// HTTPProvider looks quotes up over HTTP and extracts the fields with JSONPath
type HTTPProvider struct {
	url     string
	apiKey  string
	paths   Paths
	client  *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewHTTPProvider creates an HTTP provider, filling unset fields with defaults
func NewHTTPProvider(cfg HTTPConfig) *HTTPProvider {
	p := &HTTPProvider{
		url:     cfg.URL,
		apiKey:  cfg.APIKey,
		paths:   cfg.Paths,
		client:  cfg.Client,
		limiter: rate.NewLimiter(rate.Inf, 0),
		log:     cfg.Logger,
	}
	if p.url == "" {
		p.url = DefaultURL
	}
	if p.paths.Symbol == "" {
		p.paths.Symbol = DefaultPaths.Symbol
	}
	if p.paths.Name == "" {
		p.paths.Name = DefaultPaths.Name
	}
	if p.paths.Price == "" {
		p.paths.Price = DefaultPaths.Price
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.RateLimit > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	return p
}

// Lookup fetches the current quote for symbol
func (p *HTTPProvider) Lookup(ctx context.Context, symbol string) (models.Quote, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return models.Quote{}, fmt.Errorf("%w: %v", models.ErrQuoteUnavailable, err)
	}

	addr := strings.NewReplacer(
		"{symbol}", url.PathEscape(symbol),
		"{token}", url.QueryEscape(p.apiKey),
	).Replace(p.url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return models.Quote{}, fmt.Errorf("%w: %v", models.ErrQuoteUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warn("quote request failed", "symbol", symbol, "error", err)
		return models.Quote{}, fmt.Errorf("%w: %v", models.ErrQuoteUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return models.Quote{}, fmt.Errorf("%w: %s", models.ErrUnknownSymbol, symbol)
	case resp.StatusCode != http.StatusOK:
		p.log.Warn("quote request rejected", "symbol", symbol, "status", resp.Status)
		return models.Quote{}, fmt.Errorf("%w: %s returned %s", models.ErrQuoteUnavailable, symbol, resp.Status)
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.Quote{}, fmt.Errorf("%w: malformed response for %s: %v", models.ErrQuoteUnavailable, symbol, err)
	}
	if payload == nil {
		return models.Quote{}, fmt.Errorf("%w: %s", models.ErrUnknownSymbol, symbol)
	}

	rawPrice, ok := first(payload, p.paths.Price)
	if !ok {
		return models.Quote{}, fmt.Errorf("%w: %s", models.ErrUnknownSymbol, symbol)
	}
	price, err := toDecimal(rawPrice)
	if err != nil || !price.IsPositive() {
		return models.Quote{}, fmt.Errorf("%w: bad price %v for %s", models.ErrQuoteUnavailable, rawPrice, symbol)
	}

	q := models.Quote{Symbol: strings.ToUpper(symbol), Price: price}
	if v, ok := first(payload, p.paths.Symbol); ok {
		if s, ok := v.(string); ok && s != "" {
			q.Symbol = strings.ToUpper(s)
		}
	}
	if v, ok := first(payload, p.paths.Name); ok {
		if s, ok := v.(string); ok {
			q.Name = s
		}
	}
	if q.Name == "" {
		q.Name = q.Symbol
	}
	return q, nil
}

// first evaluates path and keeps the first value when the expression yields a list
func first(payload any, path string) (any, bool) {
	v, err := jsonpath.Get(path, payload)
	if err != nil {
		return nil, false
	}
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil, false
		}
		v = list[0]
	}
	return v, v != nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(x))
	default:
		return decimal.Zero, fmt.Errorf("not a number: %T", v)
	}
}
