package quote

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/JoshuaSLim/Finance/internal/models"
	"github.com/shopspring/decimal"
)

// StaticProvider serves quotes from an in-memory table
type StaticProvider struct {
	mu     sync.RWMutex
	quotes map[string]models.Quote
}

// NewStaticProvider creates a provider serving the given quotes
func NewStaticProvider(quotes ...models.Quote) *StaticProvider {
	p := &StaticProvider{quotes: make(map[string]models.Quote)}
	for _, q := range quotes {
		p.Set(q.Symbol, q.Name, q.Price)
	}
	return p
}

// ParseStatic builds a provider from a table like
// "AAPL:150.00:Apple Inc.,GOOG:2800". The name is optional.
func ParseStatic(table string) (*StaticProvider, error) {
	p := NewStaticProvider()
	for _, entry := range strings.Split(table, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("invalid quote entry %q, want SYMBOL:PRICE[:NAME]", entry)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil || !price.IsPositive() {
			return nil, fmt.Errorf("invalid price in quote entry %q", entry)
		}
		name := ""
		if len(parts) == 3 {
			name = strings.TrimSpace(parts[2])
		}
		p.Set(parts[0], name, price)
	}
	return p, nil
}

// Set adds or replaces the quote for symbol
func (p *StaticProvider) Set(symbol, name string, price decimal.Decimal) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if name == "" {
		name = symbol
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[symbol] = models.Quote{Symbol: symbol, Name: name, Price: price}
}

// Lookup returns the stored quote for symbol
func (p *StaticProvider) Lookup(ctx context.Context, symbol string) (models.Quote, error) {
	if err := ctx.Err(); err != nil {
		return models.Quote{}, fmt.Errorf("%w: %v", models.ErrQuoteUnavailable, err)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	q, ok := p.quotes[strings.ToUpper(symbol)]
	if !ok {
		return models.Quote{}, fmt.Errorf("%w: %s", models.ErrUnknownSymbol, symbol)
	}
	return q, nil
}
