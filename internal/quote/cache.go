package quote

import (
	"context"
	"strings"
	"time"

	"github.com/JoshuaSLim/Finance/internal/ledger"
	"github.com/JoshuaSLim/Finance/internal/models"

	"github.com/patrickmn/go-cache"
)

// CachedProvider remembers successful lookups for a fixed TTL. Failures are
// never cached.
type CachedProvider struct {
	next  ledger.QuoteProvider
	cache *cache.Cache
}

// NewCachedProvider wraps next with a TTL cache
func NewCachedProvider(next ledger.QuoteProvider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Lookup returns a cached quote or asks the wrapped provider
func (p *CachedProvider) Lookup(ctx context.Context, symbol string) (models.Quote, error) {
	key := strings.ToUpper(symbol)
	if v, ok := p.cache.Get(key); ok {
		return v.(models.Quote), nil
	}
	q, err := p.next.Lookup(ctx, symbol)
	if err != nil {
		return models.Quote{}, err
	}
	p.cache.Set(key, q, cache.DefaultExpiration)
	return q, nil
}
