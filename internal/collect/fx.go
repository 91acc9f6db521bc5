package collect

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/yanun0323/errors"
)

const fxCacheTTL = 5 * time.Minute

// FxCache bounds external FX call volume: a fetched cross rate is reused
// for five minutes per (base, quote) pair.
type FxCache struct {
	fetcher FxFetcher
	now     func() time.Time

	mu    sync.Mutex
	rates map[string]cachedRate
}

type cachedRate struct {
	rate      float64
	fetchedAt time.Time
}

// NewFxCache wraps a fetcher with the five-minute cache.
func NewFxCache(fetcher FxFetcher) *FxCache {
	return &FxCache{
		fetcher: fetcher,
		now:     time.Now,
		rates:   make(map[string]cachedRate),
	}
}

// Rate returns the base/quote cross rate, fetching only on a cold or
// expired entry.
func (c *FxCache) Rate(ctx context.Context, base, quote string) (float64, error) {
	key := base + "/" + quote

	c.mu.Lock()
	cached, ok := c.rates[key]
	c.mu.Unlock()
	if ok && c.now().Sub(cached.fetchedAt) < fxCacheTTL {
		return cached.rate, nil
	}

	raw, err := c.fetcher.FetchFxRate(ctx, base, quote)
	if err != nil {
		// a stale rate beats no rate while the upstream flaps
		if ok {
			return cached.rate, nil
		}
		return 0, errors.Wrap(err, "fetch fx rate "+key)
	}

	rate, err := strconv.ParseFloat(raw.String(), 64)
	if err != nil || rate <= 0 {
		return 0, errors.Errorf("invalid fx rate %q for %s", raw.String(), key)
	}

	c.mu.Lock()
	c.rates[key] = cachedRate{rate: rate, fetchedAt: c.now()}
	c.mu.Unlock()
	return rate, nil
}
