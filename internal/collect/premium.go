package collect

import (
	"context"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const premiumInterval = 30 * time.Second

// Premium tracks the KRW-vs-USD price gap ("kimchi premium") per symbol by
// joining two REST quote sources with the cached FX rate.
type Premium struct {
	usd     QuoteFetcher
	krw     QuoteFetcher
	fx      *FxCache
	symbols []string

	mu     sync.Mutex
	latest map[string]float64
}

// NewPremium creates a tracker for the given symbols.
func NewPremium(usd, krw QuoteFetcher, fx *FxCache, symbols []string) *Premium {
	return &Premium{
		usd:     usd,
		krw:     krw,
		fx:      fx,
		symbols: symbols,
		latest:  make(map[string]float64),
	}
}

// Run polls every 30 seconds until ctx is done. Symbols fail independently;
// a partial cycle is the expected steady state.
func (p *Premium) Run(ctx context.Context) {
	NewPoller("premium", premiumInterval, func(ctx context.Context) error {
		rate, err := p.fx.Rate(ctx, "USD", "KRW")
		if err != nil {
			return errors.Wrap(err, "premium cycle")
		}
		for _, symbol := range p.symbols {
			if err := p.collect(ctx, symbol, rate); err != nil {
				logs.Warnf("premium %s skipped: %v", symbol, err)
			}
		}
		return nil
	}).Run(ctx)
}

// Latest returns the last computed premium percentage for a symbol.
func (p *Premium) Latest(symbol string) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.latest[symbol]
	return v, ok
}

func (p *Premium) collect(ctx context.Context, symbol string, usdKrw float64) error {
	usdQuote, err := p.usd.FetchQuote(ctx, symbol)
	if err != nil {
		return errors.Wrap(err, "usd quote")
	}
	krwQuote, err := p.krw.FetchQuote(ctx, symbol)
	if err != nil {
		return errors.Wrap(err, "krw quote")
	}
	if usdQuote.Price <= 0 || usdKrw <= 0 {
		return errors.New("non-positive reference price")
	}

	krwInUsd := krwQuote.Price / usdKrw
	premium := (krwInUsd - usdQuote.Price) / usdQuote.Price * 100

	p.mu.Lock()
	p.latest[symbol] = premium
	p.mu.Unlock()
	return nil
}
