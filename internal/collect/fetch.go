package collect

import (
	"context"
	"time"

	"github.com/yanun0323/decimal"

	"pulsedesk/internal/model"
)

// Collaborator contracts. Each fetcher is a stateless request/response
// adapter owned outside the core; they fail independently and a failure
// never aborts a batch of parallel calls.

// Quote is one REST price snapshot.
type Quote struct {
	Price     float64
	Change24h float64
	Volume    float64
}

// Sentiment is one fear/greed reading. Fetchers may return (nil, nil) when
// the upstream has no fresh value.
type Sentiment struct {
	Value          int
	Classification string
	Timestamp      time.Time
}

type QuoteFetcher interface {
	FetchQuote(ctx context.Context, symbol string) (Quote, error)
}

type FundingRateFetcher interface {
	FetchFundingRate(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type OpenInterestFetcher interface {
	FetchOpenInterest(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type NewsFetcher interface {
	FetchNews(ctx context.Context) ([]model.FeedItem, error)
}

type SentimentFetcher interface {
	FetchSentiment(ctx context.Context) (*Sentiment, error)
}

// FxFetcher returns the base/quote cross rate as a wire decimal.
type FxFetcher interface {
	FetchFxRate(ctx context.Context, base, quote string) (decimal.Decimal, error)
}
