package collect

import (
	"context"
	"sync"
	"time"

	"pulsedesk/internal/store"
)

const (
	newsInterval      = 60 * time.Second
	sentimentInterval = 300 * time.Second
)

// News polls the news fetcher and merges results into the feed store.
type News struct {
	fetcher NewsFetcher
	feed    *store.Feed
}

func NewNews(fetcher NewsFetcher, feed *store.Feed) *News {
	return &News{fetcher: fetcher, feed: feed}
}

// Run polls every 60 seconds until ctx is done.
func (n *News) Run(ctx context.Context) {
	NewPoller("news", newsInterval, func(ctx context.Context) error {
		items, err := n.fetcher.FetchNews(ctx)
		if err != nil {
			return err
		}
		n.feed.Upsert(items...)
		return nil
	}).Run(ctx)
}

// SentimentTracker polls the fear/greed fetcher and keeps the latest
// non-nil reading.
type SentimentTracker struct {
	fetcher SentimentFetcher

	mu     sync.Mutex
	latest *Sentiment
}

func NewSentimentTracker(fetcher SentimentFetcher) *SentimentTracker {
	return &SentimentTracker{fetcher: fetcher}
}

// Run polls every 5 minutes until ctx is done.
func (t *SentimentTracker) Run(ctx context.Context) {
	NewPoller("sentiment", sentimentInterval, func(ctx context.Context) error {
		s, err := t.fetcher.FetchSentiment(ctx)
		if err != nil {
			return err
		}
		if s == nil {
			return nil
		}
		t.mu.Lock()
		t.latest = s
		t.mu.Unlock()
		return nil
	}).Run(ctx)
}

// Latest returns the most recent reading, or nil before the first success.
func (t *SentimentTracker) Latest() *Sentiment {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest == nil {
		return nil
	}
	out := *t.latest
	return &out
}
