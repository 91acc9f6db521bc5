package store

import (
	"context"
	"time"

	"github.com/yanun0323/logs"

	"pulsedesk/internal/model"
)

// FeedScore is one scoring result for a feed item.
type FeedScore struct {
	ID         string
	Importance float64
	Relevance  float64
}

// Scorer ranks a batch of feed items. Implementations are external
// collaborators (typically assistant-backed).
type Scorer interface {
	Score(ctx context.Context, items []model.FeedItem) ([]FeedScore, error)
}

// ScoreQueue drains unscored feed items in batches and merges results back.
// A failed batch is simply retried on a later tick; items stay unscored
// until a score lands.
type ScoreQueue struct {
	feed      *Feed
	scorer    Scorer
	batchSize int
	interval  time.Duration
}

// NewScoreQueue creates a queue draining the given feed.
func NewScoreQueue(feed *Feed, scorer Scorer, batchSize int, interval time.Duration) *ScoreQueue {
	if batchSize <= 0 {
		batchSize = 10
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &ScoreQueue{feed: feed, scorer: scorer, batchSize: batchSize, interval: interval}
}

// Run ticks until ctx is done. An archive hook may observe scored items via
// the optional onScored callback (nil to skip).
func (q *ScoreQueue) Run(ctx context.Context, onScored func(model.FeedItem)) {
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.drain(ctx, onScored)
		}
	}
}

func (q *ScoreQueue) drain(ctx context.Context, onScored func(model.FeedItem)) {
	batch := q.feed.Unscored(q.batchSize)
	if len(batch) == 0 {
		return
	}

	scores, err := q.scorer.Score(ctx, batch)
	if err != nil {
		logs.Warnf("feed scoring batch failed (%d items): %v", len(batch), err)
		return
	}
	for _, s := range scores {
		q.feed.ApplyScore(s.ID, s.Importance, s.Relevance)
		if onScored == nil {
			continue
		}
		if item, ok := q.feed.item(s.ID); ok {
			onScored(item)
		}
	}
}

func (f *Feed) item(id string) (model.FeedItem, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	return item, ok
}
