package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsedesk/internal/model"
)

func feedItem(id string, ts time.Time) model.FeedItem {
	return model.FeedItem{ID: id, Title: "t-" + id, Timestamp: ts}
}

func TestUpsertDeduplicatesByID(t *testing.T) {
	f := NewFeed()
	now := time.Now()
	f.Upsert(model.FeedItem{ID: "a", Title: "first", Timestamp: now})
	f.Upsert(model.FeedItem{ID: "a", Title: "second", Timestamp: now.Add(time.Minute)})

	items := f.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "second", items[0].Title)
}

func TestUpsertEvictsOldestBeyondCap(t *testing.T) {
	f := NewFeed()
	base := time.Now()
	for i := 0; i < feedCap+20; i++ {
		f.Upsert(feedItem(fmt.Sprintf("n-%d", i), base.Add(time.Duration(i)*time.Second)))
	}

	items := f.Items()
	require.Len(t, items, feedCap)
	// the 20 oldest are gone
	for _, item := range items {
		assert.False(t, item.Timestamp.Before(base.Add(20*time.Second)))
	}
}

func TestItemsNewestFirst(t *testing.T) {
	f := NewFeed()
	base := time.Now()
	f.Upsert(feedItem("old", base), feedItem("new", base.Add(time.Hour)))

	items := f.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "new", items[0].ID)
}

func TestUnscoredOldestFirstAndLimited(t *testing.T) {
	f := NewFeed()
	base := time.Now()
	for i := 0; i < 5; i++ {
		f.Upsert(feedItem(fmt.Sprintf("n-%d", i), base.Add(time.Duration(i)*time.Minute)))
	}
	f.ApplyScore("n-0", 0.9, 0.5)

	batch := f.Unscored(2)
	require.Len(t, batch, 2)
	assert.Equal(t, "n-1", batch[0].ID)
	assert.Equal(t, "n-2", batch[1].ID)
}

func TestApplyScoreOnEvictedItemIsNoop(t *testing.T) {
	f := NewFeed()
	f.ApplyScore("ghost", 1, 1)
	assert.Empty(t, f.Items())
}

type stubScorer struct {
	calls   int
	batches [][]model.FeedItem
	err     error
}

func (s *stubScorer) Score(_ context.Context, items []model.FeedItem) ([]FeedScore, error) {
	s.calls++
	s.batches = append(s.batches, items)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]FeedScore, 0, len(items))
	for _, item := range items {
		out = append(out, FeedScore{ID: item.ID, Importance: 0.7, Relevance: 0.4})
	}
	return out, nil
}

func TestScoreQueueDrainsBatchAndMergesBack(t *testing.T) {
	f := NewFeed()
	base := time.Now()
	for i := 0; i < 3; i++ {
		f.Upsert(feedItem(fmt.Sprintf("n-%d", i), base.Add(time.Duration(i)*time.Second)))
	}

	scorer := &stubScorer{}
	q := NewScoreQueue(f, scorer, 10, time.Minute)
	var archived []model.FeedItem
	q.drain(context.Background(), func(item model.FeedItem) {
		archived = append(archived, item)
	})

	assert.Equal(t, 1, scorer.calls)
	assert.Len(t, archived, 3)
	for _, item := range f.Items() {
		assert.True(t, item.Scored)
		assert.Equal(t, 0.7, item.AIImportance)
	}
	assert.Empty(t, f.Unscored(10))
}

func TestScoreQueueRetriesFailedBatchNextTick(t *testing.T) {
	f := NewFeed()
	f.Upsert(feedItem("a", time.Now()))

	scorer := &stubScorer{err: fmt.Errorf("rate limited")}
	q := NewScoreQueue(f, scorer, 10, time.Minute)

	q.drain(context.Background(), nil)
	require.Len(t, f.Unscored(10), 1)

	scorer.err = nil
	q.drain(context.Background(), nil)
	assert.Empty(t, f.Unscored(10))
	assert.Equal(t, 2, scorer.calls)
}
