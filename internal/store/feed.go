package store

import (
	"sort"
	"sync"

	"pulsedesk/internal/model"
)

const feedCap = 200

// Feed holds the deduplicated live set of news items, capped at 200 entries
// with eviction by oldest timestamp.
type Feed struct {
	mu    sync.Mutex
	items map[string]model.FeedItem
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{items: make(map[string]model.FeedItem)}
}

// Upsert merges a fetch cycle into the live set. Items are deduplicated by
// id; a later fetch overwrites an earlier one wholesale.
func (f *Feed) Upsert(items ...model.FeedItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		f.items[item.ID] = item
	}
	f.evictLocked()
}

// Items returns the live set newest-first.
func (f *Feed) Items() []model.FeedItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.FeedItem, 0, len(f.items))
	for _, item := range f.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Unscored returns up to limit items still waiting for importance scoring,
// oldest first so the backlog drains in arrival order.
func (f *Feed) Unscored(limit int) []model.FeedItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.FeedItem, 0, limit)
	for _, item := range f.items {
		if !item.Scored {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ApplyScore merges one scoring result back. Items evicted while the batch
// was in flight are silently skipped.
func (f *Feed) ApplyScore(id string, aiImportance, relevance float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return
	}
	item.AIImportance = aiImportance
	item.RelevanceScore = relevance
	item.Scored = true
	f.items[id] = item
}

func (f *Feed) evictLocked() {
	if len(f.items) <= feedCap {
		return
	}
	all := make([]model.FeedItem, 0, len(f.items))
	for _, item := range f.items {
		all = append(all, item)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})
	for _, victim := range all[:len(all)-feedCap] {
		delete(f.items, victim.ID)
	}
}
