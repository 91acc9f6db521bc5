package model

import "time"

// FeedItem is one externally-fetched news entry. Items are deduplicated by
// ID across fetch cycles; a later fetch overwrites an earlier one.
type FeedItem struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Source         string    `json:"source"`
	URL            string    `json:"url"`
	Category       string    `json:"category"`
	Importance     float64   `json:"importance"`
	Timestamp      time.Time `json:"timestamp"`
	Summary        string    `json:"summary,omitempty"`
	AIImportance   float64   `json:"aiImportance,omitempty"`
	RelevanceScore float64   `json:"relevanceScore,omitempty"`
	Scored         bool      `json:"scored,omitempty"`
}
