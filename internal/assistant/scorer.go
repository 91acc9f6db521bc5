package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"pulsedesk/internal/model"
	"pulsedesk/internal/store"
	"pulsedesk/pkg/exception"
)

const scorerSystemPrompt = "You rank crypto market news. For every item " +
	"reply with a JSON array only, one object per item: " +
	`{"id": string, "importance": number 0-10, "relevance": number 0-1}.`

// FeedScorer ranks feed batches through the chat transport. It shares the
// transport with the conversational assistant but keeps no history; every
// batch is a fresh single-shot request.
type FeedScorer struct {
	transport Transport
	model     string
}

func NewFeedScorer(transport Transport, model string) *FeedScorer {
	return &FeedScorer{transport: transport, model: model}
}

func (s *FeedScorer) Score(ctx context.Context, items []model.FeedItem) ([]store.FeedScore, error) {
	if !s.transport.Configured() {
		return nil, exception.ErrMissingAPIKey
	}

	var prompt strings.Builder
	prompt.WriteString("Score these news items:\n")
	for _, item := range items {
		fmt.Fprintf(&prompt, "- id=%s [%s] %s\n", item.ID, item.Source, item.Title)
	}

	req := Request{
		Model:  s.model,
		System: scorerSystemPrompt,
		Messages: []Message{{
			Role:    roleUser,
			Content: []Content{{Type: contentText, Text: prompt.String()}},
		}},
	}

	events, cancel, err := s.transport.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	defer cancel()

	acc := newAccumulator()
	for e := range events {
		acc.apply(e)
		if e.Type == StreamError {
			return nil, e.Err
		}
		if e.Type == StreamEnd {
			break
		}
	}
	if acc.err != nil {
		return nil, acc.err
	}
	return parseScores(firstText(acc.message()))
}

// parseScores reads the reply, tolerating fenced or prefixed JSON.
func parseScores(reply string) ([]store.FeedScore, error) {
	start := strings.IndexByte(reply, '[')
	end := strings.LastIndexByte(reply, ']')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no score array in reply")
	}

	var raw []struct {
		ID         string  `json:"id"`
		Importance float64 `json:"importance"`
		Relevance  float64 `json:"relevance"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("parse score array: %w", err)
	}

	scores := make([]store.FeedScore, 0, len(raw))
	for _, entry := range raw {
		if entry.ID == "" {
			continue
		}
		scores = append(scores, store.FeedScore{
			ID:         entry.ID,
			Importance: entry.Importance,
			Relevance:  entry.Relevance,
		})
	}
	return scores, nil
}
