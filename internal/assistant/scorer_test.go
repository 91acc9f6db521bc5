package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsedesk/internal/model"
	"pulsedesk/pkg/exception"
)

func TestScorerParsesFencedReply(t *testing.T) {
	reply := "Here are the scores:\n```json\n" +
		`[{"id":"n1","importance":8,"relevance":0.9},{"id":"n2","importance":2,"relevance":0.1}]` +
		"\n```"
	transport := &scriptedTransport{configured: true, rounds: [][]StreamEvent{textRound(reply)}}
	scorer := NewFeedScorer(transport, "test-model")

	scores, err := scorer.Score(context.Background(), []model.FeedItem{{ID: "n1"}, {ID: "n2"}})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "n1", scores[0].ID)
	assert.Equal(t, 8.0, scores[0].Importance)
	assert.Equal(t, 0.9, scores[0].Relevance)
}

func TestScorerRejectsNonJSONReply(t *testing.T) {
	transport := &scriptedTransport{configured: true, rounds: [][]StreamEvent{textRound("I cannot score these.")}}
	scorer := NewFeedScorer(transport, "test-model")

	_, err := scorer.Score(context.Background(), []model.FeedItem{{ID: "n1"}})
	assert.Error(t, err)
}

func TestScorerMissingKey(t *testing.T) {
	scorer := NewFeedScorer(&scriptedTransport{configured: false}, "test-model")
	_, err := scorer.Score(context.Background(), []model.FeedItem{{ID: "n1"}})
	assert.ErrorIs(t, err, exception.ErrMissingAPIKey)
}

func TestScorerSkipsEntriesWithoutID(t *testing.T) {
	reply := `[{"id":"","importance":5,"relevance":0.5},{"id":"n2","importance":3,"relevance":0.2}]`
	transport := &scriptedTransport{configured: true, rounds: [][]StreamEvent{textRound(reply)}}
	scorer := NewFeedScorer(transport, "test-model")

	scores, err := scorer.Score(context.Background(), []model.FeedItem{{ID: "n2"}})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, "n2", scores[0].ID)
}
