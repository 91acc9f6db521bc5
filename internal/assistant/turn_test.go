package assistant

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"

	"pulsedesk/internal/store"
	"pulsedesk/pkg/exception"
)

// scriptedTransport plays back one canned event sequence per Stream call.
type scriptedTransport struct {
	configured bool
	rounds     [][]StreamEvent
	calls      int
	cancels    atomic.Int32
	err        error
	requests   []Request
}

func (t *scriptedTransport) Configured() bool { return t.configured }

func (t *scriptedTransport) Stream(_ context.Context, req Request) (<-chan StreamEvent, func(), error) {
	t.requests = append(t.requests, req)
	if t.err != nil {
		return nil, nil, t.err
	}

	var events []StreamEvent
	if t.calls < len(t.rounds) {
		events = t.rounds[t.calls]
	} else {
		events = []StreamEvent{{Type: StreamTextDelta, Text: "done"}, {Type: StreamEnd}}
	}
	t.calls++

	ch := make(chan StreamEvent, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return ch, func() { t.cancels.Add(1) }, nil
}

func textRound(text string) []StreamEvent {
	return []StreamEvent{
		{Type: StreamTextDelta, Text: text},
		{Type: StreamMessageDelta, StopReason: "end_turn"},
		{Type: StreamEnd},
	}
}

func toolRound(name, input string) []StreamEvent {
	return []StreamEvent{
		{Type: StreamToolStart, Index: 0, ToolID: "tu_1", ToolName: name},
		{Type: StreamToolDelta, Index: 0, Partial: input},
		{Type: StreamToolEnd, Index: 0},
		{Type: StreamMessageDelta, StopReason: stopToolUse},
		{Type: StreamEnd},
	}
}

func newTestAssistant(transport Transport) (*Assistant, *store.Canvas) {
	canvas := store.NewCanvas()
	return New(transport, NewExecutor(canvas, &stubSearcher{result: "ok"}), "test-model"), canvas
}

func TestSendMissingKeyBlocked(t *testing.T) {
	transport := &scriptedTransport{configured: false}
	a, _ := newTestAssistant(transport)

	_, err := a.Send(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, exception.ErrMissingAPIKey)
	assert.Zero(t, transport.calls)
	assert.Empty(t, a.History())
}

func TestSendPlainTextTurn(t *testing.T) {
	transport := &scriptedTransport{configured: true, rounds: [][]StreamEvent{textRound("hello there")}}
	a, _ := newTestAssistant(transport)

	var streamed string
	got, err := a.Send(context.Background(), "hi", func(delta string) { streamed += delta })
	require.NoError(t, err)
	assert.Equal(t, "hello there", got)
	assert.Equal(t, "hello there", streamed)
	assert.Equal(t, int32(1), transport.cancels.Load())

	history := a.History()
	require.Len(t, history, 2)
	assert.Equal(t, roleUser, history[0].Role)
	assert.Equal(t, roleAssistant, history[1].Role)
}

func TestSendToolRoundMutatesCanvasAndFeedsResultBack(t *testing.T) {
	transport := &scriptedTransport{configured: true, rounds: [][]StreamEvent{
		toolRound("add_card", `{"title":"BTC flows"}`),
		textRound("card added"),
	}}
	a, canvas := newTestAssistant(transport)

	got, err := a.Send(context.Background(), "chart btc", nil)
	require.NoError(t, err)
	assert.Equal(t, "card added", got)
	assert.Len(t, canvas.Items(), 1)

	// round 2's request must carry the tool result appended after round 1
	require.Len(t, transport.requests, 2)
	second := transport.requests[1]
	last := second.Messages[len(second.Messages)-1]
	assert.Equal(t, roleUser, last.Role)
	require.Len(t, last.Content, 1)
	assert.Equal(t, contentToolResult, last.Content[0].Type)
	assert.Equal(t, "tu_1", last.Content[0].ToolID)
	assert.Contains(t, last.Content[0].Result, "created card")
}

func TestSendUnknownToolReportedInBand(t *testing.T) {
	transport := &scriptedTransport{configured: true, rounds: [][]StreamEvent{
		toolRound("format_disk", `{}`),
		textRound("understood"),
	}}
	a, _ := newTestAssistant(transport)

	_, err := a.Send(context.Background(), "hi", nil)
	require.NoError(t, err)

	second := transport.requests[1]
	last := second.Messages[len(second.Messages)-1]
	assert.Contains(t, last.Content[0].Result, "unknown tool")
}

func TestSendStopsAtToolRoundBound(t *testing.T) {
	rounds := make([][]StreamEvent, 20)
	for i := range rounds {
		rounds[i] = toolRound("remove_all_cards", `{}`)
	}
	transport := &scriptedTransport{configured: true, rounds: rounds}
	a, _ := newTestAssistant(transport)

	_, err := a.Send(context.Background(), "loop forever", nil)
	require.NoError(t, err)
	assert.Equal(t, maxToolRounds, transport.calls)
}

func TestSendTransportFailureBecomesAssistantContent(t *testing.T) {
	transport := &scriptedTransport{configured: true, err: errors.New("upstream 529")}
	a, _ := newTestAssistant(transport)

	got, err := a.Send(context.Background(), "hi", nil)
	assert.Error(t, err)
	assert.Equal(t, "upstream 529", got)

	history := a.History()
	last := history[len(history)-1]
	assert.Equal(t, roleAssistant, last.Role)
	assert.Equal(t, "upstream 529", last.Content[0].Text)
}

func TestSendStreamErrorEventFailsTurn(t *testing.T) {
	transport := &scriptedTransport{configured: true, rounds: [][]StreamEvent{{
		{Type: StreamTextDelta, Text: "partial"},
		{Type: StreamError, Err: errors.New("overloaded")},
	}}}
	a, _ := newTestAssistant(transport)

	got, err := a.Send(context.Background(), "hi", nil)
	assert.Error(t, err)
	assert.Equal(t, "overloaded", got)
	assert.Equal(t, int32(1), transport.cancels.Load())
}

func TestSendRejectsConcurrentTurn(t *testing.T) {
	release := make(chan struct{})
	transport := &blockingTransport{release: release, streaming: make(chan struct{})}
	a, _ := newTestAssistant(transport)

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(started)
		_, _ = a.Send(context.Background(), "first", nil)
		close(done)
	}()
	<-started
	<-transport.streaming

	_, err := a.Send(context.Background(), "second", nil)
	assert.ErrorIs(t, err, exception.ErrTurnInFlight)

	close(release)
	<-done
}

func TestResetClearsHistory(t *testing.T) {
	transport := &scriptedTransport{configured: true, rounds: [][]StreamEvent{textRound("hi")}}
	a, _ := newTestAssistant(transport)

	_, err := a.Send(context.Background(), "hello", nil)
	require.NoError(t, err)
	require.NotEmpty(t, a.History())

	a.Reset()
	assert.Empty(t, a.History())
}

// blockingTransport holds the stream open until released.
type blockingTransport struct {
	release   chan struct{}
	streaming chan struct{}
	once      atomic.Bool
}

func (t *blockingTransport) Configured() bool { return true }

func (t *blockingTransport) Stream(context.Context, Request) (<-chan StreamEvent, func(), error) {
	if t.once.CompareAndSwap(false, true) {
		close(t.streaming)
	}
	ch := make(chan StreamEvent, 2)
	go func() {
		<-t.release
		ch <- StreamEvent{Type: StreamTextDelta, Text: "late"}
		ch <- StreamEvent{Type: StreamEnd}
		close(ch)
	}()
	return ch, func() {}, nil
}
