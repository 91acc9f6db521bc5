package assistant

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
)

type StreamEventType uint8

const (
	_stream_event_beg StreamEventType = iota
	StreamTextDelta
	StreamToolStart
	StreamToolDelta
	StreamToolEnd
	StreamMessageDelta
	StreamEnd
	StreamError
	_stream_event_end
)

func (t StreamEventType) IsAvailable() bool {
	return t > _stream_event_beg && t < _stream_event_end
}

// StreamEvent is one typed chunk of an in-flight assistant response. Tool
// input arrives as JSON fragments keyed by block index; the accumulator
// stitches them back together at stream end.
type StreamEvent struct {
	Type StreamEventType

	Text string // StreamTextDelta

	Index    int    // tool block index, StreamToolStart/Delta/End
	ToolID   string // StreamToolStart
	ToolName string // StreamToolStart
	Partial  string // StreamToolDelta, raw JSON fragment

	StopReason string // StreamMessageDelta
	Err        error  // StreamError
}

// Request is one chat completion request: model, system prompt, running
// history and the advertised tool set.
type Request struct {
	Model    string
	System   string
	Messages []Message
	Tools    []ToolSpec
}

// ToolSpec advertises one tool to the model.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// Message is one conversation turn, a role plus ordered content blocks.
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// Content is one block inside a message: plain text, a tool invocation the
// model produced, or the result we feed back.
type Content struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ToolID   string          `json:"tool_use_id,omitempty"`
	ToolName string          `json:"name,omitempty"`
	Input    json.RawMessage `json:"input,omitempty"`
	Result   string          `json:"content,omitempty"`
	IsError  bool            `json:"is_error,omitempty"`
}

const (
	roleUser      = "user"
	roleAssistant = "assistant"

	contentText       = "text"
	contentToolUse    = "tool_use"
	contentToolResult = "tool_result"

	stopToolUse = "tool_use"
)

// Transport delivers one streamed assistant response per Stream call.
// The returned cancel func detaches the consumer; it is safe to call after
// the channel closes and must always be called.
type Transport interface {
	Configured() bool
	Stream(ctx context.Context, req Request) (<-chan StreamEvent, func(), error)
}

type toolDraft struct {
	id    string
	name  string
	input strings.Builder
}

// accumulator reassembles one assistant message from stream events.
type accumulator struct {
	text       strings.Builder
	tools      map[int]*toolDraft
	stopReason string
	err        error
}

func newAccumulator() *accumulator {
	return &accumulator{tools: make(map[int]*toolDraft)}
}

func (a *accumulator) apply(e StreamEvent) {
	switch e.Type {
	case StreamTextDelta:
		a.text.WriteString(e.Text)
	case StreamToolStart:
		a.tools[e.Index] = &toolDraft{id: e.ToolID, name: e.ToolName}
	case StreamToolDelta:
		if draft, ok := a.tools[e.Index]; ok {
			draft.input.WriteString(e.Partial)
		}
	case StreamMessageDelta:
		if e.StopReason != "" {
			a.stopReason = e.StopReason
		}
	case StreamError:
		a.err = e.Err
	case StreamToolEnd, StreamEnd:
		// boundaries carry no payload
	}
}

// message finalizes the turn. Tool input that fails to parse degrades to an
// empty object so one garbled argument never kills the conversation.
func (a *accumulator) message() Message {
	msg := Message{Role: roleAssistant}
	if text := a.text.String(); text != "" {
		msg.Content = append(msg.Content, Content{Type: contentText, Text: text})
	}

	indexes := make([]int, 0, len(a.tools))
	for i := range a.tools {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	for _, i := range indexes {
		draft := a.tools[i]
		input := json.RawMessage(draft.input.String())
		if !json.Valid(input) {
			input = json.RawMessage("{}")
		}
		msg.Content = append(msg.Content, Content{
			Type:     contentToolUse,
			ToolID:   draft.id,
			ToolName: draft.name,
			Input:    input,
		})
	}
	return msg
}
