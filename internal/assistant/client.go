package assistant

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yanun0323/errors"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1/messages"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 4096

	streamEventBuffer = 64
)

// Client streams chat completions over SSE and maps the provider's event
// stream onto StreamEvents.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(apiKey string, baseURL ...string) *Client {
	url := defaultBaseURL
	if len(baseURL) != 0 && baseURL[0] != "" {
		url = baseURL[0]
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: url,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Stream issues one request and emits reassembly events until the stream
// ends. The cancel func aborts the request and releases the reader; the
// event channel always closes.
func (c *Client) Stream(ctx context.Context, req Request) (<-chan StreamEvent, func(), error) {
	body, err := json.Marshal(c.payload(req))
	if err != nil {
		return nil, nil, errors.Wrap(err, "encode chat request")
	}

	ctx, cancel := context.WithCancel(ctx)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, nil, errors.Wrap(err, "build chat request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", apiVersion)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		cancel()
		return nil, nil, errors.Wrap(err, "chat request")
	}
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		return nil, nil, errors.Errorf("chat request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	events := make(chan StreamEvent, streamEventBuffer)
	go func() {
		defer close(events)
		defer resp.Body.Close()
		c.readStream(ctx, resp.Body, events)
	}()
	return events, cancel, nil
}

type wirePayload struct {
	Model     string        `json:"model"`
	System    string        `json:"system,omitempty"`
	MaxTokens int           `json:"max_tokens"`
	Stream    bool          `json:"stream"`
	Messages  []wireMessage `json:"messages"`
	Tools     []ToolSpec    `json:"tools,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content []any  `json:"content"`
}

func (c *Client) payload(req Request) wirePayload {
	out := wirePayload{
		Model:     req.Model,
		System:    req.System,
		MaxTokens: defaultMaxTokens,
		Stream:    true,
		Tools:     req.Tools,
	}
	for _, msg := range req.Messages {
		wm := wireMessage{Role: msg.Role}
		for _, block := range msg.Content {
			switch block.Type {
			case contentText:
				wm.Content = append(wm.Content, map[string]any{
					"type": contentText,
					"text": block.Text,
				})
			case contentToolUse:
				wm.Content = append(wm.Content, map[string]any{
					"type":  contentToolUse,
					"id":    block.ToolID,
					"name":  block.ToolName,
					"input": block.Input,
				})
			case contentToolResult:
				wm.Content = append(wm.Content, map[string]any{
					"type":        contentToolResult,
					"tool_use_id": block.ToolID,
					"content":     block.Result,
					"is_error":    block.IsError,
				})
			}
		}
		out.Messages = append(out.Messages, wm)
	}
	return out
}

type wireEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`

	ContentBlock struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`

	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`

	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) readStream(ctx context.Context, r io.Reader, events chan<- StreamEvent) {
	// emit never blocks past cancellation, so a detached consumer cannot
	// strand this goroutine.
	emit := func(e StreamEvent) bool {
		select {
		case events <- e:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}

		var we wireEvent
		if err := json.Unmarshal([]byte(data), &we); err != nil {
			continue // partial or garbled frame, the next one resyncs
		}

		switch we.Type {
		case "content_block_start":
			if we.ContentBlock.Type == contentToolUse {
				if !emit(StreamEvent{
					Type:     StreamToolStart,
					Index:    we.Index,
					ToolID:   we.ContentBlock.ID,
					ToolName: we.ContentBlock.Name,
				}) {
					return
				}
			}
		case "content_block_delta":
			switch we.Delta.Type {
			case "text_delta":
				if !emit(StreamEvent{Type: StreamTextDelta, Text: we.Delta.Text}) {
					return
				}
			case "input_json_delta":
				if !emit(StreamEvent{Type: StreamToolDelta, Index: we.Index, Partial: we.Delta.PartialJSON}) {
					return
				}
			}
		case "content_block_stop":
			if !emit(StreamEvent{Type: StreamToolEnd, Index: we.Index}) {
				return
			}
		case "message_delta":
			if !emit(StreamEvent{Type: StreamMessageDelta, StopReason: we.Delta.StopReason}) {
				return
			}
		case "message_stop":
			emit(StreamEvent{Type: StreamEnd})
			return
		case "error":
			emit(StreamEvent{Type: StreamError, Err: errors.New(we.Error.Message)})
			return
		}
	}

	if err := scanner.Err(); err != nil {
		emit(StreamEvent{Type: StreamError, Err: errors.Wrap(err, "read chat stream")})
		return
	}
	emit(StreamEvent{Type: StreamEnd})
}
