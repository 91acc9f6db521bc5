package assistant

import (
	"context"
	"sync"

	"github.com/yanun0323/logs"

	"pulsedesk/pkg/exception"
)

// maxToolRounds bounds one turn so pathological tool-calling always
// terminates; hitting the bound ends the turn without error.
const maxToolRounds = 10

const defaultSystemPrompt = "You are a market research copilot embedded in an " +
	"infinite-canvas dashboard. Use the canvas tools to lay out findings as " +
	"cards, link related cards with edges, and keep answers terse."

// Assistant drives the chat turn loop. It is one of two canvas writers (the
// other is user input); every mutation goes through the Executor so tool
// failures stay in-band as conversation content.
type Assistant struct {
	transport Transport
	exec      *Executor
	model     string
	system    string

	mu       sync.Mutex
	history  []Message
	inFlight bool
}

func New(transport Transport, exec *Executor, model string) *Assistant {
	return &Assistant{
		transport: transport,
		exec:      exec,
		model:     model,
		system:    defaultSystemPrompt,
	}
}

// History returns a snapshot of the conversation so far.
func (a *Assistant) History() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Message, len(a.history))
	copy(out, a.history)
	return out
}

// Reset drops the conversation history.
func (a *Assistant) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = nil
}

// Send runs one full turn: stream a response, execute any requested tools,
// feed results back, repeat up to maxToolRounds. onDelta, if non-nil,
// receives text fragments as they stream. The final assistant text is
// returned; on failure the error text is also recorded as assistant content
// so the conversation shows what went wrong.
func (a *Assistant) Send(ctx context.Context, text string, onDelta func(string)) (string, error) {
	if !a.transport.Configured() {
		return "", exception.ErrMissingAPIKey
	}

	a.mu.Lock()
	if a.inFlight {
		a.mu.Unlock()
		return "", exception.ErrTurnInFlight
	}
	a.inFlight = true
	a.history = append(a.history, Message{
		Role:    roleUser,
		Content: []Content{{Type: contentText, Text: text}},
	})
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.inFlight = false
		a.mu.Unlock()
	}()

	var lastText string
	for round := 0; round < maxToolRounds; round++ {
		msg, err := a.streamOnce(ctx, onDelta)
		if err != nil {
			a.recordFailure(err)
			return err.Error(), err
		}

		a.mu.Lock()
		a.history = append(a.history, msg)
		a.mu.Unlock()

		lastText = firstText(msg)
		calls := toolUses(msg)
		if len(calls) == 0 {
			return lastText, nil
		}

		results := Message{Role: roleUser}
		for _, use := range calls {
			results.Content = append(results.Content, Content{
				Type:   contentToolResult,
				ToolID: use.ToolID,
				Result: a.runTool(ctx, use),
			})
		}
		a.mu.Lock()
		a.history = append(a.history, results)
		a.mu.Unlock()
	}

	logs.Warnf("assistant turn hit the %d-round tool bound", maxToolRounds)
	return lastText, nil
}

// streamOnce issues one request and reassembles the streamed response. The
// transport subscription is scoped to this call; cancel always runs.
func (a *Assistant) streamOnce(ctx context.Context, onDelta func(string)) (Message, error) {
	a.mu.Lock()
	req := Request{
		Model:    a.model,
		System:   a.system,
		Messages: append([]Message(nil), a.history...),
		Tools:    toolSpecs(),
	}
	a.mu.Unlock()

	events, cancel, err := a.transport.Stream(ctx, req)
	if err != nil {
		return Message{}, err
	}
	defer cancel()

	acc := newAccumulator()
	ended := false
	for e := range events {
		acc.apply(e)
		if e.Type == StreamTextDelta && onDelta != nil {
			onDelta(e.Text)
		}
		if e.Type == StreamError {
			return Message{}, e.Err
		}
		if e.Type == StreamEnd {
			ended = true
			break
		}
	}
	if acc.err != nil {
		return Message{}, acc.err
	}
	if !ended {
		return Message{}, exception.ErrStreamClosed
	}
	return acc.message(), nil
}

func (a *Assistant) runTool(ctx context.Context, use Content) string {
	call, err := parseToolCall(use.ToolName, use.Input)
	if err != nil {
		return "error: " + err.Error()
	}
	return a.exec.Execute(ctx, call)
}

func (a *Assistant) recordFailure(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, Message{
		Role:    roleAssistant,
		Content: []Content{{Type: contentText, Text: err.Error()}},
	})
}

func firstText(msg Message) string {
	for _, c := range msg.Content {
		if c.Type == contentText {
			return c.Text
		}
	}
	return ""
}

func toolUses(msg Message) []Content {
	var uses []Content
	for _, c := range msg.Content {
		if c.Type == contentToolUse {
			uses = append(uses, c)
		}
	}
	return uses
}
