package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"pulsedesk/internal/model"
	"pulsedesk/internal/model/enum"
	"pulsedesk/internal/store"
	"pulsedesk/pkg/exception"
)

// ToolCall is the closed set of operations the model may request. Adding a
// tool means a new variant here plus arms in parseToolCall, Executor.Execute
// and toolSpecs.
type ToolCall interface {
	ToolName() string
	toolCall()
}

type AddCard struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	CardType  string `json:"cardType"`
	Symbol    string `json:"symbol"`
	RelatedTo string `json:"relatedTo"`
	Strength  string `json:"strength"`
}

type AddWebview struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type RemoveCard struct {
	ID string `json:"id"`
}

type RemoveAllCards struct{}

type UpdateCardContent struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type RearrangeCards struct {
	Layout string `json:"layout"`
}

type WebSearch struct {
	Query string `json:"query"`
}

func (AddCard) ToolName() string           { return "add_card" }
func (AddWebview) ToolName() string        { return "add_webview" }
func (RemoveCard) ToolName() string        { return "remove_card" }
func (RemoveAllCards) ToolName() string    { return "remove_all_cards" }
func (UpdateCardContent) ToolName() string { return "update_card_content" }
func (RearrangeCards) ToolName() string    { return "rearrange_cards" }
func (WebSearch) ToolName() string         { return "web_search" }

func (AddCard) toolCall()           {}
func (AddWebview) toolCall()        {}
func (RemoveCard) toolCall()        {}
func (RemoveAllCards) toolCall()    {}
func (UpdateCardContent) toolCall() {}
func (RearrangeCards) toolCall()    {}
func (WebSearch) toolCall()         {}

// parseToolCall maps a wire tool name and its accumulated input JSON to a
// variant. Malformed input degrades to the zero-value variant; an unknown
// name is the caller's problem to report back to the model.
func parseToolCall(name string, input json.RawMessage) (ToolCall, error) {
	decode := func(dst any) {
		if len(input) == 0 {
			return
		}
		_ = json.Unmarshal(input, dst)
	}

	switch name {
	case "add_card":
		var c AddCard
		decode(&c)
		return c, nil
	case "add_webview":
		var c AddWebview
		decode(&c)
		return c, nil
	case "remove_card":
		var c RemoveCard
		decode(&c)
		return c, nil
	case "remove_all_cards":
		return RemoveAllCards{}, nil
	case "update_card_content":
		var c UpdateCardContent
		decode(&c)
		return c, nil
	case "rearrange_cards":
		var c RearrangeCards
		decode(&c)
		return c, nil
	case "web_search":
		var c WebSearch
		decode(&c)
		return c, nil
	default:
		return nil, fmt.Errorf("unknown tool %q", name)
	}
}

// Searcher is the web-search collaborator. Failures come back as
// human-readable strings, never errors; the result is tool content either
// way.
type Searcher interface {
	Search(ctx context.Context, query string) string
}

// Executor applies tool calls to the canvas. Errors stay in-band as result
// strings fed back into the conversation.
type Executor struct {
	canvas *store.Canvas
	search Searcher
}

func NewExecutor(canvas *store.Canvas, search Searcher) *Executor {
	return &Executor{canvas: canvas, search: search}
}

func (e *Executor) Execute(ctx context.Context, call ToolCall) string {
	switch c := call.(type) {
	case AddCard:
		id := e.canvas.AddCard(model.Card{
			Title:    c.Title,
			Content:  c.Content,
			CardType: c.CardType,
			Symbol:   c.Symbol,
		})
		if c.RelatedTo != "" {
			if _, ok := e.canvas.Item(c.RelatedTo); !ok {
				return fmt.Sprintf("created card %s, but related card %q was not found so no edge was drawn", id, c.RelatedTo)
			}
			e.canvas.AddEdge(id, c.RelatedTo, enum.ParseEdgeStrength(c.Strength))
		}
		return fmt.Sprintf("created card %s", id)

	case AddWebview:
		id := e.canvas.AddWebview(model.Webview{URL: c.URL, Title: c.Title})
		return fmt.Sprintf("created webview %s", id)

	case RemoveCard:
		if _, ok := e.canvas.Item(c.ID); !ok {
			return fmt.Sprintf("error: card %q not found", c.ID)
		}
		e.canvas.Remove(c.ID)
		return fmt.Sprintf("removed card %s", c.ID)

	case RemoveAllCards:
		e.canvas.RemoveAll()
		return "removed all cards"

	case UpdateCardContent:
		item, ok := e.canvas.Item(c.ID)
		if !ok {
			return fmt.Sprintf("error: card %q not found", c.ID)
		}
		if _, isCard := item.(model.Card); !isCard {
			return fmt.Sprintf("error: %q is not a card", c.ID)
		}
		e.canvas.UpdateCardContent(c.ID, c.Content)
		return fmt.Sprintf("updated card %s", c.ID)

	case RearrangeCards:
		layout, ok := enum.ParseLayoutKind(c.Layout)
		if !ok {
			return fmt.Sprintf("error: %v: %q", exception.ErrUnknownLayout, c.Layout)
		}
		e.canvas.Rearrange(layout)
		return fmt.Sprintf("rearranged cards as %s", c.Layout)

	case WebSearch:
		return e.search.Search(ctx, c.Query)

	default:
		return fmt.Sprintf("error: unsupported tool %q", call.ToolName())
	}
}
