package assistant

import (
	"bytes"
	"encoding/json"
)

// toolSpecs advertises the canvas tool set. Schemas are static; declared
// once at package init.
func toolSpecs() []ToolSpec {
	return allToolSpecs
}

var allToolSpecs = []ToolSpec{
	{
		Name:        "add_card",
		Description: "Add a card to the canvas. Optionally link it to an existing card with relatedTo and a strength of strong, weak or speculative.",
		InputSchema: schema(`{
			"type": "object",
			"properties": {
				"title": {"type": "string"},
				"content": {"type": "string"},
				"cardType": {"type": "string"},
				"symbol": {"type": "string"},
				"relatedTo": {"type": "string"},
				"strength": {"type": "string", "enum": ["strong", "weak", "speculative"]}
			},
			"required": ["title"]
		}`),
	},
	{
		Name:        "add_webview",
		Description: "Embed a web page on the canvas.",
		InputSchema: schema(`{
			"type": "object",
			"properties": {
				"url": {"type": "string"},
				"title": {"type": "string"}
			},
			"required": ["url"]
		}`),
	},
	{
		Name:        "remove_card",
		Description: "Remove one canvas item by id.",
		InputSchema: schema(`{
			"type": "object",
			"properties": {"id": {"type": "string"}},
			"required": ["id"]
		}`),
	},
	{
		Name:        "remove_all_cards",
		Description: "Clear every item from the canvas.",
		InputSchema: schema(`{"type": "object", "properties": {}}`),
	},
	{
		Name:        "update_card_content",
		Description: "Replace the content of an existing card.",
		InputSchema: schema(`{
			"type": "object",
			"properties": {
				"id": {"type": "string"},
				"content": {"type": "string"}
			},
			"required": ["id", "content"]
		}`),
	},
	{
		Name:        "rearrange_cards",
		Description: "Re-lay out every canvas item as a grid or a single stack.",
		InputSchema: schema(`{
			"type": "object",
			"properties": {"layout": {"type": "string", "enum": ["grid", "stack"]}},
			"required": ["layout"]
		}`),
	},
	{
		Name:        "web_search",
		Description: "Search the web and return a plain-text result summary.",
		InputSchema: schema(`{
			"type": "object",
			"properties": {"query": {"type": "string"}},
			"required": ["query"]
		}`),
	},
}

func schema(s string) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		panic("malformed tool schema: " + err.Error())
	}
	return buf.Bytes()
}
