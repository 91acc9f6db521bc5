package model

import (
	"time"

	"pulsedesk/internal/model/enum"
)

// Frame is the placement of one canvas entity.
type Frame struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (f Frame) Right() float64  { return f.X + f.Width }
func (f Frame) Bottom() float64 { return f.Y + f.Height }

// CanvasItem is the closed union of entities placed on the canvas.
// Only Card and Webview implement it.
type CanvasItem interface {
	ItemID() string
	ItemFrame() Frame
	WithFrame(Frame) CanvasItem

	canvasItem()
}

var (
	_ CanvasItem = Card{}
	_ CanvasItem = Webview{}
)

// Card is an information tile spawned by the assistant or the user.
type Card struct {
	ID         string        `json:"id"`
	Frame      Frame         `json:"frame"`
	Title      string        `json:"title"`
	Content    string        `json:"content"`
	CardType   string        `json:"cardType,omitempty"`
	Symbol     string        `json:"symbol,omitempty"`
	Images     []string      `json:"images,omitempty"`
	IsLoading  bool          `json:"isLoading,omitempty"`
	SpawnDelay time.Duration `json:"spawnDelay,omitempty"`
}

func (c Card) ItemID() string   { return c.ID }
func (c Card) ItemFrame() Frame { return c.Frame }
func (Card) canvasItem()        {}

func (c Card) WithFrame(f Frame) CanvasItem {
	c.Frame = f
	return c
}

// Webview is an embedded external page on the canvas.
type Webview struct {
	ID    string `json:"id"`
	Frame Frame  `json:"frame"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

func (w Webview) ItemID() string   { return w.ID }
func (w Webview) ItemFrame() Frame { return w.Frame }
func (Webview) canvasItem()        {}

func (w Webview) WithFrame(f Frame) CanvasItem {
	w.Frame = f
	return w
}

// Edge is a directed association between two canvas entities. Endpoints may
// dangle after removal; readers skip edges whose endpoints are gone.
type Edge struct {
	ID         string            `json:"id"`
	FromNodeID string            `json:"fromNodeId"`
	ToNodeID   string            `json:"toNodeId"`
	Strength   enum.EdgeStrength `json:"strength"`
}

// Viewport is the canvas camera transform. Not persisted across sessions.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}
