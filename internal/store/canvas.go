package store

import (
	"sync"

	"github.com/google/uuid"

	"pulsedesk/internal/model"
	"pulsedesk/internal/model/enum"
)

// Canvas layout constants. Placement is deterministic: new items go to the
// right of the most recently added one, wrapping to a fresh row below the
// lowest bottom edge once the row would exceed the maximum width.
const (
	canvasOriginX = 80.0
	canvasOriginY = 80.0
	canvasGap     = 24.0
	maxRowWidth   = 2000.0

	defaultCardWidth     = 320.0
	defaultCardHeight    = 240.0
	defaultWebviewWidth  = 480.0
	defaultWebviewHeight = 360.0

	gridColumns = 3

	minZoom = 0.1
	maxZoom = 3.0
)

// Canvas is the infinite-canvas document: the ordered item collection (also
// the z-order), the edge graph, and the viewport. It is mutated both by
// direct user input and by the assistant's tool layer; every mutation
// replaces the backing slice so reads are always consistent snapshots.
type Canvas struct {
	mu       sync.RWMutex
	items    []model.CanvasItem
	edges    []model.Edge
	viewport model.Viewport
}

// NewCanvas creates an empty canvas with the viewport at origin.
func NewCanvas() *Canvas {
	return &Canvas{viewport: model.Viewport{Zoom: 1}}
}

// AddCard inserts a card and returns its generated id synchronously, so the
// id can be wired into an edge within the same logical operation. A card
// without an explicit position (X and Y both zero) is auto-placed.
func (c *Canvas) AddCard(card model.Card) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	card.ID = uuid.NewString()
	if card.Frame.Width <= 0 {
		card.Frame.Width = defaultCardWidth
	}
	if card.Frame.Height <= 0 {
		card.Frame.Height = defaultCardHeight
	}
	if card.Frame.X == 0 && card.Frame.Y == 0 {
		card.Frame.X, card.Frame.Y = c.placeLocked(card.Frame.Width)
	}
	c.items = append(c.snapshotItemsLocked(), card)
	return card.ID
}

// AddWebview inserts a webview, auto-placing it like AddCard.
func (c *Canvas) AddWebview(web model.Webview) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	web.ID = uuid.NewString()
	if web.Frame.Width <= 0 {
		web.Frame.Width = defaultWebviewWidth
	}
	if web.Frame.Height <= 0 {
		web.Frame.Height = defaultWebviewHeight
	}
	if web.Frame.X == 0 && web.Frame.Y == 0 {
		web.Frame.X, web.Frame.Y = c.placeLocked(web.Frame.Width)
	}
	c.items = append(c.snapshotItemsLocked(), web)
	return web.ID
}

// AddEdge records a directed association between two items. Endpoints are
// not validated; dangling edges are tolerated and skipped by readers.
func (c *Canvas) AddEdge(fromID, toID string, strength enum.EdgeStrength) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	edge := model.Edge{
		ID:         uuid.NewString(),
		FromNodeID: fromID,
		ToNodeID:   toID,
		Strength:   strength,
	}
	edges := make([]model.Edge, len(c.edges), len(c.edges)+1)
	copy(edges, c.edges)
	c.edges = append(edges, edge)
	return edge.ID
}

// Remove deletes an item by id. Edges referencing it are left in place.
func (c *Canvas) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]model.CanvasItem, 0, len(c.items))
	for _, item := range c.items {
		if item.ItemID() != id {
			items = append(items, item)
		}
	}
	c.items = items
}

// RemoveAll clears every item and edge.
func (c *Canvas) RemoveAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.edges = nil
}

// UpdatePosition moves an item. Positions are applied verbatim; off-canvas
// coordinates are not rejected. Unknown ids are no-ops.
func (c *Canvas) UpdatePosition(id string, x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaceLocked(id, func(item model.CanvasItem) model.CanvasItem {
		f := item.ItemFrame()
		f.X, f.Y = x, y
		return item.WithFrame(f)
	})
}

// UpdateSize resizes an item verbatim. Unknown ids are no-ops.
func (c *Canvas) UpdateSize(id string, width, height float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaceLocked(id, func(item model.CanvasItem) model.CanvasItem {
		f := item.ItemFrame()
		f.Width, f.Height = width, height
		return item.WithFrame(f)
	})
}

// UpdateCardContent replaces a card's content. A no-op when the id does not
// resolve to a card (webviews carry no content).
func (c *Canvas) UpdateCardContent(id, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaceLocked(id, func(item model.CanvasItem) model.CanvasItem {
		card, ok := item.(model.Card)
		if !ok {
			return item
		}
		card.Content = content
		card.IsLoading = false
		return card
	})
}

// Rearrange recomputes every item position. Grid lays items out row-major at
// a fixed column count; stack is a single vertical column in current order.
// Neither resizes anything.
func (c *Canvas) Rearrange(kind enum.LayoutKind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := c.snapshotItemsLocked()
	switch kind {
	case enum.LayoutGrid:
		for i, item := range items {
			col := i % gridColumns
			row := i / gridColumns
			f := item.ItemFrame()
			f.X = canvasOriginX + float64(col)*(defaultCardWidth+canvasGap)
			f.Y = canvasOriginY + float64(row)*(defaultCardHeight+canvasGap)
			items[i] = item.WithFrame(f)
		}
	case enum.LayoutStack:
		y := canvasOriginY
		for i, item := range items {
			f := item.ItemFrame()
			f.X = canvasOriginX
			f.Y = y
			y += f.Height + canvasGap
			items[i] = item.WithFrame(f)
		}
	default:
		return
	}
	c.items = items
}

// Items returns the ordered item snapshot. Order is insertion order and also
// z-order.
func (c *Canvas) Items() []model.CanvasItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotItemsLocked()
}

// Item looks an item up by id.
func (c *Canvas) Item(id string) (model.CanvasItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if item.ItemID() == id {
			return item, true
		}
	}
	return nil, false
}

// Edges returns the edge snapshot, dangling ones included.
func (c *Canvas) Edges() []model.Edge {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Edge, len(c.edges))
	copy(out, c.edges)
	return out
}

// LiveEdges returns only edges whose endpoints both still exist. Renderers
// use this; the underlying set keeps dangling entries.
func (c *Canvas) LiveEdges() []model.Edge {
	c.mu.RLock()
	defer c.mu.RUnlock()

	present := make(map[string]struct{}, len(c.items))
	for _, item := range c.items {
		present[item.ItemID()] = struct{}{}
	}
	out := make([]model.Edge, 0, len(c.edges))
	for _, e := range c.edges {
		if _, ok := present[e.FromNodeID]; !ok {
			continue
		}
		if _, ok := present[e.ToNodeID]; !ok {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Viewport returns the current camera transform.
func (c *Canvas) Viewport() model.Viewport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewport
}

// SetViewport stores the camera transform, clamping zoom to [0.1, 3.0].
func (c *Canvas) SetViewport(v model.Viewport) {
	if v.Zoom < minZoom {
		v.Zoom = minZoom
	}
	if v.Zoom > maxZoom {
		v.Zoom = maxZoom
	}
	c.mu.Lock()
	c.viewport = v
	c.mu.Unlock()
}

// placeLocked computes the auto-layout position for a new item of the given
// width.
func (c *Canvas) placeLocked(width float64) (x, y float64) {
	if len(c.items) == 0 {
		return canvasOriginX, canvasOriginY
	}
	last := c.items[len(c.items)-1].ItemFrame()
	x = last.Right() + canvasGap
	if x+width <= maxRowWidth {
		return x, last.Y
	}

	bottom := 0.0
	for _, item := range c.items {
		if b := item.ItemFrame().Bottom(); b > bottom {
			bottom = b
		}
	}
	return canvasOriginX, bottom + canvasGap
}

func (c *Canvas) replaceLocked(id string, mutate func(model.CanvasItem) model.CanvasItem) {
	for i, item := range c.items {
		if item.ItemID() != id {
			continue
		}
		items := c.snapshotItemsLocked()
		items[i] = mutate(item)
		c.items = items
		return
	}
}

func (c *Canvas) snapshotItemsLocked() []model.CanvasItem {
	out := make([]model.CanvasItem, len(c.items))
	copy(out, c.items)
	return out
}
