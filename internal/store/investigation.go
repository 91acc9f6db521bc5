package store

import (
	"fmt"
	"sync"

	"pulsedesk/internal/model"
	"pulsedesk/internal/model/enum"
)

const panelCount = 6

// Investigation derives a fixed six-panel diagnostic layout from a single
// selected card. The panel set is rebuilt wholesale on every Open; Close
// only flips the open flag and deliberately keeps the last set in memory.
type Investigation struct {
	mu     sync.Mutex
	open   bool
	panels []model.Panel

	realtime *Realtime
	canvas   *Canvas
}

// NewInvestigation creates a store reading point-in-time joins of the canvas
// and realtime stores.
func NewInvestigation(realtime *Realtime, canvas *Canvas) *Investigation {
	return &Investigation{realtime: realtime, canvas: canvas}
}

// Open synchronously builds and replaces the entire panel set for the card.
// Cards carrying a symbol get the fixed diagnostic set seeded from a live
// realtime snapshot; others get the card itself cross-referenced against up
// to five other cards on the canvas, padded to exactly six panels.
func (s *Investigation) Open(card model.Card) {
	var panels []model.Panel
	if card.Symbol != "" {
		panels = s.symbolPanels(card)
	} else {
		panels = s.genericPanels(card)
	}

	s.mu.Lock()
	s.panels = panels
	s.open = true
	s.mu.Unlock()
}

// Close clears the open flag. The panel set is retained; reopening without
// another Open call does not rebuild.
func (s *Investigation) Close() {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
}

// IsOpen reports whether investigation mode is showing.
func (s *Investigation) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Panels returns the current panel snapshot.
func (s *Investigation) Panels() []model.Panel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Panel, len(s.panels))
	copy(out, s.panels)
	return out
}

// ToggleMaximize negates the target's maximized flag and forces every other
// panel's flag off in the same update; at most one panel stays maximized.
func (s *Investigation) ToggleMaximize(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	panels := make([]model.Panel, len(s.panels))
	copy(panels, s.panels)
	for i := range panels {
		if panels[i].ID == id {
			panels[i].IsMaximized = !panels[i].IsMaximized
		} else {
			panels[i].IsMaximized = false
		}
	}
	s.panels = panels
}

// ToggleFold toggles only the target's folded flag, clearing its own
// maximized flag if set. Other panels are untouched.
func (s *Investigation) ToggleFold(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	panels := make([]model.Panel, len(s.panels))
	copy(panels, s.panels)
	for i := range panels {
		if panels[i].ID != id {
			continue
		}
		panels[i].IsFolded = !panels[i].IsFolded
		panels[i].IsMaximized = false
	}
	s.panels = panels
}

// UpdatePanel replaces a panel's content once an external fill arrives.
// Unknown ids are no-ops.
func (s *Investigation) UpdatePanel(id, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	panels := make([]model.Panel, len(s.panels))
	copy(panels, s.panels)
	for i := range panels {
		if panels[i].ID == id {
			panels[i].Content = content
		}
	}
	s.panels = panels
}

func (s *Investigation) symbolPanels(card model.Card) []model.Panel {
	overview := fmt.Sprintf("%s: no data", card.Symbol)
	if ticker, ok := s.realtime.Ticker(card.Symbol); ok {
		overview = fmt.Sprintf(
			"%s %.2f (%+.2f%%)\nvol %.2f  high %.2f  low %.2f  latency %dms",
			ticker.Symbol, ticker.Price, ticker.Change24h,
			ticker.Volume24h, ticker.High24h, ticker.Low24h, ticker.LatencyMs,
		)
	}
	if card.Content != "" {
		overview += "\n\n" + card.Content
	}

	return []model.Panel{
		{ID: "overview", Title: "Overview", Content: overview, Tag: enum.PanelTagStream},
		{ID: "chart", Title: "Chart", Tag: enum.PanelTagStream},
		{ID: "news", Title: "News", Tag: enum.PanelTagClaude},
		{ID: "whale", Title: "Whale Activity", Tag: enum.PanelTagClaude},
		{ID: "onchain", Title: "On-chain", Tag: enum.PanelTagClaude},
		{ID: "sector", Title: "Sector", Tag: enum.PanelTagClaude},
	}
}

func (s *Investigation) genericPanels(card model.Card) []model.Panel {
	panels := make([]model.Panel, 0, panelCount)
	panels = append(panels, model.Panel{
		ID:      "target",
		Title:   card.Title,
		Content: card.Content,
		Tag:     enum.PanelTagLocal,
	})

	// cross-reference the first five other cards in store order
	for _, item := range s.canvas.Items() {
		if len(panels) == panelCount {
			break
		}
		other, ok := item.(model.Card)
		if !ok || other.ID == card.ID {
			continue
		}
		panels = append(panels, model.Panel{
			ID:      "ref-" + other.ID,
			Title:   other.Title,
			Content: other.Content,
			Tag:     enum.PanelTagLocal,
		})
	}

	for i := len(panels); i < panelCount; i++ {
		panels = append(panels, model.Panel{
			ID:    fmt.Sprintf("empty-%d", i),
			Title: "Empty",
			Tag:   enum.PanelTagLocal,
		})
	}
	return panels
}
