package model

import "pulsedesk/internal/model/enum"

// Panel is one tile of the six-tile investigation layout.
type Panel struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Content     string        `json:"content"`
	Tag         enum.PanelTag `json:"tag"`
	IsMaximized bool          `json:"isMaximized"`
	IsFolded    bool          `json:"isFolded"`
}
