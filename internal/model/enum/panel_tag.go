package enum

// PanelTag marks the provenance of an investigation panel's content.
type PanelTag uint8

const (
	_panel_tag_beg PanelTag = iota
	PanelTagStream
	PanelTagClaude
	PanelTagLocal
	_panel_tag_end
)

func (t PanelTag) IsAvailable() bool {
	return t > _panel_tag_beg && t < _panel_tag_end
}

func (t PanelTag) String() string {
	switch t {
	case PanelTagStream:
		return "STREAM"
	case PanelTagClaude:
		return "CLAUDE"
	case PanelTagLocal:
		return "LOCAL"
	default:
		return "UNKNOWN"
	}
}
