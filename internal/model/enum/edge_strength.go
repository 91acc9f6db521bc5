package enum

type EdgeStrength uint8

const (
	_edge_strength_beg EdgeStrength = iota
	EdgeStrong
	EdgeWeak
	EdgeSpeculative
	_edge_strength_end
)

func (s EdgeStrength) IsAvailable() bool {
	return s > _edge_strength_beg && s < _edge_strength_end
}

func (s EdgeStrength) String() string {
	switch s {
	case EdgeStrong:
		return "strong"
	case EdgeWeak:
		return "weak"
	case EdgeSpeculative:
		return "speculative"
	default:
		return "unknown"
	}
}

// ParseEdgeStrength maps the wire value to its enum, defaulting to weak so a
// malformed tool argument never drops the association.
func ParseEdgeStrength(s string) EdgeStrength {
	switch s {
	case "strong":
		return EdgeStrong
	case "speculative":
		return EdgeSpeculative
	default:
		return EdgeWeak
	}
}
