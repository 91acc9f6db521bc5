package enum

type LayoutKind uint8

const (
	_layout_beg LayoutKind = iota
	LayoutGrid
	LayoutStack
	_layout_end
)

func (k LayoutKind) IsAvailable() bool {
	return k > _layout_beg && k < _layout_end
}

func (k LayoutKind) String() string {
	switch k {
	case LayoutGrid:
		return "grid"
	case LayoutStack:
		return "stack"
	default:
		return "unknown"
	}
}

func ParseLayoutKind(s string) (LayoutKind, bool) {
	switch s {
	case "grid":
		return LayoutGrid, true
	case "stack":
		return LayoutStack, true
	default:
		return 0, false
	}
}
