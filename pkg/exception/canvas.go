package exception

import "errors"

var (
	ErrItemNotFound  = errors.New("canvas: item not found")
	ErrNotACard      = errors.New("canvas: item is not a card")
	ErrUnknownLayout = errors.New("canvas: unknown layout")
)
