package exception

import "errors"

var (
	ErrNoAdapterRegistered = errors.New("source: no adapter registered")
	ErrSinkFull            = errors.New("source: event sink full")
	ErrSinkClosed          = errors.New("source: event sink closed")
)
