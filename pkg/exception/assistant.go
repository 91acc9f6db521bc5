package exception

import "errors"

var (
	ErrMissingAPIKey = errors.New("assistant: api key not configured")
	ErrTurnInFlight  = errors.New("assistant: a turn is already running")
	ErrStreamClosed  = errors.New("assistant: stream closed before end event")
)
