package source

import (
	"context"

	"pulsedesk/internal/model/enum"
)

// Adapter owns one external realtime transport and translates its protocol
// into canonical ticker records published to the manager's sink.
//
// Connect is idempotent. Disconnect sets the status to disconnected
// unconditionally, which also suppresses any scheduled reconnect.
// Subscribe/Unsubscribe are set operations: repeats are no-ops, and wire
// control messages are only sent while the transport is live.
type Adapter interface {
	Name() string
	Connect(ctx context.Context)
	Disconnect()
	Subscribe(symbol string)
	Unsubscribe(symbol string)
	Status() enum.ConnectionStatus
}
