package enum

// ConnectionStatus tracks one adapter transport, or the aggregate over all
// registered adapters. The zero value is disconnected.
type ConnectionStatus uint8

const (
	ConnectionDisconnected ConnectionStatus = iota
	ConnectionConnecting
	ConnectionConnected
	ConnectionReconnecting
)

func (s ConnectionStatus) String() string {
	switch s {
	case ConnectionConnecting:
		return "connecting"
	case ConnectionConnected:
		return "connected"
	case ConnectionReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}
