package notification

// ConnState is the lifecycle of the feed's push connection.
//
//	Disconnected -> Connecting -> Open -> Disconnected  (explicit Disconnect)
//	                                   -> Reconnecting -> Connecting
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateOpen
	StateReconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	}
	return "unknown"
}
