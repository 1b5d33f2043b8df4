package feed

// State is the lifecycle state of the update channel.
//
//	Disconnected -> Connecting     Connect
//	Connecting   -> Open           handshake succeeded
//	Connecting   -> Error          handshake failed
//	Open         -> Error          transport error while reading
//	Error        -> Disconnected   reconnect scheduled
//	Open         -> Disconnected   server closed the channel normally
//	any          -> Closed         Close
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateError
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
