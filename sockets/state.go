package sockets

// State is the lifecycle position of the server.
type State int

const (
	StateIdle State = iota
	StateListening
	StateConnected
	StateDraining
	StateClosing
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateConnected:
		return "connected"
	case StateDraining:
		return "draining"
	case StateClosing:
		return "closing"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}
