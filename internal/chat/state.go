package chat

// ConnectionState represents the current state of the relay connection.
type ConnectionState int

const (
	// StateDisconnected means the session is idle: never connected, or gave up reconnecting.
	StateDisconnected ConnectionState = iota

	// StateConnecting means the first dial or hello is in flight.
	StateConnecting

	// StateConnected means the relay acknowledged the hello.
	StateConnected

	// StateReconnecting means the connection dropped and the session is backing off.
	StateReconnecting

	// StateClosed means the session was closed by its owner and cannot be reused.
	StateClosed
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// active reports whether a connection loop is running for this state.
func (s ConnectionState) active() bool {
	return s == StateConnecting || s == StateConnected || s == StateReconnecting
}

// StateEvent represents a state change.
type StateEvent struct {
	Old     ConnectionState
	New     ConnectionState
	Attempt int   // reconnect attempt, set for StateReconnecting
	Err     error // optional error that caused the change
}
