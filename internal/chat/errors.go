package chat

import "errors"

var (
	// ErrEmptyMessage is returned when the trimmed message text is empty.
	ErrEmptyMessage = errors.New("empty message")
	// ErrMessageTooLong is returned for messages over MaxMessageLength runes.
	ErrMessageTooLong = errors.New("message too long")
	// ErrNotConnected is returned when sending while the session is not connected.
	ErrNotConnected = errors.New("not connected")
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")
	// ErrGaveUp is wrapped into the last error after the reconnect budget is spent.
	ErrGaveUp = errors.New("reconnect attempts exhausted")
)

// RelayError is an error frame received from the relay.
type RelayError struct {
	Code    string
	Message string
}

func (e *RelayError) Error() string {
	return e.Code + ": " + e.Message
}
