package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventAck confirms a join to the joining client.
	EventAck EventKind = iota
	// EventRoomMessage notifies clients about a chat or system message in a room.
	EventRoomMessage
	// EventTyping notifies clients that a user started or stopped typing.
	EventTyping
	// EventHistory delivers recent messages to a client after it joined.
	EventHistory
	// EventError notifies a client about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Room     string
	User     string
	Typing   bool
	Message  Message
	Messages []Message // For EventHistory
	Error    *CoreError
}
