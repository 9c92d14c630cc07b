package core

import "time"

// MessageKind separates user chat lines from relay notices.
type MessageKind string

const (
	MessageKindUser   MessageKind = "user"
	MessageKindSystem MessageKind = "system"
)

// Message is the domain model for a chat message.
type Message struct {
	ID        string
	Kind      MessageKind
	Room      string
	From      string
	Text      string
	CreatedAt time.Time
}
