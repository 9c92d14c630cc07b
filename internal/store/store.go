package store

import (
	"context"
	"time"
)

// Message represents a persisted chat message.
type Message struct {
	ID        string
	Room      string
	Username  string
	Body      string
	CreatedAt time.Time
}

// MessageStore persists room history so late joiners can catch up.
type MessageStore interface {
	// SaveMessage stores a message. Saving an ID twice keeps the first copy.
	SaveMessage(ctx context.Context, msg *Message) error

	// RecentMessages returns up to limit latest messages of room, oldest first.
	RecentMessages(ctx context.Context, room string, limit int) ([]Message, error)

	// Close releases the underlying database.
	Close() error
}
