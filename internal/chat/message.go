package chat

import (
	"time"

	"github.com/vovakirdan/livechat/internal/proto"
)

// MessageType distinguishes user messages from relay notices.
type MessageType string

const (
	MessageTypeUser   MessageType = proto.MessageKindUser
	MessageTypeSystem MessageType = proto.MessageKindSystem
)

// MaxMessageLength is the longest message, in runes, the widget will send.
const MaxMessageLength = proto.MaxMessageLength

// Message is one entry of the chat log. Values are never modified after creation.
type Message struct {
	ID        string
	Type      MessageType
	Username  string
	Text      string
	Timestamp time.Time
}

// IsSystem reports whether the message is a relay notice.
func (m Message) IsSystem() bool {
	return m.Type == MessageTypeSystem
}

func messageFromEvent(ev proto.EventMessage) Message {
	typ := MessageTypeUser
	if ev.Kind == proto.MessageKindSystem {
		typ = MessageTypeSystem
	}
	return Message{
		ID:        ev.ID,
		Type:      typ,
		Username:  ev.User,
		Text:      ev.Text,
		Timestamp: time.UnixMilli(ev.TS),
	}
}
