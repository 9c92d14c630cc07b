package proto

import "encoding/json"

// Inbound is the envelope for frames coming from a chat client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello       = "hello"
	InboundTypeMsg         = "msg"
	InboundTypeTypingStart = "typing_start"
	InboundTypeTypingStop  = "typing_stop"
	InboundTypeLeave       = "leave"

	OutboundTypeAck   = "ack"
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventNameMessage = "message"
	EventNameTyping  = "typing"
	EventNameHistory = "history"

	MessageKindUser   = "user"
	MessageKindSystem = "system"

	// MaxMessageLength is the longest message text, in runes, accepted on either side.
	MaxMessageLength = 500
)

// HelloData is sent by the client to join a room.
type HelloData struct {
	User     string `json:"user"`
	UserID   string `json:"user_id,omitempty"`
	Room     string `json:"room,omitempty"`
	Token    string `json:"token,omitempty"`
	Protocol int    `json:"protocol,omitempty"`
}

// MsgData is a chat message from the client. ID is the sender-chosen idempotency key.
type MsgData struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// OutboundFrame is the client-side view of Outbound with the payload left undecoded.
type OutboundFrame struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// AckData confirms a hello.
type AckData struct {
	Room string `json:"room"`
	User string `json:"user"`
}

// EventMessage carries one chat message. TS is unix milliseconds.
type EventMessage struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	User string `json:"user"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// EventTyping reports a presence change for one user.
type EventTyping struct {
	User   string `json:"user"`
	Typing bool   `json:"typing"`
}

// EventHistory delivers recent room messages after a hello.
type EventHistory struct {
	Room     string         `json:"room"`
	Messages []EventMessage `json:"messages"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// NewInbound marshals data into an Inbound envelope. A nil data leaves Data empty.
func NewInbound(typ string, data any) (Inbound, error) {
	if data == nil {
		return Inbound{Type: typ}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Inbound{}, err
	}
	return Inbound{Type: typ, Data: raw}, nil
}
