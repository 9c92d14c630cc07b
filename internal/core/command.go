package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoin subscribes the client to a room under the given name.
	CommandJoin CommandKind = iota
	// CommandSendMessage delivers a chat message to the client's room.
	CommandSendMessage
	// CommandTypingStart announces that the client started typing.
	CommandTypingStart
	// CommandTypingStop announces that the client stopped typing.
	CommandTypingStop
	// CommandLeave unsubscribes the client from its room.
	CommandLeave
)

// Command represents an action requested by a client.
type Command struct {
	Kind    CommandKind
	Room    string
	User    string
	UserID  string
	Message Message
}
