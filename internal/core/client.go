package core

// Client is a chat participant as seen by the core layer.
type Client struct {
	ID       string
	Name     string
	UserID   string
	Commands chan *Command
	Events   chan *Event

	room string
	quit chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id, name string) *Client {
	if name == "" {
		name = id
	}
	return &Client{
		ID:       id,
		Name:     name,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 32),
		quit:     make(chan struct{}),
	}
}

// send delivers an event without blocking the hub. Returns false if the client is too slow.
func (c *Client) send(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}
