package core

import "time"

// Room groups clients subscribed to the same channel.
type Room struct {
	Name    string
	clients map[*Client]struct{}
	typing  map[*Client]time.Time // last forwarded typing start
}

// NewRoom constructs a room with no clients.
func NewRoom(name string) *Room {
	return &Room{
		Name:    name,
		clients: make(map[*Client]struct{}),
		typing:  make(map[*Client]time.Time),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	delete(r.typing, c)
	return true
}

// TypingSince returns when the current typing run of c was last announced.
func (r *Room) TypingSince(c *Client) (time.Time, bool) {
	at, ok := r.typing[c]
	return at, ok
}

// StartTyping marks c as typing as of at.
func (r *Room) StartTyping(c *Client, at time.Time) {
	r.typing[c] = at
}

// StopTyping clears the typing flag of c. Returns true if it was set.
func (r *Room) StopTyping(c *Client) bool {
	if _, ok := r.typing[c]; !ok {
		return false
	}
	delete(r.typing, c)
	return true
}

// Broadcast sends an event to all clients in the room except skip (may be nil).
// Returns the number of clients the event was dropped for.
func (r *Room) Broadcast(event *Event, skip *Client) int {
	dropped := 0
	for client := range r.clients {
		if client == skip {
			continue
		}
		if !client.send(event) {
			// Drop if slow consumer.
			dropped++
		}
	}
	return dropped
}

// Size returns the number of clients in the room.
func (r *Room) Size() int {
	return len(r.clients)
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}
