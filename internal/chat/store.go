package chat

import "sync"

// DefaultMaxMessages bounds the message log of a session.
const DefaultMaxMessages = 500

// MessageStore is an append-only, bounded log of chat messages in receipt order.
// Appending a message whose ID is already stored is a no-op. When the log is full
// the oldest message is evicted.
type MessageStore struct {
	mu    sync.RWMutex
	buf   []Message
	head  int // index of the oldest message
	count int
	ids   map[string]struct{}
}

// NewMessageStore creates a store holding at most capacity messages.
func NewMessageStore(capacity int) *MessageStore {
	if capacity <= 0 {
		capacity = DefaultMaxMessages
	}
	return &MessageStore{
		buf: make([]Message, capacity),
		ids: make(map[string]struct{}, capacity),
	}
}

// Append inserts msg at the tail. It returns false if a message with the same ID is stored.
func (s *MessageStore) Append(msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID != "" {
		if _, dup := s.ids[msg.ID]; dup {
			return false
		}
	}

	if s.count == len(s.buf) {
		evicted := s.buf[s.head]
		delete(s.ids, evicted.ID)
		s.buf[s.head] = msg
		s.head = (s.head + 1) % len(s.buf)
	} else {
		s.buf[(s.head+s.count)%len(s.buf)] = msg
		s.count++
	}
	if msg.ID != "" {
		s.ids[msg.ID] = struct{}{}
	}
	return true
}

// Messages returns a copy of the log, oldest first.
func (s *MessageStore) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, s.count)
	for i := 0; i < s.count; i++ {
		out[i] = s.buf[(s.head+i)%len(s.buf)]
	}
	return out
}

// Len returns the number of stored messages.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Cap returns the maximum number of stored messages.
func (s *MessageStore) Cap() int {
	return len(s.buf)
}

// Clear drops every message.
func (s *MessageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.buf)
	s.head = 0
	s.count = 0
	s.ids = make(map[string]struct{}, len(s.buf))
}
