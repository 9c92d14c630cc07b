package chat

import (
	"strconv"
	"time"
)

// Compact is the floating chat variant. While collapsed it counts messages from other
// users that arrived since it was last open.
type Compact struct {
	self     string
	open     bool
	unread   int
	lastSeen   string // ID of the newest message already accounted for
	lastSeenAt time.Time
}

// NewCompact creates a collapsed widget for the given user.
func NewCompact(self string) *Compact {
	return &Compact{self: self}
}

// IsOpen reports whether the widget is expanded.
func (c *Compact) IsOpen() bool {
	return c.open
}

// Toggle expands or collapses the widget. Expanding marks everything read.
func (c *Compact) Toggle() {
	c.open = !c.open
	if c.open {
		c.unread = 0
	}
}

// Observe accounts for the current message log. Call it after every change.
func (c *Compact) Observe(messages []Message) {
	start, found := 0, c.lastSeen == ""
	for i := len(messages) - 1; i >= 0 && !found; i-- {
		if messages[i].ID == c.lastSeen {
			start, found = i+1, true
		}
	}
	newest := c.lastSeenAt
	if len(messages) > 0 {
		last := messages[len(messages)-1]
		c.lastSeen, c.lastSeenAt = last.ID, last.Timestamp
	}
	if c.open {
		return
	}
	for _, m := range messages[start:] {
		// The last seen message was evicted or cleared: only newer ones are unread.
		if !found && !m.Timestamp.After(newest) {
			continue
		}
		if m.Type == MessageTypeUser && m.Username != c.self {
			c.unread++
		}
	}
}

// Unread returns the unread count.
func (c *Compact) Unread() int {
	return c.unread
}

// Badge returns the unread badge text: "" for none, "9+" above nine.
func (c *Compact) Badge() string {
	return UnreadBadge(c.unread)
}

// UnreadBadge formats an unread count for the badge.
func UnreadBadge(n int) string {
	switch {
	case n <= 0:
		return ""
	case n >= 10:
		return "9+"
	default:
		return strconv.Itoa(n)
	}
}
