package chat

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUnreadBadge(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, ""},
		{1, "1"},
		{9, "9"},
		{10, "9+"},
		{42, "9+"},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.n), func(t *testing.T) {
			require.Equal(t, tt.want, UnreadBadge(tt.n))
		})
	}
}

func TestCompactCountsUnreadWhileCollapsed(t *testing.T) {
	c := NewCompact("alice")
	var log []Message

	add := func(user string, typ MessageType) {
		log = append(log, Message{ID: strconv.Itoa(len(log)), Type: typ, Username: user})
		c.Observe(log)
	}

	add("bob", MessageTypeUser)
	add("alice", MessageTypeUser)
	add("", MessageTypeSystem)
	require.Equal(t, 1, c.Unread())
	require.Equal(t, "1", c.Badge())

	for i := 0; i < 11; i++ {
		add("bob", MessageTypeUser)
	}
	require.Equal(t, 12, c.Unread())
	require.Equal(t, "9+", c.Badge())

	c.Toggle()
	require.True(t, c.IsOpen())
	require.Zero(t, c.Unread())

	add("bob", MessageTypeUser)
	require.Zero(t, c.Unread())

	c.Toggle()
	add("carol", MessageTypeUser)
	require.Equal(t, 1, c.Unread())

	// Re-observing the same log does not double count.
	c.Observe(log)
	require.Equal(t, 1, c.Unread())
}

func TestCompactAfterLastSeenIsEvicted(t *testing.T) {
	c := NewCompact("alice")
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := func(i int) Message {
		return Message{ID: strconv.Itoa(i), Type: MessageTypeUser, Username: "bob", Timestamp: base.Add(time.Duration(i) * time.Second)}
	}

	c.Observe([]Message{msg(0), msg(1), msg(2)})
	require.Equal(t, 3, c.Unread())

	// Ring buffer dropped everything up to and including the last seen message.
	c.Observe([]Message{msg(3), msg(4)})
	require.Equal(t, 5, c.Unread())

	c.Toggle()
	c.Toggle()
	require.Zero(t, c.Unread())

	// Log cleared, then new traffic arrives.
	c.Observe(nil)
	c.Observe([]Message{msg(5)})
	require.Equal(t, 1, c.Unread())

	// Older entries replayed without the last seen one are not recounted.
	c.Observe([]Message{msg(2), msg(3), msg(4)})
	require.Equal(t, 1, c.Unread())
}
