package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestTypingTrackerStartStop(t *testing.T) {
	tr := NewTypingTracker("me", time.Minute, nil)

	require.True(t, tr.Start("A"))
	require.True(t, tr.Start("B"))
	require.False(t, tr.Start("A"))
	require.True(t, tr.Stop("A"))
	require.False(t, tr.Stop("A"))

	require.Equal(t, []string{"B"}, tr.Users())
}

func TestTypingTrackerIgnoresSelf(t *testing.T) {
	tr := NewTypingTracker("me", time.Minute, nil)
	require.False(t, tr.Start("me"))
	require.False(t, tr.Start(""))
	require.Empty(t, tr.Users())
}

func TestTypingTrackerExpiresEntries(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	tr := NewTypingTracker("me", 5*time.Second, clock.Now)

	tr.Start("A")
	clock.Advance(3 * time.Second)
	tr.Start("B")
	clock.Advance(2 * time.Second)

	require.Equal(t, []string{"B"}, tr.Users())

	// A refresh extends the entry.
	tr.Start("B")
	clock.Advance(4 * time.Second)
	require.False(t, tr.Prune())
	require.Equal(t, []string{"B"}, tr.Users())

	clock.Advance(time.Second)
	tr.Start("C")
	require.True(t, tr.Prune())
	require.Equal(t, []string{"C"}, tr.Users())
}

func TestTypingText(t *testing.T) {
	tests := []struct {
		name  string
		users []string
		want  string
	}{
		{name: "nobody", users: nil, want: ""},
		{name: "one", users: []string{"alice"}, want: "alice is typing..."},
		{name: "two", users: []string{"alice", "bob"}, want: "alice and bob are typing..."},
		{name: "three", users: []string{"alice", "bob", "carol"}, want: "alice, bob and carol are typing..."},
		{name: "many", users: []string{"alice", "bob", "carol", "dave"}, want: "alice, bob and 2 others are typing..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, TypingText(tt.users))
		})
	}
}
