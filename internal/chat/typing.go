package chat

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
)

// DefaultTypingTTL is how long a typing entry lives without a refresh.
const DefaultTypingTTL = 5 * time.Second

// TypingTracker keeps the set of users currently typing. Entries expire after a TTL
// so a lost typing_stop cannot leave a user stuck in the indicator.
type TypingTracker struct {
	mu    sync.Mutex
	self  string
	ttl   time.Duration
	now   func() time.Time
	users map[string]time.Time // username -> expiry
}

// NewTypingTracker creates a tracker that ignores events about self.
func NewTypingTracker(self string, ttl time.Duration, now func() time.Time) *TypingTracker {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	if now == nil {
		now = time.Now
	}
	return &TypingTracker{
		self:  self,
		ttl:   ttl,
		now:   now,
		users: make(map[string]time.Time),
	}
}

// Start marks user as typing, refreshing the expiry. It reports whether the set changed.
func (t *TypingTracker) Start(user string) bool {
	if user == "" || user == t.self {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	_, existed := t.users[user]
	t.users[user] = t.now().Add(t.ttl)
	return !existed
}

// Stop removes user. It reports whether the set changed.
func (t *TypingTracker) Stop(user string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.users[user]; !ok {
		return false
	}
	delete(t.users, user)
	return true
}

// Prune drops expired entries and reports whether any were dropped.
func (t *TypingTracker) Prune() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pruneLocked()
}

func (t *TypingTracker) pruneLocked() bool {
	now := t.now()
	changed := false
	for user, expiry := range t.users {
		if !now.Before(expiry) {
			delete(t.users, user)
			changed = true
		}
	}
	return changed
}

// Users returns the live entries sorted by name.
func (t *TypingTracker) Users() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked()
	users := lo.Keys(t.users)
	sort.Strings(users)
	return users
}

// Reset forgets every entry.
func (t *TypingTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.users)
}

// TypingText renders the indicator line for users, or "" when nobody is typing.
func TypingText(users []string) string {
	switch n := len(users); {
	case n == 0:
		return ""
	case n == 1:
		return users[0] + " is typing..."
	case n <= 3:
		return strings.Join(users[:n-1], ", ") + " and " + users[n-1] + " are typing..."
	default:
		return fmt.Sprintf("%s, %s and %d others are typing...", users[0], users[1], n-2)
	}
}
