package chat

import (
	"strings"
	"sync"
	"time"
)

// DefaultTypingIdle is how long the composer waits after the last edit before it
// sends typing_stop on its own.
const DefaultTypingIdle = 3 * time.Second

// TypingRefresh is how often an ongoing typing run is re-announced, so peers whose
// entries expire after DefaultTypingTTL keep showing it.
const TypingRefresh = 2 * time.Second

// Sender is the part of a Session the composer drives.
type Sender interface {
	IsConnected() bool
	SendMessage(text string) <-chan error
	StartTyping() error
	StopTyping() error
}

// Key is a submit-relevant key press in the composer.
type Key int

const (
	// KeyEnter submits the input.
	KeyEnter Key = iota
	// KeyShiftEnter inserts a newline.
	KeyShiftEnter
)

// Composer is the message input of the chat view. It caps the input at
// MaxMessageLength runes and turns edits into typing signals.
type Composer struct {
	sender Sender
	idle   time.Duration

	mu        sync.Mutex
	input     string
	typing    bool
	lastStart time.Time
	timer     *time.Timer
	gen       int
}

// NewComposer creates a composer bound to sender. idle <= 0 uses DefaultTypingIdle.
func NewComposer(sender Sender, idle time.Duration) *Composer {
	if idle <= 0 {
		idle = DefaultTypingIdle
	}
	return &Composer{sender: sender, idle: idle}
}

// Input returns the current input text.
func (c *Composer) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Typing reports whether the composer has an outstanding typing_start.
func (c *Composer) Typing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typing
}

// SetInput replaces the input text, truncated to MaxMessageLength runes.
// Starting to type sends typing_start, repeated every TypingRefresh while edits
// continue; clearing the input sends typing_stop.
func (c *Composer) SetInput(text string) {
	text = truncateRunes(text, MaxMessageLength)

	c.mu.Lock()
	c.input = text
	var start, stop bool
	switch {
	case text != "" && (!c.typing || time.Since(c.lastStart) >= TypingRefresh):
		start = true
	case text == "" && c.typing:
		stop = true
		c.typing = false
		c.stopTimerLocked()
	}
	if text != "" {
		c.armTimerLocked()
	}
	c.mu.Unlock()

	if start {
		if err := c.sender.StartTyping(); err == nil {
			c.mu.Lock()
			c.typing = true
			c.lastStart = time.Now()
			c.mu.Unlock()
		}
	}
	if stop {
		_ = c.sender.StopTyping()
	}
}

// HandleKey applies a key press. Enter submits; Shift+Enter adds a newline.
func (c *Composer) HandleKey(k Key) (<-chan error, bool) {
	if k == KeyShiftEnter {
		c.SetInput(c.Input() + "\n")
		return nil, false
	}
	return c.Submit()
}

// Submit sends the input. Nothing happens, and the input is kept, when the session is
// not connected or the input is blank. On success the input is cleared.
func (c *Composer) Submit() (<-chan error, bool) {
	c.mu.Lock()
	text := c.input
	if strings.TrimSpace(text) == "" || !c.sender.IsConnected() {
		c.mu.Unlock()
		return nil, false
	}
	c.input = ""
	wasTyping := c.typing
	c.typing = false
	c.stopTimerLocked()
	c.mu.Unlock()

	result := c.sender.SendMessage(text)
	if wasTyping {
		_ = c.sender.StopTyping()
	}
	return result, true
}

// Blur is called when the input loses focus.
func (c *Composer) Blur() {
	c.mu.Lock()
	wasTyping := c.typing
	c.typing = false
	c.stopTimerLocked()
	c.mu.Unlock()

	if wasTyping {
		_ = c.sender.StopTyping()
	}
}

// Close stops the idle timer.
func (c *Composer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
}

func (c *Composer) armTimerLocked() {
	c.stopTimerLocked()
	gen := c.gen
	c.timer = time.AfterFunc(c.idle, func() {
		c.mu.Lock()
		if gen != c.gen || !c.typing {
			c.mu.Unlock()
			return
		}
		c.typing = false
		c.timer = nil
		c.mu.Unlock()
		_ = c.sender.StopTyping()
	})
}

func (c *Composer) stopTimerLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
