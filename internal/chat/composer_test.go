package chat

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu        sync.Mutex
	connected bool
	sent      []string
	signals   []string
}

func (f *fakeSender) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeSender) SendMessage(text string) <-chan error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	ch := make(chan error, 1)
	ch <- nil
	return ch
}

func (f *fakeSender) StartTyping() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ErrNotConnected
	}
	f.signals = append(f.signals, "start")
	return nil
}

func (f *fakeSender) StopTyping() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ErrNotConnected
	}
	f.signals = append(f.signals, "stop")
	return nil
}

func (f *fakeSender) snapshot() (sent, signals []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...), append([]string(nil), f.signals...)
}

func TestComposerSubmitDisconnectedKeepsInput(t *testing.T) {
	sender := &fakeSender{}
	c := NewComposer(sender, time.Minute)
	defer c.Close()

	c.SetInput("hello")
	res, ok := c.HandleKey(KeyEnter)
	require.False(t, ok)
	require.Nil(t, res)
	require.Equal(t, "hello", c.Input())

	sent, _ := sender.snapshot()
	require.Empty(t, sent)
}

func TestComposerSubmitBlankIsNoop(t *testing.T) {
	sender := &fakeSender{connected: true}
	c := NewComposer(sender, time.Minute)
	defer c.Close()

	c.SetInput("   ")
	_, ok := c.Submit()
	require.False(t, ok)
	require.Equal(t, "   ", c.Input())

	sent, _ := sender.snapshot()
	require.Empty(t, sent)
}

func TestComposerSubmitSendsAndClears(t *testing.T) {
	sender := &fakeSender{connected: true}
	c := NewComposer(sender, time.Minute)
	defer c.Close()

	c.SetInput("hi all")
	require.True(t, c.Typing())

	res, ok := c.HandleKey(KeyEnter)
	require.True(t, ok)
	require.NoError(t, <-res)
	require.Empty(t, c.Input())
	require.False(t, c.Typing())

	sent, signals := sender.snapshot()
	require.Equal(t, []string{"hi all"}, sent)
	require.Equal(t, []string{"start", "stop"}, signals)
}

func TestComposerTruncatesAtMaxLength(t *testing.T) {
	sender := &fakeSender{connected: true}
	c := NewComposer(sender, time.Minute)
	defer c.Close()

	c.SetInput(strings.Repeat("a", MaxMessageLength+1))
	require.Len(t, c.Input(), MaxMessageLength)

	_, ok := c.Submit()
	require.True(t, ok)
	sent, _ := sender.snapshot()
	require.Len(t, sent, 1)
	require.Len(t, sent[0], MaxMessageLength)
}

func TestComposerTruncatesRunesNotBytes(t *testing.T) {
	c := NewComposer(&fakeSender{}, time.Minute)
	defer c.Close()

	c.SetInput(strings.Repeat("ü", MaxMessageLength+5))
	require.Equal(t, strings.Repeat("ü", MaxMessageLength), c.Input())
}

func TestComposerTypingTransitions(t *testing.T) {
	sender := &fakeSender{connected: true}
	c := NewComposer(sender, time.Minute)
	defer c.Close()

	c.SetInput("h")
	c.SetInput("he")
	c.SetInput("hey")
	c.SetInput("")
	c.SetInput("x")
	c.Blur()
	c.Blur()

	_, signals := sender.snapshot()
	require.Equal(t, []string{"start", "stop", "start", "stop"}, signals)
}

func TestComposerShiftEnterAddsNewline(t *testing.T) {
	sender := &fakeSender{connected: true}
	c := NewComposer(sender, time.Minute)
	defer c.Close()

	c.SetInput("line one")
	_, ok := c.HandleKey(KeyShiftEnter)
	require.False(t, ok)
	require.Equal(t, "line one\n", c.Input())

	sent, _ := sender.snapshot()
	require.Empty(t, sent)
}

func TestComposerIdleTimeoutStopsTyping(t *testing.T) {
	sender := &fakeSender{connected: true}
	c := NewComposer(sender, 20*time.Millisecond)
	defer c.Close()

	c.SetInput("thinking")
	require.Eventually(t, func() bool {
		_, signals := sender.snapshot()
		return len(signals) == 2 && signals[1] == "stop"
	}, time.Second, 5*time.Millisecond)
	require.False(t, c.Typing())

	// Typing again after the idle stop signals a fresh start.
	c.SetInput("thinking more")
	_, signals := sender.snapshot()
	require.GreaterOrEqual(t, len(signals), 3)
	require.Equal(t, []string{"start", "stop", "start"}, signals[:3])
}
