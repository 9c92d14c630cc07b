package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/vovakirdan/livechat/internal/chat"
)

// terminal prints the chat view incrementally: new messages, status and typing changes.
// With a compact widget it starts collapsed and shows only the status line with the
// unread badge until toggled open.
type terminal struct {
	mu       sync.Mutex
	out      io.Writer
	renderer chat.Renderer
	compact  *chat.Compact

	lastID     string
	status     string
	typingLine string
}

func newTerminal(out io.Writer, renderer chat.Renderer) *terminal {
	return &terminal{out: out, renderer: renderer}
}

func newCompactTerminal(out io.Writer, renderer chat.Renderer, self string) *terminal {
	t := newTerminal(out, renderer)
	t.compact = chat.NewCompact(self)
	return t
}

func (t *terminal) collapsedLocked() bool {
	return t.compact != nil && !t.compact.IsOpen()
}

// renderFull prints the whole card once, or just the status line while collapsed.
func (t *terminal) renderFull(snap chat.Snapshot, input string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	view := chat.BuildView(snap, input, -1)
	if t.collapsedLocked() {
		t.compact.Observe(snap.Messages)
		t.statusLocked(view.Status)
		return nil
	}

	t.status = view.Status
	t.typingLine = view.TypingLine
	if n := len(view.Lines); n > 0 {
		t.lastID = view.Lines[n-1].ID
	}
	return t.renderer.Render(t.out, view)
}

// follow prints updates until ctx ends or the session stops retrying, in which case
// it returns the error that stopped it.
func (t *terminal) follow(ctx context.Context, session *chat.Session, composer *chat.Composer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-session.Changed():
			snap := session.Snapshot()
			t.update(snap, composer.Input())
			if err := sessionEnded(snap); err != nil {
				return err
			}
		}
	}
}

// setOpen opens or collapses the compact widget. It reports false without one.
func (t *terminal) setOpen(open bool, snap chat.Snapshot, input string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.compact == nil {
		return false
	}
	if t.compact.IsOpen() != open {
		t.compact.Toggle()
		t.updateLocked(snap, input)
	}
	return true
}

func (t *terminal) update(snap chat.Snapshot, input string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updateLocked(snap, input)
}

func (t *terminal) updateLocked(snap chat.Snapshot, input string) {
	view := chat.BuildView(snap, input, -1)
	if t.compact != nil {
		t.compact.Observe(snap.Messages)
	}
	t.statusLocked(view.Status)
	if t.collapsedLocked() {
		return
	}

	for _, line := range unseen(view.Lines, t.lastID) {
		fmt.Fprintln(t.out, t.renderer.Line(line))
	}
	if n := len(view.Lines); n > 0 {
		t.lastID = view.Lines[n-1].ID
	}

	if view.TypingLine != t.typingLine {
		t.typingLine = view.TypingLine
		if view.TypingLine != "" {
			fmt.Fprintln(t.out, view.TypingLine)
		}
	}
}

// statusLocked prints the status line when it changed. A collapsed widget appends
// its unread badge.
func (t *terminal) statusLocked(status string) {
	if t.collapsedLocked() {
		if badge := t.compact.Badge(); badge != "" {
			status = fmt.Sprintf("%s [%s]", status, badge)
		}
	}
	if status == t.status {
		return
	}
	t.status = status
	fmt.Fprintf(t.out, "-- %s --\n", status)
}

func (t *terminal) notice(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "(%s)\n", text)
}

// sessionEnded returns the error that stopped the session for good: it gave up
// reconnecting or the relay refused it. It is nil while connected or retrying.
func sessionEnded(snap chat.Snapshot) error {
	if snap.State == chat.StateDisconnected && snap.LastError != nil {
		return snap.LastError
	}
	return nil
}

// unseen returns the lines after the one with lastID, or all lines when it is gone.
func unseen(lines []chat.MessageLine, lastID string) []chat.MessageLine {
	if lastID == "" {
		return lines
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i].ID == lastID {
			return lines[i+1:]
		}
	}
	return lines
}
