package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/vovakirdan/livechat/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecentMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		msg := &store.Message{
			ID:        fmt.Sprintf("m%d", i),
			Room:      "live",
			Username:  "alice",
			Body:      fmt.Sprintf("hello %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage failed: %v", err)
		}
	}
	if err := s.SaveMessage(ctx, &store.Message{ID: "other", Room: "lobby", Username: "bob", Body: "hey", CreatedAt: base}); err != nil {
		t.Fatalf("SaveMessage failed: %v", err)
	}

	tests := []struct {
		name     string
		room     string
		limit    int
		expected []string
	}{
		{name: "latest three oldest first", room: "live", limit: 3, expected: []string{"m2", "m3", "m4"}},
		{name: "limit above count", room: "live", limit: 50, expected: []string{"m0", "m1", "m2", "m3", "m4"}},
		{name: "other room", room: "lobby", limit: 10, expected: []string{"other"}},
		{name: "unknown room", room: "nowhere", limit: 10, expected: nil},
		{name: "zero limit", room: "live", limit: 0, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := s.RecentMessages(ctx, tt.room, tt.limit)
			if err != nil {
				t.Fatalf("RecentMessages failed: %v", err)
			}
			if len(results) != len(tt.expected) {
				t.Fatalf("expected %d messages, got %d", len(tt.expected), len(results))
			}
			for i, id := range tt.expected {
				if results[i].ID != id {
					t.Errorf("expected message %d to be %s, got %s", i, id, results[i].ID)
				}
				if results[i].Room != tt.room {
					t.Errorf("unexpected room %q", results[i].Room)
				}
			}
		})
	}
}

func TestSaveMessageIgnoresDuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &store.Message{ID: "dup", Room: "live", Username: "alice", Body: "first", CreatedAt: time.Now()}
	second := &store.Message{ID: "dup", Room: "live", Username: "alice", Body: "second", CreatedAt: time.Now()}
	if err := s.SaveMessage(ctx, first); err != nil {
		t.Fatalf("SaveMessage failed: %v", err)
	}
	if err := s.SaveMessage(ctx, second); err != nil {
		t.Fatalf("duplicate SaveMessage failed: %v", err)
	}

	results, err := s.RecentMessages(ctx, "live", 10)
	if err != nil {
		t.Fatalf("RecentMessages failed: %v", err)
	}
	if len(results) != 1 || results[0].Body != "first" {
		t.Fatalf("expected only the first copy, got %+v", results)
	}
}

func TestHistorySurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.db")
	ctx := context.Background()

	s, err := New(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := s.SaveMessage(ctx, &store.Message{ID: "keep", Room: "live", Username: "alice", Body: "persisted", CreatedAt: created}); err != nil {
		t.Fatalf("SaveMessage failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = New(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()

	results, err := s.RecentMessages(ctx, "live", 10)
	if err != nil {
		t.Fatalf("RecentMessages failed: %v", err)
	}
	if len(results) != 1 || results[0].Body != "persisted" || results[0].Username != "alice" {
		t.Fatalf("unexpected history: %+v", results)
	}
	if !results[0].CreatedAt.Equal(created) {
		t.Errorf("expected created_at %v, got %v", created, results[0].CreatedAt)
	}
}

func TestNewWithSetupError(t *testing.T) {
	_, err := NewWithSetup(":memory:", func(db *sql.DB) error {
		_, err := db.Exec("CREATE TABLE broken (")
		return err
	})
	if err == nil {
		t.Fatal("expected setup error")
	}
}
