package chathistory

import (
	"fmt"
	"testing"
	"time"
)

func turn(text string) Turn {
	return Turn{Role: RoleUser, Text: text, AuthorID: "u1", AuthorName: "abbie", Timestamp: time.Now()}
}

func TestWindowAppendEvictsOldest(t *testing.T) {
	w := NewWindow(3)
	for i := 1; i <= 5; i++ {
		if ok := w.Append(turn(fmt.Sprintf("m%d", i))); !ok {
			t.Fatalf("Append() = false, want true")
		}
	}
	got := w.Snapshot()
	if len(got) != 3 {
		t.Fatalf("snapshot length = %d, want 3", len(got))
	}
	for i, want := range []string{"m3", "m4", "m5"} {
		if got[i].Text != want {
			t.Fatalf("snapshot[%d].Text = %q, want %q", i, got[i].Text, want)
		}
	}
}

func TestWindowLengthIsMinOfAppendsAndCapacity(t *testing.T) {
	cases := []struct {
		capacity int
		appends  int
		want     int
	}{
		{capacity: 1, appends: 0, want: 0},
		{capacity: 5, appends: 3, want: 3},
		{capacity: 5, appends: 5, want: 5},
		{capacity: 5, appends: 12, want: 5},
	}
	for _, tc := range cases {
		w := NewWindow(tc.capacity)
		for i := 0; i < tc.appends; i++ {
			w.Append(turn(fmt.Sprintf("m%d", i)))
		}
		if got := w.Len(); got != tc.want {
			t.Fatalf("Len() = %d, want %d (cap=%d appends=%d)", got, tc.want, tc.capacity, tc.appends)
		}
	}
}

func TestWindowRejectsEmptyText(t *testing.T) {
	w := NewWindow(3)
	if ok := w.Append(turn("   ")); ok {
		t.Fatalf("Append(blank) = true, want false")
	}
	if got := w.Len(); got != 0 {
		t.Fatalf("Len() = %d, want 0", got)
	}
}

func TestWindowClear(t *testing.T) {
	w := NewWindow(3)
	w.Append(turn("hello"))
	w.Clear()
	if got := w.Len(); got != 0 {
		t.Fatalf("Len() after Clear = %d, want 0", got)
	}
}

func TestNewWindowClampsCapacity(t *testing.T) {
	w := NewWindow(0)
	w.Append(turn("a"))
	w.Append(turn("b"))
	if got := w.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
}

func TestStoreCreatesWindowOnFirstUse(t *testing.T) {
	s := NewStore(5)
	if s.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", s.Size())
	}
	w := s.Window("discord:123")
	if w == nil {
		t.Fatalf("Window() = nil")
	}
	if s.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", s.Size())
	}
	if again := s.Window("discord:123"); again != w {
		t.Fatalf("Window() returned a different instance for the same key")
	}
}

func TestStoreClear(t *testing.T) {
	s := NewStore(5)
	s.Window("discord:123").Append(turn("hello"))
	s.Clear("discord:123")
	if got := s.Window("discord:123").Len(); got != 0 {
		t.Fatalf("Len() after store Clear = %d, want 0", got)
	}
	// Clearing an unknown key must not panic.
	s.Clear("discord:999")
}

func TestConversationKey(t *testing.T) {
	key, err := ConversationKey("123456")
	if err != nil {
		t.Fatalf("ConversationKey() error = %v", err)
	}
	if key != "discord:123456" {
		t.Fatalf("conversation key mismatch: got %q", key)
	}
}

func TestConversationKeyRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name string
		id   string
	}{
		{name: "empty id", id: "   "},
		{name: "id contains space", id: "a b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ConversationKey(tc.id); err == nil {
				t.Fatalf("ConversationKey() expected error")
			}
		})
	}
}
