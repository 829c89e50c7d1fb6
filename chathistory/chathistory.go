// Package chathistory keeps a bounded, role-tagged conversation window per
// conversation key. Windows are process-lifetime only; an explicit reset or
// a restart empties them.
package chathistory

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

type Role string

const (
	RoleUser    Role = "user"
	RoleModel   Role = "model"
	RolePersona Role = "persona"
)

const DefaultCapacity = 20

// Turn is one message unit in a conversation window.
type Turn struct {
	Role       Role
	Text       string
	AuthorID   string
	AuthorName string
	Timestamp  time.Time
	// Service marks turns authored by system/service accounts; the prompt
	// assembler skips them.
	Service bool
}

// Window is a bounded FIFO buffer of turns in chronological order.
// Appends beyond capacity evict the oldest turn.
type Window struct {
	mu    sync.Mutex
	cap   int
	turns []Turn
}

func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{cap: capacity}
}

// Append stores a turn. Turns with empty cleaned text are filtered out and
// reported as not stored.
func (w *Window) Append(t Turn) bool {
	if strings.TrimSpace(t.Text) == "" {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.turns = append(w.turns, t)
	if len(w.turns) > w.cap {
		w.turns = w.turns[len(w.turns)-w.cap:]
	}
	return true
}

// Snapshot returns a defensive copy in chronological (oldest first) order.
func (w *Window) Snapshot() []Turn {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Turn(nil), w.turns...)
}

func (w *Window) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.turns = nil
}

func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.turns)
}

// Store owns the windows for all conversation keys. A window is created on
// first use and only ever mutated by append or an explicit clear.
type Store struct {
	mu      sync.Mutex
	cap     int
	windows map[string]*Window
}

func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Store{cap: capacity, windows: make(map[string]*Window)}
}

// Window returns the window for a conversation key, creating it if needed.
func (s *Store) Window(key string) *Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[key]
	if !ok {
		w = NewWindow(s.cap)
		s.windows[key] = w
	}
	return w
}

// Clear empties the window for a key. Missing keys are a no-op.
func (s *Store) Clear(key string) {
	s.mu.Lock()
	w := s.windows[key]
	s.mu.Unlock()
	if w != nil {
		w.Clear()
	}
}

// Size reports how many conversation windows exist.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// ConversationKey builds the canonical history key for a Discord channel.
func ConversationKey(channelID string) (string, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return "", fmt.Errorf("channel id is required")
	}
	if strings.Contains(channelID, " ") {
		return "", fmt.Errorf("channel id must not contain spaces")
	}
	return "discord:" + channelID, nil
}
