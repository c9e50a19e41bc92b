package session

import (
	"sync"
	"time"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

// Session is one saved Chef conversation. Messages never include the system
// prompt; the Chef renders its own on every turn.
type Session struct {
	Key       string
	Model     string
	Messages  []schema.Message
	CreatedAt time.Time
	UpdatedAt time.Time

	mu sync.Mutex
}

// Append adds the messages produced by one turn.
func (s *Session) Append(msgs ...schema.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, schema.WithoutSystem(msgs)...)
	s.UpdatedAt = time.Now()
}

// History returns a copy of the stored conversation.
func (s *Session) History() []schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Messages)
}

// Clear drops all messages.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = nil
	s.UpdatedAt = time.Now()
}
