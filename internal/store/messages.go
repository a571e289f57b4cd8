package store

import (
	"sync"

	"github.com/spec-kit/support-portal/internal/domain"
)

// MessageStore is the chat log of one widget.
type MessageStore struct {
	Notifier
	mu       sync.RWMutex
	messages []domain.ChatMessage
}

func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

func (s *MessageStore) Add(msg domain.ChatMessage) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.notify()
}

// Remove deletes the message with id and reports whether it existed.
func (s *MessageStore) Remove(id string) bool {
	s.mu.Lock()
	removed := false
	for i, m := range s.messages {
		if m.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()
	if removed {
		s.notify()
	}
	return removed
}

// SetText replaces the text of message id.
func (s *MessageStore) SetText(id, text string) bool {
	return s.update(id, func(m *domain.ChatMessage) { m.Text = text })
}

// AppendText appends to the text of message id.
func (s *MessageStore) AppendText(id, text string) bool {
	return s.update(id, func(m *domain.ChatMessage) { m.Text += text })
}

func (s *MessageStore) update(id string, fn func(*domain.ChatMessage)) bool {
	s.mu.Lock()
	found := false
	for i := range s.messages {
		if s.messages[i].ID == id {
			fn(&s.messages[i])
			found = true
			break
		}
	}
	s.mu.Unlock()
	if found {
		s.notify()
	}
	return found
}

// List returns a copy of the log in insertion order.
func (s *MessageStore) List() []domain.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *MessageStore) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
	s.notify()
}
