package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spec-kit/support-portal/internal/domain"
)

// ErrAttachmentTooLarge is returned when a file exceeds domain.MaxAttachmentSize.
var ErrAttachmentTooLarge = errors.New("attachment exceeds size limit")

// PendingAttachmentStore holds files staged before ticket verification.
// Files are keyed by name; adding a name twice replaces the earlier file.
type PendingAttachmentStore struct {
	Notifier
	mu    sync.RWMutex
	files []domain.PendingAttachment
}

func NewPendingAttachmentStore() *PendingAttachmentStore {
	return &PendingAttachmentStore{}
}

// Add stages file.
func (s *PendingAttachmentStore) Add(file domain.PendingAttachment) error {
	if err := checkSize(file); err != nil {
		return err
	}
	s.mu.Lock()
	replaced := false
	for i := range s.files {
		if s.files[i].Name == file.Name {
			s.files[i] = file
			replaced = true
			break
		}
	}
	if !replaced {
		s.files = append(s.files, file)
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// Set replaces all staged files. Nothing changes if any file is too large.
func (s *PendingAttachmentStore) Set(files []domain.PendingAttachment) error {
	for _, f := range files {
		if err := checkSize(f); err != nil {
			return err
		}
	}
	cp := make([]domain.PendingAttachment, len(files))
	copy(cp, files)
	s.mu.Lock()
	s.files = cp
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *PendingAttachmentStore) Remove(name string) bool {
	s.mu.Lock()
	removed := false
	for i := range s.files {
		if s.files[i].Name == name {
			s.files = append(s.files[:i], s.files[i+1:]...)
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

func (s *PendingAttachmentStore) List() []domain.PendingAttachment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PendingAttachment, len(s.files))
	copy(out, s.files)
	return out
}

func (s *PendingAttachmentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Take returns the staged files and clears the store.
func (s *PendingAttachmentStore) Take() []domain.PendingAttachment {
	s.mu.Lock()
	out := s.files
	s.files = nil
	s.mu.Unlock()
	s.notify()
	return out
}

func (s *PendingAttachmentStore) Clear() {
	s.mu.Lock()
	s.files = nil
	s.mu.Unlock()
	s.notify()
}

func checkSize(file domain.PendingAttachment) error {
	if file.Size > domain.MaxAttachmentSize {
		return fmt.Errorf("%w: %s is %d bytes", ErrAttachmentTooLarge, file.Name, file.Size)
	}
	return nil
}
