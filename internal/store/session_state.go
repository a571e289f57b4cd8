package store

import (
	"sync"

	"github.com/spec-kit/support-portal/internal/domain"
)

// SubmittedTicketStore holds the confirmation shown after verification.
type SubmittedTicketStore struct {
	Notifier
	mu     sync.RWMutex
	ticket *domain.SubmittedTicket
}

func NewSubmittedTicketStore() *SubmittedTicketStore {
	return &SubmittedTicketStore{}
}

func (s *SubmittedTicketStore) Set(t domain.SubmittedTicket) {
	s.mu.Lock()
	s.ticket = &t
	s.mu.Unlock()
	s.notify()
}

func (s *SubmittedTicketStore) Get() (domain.SubmittedTicket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ticket == nil {
		return domain.SubmittedTicket{}, false
	}
	return *s.ticket, true
}

func (s *SubmittedTicketStore) Clear() {
	s.mu.Lock()
	s.ticket = nil
	s.mu.Unlock()
	s.notify()
}

// GuestStore holds the visitor's identity.
type GuestStore struct {
	Notifier
	mu    sync.RWMutex
	guest domain.Guest
}

func NewGuestStore() *GuestStore {
	return &GuestStore{}
}

func (s *GuestStore) Set(g domain.Guest) {
	s.mu.Lock()
	s.guest = g
	s.mu.Unlock()
	s.notify()
}

func (s *GuestStore) Get() domain.Guest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guest
}

func (s *GuestStore) ID() string {
	return s.Get().ID
}

// TicketHistoryStore caches the last history lookup.
type TicketHistoryStore struct {
	Notifier
	mu      sync.RWMutex
	phone   string
	history domain.TicketHistory
}

func NewTicketHistoryStore() *TicketHistoryStore {
	return &TicketHistoryStore{}
}

func (s *TicketHistoryStore) Set(phone string, h domain.TicketHistory) {
	s.mu.Lock()
	s.phone = phone
	s.history = h
	s.mu.Unlock()
	s.notify()
}

// Get returns the cached history for phone.
func (s *TicketHistoryStore) Get(phone string) (domain.TicketHistory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.phone == "" || s.phone != phone {
		return domain.TicketHistory{}, false
	}
	return s.history, true
}

// MarkRated flags ticketID as rated in the cached history.
func (s *TicketHistoryStore) MarkRated(ticketID string) {
	s.mu.Lock()
	for i := range s.history.Tickets {
		if s.history.Tickets[i].ID == ticketID {
			s.history.Tickets[i].IsRated = true
		}
	}
	s.mu.Unlock()
	s.notify()
}

func (s *TicketHistoryStore) Clear() {
	s.mu.Lock()
	s.phone = ""
	s.history = domain.TicketHistory{}
	s.mu.Unlock()
	s.notify()
}

// RatingStore remembers which tickets were rated in this session.
type RatingStore struct {
	Notifier
	mu    sync.RWMutex
	rated map[string]domain.Rating
}

func NewRatingStore() *RatingStore {
	return &RatingStore{rated: make(map[string]domain.Rating)}
}

// MarkRated records the rating; it returns false if ticketID was already rated.
func (s *RatingStore) MarkRated(ticketID string, rating domain.Rating) bool {
	s.mu.Lock()
	if _, ok := s.rated[ticketID]; ok {
		s.mu.Unlock()
		return false
	}
	s.rated[ticketID] = rating
	s.mu.Unlock()
	s.notify()
	return true
}

func (s *RatingStore) Rating(ticketID string) (domain.Rating, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rated[ticketID]
	return r, ok
}

func (s *RatingStore) HasRated(ticketID string) bool {
	_, ok := s.Rating(ticketID)
	return ok
}

func (s *RatingStore) Unmark(ticketID string) {
	s.mu.Lock()
	delete(s.rated, ticketID)
	s.mu.Unlock()
	s.notify()
}
