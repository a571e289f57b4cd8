package store

import (
	"sync"

	"github.com/spec-kit/support-portal/internal/domain"
)

// VerificationStore holds the email-code step of the current ticket submission.
type VerificationStore struct {
	Notifier
	mu      sync.RWMutex
	session domain.VerificationSession
}

func NewVerificationStore() *VerificationStore {
	return &VerificationStore{}
}

// Begin starts a fresh session for a newly created ticket.
func (s *VerificationStore) Begin(ticketID, guestEmail string) {
	s.set(func(v *domain.VerificationSession) {
		*v = domain.VerificationSession{TicketID: ticketID, GuestEmail: guestEmail}
	})
}

func (s *VerificationStore) SetVerifying(verifying bool) {
	s.set(func(v *domain.VerificationSession) { v.IsVerifying = verifying })
}

func (s *VerificationStore) SetCode(code string) {
	s.set(func(v *domain.VerificationSession) { v.Code = code })
}

func (s *VerificationStore) SetError(msg string) {
	s.set(func(v *domain.VerificationSession) { v.Error = msg })
}

func (s *VerificationStore) SetVerified(verified bool) {
	s.set(func(v *domain.VerificationSession) { v.IsVerified = verified })
}

func (s *VerificationStore) SetVerifiedTicket(t *domain.VerifiedTicket) {
	s.set(func(v *domain.VerificationSession) { v.VerifiedTicketData = t })
}

// Reset discards the session.
func (s *VerificationStore) Reset() {
	s.set(func(v *domain.VerificationSession) { *v = domain.VerificationSession{} })
}

// Snapshot returns a copy of the session.
func (s *VerificationStore) Snapshot() domain.VerificationSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.session
	if out.VerifiedTicketData != nil {
		cp := *out.VerifiedTicketData
		out.VerifiedTicketData = &cp
	}
	return out
}

func (s *VerificationStore) set(fn func(*domain.VerificationSession)) {
	s.mu.Lock()
	fn(&s.session)
	s.mu.Unlock()
	s.notify()
}
