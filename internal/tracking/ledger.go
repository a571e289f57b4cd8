package tracking

import (
	"context"

	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/store"
)

// Ledger remembers which tickets a visitor has rated.
type Ledger interface {
	HasRated(ctx context.Context, ticketID string) (bool, error)
	// MarkRated reserves the rating; it returns false if ticketID was already rated.
	MarkRated(ctx context.Context, ticketID string, rating domain.Rating) (bool, error)
	Unmark(ctx context.Context, ticketID string) error
}

// StoreLedger keeps ratings in a session's RatingStore.
type StoreLedger struct {
	Ratings *store.RatingStore
}

func (l StoreLedger) HasRated(_ context.Context, ticketID string) (bool, error) {
	return l.Ratings.HasRated(ticketID), nil
}

func (l StoreLedger) MarkRated(_ context.Context, ticketID string, rating domain.Rating) (bool, error) {
	return l.Ratings.MarkRated(ticketID, rating), nil
}

func (l StoreLedger) Unmark(_ context.Context, ticketID string) error {
	l.Ratings.Unmark(ticketID)
	return nil
}
