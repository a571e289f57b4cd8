package repository

import (
	"context"

	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/persistence"
)

// RedisRatingLedger remembers the tickets a session has rated in a redis hash,
// so a reconnecting browser still sees the thank-you state.
type RedisRatingLedger struct {
	rdb       *persistence.Redis
	sessionID string
}

// NewRedisRatingLedger scopes a ledger to one portal session.
func NewRedisRatingLedger(rdb *persistence.Redis, sessionID string) *RedisRatingLedger {
	return &RedisRatingLedger{rdb: rdb, sessionID: sessionID}
}

func (l *RedisRatingLedger) key() string {
	return l.rdb.Key("ratings", l.sessionID)
}

// HasRated reports whether ticketID was rated in this session.
func (l *RedisRatingLedger) HasRated(ctx context.Context, ticketID string) (bool, error) {
	return l.rdb.Client.HExists(ctx, l.key(), ticketID).Result()
}

// MarkRated reserves the rating with HSETNX; false means it was already taken.
func (l *RedisRatingLedger) MarkRated(ctx context.Context, ticketID string, rating domain.Rating) (bool, error) {
	ok, err := l.rdb.Client.HSetNX(ctx, l.key(), ticketID, string(rating)).Result()
	if err != nil {
		return false, err
	}
	if ok && l.rdb.TTL > 0 {
		l.rdb.Client.Expire(ctx, l.key(), l.rdb.TTL)
	}
	return ok, nil
}

// Unmark releases a reservation after the backend rejected the rating.
func (l *RedisRatingLedger) Unmark(ctx context.Context, ticketID string) error {
	return l.rdb.Client.HDel(ctx, l.key(), ticketID).Err()
}
