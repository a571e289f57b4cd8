package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/persistence"
)

// SessionRecord is the durable part of a portal session. Everything else a
// session holds is rebuilt on demand.
type SessionRecord struct {
	ID             string       `json:"id"`
	Guest          domain.Guest `json:"guest"`
	ConversationID string       `json:"conversationId,omitempty"`
	Language       string       `json:"language,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	LastSeen       time.Time    `json:"lastSeen"`
}

// SessionRepository stores session records.
type SessionRepository interface {
	Save(ctx context.Context, rec SessionRecord) error
	Get(ctx context.Context, id string) (SessionRecord, error)
	Delete(ctx context.Context, id string) error
}

type redisSessionRepository struct {
	rdb *persistence.Redis
}

// NewRedisSessionRepository stores sessions as JSON values expiring after the configured TTL.
func NewRedisSessionRepository(rdb *persistence.Redis) SessionRepository {
	return &redisSessionRepository{rdb: rdb}
}

func (r *redisSessionRepository) Save(ctx context.Context, rec SessionRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.rdb.Client.Set(ctx, r.rdb.Key("session", rec.ID), body, r.rdb.TTL).Err()
}

func (r *redisSessionRepository) Get(ctx context.Context, id string) (SessionRecord, error) {
	body, err := r.rdb.Client.Get(ctx, r.rdb.Key("session", id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return SessionRecord{}, ErrNotFound
	}
	if err != nil {
		return SessionRecord{}, err
	}
	var rec SessionRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return SessionRecord{}, err
	}
	return rec, nil
}

func (r *redisSessionRepository) Delete(ctx context.Context, id string) error {
	return r.rdb.Client.Del(ctx, r.rdb.Key("session", id), r.rdb.Key("ratings", id)).Err()
}

// MemorySessionRepository keeps session records in process memory.
type MemorySessionRepository struct {
	mu      sync.RWMutex
	records map[string]SessionRecord
}

// NewMemorySessionRepository builds an empty in-memory repository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{records: make(map[string]SessionRecord)}
}

func (r *MemorySessionRepository) Save(_ context.Context, rec SessionRecord) error {
	r.mu.Lock()
	r.records[rec.ID] = rec
	r.mu.Unlock()
	return nil
}

func (r *MemorySessionRepository) Get(_ context.Context, id string) (SessionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return SessionRecord{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	delete(r.records, id)
	r.mu.Unlock()
	return nil
}
