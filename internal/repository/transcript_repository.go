package repository

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-portal/internal/domain"
)

// TranscriptRepository stores finalized chat messages per portal session.
type TranscriptRepository interface {
	Append(ctx context.Context, sessionID string, msg domain.ChatMessage) error
	List(ctx context.Context, sessionID string, limit int) ([]domain.ChatMessage, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

type transcriptRepository struct {
	pool *pgxpool.Pool
}

// NewTranscriptRepository builds the postgres-backed repository.
func NewTranscriptRepository(pool *pgxpool.Pool) TranscriptRepository {
	return &transcriptRepository{pool: pool}
}

func (r *transcriptRepository) Append(ctx context.Context, sessionID string, msg domain.ChatMessage) error {
	const query = `
        INSERT INTO chat_transcripts (id, session_id, conversation_id, sender, body, avatar, sent_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (id) DO NOTHING`
	sentAt := time.Now().UTC()
	if msg.Timestamp != nil {
		sentAt = msg.Timestamp.UTC()
	}
	_, err := r.pool.Exec(ctx, query,
		msg.ID,
		sessionID,
		msg.ConversationID,
		string(msg.Sender),
		msg.Text,
		msg.Avatar,
		sentAt,
	)
	return err
}

func (r *transcriptRepository) List(ctx context.Context, sessionID string, limit int) ([]domain.ChatMessage, error) {
	const query = `
        SELECT id, conversation_id, sender, body, avatar, sent_at FROM (
            SELECT id, conversation_id, sender, body, avatar, sent_at, seq
            FROM chat_transcripts WHERE session_id=$1
            ORDER BY seq DESC LIMIT $2
        ) recent ORDER BY seq ASC`
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChatMessage
	for rows.Next() {
		var (
			msg    domain.ChatMessage
			sender string
			sentAt time.Time
		)
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &sender, &msg.Text, &msg.Avatar, &sentAt); err != nil {
			return nil, err
		}
		msg.Sender = domain.Sender(sender)
		msg.Timestamp = &sentAt
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (r *transcriptRepository) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM chat_transcripts WHERE session_id=$1`, sessionID)
	return err
}

// MemoryTranscriptRepository keeps transcripts in process memory.
type MemoryTranscriptRepository struct {
	mu       sync.RWMutex
	sessions map[string][]domain.ChatMessage
}

// NewMemoryTranscriptRepository builds an empty in-memory repository.
func NewMemoryTranscriptRepository() *MemoryTranscriptRepository {
	return &MemoryTranscriptRepository{sessions: make(map[string][]domain.ChatMessage)}
}

func (r *MemoryTranscriptRepository) Append(_ context.Context, sessionID string, msg domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sessions[sessionID] {
		if existing.ID == msg.ID {
			return nil
		}
	}
	r.sessions[sessionID] = append(r.sessions[sessionID], msg)
	return nil
}

func (r *MemoryTranscriptRepository) List(_ context.Context, sessionID string, limit int) ([]domain.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.sessions[sessionID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]domain.ChatMessage, len(all))
	copy(out, all)
	return out, nil
}

func (r *MemoryTranscriptRepository) DeleteSession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	return nil
}
