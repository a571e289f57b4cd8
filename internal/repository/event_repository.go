package repository

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-portal/internal/events"
)

// EventRecord is a stored lifecycle event. Payload is kept as raw JSON.
type EventRecord struct {
	ID        string
	Type      events.EventType
	SessionID string
	TicketID  string
	Payload   json.RawMessage
	Event     events.Event
}

// EventRepository is the audit log of lifecycle events.
type EventRepository interface {
	Record(ctx context.Context, event events.Event) error
	ListByTicket(ctx context.Context, ticketID string) ([]EventRecord, error)
}

type eventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository builds the postgres-backed event log.
func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &eventRepository{pool: pool}
}

func (r *eventRepository) Record(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO portal_events (id, event_type, session_id, ticket_id, payload, occurred_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (id) DO NOTHING`
	_, err = r.pool.Exec(ctx, query,
		event.ID,
		string(event.Type),
		event.SessionID,
		event.TicketID,
		payload,
		event.Timestamp,
	)
	return err
}

func (r *eventRepository) ListByTicket(ctx context.Context, ticketID string) ([]EventRecord, error) {
	const query = `
        SELECT id, event_type, session_id, ticket_id, payload, occurred_at
        FROM portal_events WHERE ticket_id=$1 ORDER BY occurred_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []EventRecord
	for rows.Next() {
		var (
			rec       EventRecord
			eventType string
		)
		if err := rows.Scan(&rec.ID, &eventType, &rec.SessionID, &rec.TicketID, &rec.Payload, &rec.Event.Timestamp); err != nil {
			return nil, err
		}
		rec.Type = events.EventType(eventType)
		rec.Event.ID, rec.Event.Type, rec.Event.SessionID, rec.Event.TicketID = rec.ID, rec.Type, rec.SessionID, rec.TicketID
		rec.Event.Payload = rec.Payload
		result = append(result, rec)
	}
	return result, rows.Err()
}

// MemoryEventRepository keeps the event log in process memory.
type MemoryEventRepository struct {
	mu      sync.RWMutex
	records []EventRecord
}

// NewMemoryEventRepository builds an empty in-memory event log.
func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{}
}

func (r *MemoryEventRepository) Record(_ context.Context, event events.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, EventRecord{
		ID:        event.ID,
		Type:      event.Type,
		SessionID: event.SessionID,
		TicketID:  event.TicketID,
		Payload:   payload,
		Event:     event,
	})
	return nil
}

func (r *MemoryEventRepository) ListByTicket(_ context.Context, ticketID string) ([]EventRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []EventRecord
	for _, rec := range r.records {
		if rec.TicketID == ticketID {
			out = append(out, rec)
		}
	}
	return out, nil
}
