package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/events"
)

func TestMemoryTranscript(t *testing.T) {
	repo := NewMemoryTranscriptRepository()
	ctx := context.Background()

	for _, id := range []string{"m1", "m2", "m3", "m2"} {
		require.NoError(t, repo.Append(ctx, "s1", domain.ChatMessage{ID: id, Text: id, Sender: domain.SenderUser}))
	}
	require.NoError(t, repo.Append(ctx, "s2", domain.ChatMessage{ID: "x"}))

	all, err := repo.List(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "m1", all[0].ID)

	recent, err := repo.List(ctx, "s1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m3"}, []string{recent[0].ID, recent[1].ID})

	require.NoError(t, repo.DeleteSession(ctx, "s1"))
	all, err = repo.List(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, all)

	other, err := repo.List(ctx, "s2", 0)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestMemorySessions(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	rec := SessionRecord{ID: "s1", ConversationID: "c1", CreatedAt: time.Now()}
	require.NoError(t, repo.Save(ctx, rec))
	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ConversationID)

	require.NoError(t, repo.Delete(ctx, "s1"))
	_, err = repo.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryEvents(t *testing.T) {
	repo := NewMemoryEventRepository()
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, events.New(events.EventTicketRated, "s1", "t1", events.TicketRatedPayload{Rating: domain.RatingSatisfied})))
	require.NoError(t, repo.Record(ctx, events.New(events.EventTicketSubmitted, "s1", "t2", nil)))

	recs, err := repo.ListByTicket(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, events.EventTicketRated, recs[0].Type)
	assert.JSONEq(t, `{"rating":"satisfied"}`, string(recs[0].Payload))
}
