package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-portal/internal/events"
	"github.com/spec-kit/support-portal/internal/repository"
)

type countingEvictor struct {
	calls atomic.Int32
}

func (c *countingEvictor) Evict(time.Duration) int {
	c.calls.Add(1)
	return 1
}

func TestSessionJanitorRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ev := &countingEvictor{}
	done := StartSessionJanitor(ctx, ev, time.Minute, 5*time.Millisecond, zap.NewNop())

	assert.Eventually(t, func() bool { return ev.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

type gatedPublisher struct {
	gate    chan struct{}
	started chan struct{}
	once    sync.Once

	mu        sync.Mutex
	published []string
}

func newGatedPublisher() *gatedPublisher {
	return &gatedPublisher{gate: make(chan struct{}), started: make(chan struct{})}
}

func (p *gatedPublisher) Publish(_ context.Context, e events.Event) error {
	p.once.Do(func() { close(p.started) })
	<-p.gate
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, e.TicketID)
	return nil
}

func (p *gatedPublisher) Close() error { return nil }

func (p *gatedPublisher) Published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.published...)
}

func TestNotificationWorkerForwardsOffTheCallerPath(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcher := events.NewInMemoryDispatcher()
	eventLog := repository.NewMemoryEventRepository()
	pub := newGatedPublisher()
	done := StartNotificationWorker(ctx, dispatcher, eventLog, pub, 1, zap.NewNop())

	require.NoError(t, dispatcher.Publish(ctx, events.New(events.EventTicketVerified, "s-1", "t-1", nil)))
	select {
	case <-pub.started:
	case <-time.After(time.Second):
		t.Fatal("event was not forwarded")
	}

	// t-1 holds the publisher, t-2 fills the queue, t-3 is dropped.
	require.NoError(t, dispatcher.Publish(ctx, events.New(events.EventTicketVerified, "s-1", "t-2", nil)))
	require.NoError(t, dispatcher.Publish(ctx, events.New(events.EventTicketVerified, "s-1", "t-3", nil)))

	for _, id := range []string{"t-1", "t-2", "t-3"} {
		recs, err := eventLog.ListByTicket(ctx, id)
		require.NoError(t, err)
		assert.Len(t, recs, 1, id)
	}

	close(pub.gate)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notification worker did not stop")
	}
	assert.Equal(t, []string{"t-1", "t-2"}, pub.Published())
}

func TestNotificationWorkerWithoutBroker(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	eventLog := repository.NewMemoryEventRepository()
	done := StartNotificationWorker(context.Background(), dispatcher, eventLog, nil, 0, nil)

	select {
	case <-done:
	default:
		t.Fatal("worker without broker should report done immediately")
	}
	require.NoError(t, dispatcher.Publish(context.Background(), events.New(events.EventTicketRated, "s-1", "t-9", nil)))
	recs, err := eventLog.ListByTicket(context.Background(), "t-9")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
