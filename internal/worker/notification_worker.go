package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/support-portal/internal/events"
	"github.com/spec-kit/support-portal/internal/repository"
	"github.com/spec-kit/support-portal/internal/service"
)

var errQueueFull = errors.New("notification queue full")

// publishQueue hands events to the forwarding goroutine without waiting on the broker.
type publishQueue struct {
	events chan events.Event
}

func (q *publishQueue) Publish(_ context.Context, event events.Event) error {
	select {
	case q.events <- event:
		return nil
	default:
		return errQueueFull
	}
}

func (q *publishQueue) Close() error { return nil }

// StartNotificationWorker subscribes the notification handlers to dispatcher.
// Events are recorded in eventLog inline and forwarded to publisher from a
// queue of queueSize; when the queue is full the event is logged and dropped.
// After ctx is done the queue is drained and the returned channel closes.
func StartNotificationWorker(ctx context.Context, dispatcher events.Dispatcher, eventLog repository.EventRepository, publisher events.Publisher, queueSize int, logger *zap.Logger) <-chan struct{} {
	if logger == nil {
		logger = zap.NewNop()
	}
	done := make(chan struct{})
	if publisher == nil {
		service.NewNotificationService(dispatcher, eventLog, nil, logger).RegisterHandlers()
		close(done)
		return done
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	queue := &publishQueue{events: make(chan events.Event, queueSize)}
	service.NewNotificationService(dispatcher, eventLog, queue, logger).RegisterHandlers()

	forward := func(event events.Event) {
		if err := publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
			logger.Warn("forward event failed", zap.String("event_id", event.ID), zap.String("type", string(event.Type)), zap.Error(err))
		}
	}

	go func() {
		defer close(done)
		for {
			select {
			case event := <-queue.events:
				forward(event)
			case <-ctx.Done():
				for {
					select {
					case event := <-queue.events:
						forward(event)
					default:
						return
					}
				}
			}
		}
	}()
	return done
}
