package events

import (
	"context"
	"errors"
	"sync"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// inMemoryDispatcher is a simple synchronous dispatcher.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[EventType][]EventHandler),
	}
}

// Publish synchronously invokes handlers for the given event.
// Every handler runs; their errors are joined.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

// Emitter publishes events on behalf of one session. A nil Emitter is a no-op.
type Emitter struct {
	dispatcher Dispatcher
	sessionID  string
}

// NewEmitter binds dispatcher to sessionID.
func NewEmitter(dispatcher Dispatcher, sessionID string) *Emitter {
	return &Emitter{dispatcher: dispatcher, sessionID: sessionID}
}

// Emit publishes an event; handler errors are returned but never block the caller's flow.
func (e *Emitter) Emit(ctx context.Context, eventType EventType, ticketID string, payload interface{}) error {
	if e == nil || e.dispatcher == nil {
		return nil
	}
	return e.dispatcher.Publish(ctx, New(eventType, e.sessionID, ticketID, payload))
}
