package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-portal/internal/events"
	"github.com/spec-kit/support-portal/internal/repository"
)

// NotificationService records lifecycle events and forwards them to the broker.
type NotificationService struct {
	dispatcher events.Dispatcher
	log        repository.EventRepository
	publisher  events.Publisher
	logger     *zap.Logger
}

// NewNotificationService creates the service. log and publisher are optional.
func NewNotificationService(dispatcher events.Dispatcher, log repository.EventRepository, publisher events.Publisher, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		log:        log,
		publisher:  publisher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to every portal event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
	n.dispatcher.Subscribe(events.EventVerificationFailed, n.handleVerificationFailed)
	n.dispatcher.Subscribe(events.EventAttachmentsSkipped, n.handleAttachmentsSkipped)
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("session_id", event.SessionID),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))

	ctx = context.WithoutCancel(ctx)
	if n.log != nil {
		if err := n.log.Record(ctx, event); err != nil {
			n.logger.Warn("record event failed", zap.String("event_id", event.ID), zap.Error(err))
		}
	}
	if n.publisher != nil {
		if err := n.publisher.Publish(ctx, event); err != nil {
			n.logger.Warn("publish event failed", zap.String("event_id", event.ID), zap.Error(err))
		}
	}
	return nil
}

func (n *NotificationService) handleVerificationFailed(_ context.Context, event events.Event) error {
	n.logger.Debug("verification retry expected", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleAttachmentsSkipped(_ context.Context, event events.Event) error {
	n.logger.Warn("attachments were not uploaded", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}
