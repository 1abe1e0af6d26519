package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	logger  *zap.Logger
	cfg     config.NotificationConfig
	metrics *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger, cfg config.NotificationConfig, metrics *observability.Metrics) *NotificationService {
	return &NotificationService{
		logger:  logger,
		cfg:     cfg,
		metrics: metrics,
	}
}

// Handle routes an event to its notification channels.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	n.metrics.RecordLifecycle(string(event.Type))
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.Int("complaint_id", event.ComplaintID),
		zap.String("actor", event.Actor.Email),
		zap.Any("payload", event.Payload))

	switch event.Type {
	case events.EventComplaintCreated, events.EventComplaintResolved:
		n.sendEmailNotificationStub(ctx, event)
		n.sendWebhookNotificationStub(ctx, event)
	case events.EventUserRegistered:
		n.sendEmailNotificationStub(ctx, event)
	default:
		n.sendWebhookNotificationStub(ctx, event)
	}
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.Int("complaint_id", event.ComplaintID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.Int("complaint_id", event.ComplaintID),
		zap.String("event_type", string(event.Type)))
}
