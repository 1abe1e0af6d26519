package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/service"
)

const defaultQueueSize = 256

// NotificationWorker moves notification delivery off the request path.
// Events published on the dispatcher are queued and handled by Run.
type NotificationWorker struct {
	queue   chan events.Event
	handler *service.NotificationService
	logger  *zap.Logger
	done    chan struct{}
}

// NewNotificationWorker subscribes the worker to every event type.
func NewNotificationWorker(dispatcher events.Dispatcher, handler *service.NotificationService, logger *zap.Logger, queueSize int) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	w := &NotificationWorker{
		queue:   make(chan events.Event, queueSize),
		handler: handler,
		logger:  logger,
		done:    make(chan struct{}),
	}
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, w.enqueue)
	}
	return w
}

// enqueue never blocks a publisher; a full queue drops the event.
func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
	default:
		w.logger.Warn("notification queue full; dropping event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
	}
	return nil
}

// Run handles queued events until ctx is cancelled, then drains what is
// already queued.
func (w *NotificationWorker) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case event := <-w.queue:
			w.handle(ctx, event)
		case <-ctx.Done():
			for {
				select {
				case event := <-w.queue:
					w.handle(context.WithoutCancel(ctx), event)
				default:
					return
				}
			}
		}
	}
}

// Done is closed once Run has returned.
func (w *NotificationWorker) Done() <-chan struct{} {
	return w.done
}

func (w *NotificationWorker) handle(ctx context.Context, event events.Event) {
	if err := w.handler.Handle(ctx, event); err != nil {
		w.logger.Warn("notification failed",
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

// StartNotificationWorker wires the worker and starts it in the background.
func StartNotificationWorker(ctx context.Context, dispatcher events.Dispatcher, notificationService *service.NotificationService, logger *zap.Logger) *NotificationWorker {
	if dispatcher == nil || notificationService == nil {
		return nil
	}
	w := NewNotificationWorker(dispatcher, notificationService, logger, defaultQueueSize)
	go w.Run(ctx)
	return w
}
