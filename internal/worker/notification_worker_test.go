package worker

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/service"
)

func TestNotificationWorkerDrainsOnShutdown(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	svc := service.NewNotificationService(zap.NewNop(), config.NotificationConfig{}, metrics)
	w := NewNotificationWorker(dispatcher, svc, zap.NewNop(), 8)

	for i := 1; i <= 3; i++ {
		ev := events.NewEvent(events.EventComplaintCreated, i, events.Actor{}, nil, time.Now())
		if err := dispatcher.Publish(context.Background(), ev); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	if len(w.queue) != 3 {
		t.Fatalf("expected 3 queued events, got %d", len(w.queue))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Run(ctx)

	select {
	case <-w.Done():
	default:
		t.Fatal("expected Done to be closed")
	}
	if len(w.queue) != 0 {
		t.Fatalf("expected queue drained, got %d", len(w.queue))
	}
}

func TestNotificationWorkerDropsWhenFull(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	svc := service.NewNotificationService(zap.NewNop(), config.NotificationConfig{}, nil)
	w := NewNotificationWorker(dispatcher, svc, zap.NewNop(), 1)

	for i := 0; i < 3; i++ {
		ev := events.NewEvent(events.EventComplaintDeleted, i, events.Actor{}, nil, time.Now())
		if err := dispatcher.Publish(context.Background(), ev); err != nil {
			t.Fatalf("publish should never fail: %v", err)
		}
	}
	if len(w.queue) != 1 {
		t.Fatalf("expected queue capped at 1, got %d", len(w.queue))
	}
}
