package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/pulsefeed/backend/domain"
	"github.com/pulsefeed/backend/repository"
	"github.com/pulsefeed/backend/usecase"
)

// UseCase accepts new interaction events. It is fully decoupled from the
// processing loop: a slow or failing processor never blocks or fails a
// submission, it only delays delivery.
type UseCase struct {
	events  repository.EventRepository
	metrics usecase.MetricsSink
	logger  *zap.Logger
}

func New(events repository.EventRepository, metrics usecase.MetricsSink, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		events:  events,
		metrics: metrics,
		logger:  logger,
	}
}

// CreateEvent validates and stores an event, then bumps the backlog gauge.
// The caller gets the stored event back immediately; delivery status is only
// observable later via the notifications query or the real-time channel.
func (uc *UseCase) CreateEvent(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	created, err := uc.events.Create(ctx, event)
	if err != nil {
		return nil, err
	}

	if _, err := uc.metrics.AddQueued(ctx, 1); err != nil {
		// The event is stored and will be processed; only the gauge lagged.
		uc.logger.Warn("failed to bump queue size", zap.Int64("event_id", created.ID), zap.Error(err))
	}

	uc.logger.Debug("event accepted",
		zap.Int64("event_id", created.ID),
		zap.String("type", created.Type),
		zap.Int64("actor_id", created.ActorID))
	return created, nil
}
