package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pulsefeed/backend/domain"
	"github.com/pulsefeed/backend/internal/infrastructure/deadletter"
	"github.com/pulsefeed/backend/internal/metrics"
	"github.com/pulsefeed/backend/repository"
)

// Broadcaster abstracts the real-time hub so the processor can fan out
// without caring about transport.
type Broadcaster interface {
	Broadcast(kind string, payload interface{})
}

// Message kinds pushed by the processor. Mirrors the ws package constants
// without importing it.
const (
	kindNotification = "notification"
	kindMetrics      = "metrics"
)

// ConnectionHealth lets the processor skip a cycle while primary storage is
// known to be down.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls the drain schedule and failure policy.
type ProcessorConfig struct {
	Interval        time.Duration
	PerEventTimeout time.Duration
	// MaxAttempts bounds how many cycles an event with an unresolvable actor
	// is retried before being parked in the dead-letter store. Zero disables
	// parking: the event stays pending forever, retried every cycle.
	MaxAttempts int
}

// EventProcessor drains unprocessed events into delivered notifications on a
// fixed schedule. Cycles never overlap: an in-flight guard makes a trigger
// that fires while the previous cycle is still running a no-op.
type EventProcessor struct {
	events        repository.EventRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	aggregator    *metrics.Aggregator
	broadcaster   Broadcaster
	health        ConnectionHealth
	deadLetters   *deadletter.Store
	logger        *zap.Logger
	cron          *cron.Cron
	cfg           ProcessorConfig

	inFlight atomic.Bool
	// attempts counts consecutive actor-resolution failures per event id.
	// Only drain cycles touch it, and they never overlap.
	attempts map[int64]int
}

func NewEventProcessor(
	events repository.EventRepository,
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	aggregator *metrics.Aggregator,
	broadcaster Broadcaster,
	health ConnectionHealth,
	deadLetters *deadletter.Store,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *EventProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.PerEventTimeout <= 0 {
		cfg.PerEventTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &EventProcessor{
		events:        events,
		users:         users,
		notifications: notifications,
		aggregator:    aggregator,
		broadcaster:   broadcaster,
		health:        health,
		deadLetters:   deadLetters,
		logger:        logger,
		cfg:           cfg,
		cron:          cron.New(cron.WithSeconds()),
		attempts:      make(map[int64]int),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = p.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval*10)
		defer cancel()
		if err := p.RunCycle(ctx); err != nil {
			p.logger.Error("processing cycle failed", zap.Error(err))
		}
	})

	return p
}

// Start launches the drain schedule.
func (p *EventProcessor) Start() {
	if p == nil || p.cron == nil {
		return
	}
	p.cron.Start()
	p.logger.Info("event processor started", zap.Duration("interval", p.cfg.Interval))
}

// Stop gracefully stops the schedule, waiting for a running cycle.
func (p *EventProcessor) Stop(ctx context.Context) {
	if p == nil || p.cron == nil {
		return
	}
	stopCtx := p.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	p.logger.Info("event processor stopped")
}

// RunCycle drains the pending queue once. Events are handled oldest first so
// sustained load cannot starve early submissions. A failure on one event is
// logged and the cycle moves on; a failed fetch aborts the cycle and the next
// trigger retries from scratch.
func (p *EventProcessor) RunCycle(ctx context.Context) error {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.logger.Debug("skipping cycle, previous one still running")
		return nil
	}
	defer p.inFlight.Store(false)

	if p.health != nil && !p.health.IsOnline() {
		p.logger.Debug("skipping cycle, storage offline")
		return nil
	}

	events, err := p.events.ListUnprocessed(ctx)
	if err != nil {
		return err
	}

	for i := range events {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.processEvent(ctx, &events[i]); err != nil {
			p.logger.Error("event left unprocessed",
				zap.Int64("event_id", events[i].ID),
				zap.String("type", events[i].Type),
				zap.Error(err))
		}
	}
	return nil
}

func (p *EventProcessor) processEvent(ctx context.Context, event *domain.Event) error {
	evCtx, cancel := context.WithTimeout(ctx, p.cfg.PerEventTimeout)
	defer cancel()

	start := time.Now()

	actor, err := p.users.GetByID(evCtx, event.ActorID)
	if err != nil {
		// A missing actor (or a lookup that timed out) is recoverable: the
		// event stays pending and the next cycle retries it.
		if domain.IsDomainError(err, domain.ErrCodeNotFound) || errors.Is(err, context.DeadlineExceeded) {
			p.noteUnresolved(ctx, event, err)
			return nil
		}
		return err
	}
	delete(p.attempts, event.ID)

	notification := &domain.Notification{
		Type:         event.Type,
		ActorID:      event.ActorID,
		TargetUserID: event.TargetUserID,
		ContentID:    event.ContentID,
		Message:      domain.BuildMessage(event.Type, actor.Username),
	}

	created, err := p.notifications.Create(evCtx, notification)
	if err != nil {
		return err
	}

	deliveryTimeMs := int(time.Since(start).Milliseconds())
	if err := p.notifications.MarkDelivered(evCtx, created.ID, deliveryTimeMs); err != nil {
		return err
	}
	created.Delivered = true
	created.DeliveryTimeMs = &deliveryTimeMs

	if err := p.events.MarkProcessed(evCtx, event.ID); err != nil {
		return err
	}

	p.broadcaster.Broadcast(kindNotification, domain.EnrichedNotification{
		Notification:  *created,
		ActorUsername: actor.Username,
	})

	snapshot, err := p.aggregator.RecordDelivery(ctx, deliveryTimeMs)
	if err != nil {
		// The notification is already delivered; only the gauge write failed.
		p.logger.Warn("metrics merge failed after delivery", zap.Int64("event_id", event.ID), zap.Error(err))
		return nil
	}
	p.broadcaster.Broadcast(kindMetrics, snapshot)

	p.logger.Debug("event processed",
		zap.Int64("event_id", event.ID),
		zap.Int64("notification_id", created.ID),
		zap.Int("delivery_time_ms", deliveryTimeMs))
	return nil
}

// noteUnresolved tracks consecutive resolution failures and, when a bound is
// configured and exceeded, parks the event in the dead-letter store so it
// stops blocking the queue. With no bound the event simply stays pending.
func (p *EventProcessor) noteUnresolved(ctx context.Context, event *domain.Event, cause error) {
	p.attempts[event.ID]++
	attempts := p.attempts[event.ID]

	p.logger.Warn("actor not resolvable, leaving event pending",
		zap.Int64("event_id", event.ID),
		zap.Int64("actor_id", event.ActorID),
		zap.Int("attempts", attempts),
		zap.Error(cause))

	if p.cfg.MaxAttempts <= 0 || attempts < p.cfg.MaxAttempts || p.deadLetters == nil {
		return
	}

	entry := deadletter.Entry{
		Event:    *event,
		Reason:   cause.Error(),
		Attempts: attempts,
	}
	if err := p.deadLetters.Park(entry); err != nil {
		p.logger.Error("failed to park event", zap.Int64("event_id", event.ID), zap.Error(err))
		return
	}
	if err := p.events.MarkProcessed(ctx, event.ID); err != nil {
		p.logger.Error("failed to retire parked event", zap.Int64("event_id", event.ID), zap.Error(err))
		return
	}
	delete(p.attempts, event.ID)
	p.logger.Warn("event dead-lettered after repeated resolution failures",
		zap.Int64("event_id", event.ID),
		zap.Int("attempts", attempts))
}
