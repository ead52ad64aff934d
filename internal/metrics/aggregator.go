package metrics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pulsefeed/backend/domain"
	"github.com/pulsefeed/backend/repository"
)

// Aggregator owns every read-modify-write of the current system metrics
// snapshot. A single mutex serializes all merges so concurrent callers (the
// event processor, the ingestion bump, the active-user sampler) cannot lose
// each other's contributions. Reads go through the same repository but do not
// need the lock; a slightly stale snapshot is acceptable.
type Aggregator struct {
	repo   repository.MetricsRepository
	logger *zap.Logger

	mu sync.Mutex
}

func NewAggregator(repo repository.MetricsRepository, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{repo: repo, logger: logger}
}

// Latest returns the current snapshot, or domain.ErrMetricsNotFound if no
// update has ever been written.
func (a *Aggregator) Latest(ctx context.Context) (*domain.SystemMetrics, error) {
	return a.repo.Latest(ctx)
}

// Merge applies a partial update onto the current snapshot and writes it
// back. When no snapshot exists yet, one is created from the documented
// defaults overlaid with the update. Returns the resulting snapshot.
func (a *Aggregator) Merge(ctx context.Context, update domain.MetricsUpdate) (*domain.SystemMetrics, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.apply(ctx, func(m *domain.SystemMetrics) {
		m.Apply(update)
	})
}

// RecordDelivery folds one processed event into the snapshot: sent count up
// by one, response-time smoothing, backlog down by one clamped at zero. Done
// in a single lock acquisition so no other merge can interleave.
func (a *Aggregator) RecordDelivery(ctx context.Context, deliveryTimeMs int) (*domain.SystemMetrics, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.apply(ctx, func(m *domain.SystemMetrics) {
		m.NotificationsSent++
		m.AvgResponseTimeMs = domain.SmoothResponseTime(m.AvgResponseTimeMs, deliveryTimeMs)
		m.QueueSize--
		if m.QueueSize < 0 {
			m.QueueSize = 0
		}
	})
}

// AddQueued bumps the backlog counter, clamped at zero for negative deltas.
func (a *Aggregator) AddQueued(ctx context.Context, delta int) (*domain.SystemMetrics, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.apply(ctx, func(m *domain.SystemMetrics) {
		m.QueueSize += delta
		if m.QueueSize < 0 {
			m.QueueSize = 0
		}
	})
}

// AdjustActiveUsers shifts the active-user gauge by delta, floored at zero.
func (a *Aggregator) AdjustActiveUsers(ctx context.Context, delta int) (*domain.SystemMetrics, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.apply(ctx, func(m *domain.SystemMetrics) {
		m.ActiveUsers += delta
		if m.ActiveUsers < 0 {
			m.ActiveUsers = 0
		}
	})
}

// apply runs the mutation against the current (or default) snapshot and
// persists the result. Callers must hold the mutex.
func (a *Aggregator) apply(ctx context.Context, mutate func(*domain.SystemMetrics)) (*domain.SystemMetrics, error) {
	current, err := a.repo.Latest(ctx)
	switch {
	case err == nil:
		mutate(current)
		current.Timestamp = time.Now()
		if err := a.repo.Update(ctx, current); err != nil {
			return nil, err
		}
		return current, nil

	case domain.IsDomainError(err, domain.ErrCodeNotFound):
		seeded := domain.DefaultMetrics()
		mutate(&seeded)
		seeded.Timestamp = time.Now()
		created, err := a.repo.Insert(ctx, &seeded)
		if err != nil {
			return nil, err
		}
		a.logger.Info("seeded initial metrics snapshot")
		return created, nil

	default:
		return nil, err
	}
}
