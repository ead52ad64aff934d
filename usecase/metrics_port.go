package usecase

import (
	"context"

	"github.com/pulsefeed/backend/domain"
)

// MetricsSink abstracts the aggregator so use cases depend on the merge
// contract, not the concrete single-writer implementation.
type MetricsSink interface {
	Latest(ctx context.Context) (*domain.SystemMetrics, error)
	AddQueued(ctx context.Context, delta int) (*domain.SystemMetrics, error)
}
