package repository

import (
	"context"

	"github.com/pulsefeed/backend/domain"
)

// MetricsRepository persists the health snapshot. All read-modify-write
// sequencing lives in the aggregator; implementations only store and fetch.
type MetricsRepository interface {
	// Latest returns the most recent snapshot by timestamp, or
	// domain.ErrMetricsNotFound when none has been written yet.
	Latest(ctx context.Context) (*domain.SystemMetrics, error)
	Insert(ctx context.Context, metrics *domain.SystemMetrics) (*domain.SystemMetrics, error)
	Update(ctx context.Context, metrics *domain.SystemMetrics) error
}
