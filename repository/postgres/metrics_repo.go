package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsefeed/backend/domain"
	"github.com/pulsefeed/backend/repository"
)

type metricsRepository struct {
	pool *pgxpool.Pool
}

// NewMetricsRepository returns a Postgres-backed MetricsRepository. It only
// stores and fetches rows; serialization of read-modify-write sequences is
// the aggregator's job.
func NewMetricsRepository(pool *pgxpool.Pool) repository.MetricsRepository {
	return &metricsRepository{pool: pool}
}

func (r *metricsRepository) Latest(ctx context.Context) (*domain.SystemMetrics, error) {
	const query = `
	SELECT id, active_users, notifications_sent, avg_response_time_ms, error_rate, queue_size, timestamp
	FROM system_metrics
	ORDER BY timestamp DESC
	LIMIT 1
	`
	var m domain.SystemMetrics
	if err := r.pool.QueryRow(ctx, query).Scan(
		&m.ID,
		&m.ActiveUsers,
		&m.NotificationsSent,
		&m.AvgResponseTimeMs,
		&m.ErrorRate,
		&m.QueueSize,
		&m.Timestamp,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMetricsNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *metricsRepository) Insert(ctx context.Context, metrics *domain.SystemMetrics) (*domain.SystemMetrics, error) {
	if metrics == nil {
		return nil, domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO system_metrics (active_users, notifications_sent, avg_response_time_ms, error_rate, queue_size, timestamp)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id
	`
	if err := r.pool.QueryRow(ctx, query,
		metrics.ActiveUsers,
		metrics.NotificationsSent,
		metrics.AvgResponseTimeMs,
		metrics.ErrorRate,
		metrics.QueueSize,
		metrics.Timestamp,
	).Scan(&metrics.ID); err != nil {
		return nil, err
	}
	return metrics, nil
}

func (r *metricsRepository) Update(ctx context.Context, metrics *domain.SystemMetrics) error {
	if metrics == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE system_metrics
	SET active_users = $2,
		notifications_sent = $3,
		avg_response_time_ms = $4,
		error_rate = $5,
		queue_size = $6,
		timestamp = $7
	WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		metrics.ID,
		metrics.ActiveUsers,
		metrics.NotificationsSent,
		metrics.AvgResponseTimeMs,
		metrics.ErrorRate,
		metrics.QueueSize,
		metrics.Timestamp,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMetricsNotFound
	}
	return nil
}
