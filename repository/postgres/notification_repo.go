package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsefeed/backend/domain"
	"github.com/pulsefeed/backend/repository"
)

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository returns a Postgres-backed NotificationRepository.
func NewNotificationRepository(pool *pgxpool.Pool) repository.NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) (*domain.Notification, error) {
	if notification == nil {
		return nil, domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO notifications (type, actor_id, target_user_id, content_id, message, delivered)
	VALUES ($1, $2, $3, $4, $5, FALSE)
	RETURNING id, delivered, created_at
	`

	if err := r.pool.QueryRow(ctx, query,
		notification.Type,
		notification.ActorID,
		notification.TargetUserID,
		notification.ContentID,
		notification.Message,
	).Scan(&notification.ID, &notification.Delivered, &notification.CreatedAt); err != nil {
		return nil, err
	}

	return notification, nil
}

func (r *notificationRepository) MarkDelivered(ctx context.Context, id int64, deliveryTimeMs int) error {
	const query = `
	UPDATE notifications
	SET delivered = TRUE, delivery_time_ms = $2
	WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, deliveryTimeMs)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepository) ListRecent(ctx context.Context, limit int) ([]domain.Notification, error) {
	const query = `
	SELECT id, type, actor_id, target_user_id, content_id, message, delivered, delivery_time_ms, created_at
	FROM notifications
	ORDER BY created_at DESC
	LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.Type,
			&n.ActorID,
			&n.TargetUserID,
			&n.ContentID,
			&n.Message,
			&n.Delivered,
			&n.DeliveryTimeMs,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
