package repository

import (
	"context"

	"github.com/pulsefeed/backend/domain"
)

type NotificationRepository interface {
	// Create stores a notification with delivered=false.
	Create(ctx context.Context, notification *domain.Notification) (*domain.Notification, error)
	// MarkDelivered sets delivered=true and the delivery latency in one step.
	MarkDelivered(ctx context.Context, id int64, deliveryTimeMs int) error
	// ListRecent returns the newest notifications, creation time descending.
	ListRecent(ctx context.Context, limit int) ([]domain.Notification, error)
}
