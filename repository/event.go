package repository

import (
	"context"

	"github.com/pulsefeed/backend/domain"
)

type EventRepository interface {
	// Create stores an event with processed=false and a server-side timestamp.
	Create(ctx context.Context, event *domain.Event) (*domain.Event, error)
	// ListUnprocessed returns pending events ordered by creation time
	// ascending, oldest first.
	ListUnprocessed(ctx context.Context) ([]domain.Event, error)
	// MarkProcessed flips the processed flag. The transition is one-way.
	MarkProcessed(ctx context.Context, id int64) error
}
