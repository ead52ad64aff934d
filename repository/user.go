package repository

import (
	"context"

	"github.com/pulsefeed/backend/domain"
)

// UserRepository resolves actor accounts. Read-only from the pipeline's
// perspective.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}
