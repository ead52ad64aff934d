package feed

import (
	"context"

	"go.uber.org/zap"

	"github.com/pulsefeed/backend/domain"
	"github.com/pulsefeed/backend/repository"
	"github.com/pulsefeed/backend/usecase"
)

const defaultLimit = 50

// UseCase serves the dashboard-facing read side: recent notifications with
// resolved actor names and the current metrics snapshot.
type UseCase struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	metrics       usecase.MetricsSink
	logger        *zap.Logger
}

func New(notifications repository.NotificationRepository, users repository.UserRepository, metrics usecase.MetricsSink, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		notifications: notifications,
		users:         users,
		metrics:       metrics,
		logger:        logger,
	}
}

// ListNotifications returns the most recent notifications, newest first,
// each enriched with the actor's username. An actor that no longer resolves
// becomes the "Unknown User" placeholder rather than an error.
func (uc *UseCase) ListNotifications(ctx context.Context, limit int) ([]domain.EnrichedNotification, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	notifications, err := uc.notifications.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	// Actors repeat heavily in a feed page; resolve each one once.
	usernames := make(map[int64]string)
	enriched := make([]domain.EnrichedNotification, 0, len(notifications))
	for _, n := range notifications {
		username, ok := usernames[n.ActorID]
		if !ok {
			username = uc.resolveActor(ctx, n.ActorID)
			usernames[n.ActorID] = username
		}
		enriched = append(enriched, domain.EnrichedNotification{
			Notification:  n,
			ActorUsername: username,
		})
	}
	return enriched, nil
}

// LatestMetrics returns the current snapshot, falling back to the documented
// defaults when nothing has been written yet.
func (uc *UseCase) LatestMetrics(ctx context.Context) (*domain.SystemMetrics, error) {
	snapshot, err := uc.metrics.Latest(ctx)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			seeded := domain.DefaultMetrics()
			return &seeded, nil
		}
		return nil, err
	}
	return snapshot, nil
}

func (uc *UseCase) resolveActor(ctx context.Context, actorID int64) string {
	actor, err := uc.users.GetByID(ctx, actorID)
	if err != nil {
		if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			uc.logger.Warn("actor lookup failed", zap.Int64("actor_id", actorID), zap.Error(err))
		}
		return domain.UnknownActor
	}
	return actor.Username
}
