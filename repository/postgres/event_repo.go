package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsefeed/backend/domain"
	"github.com/pulsefeed/backend/repository"
)

type eventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository returns a Postgres-backed implementation of EventRepository.
func NewEventRepository(pool *pgxpool.Pool) repository.EventRepository {
	return &eventRepository{pool: pool}
}

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	if event == nil {
		return nil, domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO events (type, actor_id, target_user_id, content_id, processed)
	VALUES ($1, $2, $3, $4, FALSE)
	RETURNING id, processed, created_at
	`

	if err := r.pool.QueryRow(ctx, query,
		event.Type,
		event.ActorID,
		event.TargetUserID,
		event.ContentID,
	).Scan(&event.ID, &event.Processed, &event.CreatedAt); err != nil {
		return nil, err
	}

	return event, nil
}

func (r *eventRepository) ListUnprocessed(ctx context.Context) ([]domain.Event, error) {
	const query = `
	SELECT id, type, actor_id, target_user_id, content_id, processed, created_at
	FROM events
	WHERE processed = FALSE
	ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		if err := rows.Scan(
			&event.ID,
			&event.Type,
			&event.ActorID,
			&event.TargetUserID,
			&event.ContentID,
			&event.Processed,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *eventRepository) MarkProcessed(ctx context.Context, id int64) error {
	// The processed=FALSE guard keeps the transition one-way even if two
	// cycles ever raced past the in-flight guard.
	const query = `
	UPDATE events
	SET processed = TRUE
	WHERE id = $1 AND processed = FALSE
	`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}
