package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SukhvirKooner/Louder/internal/domain"
	xerrors "github.com/SukhvirKooner/Louder/shared/utils/errors"
	"github.com/SukhvirKooner/Louder/shared/utils/id"
)

const eventColumns = `id, source_origin, COALESCE(source_id, ''), title, description, venue, image_url, ticket_url, start_time, created_at, updated_at`

type EventRepo struct {
	db *pgxpool.Pool
}

func NewEventRepo(db *pgxpool.Pool) *EventRepo {
	return &EventRepo{db: db}
}

// Upsert writes ev and fills in its stored id and creation time. An empty
// source id is stored as NULL so the unique index never matches it.
func (r *EventRepo) Upsert(ctx context.Context, ev *domain.Event) error {
	if ev.UpdatedAt.IsZero() {
		ev.UpdatedAt = time.Now()
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO events (id, source_origin, source_id, title, description, venue, image_url, ticket_url, start_time, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (source_origin, source_id) DO UPDATE SET
			title       = EXCLUDED.title,
			description = EXCLUDED.description,
			venue       = EXCLUDED.venue,
			image_url   = EXCLUDED.image_url,
			ticket_url  = EXCLUDED.ticket_url,
			start_time  = EXCLUDED.start_time,
			updated_at  = EXCLUDED.updated_at
		RETURNING id, created_at
	`, id.GenerateUUID("evt"), ev.SourceOrigin, ev.SourceID, ev.Title, ev.Description, ev.Venue,
		ev.ImageURL, ev.TicketURL, ev.StartTime, ev.UpdatedAt,
	).Scan(&ev.ID, &ev.CreatedAt)
}

func (r *EventRepo) ListUpcoming(ctx context.Context, now time.Time, limit int) ([]domain.Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE start_time >= $1
		ORDER BY start_time ASC, id ASC
		LIMIT NULLIF($2::bigint, 0)
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}

func (r *EventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	return scanOne(r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

func (r *EventRepo) Lookup(ctx context.Context, sourceOrigin, sourceID string) (*domain.Event, error) {
	if sourceID == "" {
		return nil, xerrors.ErrNotFound
	}
	return scanOne(r.db.QueryRow(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE source_origin = $1 AND source_id = $2
	`, sourceOrigin, sourceID))
}

// DeletePast removes events that started before now. Events with no start
// time are kept.
func (r *EventRepo) DeletePast(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE start_time < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanOne(row pgx.Row) (*domain.Event, error) {
	ev, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	return ev, err
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var ev domain.Event
	err := row.Scan(&ev.ID, &ev.SourceOrigin, &ev.SourceID, &ev.Title, &ev.Description, &ev.Venue,
		&ev.ImageURL, &ev.TicketURL, &ev.StartTime, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}
