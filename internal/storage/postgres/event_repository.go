package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cimillas/ticket-booking/internal/domain"
)

const eventColumns = `id, name, venue, starts_at, price_cents, total_tickets, booked_tickets, version, status, created_at, updated_at`

type EventRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool, now: time.Now}
}

func (r *EventRepository) CreateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `
INSERT INTO events (id, name, venue, starts_at, price_cents, total_tickets, booked_tickets, version, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	if event.Status == "" {
		event.Status = domain.EventStatusActive
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.now().UTC()
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = event.CreatedAt
	}
	_, err := r.pool.Exec(ctx, stmt,
		event.ID,
		event.Name,
		event.Venue,
		event.StartsAt,
		event.PriceCents,
		event.TotalTickets,
		event.BookedTickets,
		event.Version,
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// GetEvent reports ids that are not UUIDs as not found; no such row can exist.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	event, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) || errors.Is(err, pgx.ErrNoRows) {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// ConsumeTickets is the guarded write: one statement checks the version and
// the remaining capacity and applies the increment. ok is false when no row
// matched the guard.
func (r *EventRepository) ConsumeTickets(ctx context.Context, id string, expectedVersion int64, quantity int) (domain.Event, bool, error) {
	query := `
UPDATE events
SET booked_tickets = booked_tickets + $3,
    version = version + 1,
    status = CASE
        WHEN status = 'cancelled' THEN status
        WHEN booked_tickets + $3 >= total_tickets THEN 'sold_out'
        ELSE 'active'
    END,
    updated_at = $4
WHERE id = $1
  AND version = $2
  AND booked_tickets + $3 <= total_tickets
RETURNING ` + eventColumns

	event, err := scanEvent(r.pool.QueryRow(ctx, query, id, expectedVersion, quantity, r.now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return domain.Event{}, false, nil
		}
		return domain.Event{}, false, fmt.Errorf("consume tickets: %w", err)
	}
	return event, true, nil
}

// ReleaseTickets returns tickets taken by a booking that was never written.
func (r *EventRepository) ReleaseTickets(ctx context.Context, id string, quantity int) (domain.Event, error) {
	query := `
UPDATE events
SET booked_tickets = GREATEST(booked_tickets - $2, 0),
    version = version + 1,
    status = CASE
        WHEN status = 'sold_out' AND GREATEST(booked_tickets - $2, 0) < total_tickets THEN 'active'
        ELSE status
    END,
    updated_at = $3
WHERE id = $1
RETURNING ` + eventColumns

	event, err := scanEvent(r.pool.QueryRow(ctx, query, id, quantity, r.now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("release tickets: %w", err)
	}
	return event, nil
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var e domain.Event
	err := row.Scan(
		&e.ID,
		&e.Name,
		&e.Venue,
		&e.StartsAt,
		&e.PriceCents,
		&e.TotalTickets,
		&e.BookedTickets,
		&e.Version,
		&e.Status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}
