package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/cimillas/ticket-booking/internal/domain"
)

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) FindConfirmedBooking(ctx context.Context, eventID, userEmail string) (*domain.Booking, error) {
	const query = `
SELECT id, event_id, user_id, user_email, quantity, total_amount_cents, status, reference, created_at
FROM bookings
WHERE event_id = $1 AND user_email = $2 AND status = 'confirmed'
LIMIT 1`

	var b domain.Booking
	err := r.pool.QueryRow(ctx, query, eventID, userEmail).Scan(
		&b.ID, &b.EventID, &b.UserID, &b.UserEmail, &b.Quantity, &b.TotalAmountCents, &b.Status, &b.Reference, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find confirmed booking: %w", err)
	}
	return &b, nil
}

// CreateBooking inserts the booking row. Unique violations are told apart by
// constraint name.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking domain.Booking) error {
	const stmt = `
INSERT INTO bookings (id, event_id, user_id, user_email, quantity, total_amount_cents, status, reference, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, stmt,
		booking.ID,
		booking.EventID,
		booking.UserID,
		booking.UserEmail,
		booking.Quantity,
		booking.TotalAmountCents,
		booking.Status,
		booking.Reference,
		booking.CreatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err) && violatedConstraint(err) == constraintBookingReference:
			return domain.ErrReferenceCollision
		case isUniqueViolation(err) && violatedConstraint(err) == constraintBookingConfirmedEmail:
			return domain.ErrDuplicateBooking
		case isForeignKeyViolation(err):
			return domain.ErrEventNotFound
		case isInvalidUUID(err):
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// ListBookings returns one page, newest first, with the event summary joined
// in. The page and the total count are fetched concurrently.
func (r *BookingRepository) ListBookings(ctx context.Context, filter domain.BookingFilter, page, pageSize int) ([]domain.Booking, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.EventID != "" {
		args = append(args, filter.EventID)
		conds = append(conds, "b.event_id = $"+strconv.Itoa(len(args)))
	}
	if filter.UserEmail != "" {
		args = append(args, filter.UserEmail)
		conds = append(conds, "b.user_email = $"+strconv.Itoa(len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	countQuery := `SELECT COUNT(*) FROM bookings b ` + where
	pageArgs := append(append([]any(nil), args...), pageSize, (page-1)*pageSize)
	pageQuery := `
SELECT b.id, b.event_id, b.user_id, b.user_email, b.quantity, b.total_amount_cents, b.status, b.reference, b.created_at,
       e.id, e.name, e.venue, e.starts_at, e.price_cents
FROM bookings b
JOIN events e ON e.id = b.event_id
` + where + `
ORDER BY b.created_at DESC, b.id DESC
LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)

	var (
		total    int
		bookings []domain.Booking
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.pool.QueryRow(gctx, countQuery, args...).Scan(&total); err != nil {
			return fmt.Errorf("count bookings: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, pageQuery, pageArgs...)
		if err != nil {
			return fmt.Errorf("list bookings: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var b domain.Booking
			if err := rows.Scan(
				&b.ID, &b.EventID, &b.UserID, &b.UserEmail, &b.Quantity, &b.TotalAmountCents, &b.Status, &b.Reference, &b.CreatedAt,
				&b.Event.ID, &b.Event.Name, &b.Event.Venue, &b.Event.StartsAt, &b.Event.PriceCents,
			); err != nil {
				return fmt.Errorf("scan booking: %w", err)
			}
			bookings = append(bookings, b)
		}
		if rows.Err() != nil {
			return fmt.Errorf("iterate bookings: %w", rows.Err())
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if isInvalidUUID(err) {
			return nil, 0, domain.ErrInvalidID
		}
		return nil, 0, err
	}
	return bookings, total, nil
}
