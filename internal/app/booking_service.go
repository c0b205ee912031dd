package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cimillas/ticket-booking/internal/clock"
	"github.com/cimillas/ticket-booking/internal/domain"
	"github.com/cimillas/ticket-booking/internal/lock"
)

// EventRepository is the inventory side of a booking. ConsumeTickets must apply
// the version and capacity guard in the same atomic write as the increment.
type EventRepository interface {
	GetEvent(ctx context.Context, id string) (domain.Event, error)
	ConsumeTickets(ctx context.Context, id string, expectedVersion int64, quantity int) (domain.Event, bool, error)
	ReleaseTickets(ctx context.Context, id string, quantity int) (domain.Event, error)
}

type BookingRepository interface {
	FindConfirmedBooking(ctx context.Context, eventID, userEmail string) (*domain.Booking, error)
	CreateBooking(ctx context.Context, booking domain.Booking) error
	ListBookings(ctx context.Context, filter domain.BookingFilter, page, pageSize int) ([]domain.Booking, int, error)
}

// Locker runs fn while holding an exclusive lease on name. It returns an error
// matching lock.ErrUnavailable when the lease is not granted within wait.
type Locker interface {
	WithLock(ctx context.Context, name string, ttl, wait time.Duration, fn func(ctx context.Context) error) error
}

const (
	defaultLockTTL      = 60 * time.Second
	defaultLockWait     = 10 * time.Second
	compensationTimeout = 5 * time.Second

	defaultPageSize = 10
	maxPageSize     = 100
	// maxPageNumber keeps the row offset well inside int range.
	maxPageNumber = 1 << 20
)

type BookingService struct {
	events   EventRepository
	bookings BookingRepository
	locker   Locker
	clock    clock.Clock
	logger   zerolog.Logger
	metrics  *bookingMetrics
	lockTTL  time.Duration
	lockWait time.Duration
}

type BookingServiceOption func(*BookingService)

// WithLockTTL overrides how long a booking may hold the event lease.
func WithLockTTL(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.lockTTL = d
		}
	}
}

// WithLockWait overrides how long a booking waits for the event lease.
func WithLockWait(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d >= 0 {
			s.lockWait = d
		}
	}
}

func WithLogger(logger zerolog.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.logger = logger
	}
}

func NewBookingService(events EventRepository, bookings BookingRepository, locker Locker, clk clock.Clock, opts ...BookingServiceOption) *BookingService {
	svc := &BookingService{
		events:   events,
		bookings: bookings,
		locker:   locker,
		clock:    clk,
		logger:   zerolog.Nop(),
		lockTTL:  defaultLockTTL,
		lockWait: defaultLockWait,
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.metrics = newBookingMetrics(svc.logger)
	return svc
}

type BookInput struct {
	EventID   string
	UserID    string
	UserEmail string
	Quantity  int
}

func (in BookInput) validate() error {
	if in.EventID == "" {
		return domain.ErrInvalidID
	}
	if in.UserID == "" {
		return domain.ErrUserIDRequired
	}
	if !validEmail(in.UserEmail) {
		return domain.ErrInvalidEmail
	}
	if !domain.ValidQuantity(in.Quantity) {
		return domain.ErrInvalidQuantity
	}
	return nil
}

// Book reserves tickets for one user. The whole read-check-write sequence runs
// under the event's lease; the conditional inventory update still re-checks
// version and capacity in case the lease was lost. Nothing is retried here.
func (s *BookingService) Book(ctx context.Context, in BookInput) (domain.Booking, error) {
	in.EventID = canonicalEventID(in.EventID)
	in.UserID = strings.TrimSpace(in.UserID)
	in.UserEmail = normalizeEmail(in.UserEmail)
	if err := in.validate(); err != nil {
		s.metrics.recordAttempt(ctx, err)
		return domain.Booking{}, err
	}

	log := s.logger.With().
		Str("event_id", in.EventID).
		Str("user_id", in.UserID).
		Int("quantity", in.Quantity).
		Logger()
	log.Info().Msg("booking attempt started")

	var result domain.Booking
	err := s.locker.WithLock(ctx, lockName(in.EventID), s.lockTTL, s.lockWait, func(lockCtx context.Context) error {
		booking, err := s.processBooking(lockCtx, in, log)
		if err != nil {
			return err
		}
		result = booking
		return nil
	})
	if err != nil {
		err = s.classify(err, log)
		s.metrics.recordAttempt(ctx, err)
		return domain.Booking{}, err
	}

	s.metrics.recordAttempt(ctx, nil)
	return result, nil
}

func (s *BookingService) processBooking(ctx context.Context, in BookInput, log zerolog.Logger) (domain.Booking, error) {
	event, err := s.events.GetEvent(ctx, in.EventID)
	if err != nil {
		return domain.Booking{}, err
	}

	now := s.clock.Now()
	if err := event.CheckBookable(in.Quantity, now); err != nil {
		return domain.Booking{}, err
	}

	existing, err := s.bookings.FindConfirmedBooking(ctx, event.ID, in.UserEmail)
	if err != nil {
		return domain.Booking{}, err
	}
	if existing != nil {
		log.Warn().Str("booking_id", existing.ID).Msg("user already holds a confirmed booking")
		return domain.Booking{}, domain.ErrDuplicateBooking
	}

	updated, ok, err := s.events.ConsumeTickets(ctx, event.ID, event.Version, in.Quantity)
	if err != nil {
		return domain.Booking{}, err
	}
	if !ok {
		return domain.Booking{}, s.diagnoseConsumeFailure(ctx, event, in.Quantity, log)
	}

	booking := domain.Booking{
		ID:               newUUID(),
		EventID:          event.ID,
		UserID:           in.UserID,
		UserEmail:        in.UserEmail,
		Quantity:         in.Quantity,
		TotalAmountCents: int64(in.Quantity) * event.PriceCents,
		Status:           domain.BookingStatusConfirmed,
		Reference:        newReference(now),
		CreatedAt:        now,
		Event:            updated.Summary(),
	}

	if err := s.bookings.CreateBooking(ctx, booking); err != nil {
		return domain.Booking{}, s.compensate(ctx, updated, in.Quantity, err, log)
	}

	log.Info().
		Str("booking_id", booking.ID).
		Str("reference", booking.Reference).
		Int64("version", updated.Version).
		Int("remaining_tickets", updated.AvailableTickets()).
		Msg("booking completed successfully")
	return booking, nil
}

// diagnoseConsumeFailure re-reads the event to tell a lost race from a
// capacity shortfall.
func (s *BookingService) diagnoseConsumeFailure(ctx context.Context, read domain.Event, quantity int, log zerolog.Logger) error {
	current, err := s.events.GetEvent(ctx, read.ID)
	if errors.Is(err, domain.ErrEventNotFound) {
		return &domain.CapacityError{Available: 0}
	}
	if err != nil {
		return err
	}

	if current.Version != read.Version {
		log.Warn().
			Int64("expected_version", read.Version).
			Int64("actual_version", current.Version).
			Msg("booking conflict: event changed while lease was held")
		return &domain.VersionConflictError{
			EventID:  read.ID,
			Expected: read.Version,
			Actual:   current.Version,
		}
	}

	log.Warn().
		Int64("expected_version", read.Version).
		Int("requested", quantity).
		Int("available", current.AvailableTickets()).
		Msg("conditional update rejected: insufficient tickets")
	return &domain.CapacityError{Available: current.AvailableTickets()}
}

// compensate reverts a consumed inventory update after the booking write failed.
func (s *BookingService) compensate(ctx context.Context, event domain.Event, quantity int, cause error, log zerolog.Logger) error {
	compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if _, err := s.events.ReleaseTickets(compCtx, event.ID, quantity); err != nil {
		s.metrics.recordCompensation(ctx, "failed")
		log.Error().
			Err(err).
			AnErr("cause", cause).
			Int64("version", event.Version).
			Bool("inventory_inconsistent", true).
			Msg("CRITICAL: tickets consumed without a booking and compensation failed")
		return fmt.Errorf("%w: compensation failed: %v", domain.ErrInternal, err)
	}

	s.metrics.recordCompensation(ctx, "applied")
	log.Warn().Err(cause).Msg("booking creation failed, inventory compensated")

	if errors.Is(cause, domain.ErrDuplicateBooking) || errors.Is(cause, domain.ErrReferenceCollision) {
		return cause
	}
	return fmt.Errorf("%w: create booking: %v", domain.ErrInternal, cause)
}

// classify maps lock and storage failures onto the domain taxonomy and logs them.
func (s *BookingService) classify(err error, log zerolog.Logger) error {
	switch {
	case errors.Is(err, lock.ErrUnavailable):
		log.Warn().Err(err).Msg("booking failed: lease not acquired")
		return domain.ErrLockUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Warn().Err(err).Msg("booking abandoned: context done")
		return err
	case isDomainError(err):
		log.Warn().Err(err).Msg("booking failed")
		return err
	default:
		log.Error().Err(err).Msg("unexpected booking error")
		return fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}
}

type Page struct {
	Number int
	Size   int
}

type BookingPage struct {
	Bookings    []domain.Booking
	CurrentPage int
	PageSize    int
	TotalPages  int
	TotalCount  int
}

// ListBookings is a plain read; it takes no lease.
func (s *BookingService) ListBookings(ctx context.Context, filter domain.BookingFilter, page Page) (BookingPage, error) {
	if page.Number < 1 {
		page.Number = 1
	}
	if page.Number > maxPageNumber {
		page.Number = maxPageNumber
	}
	if page.Size < 1 {
		page.Size = defaultPageSize
	}
	if page.Size > maxPageSize {
		page.Size = maxPageSize
	}
	filter.EventID = canonicalEventID(filter.EventID)
	filter.UserEmail = normalizeEmail(filter.UserEmail)

	bookings, total, err := s.bookings.ListBookings(ctx, filter, page.Number, page.Size)
	if err != nil {
		return BookingPage{}, err
	}
	return BookingPage{
		Bookings:    bookings,
		CurrentPage: page.Number,
		PageSize:    page.Size,
		TotalPages:  (total + page.Size - 1) / page.Size,
		TotalCount:  total,
	}, nil
}

func lockName(eventID string) string {
	return "booking:" + eventID
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " \t") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrEventNotFound) ||
		errors.Is(err, domain.ErrInvalidState) ||
		errors.Is(err, domain.ErrCapacityExceeded) ||
		errors.Is(err, domain.ErrDuplicateBooking) ||
		errors.Is(err, domain.ErrVersionConflict) ||
		errors.Is(err, domain.ErrReferenceCollision) ||
		errors.Is(err, domain.ErrLockUnavailable) ||
		errors.Is(err, domain.ErrInternal) ||
		isInputError(err)
}
