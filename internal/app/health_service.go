package app

import (
	"context"
	"time"

	"github.com/cimillas/ticket-booking/internal/clock"
)

type StatsRepository interface {
	Ping(ctx context.Context) error
	CountEvents(ctx context.Context) (int, error)
	CountBookings(ctx context.Context) (int, error)
}

// BackendReporter names the lock backend currently in use.
type BackendReporter interface {
	ActiveBackend(ctx context.Context) string
}

type HealthService struct {
	stats StatsRepository
	locks BackendReporter
	clock clock.Clock
}

func NewHealthService(stats StatsRepository, locks BackendReporter, clk clock.Clock) *HealthService {
	return &HealthService{stats: stats, locks: locks, clock: clk}
}

type HealthReport struct {
	Status      string
	Database    string
	LockBackend string
	Events      int
	Bookings    int
	CheckedAt   time.Time
}

func (s *HealthService) Check(ctx context.Context) (HealthReport, error) {
	report := HealthReport{
		Status:    "unhealthy",
		Database:  "disconnected",
		CheckedAt: s.clock.Now(),
	}
	if s.locks != nil {
		report.LockBackend = s.locks.ActiveBackend(ctx)
	}
	if err := s.stats.Ping(ctx); err != nil {
		return report, err
	}
	report.Database = "connected"

	events, err := s.stats.CountEvents(ctx)
	if err != nil {
		return report, err
	}
	bookings, err := s.stats.CountBookings(ctx)
	if err != nil {
		return report, err
	}
	report.Status = "healthy"
	report.Events = events
	report.Bookings = bookings
	return report, nil
}
