package app

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cimillas/ticket-booking/internal/clock"
	"github.com/cimillas/ticket-booking/internal/domain"
)

type EventAdminRepository interface {
	CreateEvent(ctx context.Context, event domain.Event) error
	GetEvent(ctx context.Context, id string) (domain.Event, error)
}

type EventService struct {
	repo  EventAdminRepository
	clock clock.Clock
}

func NewEventService(repo EventAdminRepository, clk clock.Clock) *EventService {
	return &EventService{
		repo:  repo,
		clock: clk,
	}
}

type CreateEventInput struct {
	Name         string
	Venue        string
	StartsAt     time.Time
	PriceCents   int64
	TotalTickets int
}

func (s *EventService) CreateEvent(ctx context.Context, in CreateEventInput) (domain.Event, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Venue = strings.TrimSpace(in.Venue)

	now := s.clock.Now()
	switch {
	case in.Name == "":
		return domain.Event{}, domain.ErrEventNameRequired
	case utf8.RuneCountInString(in.Name) > domain.MaxEventNameLength:
		return domain.Event{}, domain.ErrEventNameTooLong
	case in.Venue == "":
		return domain.Event{}, domain.ErrVenueRequired
	case in.TotalTickets < 1 || in.TotalTickets > domain.MaxTotalTickets:
		return domain.Event{}, domain.ErrInvalidTotalTickets
	case in.PriceCents < 0:
		return domain.Event{}, domain.ErrInvalidPrice
	case !in.StartsAt.After(now):
		return domain.Event{}, domain.ErrEventDateNotFuture
	}

	event := domain.Event{
		ID:           newUUID(),
		Name:         in.Name,
		Venue:        in.Venue,
		StartsAt:     in.StartsAt.UTC(),
		PriceCents:   in.PriceCents,
		TotalTickets: in.TotalTickets,
		Status:       domain.EventStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func (s *EventService) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Event{}, domain.ErrInvalidID
	}
	return s.repo.GetEvent(ctx, id)
}
