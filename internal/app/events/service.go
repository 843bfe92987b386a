package events

import (
	"context"
	"errors"

	"github.com/preston-bernstein/fightpicks/internal/apperr"
	"github.com/preston-bernstein/fightpicks/internal/backend"
	"github.com/preston-bernstein/fightpicks/internal/domain"
	domainevents "github.com/preston-bernstein/fightpicks/internal/domain/events"
)

const (
	MsgInvalidEvent  = "This event URL is not valid. Open an event from the homepage list."
	MsgEventNotFound = "Event not found."
)

// Catalog is the cached copy of the public event list.
type Catalog interface {
	Events() ([]domainevents.Event, bool)
}

// Service reads events and their fights from the backend.
type Service struct {
	data    backend.DataService
	catalog Catalog
}

// NewService constructs a Service. catalog may be nil.
func NewService(data backend.DataService, catalog Catalog) *Service {
	return &Service{data: data, catalog: catalog}
}

// Events returns the event list, preferring the cached catalog.
func (s *Service) Events(ctx context.Context) ([]domainevents.Event, error) {
	if s.catalog != nil {
		if evs, ok := s.catalog.Events(); ok {
			return evs, nil
		}
	}
	return s.ListEvents(ctx)
}

// ListEvents queries every event ordered by date.
func (s *Service) ListEvents(ctx context.Context) ([]domainevents.Event, error) {
	out := []domainevents.Event{}
	err := s.data.Select(ctx, backend.Query{
		Table: backend.TableEvents,
		Order: []backend.Order{{Column: "date"}},
	}, &out)
	if err != nil {
		return nil, backend.Classify(err)
	}
	return out, nil
}

// Event loads a single event.
func (s *Service) Event(ctx context.Context, id string) (domainevents.Event, error) {
	if !domain.ValidID(id) {
		return domainevents.Event{}, apperr.Invalid(MsgInvalidEvent)
	}
	var ev domainevents.Event
	err := s.data.Select(ctx, backend.Query{
		Table:   backend.TableEvents,
		Filters: []backend.Filter{backend.Eq("id", id)},
		Single:  true,
	}, &ev)
	if errors.Is(err, backend.ErrNoRows) {
		return domainevents.Event{}, apperr.NotFound(MsgEventNotFound, err)
	}
	if err != nil {
		return domainevents.Event{}, backend.Classify(err)
	}
	return ev, nil
}

// FightsForEvent returns the card in bout order.
func (s *Service) FightsForEvent(ctx context.Context, eventID string) ([]domainevents.Fight, error) {
	if !domain.ValidID(eventID) {
		return nil, apperr.Invalid(MsgInvalidEvent)
	}
	out := []domainevents.Fight{}
	err := s.data.Select(ctx, backend.Query{
		Table:   backend.TableFights,
		Filters: []backend.Filter{backend.Eq("event_id", eventID)},
		Order:   []backend.Order{{Column: "bout_order"}},
	}, &out)
	if err != nil {
		return nil, backend.Classify(err)
	}
	return out, nil
}
