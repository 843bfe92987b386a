package server

import (
	"context"

	appevents "github.com/preston-bernstein/fightpicks/internal/app/events"
	apppicks "github.com/preston-bernstein/fightpicks/internal/app/picks"
	"github.com/preston-bernstein/fightpicks/internal/domain/events"
	"github.com/preston-bernstein/fightpicks/internal/domain/picks"
)

// catalogSource feeds the poller from the app services. Calls carry no
// access token, so drivers fall back to their service credentials.
type catalogSource struct {
	events *appevents.Service
	picks  *apppicks.Service
}

func (s catalogSource) ListEvents(ctx context.Context) ([]events.Event, error) {
	return s.events.ListEvents(ctx)
}

func (s catalogSource) Methods(ctx context.Context) (picks.MethodSet, error) {
	return s.picks.Methods(ctx)
}
