package server

import (
	"context"

	"github.com/preston-bernstein/fightpicks/internal/poller"
)

// Poller defines the minimal catalog poller behavior needed by the server.
type Poller interface {
	Start(ctx context.Context)
	Stop(ctx context.Context) error
	Refresh(ctx context.Context) error
	Status() poller.Status
}
