package testutil

import (
	appevents "github.com/preston-bernstein/fightpicks/internal/app/events"
	appleagues "github.com/preston-bernstein/fightpicks/internal/app/leagues"
	apppicks "github.com/preston-bernstein/fightpicks/internal/app/picks"
	"github.com/preston-bernstein/fightpicks/internal/backend"
	"github.com/preston-bernstein/fightpicks/internal/store"
)

// Services bundles the application services over a single backend.
type Services struct {
	Catalog *store.Catalog
	Events  *appevents.Service
	Leagues *appleagues.Service
	Picks   *apppicks.Service
}

// NewServices builds the application services over data with an empty catalog.
func NewServices(data backend.DataService) Services {
	catalog := store.NewCatalog()
	return Services{
		Catalog: catalog,
		Events:  appevents.NewService(data, catalog),
		Leagues: appleagues.NewService(data),
		Picks:   apppicks.NewService(data, "", ""),
	}
}
