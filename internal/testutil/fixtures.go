package testutil

import (
	"github.com/preston-bernstein/fightpicks/internal/backend"
	"github.com/preston-bernstein/fightpicks/internal/backend/memory"
)

// Fixture event and fight identifiers seeded by NewFixtureStore.
var (
	FixtureEventID = memory.FixtureID("event", 1)
	FixtureFightID = memory.FixtureID("fight", 1)
)

// NewFixtureStore returns a memory backend seeded with the demo card.
func NewFixtureStore() *memory.Store {
	return memory.New(memory.Config{Fixture: true})
}

// SignIn issues a session on store and returns the bearer token and user.
func SignIn(store *memory.Store, email string) (string, backend.User) {
	return store.IssueSession(backend.User{Email: email})
}
