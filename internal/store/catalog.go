package store

import (
	"sync"
	"time"

	"github.com/preston-bernstein/fightpicks/internal/domain/events"
	"github.com/preston-bernstein/fightpicks/internal/domain/picks"
)

// Catalog keeps a thread-safe copy of the event list and the method enum.
// Both are refreshed in the background and served without a backend call.
type Catalog struct {
	mu            sync.RWMutex
	events        []events.Event
	eventsLoaded  bool
	methods       picks.MethodSet
	methodsLoaded bool
	updatedAt     time.Time
	now           func() time.Time
}

// NewCatalog constructs an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{now: time.Now}
}

// Events returns a copy of the cached events and whether they were loaded.
func (c *Catalog) Events() ([]events.Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.eventsLoaded {
		return nil, false
	}
	out := make([]events.Event, len(c.events))
	copy(out, c.events)
	return out, true
}

// EventByID looks up a cached event.
func (c *Catalog) EventByID(id string) (events.Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, ev := range c.events {
		if ev.ID == id {
			return ev, true
		}
	}
	return events.Event{}, false
}

// SetEvents replaces the cached events.
func (c *Catalog) SetEvents(evs []events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = make([]events.Event, len(evs))
	copy(c.events, evs)
	c.eventsLoaded = true
	c.updatedAt = c.now()
}

// Methods returns the cached method enum and whether it was loaded.
func (c *Catalog) Methods() (picks.MethodSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.methodsLoaded {
		return nil, false
	}
	return append(picks.MethodSet(nil), c.methods...), true
}

// SetMethods replaces the cached method enum.
func (c *Catalog) SetMethods(set picks.MethodSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.methods = append(picks.MethodSet(nil), set...)
	c.methodsLoaded = true
	c.updatedAt = c.now()
}

// UpdatedAt reports the last time either list was replaced.
func (c *Catalog) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}
