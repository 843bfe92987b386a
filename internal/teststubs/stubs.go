package teststubs

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/preston-bernstein/fightpicks/internal/domain/events"
	"github.com/preston-bernstein/fightpicks/internal/domain/picks"
)

// StubSource is a test double for poller.Source.
type StubSource struct {
	EventList  []events.Event
	MethodList picks.MethodSet
	EventsErr  error
	MethodsErr error
	Calls      atomic.Int32
	Notify     chan struct{}

	notifyOnce sync.Once
}

// ListEvents returns the configured events and error while tracking calls.
func (s *StubSource) ListEvents(ctx context.Context) ([]events.Event, error) {
	_ = ctx
	if s.Notify != nil {
		s.notifyOnce.Do(func() { close(s.Notify) })
	}
	s.Calls.Add(1)
	return s.EventList, s.EventsErr
}

// Methods returns the configured method set and error.
func (s *StubSource) Methods(ctx context.Context) (picks.MethodSet, error) {
	_ = ctx
	return s.MethodList, s.MethodsErr
}

// StubCatalogWriter is a test double for poller.CatalogWriter.
type StubCatalogWriter struct {
	mu      sync.Mutex
	events  []events.Event
	methods picks.MethodSet
	writes  int
}

// SetEvents records the events for verification in tests.
func (w *StubCatalogWriter) SetEvents(evs []events.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append([]events.Event(nil), evs...)
	w.writes++
}

// SetMethods records the methods for verification in tests.
func (w *StubCatalogWriter) SetMethods(set picks.MethodSet) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.methods = append(picks.MethodSet(nil), set...)
}

// Written returns what the writer last received and how many refreshes landed.
func (w *StubCatalogWriter) Written() ([]events.Event, picks.MethodSet, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.events, w.methods, w.writes
}
