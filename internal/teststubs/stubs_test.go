package teststubs

import (
	"context"
	"errors"
	"testing"

	"github.com/preston-bernstein/fightpicks/internal/domain/events"
	"github.com/preston-bernstein/fightpicks/internal/domain/picks"
)

func TestStubSourceTracksCalls(t *testing.T) {
	err := errors.New("boom")
	s := &StubSource{EventList: []events.Event{{ID: "e1"}}, EventsErr: err, Notify: make(chan struct{})}
	if _, got := s.ListEvents(context.Background()); !errors.Is(got, err) {
		t.Fatalf("expected error passthrough, got %v", got)
	}
	if _, got := s.ListEvents(context.Background()); !errors.Is(got, err) {
		t.Fatalf("expected error passthrough on second call, got %v", got)
	}
	if s.Calls.Load() != 2 {
		t.Fatalf("expected call count 2, got %d", s.Calls.Load())
	}
	select {
	case <-s.Notify:
	default:
		t.Fatalf("expected notify channel closed")
	}
}

func TestStubSourceMethods(t *testing.T) {
	s := &StubSource{MethodList: picks.MethodSet{"KO", "DEC"}}
	set, err := s.Methods(context.Background())
	if err != nil || len(set) != 2 {
		t.Fatalf("unexpected methods %v err=%v", set, err)
	}
}

func TestStubCatalogWriterRecords(t *testing.T) {
	w := &StubCatalogWriter{}
	w.SetEvents([]events.Event{{ID: "e1"}})
	w.SetMethods(picks.MethodSet{"KO"})

	evs, methods, writes := w.Written()
	if len(evs) != 1 || evs[0].ID != "e1" {
		t.Fatalf("unexpected events %v", evs)
	}
	if len(methods) != 1 || methods[0] != "KO" {
		t.Fatalf("unexpected methods %v", methods)
	}
	if writes != 1 {
		t.Fatalf("expected 1 write, got %d", writes)
	}
}
