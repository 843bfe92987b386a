package store

import (
	"testing"
	"time"

	"github.com/preston-bernstein/fightpicks/internal/domain/events"
	"github.com/preston-bernstein/fightpicks/internal/domain/picks"
)

func TestCatalogSetAndGet(t *testing.T) {
	c := NewCatalog()
	if _, ok := c.Events(); ok {
		t.Fatalf("expected empty catalog to report not loaded")
	}

	c.SetEvents([]events.Event{
		{ID: "1", Name: "Fight Night"},
		{ID: "2", Name: "Championship"},
	})

	got, ok := c.Events()
	if !ok || len(got) != 2 {
		t.Fatalf("expected 2 loaded events, got %d (loaded=%v)", len(got), ok)
	}
	ev, ok := c.EventByID("2")
	if !ok || ev.Name != "Championship" {
		t.Fatalf("unexpected event lookup: %+v ok=%v", ev, ok)
	}
	if _, ok := c.EventByID("missing"); ok {
		t.Fatalf("expected missing id to return false")
	}
}

func TestCatalogEmptyListCountsAsLoaded(t *testing.T) {
	c := NewCatalog()
	c.SetEvents(nil)
	got, ok := c.Events()
	if !ok || len(got) != 0 {
		t.Fatalf("expected loaded empty list, got %v ok=%v", got, ok)
	}
}

func TestCatalogReturnsCopies(t *testing.T) {
	c := NewCatalog()
	c.SetEvents([]events.Event{{ID: "1", Name: "Original"}})
	c.SetMethods(picks.MethodSet{"KO", "SUB", "DEC"})

	evs, _ := c.Events()
	evs[0].Name = "Mutated"
	methods, _ := c.Methods()
	methods[0] = "TKO"

	again, _ := c.Events()
	if again[0].Name != "Original" {
		t.Fatalf("expected stored events to be unaffected, got %s", again[0].Name)
	}
	set, ok := c.Methods()
	if !ok || set[0] != "KO" {
		t.Fatalf("expected stored methods to be unaffected, got %v", set)
	}
}

func TestCatalogTracksUpdatedAt(t *testing.T) {
	c := NewCatalog()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return at }

	if !c.UpdatedAt().IsZero() {
		t.Fatalf("expected zero time before any refresh")
	}
	if _, ok := c.Methods(); ok {
		t.Fatalf("expected methods not loaded")
	}
	c.SetMethods(picks.MethodSet{"KO"})
	if !c.UpdatedAt().Equal(at) {
		t.Fatalf("expected updatedAt %v, got %v", at, c.UpdatedAt())
	}
}
