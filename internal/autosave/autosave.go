// Package autosave debounces per-fight pick edits into backend upserts and
// makes sure a slow response can never overwrite a newer one.
//
// Each fight has its own debounce timer and its own save token. A save stamps
// a fresh token before it is sent; when the response arrives it is applied
// only if the token is still the latest one for that fight.
package autosave

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/preston-bernstein/fightpicks/internal/apperr"
	"github.com/preston-bernstein/fightpicks/internal/clock"
	"github.com/preston-bernstein/fightpicks/internal/domain"
	"github.com/preston-bernstein/fightpicks/internal/domain/events"
	"github.com/preston-bernstein/fightpicks/internal/domain/picks"
	"github.com/preston-bernstein/fightpicks/internal/logging"
	"github.com/preston-bernstein/fightpicks/internal/metrics"
)

const (
	DefaultDebounce    = 400 * time.Millisecond
	DefaultSaveTimeout = 15 * time.Second
	DefaultDecision    = picks.Method("DEC")
)

// User-facing validation messages.
const (
	MsgSignIn        = "Please sign in."
	MsgSelectLeague  = "Please select a league."
	MsgInvalidMethod = "Invalid method selected."
	MsgInvalidWinner = "Invalid winner selected."
	MsgInvalidRound  = "Invalid round selected."
)

// ErrClosed is returned by Edit after Close.
var ErrClosed = errors.New("autosave: controller closed")

// Saver persists a pick and returns the stored row.
type Saver interface {
	SavePick(ctx context.Context, p picks.Pick) (picks.Pick, error)
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, p picks.Pick) (picks.Pick, error)

func (f SaverFunc) SavePick(ctx context.Context, p picks.Pick) (picks.Pick, error) {
	return f(ctx, p)
}

// Config tunes a Controller. Zero values take the defaults.
type Config struct {
	Debounce    time.Duration
	SaveTimeout time.Duration
	Decision    picks.Method
	Clock       clock.Clock
	Logger      *slog.Logger
	Metrics     *metrics.Recorder
}

// Target is who is saving, into which league, for which event.
type Target struct {
	UserID   string
	LeagueID string
	EventID  string
}

// State is where a fight's pick sits in the save lifecycle.
type State string

const (
	StateIdle    State = "idle"
	StatePending State = "pending"
	StateSaving  State = "saving"
	StateApplied State = "applied"
	StateFailed  State = "failed"
)

// EventKind names a controller notification.
type EventKind string

const (
	EventScheduled EventKind = "scheduled"
	EventSaving    EventKind = "saving"
	EventSaved     EventKind = "saved"
	EventStale     EventKind = "stale"
	EventFailed    EventKind = "failed"
	EventCancelled EventKind = "cancelled"
	EventRejected  EventKind = "rejected"
)

// Event is delivered to the Listener after the controller state changed.
type Event struct {
	Kind    EventKind
	FightID string
	Pick    picks.Pick
	Err     error
	At      time.Time
	Token   uint64
}

// Listener receives events outside the controller lock.
type Listener func(Event)

// Status is a read-only view of one fight.
type Status struct {
	Pick    picks.Pick
	HasPick bool
	State   State
	SavedAt time.Time
	Err     error
}

type entry struct {
	fight    events.Fight
	record   picks.Pick
	hasPick  bool
	state    State
	savedAt  time.Time
	err      error
	timer    clock.Timer
	timerSeq uint64
	token    uint64
	edits    uint64
	firedAt  uint64
}

// Controller owns the local pick records of one page.
type Controller struct {
	cfg      Config
	saver    Saver
	listener Listener

	mu        sync.Mutex
	target    Target
	leagues   map[string]bool
	methods   picks.MethodSet
	entries   map[string]*entry
	nextToken uint64
	closed    bool

	wg sync.WaitGroup
}

// New builds a Controller. listener may be nil.
func New(cfg Config, saver Saver, listener Listener) *Controller {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = DefaultSaveTimeout
	}
	if cfg.Decision == "" {
		cfg.Decision = DefaultDecision
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if listener == nil {
		listener = func(Event) {}
	}
	return &Controller{
		cfg:      cfg,
		saver:    saver,
		listener: listener,
		leagues:  make(map[string]bool),
		entries:  make(map[string]*entry),
	}
}

// SetFights registers the fights of the event so records can be seeded
// before the first edit.
func (c *Controller) SetFights(fights []events.Fight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range fights {
		c.entryFor(f)
	}
}

// SetLeagues replaces the set of leagues the user belongs to.
func (c *Controller) SetLeagues(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leagues = make(map[string]bool, len(ids))
	for _, id := range ids {
		c.leagues[id] = true
	}
}

// SetUser changes the acting user. An empty ID makes later saves fail
// validation.
func (c *Controller) SetUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target.UserID = userID
}

// SetTarget switches league (or event). Pending saves are cancelled without
// being sent; in-flight saves complete but will not replace the new records.
// records holds the picks already known for the new target, keyed by fight.
func (c *Controller) SetTarget(target Target, methods picks.MethodSet, records map[string]picks.Pick) {
	c.mu.Lock()
	var out []Event
	now := c.cfg.Clock.Now()

	c.target = target
	c.methods = append(picks.MethodSet(nil), methods...)
	for id, e := range c.entries {
		if c.stopTimer(e) {
			out = append(out, Event{Kind: EventCancelled, FightID: id, Pick: e.record, At: now})
		}
		e.record = picks.Pick{}
		e.hasPick = false
		e.state = StateIdle
		e.savedAt = time.Time{}
		e.err = nil
	}
	for fightID, p := range records {
		e, ok := c.entries[fightID]
		if !ok {
			e = &entry{fight: events.Fight{ID: fightID, EventID: p.EventID}, state: StateIdle}
			c.entries[fightID] = e
		}
		e.record = p.Normalize(c.cfg.Decision)
		e.hasPick = true
	}
	c.mu.Unlock()

	c.emit(out)
}

// Edit merges patch into the fight's record and restarts its debounce timer.
// Bad winners and out-of-range rounds are rejected without touching the record.
// The round is checked on the merged pick, so a round sent alongside a
// decision is dropped rather than rejected.
func (c *Controller) Edit(fight events.Fight, patch picks.Patch) (picks.Pick, error) {
	if patch.Winner != nil && !patch.Winner.Valid() {
		return picks.Pick{}, apperr.Invalid(MsgInvalidWinner)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return picks.Pick{}, ErrClosed
	}

	base, known := picks.Pick{}, false
	if cur, ok := c.entries[fight.ID]; ok && cur.hasPick {
		base, known = cur.record, true
	}
	if !known {
		base = picks.Pick{
			FightID: fight.ID,
			EventID: fight.EventID,
			Winner:  picks.WinnerRed,
			Method:  c.methods.Default(c.cfg.Decision),
		}
	}
	next := patch.Apply(base).Normalize(c.cfg.Decision)
	if patch.Round != nil && next.Round != nil && !fight.AllowsRound(*next.Round) {
		c.mu.Unlock()
		return picks.Pick{}, apperr.Invalid(MsgInvalidRound)
	}

	e := c.entryFor(fight)
	e.record = next
	e.hasPick = true
	e.edits++
	e.err = nil
	e.state = StatePending

	c.stopTimer(e)
	e.timerSeq++
	seq := e.timerSeq
	fightID := fight.ID
	e.timer = c.cfg.Clock.AfterFunc(c.cfg.Debounce, func() { c.fire(fightID, seq) })

	ev := Event{Kind: EventScheduled, FightID: fightID, Pick: next, At: c.cfg.Clock.Now()}
	c.mu.Unlock()

	c.emit([]Event{ev})
	return next, nil
}

// fire runs when a fight's debounce timer elapses.
func (c *Controller) fire(fightID string, seq uint64) {
	c.mu.Lock()
	e, ok := c.entries[fightID]
	if c.closed || !ok || e.timerSeq != seq || e.timer == nil {
		c.mu.Unlock()
		return
	}
	e.timer = nil
	now := c.cfg.Clock.Now()

	if err := c.validate(e); err != nil {
		e.state = StateFailed
		e.err = err
		ev := Event{Kind: EventRejected, FightID: fightID, Pick: e.record, Err: err, At: now}
		c.mu.Unlock()

		c.cfg.Metrics.RecordSave(metrics.SaveRejected, 0)
		logging.Debug(c.cfg.Logger, "autosave rejected", logging.FieldFightID, fightID, "error", err)
		c.emit([]Event{ev})
		return
	}

	c.nextToken++
	token := c.nextToken
	e.token = token
	e.firedAt = e.edits
	e.state = StateSaving

	payload := e.record
	payload.ID = ""
	payload.UserID = c.target.UserID
	payload.LeagueID = c.target.LeagueID
	if payload.EventID == "" {
		payload.EventID = c.target.EventID
	}
	payload = payload.Normalize(c.cfg.Decision)

	ev := Event{Kind: EventSaving, FightID: fightID, Pick: payload, At: now, Token: token}
	c.wg.Add(1)
	c.mu.Unlock()

	c.emit([]Event{ev})
	go c.save(fightID, token, payload, now)
}

// caller holds c.mu
func (c *Controller) validate(e *entry) error {
	if c.target.UserID == "" {
		return apperr.Unauthenticated(MsgSignIn)
	}
	if !domain.ValidID(c.target.LeagueID) || !c.leagues[c.target.LeagueID] {
		return apperr.Invalid(MsgSelectLeague)
	}
	if !c.methods.Contains(e.record.Method) {
		return apperr.Invalid(MsgInvalidMethod)
	}
	return nil
}

func (c *Controller) save(fightID string, token uint64, payload picks.Pick, started time.Time) {
	defer c.wg.Done()

	// Detached from page teardown; bounded by SaveTimeout.
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SaveTimeout)
	defer cancel()
	saved, err := c.saver.SavePick(ctx, payload)

	c.mu.Lock()
	now := c.cfg.Clock.Now()
	elapsed := now.Sub(started)
	e, ok := c.entries[fightID]
	if c.closed || !ok || e.token != token {
		// The fight's state belongs to its latest token; a newer save may
		// still be in flight.
		ev := Event{Kind: EventStale, FightID: fightID, Pick: saved, Err: err, At: now, Token: token}
		c.mu.Unlock()

		c.cfg.Metrics.RecordSave(metrics.SaveStale, elapsed)
		logging.Debug(c.cfg.Logger, "autosave response dropped", logging.FieldFightID, fightID, logging.FieldToken, token)
		c.emit([]Event{ev})
		return
	}

	if err != nil {
		// A failure for a league that is no longer selected says nothing
		// about the records on screen.
		if payload.LeagueID == c.target.LeagueID {
			if e.state == StateSaving {
				e.state = StateFailed
			}
			e.err = err
		}
		ev := Event{Kind: EventFailed, FightID: fightID, Pick: payload, Err: err, At: now, Token: token}
		c.mu.Unlock()

		c.cfg.Metrics.RecordSave(metrics.SaveFailed, elapsed)
		logging.Warn(c.cfg.Logger, "autosave failed", logging.FieldFightID, fightID, logging.FieldLeagueID, payload.LeagueID, "error", err)
		c.emit([]Event{ev})
		return
	}

	saved = saved.Normalize(c.cfg.Decision)
	switch {
	case saved.LeagueID != "" && saved.LeagueID != c.target.LeagueID:
		// The league was switched while the save was in flight.
	case e.edits != e.firedAt:
		// Newer local values are pending; keep them and adopt the row id.
		e.record.ID = saved.ID
	default:
		e.record = saved
		e.hasPick = true
		e.state = StateApplied
		e.savedAt = now
		e.err = nil
	}
	ev := Event{Kind: EventSaved, FightID: fightID, Pick: saved, At: now, Token: token}
	c.mu.Unlock()

	c.cfg.Metrics.RecordSave(metrics.SaveApplied, elapsed)
	logging.Debug(c.cfg.Logger, "autosave applied", logging.FieldFightID, fightID, logging.FieldToken, token)
	c.emit([]Event{ev})
}

// Record returns the local pick for a fight.
func (c *Controller) Record(fightID string) (picks.Pick, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[fightID]
	if !ok || !e.hasPick {
		return picks.Pick{}, false
	}
	return e.record, true
}

// Records returns every local pick keyed by fight.
func (c *Controller) Records() map[string]picks.Pick {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]picks.Pick, len(c.entries))
	for id, e := range c.entries {
		if e.hasPick {
			out[id] = e.record
		}
	}
	return out
}

// State returns the lifecycle state of a fight's pick.
func (c *Controller) State(fightID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[fightID]; ok {
		return e.state
	}
	return StateIdle
}

// SavedAt returns when the fight's record was last replaced by a save.
func (c *Controller) SavedAt(fightID string) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[fightID]; ok {
		return e.savedAt
	}
	return time.Time{}
}

// Snapshot returns the status of every known fight.
func (c *Controller) Snapshot() map[string]Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Status, len(c.entries))
	for id, e := range c.entries {
		out[id] = Status{Pick: e.record, HasPick: e.hasPick, State: e.state, SavedAt: e.savedAt, Err: e.err}
	}
	return out
}

// Target returns the current save target.
func (c *Controller) Target() Target {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// Close cancels pending timers. Responses that arrive afterwards are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	now := c.cfg.Clock.Now()
	var out []Event
	for id, e := range c.entries {
		if c.stopTimer(e) {
			out = append(out, Event{Kind: EventCancelled, FightID: id, Pick: e.record, At: now})
		}
		e.token = 0
	}
	c.mu.Unlock()

	c.emit(out)
}

// Wait blocks until in-flight saves have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// caller holds c.mu
func (c *Controller) entryFor(f events.Fight) *entry {
	e, ok := c.entries[f.ID]
	if !ok {
		e = &entry{state: StateIdle}
		c.entries[f.ID] = e
	}
	if f.ScheduledRounds > 0 || e.fight.ID == "" {
		e.fight = f
	}
	return e
}

// stopTimer cancels a pending debounce and reports whether one was pending.
// caller holds c.mu
func (c *Controller) stopTimer(e *entry) bool {
	if e.timer == nil {
		return false
	}
	e.timer.Stop()
	e.timer = nil
	e.timerSeq++
	if e.state == StatePending {
		e.state = StateIdle
	}
	return true
}

func (c *Controller) emit(evs []Event) {
	for _, ev := range evs {
		c.listener(ev)
	}
}
