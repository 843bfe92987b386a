// Package pages keeps one live picks page per open event view. A page owns
// the autosave controller for its user and pushes a fresh View to its
// subscribers whenever the controller reports progress.
package pages

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apppicks "github.com/preston-bernstein/fightpicks/internal/app/picks"
	"github.com/preston-bernstein/fightpicks/internal/apperr"
	"github.com/preston-bernstein/fightpicks/internal/auth"
	"github.com/preston-bernstein/fightpicks/internal/autosave"
	"github.com/preston-bernstein/fightpicks/internal/backend"
	"github.com/preston-bernstein/fightpicks/internal/clock"
	"github.com/preston-bernstein/fightpicks/internal/domain"
	"github.com/preston-bernstein/fightpicks/internal/domain/events"
	"github.com/preston-bernstein/fightpicks/internal/domain/leagues"
	"github.com/preston-bernstein/fightpicks/internal/domain/picks"
	"github.com/preston-bernstein/fightpicks/internal/logging"
	"github.com/preston-bernstein/fightpicks/internal/metrics"
)

const (
	MsgInvalidEvent  = "This event URL is not valid. Open an event from the homepage list."
	MsgSignIn        = autosave.MsgSignIn
	MsgSelectLeague  = autosave.MsgSelectLeague
	MsgFightNotFound = "Fight not found."
	MsgPageNotFound  = "This page has expired. Open the event again."

	DefaultSavedFeedback = 1500 * time.Millisecond
)

// FightSource loads the card of an event.
type FightSource interface {
	FightsForEvent(ctx context.Context, eventID string) ([]events.Fight, error)
}

// LeagueSource lists the leagues a user belongs to.
type LeagueSource interface {
	ListForUser(ctx context.Context, userID string) ([]leagues.League, error)
}

// PickStore loads and saves picks and knows the valid methods.
type PickStore interface {
	SavePick(ctx context.Context, p picks.Pick) (picks.Pick, error)
	ListForEvent(ctx context.Context, userID, eventID string) ([]picks.Pick, error)
	Methods(ctx context.Context) (picks.MethodSet, error)
}

// Config tunes every page opened with it.
type Config struct {
	Debounce      time.Duration
	SaveTimeout   time.Duration
	SavedFeedback time.Duration
	Decision      picks.Method
	Clock         clock.Clock
	Logger        *slog.Logger
	Metrics       *metrics.Recorder
}

func (c Config) withDefaults() Config {
	if c.SavedFeedback <= 0 {
		c.SavedFeedback = DefaultSavedFeedback
	}
	if c.Decision == "" {
		c.Decision = autosave.DefaultDecision
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	return c
}

// Deps are the services a page reads from and saves through.
type Deps struct {
	Fights  FightSource
	Leagues LeagueSource
	Picks   PickStore
	Config  Config
}

// Page is one user's live picks page for one event.
type Page struct {
	id      string
	ownerID string
	eventID string
	cfg     Config
	deps    Deps
	ctrl    *autosave.Controller

	fights     []events.Fight
	fightsByID map[string]events.Fight
	methods    picks.MethodSet

	// opMu serialises operations that drive the controller; the controller
	// reports back through onEvent, which only takes mu.
	opMu sync.Mutex

	mu       sync.Mutex
	user     auth.User
	leagues  []leagues.League
	leagueID string
	cache    map[string]map[string]picks.Pick
	errMsg   string
	lastSeen time.Time
	subs     map[int]func(View)
	nextSub  int
	closed   bool
}

// Open validates the event id, loads everything the page needs in parallel
// and selects the user's first league.
func Open(ctx context.Context, deps Deps, user auth.User, eventID string) (*Page, error) {
	if !domain.ValidID(eventID) {
		return nil, apperr.Invalid(MsgInvalidEvent)
	}
	if user.ID == "" {
		return nil, apperr.Unauthenticated(MsgSignIn)
	}
	cfg := deps.Config.withDefaults()
	ctx = backend.WithAccessToken(ctx, user.AccessToken)

	var (
		methods picks.MethodSet
		mine    []leagues.League
		fights  []events.Fight
		rows    []picks.Pick
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		methods, err = deps.Picks.Methods(gctx)
		return err
	})
	g.Go(func() (err error) {
		mine, err = deps.Leagues.ListForUser(gctx, user.ID)
		return err
	})
	g.Go(func() (err error) {
		fights, err = deps.Fights.FightsForEvent(gctx, eventID)
		return err
	})
	g.Go(func() (err error) {
		rows, err = deps.Picks.ListForEvent(gctx, user.ID, eventID)
		return err
	})
	if err := g.Wait(); err != nil {
		logging.Warn(cfg.Logger, "page bootstrap failed", logging.FieldEventID, eventID, logging.FieldUserID, user.ID, "error", err)
		return nil, err
	}

	sort.SliceStable(fights, func(i, j int) bool { return fights[i].BoutOrder < fights[j].BoutOrder })

	p := &Page{
		id:         uuid.NewString(),
		ownerID:    user.ID,
		eventID:    eventID,
		cfg:        cfg,
		deps:       deps,
		fights:     fights,
		fightsByID: make(map[string]events.Fight, len(fights)),
		methods:    methods,
		user:       user,
		leagues:    mine,
		cache:      apppicks.GroupByLeague(rows),
		lastSeen:   cfg.Clock.Now(),
		subs:       make(map[int]func(View)),
	}
	for _, f := range fights {
		p.fightsByID[f.ID] = f
	}
	if len(mine) > 0 {
		p.leagueID = mine[0].ID
	}

	p.ctrl = autosave.New(autosave.Config{
		Debounce:    cfg.Debounce,
		SaveTimeout: cfg.SaveTimeout,
		Decision:    cfg.Decision,
		Clock:       cfg.Clock,
		Logger:      cfg.Logger,
		Metrics:     cfg.Metrics,
	}, autosave.SaverFunc(p.save), p.onEvent)

	ids := make([]string, 0, len(mine))
	for _, l := range mine {
		ids = append(ids, l.ID)
	}
	p.ctrl.SetFights(fights)
	p.ctrl.SetLeagues(ids)
	p.ctrl.SetTarget(autosave.Target{UserID: user.ID, LeagueID: p.leagueID, EventID: eventID}, methods, copyPicks(p.cache[p.leagueID]))
	return p, nil
}

func (p *Page) ID() string      { return p.id }
func (p *Page) Owner() string   { return p.ownerID }
func (p *Page) EventID() string { return p.eventID }

// Edit applies a local change to one fight's pick and schedules its save.
func (p *Page) Edit(fightID string, patch picks.Patch) (View, error) {
	p.opMu.Lock()
	defer p.opMu.Unlock()
	if err := p.touch(); err != nil {
		return View{}, err
	}

	fight, ok := p.fightsByID[fightID]
	if !ok {
		return View{}, apperr.NotFound(MsgFightNotFound, nil)
	}
	if !patch.Empty() {
		if _, err := p.ctrl.Edit(fight, patch); err != nil {
			if errors.Is(err, autosave.ErrClosed) {
				return View{}, apperr.NotFound(MsgPageNotFound, err)
			}
			return View{}, err
		}
	}
	return p.View(), nil
}

// SelectLeague switches the league picks are saved into. Pending saves for
// the previous league are cancelled; its local records are kept in the page
// cache so switching back shows them again.
func (p *Page) SelectLeague(leagueID string) (View, error) {
	p.opMu.Lock()
	defer p.opMu.Unlock()
	if err := p.touch(); err != nil {
		return View{}, err
	}

	p.mu.Lock()
	if !p.hasLeagueLocked(leagueID) {
		p.mu.Unlock()
		return View{}, apperr.Invalid(MsgSelectLeague)
	}
	previous := p.leagueID
	if previous == leagueID {
		p.mu.Unlock()
		return p.View(), nil
	}
	p.leagueID = leagueID
	p.errMsg = ""
	userID := p.user.ID
	p.mu.Unlock()

	records := p.ctrl.Records()

	p.mu.Lock()
	if previous != "" {
		p.cache[previous] = records
	}
	next := copyPicks(p.cache[leagueID])
	p.mu.Unlock()

	p.ctrl.SetTarget(autosave.Target{UserID: userID, LeagueID: leagueID, EventID: p.eventID}, p.methods, next)
	logging.Debug(p.cfg.Logger, "page league selected", logging.FieldPageID, p.id, logging.FieldLeagueID, leagueID)

	p.broadcast()
	return p.View(), nil
}

// SignOut clears the acting user. Later saves fail validation until a new
// page is opened.
func (p *Page) SignOut() {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.user = auth.User{}
	p.mu.Unlock()

	p.ctrl.SetUser("")
	p.broadcast()
}

// Refresh adopts a newer access token presented by the page owner. Saves
// already in flight keep the token they were sent with. A page whose user
// signed out stays signed out.
func (p *Page) Refresh(user auth.User) {
	if user.AccessToken == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.user.ID == "" || p.user.ID != user.ID {
		return
	}
	p.user.AccessToken = user.AccessToken
}

// Subscribe registers fn to receive the view after every change.
func (p *Page) Subscribe(fn func(View)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// IdleSince reports the last time the page was used.
func (p *Page) IdleSince() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSeen
}

// Close cancels pending saves and drops subscribers. In-flight saves finish
// in the background; use Wait to block on them.
func (p *Page) Close() {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.subs = make(map[int]func(View))
	p.mu.Unlock()

	p.ctrl.Close()
}

// Wait blocks until in-flight saves have finished.
func (p *Page) Wait() {
	p.ctrl.Wait()
}

func (p *Page) save(ctx context.Context, pick picks.Pick) (picks.Pick, error) {
	p.mu.Lock()
	token := p.user.AccessToken
	p.mu.Unlock()
	if token == "" {
		return picks.Pick{}, apperr.Unauthenticated(MsgSignIn)
	}
	return p.deps.Picks.SavePick(backend.WithAccessToken(ctx, token), pick)
}

func (p *Page) onEvent(ev autosave.Event) {
	p.mu.Lock()
	switch ev.Kind {
	case autosave.EventSaving:
		p.errMsg = ""
	case autosave.EventFailed, autosave.EventRejected:
		p.errMsg = apperr.Message(ev.Err)
	case autosave.EventSaved:
		// The current league is tracked by the controller; other leagues
		// only live in the cache.
		if l := ev.Pick.LeagueID; l != "" && l != p.leagueID {
			if p.cache[l] == nil {
				p.cache[l] = make(map[string]picks.Pick)
			}
			p.cache[l][ev.FightID] = ev.Pick
		}
	}
	p.mu.Unlock()

	p.broadcast()
}

func (p *Page) broadcast() {
	p.mu.Lock()
	if len(p.subs) == 0 {
		p.mu.Unlock()
		return
	}
	v := p.viewLocked()
	fns := make([]func(View), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

func (p *Page) touch() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return apperr.NotFound(MsgPageNotFound, nil)
	}
	p.lastSeen = p.cfg.Clock.Now()
	return nil
}

// caller holds p.mu
func (p *Page) hasLeagueLocked(id string) bool {
	if !domain.ValidID(id) {
		return false
	}
	for _, l := range p.leagues {
		if l.ID == id {
			return true
		}
	}
	return false
}

func copyPicks(in map[string]picks.Pick) map[string]picks.Pick {
	out := make(map[string]picks.Pick, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
