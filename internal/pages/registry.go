package pages

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/preston-bernstein/fightpicks/internal/apperr"
	"github.com/preston-bernstein/fightpicks/internal/auth"
	"github.com/preston-bernstein/fightpicks/internal/clock"
	"github.com/preston-bernstein/fightpicks/internal/logging"
	"github.com/preston-bernstein/fightpicks/internal/metrics"
)

const (
	DefaultIdleTTL   = 30 * time.Minute
	minSweepInterval = time.Second
)

// RegistryConfig controls page lifetime.
type RegistryConfig struct {
	IdleTTL time.Duration
	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Recorder
	// Hub receives every page view when set.
	Hub *Hub
}

// Registry keeps the open pages by id and evicts idle ones.
type Registry struct {
	deps Deps
	cfg  RegistryConfig

	mu    sync.Mutex
	pages map[string]*Page

	startMu     sync.Mutex
	started     bool
	done        chan struct{}
	stopOnce    sync.Once
	unsubscribe func()
}

func NewRegistry(deps Deps, cfg RegistryConfig) *Registry {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if deps.Config.Clock == nil {
		deps.Config.Clock = cfg.Clock
	}
	return &Registry{
		deps:  deps,
		cfg:   cfg,
		pages: make(map[string]*Page),
		done:  make(chan struct{}),
	}
}

// Open loads a new page for user and registers it.
func (r *Registry) Open(ctx context.Context, user auth.User, eventID string) (*Page, error) {
	p, err := Open(ctx, r.deps, user, eventID)
	if err != nil {
		return nil, err
	}
	if r.cfg.Hub != nil {
		id := p.ID()
		hub := r.cfg.Hub
		p.Subscribe(func(v View) {
			hub.BroadcastToRoom(id, Message{Type: MessageView, PageID: id, Payload: v})
		})
	}

	r.mu.Lock()
	r.pages[p.ID()] = p
	n := len(r.pages)
	r.mu.Unlock()

	r.cfg.Metrics.RecordSessions(1)
	logging.Info(r.cfg.Logger, "page opened",
		logging.FieldPageID, p.ID(),
		logging.FieldEventID, eventID,
		logging.FieldUserID, user.ID,
		logging.FieldCount, n,
	)
	return p, nil
}

// Get returns the page if it exists and belongs to userID.
func (r *Registry) Get(id, userID string) (*Page, error) {
	r.mu.Lock()
	p, ok := r.pages[id]
	r.mu.Unlock()
	if !ok || p.Owner() != userID {
		return nil, apperr.NotFound(MsgPageNotFound, nil)
	}
	return p, nil
}

// Close removes and closes a page owned by userID.
func (r *Registry) Close(id, userID string) error {
	if _, err := r.Get(id, userID); err != nil {
		return err
	}
	r.remove(id, "closed")
	return nil
}

// Len returns the number of open pages.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pages)
}

// Sweep closes pages idle for longer than the TTL and returns how many.
func (r *Registry) Sweep() int {
	cutoff := r.cfg.Clock.Now().Add(-r.cfg.IdleTTL)

	r.mu.Lock()
	var idle []string
	for id, p := range r.pages {
		if p.IdleSince().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	r.mu.Unlock()

	for _, id := range idle {
		r.remove(id, "idle")
	}
	return len(idle)
}

// Watch clears the acting user of every page owned by a user who signs out.
func (r *Registry) Watch(n *auth.Notifier) {
	if n == nil {
		return
	}
	r.unsubscribe = n.Subscribe(func(c auth.Change) {
		if c.Kind != auth.SignedOut {
			return
		}
		r.mu.Lock()
		var owned []*Page
		for _, p := range r.pages {
			if p.Owner() == c.UserID {
				owned = append(owned, p)
			}
		}
		r.mu.Unlock()
		for _, p := range owned {
			p.SignOut()
		}
	})
}

// Start sweeps idle pages until ctx is cancelled or Stop is called.
func (r *Registry) Start(ctx context.Context) {
	r.startMu.Lock()
	if r.started {
		r.startMu.Unlock()
		return
	}
	r.started = true
	r.startMu.Unlock()

	interval := r.cfg.IdleTTL / 2
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.done:
				return
			case <-ticker.C:
				if n := r.Sweep(); n > 0 {
					logging.Info(r.cfg.Logger, "idle pages evicted", logging.FieldCount, n)
				}
			}
		}
	}()
}

// Stop halts the sweeper, closes every page and waits for in-flight saves
// until ctx expires.
func (r *Registry) Stop(ctx context.Context) error {
	r.stopOnce.Do(func() {
		close(r.done)
		if r.unsubscribe != nil {
			r.unsubscribe()
		}
	})

	r.mu.Lock()
	ids := make([]string, 0, len(r.pages))
	all := make([]*Page, 0, len(r.pages))
	for id, p := range r.pages {
		ids = append(ids, id)
		all = append(all, p)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.remove(id, "shutdown")
	}

	drained := make(chan struct{})
	go func() {
		for _, p := range all {
			p.Wait()
		}
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) remove(id, reason string) {
	r.mu.Lock()
	p, ok := r.pages[id]
	delete(r.pages, id)
	r.mu.Unlock()
	if !ok {
		return
	}

	p.Close()
	if r.cfg.Hub != nil {
		r.cfg.Hub.CloseRoom(id)
	}
	r.cfg.Metrics.RecordSessions(-1)
	logging.Info(r.cfg.Logger, "page closed", logging.FieldPageID, id, "reason", reason)
}
