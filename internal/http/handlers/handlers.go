package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	appevents "github.com/preston-bernstein/fightpicks/internal/app/events"
	appleagues "github.com/preston-bernstein/fightpicks/internal/app/leagues"
	apppicks "github.com/preston-bernstein/fightpicks/internal/app/picks"
	"github.com/preston-bernstein/fightpicks/internal/auth"
	"github.com/preston-bernstein/fightpicks/internal/backend"
	"github.com/preston-bernstein/fightpicks/internal/domain/picks"
	"github.com/preston-bernstein/fightpicks/internal/logging"
	"github.com/preston-bernstein/fightpicks/internal/pages"
	"github.com/preston-bernstein/fightpicks/internal/poller"
)

// MethodCatalog serves the cached method enum.
type MethodCatalog interface {
	Methods() (picks.MethodSet, bool)
}

// Deps are the services the HTTP surface calls into.
type Deps struct {
	Events   *appevents.Service
	Leagues  *appleagues.Service
	Picks    *apppicks.Service
	Catalog  MethodCatalog
	Pages    *pages.Registry
	Hub      *pages.Hub
	Auth     backend.AuthService
	Notifier *auth.Notifier
	// Verifier checks tokens sent over an open websocket.
	Verifier *auth.Verifier
	Status   func() poller.Status
	// AuthRedirect is where sign-in links and provider redirects return to.
	AuthRedirect string
	// AllowedOrigins lists websocket origins; "*" allows any.
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Handler wires HTTP routes to the domain services.
type Handler struct {
	events       *appevents.Service
	leagues      *appleagues.Service
	picks        *apppicks.Service
	catalog      MethodCatalog
	pages        *pages.Registry
	hub          *pages.Hub
	auth         backend.AuthService
	notifier     *auth.Notifier
	verifier     *auth.Verifier
	statusFn     func() poller.Status
	authRedirect string
	origins      []string
	logger       *slog.Logger
	upgrader     websocket.Upgrader
}

// NewHandler constructs a Handler with defaults.
func NewHandler(d Deps) *Handler {
	h := &Handler{
		events:       d.Events,
		leagues:      d.Leagues,
		picks:        d.Picks,
		catalog:      d.Catalog,
		pages:        d.Pages,
		hub:          d.Hub,
		auth:         d.Auth,
		notifier:     d.Notifier,
		verifier:     d.Verifier,
		statusFn:     d.Status,
		authRedirect: d.AuthRedirect,
		origins:      d.AllowedOrigins,
		logger:       d.Logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// AuthError renders authentication failures from the auth middleware.
func (h *Handler) AuthError(w http.ResponseWriter, r *http.Request, err error) {
	writeAppError(w, r, err, h.logger)
}

// NotFound answers unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "not found", h.logger)
}

// MethodNotAllowed answers known routes called with the wrong verb.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", h.logger)
}

// Health reports the service health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := r.Context().Err(); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "shutting down", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

// Ready reports readiness for traffic. The service is ready once the
// catalog has loaded and is not failing repeatedly.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.statusFn == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, h.logger)
		return
	}
	status := h.statusFn()
	if status.IsReady() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, h.logger)
		return
	}
	msg := status.LastError
	if msg == "" {
		msg = "not ready"
	}
	writeError(w, r, http.StatusServiceUnavailable, msg, h.logger)
}

// ListEvents returns every event ordered by date.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	evs, err := h.events.Events(r.Context())
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}
	logging.Debug(loggerFromContext(r, h.logger), "served events", logging.FieldCount, len(evs))
	writeJSON(w, http.StatusOK, map[string]any{"events": evs}, h.logger)
}

// GetEvent returns one event and its card.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "eventID")
	ev, err := h.events.Event(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}
	fights, err := h.events.FightsForEvent(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event": ev, "fights": fights}, h.logger)
}

// ListFights returns the fights of an event in bout order.
func (h *Handler) ListFights(w http.ResponseWriter, r *http.Request) {
	fights, err := h.events.FightsForEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fights": fights}, h.logger)
}

// ListMethods returns the finish methods picks may use.
func (h *Handler) ListMethods(w http.ResponseWriter, r *http.Request) {
	if h.catalog != nil {
		if set, ok := h.catalog.Methods(); ok {
			writeJSON(w, http.StatusOK, map[string]any{"methods": set}, h.logger)
			return
		}
	}
	set, err := h.picks.Methods(r.Context())
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"methods": set}, h.logger)
}

// currentUser returns the authenticated user and a context that carries
// their access token to the backend.
func currentUser(r *http.Request) (auth.User, context.Context) {
	u, _ := auth.FromContext(r.Context())
	return u, backend.WithAccessToken(r.Context(), u.AccessToken)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range h.origins {
		if allowed == "*" || strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}
	return false
}
