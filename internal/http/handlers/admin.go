package handlers

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"os"

	"github.com/preston-bernstein/fightpicks/internal/http/requestutil"
	"github.com/preston-bernstein/fightpicks/internal/logging"
	"github.com/preston-bernstein/fightpicks/internal/poller"
)

// CatalogRefresher reloads the event list and method enum on demand.
type CatalogRefresher interface {
	Refresh(ctx context.Context) error
	Status() poller.Status
}

// PageSweeper evicts idle pages.
type PageSweeper interface {
	Sweep() int
	Len() int
}

// AdminHandler exposes admin-only endpoints (catalog refresh, page sweep).
type AdminHandler struct {
	refresher CatalogRefresher
	sweeper   PageSweeper
	token     string
	logger    *slog.Logger
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(refresher CatalogRefresher, sweeper PageSweeper, token string, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		refresher: refresher,
		sweeper:   sweeper,
		token:     token,
		logger:    logger,
	}
}

// RequireToken guards admin routes with ADMIN_TOKEN; returns 401 if missing/invalid.
func (h *AdminHandler) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.authorize(r) {
			logging.Warn(h.logger, "admin unauthorized",
				slog.String(logging.FieldPath, r.URL.Path),
				slog.String("client_ip", requestutil.ClientIP(r)),
			)
			writeError(w, r, http.StatusUnauthorized, "unauthorized", h.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RefreshCatalog reloads events and methods immediately.
func (h *AdminHandler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	logger := loggerFromContext(r, h.logger)
	if h.refresher == nil {
		writeError(w, r, http.StatusServiceUnavailable, "catalog refresher not configured", logger)
		return
	}
	if err := h.refresher.Refresh(r.Context()); err != nil {
		logging.Warn(logger, "admin catalog refresh failed", slog.Any("err", err))
		writeError(w, r, http.StatusBadGateway, "failed to refresh catalog", logger)
		return
	}
	status := h.refresher.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"events": status.Events,
		"status": "ok",
	}, logger)
	logging.Info(logger, "admin catalog refreshed", slog.Int(logging.FieldCount, status.Events))
}

// SweepPages evicts idle pages now instead of waiting for the next sweep.
func (h *AdminHandler) SweepPages(w http.ResponseWriter, r *http.Request) {
	logger := loggerFromContext(r, h.logger)
	if h.sweeper == nil {
		writeError(w, r, http.StatusServiceUnavailable, "page registry not configured", logger)
		return
	}
	evicted := h.sweeper.Sweep()
	writeJSON(w, http.StatusOK, map[string]any{
		"evicted": evicted,
		"open":    h.sweeper.Len(),
		"status":  "ok",
	}, logger)
}

// AdminTokenFromEnv reads ADMIN_TOKEN (optional).
func AdminTokenFromEnv() string {
	return os.Getenv("ADMIN_TOKEN")
}

func (h *AdminHandler) authorize(r *http.Request) bool {
	if h.token == "" {
		return false
	}
	got := []byte(r.Header.Get("Authorization"))
	want := []byte("Bearer " + h.token)
	return subtle.ConstantTimeCompare(got, want) == 1
}
