package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/preston-bernstein/fightpicks/internal/apperr"
	"github.com/preston-bernstein/fightpicks/internal/domain"
	"github.com/preston-bernstein/fightpicks/internal/logging"
	"github.com/preston-bernstein/fightpicks/internal/pages"
)

type createLeagueRequest struct {
	Name string `json:"name"`
}

type joinLeagueRequest struct {
	Code string `json:"code"`
}

// ListLeagues returns the leagues the user belongs to.
func (h *Handler) ListLeagues(w http.ResponseWriter, r *http.Request) {
	u, ctx := currentUser(r)
	ls, err := h.leagues.ListForUser(ctx, u.ID)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leagues": ls}, h.logger)
}

// CreateLeague creates a league owned by the user.
func (h *Handler) CreateLeague(w http.ResponseWriter, r *http.Request) {
	var req createLeagueRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}
	u, ctx := currentUser(r)
	l, err := h.leagues.Create(ctx, u.ID, req.Name)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}
	logging.Info(loggerFromContext(r, h.logger), "league created", logging.FieldLeagueID, l.ID, logging.FieldUserID, u.ID)
	writeJSON(w, http.StatusCreated, l, h.logger)
}

// JoinLeague adds the user to the league with the given invite code.
func (h *Handler) JoinLeague(w http.ResponseWriter, r *http.Request) {
	var req joinLeagueRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}
	u, ctx := currentUser(r)
	l, err := h.leagues.Join(ctx, u.ID, req.Code)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}
	logging.Info(loggerFromContext(r, h.logger), "league joined", logging.FieldLeagueID, l.ID, logging.FieldUserID, u.ID)
	writeJSON(w, http.StatusOK, l, h.logger)
}

// LeaguePicks returns the user's saved picks in a league, optionally
// limited to the fights named by repeated or comma-separated fight_id.
func (h *Handler) LeaguePicks(w http.ResponseWriter, r *http.Request) {
	leagueID := chi.URLParam(r, "leagueID")
	if !domain.ValidID(leagueID) {
		writeAppError(w, r, apperr.Invalid(pages.MsgSelectLeague), h.logger)
		return
	}
	var fightIDs []string
	for _, raw := range r.URL.Query()["fight_id"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				fightIDs = append(fightIDs, id)
			}
		}
	}
	u, ctx := currentUser(r)
	rows, err := h.picks.ListForLeague(ctx, u.ID, leagueID, fightIDs)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"picks": rows}, h.logger)
}
