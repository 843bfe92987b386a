package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/preston-bernstein/fightpicks/internal/apperr"
	"github.com/preston-bernstein/fightpicks/internal/auth"
	"github.com/preston-bernstein/fightpicks/internal/domain/picks"
	"github.com/preston-bernstein/fightpicks/internal/logging"
	"github.com/preston-bernstein/fightpicks/internal/pages"
)

const (
	msgBadEdit        = "That change could not be read."
	msgUnknownMessage = "Unsupported message."
)

type openPageRequest struct {
	EventID string `json:"event_id"`
}

type selectLeagueRequest struct {
	LeagueID string `json:"league_id"`
}

// OpenPage loads the picks page for an event and returns its first view.
func (h *Handler) OpenPage(w http.ResponseWriter, r *http.Request) {
	var req openPageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}
	u, ctx := currentUser(r)
	p, err := h.pages.Open(ctx, u, req.EventID)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}
	logging.Info(loggerFromContext(r, h.logger), "page opened",
		logging.FieldPageID, p.ID(),
		logging.FieldEventID, p.EventID(),
		logging.FieldUserID, u.ID,
	)
	writeJSON(w, http.StatusCreated, p.View(), h.logger)
}

// GetPage returns the current view of a page.
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	p, ok := h.page(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p.View(), h.logger)
}

// SelectLeague switches the league a page saves into.
func (h *Handler) SelectLeague(w http.ResponseWriter, r *http.Request) {
	p, ok := h.page(w, r)
	if !ok {
		return
	}
	var req selectLeagueRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}
	v, err := p.SelectLeague(req.LeagueID)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, v, h.logger)
}

// EditPick applies a change to one fight's pick. The save happens in the
// background; the response carries the pending view.
func (h *Handler) EditPick(w http.ResponseWriter, r *http.Request) {
	p, ok := h.page(w, r)
	if !ok {
		return
	}
	var patch picks.Patch
	if err := decodeBody(w, r, &patch); err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}
	v, err := p.Edit(chi.URLParam(r, "fightID"), patch)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusAccepted, v, h.logger)
}

// ClosePage drops a page. Pending saves are cancelled.
func (h *Handler) ClosePage(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.FromContext(r.Context())
	if err := h.pages.Close(chi.URLParam(r, "pageID"), u.ID); err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PageStream upgrades to a websocket that receives every view of the page
// and accepts edit and select_league messages.
func (h *Handler) PageStream(w http.ResponseWriter, r *http.Request) {
	p, ok := h.page(w, r)
	if !ok {
		return
	}
	if h.hub == nil {
		writeError(w, r, http.StatusServiceUnavailable, "live updates unavailable", h.logger)
		return
	}
	logger := loggerFromContext(r, h.logger)
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already answered the request.
		logging.Warn(logger, "ws upgrade failed", logging.FieldPageID, p.ID(), "error", err)
		return
	}

	// The request context ends when this handler returns; the connection
	// outlives it.
	ctx := context.WithoutCancel(r.Context())
	client := h.hub.NewClient(ctx, conn, p.ID(), h.inbound(p), nil)
	client.Send(pages.Message{Type: pages.MessageView, PageID: p.ID(), Payload: p.View()})
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
	logging.Debug(logger, "ws client connected", logging.FieldPageID, p.ID())
}

func (h *Handler) inbound(p *pages.Page) pages.InboundHandler {
	return func(ctx context.Context, msg pages.Message) *pages.Message {
		var (
			v   pages.View
			err error
		)
		switch msg.Type {
		case pages.MessageEdit:
			var patch picks.Patch
			if len(msg.Edit) > 0 {
				if jsonErr := json.Unmarshal(msg.Edit, &patch); jsonErr != nil {
					err = apperr.Invalid(msgBadEdit)
					break
				}
			}
			v, err = p.Edit(msg.FightID, patch)
		case pages.MessageSelectLeague:
			v, err = p.SelectLeague(msg.LeagueID)
		case pages.MessageAuth:
			v, err = h.refreshToken(ctx, p, msg.Token)
		default:
			err = apperr.Invalid(msgUnknownMessage)
		}
		if err != nil {
			logging.Debug(logging.FromContext(ctx, h.logger), "ws message rejected",
				logging.FieldPageID, p.ID(),
				"type", msg.Type,
				"error", err,
			)
			return &pages.Message{Type: pages.MessageError, PageID: p.ID(), Payload: map[string]string{"error": apperr.Message(err)}}
		}
		return &pages.Message{Type: pages.MessageView, PageID: p.ID(), Payload: v}
	}
}

// refreshToken hands a token sent over the websocket to the page once it
// checks out for the page owner.
func (h *Handler) refreshToken(ctx context.Context, p *pages.Page, token string) (pages.View, error) {
	if h.verifier == nil {
		return pages.View{}, apperr.Unauthenticated(auth.MsgSignIn)
	}
	u, err := h.verifier.Verify(ctx, token)
	if err != nil {
		return pages.View{}, err
	}
	if u.ID != p.Owner() {
		return pages.View{}, apperr.Unauthenticated(auth.MsgSignIn)
	}
	p.Refresh(u)
	return p.View(), nil
}

// page resolves the page named in the route for the signed-in user and
// hands the page the request's token, which may be newer than the one it
// was opened with.
func (h *Handler) page(w http.ResponseWriter, r *http.Request) (*pages.Page, bool) {
	u, _ := auth.FromContext(r.Context())
	p, err := h.pages.Get(chi.URLParam(r, "pageID"), u.ID)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return nil, false
	}
	p.Refresh(u)
	return p, true
}
