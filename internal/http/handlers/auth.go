package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/preston-bernstein/fightpicks/internal/apperr"
	"github.com/preston-bernstein/fightpicks/internal/auth"
	"github.com/preston-bernstein/fightpicks/internal/backend"
	"github.com/preston-bernstein/fightpicks/internal/logging"
)

const (
	msgEmailRequired    = "Please enter your email."
	msgProviderRequired = "Choose a sign-in provider."
)

type magicLinkRequest struct {
	Email string `json:"email"`
}

// Me returns the signed-in user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, u, h.logger)
}

// MagicLink emails a passwordless sign-in link.
func (h *Handler) MagicLink(w http.ResponseWriter, r *http.Request) {
	var req magicLinkRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		writeAppError(w, r, apperr.Invalid(msgEmailRequired), h.logger)
		return
	}
	if err := h.auth.SignInWithOTP(r.Context(), email, h.authRedirect); err != nil {
		writeAppError(w, r, backend.Classify(err), h.logger)
		return
	}
	logging.Info(loggerFromContext(r, h.logger), "magic link sent")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"}, h.logger)
}

// OAuthRedirect sends the browser to the identity provider.
func (h *Handler) OAuthRedirect(w http.ResponseWriter, r *http.Request) {
	provider := strings.TrimSpace(chi.URLParam(r, "provider"))
	if provider == "" {
		writeAppError(w, r, apperr.Invalid(msgProviderRequired), h.logger)
		return
	}
	target, err := h.auth.AuthorizeURL(provider, h.authRedirect)
	if err != nil {
		writeAppError(w, r, apperr.Invalid(msgProviderRequired), h.logger)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// SignOut revokes the session and tells every open page of the user.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	u, ctx := currentUser(r)
	logger := loggerFromContext(r, h.logger)
	if err := h.auth.SignOut(ctx, u.AccessToken); err != nil && !backend.IsUnauthorized(err) {
		writeAppError(w, r, backend.Classify(err), h.logger)
		return
	}
	h.notifier.Publish(auth.Change{Kind: auth.SignedOut, UserID: u.ID})
	logging.Info(logger, "signed out", logging.FieldUserID, u.ID)
	w.WriteHeader(http.StatusNoContent)
}
