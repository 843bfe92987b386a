package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/preston-bernstein/fightpicks/internal/apperr"
	"github.com/preston-bernstein/fightpicks/internal/backend"
	"github.com/preston-bernstein/fightpicks/internal/http/middleware"
	"github.com/preston-bernstein/fightpicks/internal/http/requestutil"
	"github.com/preston-bernstein/fightpicks/internal/logging"
)

func writeJSON(w http.ResponseWriter, status int, payload any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Error("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string, logger *slog.Logger) {
	reqID := middleware.RequestIDFromContext(r.Context())
	if reqID == "" {
		reqID = r.Header.Get("X-Request-ID")
	}
	body := map[string]string{"error": message}
	if reqID != "" {
		body["requestId"] = reqID
	}
	writeJSON(w, status, body, logger)
}

// writeAppError renders a classified error. Transient failures are logged
// with their cause; the caller only sees the user-facing message.
func writeAppError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	logger := loggerFromContext(r, fallback)
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Error(logger, "request failed", err, logging.FieldStatusCode, status)
	} else {
		logging.Debug(logger, "request rejected", logging.FieldStatusCode, status, "error", err)
	}
	writeError(w, r, status, apperr.Message(err), logger)
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindInvalid:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindRejected:
		// Keep the backend's own 4xx when it gave one; constraint clashes
		// without a status are conflicts.
		if bErr, ok := backend.AsError(err); ok && bErr.Status >= 400 && bErr.Status < 500 && bErr.Status != http.StatusUnauthorized {
			return bErr.Status
		}
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// decodeBody reads a JSON request body and reports malformed input as invalid.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := requestutil.ReadJSON(w, r, dst); err != nil {
		return apperr.Invalid(err.Error())
	}
	return nil
}

func loggerFromContext(r *http.Request, fallback *slog.Logger) *slog.Logger {
	if r == nil {
		return fallback
	}
	return logging.FromContext(r.Context(), fallback)
}
