package postgres

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/preston-bernstein/fightpicks/internal/backend"
)

// translateError maps server-reported errors onto backend.Error so callers
// can branch on the SQLSTATE code. Connection failures pass through.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return backend.ErrNoRows
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	return &backend.Error{
		Status:  statusForCode(pgErr.Code),
		Code:    pgErr.Code,
		Message: pgErr.Message,
		Details: pgErr.Detail,
		Hint:    pgErr.Hint,
	}
}

func statusForCode(code string) int {
	switch {
	case code == backend.CodeUniqueViolation:
		return http.StatusConflict
	case code == "42501":
		return http.StatusForbidden
	case len(code) >= 2 && (code[:2] == "22" || code[:2] == "23"):
		return http.StatusBadRequest
	case len(code) >= 2 && code[:2] == "42":
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
