package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/preston-bernstein/fightpicks/internal/apperr"
	"github.com/preston-bernstein/fightpicks/internal/domain/events"
	"github.com/preston-bernstein/fightpicks/internal/domain/picks"
	"github.com/preston-bernstein/fightpicks/internal/logging"
)

const (
	defaultRetryAttempts = 3
	defaultBackoff       = 200 * time.Millisecond
)

type backoffFunc func(attempt int) time.Duration

// retryingSource retries transient catalog reads. Invalid or rejected
// answers are returned at once.
type retryingSource struct {
	inner       Source
	logger      *slog.Logger
	maxAttempts int
	backoffFn   backoffFunc
}

// NewRetryingSource wraps inner with retries. If maxAttempts/backoff are <= 0, defaults are used.
func NewRetryingSource(inner Source, logger *slog.Logger, maxAttempts int, backoff time.Duration) Source {
	if maxAttempts <= 0 {
		maxAttempts = defaultRetryAttempts
	}
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	return &retryingSource{
		inner:       inner,
		logger:      logger,
		maxAttempts: maxAttempts,
		backoffFn: func(attempt int) time.Duration {
			return time.Duration(attempt) * backoff
		},
	}
}

func (r *retryingSource) ListEvents(ctx context.Context) ([]events.Event, error) {
	var out []events.Event
	err := r.do(ctx, "events", func() (err error) {
		out, err = r.inner.ListEvents(ctx)
		return err
	})
	return out, err
}

func (r *retryingSource) Methods(ctx context.Context) (picks.MethodSet, error) {
	var out picks.MethodSet
	err := r.do(ctx, "methods", func() (err error) {
		out, err = r.inner.Methods(ctx)
		return err
	})
	return out, err
}

func (r *retryingSource) do(ctx context.Context, what string, fetch func() error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := fetch()
		if err == nil {
			return nil
		}
		lastErr = err
		if apperr.KindOf(err) != apperr.KindTransient || attempt == r.maxAttempts {
			break
		}

		logging.Warn(logging.FromContext(ctx, r.logger), "catalog fetch retry",
			"target", what, "attempt", attempt, "max_attempts", r.maxAttempts, "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoffFn(attempt)):
		}
	}
	return lastErr
}
