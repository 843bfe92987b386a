package backend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/preston-bernstein/fightpicks/internal/logging"
	"github.com/preston-bernstein/fightpicks/internal/metrics"
)

// instrumentedClient records call counts, latency and failures for every
// backend operation. It never retries: an autosave failure stays failed.
type instrumentedClient struct {
	inner   Client
	metrics *metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewInstrumented wraps inner with metrics and failure logging.
func NewInstrumented(inner Client, rec *metrics.Recorder, logger *slog.Logger) Client {
	return &instrumentedClient{
		inner:   inner,
		metrics: rec,
		logger:  logger,
		now:     time.Now,
	}
}

func (c *instrumentedClient) Name() string { return c.inner.Name() }

func (c *instrumentedClient) Select(ctx context.Context, q Query, dest any) error {
	start := c.now()
	err := c.inner.Select(ctx, q, dest)
	// a single-row miss is an answer, not a failure
	if errors.Is(err, ErrNoRows) {
		c.observe(ctx, "select", q.Table, start, nil)
		return err
	}
	c.observe(ctx, "select", q.Table, start, err)
	return err
}

func (c *instrumentedClient) Insert(ctx context.Context, table string, row any, dest any) error {
	start := c.now()
	err := c.inner.Insert(ctx, table, row, dest)
	c.observe(ctx, "insert", table, start, err)
	return err
}

func (c *instrumentedClient) Upsert(ctx context.Context, table string, row any, onConflict []string, dest any) error {
	start := c.now()
	err := c.inner.Upsert(ctx, table, row, onConflict, dest)
	c.observe(ctx, "upsert", table, start, err)
	return err
}

func (c *instrumentedClient) RPC(ctx context.Context, fn string, args map[string]any, dest any) error {
	start := c.now()
	err := c.inner.RPC(ctx, fn, args, dest)
	c.observe(ctx, "rpc", fn, start, err)
	return err
}

func (c *instrumentedClient) GetUser(ctx context.Context, accessToken string) (User, error) {
	start := c.now()
	user, err := c.inner.GetUser(ctx, accessToken)
	c.observe(ctx, "get_user", "auth", start, err)
	return user, err
}

func (c *instrumentedClient) SignInWithOTP(ctx context.Context, email, redirectTo string) error {
	start := c.now()
	err := c.inner.SignInWithOTP(ctx, email, redirectTo)
	c.observe(ctx, "otp", "auth", start, err)
	return err
}

func (c *instrumentedClient) AuthorizeURL(provider, redirectTo string) (string, error) {
	return c.inner.AuthorizeURL(provider, redirectTo)
}

func (c *instrumentedClient) SignOut(ctx context.Context, accessToken string) error {
	start := c.now()
	err := c.inner.SignOut(ctx, accessToken)
	c.observe(ctx, "sign_out", "auth", start, err)
	return err
}

func (c *instrumentedClient) observe(ctx context.Context, op, target string, start time.Time, err error) {
	elapsed := c.now().Sub(start)
	conflict := IsUniqueViolation(err)
	c.metrics.RecordBackendCall(c.inner.Name(), op, elapsed, err, conflict)
	if err == nil {
		return
	}

	logger := logging.FromContext(ctx, c.logger)
	args := []any{
		logging.FieldBackend, c.inner.Name(),
		"operation", op,
		"target", target,
		logging.FieldDurationMS, elapsed.Milliseconds(),
	}
	if IsRejection(err) {
		logging.Info(logger, "backend rejected request", append(args, "error", err)...)
		return
	}
	logging.Error(logger, "backend call failed", err, args...)
}
