package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/preston-bernstein/fightpicks/internal/auth"
	"github.com/preston-bernstein/fightpicks/internal/backend"
	"github.com/preston-bernstein/fightpicks/internal/backend/memory"
	"github.com/preston-bernstein/fightpicks/internal/backend/postgres"
	"github.com/preston-bernstein/fightpicks/internal/backend/postgrest"
	"github.com/preston-bernstein/fightpicks/internal/config"
	"github.com/preston-bernstein/fightpicks/internal/logging"
	"github.com/preston-bernstein/fightpicks/internal/metrics"
)

const (
	driverMemory    = "memory"
	driverPostgrest = "postgrest"
	driverPostgres  = "postgres"
)

// backendFactory assembles the backend driver with shared instrumentation.
type backendFactory struct {
	logger  *slog.Logger
	metrics *metrics.Recorder
}

func newBackendFactory(logger *slog.Logger, metrics *metrics.Recorder) backendFactory {
	return backendFactory{logger: logger, metrics: metrics}
}

// build returns the instrumented client and a function releasing its resources.
func (f backendFactory) build(ctx context.Context, cfg config.Config) (backend.Client, func(), error) {
	base, closeFn, err := selectBackend(ctx, cfg, f.logger)
	if err != nil {
		return nil, nil, err
	}
	logging.Info(f.logger, "backend selected", logging.FieldBackend, normalizeBackendName(cfg.Backend.Driver, base))
	return backend.NewInstrumented(base, f.metrics, f.logger), closeFn, nil
}

func selectBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (backend.Client, func(), error) {
	noop := func() {}
	switch strings.ToLower(cfg.Backend.Driver) {
	case driverMemory, "":
		return memory.New(memory.Config{Fixture: true}), noop, nil

	case driverPostgrest:
		client, err := newPostgrest(cfg)
		if err != nil {
			return nil, nil, err
		}
		return client, noop, nil

	case driverPostgres:
		// A bare database cannot run sign-in flows; borrow them from the
		// hosted auth API when it is configured.
		var authSvc backend.AuthService
		if cfg.Backend.URL != "" {
			rest, err := newPostgrest(cfg)
			if err != nil {
				return nil, nil, err
			}
			authSvc = rest
		}
		verifier := auth.NewVerifier(cfg.Backend.JWTSecret, authSvc, logger)

		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		store, err := postgres.New(connectCtx, postgres.Config{
			DatabaseURL: cfg.Backend.DatabaseURL,
			Subject:     verifier.Subject,
			Auth:        authSvc,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	default:
		logging.Warn(logger, "unknown backend driver, falling back to memory", logging.FieldBackend, cfg.Backend.Driver)
		return memory.New(memory.Config{Fixture: true}), noop, nil
	}
}

func newPostgrest(cfg config.Config) (*postgrest.Client, error) {
	return postgrest.NewClient(postgrest.Config{
		BaseURL:    cfg.Backend.URL,
		AnonKey:    cfg.Backend.AnonKey,
		ServiceKey: cfg.Backend.ServiceKey,
		HTTPClient: &http.Client{Timeout: cfg.Backend.Timeout},
	})
}

// normalizeBackendName returns a lower-cased driver name, deriving from the
// client when not explicitly configured. Keeps naming consistent in metrics/logs.
func normalizeBackendName(raw string, client backend.Client) string {
	if raw != "" {
		return strings.ToLower(raw)
	}
	if client != nil {
		return strings.ToLower(client.Name())
	}
	return "backend"
}
