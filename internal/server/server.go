package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	appevents "github.com/preston-bernstein/fightpicks/internal/app/events"
	appleagues "github.com/preston-bernstein/fightpicks/internal/app/leagues"
	apppicks "github.com/preston-bernstein/fightpicks/internal/app/picks"
	"github.com/preston-bernstein/fightpicks/internal/auth"
	"github.com/preston-bernstein/fightpicks/internal/backend"
	"github.com/preston-bernstein/fightpicks/internal/config"
	"github.com/preston-bernstein/fightpicks/internal/domain/picks"
	httpserver "github.com/preston-bernstein/fightpicks/internal/http"
	"github.com/preston-bernstein/fightpicks/internal/http/handlers"
	"github.com/preston-bernstein/fightpicks/internal/logging"
	"github.com/preston-bernstein/fightpicks/internal/metrics"
	"github.com/preston-bernstein/fightpicks/internal/pages"
	"github.com/preston-bernstein/fightpicks/internal/poller"
	"github.com/preston-bernstein/fightpicks/internal/store"
)

var metricsSetup = metrics.Setup

type Server struct {
	cfg           config.Config
	logger        *slog.Logger
	metrics       *metrics.Recorder
	backend       backend.Client
	closeBackend  func()
	catalog       *store.Catalog
	hub           *pages.Hub
	pages         *pages.Registry
	notifier      *auth.Notifier
	httpServer    httpServer
	metricsServer httpServer
	poller        Poller
	metricsStop   func(context.Context) error
	hubStop       context.CancelFunc
}

// New constructs a server, connecting the configured backend driver.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	recorder, metricsSrv, metricsShutdown := buildMetrics(cfg, logger, nil)

	client, closeBackend, err := newBackendFactory(logger, recorder).build(ctx, cfg)
	if err != nil {
		if metricsShutdown != nil {
			_ = metricsShutdown(ctx)
		}
		return nil, fmt.Errorf("server: backend: %w", err)
	}

	srv := assemble(cfg, logger, recorder, client)
	srv.metricsServer = metricsSrv
	srv.metricsStop = metricsShutdown
	srv.closeBackend = closeBackend
	return srv, nil
}

// newServerWithBackend wires the server around an existing backend client.
func newServerWithBackend(cfg config.Config, logger *slog.Logger, client backend.Client, recorder *metrics.Recorder) *Server {
	recorder, metricsSrv, metricsShutdown := buildMetrics(cfg, logger, recorder)
	srv := assemble(cfg, logger, recorder, backend.NewInstrumented(client, recorder, logger))
	srv.metricsServer = metricsSrv
	srv.metricsStop = metricsShutdown
	return srv
}

// newServerWithDeps is used for testing to inject custom components.
func newServerWithDeps(cfg config.Config, logger *slog.Logger, httpSrv httpServer, plr Poller) *Server {
	return &Server{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpSrv,
		poller:     plr,
	}
}

func assemble(cfg config.Config, logger *slog.Logger, recorder *metrics.Recorder, client backend.Client) *Server {
	catalog := store.NewCatalog()
	eventSvc := appevents.NewService(client, catalog)
	leagueSvc := appleagues.NewService(client)
	pickSvc := apppicks.NewService(client, cfg.Backend.MethodEnum, picks.Method(cfg.Autosave.DecisionMethod))

	source := poller.NewRetryingSource(catalogSource{events: eventSvc, picks: pickSvc}, logger, 0, 0)
	plr := poller.New(source, catalog, logger, recorder, cfg.Catalog.Interval)

	hub := pages.NewHub(logger)
	registry := pages.NewRegistry(pages.Deps{
		Fights:  eventSvc,
		Leagues: leagueSvc,
		Picks:   pickSvc,
		Config: pages.Config{
			Debounce:      cfg.Autosave.Debounce,
			SaveTimeout:   cfg.Autosave.SaveTimeout,
			SavedFeedback: cfg.Autosave.SavedFeedback,
			Decision:      picks.Method(cfg.Autosave.DecisionMethod),
			Logger:        logger,
			Metrics:       recorder,
		},
	}, pages.RegistryConfig{
		IdleTTL: cfg.Pages.IdleTTL,
		Logger:  logger,
		Metrics: recorder,
		Hub:     hub,
	})
	notifier := auth.NewNotifier()
	registry.Watch(notifier)
	verifier := auth.NewVerifier(cfg.Backend.JWTSecret, client, logger)

	handler := handlers.NewHandler(handlers.Deps{
		Events:         eventSvc,
		Leagues:        leagueSvc,
		Picks:          pickSvc,
		Catalog:        catalog,
		Pages:          registry,
		Hub:            hub,
		Auth:           client,
		Notifier:       notifier,
		Verifier:       verifier,
		Status:         plr.Status,
		AuthRedirect:   cfg.Backend.AuthRedirect,
		AllowedOrigins: cfg.CORSOrigins,
		Logger:         logger,
	})
	// Optionally mount admin endpoints if a token is set.
	var admin *handlers.AdminHandler
	if token := handlers.AdminTokenFromEnv(); token != "" {
		admin = handlers.NewAdminHandler(plr, registry, token, logger)
	}
	router := httpserver.NewRouter(handler, httpserver.RouterConfig{
		Verifier:    verifier,
		Admin:       admin,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
		Metrics:     recorder,
	})

	return &Server{
		cfg:        cfg,
		logger:     logger,
		metrics:    recorder,
		backend:    client,
		catalog:    catalog,
		hub:        hub,
		pages:      registry,
		notifier:   notifier,
		httpServer: newNetHTTPServer(":"+cfg.Port, router),
		poller:     plr,
	}
}

// Run starts the background loops and HTTP server, then waits for context
// cancellation to shut down gracefully.
func (s *Server) Run(ctx context.Context, stop context.CancelFunc) {
	s.startMetrics()
	s.startHub()
	s.startServer(stop)
	s.poller.Start(ctx)
	if s.pages != nil {
		s.pages.Start(ctx)
	}

	<-ctx.Done()
	logging.Info(s.logger, "shutdown signal received")

	s.gracefulShutdown()
}

func (s *Server) startServer(stop context.CancelFunc) {
	logging.Info(s.logger, "http server starting", slog.String("addr", s.httpServer.Addr()))
	launchServer("http", s.httpServer, s.logger, func(err error) {
		if stop != nil {
			stop()
		}
	})
}

func (s *Server) startMetrics() {
	if s.metricsServer == nil {
		return
	}
	logging.Info(s.logger, "metrics server starting", slog.String("addr", s.metricsServer.Addr()))
	launchServer("metrics", s.metricsServer, s.logger, nil)
}

// startHub runs the websocket hub on its own context so that open sockets
// stay up until the HTTP server has stopped taking requests.
func (s *Server) startHub() {
	if s.hub == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.hubStop = cancel
	go s.hub.Run(ctx)
}

func (s *Server) gracefulShutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error(s.logger, "graceful shutdown failed", err)
	}

	// Pages cancel their pending saves and wait for the in-flight ones.
	if s.pages != nil {
		if err := s.pages.Stop(shutdownCtx); err != nil {
			logging.Warn(s.logger, "pages did not drain before shutdown", "error", err)
		}
	}
	if s.hubStop != nil {
		s.hubStop()
	}

	if err := s.poller.Stop(shutdownCtx); err != nil {
		logging.Error(s.logger, "failed to stop poller", err)
	}

	if s.metricsStop != nil {
		if err := s.metricsStop(shutdownCtx); err != nil {
			logging.Warn(s.logger, "metrics shutdown failed", "error", err)
		}
	}

	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
			logging.Warn(s.logger, "metrics server shutdown failed", "error", err)
		}
	}

	if s.closeBackend != nil {
		s.closeBackend()
	}

	logging.Info(s.logger, "shutdown complete")
}

func buildMetrics(cfg config.Config, logger *slog.Logger, recorder *metrics.Recorder) (*metrics.Recorder, httpServer, func(context.Context) error) {
	if recorder != nil {
		return recorder, nil, nil
	}

	recCfg := metrics.TelemetryConfig{
		Enabled:        cfg.Metrics.Enabled,
		Port:           cfg.Metrics.Port,
		ServiceName:    cfg.Metrics.ServiceName,
		OtlpEndpoint:   cfg.Metrics.OtlpEndpoint,
		OtlpInsecure:   cfg.Metrics.OtlpInsecure,
		ExportInterval: cfg.Metrics.ExportInterval,
	}
	if cfg.Metrics.Pushing() {
		logging.Info(logger, "metrics push enabled", "endpoint", recCfg.OtlpEndpoint, "interval", recCfg.ExportInterval)
	}

	rec, handler, shutdown, err := metricsSetup(context.Background(), recCfg)
	if err != nil {
		logging.Warn(logger, "metrics setup failed, continuing without telemetry", "err", err)
		return metrics.NewRecorder(), nil, nil
	}

	var metricsSrv httpServer
	if handler != nil && recCfg.Enabled {
		metricsSrv = netHTTPServer{
			srv: &http.Server{
				Addr:              ":" + recCfg.Port,
				Handler:           handler,
				ReadHeaderTimeout: readHeaderTimeout,
			},
		}
	}

	return rec, metricsSrv, shutdown
}

func launchServer(name string, srv httpServer, logger *slog.Logger, onError func(error)) {
	go func() {
		logging.Info(logger, "starting "+name+" server", slog.String("addr", srv.Addr()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Warn(logger, name+" server failed", "error", err)
			if onError != nil {
				onError(err)
			}
		}
	}()
}

// Handler exposes the HTTP handler (useful for tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler()
}
