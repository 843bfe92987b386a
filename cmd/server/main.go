package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/preston-bernstein/fightpicks/internal/config"
	"github.com/preston-bernstein/fightpicks/internal/logging"
	"github.com/preston-bernstein/fightpicks/internal/server"
)

const appVersion = "dev"

// Swapped in tests to avoid binding ports.
var runServer = func(ctx context.Context, srv *server.Server, stop context.CancelFunc) {
	srv.Run(ctx, stop)
}

func main() {
	if os.Getenv("SKIP_SERVER_RUN") == "1" {
		return
	}
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	logger := logging.NewLogger(logging.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: cfg.Metrics.ServiceName,
		Version: appVersion,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logging.Error(logger, "server setup failed", err, "driver", cfg.Backend.Driver)
		return 1
	}
	runServer(ctx, srv, stop)
	return 0
}
