package server

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/preston-bernstein/fightpicks/internal/config"
	"github.com/preston-bernstein/fightpicks/internal/metrics"
	"github.com/preston-bernstein/fightpicks/internal/testutil"
)

func TestNewServerWithBackendHandlesSetupFailure(t *testing.T) {
	origSetup := metricsSetup
	defer func() { metricsSetup = origSetup }()

	metricsSetup = func(ctx context.Context, cfg metrics.TelemetryConfig) (*metrics.Recorder, http.Handler, func(context.Context) error, error) {
		return nil, nil, nil, errors.New("fail")
	}

	cfg := config.Config{Metrics: config.MetricsConfig{Enabled: true}}
	srv := newServerWithBackend(cfg, nil, testutil.NewFixtureStore(), nil)
	if srv.metrics == nil {
		t.Fatalf("expected fallback metrics recorder even on setup failure")
	}
	if srv.metricsServer != nil {
		t.Fatalf("expected no metrics server on setup failure")
	}
}

func TestNewServerWithBackendMetricsDisabledStillRecords(t *testing.T) {
	cfg := config.Config{Metrics: config.MetricsConfig{Enabled: false}}

	srv := newServerWithBackend(cfg, nil, testutil.NewFixtureStore(), nil)
	if srv.metrics == nil {
		t.Fatalf("expected recorder to be set even when metrics disabled")
	}
}

func TestNewServerWithBackendUsesInjectedRecorder(t *testing.T) {
	rec, _ := testutil.NewRecorderWithShutdown()
	cfg := config.Config{Metrics: config.MetricsConfig{Enabled: true}}

	srv := newServerWithBackend(cfg, nil, testutil.NewFixtureStore(), rec)
	if srv.metrics != rec {
		t.Fatalf("expected injected recorder to be used")
	}
	if srv.metricsStop != nil {
		t.Fatalf("expected no shutdown hook for an injected recorder")
	}

	// Backend calls flow through the instrumented wrapper.
	testutil.Serve(srv.Handler(), http.MethodGet, "/events", nil)
	if rec.BackendCalls("memory") == 0 {
		t.Fatalf("expected backend calls to be recorded")
	}
}
