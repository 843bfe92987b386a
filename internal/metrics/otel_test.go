package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestSetupDisabledReturnsNoHandler(t *testing.T) {
	rec, handler, shutdown, err := Setup(context.Background(), TelemetryConfig{
		Enabled: false,
	})
	if err != nil {
		t.Fatalf("expected no error when disabled, got %v", err)
	}
	if rec == nil {
		t.Fatalf("expected recorder")
	}
	if handler != nil {
		t.Fatalf("expected nil handler when disabled")
	}
	if shutdown == nil {
		t.Fatalf("expected shutdown function")
	}
}

func TestSetupEnabledExportsBackendAndAutosaveMetrics(t *testing.T) {
	rec, handler, shutdown, err := Setup(context.Background(), TelemetryConfig{
		Enabled:     true,
		ServiceName: "fightpicks-test",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()
	if handler == nil {
		t.Fatalf("expected handler when enabled")
	}

	rec.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)
	rec.RecordPollerCycle(time.Millisecond, errors.New("boom"))
	rec.RecordBackendCall("memory", "upsert", time.Millisecond, nil, false)
	rec.RecordSave(SaveApplied, 2*time.Millisecond)
	rec.RecordSessions(1)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	for _, name := range []string{"backend_calls_total", "autosave_results_total", "poller_errors_total"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in prometheus output", name)
		}
	}
}

func TestSetupPropagatesInstrumentErrors(t *testing.T) {
	orig := instrumentFactory
	defer func() { instrumentFactory = orig }()
	instrumentFactory = func(metric.MeterProvider) (*otelInstruments, error) {
		return nil, errors.New("instrument failure")
	}

	if _, _, _, err := Setup(context.Background(), TelemetryConfig{Enabled: true}); err == nil {
		t.Fatal("expected instrument error")
	}
}

func TestSetupPropagatesReaderErrors(t *testing.T) {
	orig := promReaderFactory
	defer func() { promReaderFactory = orig }()
	promReaderFactory = func() (sdkmetric.Reader, http.Handler, error) {
		return nil, nil, errors.New("reader failure")
	}

	if _, _, _, err := Setup(context.Background(), TelemetryConfig{Enabled: true}); err == nil {
		t.Fatal("expected reader error")
	}
}

func TestSetupPassesExportIntervalToOTLPReader(t *testing.T) {
	orig := otlpReaderFactory
	defer func() { otlpReaderFactory = orig }()
	var gotEndpoint string
	var gotInterval time.Duration
	otlpReaderFactory = func(_ context.Context, endpoint string, _ bool, interval time.Duration) (sdkmetric.Reader, error) {
		gotEndpoint, gotInterval = endpoint, interval
		return nil, errors.New("collector unreachable")
	}

	_, _, _, err := Setup(context.Background(), TelemetryConfig{
		Enabled:        true,
		OtlpEndpoint:   "collector:4318",
		ExportInterval: 3 * time.Second,
	})
	if err == nil {
		t.Fatal("expected otlp reader error")
	}
	if gotEndpoint != "collector:4318" || gotInterval != 3*time.Second {
		t.Fatalf("unexpected reader args %q %v", gotEndpoint, gotInterval)
	}
}
