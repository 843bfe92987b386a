package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Port)
	}
	if cfg.Backend.Driver != defaultBackendDriver {
		t.Fatalf("expected default backend driver %s, got %s", defaultBackendDriver, cfg.Backend.Driver)
	}
	if cfg.Backend.AuthRedirect != defaultAuthRedirect {
		t.Fatalf("expected default auth redirect, got %s", cfg.Backend.AuthRedirect)
	}
	if cfg.Backend.MethodEnum != "method" {
		t.Fatalf("expected method enum name, got %s", cfg.Backend.MethodEnum)
	}
	if cfg.Autosave.Debounce != 400*time.Millisecond {
		t.Fatalf("expected 400ms debounce, got %s", cfg.Autosave.Debounce)
	}
	if cfg.Autosave.SavedFeedback != 1500*time.Millisecond {
		t.Fatalf("expected 1500ms saved feedback, got %s", cfg.Autosave.SavedFeedback)
	}
	if cfg.Autosave.DecisionMethod != "DEC" {
		t.Fatalf("expected DEC decision method, got %s", cfg.Autosave.DecisionMethod)
	}
	if cfg.Catalog.Interval != defaultCatalogInterval {
		t.Fatalf("expected default catalog interval, got %s", cfg.Catalog.Interval)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"http://localhost:3000"}) {
		t.Fatalf("unexpected default cors origins %v", cfg.CORSOrigins)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.ServiceName != defaultServiceName {
		t.Fatalf("unexpected metrics defaults %+v", cfg.Metrics)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(envPort, "5000")
	t.Setenv(envBackendDriver, "postgrest")
	t.Setenv(envBackendURL, "https://project.example.co")
	t.Setenv(envBackendAnonKey, "anon")
	t.Setenv(envBackendJWT, "jwt-secret")
	t.Setenv(envDebounce, "250ms")
	t.Setenv(envDecisionMethod, "DECISION")
	t.Setenv(envCORSOrigins, "https://a.example, https://b.example ,")
	t.Setenv(envPageIdleTTL, "5m")

	cfg := Load()

	if cfg.Port != "5000" {
		t.Fatalf("expected port 5000, got %s", cfg.Port)
	}
	if cfg.Backend.Driver != "postgrest" || cfg.Backend.URL != "https://project.example.co" {
		t.Fatalf("unexpected backend config %+v", cfg.Backend)
	}
	if cfg.Backend.AnonKey != "anon" || cfg.Backend.JWTSecret != "jwt-secret" {
		t.Fatalf("expected backend keys override, got %+v", cfg.Backend)
	}
	if cfg.Autosave.Debounce != 250*time.Millisecond {
		t.Fatalf("expected debounce 250ms, got %s", cfg.Autosave.Debounce)
	}
	if cfg.Autosave.DecisionMethod != "DECISION" {
		t.Fatalf("expected decision override, got %s", cfg.Autosave.DecisionMethod)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"https://a.example", "https://b.example"}) {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
	if cfg.Pages.IdleTTL != 5*time.Minute {
		t.Fatalf("expected idle ttl 5m, got %s", cfg.Pages.IdleTTL)
	}
}

func TestLoadInvalidDurationFallsBack(t *testing.T) {
	t.Setenv(envDebounce, "not-a-duration")

	cfg := Load()

	if cfg.Autosave.Debounce != defaultDebounce {
		t.Fatalf("expected default debounce on invalid value, got %s", cfg.Autosave.Debounce)
	}
}

func TestLoadNonPositiveDurationFallsBack(t *testing.T) {
	t.Setenv(envCatalogInterval, "0s")

	cfg := Load()

	if cfg.Catalog.Interval != defaultCatalogInterval {
		t.Fatalf("expected default catalog interval on non-positive value, got %s", cfg.Catalog.Interval)
	}
}

func TestLoadMetricsNormalisesCollectorEndpoint(t *testing.T) {
	t.Setenv(envOtelEndpoint, " https://collector:4318/ ")
	t.Setenv(envMetricsPort, ":9191")
	t.Setenv(envOtelInterval, "5s")

	m := Load().Metrics
	if m.OtlpEndpoint != "collector:4318" {
		t.Fatalf("expected bare host:port, got %q", m.OtlpEndpoint)
	}
	if m.Port != "9191" {
		t.Fatalf("expected port without colon, got %q", m.Port)
	}
	if m.ExportInterval != 5*time.Second {
		t.Fatalf("expected 5s export interval, got %v", m.ExportInterval)
	}
	if !m.Pushing() {
		t.Fatalf("expected push enabled with endpoint set")
	}

	m.Enabled = false
	if m.Pushing() {
		t.Fatalf("expected push disabled when metrics are off")
	}
}
