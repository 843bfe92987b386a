package config

import "time"

const (
	envPort            = "PORT"
	envLogLevel        = "LOG_LEVEL"
	envLogFormat       = "LOG_FORMAT"
	envCORSOrigins     = "CORS_ALLOWED_ORIGINS"
	envBackendDriver   = "BACKEND_DRIVER"
	envBackendURL      = "BACKEND_URL"
	envBackendAnonKey  = "BACKEND_ANON_KEY"
	envBackendService  = "BACKEND_SERVICE_KEY"
	envBackendJWT      = "BACKEND_JWT_SECRET"
	envBackendTimeout  = "BACKEND_TIMEOUT"
	envDatabaseURL     = "DATABASE_URL"
	envAuthRedirect    = "AUTH_REDIRECT_URL"
	envDebounce        = "AUTOSAVE_DEBOUNCE"
	envSaveTimeout     = "AUTOSAVE_SAVE_TIMEOUT"
	envSavedFeedback   = "SAVED_FEEDBACK_WINDOW"
	envDecisionMethod  = "DECISION_METHOD"
	envMethodEnum      = "METHOD_ENUM"
	envPageIdleTTL     = "PAGE_IDLE_TTL"
	envCatalogInterval = "CATALOG_REFRESH_INTERVAL"
	envMetricsPort     = "METRICS_PORT"
	envMetricsOn       = "METRICS_ENABLED"
	envOtelEndpoint    = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOtelService     = "OTEL_SERVICE_NAME"
	envOtelInsecure    = "OTEL_EXPORTER_OTLP_INSECURE"
	envOtelInterval    = "OTEL_METRIC_EXPORT_INTERVAL"

	defaultPort          = "4000"
	defaultCORSOrigins   = "http://localhost:3000"
	defaultBackendDriver = "memory"
	defaultAuthRedirect  = "http://localhost:3000/auth/callback"
	defaultDecision      = "DEC"
	defaultMethodEnum    = "method"
	defaultMetricsPort   = "9090"
	defaultServiceName   = "fightpicks"

	defaultBackendTimeout = 10 * Duration(time.Second)
	// Window in which rapid edits to one fight collapse into a single save.
	defaultDebounce      = 400 * Duration(time.Millisecond)
	defaultSaveTimeout   = 15 * Duration(time.Second)
	defaultSavedFeedback = 1500 * Duration(time.Millisecond)
	defaultPageIdleTTL   = 30 * Duration(time.Minute)
	// Events change rarely; the catalog only backs the public event list.
	defaultCatalogInterval = 2 * Duration(time.Minute)
	defaultExportInterval  = 15 * Duration(time.Second)
)
