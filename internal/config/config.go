package config

import "github.com/joho/godotenv"

// Config holds runtime configuration for the server.
type Config struct {
	Port        string
	LogLevel    string
	LogFormat   string
	CORSOrigins []string
	Backend     BackendConfig
	Autosave    AutosaveConfig
	Pages       PagesConfig
	Catalog     CatalogConfig
	Metrics     MetricsConfig
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first when present; real
// environment variables always win over it.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:        envOrDefault(envPort, defaultPort),
		LogLevel:    envOrDefault(envLogLevel, ""),
		LogFormat:   envOrDefault(envLogFormat, ""),
		CORSOrigins: listEnvOrDefault(envCORSOrigins, defaultCORSOrigins),
		Backend:     loadBackend(),
		Autosave:    loadAutosave(),
		Pages:       loadPages(),
		Catalog:     loadCatalog(),
		Metrics:     loadMetrics(),
	}
}
