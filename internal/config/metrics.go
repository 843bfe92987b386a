package config

import "strings"

// MetricsConfig controls the Prometheus listener and optional OTLP push.
type MetricsConfig struct {
	Enabled        bool
	Port           string
	OtlpEndpoint   string
	ServiceName    string
	OtlpInsecure   bool
	ExportInterval Duration
}

// Pushing reports whether an OTLP collector is configured.
func (m MetricsConfig) Pushing() bool {
	return m.Enabled && m.OtlpEndpoint != ""
}

func loadMetrics() MetricsConfig {
	// The OTLP HTTP exporter wants host:port, not a URL.
	endpoint := strings.TrimSpace(envOrDefault(envOtelEndpoint, ""))
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")
	endpoint = strings.TrimSuffix(endpoint, "/")

	return MetricsConfig{
		Enabled:        boolEnvOrDefault(envMetricsOn, true),
		Port:           strings.TrimPrefix(envOrDefault(envMetricsPort, defaultMetricsPort), ":"),
		OtlpEndpoint:   endpoint,
		ServiceName:    envOrDefault(envOtelService, defaultServiceName),
		OtlpInsecure:   boolEnvOrDefault(envOtelInsecure, true),
		ExportInterval: durationEnvOrDefault(envOtelInterval, defaultExportInterval),
	}
}
