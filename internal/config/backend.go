package config

// BackendConfig controls how we reach the hosted auth/data backend.
type BackendConfig struct {
	// Driver is one of "postgrest", "postgres" or "memory".
	Driver       string
	URL          string
	AnonKey      string
	ServiceKey   string
	JWTSecret    string
	DatabaseURL  string
	Timeout      Duration
	AuthRedirect string
	MethodEnum   string
}

func loadBackend() BackendConfig {
	return BackendConfig{
		Driver:       envOrDefault(envBackendDriver, defaultBackendDriver),
		URL:          envOrDefault(envBackendURL, ""),
		AnonKey:      envOrDefault(envBackendAnonKey, ""),
		ServiceKey:   envOrDefault(envBackendService, ""),
		JWTSecret:    envOrDefault(envBackendJWT, ""),
		DatabaseURL:  envOrDefault(envDatabaseURL, ""),
		Timeout:      durationEnvOrDefault(envBackendTimeout, defaultBackendTimeout),
		AuthRedirect: envOrDefault(envAuthRedirect, defaultAuthRedirect),
		MethodEnum:   envOrDefault(envMethodEnum, defaultMethodEnum),
	}
}
