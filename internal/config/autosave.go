package config

// AutosaveConfig tunes the per-fight debounce and save feedback.
type AutosaveConfig struct {
	Debounce       Duration
	SaveTimeout    Duration
	SavedFeedback  Duration
	DecisionMethod string
}

func loadAutosave() AutosaveConfig {
	return AutosaveConfig{
		Debounce:       durationEnvOrDefault(envDebounce, defaultDebounce),
		SaveTimeout:    durationEnvOrDefault(envSaveTimeout, defaultSaveTimeout),
		SavedFeedback:  durationEnvOrDefault(envSavedFeedback, defaultSavedFeedback),
		DecisionMethod: envOrDefault(envDecisionMethod, defaultDecision),
	}
}

// PagesConfig controls the lifetime of live picks pages.
type PagesConfig struct {
	IdleTTL Duration
}

func loadPages() PagesConfig {
	return PagesConfig{
		IdleTTL: durationEnvOrDefault(envPageIdleTTL, defaultPageIdleTTL),
	}
}

// CatalogConfig controls the background refresh of the public event list.
type CatalogConfig struct {
	Interval Duration
}

func loadCatalog() CatalogConfig {
	return CatalogConfig{
		Interval: durationEnvOrDefault(envCatalogInterval, defaultCatalogInterval),
	}
}
