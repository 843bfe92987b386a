package postgrest

import "time"

const (
	driverName         = "postgrest"
	defaultHTTPTimeout = 10 * time.Second
	restPath           = "/rest/v1"
	authPath           = "/auth/v1"
	maxErrorBody       = 4096

	headerAPIKey = "apikey"
	headerPrefer = "Prefer"
	mediaJSON    = "application/json"
	mediaSingle  = "application/vnd.pgrst.object+json"
	preferReturn = "return=representation"
	preferUpsert = "resolution=merge-duplicates,return=representation"
)
