package metrics

import (
	"sync"
	"time"
)

// SaveOutcome names how an autosave attempt ended.
type SaveOutcome string

const (
	SaveApplied  SaveOutcome = "applied"
	SaveStale    SaveOutcome = "stale"
	SaveFailed   SaveOutcome = "failed"
	SaveRejected SaveOutcome = "rejected"
)

type backendStats struct {
	calls           int
	errors          int
	conflicts       int
	lastCallLatency time.Duration
}

// Recorder captures lightweight, in-memory metrics about backend calls and
// autosaves, mirroring them to OpenTelemetry instruments when configured.
type Recorder struct {
	mu       sync.Mutex
	stats    map[string]*backendStats
	saves    map[SaveOutcome]int
	sessions int
	otel     *otelInstruments
}

func NewRecorder() *Recorder {
	return newRecorder(nil)
}

func newRecorder(otel *otelInstruments) *Recorder {
	return &Recorder{
		stats: make(map[string]*backendStats),
		saves: make(map[SaveOutcome]int),
		otel:  otel,
	}
}

// RecordBackendCall counts a call to the data backend and stores its latency.
// Conflicts are unique-constraint rejections and also count as errors.
func (r *Recorder) RecordBackendCall(backend, operation string, duration time.Duration, err error, conflict bool) {
	if r == nil {
		return
	}

	r.mu.Lock()
	stats := r.ensureStats(backend)
	stats.calls++
	stats.lastCallLatency = duration
	if err != nil {
		stats.errors++
	}
	if conflict {
		stats.conflicts++
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordBackendCall(backend, operation, duration, err, conflict)
	}
}

// RecordSave counts an autosave outcome.
func (r *Recorder) RecordSave(outcome SaveOutcome, duration time.Duration) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.saves[outcome]++
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordSave(outcome, duration)
	}
}

// RecordSessions stores the number of open page sessions.
func (r *Recorder) RecordSessions(delta int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.sessions += delta
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordSessions(delta)
	}
}

// Sessions returns the number of open page sessions.
func (r *Recorder) Sessions() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions
}

// Saves returns how many autosaves ended with the given outcome.
func (r *Recorder) Saves(outcome SaveOutcome) int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves[outcome]
}

// BackendCalls returns the total calls recorded for a backend.
func (r *Recorder) BackendCalls(backend string) int {
	return r.Snapshot(backend).Calls
}

// BackendErrors returns the total failed calls recorded for a backend.
func (r *Recorder) BackendErrors(backend string) int {
	return r.Snapshot(backend).Errors
}

// Snapshot returns a copy of the current stats for the backend.
type Snapshot struct {
	Calls           int
	Errors          int
	Conflicts       int
	LastCallLatency time.Duration
}

func (r *Recorder) Snapshot(backend string) Snapshot {
	if r == nil {
		return Snapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.stats[backend]
	if !ok {
		return Snapshot{}
	}
	return Snapshot{
		Calls:           stats.calls,
		Errors:          stats.errors,
		Conflicts:       stats.conflicts,
		LastCallLatency: stats.lastCallLatency,
	}
}

// RecordHTTPRequest tracks basic HTTP metrics.
func (r *Recorder) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if r == nil || r.otel == nil {
		return
	}
	r.otel.recordHTTPRequest(method, path, status, duration)
}

// RecordPollerCycle tracks poller cycles and errors.
func (r *Recorder) RecordPollerCycle(duration time.Duration, err error) {
	if r == nil || r.otel == nil {
		return
	}
	r.otel.recordPoller(duration, err)
}

// caller holds r.mu
func (r *Recorder) ensureStats(backend string) *backendStats {
	stats, ok := r.stats[backend]
	if !ok {
		stats = &backendStats{}
		r.stats[backend] = stats
	}
	return stats
}
