package domain

import (
	"sync"
	"time"
)

// RunError records one permanently failed unit.
type RunError struct {
	// Ref identifies the failed unit (path, object key, archive member or row).
	Ref string

	// Reason is a short description of the failure.
	Reason string
}

// RunStatus is a point-in-time view of a run's progress.
type RunStatus struct {
	// RunID identifies the run.
	RunID string

	// Running indicates the run has not finished yet.
	Running bool

	// Progress is the running total of planned batch sizes processed.
	Progress int

	// RecordsBuilt counts records produced by the builders.
	RecordsBuilt int

	// RecordsCommitted counts records the index accepted.
	RecordsCommitted int

	// ErrorCount is the number of entries in the error log.
	ErrorCount int
}

// RunContext carries the run-scoped mutable state through the pipeline:
// the error log and the progress counter. It is passed explicitly to every
// stage instead of living in package state.
type RunContext struct {
	mu        sync.Mutex
	id        string
	startedAt time.Time
	running   bool
	progress  int
	built     int
	committed int
	errors    []RunError
}

// NewRunContext creates the state for a new run.
func NewRunContext(id string) *RunContext {
	return &RunContext{
		id:        id,
		startedAt: time.Now(),
		running:   true,
	}
}

// ID returns the run identifier.
func (r *RunContext) ID() string {
	return r.id
}

// StartedAt returns when the run began.
func (r *RunContext) StartedAt() time.Time {
	return r.startedAt
}

// RecordError appends a permanently failed unit to the error log.
func (r *RunContext) RecordError(ref, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, RunError{Ref: ref, Reason: reason})
}

// Errors returns a copy of the error log.
func (r *RunContext) Errors() []RunError {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RunError, len(r.errors))
	copy(out, r.errors)
	return out
}

// ErrorRefs returns the identifiers in the error log, in the order recorded.
func (r *RunContext) ErrorRefs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	refs := make([]string, len(r.errors))
	for i, e := range r.errors {
		refs[i] = e.Ref
	}
	return refs
}

// Advance moves the progress counter by the planned batch size.
func (r *RunContext) Advance(planned int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress += planned
	return r.progress
}

// AddBuilt counts records produced by the builders.
func (r *RunContext) AddBuilt(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.built += n
}

// AddCommitted counts records accepted by the index.
func (r *RunContext) AddCommitted(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed += n
}

// Finish marks the run as complete.
func (r *RunContext) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
}

// Status returns a snapshot of the run's counters.
func (r *RunContext) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RunStatus{
		RunID:            r.id,
		Running:          r.running,
		Progress:         r.progress,
		RecordsBuilt:     r.built,
		RecordsCommitted: r.committed,
		ErrorCount:       len(r.errors),
	}
}

// RunReport is the persisted summary of a finished run.
type RunReport struct {
	// ID identifies the run.
	ID string

	// Target is the ingested location as given by the operator.
	Target string

	// Index is the destination index name.
	Index string

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time

	// Progress is the final running total of planned batch sizes.
	Progress int

	// RecordsBuilt and RecordsCommitted are the final record counters.
	RecordsBuilt     int
	RecordsCommitted int

	// ErrorCount is the number of entries in the error log. It is set even
	// when Errors is not loaded.
	ErrorCount int

	// Errors is the full error log.
	Errors []RunError
}

// Report builds the persisted summary of the run.
func (r *RunContext) Report(target, index string) RunReport {
	st := r.Status()
	return RunReport{
		ID:               r.id,
		Target:           target,
		Index:            index,
		StartedAt:        r.startedAt,
		FinishedAt:       time.Now(),
		Progress:         st.Progress,
		RecordsBuilt:     st.RecordsBuilt,
		RecordsCommitted: st.RecordsCommitted,
		ErrorCount:       st.ErrorCount,
		Errors:           r.Errors(),
	}
}

// Failed reports whether any unit failed.
func (r RunReport) Failed() bool {
	return r.ErrorCount > 0 || len(r.Errors) > 0
}
