package orchestrator

import (
	"time"

	"github.com/Cray-HPE/sat-sub000/internal/config"
)

// Stage is the unit of orchestration: a named, ordered piece of one
// action's pipeline. Stages are defined once at process start in the
// Registry and never mutated.
type Stage struct {
	// Name is unique within an action's pipeline.
	Name string

	// Ordinal is the stage's position in the pipeline, starting at 0.
	Ordinal int

	// RequiresPriorSuccess prevents the stage from running unless its
	// immediate predecessor succeeded. The single-stage override bypasses
	// this check, trusting the operator.
	RequiresPriorSuccess bool

	// Disruptive stages can materially affect running workloads and
	// require operator confirmation unless skipped with --disruptive.
	Disruptive bool

	// DefaultTimeouts names the timeouts bounding this stage's waits and
	// their default durations. The run's resolved TimeoutConfig overrides
	// them.
	DefaultTimeouts config.TimeoutConfig

	// Run executes the stage body.
	Run func(sc *Context) error
}

// Status is a stage's position in its state machine:
// NotStarted -> Running -> {Succeeded | Failed | TimedOut | Skipped}.
type Status string

const (
	StatusNotStarted Status = "not started"
	StatusRunning    Status = "running"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusTimedOut   Status = "timed out"
	StatusSkipped    Status = "skipped"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusTimedOut, StatusSkipped:
		return true
	default:
		return false
	}
}

// OK reports whether the status is success-equivalent. Skipped means a
// precondition check found the stage's work already done, or the stage was
// never reached; either way it is not a failure of this stage.
func (s Status) OK() bool {
	return s == StatusSucceeded || s == StatusSkipped
}

// StageResult records one stage's outcome. It is created when the stage
// begins, finalized exactly once, and never mutated afterwards. Results are
// owned exclusively by the orchestrator for the lifetime of one Run.
type StageResult struct {
	Stage      *Stage
	Status     Status
	StartedAt  time.Time
	FinishedAt time.Time

	// Detail is a short human-readable summary: the skip reason, the
	// error, or a per-node breakdown for timeouts.
	Detail string

	// Err is the underlying error for Failed and TimedOut results.
	Err error
}

// Duration returns how long the stage ran, or zero if it never started.
func (r *StageResult) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
