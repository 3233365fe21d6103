// Package waitfor provides a bounded polling loop for conditions that depend
// on systems outside this process's control.
//
// A [Spec] names the condition, how often to poll it, and how long to keep
// trying. Poll errors are tolerated for a bounded number of consecutive
// attempts before they are escalated, so a briefly unreachable service does
// not abort a long wait. Errors marked with [retry.Fatal], such as an
// authentication failure, abort the wait on first observation: re-polling
// cannot clear them.
package waitfor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Cray-HPE/sat-sub000/internal/util/retry"
)

// DefaultInterval is used when a Spec does not set one.
const DefaultInterval = 5 * time.Second

// DefaultErrorBudget is the number of consecutive poll errors tolerated
// before the wait fails hard.
const DefaultErrorBudget = 3

// Check evaluates the condition once. It returns done=true when the
// condition is satisfied, a short human-readable description of the observed
// state for diagnostics, and an error if the observation itself failed.
type Check func(ctx context.Context) (done bool, state string, err error)

// Spec describes one bounded wait.
type Spec struct {
	// Name identifies the condition in errors and logs.
	Name string

	// Interval is the pause between polls. Defaults to DefaultInterval.
	Interval time.Duration

	// Timeout bounds the whole wait. Required.
	Timeout time.Duration

	// ErrorBudget is the number of consecutive Check errors tolerated
	// before the wait fails with a PollError. Defaults to DefaultErrorBudget.
	ErrorBudget int

	// Check evaluates the condition.
	Check Check
}

// TimeoutError reports that the condition was not satisfied within the
// configured timeout. LastState carries the most recently observed state.
type TimeoutError struct {
	Name      string
	Timeout   time.Duration
	LastState string
}

func (e *TimeoutError) Error() string {
	if e.LastState == "" {
		return fmt.Sprintf("timed out after %v waiting for %s", e.Timeout, e.Name)
	}
	return fmt.Sprintf("timed out after %v waiting for %s (last state: %s)", e.Timeout, e.Name, e.LastState)
}

// PollError reports that observing the condition failed repeatedly, which is
// distinct from the condition simply not being satisfied in time.
type PollError struct {
	Name     string
	Attempts int
	Err      error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("checking %s failed %d consecutive times: %v", e.Name, e.Attempts, e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }

// Wait polls s.Check until it reports done, the timeout elapses, the error
// budget is exhausted, or ctx is cancelled. The first poll happens
// immediately.
func Wait(ctx context.Context, s Spec) error {
	if s.Check == nil {
		return errors.New("waitfor: Spec.Check is required")
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("waitfor: %s: Spec.Timeout is required", s.Name)
	}
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	budget := s.ErrorBudget
	if budget <= 0 {
		budget = DefaultErrorBudget
	}

	deadline := time.Now().Add(s.Timeout)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var lastState string
	consecutiveErrs := 0
	var lastErr error

	for {
		done, state, err := s.Check(ctx)
		switch {
		case err != nil:
			// A cancelled context surfaces through the check too; don't
			// count it against the error budget.
			if ctx.Err() != nil {
				break
			}
			if retry.IsFatal(err) {
				return fmt.Errorf("checking %s: %w", s.Name, err)
			}
			consecutiveErrs++
			lastErr = err
			if consecutiveErrs >= budget {
				return &PollError{Name: s.Name, Attempts: consecutiveErrs, Err: lastErr}
			}
		case done:
			return nil
		default:
			consecutiveErrs = 0
			if state != "" {
				lastState = state
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && time.Now().After(deadline.Add(-time.Millisecond)) {
				return &TimeoutError{Name: s.Name, Timeout: s.Timeout, LastState: lastState}
			}
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
