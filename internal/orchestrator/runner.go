package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Cray-HPE/sat-sub000/internal/waitfor"
)

// Orchestrator runs one action's pipeline stage by stage.
type Orchestrator struct {
	Registry Registry
	Gate     ConfirmationGate
	Observer Observer
}

// New creates an Orchestrator.
func New(registry Registry, gate ConfirmationGate, observer Observer) *Orchestrator {
	return &Orchestrator{Registry: registry, Gate: gate, Observer: observer}
}

// Run executes the plan for action against sc. Stages run strictly
// sequentially; the first Failed or TimedOut stage aborts the rest of the
// plan unless a single stage was explicitly selected. The returned Report
// lists every planned stage with its terminal status. An error is returned
// only for invalid invocations (unknown stage name); stage failures are
// reported through the Report, never as an uncaught error.
func (o *Orchestrator) Run(sc *Context, action Action) (*Report, error) {
	plan, err := o.Registry.Plan(action, sc.Options.Stage)
	if err != nil {
		return nil, err
	}

	report := &Report{Action: action}
	singleStage := plan.SingleStage != nil

	aborted := false
	abortReason := ""
	var prev *StageResult

	for _, stage := range plan.Selected() {
		result := &StageResult{Stage: stage, Status: StatusNotStarted}
		report.Results = append(report.Results, result)

		if aborted {
			o.finalize(result, StatusSkipped, abortReason, nil)
			continue
		}

		// Dependency check. The single-stage override bypasses it,
		// trusting the operator.
		if stage.RequiresPriorSuccess && !singleStage && prev != nil && !prev.Status.OK() {
			o.finalize(result, StatusSkipped, fmt.Sprintf("predecessor %s did not succeed", prev.Stage.Name), nil)
			prev = result
			continue
		}

		if stage.Disruptive && !sc.Options.Disruptive {
			approved, confirmErr := o.Gate.Confirm(action, stage.Name)
			if confirmErr != nil || !approved {
				reason := "cancelled by operator"
				if confirmErr != nil {
					reason = confirmErr.Error()
				}
				o.finalize(result, StatusSkipped, reason, nil)
				report.Cancelled = true
				aborted = true
				abortReason = "plan cancelled before " + stage.Name
				prev = result
				continue
			}
		}

		result.Status = StatusRunning
		result.StartedAt = time.Now()
		o.Observer.Event(Event{Type: EventStageStarted, Stage: stage.Name, Timestamp: result.StartedAt})

		runErr := stage.Run(sc)
		o.classify(sc, result, runErr, report)

		if !result.Status.OK() && !singleStage {
			aborted = true
			abortReason = fmt.Sprintf("aborted after %s %s", stage.Name, result.Status)
		}
		prev = result
	}

	return report, nil
}

// classify converts a stage body's error into the stage's terminal state.
// Errors never propagate past here.
func (o *Orchestrator) classify(sc *Context, result *StageResult, runErr error, report *Report) {
	switch {
	case runErr == nil:
		o.finalize(result, StatusSucceeded, "", nil)

	case isSkip(runErr):
		var skip *SkipError
		errors.As(runErr, &skip)
		o.finalize(result, StatusSkipped, skip.Reason, nil)

	case isPrecondition(runErr):
		var pre *PreconditionError
		errors.As(runErr, &pre)
		report.ActiveSessions = pre.Sessions
		o.finalize(result, StatusFailed, pre.Error(), runErr)

	case isTimeout(runErr):
		o.finalize(result, StatusTimedOut, runErr.Error(), runErr)

	case isCancelled(sc, runErr):
		report.Cancelled = true
		o.finalize(result, StatusFailed, "cancelled: "+runErr.Error(), runErr)

	default:
		o.finalize(result, StatusFailed, runErr.Error(), runErr)
	}
}

// finalize sets a result's terminal state exactly once and emits the
// matching event.
func (o *Orchestrator) finalize(result *StageResult, status Status, detail string, err error) {
	result.Status = status
	result.Detail = detail
	result.Err = err
	result.FinishedAt = time.Now()

	eventType := map[Status]EventType{
		StatusSucceeded: EventStageSucceeded,
		StatusFailed:    EventStageFailed,
		StatusTimedOut:  EventStageTimedOut,
		StatusSkipped:   EventStageSkipped,
	}[status]
	o.Observer.Event(Event{
		Type:      eventType,
		Stage:     result.Stage.Name,
		Message:   detail,
		Timestamp: result.FinishedAt,
	})
}

func isSkip(err error) bool {
	var skip *SkipError
	return errors.As(err, &skip)
}

func isPrecondition(err error) bool {
	var pre *PreconditionError
	return errors.As(err, &pre)
}

func isTimeout(err error) bool {
	var wt *waitfor.TimeoutError
	if errors.As(err, &wt) {
		return true
	}
	var nt *NodeTimeoutError
	return errors.As(err, &nt)
}

func isCancelled(sc *Context, err error) bool {
	return errors.Is(err, context.Canceled) || sc.Err() != nil
}
