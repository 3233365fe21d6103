package stages

import (
	"context"
	"fmt"

	"github.com/Cray-HPE/sat-sub000/internal/config"
	"github.com/Cray-HPE/sat-sub000/internal/orchestrator"
	"github.com/Cray-HPE/sat-sub000/internal/snapshot"
)

// captureState snapshots the scheduler's pod state to durable storage
// before shutdown so the boot pipeline can verify restoration. It is not
// disruptive and never prompts.
func captureState(sc *orchestrator.Context) error {
	ctx, cancel := context.WithTimeout(sc, sc.Timeout(config.TimeoutCaptureState))
	defer cancel()

	pods, err := sc.Sched.ListPods(ctx)
	if err != nil {
		return fmt.Errorf("capture pod states: %w", err)
	}

	snap := snapshot.New(pods)
	if err := sc.Snapshots.Save(ctx, snap); err != nil {
		return fmt.Errorf("save pod-state snapshot: %w", err)
	}

	sc.Observer.Printf("captured %d pod states at %s", len(pods), snap.CapturedAt.Format("15:04:05"))
	return nil
}

// sessionChecks aborts the whole plan, with no side effects, if any of the
// watched management services has a session in flight.
func sessionChecks(sc *orchestrator.Context) error {
	active, err := sc.Sessions.ActiveSessions(sc)
	if err != nil {
		return fmt.Errorf("check for active sessions: %w", err)
	}

	if len(active) > 0 {
		return &orchestrator.PreconditionError{
			Reason:   fmt.Sprintf("%d active sessions found", len(active)),
			Sessions: active,
		}
	}
	return nil
}
