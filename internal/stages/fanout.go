package stages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Cray-HPE/sat-sub000/internal/orchestrator"
	"github.com/Cray-HPE/sat-sub000/internal/util/async"
	"github.com/Cray-HPE/sat-sub000/internal/waitfor"
)

// fanoutError folds a per-node error map from a bounded fan-out into one
// stage error. Individual wait timeouts are aggregated into a
// NodeTimeoutError carrying the per-node breakdown; any other failure is
// surfaced directly as a stage failure.
func fanoutError(op string, timeout time.Duration, errs map[string]error) error {
	if len(errs) == 0 {
		return nil
	}

	pending := make(map[string]string)
	var firstFailure error

	// Keys are visited in sorted order so the surfaced failure is stable
	// across runs.
	for _, key := range async.Keys(errs) {
		err := errs[key]
		var wt *waitfor.TimeoutError
		switch {
		case errors.As(err, &wt):
			state := wt.LastState
			if state == "" {
				state = "did not reach target state"
			}
			pending[key] = state
		case errors.Is(err, context.DeadlineExceeded):
			pending[key] = "deadline exceeded"
		default:
			if firstFailure == nil {
				firstFailure = fmt.Errorf("%s: %w", key, err)
			}
		}
	}

	if firstFailure != nil {
		return fmt.Errorf("%s: %w", op, firstFailure)
	}
	return &orchestrator.NodeTimeoutError{Op: op, Timeout: timeout, Pending: pending}
}
