package stages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Cray-HPE/sat-sub000/internal/config"
	"github.com/Cray-HPE/sat-sub000/internal/orchestrator"
	"github.com/Cray-HPE/sat-sub000/internal/snapshot"
	"github.com/Cray-HPE/sat-sub000/internal/waitfor"
)

// k8sCheck waits until the pods recorded before shutdown are running again.
// Comparison goes through the configured policy so pods rescheduled under
// new hashed names still count.
func k8sCheck(sc *orchestrator.Context) error {
	saved, err := sc.Snapshots.Load(sc)
	if err != nil {
		if errors.Is(err, snapshot.ErrNoSnapshot) {
			return fmt.Errorf("no pod state snapshot found; run a shutdown with capture-state first: %w", err)
		}
		return fmt.Errorf("load pod state snapshot: %w", err)
	}

	return waitfor.Wait(sc, waitfor.Spec{
		Name:     "pods from the pre-shutdown snapshot to return",
		Interval: pollInterval,
		Timeout:  sc.Timeout(config.TimeoutK8s),
		Check: func(ctx context.Context) (bool, string, error) {
			live, err := sc.Sched.ListPods(ctx)
			if err != nil {
				return false, "", err
			}
			missing := sc.Policy.Missing(saved.PodStates, live)
			if len(missing) == 0 {
				return true, fmt.Sprintf("all %d recorded pods accounted for", len(saved.PodStates)), nil
			}
			return false, missingDetail(missing), nil
		},
	})
}

func missingDetail(missing []string) string {
	const show = 5
	if len(missing) <= show {
		return fmt.Sprintf("%d pods missing: %s", len(missing), strings.Join(missing, ", "))
	}
	return fmt.Sprintf("%d pods missing: %s, ...", len(missing), strings.Join(missing[:show], ", "))
}
