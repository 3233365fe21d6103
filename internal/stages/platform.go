package stages

import (
	"context"
	"errors"
	"fmt"

	"github.com/Cray-HPE/sat-sub000/internal/config"
	"github.com/Cray-HPE/sat-sub000/internal/orchestrator"
	"github.com/Cray-HPE/sat-sub000/internal/targets"
	"github.com/Cray-HPE/sat-sub000/internal/util/async"
	"github.com/Cray-HPE/sat-sub000/internal/waitfor"
)

var platformServices = []string{"kubelet", "containerd"}

// platformShutdown freezes the storage cluster and stops the container
// runtime services on every management node except the one running this
// command.
func platformShutdown(sc *orchestrator.Context) error {
	ncns, err := managementNodes(sc)
	if err != nil {
		return err
	}

	if err := sc.Storage.Freeze(sc); err != nil {
		return fmt.Errorf("freeze storage cluster: %w", err)
	}

	errs := async.ForEach(sc, ncns, sc.FanoutLimit(), func(ctx context.Context, node string) error {
		for _, service := range platformServices {
			if err := sc.Console.StopService(ctx, node, service); err != nil {
				return fmt.Errorf("stop %s: %w", service, err)
			}
			sc.Observer.Event(orchestrator.Event{
				Type:    orchestrator.EventNodeProgress,
				Node:    node,
				Message: fmt.Sprintf("stopped %s", service),
			})
		}
		return nil
	})
	return fanoutError("stop platform services", sc.Timeout(config.TimeoutK8s), errs)
}

// platformBoot restarts the container runtime services, unfreezes the
// storage cluster, and waits for storage and scheduler health.
func platformBoot(sc *orchestrator.Context) error {
	ncns, err := managementNodes(sc)
	if err != nil {
		return err
	}

	// Start order is the reverse of the stop order so the runtime is up
	// before the kubelet tries to launch pods.
	errs := async.ForEach(sc, ncns, sc.FanoutLimit(), func(ctx context.Context, node string) error {
		for i := len(platformServices) - 1; i >= 0; i-- {
			service := platformServices[i]
			if err := sc.Console.StartService(ctx, node, service); err != nil {
				return fmt.Errorf("start %s: %w", service, err)
			}
			sc.Observer.Event(orchestrator.Event{
				Type:    orchestrator.EventNodeProgress,
				Node:    node,
				Message: fmt.Sprintf("started %s", service),
			})
		}
		return nil
	})
	if err := fanoutError("start platform services", sc.Timeout(config.TimeoutK8s), errs); err != nil {
		return err
	}

	if err := sc.Storage.Unfreeze(sc); err != nil {
		return fmt.Errorf("unfreeze storage cluster: %w", err)
	}

	err = waitfor.Wait(sc, waitfor.Spec{
		Name:     "storage cluster health",
		Interval: pollInterval,
		Timeout:  sc.Timeout(config.TimeoutCeph),
		Check: func(ctx context.Context) (bool, string, error) {
			return sc.Storage.IsHealthy(ctx)
		},
	})
	if err != nil {
		return err
	}

	k8sTimeout := sc.Timeout(config.TimeoutK8s)
	if err := sc.Sched.WaitHealthy(sc, k8sTimeout); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &waitfor.TimeoutError{Name: "kubernetes node readiness", Timeout: k8sTimeout}
		}
		return fmt.Errorf("kubernetes node readiness: %w", err)
	}
	return nil
}

// managementNodes resolves all management roles, excluding the local node
// and any operator-excluded nodes.
func managementNodes(sc *orchestrator.Context) ([]string, error) {
	set, err := sc.Resolver.Resolve(sc, targets.Scope{
		Roles:        []string{"Management"},
		Exclude:      sc.Options.ExcludedNCNs,
		ExcludeLocal: true,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve management nodes: %w", err)
	}
	if set.Len() == 0 {
		return nil, orchestrator.Skip("no remote management nodes to act on")
	}
	return set.Members(), nil
}
