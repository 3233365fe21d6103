package stages

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Cray-HPE/sat-sub000/internal/config"
	"github.com/Cray-HPE/sat-sub000/internal/orchestrator"
	"github.com/Cray-HPE/sat-sub000/internal/platform/capmc"
	"github.com/Cray-HPE/sat-sub000/internal/targets"
	"github.com/Cray-HPE/sat-sub000/internal/util/async"
	"github.com/Cray-HPE/sat-sub000/internal/waitfor"
)

// Shutdown drains workers first so pods stop cleanly, then storage, then
// masters. Boot reverses the order.
var (
	shutdownOrder = []string{"Worker", "Storage", "Master"}
	bootOrder     = []string{"Master", "Storage", "Worker"}
)

// ncnShutdown powers off management nodes group by group. Each node gets a
// console monitoring session, a graceful OS shutdown, and a forced BMC
// power-off if the OS does not halt within the timeout.
func ncnShutdown(sc *orchestrator.Context) error {
	timeout := sc.Timeout(config.TimeoutNCNShutdown)
	var acted atomic.Int64

	for _, subRole := range shutdownOrder {
		nodes, err := nodeGroup(sc, subRole)
		if err != nil {
			return err
		}
		if len(nodes) == 0 {
			continue
		}

		errs := async.ForEach(sc, nodes, sc.FanoutLimit(), func(ctx context.Context, node string) error {
			state, err := sc.Console.PowerStatus(ctx, node)
			if err != nil {
				return fmt.Errorf("power status of %s: %w", node, err)
			}
			if state == capmc.StateOff {
				sc.Observer.Event(orchestrator.Event{
					Type:    orchestrator.EventNodeProgress,
					Node:    node,
					Message: "already powered off",
				})
				return nil
			}
			acted.Add(1)
			return shutdownNode(sc, ctx, node, timeout)
		})
		if err := fanoutError(fmt.Sprintf("shut down %s nodes", subRole), timeout, errs); err != nil {
			return err
		}
	}

	if acted.Load() == 0 {
		return orchestrator.Skip("all management nodes already powered off")
	}
	return nil
}

func shutdownNode(sc *orchestrator.Context, ctx context.Context, node string, timeout time.Duration) error {
	session, err := sc.Console.OpenConsole(ctx, node)
	if err != nil {
		sc.Warnf("no console session for %s: %v", node, err)
	} else {
		defer session.Close()
	}

	if err := sc.Console.GracefulShutdown(ctx, node); err != nil {
		return err
	}
	sc.Observer.Event(orchestrator.Event{
		Type:    orchestrator.EventNodeProgress,
		Node:    node,
		Message: "graceful shutdown requested",
	})

	err = waitForPowerState(ctx, sc, node, capmc.StateOff, timeout)
	var timedOut *waitfor.TimeoutError
	if !errors.As(err, &timedOut) {
		return err
	}

	// The OS did not halt in time. Force the node off through its BMC and
	// give it one more window.
	sc.Warnf("%s did not halt within %s, forcing power off", node, timeout)
	if err := sc.Console.PowerOff(ctx, node); err != nil {
		return err
	}
	sc.Observer.Event(orchestrator.Event{
		Type:    orchestrator.EventNodeProgress,
		Node:    node,
		Message: "forced power off",
	})
	return waitForPowerState(ctx, sc, node, capmc.StateOff, timeout)
}

// ncnBoot powers management nodes on group by group and waits for each
// node's OS to answer over SSH.
func ncnBoot(sc *orchestrator.Context) error {
	timeout := sc.Timeout(config.TimeoutNCNBoot)
	var acted atomic.Int64

	for _, subRole := range bootOrder {
		nodes, err := nodeGroup(sc, subRole)
		if err != nil {
			return err
		}
		if len(nodes) == 0 {
			continue
		}

		errs := async.ForEach(sc, nodes, sc.FanoutLimit(), func(ctx context.Context, node string) error {
			state, err := sc.Console.PowerStatus(ctx, node)
			if err != nil {
				return fmt.Errorf("power status of %s: %w", node, err)
			}
			if state == capmc.StateOn && sc.Console.Reachable(ctx, node) {
				sc.Observer.Event(orchestrator.Event{
					Type:    orchestrator.EventNodeProgress,
					Node:    node,
					Message: "already up",
				})
				return nil
			}
			acted.Add(1)
			return bootNode(sc, ctx, node, state, timeout)
		})
		if err := fanoutError(fmt.Sprintf("boot %s nodes", subRole), timeout, errs); err != nil {
			return err
		}
	}

	if acted.Load() == 0 {
		return orchestrator.Skip("all management nodes already up")
	}
	return nil
}

func bootNode(sc *orchestrator.Context, ctx context.Context, node string, state capmc.State, timeout time.Duration) error {
	session, err := sc.Console.OpenConsole(ctx, node)
	if err != nil {
		sc.Warnf("no console session for %s: %v", node, err)
	} else {
		defer session.Close()
	}

	if state != capmc.StateOn {
		if err := sc.Console.PowerOn(ctx, node); err != nil {
			return err
		}
		sc.Observer.Event(orchestrator.Event{
			Type:    orchestrator.EventNodeProgress,
			Node:    node,
			Message: "powered on",
		})
	}

	return waitfor.Wait(ctx, waitfor.Spec{
		Name:     fmt.Sprintf("%s to answer over ssh", node),
		Interval: pollInterval,
		Timeout:  timeout,
		Check: func(ctx context.Context) (bool, string, error) {
			if sc.Console.Reachable(ctx, node) {
				return true, "reachable", nil
			}
			return false, "not reachable", nil
		},
	})
}

func waitForPowerState(ctx context.Context, sc *orchestrator.Context, node string, desired capmc.State, timeout time.Duration) error {
	return waitfor.Wait(ctx, waitfor.Spec{
		Name:     fmt.Sprintf("%s to power %s", node, desired),
		Interval: pollInterval,
		Timeout:  timeout,
		Check: func(ctx context.Context) (bool, string, error) {
			state, err := sc.Console.PowerStatus(ctx, node)
			if err != nil {
				return false, "", err
			}
			return state == desired, string(state), nil
		},
	})
}

func nodeGroup(sc *orchestrator.Context, subRole string) ([]string, error) {
	set, err := sc.Resolver.Resolve(sc, targets.Scope{
		SubRoles:     []string{subRole},
		Exclude:      sc.Options.ExcludedNCNs,
		ExcludeLocal: true,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve %s nodes: %w", subRole, err)
	}
	return set.Members(), nil
}
