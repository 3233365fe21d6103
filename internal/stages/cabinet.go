package stages

import (
	"context"
	"errors"
	"fmt"

	"github.com/Cray-HPE/sat-sub000/internal/config"
	"github.com/Cray-HPE/sat-sub000/internal/orchestrator"
	"github.com/Cray-HPE/sat-sub000/internal/platform/capmc"
	"github.com/Cray-HPE/sat-sub000/internal/waitfor"
)

// cabinetShutdown suspends periodic hardware discovery and powers compute
// cabinets off, waiting until the power control service confirms every
// cabinet reached Off.
func cabinetShutdown(sc *orchestrator.Context) error {
	if err := sc.Inventory.SuspendDiscovery(sc); err != nil {
		return fmt.Errorf("suspend hardware discovery: %w", err)
	}
	return cabinetPower(sc, capmc.StateOff)
}

// cabinetBoot waits for fabric routes, resumes hardware discovery, and
// powers compute cabinets back on.
func cabinetBoot(sc *orchestrator.Context) error {
	fabricTimeout := sc.Timeout(config.TimeoutFabric)
	err := waitfor.Wait(sc, waitfor.Spec{
		Name:     "fabric routes to be established",
		Interval: pollInterval,
		Timeout:  fabricTimeout,
		Check: func(ctx context.Context) (bool, string, error) {
			return sc.Fabric.RoutesEstablished(ctx)
		},
	})
	if err != nil {
		return err
	}

	if err := sc.Inventory.ResumeDiscovery(sc); err != nil {
		return fmt.Errorf("resume hardware discovery: %w", err)
	}
	return cabinetPower(sc, capmc.StateOn)
}

func cabinetPower(sc *orchestrator.Context, desired capmc.State) error {
	cabinets, err := sc.Inventory.Cabinets(sc)
	if err != nil {
		return fmt.Errorf("list cabinets: %w", err)
	}
	if len(cabinets) == 0 {
		return orchestrator.Skip("no cabinets in inventory")
	}

	states, err := sc.Power.QueryPower(sc, cabinets)
	if err != nil {
		return fmt.Errorf("query cabinet power: %w", err)
	}

	var pending []string
	for _, cabinet := range cabinets {
		if states[cabinet] != desired {
			pending = append(pending, cabinet)
		}
	}
	if len(pending) == 0 {
		return orchestrator.Skip("all %d cabinets already %s", len(cabinets), desired)
	}

	rejected, err := sc.Power.SetPower(sc, pending, desired)
	if err != nil {
		return err
	}
	for cabinet, rejection := range rejected {
		return fmt.Errorf("power %s rejected for %s: %w", desired, cabinet, rejection)
	}

	timeout := sc.Timeout(config.TimeoutCAPMC)
	var lastStates map[string]capmc.State
	err = waitfor.Wait(sc, waitfor.Spec{
		Name:     fmt.Sprintf("cabinets to reach power state %s", desired),
		Interval: pollInterval,
		Timeout:  timeout,
		Check: func(ctx context.Context) (bool, string, error) {
			current, err := sc.Power.QueryPower(ctx, pending)
			if err != nil {
				return false, "", err
			}
			lastStates = current

			reached := 0
			for _, cabinet := range pending {
				if current[cabinet] == desired {
					reached++
				}
			}
			return reached == len(pending), fmt.Sprintf("%d/%d cabinets %s", reached, len(pending), desired), nil
		},
	})

	var timedOut *waitfor.TimeoutError
	if errors.As(err, &timedOut) {
		notReached := make(map[string]string)
		for _, cabinet := range pending {
			if lastStates[cabinet] != desired {
				notReached[cabinet] = string(lastStates[cabinet])
			}
		}
		return &orchestrator.NodeTimeoutError{
			Op:      fmt.Sprintf("cabinet power %s", desired),
			Timeout: timeout,
			Pending: notReached,
		}
	}
	return err
}
