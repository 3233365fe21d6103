package stages

import (
	"context"
	"fmt"

	"github.com/Cray-HPE/sat-sub000/internal/config"
	"github.com/Cray-HPE/sat-sub000/internal/orchestrator"
	"github.com/Cray-HPE/sat-sub000/internal/platform/bos"
	"github.com/Cray-HPE/sat-sub000/internal/platform/capmc"
	"github.com/Cray-HPE/sat-sub000/internal/util/async"
	"github.com/Cray-HPE/sat-sub000/internal/waitfor"
)

func bosShutdown(sc *orchestrator.Context) error {
	return runBOSOperations(sc, bos.OperationShutdown, config.TimeoutBOSShutdown)
}

func bosBoot(sc *orchestrator.Context) error {
	return runBOSOperations(sc, bos.OperationBoot, config.TimeoutBOSBoot)
}

// bosReboot always issues a shutdown-then-boot regardless of current power
// state; it deliberately performs no already-on/already-off skip check.
func bosReboot(sc *orchestrator.Context) error {
	return runBOSOperations(sc, bos.OperationReboot, config.TimeoutBOSBoot)
}

// runBOSOperations drives compute and application nodes through the boot
// orchestration service: one session per configured template, all waited on
// in parallel. For boot and shutdown, templates whose nodes are already in
// the desired power state are skipped so no duplicate power commands are
// issued.
func runBOSOperations(sc *orchestrator.Context, op bos.Operation, timeoutName string) error {
	templates := sc.Options.Templates(sc.Config)
	if len(templates) == 0 {
		return fmt.Errorf("no BOS session templates configured; set bos_templates or pass --bos-templates")
	}

	needed := templates
	if op != bos.OperationReboot {
		var err error
		needed, err = templatesNeedingWork(sc, templates, op)
		if err != nil {
			return err
		}
		if len(needed) == 0 {
			return orchestrator.Skip("all nodes in templates %v already %s", templates, desiredState(op))
		}
	}

	sessionsByTemplate := make(map[string]string, len(needed))
	for _, template := range needed {
		id, err := sc.Boot.LaunchSession(sc, template, op, sc.Options.BOSLimit)
		if err != nil {
			return err
		}
		sc.Observer.Event(orchestrator.Event{
			Type:    orchestrator.EventNodeProgress,
			Stage:   StageBOSOperations,
			Message: fmt.Sprintf("launched %s session %s for template %s", op, id, template),
		})
		sessionsByTemplate[template] = id
	}

	timeout := sc.Timeout(timeoutName)
	errs := async.ForEach(sc, needed, sc.FanoutLimit(), func(ctx context.Context, template string) error {
		id := sessionsByTemplate[template]
		return waitfor.Wait(ctx, waitfor.Spec{
			Name:     fmt.Sprintf("BOS session %s (%s)", id, template),
			Interval: pollInterval,
			Timeout:  timeout,
			Check: func(ctx context.Context) (bool, string, error) {
				status, err := sc.Boot.QuerySession(ctx, id)
				if err != nil {
					return false, "", err
				}
				if status.InDanger {
					return false, "", fmt.Errorf("session %s reported failure: %s", id, status.Error)
				}
				if status.Complete {
					return true, "", nil
				}
				return false, "session in progress", nil
			},
		})
	})
	return fanoutError(fmt.Sprintf("BOS %s", op), timeout, errs)
}

// templatesNeedingWork filters out templates whose nodes are all already in
// the operation's desired power state.
func templatesNeedingWork(sc *orchestrator.Context, templates []string, op bos.Operation) ([]string, error) {
	desired := desiredState(op)

	var needed []string
	for _, template := range templates {
		nodes, err := sc.Boot.TemplateTargets(sc, template)
		if err != nil {
			return nil, err
		}
		if len(nodes) == 0 {
			sc.Warnf("template %s addresses no nodes, skipping it", template)
			continue
		}

		states, err := sc.Power.QueryPower(sc, nodes)
		if err != nil {
			return nil, fmt.Errorf("query power for template %s: %w", template, err)
		}

		done := 0
		for _, node := range nodes {
			if states[node] == desired {
				done++
			}
		}
		if done == len(nodes) {
			sc.Observer.Printf("template %s: all %d nodes already %s", template, len(nodes), desired)
			continue
		}
		needed = append(needed, template)
	}
	return needed, nil
}

func desiredState(op bos.Operation) capmc.State {
	if op == bos.OperationShutdown {
		return capmc.StateOff
	}
	return capmc.StateOn
}
