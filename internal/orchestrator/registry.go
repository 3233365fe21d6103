package orchestrator

import (
	"fmt"
)

// Registry maps each action to its ordered stage pipeline. It is built
// statically at process start and read-only afterwards; there is no
// convention-based stage discovery.
type Registry map[Action][]*Stage

// Stages returns the ordered pipeline for action.
func (r Registry) Stages(action Action) []*Stage {
	return r[action]
}

// StageNames returns the ordered stage names for action.
func (r Registry) StageNames(action Action) []string {
	stages := r[action]
	names := make([]string, len(stages))
	for i, stage := range stages {
		names[i] = stage.Name
	}
	return names
}

// ExecutionPlan is the concrete stage selection for one invocation. It is
// built fresh per run and not persisted.
type ExecutionPlan struct {
	Action Action
	Stages []*Stage

	// SingleStage, when set, is the one stage the operator asked to run
	// in isolation.
	SingleStage *Stage
}

// Selected returns the stages that will actually execute.
func (p *ExecutionPlan) Selected() []*Stage {
	if p.SingleStage != nil {
		return []*Stage{p.SingleStage}
	}
	return p.Stages
}

// Plan builds the execution plan for action. singleStage, when non-empty,
// selects exactly that stage via the single-stage override path.
func (r Registry) Plan(action Action, singleStage string) (*ExecutionPlan, error) {
	stages, ok := r[action]
	if !ok {
		return nil, fmt.Errorf("no pipeline registered for action %q", action)
	}

	plan := &ExecutionPlan{Action: action, Stages: stages}
	if singleStage == "" {
		return plan, nil
	}

	for _, stage := range stages {
		if stage.Name == singleStage {
			plan.SingleStage = stage
			return plan, nil
		}
	}
	return nil, fmt.Errorf("action %s has no stage %q (choose from %v)", action, singleStage, r.StageNames(action))
}
