package orchestrator

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// ConfirmationGate decides whether a disruptive stage may proceed. One
// implementation prompts at the terminal; tests use StaticGate so
// orchestration logic runs without a TTY.
type ConfirmationGate interface {
	// Confirm blocks for operator approval of the named stage. A false
	// return cancels the rest of the plan.
	Confirm(action Action, stage string) (bool, error)
}

// TerminalGate asks for confirmation on the controlling terminal.
type TerminalGate struct{}

// Confirm implements ConfirmationGate. Without a TTY there is nobody to
// ask, so the gate refuses rather than assuming consent; --disruptive is
// the non-interactive path.
func (TerminalGate) Confirm(action Action, stage string) (bool, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return false, fmt.Errorf("stage %s is disruptive and stdin is not a terminal; re-run with --disruptive to skip confirmation", stage)
	}

	var approved bool
	confirm := huh.NewConfirm().
		Title(fmt.Sprintf("Stage %s of the %s action is disruptive.", stage, action)).
		Description("It can affect running workloads and system availability.").
		Affirmative("Proceed").
		Negative("Cancel").
		Value(&approved)

	if err := huh.NewForm(huh.NewGroup(confirm)).Run(); err != nil {
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	return approved, nil
}

// StaticGate returns a fixed answer. Used by tests and could back a future
// assume-yes mode.
type StaticGate struct {
	Answer bool
}

// Confirm implements ConfirmationGate.
func (g StaticGate) Confirm(Action, string) (bool, error) {
	return g.Answer, nil
}
