package orchestrator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Cray-HPE/sat-sub000/internal/platform/sessions"
)

// Exit codes. The mapping is part of the CLI contract and must stay stable.
const (
	// ExitOK: every planned stage succeeded or was skipped as already done.
	ExitOK = 0
	// ExitUsage: invalid option combination or unknown stage/action.
	ExitUsage = 2
	// ExitActiveSessions: the session check found work in flight and the
	// plan aborted before any mutation.
	ExitActiveSessions = 3
	// ExitCancelled: the operator declined confirmation or interrupted
	// the run.
	ExitCancelled = 4
	// exitStageBase + ordinal: the stage at that position in its pipeline
	// failed or timed out.
	exitStageBase = 10
)

// Report is the final account of one run: every stage in the plan with its
// terminal status, plus the active-session findings when the plan aborted
// on them.
type Report struct {
	Action         Action
	Results        []*StageResult
	ActiveSessions []sessions.Session
	Cancelled      bool
}

// ExitCode computes the process exit status for this report.
func (r *Report) ExitCode() int {
	if len(r.ActiveSessions) > 0 {
		return ExitActiveSessions
	}
	if r.Cancelled {
		return ExitCancelled
	}
	for _, result := range r.Results {
		if result.Status == StatusFailed || result.Status == StatusTimedOut {
			return exitStageBase + result.Stage.Ordinal
		}
	}
	return ExitOK
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	detailStyle  = lipgloss.NewStyle().Faint(true)
)

func statusStyle(status Status) lipgloss.Style {
	switch status {
	case StatusSucceeded:
		return successStyle
	case StatusFailed, StatusTimedOut:
		return failureStyle
	default:
		return skippedStyle
	}
}

// Render formats the report for the operator.
func (r *Report) Render() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("bootsys %s report", r.Action)))
	b.WriteString("\n")

	if len(r.ActiveSessions) > 0 {
		b.WriteString(failureStyle.Render("Aborted: active sessions found, nothing was changed."))
		b.WriteString("\n")
		for _, session := range r.ActiveSessions {
			b.WriteString("  " + session.String() + "\n")
		}
		b.WriteString("\n")
	}

	nameWidth := 0
	for _, result := range r.Results {
		if len(result.Stage.Name) > nameWidth {
			nameWidth = len(result.Stage.Name)
		}
	}

	for _, result := range r.Results {
		line := fmt.Sprintf("  %-*s  %s", nameWidth, result.Stage.Name,
			statusStyle(result.Status).Render(string(result.Status)))
		if d := result.Duration(); d > 0 {
			line += detailStyle.Render(fmt.Sprintf("  (%v)", d.Round(10*time.Millisecond)))
		}
		b.WriteString(line + "\n")
		if result.Detail != "" {
			b.WriteString(detailStyle.Render("      "+result.Detail) + "\n")
		}
	}

	return b.String()
}

// RenderStageList formats the ordered stage names for --list-stages.
func RenderStageList(registry Registry, action Action) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Stages for %s:", action)))
	b.WriteString("\n")
	for _, stage := range registry.Stages(action) {
		marker := " "
		if stage.Disruptive {
			marker = "*"
		}
		b.WriteString(fmt.Sprintf("  %d. %s %s\n", stage.Ordinal+1, marker, stage.Name))
		if len(stage.DefaultTimeouts) > 0 {
			names := make([]string, 0, len(stage.DefaultTimeouts))
			for name := range stage.DefaultTimeouts {
				names = append(names, name)
			}
			sort.Strings(names)
			parts := make([]string, 0, len(names))
			for _, name := range names {
				parts = append(parts, fmt.Sprintf("%s=%v", name, stage.DefaultTimeouts[name]))
			}
			b.WriteString(detailStyle.Render("       timeouts: "+strings.Join(parts, ", ")) + "\n")
		}
	}
	b.WriteString(detailStyle.Render("  (* = disruptive, prompts for confirmation)"))
	b.WriteString("\n")
	return b.String()
}
