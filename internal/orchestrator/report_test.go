package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Cray-HPE/sat-sub000/internal/config"
	"github.com/Cray-HPE/sat-sub000/internal/platform/sessions"
)

func result(name string, ordinal int, status Status) *StageResult {
	return &StageResult{
		Stage:  &Stage{Name: name, Ordinal: ordinal},
		Status: status,
	}
}

func TestExitCode_Precedence(t *testing.T) {
	t.Parallel()

	// Active sessions win over everything else.
	report := &Report{
		ActiveSessions: []sessions.Session{{Service: "bos", ID: "s1", Status: "running"}},
		Cancelled:      true,
		Results:        []*StageResult{result("bos-operations", 2, StatusFailed)},
	}
	assert.Equal(t, ExitActiveSessions, report.ExitCode())

	// Cancellation wins over stage failure.
	report = &Report{
		Cancelled: true,
		Results:   []*StageResult{result("cabinet-power", 3, StatusTimedOut)},
	}
	assert.Equal(t, ExitCancelled, report.ExitCode())
}

func TestExitCode_StageOrdinal(t *testing.T) {
	t.Parallel()

	report := &Report{Results: []*StageResult{
		result("capture-state", 0, StatusSucceeded),
		result("session-checks", 1, StatusSucceeded),
		result("bos-operations", 2, StatusTimedOut),
		result("cabinet-power", 3, StatusSkipped),
	}}
	assert.Equal(t, 12, report.ExitCode())
}

func TestExitCode_SkippedIsOK(t *testing.T) {
	t.Parallel()

	report := &Report{Results: []*StageResult{
		result("capture-state", 0, StatusSucceeded),
		result("bos-operations", 2, StatusSkipped),
	}}
	assert.Equal(t, ExitOK, report.ExitCode())
}

func TestRender_IncludesStatusAndDetail(t *testing.T) {
	t.Parallel()

	failed := result("cabinet-power", 3, StatusTimedOut)
	failed.Detail = "x1000 (on)"
	failed.StartedAt = time.Now().Add(-time.Second)
	failed.FinishedAt = time.Now()

	report := &Report{
		Action:  ActionShutdown,
		Results: []*StageResult{result("capture-state", 0, StatusSucceeded), failed},
	}

	out := report.Render()
	assert.Contains(t, out, "shutdown")
	assert.Contains(t, out, "capture-state")
	assert.Contains(t, out, "timed out")
	assert.Contains(t, out, "x1000 (on)")
}

func TestRender_ActiveSessions(t *testing.T) {
	t.Parallel()

	report := &Report{
		Action:         ActionShutdown,
		ActiveSessions: []sessions.Session{{Service: "cfs", ID: "cfg-1", Status: "pending"}},
		Results:        []*StageResult{result("session-checks", 1, StatusFailed)},
	}

	out := report.Render()
	assert.Contains(t, out, "nothing was changed")
	assert.Contains(t, out, "cfs session cfg-1 (pending)")
}

func TestRenderStageList(t *testing.T) {
	t.Parallel()

	registry := Registry{
		ActionBoot: {
			{Name: "ncn-power", Ordinal: 0, Disruptive: true, DefaultTimeouts: config.TimeoutConfig{
				"ncn-boot": 40 * time.Minute,
			}},
			{Name: "k8s-check", Ordinal: 1},
		},
	}

	out := RenderStageList(registry, ActionBoot)
	assert.Contains(t, out, "1. * ncn-power")
	assert.Contains(t, out, "2.   k8s-check")
	assert.Contains(t, out, "disruptive")
	assert.Contains(t, out, "timeouts: ncn-boot=40m0s")
}
