package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cray-HPE/sat-sub000/internal/config"
	"github.com/Cray-HPE/sat-sub000/internal/platform/sessions"
	"github.com/Cray-HPE/sat-sub000/internal/waitfor"
)

// recordingObserver collects events for assertions.
type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *recordingObserver) Printf(string, ...any) {}

func (o *recordingObserver) Event(event Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) typesFor(stage string) []EventType {
	o.mu.Lock()
	defer o.mu.Unlock()
	var types []EventType
	for _, e := range o.events {
		if e.Stage == stage {
			types = append(types, e.Type)
		}
	}
	return types
}

func testContext(opts *config.RunOptions) *Context {
	if opts == nil {
		opts = &config.RunOptions{Timeouts: config.DefaultTimeouts()}
	}
	if opts.Timeouts == nil {
		opts.Timeouts = config.DefaultTimeouts()
	}
	return &Context{
		Context:  context.Background(),
		Options:  opts,
		Observer: &recordingObserver{},
	}
}

// pipeline builds a three-stage test registry whose middle stage is
// disruptive and whose stages record their execution.
func pipeline(ran *[]string, middle func(*Context) error) Registry {
	record := func(name string, body func(*Context) error) func(*Context) error {
		return func(sc *Context) error {
			*ran = append(*ran, name)
			if body != nil {
				return body(sc)
			}
			return nil
		}
	}
	return Registry{
		ActionShutdown: {
			{Name: "first", Ordinal: 0, Run: record("first", nil)},
			{Name: "second", Ordinal: 1, RequiresPriorSuccess: true, Disruptive: true, Run: record("second", middle)},
			{Name: "third", Ordinal: 2, RequiresPriorSuccess: true, Run: record("third", nil)},
		},
	}
}

func run(t *testing.T, registry Registry, sc *Context) *Report {
	t.Helper()
	observer := &recordingObserver{}
	report, err := New(registry, StaticGate{Answer: true}, observer).Run(sc, ActionShutdown)
	require.NoError(t, err)
	return report
}

func TestRun_AllStagesSucceed(t *testing.T) {
	t.Parallel()

	var ran []string
	sc := testContext(&config.RunOptions{Disruptive: true})
	report := run(t, pipeline(&ran, nil), sc)

	assert.Equal(t, []string{"first", "second", "third"}, ran)
	assert.Equal(t, ExitOK, report.ExitCode())
	for _, result := range report.Results {
		assert.Equal(t, StatusSucceeded, result.Status)
	}
}

func TestRun_FailureAbortsRemainingStages(t *testing.T) {
	t.Parallel()

	var ran []string
	sc := testContext(&config.RunOptions{Disruptive: true})
	report := run(t, pipeline(&ran, func(*Context) error {
		return errors.New("power command rejected")
	}), sc)

	assert.Equal(t, []string{"first", "second"}, ran)
	assert.Equal(t, StatusFailed, report.Results[1].Status)
	assert.Equal(t, StatusSkipped, report.Results[2].Status)

	// Exit code points at the failed stage's position.
	assert.Equal(t, 11, report.ExitCode())
}

func TestRun_TimeoutClassification(t *testing.T) {
	t.Parallel()

	var ran []string
	sc := testContext(&config.RunOptions{Disruptive: true})
	report := run(t, pipeline(&ran, func(*Context) error {
		return &waitfor.TimeoutError{Name: "cabinets off", Timeout: time.Minute}
	}), sc)

	assert.Equal(t, StatusTimedOut, report.Results[1].Status)
	assert.Equal(t, 11, report.ExitCode())
}

func TestRun_NodeTimeoutClassification(t *testing.T) {
	t.Parallel()

	var ran []string
	sc := testContext(&config.RunOptions{Disruptive: true})
	report := run(t, pipeline(&ran, func(*Context) error {
		return &NodeTimeoutError{
			Op:      "shut down Worker nodes",
			Timeout: time.Minute,
			Pending: map[string]string{"ncn-w001": "on"},
		}
	}), sc)

	assert.Equal(t, StatusTimedOut, report.Results[1].Status)
	assert.Contains(t, report.Results[1].Detail, "ncn-w001")
}

func TestRun_SkipCountsAsSuccessForDependents(t *testing.T) {
	t.Parallel()

	var ran []string
	sc := testContext(&config.RunOptions{Disruptive: true})
	report := run(t, pipeline(&ran, func(*Context) error {
		return Skip("all cabinets already off")
	}), sc)

	assert.Equal(t, []string{"first", "second", "third"}, ran)
	assert.Equal(t, StatusSkipped, report.Results[1].Status)
	assert.Equal(t, "all cabinets already off", report.Results[1].Detail)
	assert.Equal(t, StatusSucceeded, report.Results[2].Status)
	assert.Equal(t, ExitOK, report.ExitCode())
}

func TestRun_ActiveSessionsAbort(t *testing.T) {
	t.Parallel()

	found := []sessions.Session{{Service: "bos", ID: "session-1", Status: "running"}}
	var ran []string
	sc := testContext(&config.RunOptions{Disruptive: true})
	report := run(t, pipeline(&ran, func(*Context) error {
		return &PreconditionError{Reason: "active sessions found", Sessions: found}
	}), sc)

	assert.Equal(t, StatusFailed, report.Results[1].Status)
	assert.Equal(t, StatusSkipped, report.Results[2].Status)
	assert.Equal(t, found, report.ActiveSessions)
	assert.Equal(t, ExitActiveSessions, report.ExitCode())
}

func TestRun_GateDeclineCancelsPlan(t *testing.T) {
	t.Parallel()

	var ran []string
	registry := pipeline(&ran, nil)
	sc := testContext(&config.RunOptions{})

	report, err := New(registry, StaticGate{Answer: false}, &recordingObserver{}).Run(sc, ActionShutdown)
	require.NoError(t, err)

	// The disruptive stage and everything after it never ran.
	assert.Equal(t, []string{"first"}, ran)
	assert.Equal(t, StatusSkipped, report.Results[1].Status)
	assert.Equal(t, StatusSkipped, report.Results[2].Status)
	assert.True(t, report.Cancelled)
	assert.Equal(t, ExitCancelled, report.ExitCode())
}

func TestRun_DisruptiveFlagBypassesGate(t *testing.T) {
	t.Parallel()

	var ran []string
	registry := pipeline(&ran, nil)
	sc := testContext(&config.RunOptions{Disruptive: true})

	// A gate that always declines must never be consulted.
	report, err := New(registry, StaticGate{Answer: false}, &recordingObserver{}).Run(sc, ActionShutdown)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second", "third"}, ran)
	assert.Equal(t, ExitOK, report.ExitCode())
}

func TestRun_SingleStageBypassesDependencies(t *testing.T) {
	t.Parallel()

	var ran []string
	registry := pipeline(&ran, nil)
	sc := testContext(&config.RunOptions{Stage: "third", Disruptive: true})

	report, err := New(registry, StaticGate{Answer: true}, &recordingObserver{}).Run(sc, ActionShutdown)
	require.NoError(t, err)

	assert.Equal(t, []string{"third"}, ran)
	require.Len(t, report.Results, 1)
	assert.Equal(t, StatusSucceeded, report.Results[0].Status)
}

func TestRun_UnknownStageIsUsageError(t *testing.T) {
	t.Parallel()

	var ran []string
	registry := pipeline(&ran, nil)
	sc := testContext(&config.RunOptions{Stage: "warp-drive"})

	_, err := New(registry, StaticGate{Answer: true}, &recordingObserver{}).Run(sc, ActionShutdown)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warp-drive")
	assert.Empty(t, ran)
}

func TestRun_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	sc := testContext(&config.RunOptions{Disruptive: true})
	sc.Context = ctx

	var ran []string
	report := run(t, pipeline(&ran, func(*Context) error {
		cancel()
		return ctx.Err()
	}), sc)

	assert.Equal(t, StatusFailed, report.Results[1].Status)
	assert.True(t, report.Cancelled)
	assert.Equal(t, ExitCancelled, report.ExitCode())
}

func TestRun_EmitsStageEvents(t *testing.T) {
	t.Parallel()

	var ran []string
	registry := pipeline(&ran, nil)
	sc := testContext(&config.RunOptions{Disruptive: true})
	observer := &recordingObserver{}

	_, err := New(registry, StaticGate{Answer: true}, observer).Run(sc, ActionShutdown)
	require.NoError(t, err)

	assert.Equal(t, []EventType{EventStageStarted, EventStageSucceeded}, observer.typesFor("first"))
}
