package handlers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cray-HPE/sat-sub000/internal/config"
	"github.com/Cray-HPE/sat-sub000/internal/orchestrator"
	"github.com/Cray-HPE/sat-sub000/internal/platform/k8s"
	"github.com/Cray-HPE/sat-sub000/internal/platform/ssh"
	"github.com/Cray-HPE/sat-sub000/internal/snapshot"
)

type nopObserver struct{}

func (nopObserver) Printf(string, ...any)    {}
func (nopObserver) Event(orchestrator.Event) {}

type nopScheduler struct{}

func (nopScheduler) ListPods(context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}
func (nopScheduler) WaitHealthy(context.Context, time.Duration) error { return nil }

type nopStore struct{}

func (nopStore) Save(context.Context, *snapshot.Snapshot) error { return nil }
func (nopStore) Load(context.Context) (*snapshot.Snapshot, error) {
	return nil, snapshot.ErrNoSnapshot
}

func testConfig() *config.Config {
	return &config.Config{
		LocalNCN: "ncn-m001",
		CephMon:  "ncn-s001",
		SSH:      config.SSHConfig{User: "root", BMCSuffix: "-mgmt"},
	}
}

// swapFactories installs inert adapters and restores the originals on
// cleanup.
func swapFactories(t *testing.T, cfg *config.Config, registry orchestrator.Registry) *string {
	t.Helper()

	origLoad := loadConfigFile
	origRegistry := newRegistry
	origGate := newGate
	origObserver := newObserver
	origSSH := newSSHRunner
	origSched := newScheduler
	origStore := newSnapshotStore
	origPrintf := printf
	t.Cleanup(func() {
		loadConfigFile = origLoad
		newRegistry = origRegistry
		newGate = origGate
		newObserver = origObserver
		newSSHRunner = origSSH
		newScheduler = origSched
		newSnapshotStore = origStore
		printf = origPrintf
	})

	loadConfigFile = func(string) (*config.Config, error) { return cfg, nil }
	newRegistry = func() orchestrator.Registry { return registry }
	newGate = func() orchestrator.ConfirmationGate { return orchestrator.StaticGate{Answer: true} }
	newObserver = func() orchestrator.Observer { return nopObserver{} }
	newSSHRunner = func(string, string) (*ssh.Runner, error) { return nil, nil }
	newScheduler = func(string) (k8s.Scheduler, error) { return nopScheduler{}, nil }
	newSnapshotStore = func(context.Context, config.S3Config) (snapshot.Store, error) {
		return nopStore{}, nil
	}

	var output string
	printf = func(format string, args ...any) (int, error) {
		output += fmt.Sprintf(format, args...)
		return 0, nil
	}
	return &output
}

func singleStageRegistry(err error) orchestrator.Registry {
	return orchestrator.Registry{
		orchestrator.ActionShutdown: {
			{Name: "only-stage", Ordinal: 0, Run: func(*orchestrator.Context) error { return err }},
		},
	}
}

func TestRun_Success(t *testing.T) {
	output := swapFactories(t, testConfig(), singleStageRegistry(nil))

	err := Run(context.Background(), orchestrator.ActionShutdown, Options{})
	require.NoError(t, err)
	assert.Contains(t, *output, "only-stage")
	assert.Contains(t, *output, "succeeded")
}

func TestRun_StageFailureBecomesExitError(t *testing.T) {
	output := swapFactories(t, testConfig(), singleStageRegistry(errors.New("boom")))

	err := Run(context.Background(), orchestrator.ActionShutdown, Options{})
	var exit *ExitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 10, exit.Code)
	assert.Contains(t, *output, "failed")
}

func TestRun_ListStagesTouchesNothing(t *testing.T) {
	output := swapFactories(t, testConfig(), singleStageRegistry(nil))

	// Any attempt to load configuration means the short-circuit failed.
	loadConfigFile = func(string) (*config.Config, error) {
		t.Fatal("config must not be loaded for --list-stages")
		return nil, nil
	}

	err := Run(context.Background(), orchestrator.ActionShutdown, Options{ListStages: true})
	require.NoError(t, err)
	assert.Contains(t, *output, "only-stage")
}

func TestRun_ConfigLoadErrorPropagates(t *testing.T) {
	swapFactories(t, testConfig(), singleStageRegistry(nil))
	loadConfigFile = func(string) (*config.Config, error) {
		return nil, errors.New("no such file")
	}

	err := Run(context.Background(), orchestrator.ActionShutdown, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such file")
}

func TestRun_BadTimeoutOverrideIsUsageError(t *testing.T) {
	swapFactories(t, testConfig(), singleStageRegistry(nil))

	err := Run(context.Background(), orchestrator.ActionShutdown, Options{
		TimeoutOverrides: map[string]int{"warp-core": 10},
	})
	require.Error(t, err)
	var exit *ExitError
	assert.False(t, errors.As(err, &exit))
}

func TestRun_UnknownStageIsUsageError(t *testing.T) {
	swapFactories(t, testConfig(), singleStageRegistry(nil))

	err := Run(context.Background(), orchestrator.ActionShutdown, Options{Stage: "warp-drive"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warp-drive")
}

func TestExitError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "exit status 4", (&ExitError{Code: 4}).Error())
	assert.Equal(t, "cancelled", (&ExitError{Code: 4, Message: "cancelled"}).Error())
}
