// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command
// definitions in the commands package. Handlers are framework-agnostic and
// can be tested independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/Cray-HPE/sat-sub000/internal/config"
	"github.com/Cray-HPE/sat-sub000/internal/orchestrator"
	"github.com/Cray-HPE/sat-sub000/internal/platform/bos"
	"github.com/Cray-HPE/sat-sub000/internal/platform/capmc"
	"github.com/Cray-HPE/sat-sub000/internal/platform/ceph"
	"github.com/Cray-HPE/sat-sub000/internal/platform/console"
	"github.com/Cray-HPE/sat-sub000/internal/platform/fabric"
	"github.com/Cray-HPE/sat-sub000/internal/platform/hsm"
	"github.com/Cray-HPE/sat-sub000/internal/platform/k8s"
	"github.com/Cray-HPE/sat-sub000/internal/platform/sessions"
	"github.com/Cray-HPE/sat-sub000/internal/platform/ssh"
	"github.com/Cray-HPE/sat-sub000/internal/snapshot"
	"github.com/Cray-HPE/sat-sub000/internal/stages"
	"github.com/Cray-HPE/sat-sub000/internal/targets"
)

const consoleLogDir = "/var/log/bootsys"

// Options carries everything the shared run handler needs from the command
// line.
type Options struct {
	ConfigPath   string
	Stage        string
	ListStages   bool
	Disruptive   bool
	BOSTemplates []string
	BOSLimit     string
	ExcludedNCNs []string

	// TimeoutOverrides maps timeout names to second counts from
	// --<name>-timeout flags; zero means the flag was not given.
	TimeoutOverrides map[string]int
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	loadConfigFile = config.Load

	newRegistry = stages.DefaultRegistry

	newGate = func() orchestrator.ConfirmationGate { return orchestrator.TerminalGate{} }

	newObserver = func() orchestrator.Observer { return orchestrator.NewConsoleObserver() }

	newPowerClient = func(baseURL, token string) capmc.PowerController {
		return capmc.NewClient(baseURL, token)
	}

	newBootClient = func(baseURL, token string) bos.SessionManager {
		return bos.NewClient(baseURL, token)
	}

	newSessionChecker = func(services map[string]string, token string) sessions.Checker {
		return sessions.NewHTTPChecker(services, token)
	}

	newInventoryClient = func(baseURL, token string) hsm.Inventory {
		return hsm.NewClient(baseURL, token)
	}

	newFabricClient = func(baseURL, token string) fabric.StatusClient {
		return fabric.NewClient(baseURL, token)
	}

	newSSHRunner = ssh.NewRunner

	newScheduler = func(kubeconfig string) (k8s.Scheduler, error) {
		return k8s.NewClient(kubeconfig)
	}

	newSnapshotStore = func(ctx context.Context, s3 config.S3Config) (snapshot.Store, error) {
		return snapshot.NewS3Store(ctx, s3.Endpoint, s3.Region, s3.Bucket,
			os.Getenv(s3.AccessKeyEnv), os.Getenv(s3.SecretKeyEnv))
	}

	newNodeAccess = func(runner *ssh.Runner, bmcSuffix string) console.NodeAccess {
		return console.NewClient(runner, bmcSuffix, consoleLogDir)
	}

	newStorageChecker = func(runner ssh.CommandRunner, mon string) ceph.HealthChecker {
		return ceph.NewClient(runner, mon)
	}

	printf = fmt.Printf
)

// Run executes one lifecycle action end to end: load configuration, build
// the service adapters, run the stage pipeline, print the report, and turn
// the report's exit code into an ExitError for main.
//
// --list-stages short-circuits before any adapter is built so it never
// touches the system.
func Run(ctx context.Context, action orchestrator.Action, opts Options) error {
	registry := newRegistry()

	if opts.ListStages {
		printf("%s", orchestrator.RenderStageList(registry, action))
		return nil
	}

	cfg, err := loadConfigFile(opts.ConfigPath)
	if err != nil {
		return err
	}

	timeouts, err := config.ResolveTimeouts(opts.TimeoutOverrides)
	if err != nil {
		return err
	}

	runOpts := &config.RunOptions{
		Stage:        opts.Stage,
		Disruptive:   opts.Disruptive,
		BOSTemplates: opts.BOSTemplates,
		BOSLimit:     opts.BOSLimit,
		ExcludedNCNs: opts.ExcludedNCNs,
		Timeouts:     timeouts,
	}

	observer := newObserver()
	sc, err := buildContext(ctx, cfg, runOpts, observer)
	if err != nil {
		return err
	}

	report, err := orchestrator.New(registry, newGate(), observer).Run(sc, action)
	if err != nil {
		return err
	}

	printf("%s", report.Render())

	if code := report.ExitCode(); code != orchestrator.ExitOK {
		return &ExitError{Code: code}
	}
	return nil
}

// buildContext wires the external service adapters into a stage context.
func buildContext(ctx context.Context, cfg *config.Config, opts *config.RunOptions, observer orchestrator.Observer) (*orchestrator.Context, error) {
	token := cfg.APIToken()

	runner, err := newSSHRunner(cfg.SSH.User, cfg.SSH.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("ssh access: %w", err)
	}

	sched, err := newScheduler(cfg.Kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("kubernetes access: %w", err)
	}

	store, err := newSnapshotStore(ctx, cfg.S3)
	if err != nil {
		return nil, fmt.Errorf("snapshot storage: %w", err)
	}

	policy, err := snapshot.PolicyByName(cfg.PodComparePolicy)
	if err != nil {
		return nil, err
	}

	inventory := newInventoryClient(cfg.Services.HSM, token)

	mon := cfg.CephMon
	if mon == "" {
		storageNodes, err := inventory.NodesBySubRole(ctx, "Storage")
		if err != nil {
			return nil, fmt.Errorf("locate storage monitor host: %w", err)
		}
		if len(storageNodes) == 0 {
			return nil, fmt.Errorf("no storage nodes in inventory and ceph_mon not configured")
		}
		mon = storageNodes[0]
	}

	sc := &orchestrator.Context{
		Context: ctx,
		Config:  cfg,
		Options: opts,

		Power:     newPowerClient(cfg.Services.CAPMC, token),
		Boot:      newBootClient(cfg.Services.BOS, token),
		Sessions:  newSessionChecker(cfg.Services.Sessions, token),
		Sched:     sched,
		Storage:   newStorageChecker(runner, mon),
		Fabric:    newFabricClient(cfg.Services.Fabric, token),
		Console:   newNodeAccess(runner, cfg.SSH.BMCSuffix),
		Inventory: inventory,

		Snapshots: store,
		Policy:    policy,

		Observer: observer,
	}
	sc.Resolver = targets.NewResolver(inventory, cfg.LocalNCN, sc.Warnf)
	return sc, nil
}
