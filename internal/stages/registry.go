// Package stages defines the stage bodies for the boot, shutdown, and
// reboot pipelines and assembles them into the static stage registry.
package stages

import (
	"time"

	"github.com/Cray-HPE/sat-sub000/internal/config"
	"github.com/Cray-HPE/sat-sub000/internal/orchestrator"
)

// Stage names. Shared between pipelines: boot and shutdown both have
// bos-operations, cabinet-power, platform-services, and ncn-power stages
// with action-specific bodies.
const (
	StageCaptureState     = "capture-state"
	StageSessionChecks    = "session-checks"
	StageBOSOperations    = "bos-operations"
	StageCabinetPower     = "cabinet-power"
	StagePlatformServices = "platform-services"
	StageNCNPower         = "ncn-power"
	StageK8sCheck         = "k8s-check"
)

// DefaultRegistry builds the process-wide stage registry. It is constructed
// once at startup and read-only afterwards.
func DefaultRegistry() orchestrator.Registry {
	defaults := config.DefaultTimeouts()
	timeouts := func(names ...string) config.TimeoutConfig {
		tc := make(config.TimeoutConfig, len(names))
		for _, name := range names {
			tc[name] = defaults[name]
		}
		return tc
	}

	shutdown := []*orchestrator.Stage{
		{
			Name:            StageCaptureState,
			Ordinal:         0,
			DefaultTimeouts: timeouts(config.TimeoutCaptureState),
			Run:             captureState,
		},
		{
			Name:                 StageSessionChecks,
			Ordinal:              1,
			RequiresPriorSuccess: true,
			Run:                  sessionChecks,
		},
		{
			Name:                 StageBOSOperations,
			Ordinal:              2,
			RequiresPriorSuccess: true,
			Disruptive:           true,
			DefaultTimeouts:      timeouts(config.TimeoutBOSShutdown),
			Run:                  bosShutdown,
		},
		{
			Name:                 StageCabinetPower,
			Ordinal:              3,
			RequiresPriorSuccess: true,
			Disruptive:           true,
			DefaultTimeouts:      timeouts(config.TimeoutCAPMC),
			Run:                  cabinetShutdown,
		},
		{
			Name:                 StagePlatformServices,
			Ordinal:              4,
			RequiresPriorSuccess: true,
			Disruptive:           true,
			DefaultTimeouts:      timeouts(config.TimeoutCeph, config.TimeoutK8s),
			Run:                  platformShutdown,
		},
		{
			Name:                 StageNCNPower,
			Ordinal:              5,
			RequiresPriorSuccess: true,
			Disruptive:           true,
			DefaultTimeouts:      timeouts(config.TimeoutNCNShutdown),
			Run:                  ncnShutdown,
		},
	}

	boot := []*orchestrator.Stage{
		{
			Name:            StageNCNPower,
			Ordinal:         0,
			Disruptive:      true,
			DefaultTimeouts: timeouts(config.TimeoutNCNBoot),
			Run:             ncnBoot,
		},
		{
			Name:                 StagePlatformServices,
			Ordinal:              1,
			RequiresPriorSuccess: true,
			Disruptive:           true,
			DefaultTimeouts:      timeouts(config.TimeoutCeph, config.TimeoutK8s),
			Run:                  platformBoot,
		},
		{
			Name:                 StageK8sCheck,
			Ordinal:              2,
			RequiresPriorSuccess: true,
			DefaultTimeouts:      timeouts(config.TimeoutK8s),
			Run:                  k8sCheck,
		},
		{
			Name:                 StageCabinetPower,
			Ordinal:              3,
			RequiresPriorSuccess: true,
			Disruptive:           true,
			DefaultTimeouts:      timeouts(config.TimeoutCAPMC, config.TimeoutFabric),
			Run:                  cabinetBoot,
		},
		{
			Name:                 StageBOSOperations,
			Ordinal:              4,
			RequiresPriorSuccess: true,
			Disruptive:           true,
			DefaultTimeouts:      timeouts(config.TimeoutBOSBoot),
			Run:                  bosBoot,
		},
	}

	reboot := []*orchestrator.Stage{
		{
			Name:            StageBOSOperations,
			Ordinal:         0,
			Disruptive:      true,
			DefaultTimeouts: timeouts(config.TimeoutBOSShutdown, config.TimeoutBOSBoot),
			Run:             bosReboot,
		},
	}

	return orchestrator.Registry{
		orchestrator.ActionShutdown: shutdown,
		orchestrator.ActionBoot:     boot,
		orchestrator.ActionReboot:   reboot,
	}
}

// pollInterval is the default pause between polls of external services.
const pollInterval = 10 * time.Second
