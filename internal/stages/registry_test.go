package stages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cray-HPE/sat-sub000/internal/orchestrator"
)

func TestDefaultRegistry_ShutdownPipeline(t *testing.T) {
	t.Parallel()

	registry := DefaultRegistry()
	names := registry.StageNames(orchestrator.ActionShutdown)

	assert.Equal(t, []string{
		StageCaptureState,
		StageSessionChecks,
		StageBOSOperations,
		StageCabinetPower,
		StagePlatformServices,
		StageNCNPower,
	}, names)
}

func TestDefaultRegistry_BootPipeline(t *testing.T) {
	t.Parallel()

	registry := DefaultRegistry()
	names := registry.StageNames(orchestrator.ActionBoot)

	assert.Equal(t, []string{
		StageNCNPower,
		StagePlatformServices,
		StageK8sCheck,
		StageCabinetPower,
		StageBOSOperations,
	}, names)
}

func TestDefaultRegistry_RebootPipeline(t *testing.T) {
	t.Parallel()

	registry := DefaultRegistry()
	names := registry.StageNames(orchestrator.ActionReboot)
	assert.Equal(t, []string{StageBOSOperations}, names)
}

func TestDefaultRegistry_OrdinalsAndBodies(t *testing.T) {
	t.Parallel()

	registry := DefaultRegistry()
	for _, action := range []orchestrator.Action{
		orchestrator.ActionShutdown,
		orchestrator.ActionBoot,
		orchestrator.ActionReboot,
	} {
		for i, stage := range registry.Stages(action) {
			assert.Equal(t, i, stage.Ordinal, "%s/%s", action, stage.Name)
			require.NotNil(t, stage.Run, "%s/%s", action, stage.Name)
		}
	}
}

func TestDefaultRegistry_DisruptiveMarking(t *testing.T) {
	t.Parallel()

	registry := DefaultRegistry()

	disruptive := map[string]bool{}
	for _, stage := range registry.Stages(orchestrator.ActionShutdown) {
		disruptive[stage.Name] = stage.Disruptive
	}

	// Observation stages never prompt; everything that changes state does.
	assert.False(t, disruptive[StageCaptureState])
	assert.False(t, disruptive[StageSessionChecks])
	assert.True(t, disruptive[StageBOSOperations])
	assert.True(t, disruptive[StageCabinetPower])
	assert.True(t, disruptive[StagePlatformServices])
	assert.True(t, disruptive[StageNCNPower])
}

func TestDefaultRegistry_FirstStagesRunUnconditionally(t *testing.T) {
	t.Parallel()

	registry := DefaultRegistry()
	for _, action := range []orchestrator.Action{
		orchestrator.ActionShutdown,
		orchestrator.ActionBoot,
		orchestrator.ActionReboot,
	} {
		first := registry.Stages(action)[0]
		assert.False(t, first.RequiresPriorSuccess, "%s/%s", action, first.Name)
	}
}
