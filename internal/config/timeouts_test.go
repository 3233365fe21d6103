package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTimeouts_Defaults(t *testing.T) {
	timeouts, err := ResolveTimeouts(nil)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, timeouts.Get(TimeoutCAPMC))
	assert.Equal(t, 5*time.Minute, timeouts.Get(TimeoutNCNShutdown))
}

func TestResolveTimeouts_EnvOverride(t *testing.T) {
	t.Setenv("BOOTSYS_TIMEOUT_CAPMC", "120")
	t.Setenv("BOOTSYS_TIMEOUT_NCN_BOOT", "30m")

	timeouts, err := ResolveTimeouts(nil)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, timeouts.Get(TimeoutCAPMC))
	assert.Equal(t, 30*time.Minute, timeouts.Get(TimeoutNCNBoot))
}

func TestResolveTimeouts_FlagBeatsEnv(t *testing.T) {
	t.Setenv("BOOTSYS_TIMEOUT_CAPMC", "120")

	timeouts, err := ResolveTimeouts(map[string]int{TimeoutCAPMC: 600})
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, timeouts.Get(TimeoutCAPMC))
}

func TestResolveTimeouts_ZeroOverrideIgnored(t *testing.T) {
	timeouts, err := ResolveTimeouts(map[string]int{TimeoutCeph: 0})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeouts()[TimeoutCeph], timeouts.Get(TimeoutCeph))
}

func TestResolveTimeouts_RejectsUnknownAndNegative(t *testing.T) {
	_, err := ResolveTimeouts(map[string]int{"warp-core": 10})
	require.Error(t, err)

	_, err = ResolveTimeouts(map[string]int{TimeoutCeph: -1})
	require.Error(t, err)
}

func TestResolveTimeouts_BadEnvValue(t *testing.T) {
	t.Setenv("BOOTSYS_TIMEOUT_FABRIC", "soon")

	_, err := ResolveTimeouts(nil)
	require.Error(t, err)
}

func TestGet_FallsBackToDefault(t *testing.T) {
	t.Parallel()

	empty := TimeoutConfig{}
	assert.Equal(t, DefaultTimeouts()[TimeoutK8s], empty.Get(TimeoutK8s))
}

func TestTimeoutNames_CoverDefaults(t *testing.T) {
	t.Parallel()

	names := TimeoutNames()
	defaults := DefaultTimeouts()
	assert.Len(t, names, len(defaults))
	for _, name := range names {
		assert.Contains(t, defaults, name)
	}
}
