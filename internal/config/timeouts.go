package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Timeout names. Each stage declares which of these bound its waits.
const (
	TimeoutCaptureState = "capture-state"
	TimeoutBOSShutdown  = "bos-shutdown"
	TimeoutBOSBoot      = "bos-boot"
	TimeoutCAPMC        = "capmc"
	TimeoutK8s          = "k8s"
	TimeoutNCNShutdown  = "ncn-shutdown"
	TimeoutNCNBoot      = "ncn-boot"
	TimeoutCeph         = "ceph"
	TimeoutFabric       = "fabric"
)

// TimeoutNames returns the known timeout names in their documented order,
// for flag registration and help output.
func TimeoutNames() []string {
	return []string{
		TimeoutCaptureState,
		TimeoutBOSShutdown,
		TimeoutBOSBoot,
		TimeoutCAPMC,
		TimeoutK8s,
		TimeoutNCNShutdown,
		TimeoutNCNBoot,
		TimeoutCeph,
		TimeoutFabric,
	}
}

// TimeoutConfig maps timeout names to durations. It is resolved once per
// run, from defaults, then BOOTSYS_TIMEOUT_* environment variables, then
// command-line flags, and never mutated afterwards.
type TimeoutConfig map[string]time.Duration

// DefaultTimeouts returns the built-in timeout set.
func DefaultTimeouts() TimeoutConfig {
	return TimeoutConfig{
		TimeoutCaptureState: 1 * time.Minute,
		TimeoutBOSShutdown:  10 * time.Minute,
		TimeoutBOSBoot:      20 * time.Minute,
		TimeoutCAPMC:        10 * time.Minute,
		TimeoutK8s:          15 * time.Minute,
		TimeoutNCNShutdown:  5 * time.Minute,
		TimeoutNCNBoot:      10 * time.Minute,
		TimeoutCeph:         10 * time.Minute,
		TimeoutFabric:       5 * time.Minute,
	}
}

// ResolveTimeouts builds the effective timeout set for one run. overrides
// maps timeout names to second counts from --<name>-timeout flags; a zero
// value means the flag was not given.
//
// Environment Variables (seconds or Go durations):
//   - BOOTSYS_TIMEOUT_CAPTURE_STATE
//   - BOOTSYS_TIMEOUT_BOS_SHUTDOWN
//   - BOOTSYS_TIMEOUT_BOS_BOOT
//   - BOOTSYS_TIMEOUT_CAPMC
//   - BOOTSYS_TIMEOUT_K8S
//   - BOOTSYS_TIMEOUT_NCN_SHUTDOWN
//   - BOOTSYS_TIMEOUT_NCN_BOOT
//   - BOOTSYS_TIMEOUT_CEPH
//   - BOOTSYS_TIMEOUT_FABRIC
func ResolveTimeouts(overrides map[string]int) (TimeoutConfig, error) {
	resolved := DefaultTimeouts()

	for name := range resolved {
		envVar := "BOOTSYS_TIMEOUT_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		if val := os.Getenv(envVar); val != "" {
			d, err := parseDuration(val)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", envVar, err)
			}
			resolved[name] = d
		}
	}

	for name, seconds := range overrides {
		if seconds == 0 {
			continue
		}
		if _, ok := resolved[name]; !ok {
			return nil, fmt.Errorf("unknown timeout %q", name)
		}
		if seconds < 0 {
			return nil, fmt.Errorf("timeout %q must be positive", name)
		}
		resolved[name] = time.Duration(seconds) * time.Second
	}

	return resolved, nil
}

// Get returns the duration for name, falling back to the built-in default
// for unknown names so a misconfigured caller still gets a bounded wait.
func (t TimeoutConfig) Get(name string) time.Duration {
	if d, ok := t[name]; ok {
		return d
	}
	if d, ok := DefaultTimeouts()[name]; ok {
		return d
	}
	return 5 * time.Minute
}

// parseDuration accepts either a Go duration string ("90s", "10m") or a
// bare number of seconds.
func parseDuration(val string) (time.Duration, error) {
	if d, err := time.ParseDuration(val); err == nil {
		return d, nil
	}
	var seconds int
	if _, err := fmt.Sscanf(val, "%d", &seconds); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid duration %q", val)
}
