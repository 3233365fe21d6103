package snapshot

import (
	"fmt"
	"sort"
	"strings"
)

// acceptableNewPhases are the phases a pod absent from the snapshot may be
// in without failing the comparison. The scheduler creates fresh pods
// (new replica hashes, operator-spawned jobs) during boot; those are
// expected as long as they are making progress.
var acceptableNewPhases = map[string]bool{
	"Pending":   true,
	"Running":   true,
	"Succeeded": true,
}

// ComparePolicy decides whether the live pod set shows the cluster restored
// to its pre-shutdown shape. Missing returns a description of everything
// from the snapshot that has no live counterpart; an empty result means the
// comparison passed.
//
// The scheduler re-creates pods under arbitrary names after a full
// shutdown, so no single comparison rule is correct for every workload
// mix. The rule is a policy so deployments can choose.
type ComparePolicy interface {
	Name() string
	Missing(saved, live map[string]string) []string
}

// PolicyByName returns the configured comparison policy.
func PolicyByName(name string) (ComparePolicy, error) {
	switch name {
	case "owner-group", "":
		return OwnerGroupPolicy{}, nil
	case "exact-name":
		return ExactNamePolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown pod compare policy %q", name)
	}
}

// ExactNamePolicy requires every snapshot pod key to exist in the live set.
// Strict and simple, but controller-owned pods come back under new names
// and will be reported missing.
type ExactNamePolicy struct{}

func (ExactNamePolicy) Name() string { return "exact-name" }

// Missing implements ComparePolicy.
func (ExactNamePolicy) Missing(saved, live map[string]string) []string {
	var missing []string
	for key := range saved {
		if _, ok := live[key]; !ok {
			missing = append(missing, key)
		}
	}
	for key, phase := range live {
		if _, ok := saved[key]; !ok && !acceptableNewPhases[phase] {
			missing = append(missing, fmt.Sprintf("%s (new pod in phase %s)", key, phase))
		}
	}
	sort.Strings(missing)
	return missing
}

// OwnerGroupPolicy compares pods by owner group: namespace plus the pod
// name stripped of its generated suffixes. A group passes when the live
// set has at least as many pods as the snapshot did, regardless of the
// generated names. This survives the scheduler re-creating pods after
// shutdown.
type OwnerGroupPolicy struct{}

func (OwnerGroupPolicy) Name() string { return "owner-group" }

// Missing implements ComparePolicy.
func (OwnerGroupPolicy) Missing(saved, live map[string]string) []string {
	savedGroups := groupCounts(saved)
	liveGroups := groupCounts(live)

	var missing []string
	for group, want := range savedGroups {
		if got := liveGroups[group]; got < want {
			missing = append(missing, fmt.Sprintf("%s (%d/%d pods)", group, got, want))
		}
	}

	for key, phase := range live {
		if _, ok := savedGroups[groupKey(key)]; !ok && !acceptableNewPhases[phase] {
			missing = append(missing, fmt.Sprintf("%s (new pod in phase %s)", key, phase))
		}
	}
	sort.Strings(missing)
	return missing
}

func groupCounts(pods map[string]string) map[string]int {
	groups := make(map[string]int)
	for key := range pods {
		groups[groupKey(key)]++
	}
	return groups
}

// groupKey reduces "namespace/name" to "namespace/base-name" by trimming
// trailing hash-like segments (replica set hashes, random pod suffixes).
func groupKey(podKey string) string {
	ns, name, ok := strings.Cut(podKey, "/")
	if !ok {
		return podKey
	}

	parts := strings.Split(name, "-")
	for len(parts) > 1 && hashLike(parts[len(parts)-1]) {
		parts = parts[:len(parts)-1]
	}
	return ns + "/" + strings.Join(parts, "-")
}

// hashLike reports whether a name segment looks generated: short
// alphanumeric with at least one digit, the shape of replica set hashes
// and pod suffixes.
func hashLike(segment string) bool {
	if len(segment) < 4 || len(segment) > 12 {
		return false
	}
	hasDigit := false
	for _, r := range segment {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'a' && r <= 'z':
		default:
			return false
		}
	}
	return hasDigit
}
