// Package snapshot persists a point-in-time capture of scheduler pod state
// before shutdown and compares the live state against it after boot.
package snapshot

import (
	"time"
)

// Snapshot is a durably stored capture of scheduler pod state. It is
// written once by the capture-state stage and read once by the boot-time
// pod check; it is never mutated.
type Snapshot struct {
	CapturedAt time.Time         `json:"captured_at"`
	PodStates  map[string]string `json:"pod_states"` // "namespace/name" -> phase
}

// New captures the given pod states at the current time.
func New(podStates map[string]string) *Snapshot {
	states := make(map[string]string, len(podStates))
	for k, v := range podStates {
		states[k] = v
	}
	return &Snapshot{
		CapturedAt: time.Now().UTC(),
		PodStates:  states,
	}
}
