package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/Cray-HPE/sat-sub000/internal/config"
	"github.com/Cray-HPE/sat-sub000/internal/platform/bos"
	"github.com/Cray-HPE/sat-sub000/internal/platform/capmc"
	"github.com/Cray-HPE/sat-sub000/internal/platform/ceph"
	"github.com/Cray-HPE/sat-sub000/internal/platform/console"
	"github.com/Cray-HPE/sat-sub000/internal/platform/fabric"
	"github.com/Cray-HPE/sat-sub000/internal/platform/hsm"
	"github.com/Cray-HPE/sat-sub000/internal/platform/k8s"
	"github.com/Cray-HPE/sat-sub000/internal/platform/sessions"
	"github.com/Cray-HPE/sat-sub000/internal/snapshot"
	"github.com/Cray-HPE/sat-sub000/internal/targets"
)

// Context bundles everything a stage body needs: the run's options and
// timeouts, the external service adapters, target resolution, snapshot
// persistence, and the observer. It is built once per invocation.
type Context struct {
	context.Context

	Config  *config.Config
	Options *config.RunOptions

	Power     capmc.PowerController
	Boot      bos.SessionManager
	Sessions  sessions.Checker
	Sched     k8s.Scheduler
	Storage   ceph.HealthChecker
	Fabric    fabric.StatusClient
	Console   console.NodeAccess
	Inventory hsm.Inventory

	Resolver  *targets.Resolver
	Snapshots snapshot.Store
	Policy    snapshot.ComparePolicy

	Observer Observer
}

// Timeout returns the run's resolved duration for the named timeout.
func (sc *Context) Timeout(name string) time.Duration {
	return sc.Options.Timeouts.Get(name)
}

// FanoutLimit bounds per-stage node parallelism.
func (sc *Context) FanoutLimit() int {
	if sc.Config != nil && sc.Config.WorkerLimit > 0 {
		return sc.Config.WorkerLimit
	}
	return 8
}

// Warnf emits a warning event.
func (sc *Context) Warnf(format string, args ...any) {
	sc.Observer.Event(Event{
		Type:      EventWarning,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: time.Now(),
	})
}
