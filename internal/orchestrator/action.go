// Package orchestrator drives staged lifecycle actions across the system:
// coordinated boot, shutdown, and reboot of management and compute nodes.
//
// An Action selects an ordered pipeline of stages from a statically built
// Registry. Stages run strictly sequentially; each stage fans out over its
// resolved node set and blocks on bounded waits against the external
// management services. Per-stage outcomes are collected into a Report that
// always lists every stage in the plan, so an operator can see exactly how
// far an action progressed and re-run only what remains.
package orchestrator

// Action is a top-level lifecycle action. It is immutable and selects an
// execution plan. Each action is exposed as its own subcommand, so values
// other than the three constants never enter the orchestrator.
type Action string

const (
	ActionBoot     Action = "boot"
	ActionShutdown Action = "shutdown"
	ActionReboot   Action = "reboot"
)
