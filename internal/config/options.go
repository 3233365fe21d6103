package config

// RunOptions carries the per-invocation choices made on the command line.
// It is constructed once per run and passed down by value or pointer; no
// component mutates it after construction.
type RunOptions struct {
	// Stage, when non-empty, runs exactly that stage via the single-stage
	// override path, bypassing predecessor dependency checks.
	Stage string

	// ListStages prints the ordered stage names for the action and exits
	// without side effects.
	ListStages bool

	// Disruptive skips interactive confirmation before disruptive stages.
	Disruptive bool

	// BOSTemplates overrides the configured boot session templates.
	BOSTemplates []string

	// BOSLimit restricts BOS sessions to the given node list expression.
	BOSLimit string

	// ExcludedNCNs are management nodes the operator wants left untouched
	// by node power stages, in addition to the controlling node.
	ExcludedNCNs []string

	// Timeouts is the resolved timeout set for this run.
	Timeouts TimeoutConfig
}

// Templates returns the session templates for this run, preferring the
// command-line override over the configured defaults.
func (o *RunOptions) Templates(cfg *Config) []string {
	if len(o.BOSTemplates) > 0 {
		return o.BOSTemplates
	}
	return cfg.BOSTemplates
}
