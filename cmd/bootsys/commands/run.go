package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Cray-HPE/sat-sub000/cmd/bootsys/handlers"
	"github.com/Cray-HPE/sat-sub000/internal/config"
)

// runFlags holds the flags shared by the shutdown, boot, and reboot
// commands. Timeout values are registered one flag per timeout name
// (--capmc-timeout, --ncn-boot-timeout, ...) in seconds.
type runFlags struct {
	configPath   string
	stage        string
	listStages   bool
	disruptive   bool
	bosTemplates []string
	bosLimit     string
	excludedNCNs []string
	timeouts     map[string]*int
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", fmt.Sprintf("Path to configuration file (default: %s)", config.DefaultPath))
	cmd.Flags().StringVar(&f.stage, "stage", "", "Run only the named stage, skipping dependency checks")
	cmd.Flags().BoolVar(&f.listStages, "list-stages", false, "Print the ordered stage names and exit")
	cmd.Flags().BoolVar(&f.disruptive, "disruptive", false, "Skip confirmation prompts before disruptive stages")
	cmd.Flags().StringSliceVar(&f.bosTemplates, "bos-templates", nil, "Session templates to use instead of the configured defaults")
	cmd.Flags().StringVar(&f.bosLimit, "bos-limit", "", "Restrict boot orchestration sessions to the given node list")
	cmd.Flags().StringSliceVar(&f.excludedNCNs, "excluded-ncns", nil, "Management nodes to leave untouched during node power stages")

	f.timeouts = make(map[string]*int)
	for _, name := range config.TimeoutNames() {
		f.timeouts[name] = cmd.Flags().Int(name+"-timeout", 0, fmt.Sprintf("Timeout in seconds for %s operations", name))
	}
}

func (f *runFlags) options() handlers.Options {
	overrides := make(map[string]int, len(f.timeouts))
	for name, seconds := range f.timeouts {
		overrides[name] = *seconds
	}
	return handlers.Options{
		ConfigPath:       f.configPath,
		Stage:            f.stage,
		ListStages:       f.listStages,
		Disruptive:       f.disruptive,
		BOSTemplates:     f.bosTemplates,
		BOSLimit:         f.bosLimit,
		ExcludedNCNs:     f.excludedNCNs,
		TimeoutOverrides: overrides,
	}
}
