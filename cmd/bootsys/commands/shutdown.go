package commands

import (
	"github.com/spf13/cobra"

	"github.com/Cray-HPE/sat-sub000/cmd/bootsys/handlers"
	"github.com/Cray-HPE/sat-sub000/internal/orchestrator"
)

// Shutdown returns the command that takes the whole system down in stages.
//
// Stages run in order: capture-state, session-checks, bos-operations,
// cabinet-power, platform-services, ncn-power. Disruptive stages prompt for
// confirmation unless --disruptive is given.
//
// Examples:
//
//	# Full shutdown with confirmation prompts
//	bootsys shutdown
//
//	# Unattended full shutdown
//	bootsys shutdown --disruptive
//
//	# Re-run a single stage after fixing its failure
//	bootsys shutdown --stage cabinet-power --disruptive
func Shutdown() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "shutdown",
		Short: "Shut the system down in stages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Run(cmd.Context(), orchestrator.ActionShutdown, flags.options())
		},
	}

	addRunFlags(cmd, &flags)
	return cmd
}
