package commands

import (
	"github.com/spf13/cobra"

	"github.com/Cray-HPE/sat-sub000/cmd/bootsys/handlers"
	"github.com/Cray-HPE/sat-sub000/internal/orchestrator"
)

// Reboot returns the command that reboots compute and application nodes
// through boot orchestration sessions. Management nodes are not touched.
func Reboot() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "reboot",
		Short: "Reboot compute and application nodes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Run(cmd.Context(), orchestrator.ActionReboot, flags.options())
		},
	}

	addRunFlags(cmd, &flags)
	return cmd
}
