package commands

import (
	"github.com/spf13/cobra"

	"github.com/Cray-HPE/sat-sub000/cmd/bootsys/handlers"
	"github.com/Cray-HPE/sat-sub000/internal/orchestrator"
)

// Boot returns the command that brings the system up in stages.
//
// Stages run in order: ncn-power, platform-services, k8s-check,
// cabinet-power, bos-operations.
func Boot() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "boot",
		Short: "Boot the system in stages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Run(cmd.Context(), orchestrator.ActionBoot, flags.options())
		},
	}

	addRunFlags(cmd, &flags)
	return cmd
}
