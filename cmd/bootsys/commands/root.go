// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated to
// handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the bootsys CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootsys",
		Short: "Staged boot, shutdown, and reboot of the whole system",
		// Errors are reported once by main with the right exit code.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(Shutdown())
	cmd.AddCommand(Boot())
	cmd.AddCommand(Reboot())
	cmd.AddCommand(Version())

	return cmd
}
