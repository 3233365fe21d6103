package commands

import (
	"runtime"

	"github.com/spf13/cobra"
)

// buildInfo carries the build metadata stamped into the binary at release
// time. The zero values identify a developer build.
type buildInfo struct {
	version string
	commit  string
	date    string
}

var build = buildInfo{version: "dev", commit: "none", date: "unknown"}

// SetVersionInfo records the build metadata from main.
func SetVersionInfo(version, commit, date string) {
	build = buildInfo{version: version, commit: commit, date: date}
}

// Version returns the version command.
func Version() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("bootsys %s (commit %s, built %s, %s)\n",
				build.version, build.commit, build.date, runtime.Version())
		},
	}
}
