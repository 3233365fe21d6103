// Package main is the entry point for the bootsys CLI.
//
// bootsys drives staged boot, shutdown, and reboot of an HPC system:
// compute nodes through the boot orchestration service, cabinet hardware
// through the power control service, and the management Kubernetes and
// Ceph planes directly.
//
// Commands: shutdown, boot, reboot, version.
//
// For detailed usage information, run:
//
//	bootsys --help
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Cray-HPE/sat-sub000/cmd/bootsys/commands"
	"github.com/Cray-HPE/sat-sub000/cmd/bootsys/handlers"
	"github.com/Cray-HPE/sat-sub000/internal/orchestrator"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Root().ExecuteContext(ctx); err != nil {
		var exit *handlers.ExitError
		if errors.As(err, &exit) {
			if exit.Message != "" {
				fmt.Fprintln(os.Stderr, exit.Message)
			}
			os.Exit(exit.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(orchestrator.ExitUsage)
	}
}
