// Package main is the entry point for the siem-client CLI
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cirrusidentity/siem-client/cmd"
)

// Set at build time via ldflags
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	cmd.SetVersion(version)
	cmd.SetBuildInfo(commit, buildTime)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		os.Exit(cmd.ReportError(os.Stderr, err))
	}
}
