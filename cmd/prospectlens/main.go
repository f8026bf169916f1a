package main

import (
	"github.com/prospectlens/prospectlens/internal/cmd"
	"github.com/prospectlens/prospectlens/internal/observability"
)

// Version information set via ldflags during build
// Example: go build -ldflags="-X main.version=1.0.0 -X main.commit=abc123 -X main.buildDate=2026-10-18"
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// Also sets the version reported by /version.
	cmd.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		cmd.ExitWithCode(observability.Logger(), cmd.ExitCodeFor(err), "Command failed", err)
	}
}
