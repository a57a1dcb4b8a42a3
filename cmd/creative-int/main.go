package main

import (
	"os"

	"github.com/creativeflow/creative-int/internal/cli"
	"github.com/creativeflow/creative-int/internal/version"
)

// Version information, overridden by ldflags in release builds.
var (
	Version   = "v1.2.0"
	BuildTime = "2026-08-30"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
