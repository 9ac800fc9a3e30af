package main

import (
	"os"

	"github.com/3leaps/goferry/internal/cmd"
)

// Set by -ldflags at build time.
var (
	version   = "dev"
	commit    = "HEAD"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	os.Exit(cmd.ExecuteS3())
}
