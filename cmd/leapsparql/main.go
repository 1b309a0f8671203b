// Package main is the entry point of the leapsparql CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/leapsparql/internal/cli"
)

// Set via -ldflags at build time.
var (
	version   = ""
	commit    = ""
	buildDate = ""
)

func main() {
	if version != "" {
		cli.Version = version
	}
	if commit != "" {
		cli.GitCommit = commit
	}
	if buildDate != "" {
		cli.BuildDate = buildDate
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
