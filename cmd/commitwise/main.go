// Package main is the entry point for the commitwise CLI application.
// commitwise generates Git commit messages from staged changes with the
// help of a configurable AI provider.
package main

import (
	"fmt"
	"os"

	"github.com/commitwise/commitwise/internal/cmd"
	apperrors "github.com/commitwise/commitwise/internal/pkg/errors"
)

// Version information - set via ldflags during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := cmd.NewRootCmd(version, commit, date)
	if err := rootCmd.Execute(); err != nil {
		if apperrors.IsVerbose() {
			fmt.Fprintln(os.Stderr, apperrors.FormatErrorVerbose(err))
		} else {
			fmt.Fprintln(os.Stderr, apperrors.FormatError(err))
		}
		os.Exit(apperrors.GetExitCode(err))
	}
}
