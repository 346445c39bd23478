package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/sourcemelt/sourcemelt/pkg/types"
	"github.com/sourcemelt/sourcemelt/pkg/version"
)

var verboseCount int

var rootCmd = &cobra.Command{
	Use:     "sourcemelt",
	Short:   "Bundle a multi-file Python program into one self-contained script",
	Long:    "sourcemelt traces a Python entry script's first-party imports, inlines\ntheir bodies in dependency order, and hoists standard-library and\nthird-party imports into a single deduplicated header, producing one\nscript observationally equivalent to the original program.",
	Version: version.Version,
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verboseCount, "verbose", "v", "increase diagnostic verbosity (repeatable, caps at trace)")
	rootCmd.SilenceErrors = true
}

// Execute runs the root command and exits with code 1 on error.
// ExitError is handled specially: its Code is used as the exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *types.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// verbosity caps the repeatable --verbose flag at trace level (3).
func verbosity() int {
	if verboseCount > 3 {
		return 3
	}
	return verboseCount
}
