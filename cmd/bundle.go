package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sourcemelt/sourcemelt/internal/bundler"
	"github.com/sourcemelt/sourcemelt/internal/config"
	"github.com/sourcemelt/sourcemelt/internal/diagnostics"
	"github.com/sourcemelt/sourcemelt/internal/progress"
	"github.com/sourcemelt/sourcemelt/pkg/types"
)

var (
	entryPath         string
	outputPath        string
	toStdout          bool
	configPath        string
	emitRequirements  bool
	targetVersionFlag string
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Bundle a Python entry script and its first-party dependencies into one file",
	SilenceUsage: true,
	RunE:  runBundle,
}

func init() {
	bundleCmd.Flags().StringVar(&entryPath, "entry", "", "entry script path (required)")
	bundleCmd.Flags().StringVar(&outputPath, "output", "", "write the bundle to this path")
	bundleCmd.Flags().BoolVar(&toStdout, "stdout", false, "write the bundle to standard output")
	bundleCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML bundle config file")
	bundleCmd.Flags().BoolVar(&emitRequirements, "emit-requirements", false, "write requirements.txt beside the bundle")
	bundleCmd.Flags().StringVar(&targetVersionFlag, "target-version", "", "override the configured target Python version (py38..py313)")
	_ = bundleCmd.MarkFlagRequired("entry")
	rootCmd.AddCommand(bundleCmd)
}

func runBundle(cmd *cobra.Command, args []string) error {
	haveOutput := outputPath != ""
	if haveOutput == toStdout {
		return &types.ExitError{Code: 1, Message: "exactly one of --output or --stdout is required"}
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return &types.ExitError{Code: 1, Message: err.Error()}
		}
		cfg = loaded
	}
	cfg.ApplyTargetVersionOverride(targetVersionFlag)
	if err := cfg.Validate(); err != nil {
		return &types.ExitError{Code: 1, Message: err.Error()}
	}

	spinner := progress.NewSpinner(os.Stderr)
	spinner.Start("discovering")

	onProgress := spinner.Update
	if verbosity() > 0 {
		onProgress = func(stage, detail string) {
			spinner.Update(stage, detail)
			fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", stage, detail)
		}
	}

	result, err := bundler.Bundle(entryPath, cfg, bundler.Options{OnProgress: onProgress})
	if err != nil {
		spinner.Stop("")
		diagnostics.PrintError(cmd.ErrOrStderr(), err)
		return &types.ExitError{Code: 1, Message: err.Error()}
	}
	spinner.Stop("")

	if len(result.Cycles) > 0 {
		for _, cycle := range result.Cycles {
			fmt.Fprintf(cmd.ErrOrStderr(), "CycleWarning: import cycle among %s\n", strings.Join(cycle, ", "))
		}
	}

	if toStdout {
		if _, err := os.Stdout.Write(result.Output); err != nil {
			return &types.ExitError{Code: 1, Message: fmt.Sprintf("write stdout: %v", err)}
		}
	} else {
		if err := writeAtomic(outputPath, result.Output); err != nil {
			return &types.ExitError{Code: 1, Message: err.Error()}
		}
		diagnostics.PrintSummary(cmd.OutOrStdout(), result.ModuleCount, len(result.Output))
	}

	if emitRequirements {
		reqPath := requirementsPath()
		if err := writeRequirements(reqPath, result.ThirdPartyModules); err != nil {
			return &types.ExitError{Code: 1, Message: err.Error()}
		}
	}

	return nil
}

// writeAtomic writes data to a temp file in the destination's directory and
// renames it into place, so a crash mid-write never leaves a partial bundle
// at the destination path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".sourcemelt-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename bundle into place: %w", err)
	}
	return nil
}

func requirementsPath() string {
	if toStdout {
		return "requirements.txt"
	}
	return filepath.Join(filepath.Dir(outputPath), "requirements.txt")
}

func writeRequirements(path string, modules []string) error {
	sorted := append([]string(nil), modules...)
	sort.Strings(sorted)
	var b strings.Builder
	for _, m := range sorted {
		b.WriteString(m)
		b.WriteString("\n")
	}
	return writeAtomic(path, []byte(b.String()))
}
