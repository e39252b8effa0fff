// Command ghdepup resolves dependency versions from GitHub tags and
// rewrites the versions file of a polyglot dependency declaration.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	// Register hosting services.
	_ "github.com/ghdepup/ghdepup/internal/source/github"
)

// version is the semantic version (set via -ldflags).
var version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "ghdepup",
	Short: "Update pinned dependency versions from hosting-service tags",
	Long: `ghdepup reads dependency declarations from one or more config files,
queries the hosting service for published tags, picks the best version per
dependency according to its semantic-version requirement, and rewrites the
versions file.

The config format is deliberately polyglot: every file is simultaneously a
valid POSIX shell script, an INI file and a Makefile variable block, so the
same file can be sourced by CI scripts and included by Makefiles directly.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newUpdateCommand())
	rootCmd.AddCommand(newVerifyCommand())
	rootCmd.AddCommand(newReportCommand())
}

// newLogger builds the CLI logger; --verbose raises the level to Debug.
func newLogger() *log.Logger {
	logger := log.New(os.Stderr)
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func main() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
