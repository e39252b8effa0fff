package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ghdepup/ghdepup/internal/source"
	"github.com/ghdepup/ghdepup/internal/update"
)

func newUpdateCommand() *cobra.Command {
	var (
		apiURL      string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "update <decl-file>... <versions-file>",
		Short: "Resolve dependencies and rewrite the versions file",
		Long: `Resolve every declared dependency against the hosting service's tags and
rewrite the versions file.

All files are parsed in argument order; when the same field is declared more
than once, the value from the later file wins. The last file is the versions
file: it must already exist and is replaced atomically, so a failed run
leaves it untouched. Dependencies with no matching tag keep their previous
version and are reported, but do not fail the run.`,
		Example: `  # Resolve using deps.conf, persist into versions.conf
  ghdepup update deps.conf versions.conf

  # The versions file may also carry declarations itself
  ghdepup update versions.conf versions.conf`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			token := strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
			if token == "" {
				return errors.New("GITHUB_TOKEN environment variable is missing or unset")
			}

			src, err := source.New("github", apiURL, token)
			if err != nil {
				return err
			}

			result, err := update.Run(cmd.Context(), update.Config{
				Paths:       args,
				Source:      src,
				Logger:      newLogger(),
				Concurrency: concurrency,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "resolved %d dependencies (%d unresolved)\n",
				len(result.Resolutions)-len(result.Unresolved), len(result.Unresolved))
			return nil
		},
	}

	cmd.Flags().StringVar(&apiURL, "api-url", "", "hosting service API root (default is the public GitHub API)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "maximum parallel tag fetches (0 = default)")

	return cmd
}
