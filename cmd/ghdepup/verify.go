package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ghdepup/ghdepup/internal/prf"
)

func newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>...",
		Short: "Check files against all grammars of the polyglot format",
		Long: `Parse each file with the strict record codec and then cross-check it under
real third-party parsers for POSIX shell, TOML and INI. A file that passes
can be sourced by sh, included by make, and read by INI and TOML parsers
with identical results.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				if err := prf.VerifyPolyglot(string(data)); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok\t%s\n", path)
			}
			return nil
		},
	}
}
