package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	packageurl "github.com/package-url/packageurl-go"
	"github.com/spf13/cobra"

	"github.com/ghdepup/ghdepup/internal/deps"
	"github.com/ghdepup/ghdepup/internal/prf"
)

func newReportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "report <file>...",
		Short: "Show declared dependencies without touching the network",
		Long: `Parse the given files in order, fold them into dependency descriptors and
print one line per dependency: name, project, version requirement, the
currently pinned version and its package URL.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			var records []prf.Record
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				recs, err := prf.Parse(string(data))
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				records = append(records, recs...)
			}

			descriptors, err := deps.Build(records)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPROJECT\tREQUIREMENT\tVERSION\tPURL")
			for _, name := range deps.Names(descriptors) {
				d := descriptors[name]

				req := "*"
				if d.VersionReq != nil {
					req = d.VersionReq.String()
				}
				version := ""
				if d.CurrentVersion != nil {
					version = d.CurrentVersion.String()
				}

				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", name, d.Project, req, version, projectPURL(d))
			}
			return w.Flush()
		},
	}
}

// projectPURL renders the pkg:github identifier for a descriptor, with the
// pinned version when one is known.
func projectPURL(d *deps.Descriptor) string {
	owner, repo, ok := strings.Cut(d.Project, "/")
	if !ok {
		return ""
	}
	version := ""
	if d.CurrentVersion != nil {
		version = d.CurrentVersion.String()
	}
	return packageurl.NewPackageURL(packageurl.TypeGithub, owner, repo, version, nil, "").ToString()
}
