// Package update implements the merge and emit pipeline: declaration
// files and the prior versions file in, freshly resolved versions file
// out, written atomically.
package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/ghdepup/ghdepup/internal/deps"
	"github.com/ghdepup/ghdepup/internal/prf"
	"github.com/ghdepup/ghdepup/internal/resolve"
	"github.com/ghdepup/ghdepup/internal/source"
)

// defaultConcurrency bounds parallel tag fetches.
const defaultConcurrency = 8

// ErrTooFewFiles is returned when fewer than two input paths are given.
var ErrTooFewFiles = errors.New("at least two config files needed")

// FetchError wraps a fatal tag-source failure with the dependency it
// belongs to.
type FetchError struct {
	Name    string
	Project string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("dependency %s (%s): %v", e.Name, e.Project, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Config describes one pipeline run.
type Config struct {
	// Paths lists the input files in order. The last path is the
	// versions file: it must exist, and it is the output target.
	Paths []string

	// Source lists tags for a project slug.
	Source source.TagSource

	// Logger receives per-dependency progress. Nil discards output.
	Logger *log.Logger

	// Concurrency bounds parallel resolutions; 0 means the default.
	Concurrency int
}

// Result reports the outcome of a successful run.
type Result struct {
	Resolutions []resolve.Resolution // sorted by dependency name
	Unresolved  []string             // names with no matching tag this run
}

// Run executes the pipeline: parse all files, fold descriptors, resolve
// every dependency against the tag source, and atomically rewrite the
// versions file. On any fatal error the versions file is left untouched.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	if len(cfg.Paths) < 2 {
		return nil, fmt.Errorf("%w, but only %d given", ErrTooFewFiles, len(cfg.Paths))
	}
	versionsPath := cfg.Paths[len(cfg.Paths)-1]

	all, priorRecords, err := parseInputs(cfg.Paths)
	if err != nil {
		return nil, err
	}

	descriptors, err := deps.Build(all)
	if err != nil {
		return nil, err
	}
	names := deps.Names(descriptors)

	resolutions, err := resolveAll(ctx, cfg, descriptors, names, logger)
	if err != nil {
		return nil, err
	}

	result := &Result{Resolutions: resolutions}
	for _, res := range resolutions {
		if res.Unresolved {
			result.Unresolved = append(result.Unresolved, res.Name)
		}
	}

	out := render(priorRecords, resolutions)
	if err := writeFileAtomic(versionsPath, []byte(prf.Serialize(out))); err != nil {
		return nil, fmt.Errorf("writing %s: %w", versionsPath, err)
	}

	return result, nil
}

// parseInputs reads and parses every input file in order, returning the
// concatenated records and, separately, the records of the final versions
// file (whose non-version entries are preserved in the output).
func parseInputs(paths []string) (all, prior []prf.Record, err error) {
	last := len(paths) - 1
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		records, err := prf.Parse(string(data))
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		all = append(all, records...)
		if i == last {
			prior = records
		}
	}
	return all, prior, nil
}

// resolveAll resolves every descriptor concurrently. Results land in a
// slice indexed by the sorted name order, so output never depends on
// completion order. A fatal fetch error cancels the group and fails the
// run; unresolved dependencies are logged and kept.
func resolveAll(ctx context.Context, cfg Config, descriptors map[string]*deps.Descriptor, names []string, logger *log.Logger) ([]resolve.Resolution, error) {
	limit := cfg.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	resolutions := make([]resolve.Resolution, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, name := range names {
		d := descriptors[name]
		g.Go(func() error {
			res, err := resolve.Resolve(d, cfg.Source.Tags(gctx, d.Project))
			if err != nil {
				return &FetchError{Name: d.Name, Project: d.Project, Err: err}
			}
			if res.Unresolved {
				logger.Warn("no tag satisfies requirement, keeping previous version",
					"dependency", d.Name, "project", d.Project,
					"previous", versionString(res.Version), "candidates", res.Candidates)
			} else {
				logger.Info("resolved",
					"dependency", d.Name, "project", d.Project,
					"version", res.Version, "previous", versionString(d.CurrentVersion))
			}
			resolutions[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return resolutions, nil
}

// render builds the output record set: non-version records of the prior
// versions file first (original order, duplicate keys collapsed to the
// last value), then one version record per dependency in name order.
func render(prior []prf.Record, resolutions []resolve.Resolution) []prf.Record {
	var out []prf.Record
	seen := make(map[string]int)
	for _, rec := range prior {
		if strings.HasSuffix(rec.Key, deps.SuffixVersion) {
			continue
		}
		if at, dup := seen[rec.Key]; dup {
			out[at].Value = rec.Value
			continue
		}
		seen[rec.Key] = len(out)
		out = append(out, rec)
	}

	for _, res := range resolutions {
		out = append(out, prf.Record{
			Key:   res.Name + deps.SuffixVersion,
			Value: versionString(res.Version),
		})
	}
	return out
}

func versionString(v *semver.Version) string {
	if v == nil {
		return ""
	}
	return v.String()
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path, so a crash mid-write never corrupts the previous
// known-good contents.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".ghdepup-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
