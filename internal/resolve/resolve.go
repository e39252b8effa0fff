// Package resolve selects the best published version for a dependency
// from a stream of raw tag names.
package resolve

import (
	"iter"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/ghdepup/ghdepup/internal/deps"
)

// Resolution is the outcome of resolving one dependency.
type Resolution struct {
	Name    string
	Version *semver.Version // nil when unresolved with no prior version

	// Unresolved is set when no tag survived filtering. The previous
	// version, if any, is carried over in Version.
	Unresolved bool

	// Candidates counts tags that parsed as versions after prefix
	// stripping, before constraint filtering. Diagnostic only.
	Candidates int
}

// Resolve folds the tag stream into the best matching version. Tags not
// starting with the descriptor's prefix, or whose remainder is not a
// semantic version, are expected noise and skipped. Pre-release versions
// are admitted only when the requirement itself targets a pre-release.
//
// The fold keeps a single running maximum: it is insensitive to tag order
// and duplicates and consumes paginated streams without buffering. An
// error yielded by the stream aborts resolution.
func Resolve(d *deps.Descriptor, tags iter.Seq2[string, error]) (Resolution, error) {
	res := Resolution{Name: d.Name}

	var best *semver.Version
	for tag, err := range tags {
		if err != nil {
			return Resolution{}, err
		}

		rest, ok := strings.CutPrefix(tag, d.TagPrefix)
		if !ok {
			continue
		}
		v, err := semver.StrictNewVersion(rest)
		if err != nil {
			continue
		}
		res.Candidates++

		if !admits(d.VersionReq, v) {
			continue
		}
		// Strict comparison keeps the first-seen tag on equal versions.
		if best == nil || v.GreaterThan(best) {
			best = v
		}
	}

	if best == nil {
		res.Version = d.CurrentVersion
		res.Unresolved = true
		return res, nil
	}

	res.Version = best
	return res, nil
}

// admits applies the version requirement. An absent requirement accepts
// every stable version; pre-releases still need an explicit requirement
// that names a pre-release (the Constraints check enforces that rule).
func admits(req *semver.Constraints, v *semver.Version) bool {
	if req == nil {
		return v.Prerelease() == ""
	}
	return req.Check(v)
}
