// Package deps folds polyglot records into dependency descriptors.
//
// A dependency named FOO is declared by records with the fixed key
// suffixes FOO_GH_PROJECT, FOO_GH_TAG_PREFIX, FOO_GH_VERSION_REQ and
// FOO_GH_VERSION, possibly spread across several files.
package deps

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/ghdepup/ghdepup/internal/prf"
)

// Field suffixes of the record keys that make up one descriptor.
const (
	SuffixProject    = "_GH_PROJECT"
	SuffixTagPrefix  = "_GH_TAG_PREFIX"
	SuffixVersionReq = "_GH_VERSION_REQ"
	SuffixVersion    = "_GH_VERSION"
)

// fieldMarker identifies keys that belong to the descriptor namespace.
// Keys without it are foreign records and pass through untouched.
const fieldMarker = "_GH_"

// projectRe matches the two-segment owner/repo slug.
var projectRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// Descriptor describes one dependency's source and constraints.
type Descriptor struct {
	Name           string
	Project        string              // owner/repo
	TagPrefix      string              // stripped from tag names, may be empty
	VersionReq     *semver.Constraints // nil accepts any parseable version
	CurrentVersion *semver.Version     // nil on first run
}

// UnknownFieldError is returned for a descriptor key with an unrecognized
// field suffix.
type UnknownFieldError struct {
	Key string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("key %s: unknown descriptor field suffix", e.Key)
}

// IncompleteDescriptorError is returned when a descriptor is missing a
// required field after all files have been folded.
type IncompleteDescriptorError struct {
	Name   string
	Field  string
	Reason string
}

func (e *IncompleteDescriptorError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("dependency %s: field %s%s: %s", e.Name, e.Name, e.Field, e.Reason)
	}
	return fmt.Sprintf("dependency %s: missing required field %s%s", e.Name, e.Name, e.Field)
}

// ConstraintParseError is returned for a malformed version requirement.
type ConstraintParseError struct {
	Name string
	Req  string
	Err  error
}

func (e *ConstraintParseError) Error() string {
	return fmt.Sprintf("dependency %s: invalid version requirement %q: %v", e.Name, e.Req, e.Err)
}

func (e *ConstraintParseError) Unwrap() error { return e.Err }

// SplitKey splits a record key into descriptor name and field suffix.
// ok is false for foreign keys that carry no descriptor field marker.
func SplitKey(key string) (name, suffix string, ok bool, err error) {
	for _, s := range []string{SuffixProject, SuffixTagPrefix, SuffixVersionReq, SuffixVersion} {
		if n, found := strings.CutSuffix(key, s); found && n != "" {
			return n, s, true, nil
		}
	}
	if strings.Contains(key, fieldMarker) {
		return "", "", false, &UnknownFieldError{Key: key}
	}
	return "", "", false, nil
}

// Build folds records into descriptors keyed by name. Records are applied
// in order; when the same field appears more than once, the last value
// wins. After folding, every descriptor must have a valid project slug;
// a malformed version requirement is fatal, while an unparseable current
// version is treated as absent.
func Build(records []prf.Record) (map[string]*Descriptor, error) {
	type raw struct {
		project, tagPrefix, versionReq, version string
		hasProject                              bool
		versionOnly                             bool
	}

	raws := make(map[string]*raw)
	for _, rec := range records {
		name, suffix, ok, err := SplitKey(rec.Key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		r := raws[name]
		if r == nil {
			r = &raw{versionOnly: true}
			raws[name] = r
		}
		switch suffix {
		case SuffixProject:
			r.project = rec.Value
			r.hasProject = true
			r.versionOnly = false
		case SuffixTagPrefix:
			r.tagPrefix = rec.Value
			r.versionOnly = false
		case SuffixVersionReq:
			r.versionReq = rec.Value
			r.versionOnly = false
		case SuffixVersion:
			r.version = rec.Value
		}
	}

	descriptors := make(map[string]*Descriptor, len(raws))
	for name, r := range raws {
		if !r.hasProject {
			// A lone version record is residue of a removed dependency
			// in the versions file, not a misdeclaration.
			if r.versionOnly {
				continue
			}
			return nil, &IncompleteDescriptorError{Name: name, Field: SuffixProject}
		}
		if !projectRe.MatchString(r.project) {
			return nil, &IncompleteDescriptorError{
				Name:   name,
				Field:  SuffixProject,
				Reason: fmt.Sprintf("%q is not an owner/repo slug", r.project),
			}
		}

		d := &Descriptor{
			Name:      name,
			Project:   r.project,
			TagPrefix: r.tagPrefix,
		}

		if r.versionReq != "" {
			c, err := semver.NewConstraint(r.versionReq)
			if err != nil {
				return nil, &ConstraintParseError{Name: name, Req: r.versionReq, Err: err}
			}
			d.VersionReq = c
		}

		// A prior version that no longer parses is treated as a first
		// run for this dependency, not as a configuration error.
		if r.version != "" {
			if v, err := semver.StrictNewVersion(r.version); err == nil {
				d.CurrentVersion = v
			}
		}

		descriptors[name] = d
	}

	return descriptors, nil
}

// Names returns the descriptor names in sorted order.
func Names(descriptors map[string]*Descriptor) []string {
	names := make([]string, 0, len(descriptors))
	for name := range descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
