// Package ghdepup resolves dependency versions from tags published on a
// source-control hosting service and persists them into a polyglot
// configuration file.
//
// The configuration format is a strict KEY="VALUE" line grammar that is
// simultaneously a valid POSIX shell script, an INI file and a Makefile
// variable block, so the same file can be sourced, included and parsed by
// the surrounding build system without translation:
//
//	HYPER_GH_PROJECT="hyperium/hyper"
//	HYPER_GH_TAG_PREFIX="v"
//	HYPER_GH_VERSION_REQ=">=0.14, <1"
//	HYPER_GH_VERSION="0.14.26"
//
// Basic usage:
//
//	import (
//		"context"
//		"github.com/ghdepup/ghdepup"
//		_ "github.com/ghdepup/ghdepup/internal/source/github"
//	)
//
//	src, err := ghdepup.NewSource("github", "", token)
//	if err != nil {
//		log.Fatal(err)
//	}
//	result, err := ghdepup.Run(context.Background(), ghdepup.Config{
//		Paths:  []string{"deps.conf", "versions.conf"},
//		Source: src,
//	})
package ghdepup

import (
	"github.com/ghdepup/ghdepup/internal/deps"
	"github.com/ghdepup/ghdepup/internal/prf"
	"github.com/ghdepup/ghdepup/internal/resolve"
	"github.com/ghdepup/ghdepup/internal/source"
	"github.com/ghdepup/ghdepup/internal/update"
)

// Re-export types from the internal packages.
type (
	// Record is a single KEY="VALUE" line of the polyglot format.
	Record = prf.Record

	// Descriptor describes one dependency's source and constraints.
	Descriptor = deps.Descriptor

	// Resolution is the outcome of resolving one dependency.
	Resolution = resolve.Resolution

	// TagSource lists the raw tag names of a project.
	TagSource = source.TagSource

	// Config describes one pipeline run.
	Config = update.Config

	// Result reports the outcome of a successful run.
	Result = update.Result
)

// Error types
type (
	FormatError               = prf.FormatError
	UnknownFieldError         = deps.UnknownFieldError
	IncompleteDescriptorError = deps.IncompleteDescriptorError
	ConstraintParseError      = deps.ConstraintParseError
	FetchError                = update.FetchError
	NotFoundError             = source.NotFoundError
	RateLimitError            = source.RateLimitError
)

// Re-export errors
var (
	ErrNotFound    = source.ErrNotFound
	ErrTooFewFiles = update.ErrTooFewFiles
)

// Parse reads polyglot records from text.
func Parse(text string) ([]Record, error) {
	return prf.Parse(text)
}

// Serialize writes records one per line, deterministically escaped.
func Serialize(records []Record) string {
	return prf.Serialize(records)
}

// VerifyPolyglot checks text under real shell, TOML and INI parsers.
func VerifyPolyglot(text string) error {
	return prf.VerifyPolyglot(text)
}

// BuildDescriptors folds records into descriptors keyed by name.
func BuildDescriptors(records []Record) (map[string]*Descriptor, error) {
	return deps.Build(records)
}

// Resolve selects the best version for a descriptor from a tag stream.
var Resolve = resolve.Resolve

// NewSource creates a tag source for a registered hosting service.
// Note: hosting services must be imported to be registered.
func NewSource(host, baseURL, token string) (TagSource, error) {
	return source.New(host, baseURL, token)
}

// SupportedHosts returns all registered hosting services.
func SupportedHosts() []string {
	return source.SupportedHosts()
}

// Run executes the full pipeline against the given configuration.
var Run = update.Run
