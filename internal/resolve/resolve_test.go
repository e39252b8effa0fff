package resolve

import (
	"errors"
	"iter"
	"testing"

	"github.com/Masterminds/semver/v3"

	"github.com/ghdepup/ghdepup/internal/deps"
)

func tagSeq(tags ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, tag := range tags {
			if !yield(tag, nil) {
				return
			}
		}
	}
}

func failingSeq(tags []string, err error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, tag := range tags {
			if !yield(tag, nil) {
				return
			}
		}
		yield("", err)
	}
}

func descriptor(t *testing.T, prefix, req, current string) *deps.Descriptor {
	t.Helper()
	d := &deps.Descriptor{Name: "DEP", Project: "owner/repo", TagPrefix: prefix}
	if req != "" {
		c, err := semver.NewConstraint(req)
		if err != nil {
			t.Fatalf("bad constraint %q: %v", req, err)
		}
		d.VersionReq = c
	}
	if current != "" {
		v, err := semver.StrictNewVersion(current)
		if err != nil {
			t.Fatalf("bad version %q: %v", current, err)
		}
		d.CurrentVersion = v
	}
	return d
}

func TestResolvePrefixStripping(t *testing.T) {
	d := descriptor(t, "v", "", "")

	res, err := Resolve(d, tagSeq("v1.2.3", "1.2.3"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Unresolved {
		t.Fatal("unexpectedly unresolved")
	}
	if got := res.Version.String(); got != "1.2.3" {
		t.Errorf("version = %s, want 1.2.3", got)
	}
	// "1.2.3" does not carry the prefix and must be discarded, leaving
	// a single candidate.
	if res.Candidates != 1 {
		t.Errorf("candidates = %d, want 1", res.Candidates)
	}
}

func TestResolveConstraintFiltering(t *testing.T) {
	d := descriptor(t, "", ">=0.14, <1", "")

	res, err := Resolve(d, tagSeq("0.13.0", "0.14.0", "0.14.26", "1.0.0"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := res.Version.String(); got != "0.14.26" {
		t.Errorf("version = %s, want 0.14.26", got)
	}
}

func TestResolveNoMatchRetainsPrior(t *testing.T) {
	d := descriptor(t, "", ">=0.14, <1", "0.14.20")

	res, err := Resolve(d, tagSeq("0.13.0"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !res.Unresolved {
		t.Fatal("expected unresolved")
	}
	if got := res.Version.String(); got != "0.14.20" {
		t.Errorf("version = %s, want prior 0.14.20 retained", got)
	}
}

func TestResolveNoMatchNoPrior(t *testing.T) {
	d := descriptor(t, "", ">=2", "")

	res, err := Resolve(d, tagSeq("1.0.0"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !res.Unresolved || res.Version != nil {
		t.Errorf("got (%v, unresolved=%v), want (nil, true)", res.Version, res.Unresolved)
	}
}

func TestResolvePrereleaseExcluded(t *testing.T) {
	d := descriptor(t, "", ">=0.9", "")

	res, err := Resolve(d, tagSeq("1.0.0-rc.1"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !res.Unresolved {
		t.Errorf("pre-release tag selected against stable requirement: %v", res.Version)
	}
}

func TestResolvePrereleaseAdmittedExplicitly(t *testing.T) {
	d := descriptor(t, "", ">=1.0.0-rc", "")

	res, err := Resolve(d, tagSeq("1.0.0-rc.1"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Unresolved {
		t.Fatal("requirement targeting a pre-release must admit matching pre-releases")
	}
	if got := res.Version.String(); got != "1.0.0-rc.1" {
		t.Errorf("version = %s, want 1.0.0-rc.1", got)
	}
}

func TestResolveNoRequirementSkipsPrereleases(t *testing.T) {
	d := descriptor(t, "", "", "")

	res, err := Resolve(d, tagSeq("1.0.0", "1.1.0-beta.1"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := res.Version.String(); got != "1.0.0" {
		t.Errorf("version = %s, want 1.0.0", got)
	}
}

func TestResolveSkipsNoise(t *testing.T) {
	d := descriptor(t, "v", "", "")

	res, err := Resolve(d, tagSeq("foo111", "bar2", "v1.2.3", "2.3.4", "v3.4.5", "vnot.a.version"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := res.Version.String(); got != "3.4.5" {
		t.Errorf("version = %s, want 3.4.5", got)
	}
	if res.Candidates != 2 {
		t.Errorf("candidates = %d, want 2", res.Candidates)
	}
}

func TestResolveOrderInsensitive(t *testing.T) {
	d := descriptor(t, "", ">=0.14, <1", "")

	orders := [][]string{
		{"0.14.26", "0.13.0", "1.0.0", "0.14.0"},
		{"1.0.0", "0.14.0", "0.14.26", "0.13.0"},
		{"0.13.0", "0.14.0", "0.14.0", "0.14.26", "0.14.26"},
	}
	for _, tags := range orders {
		res, err := Resolve(d, tagSeq(tags...))
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if got := res.Version.String(); got != "0.14.26" {
			t.Errorf("tags %v: version = %s, want 0.14.26", tags, got)
		}
	}
}

func TestResolveStreamError(t *testing.T) {
	d := descriptor(t, "", "", "")
	boom := errors.New("rate limited")

	_, err := Resolve(d, failingSeq([]string{"1.0.0"}, boom))
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
}
