package deps

import (
	"errors"
	"strings"
	"testing"

	"github.com/ghdepup/ghdepup/internal/prf"
)

func mustParse(t *testing.T, text string) []prf.Record {
	t.Helper()
	records, err := prf.Parse(text)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return records
}

func TestBuild(t *testing.T) {
	records := mustParse(t, `HYPER_GH_PROJECT="hyperium/hyper"
HYPER_GH_TAG_PREFIX="v"
HYPER_GH_VERSION_REQ=">=0.14, <1"
HYPER_GH_VERSION="0.14.26"

HYPER_TLS_GH_PROJECT="hyperium/hyper-tls"
HYPER_TLS_GH_VERSION_REQ=">=0.5"
`)

	descriptors, err := Build(records)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if got := strings.Join(Names(descriptors), ", "); got != "HYPER, HYPER_TLS" {
		t.Errorf("names = %q, want %q", got, "HYPER, HYPER_TLS")
	}

	hyper := descriptors["HYPER"]
	if hyper.Project != "hyperium/hyper" {
		t.Errorf("project = %q, want hyperium/hyper", hyper.Project)
	}
	if hyper.TagPrefix != "v" {
		t.Errorf("tag prefix = %q, want v", hyper.TagPrefix)
	}
	if hyper.VersionReq == nil {
		t.Fatal("version requirement missing")
	}
	if hyper.CurrentVersion == nil || hyper.CurrentVersion.String() != "0.14.26" {
		t.Errorf("current version = %v, want 0.14.26", hyper.CurrentVersion)
	}

	tls := descriptors["HYPER_TLS"]
	if tls.TagPrefix != "" {
		t.Errorf("tag prefix = %q, want empty", tls.TagPrefix)
	}
	if tls.CurrentVersion != nil {
		t.Errorf("current version = %v, want nil on first run", tls.CurrentVersion)
	}
}

func TestBuildLastWriteWinsPerField(t *testing.T) {
	// Simulates two declaration files contributing pieces of the same
	// dependency; the later file overrides field by field.
	records := mustParse(t, `FOO_GH_PROJECT="owner/repo"
FOO_GH_VERSION_REQ=">=0.14, <1"
`)
	records = append(records, mustParse(t, `FOO_GH_VERSION_REQ=">=1"
`)...)

	descriptors, err := Build(records)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	d := descriptors["FOO"]
	if d.Project != "owner/repo" {
		t.Errorf("project = %q, earlier file's field must survive", d.Project)
	}
	if got := d.VersionReq.String(); got != ">=1" {
		t.Errorf("version requirement = %q, want %q from the later file", got, ">=1")
	}
}

func TestBuildUnknownField(t *testing.T) {
	records := mustParse(t, `FOO_GH_BRANCH="main"
`)
	_, err := Build(records)

	var ue *UnknownFieldError
	if !errors.As(err, &ue) {
		t.Fatalf("error = %v, want *UnknownFieldError", err)
	}
	if ue.Key != "FOO_GH_BRANCH" {
		t.Errorf("key = %q, want FOO_GH_BRANCH", ue.Key)
	}
}

func TestBuildForeignKeysIgnored(t *testing.T) {
	records := mustParse(t, `TOOLCHAIN="stable"
FOO_GH_PROJECT="owner/repo"
`)
	descriptors, err := Build(records)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(descriptors) != 1 {
		t.Errorf("got %d descriptors, want 1", len(descriptors))
	}
}

func TestBuildMissingProject(t *testing.T) {
	records := mustParse(t, `FOO_GH_TAG_PREFIX="v"
`)
	_, err := Build(records)

	var ie *IncompleteDescriptorError
	if !errors.As(err, &ie) {
		t.Fatalf("error = %v, want *IncompleteDescriptorError", err)
	}
	if ie.Name != "FOO" || ie.Field != SuffixProject {
		t.Errorf("error names %s/%s, want FOO/%s", ie.Name, ie.Field, SuffixProject)
	}
}

func TestBuildOrphanVersionTolerated(t *testing.T) {
	// A version record with no declaration anywhere is residue of a
	// removed dependency in the versions file, not a misdeclaration.
	records := mustParse(t, `GONE_GH_VERSION="1.0.0"
FOO_GH_PROJECT="owner/repo"
`)
	descriptors, err := Build(records)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, ok := descriptors["GONE"]; ok {
		t.Error("orphan version record produced a descriptor")
	}
}

func TestBuildInvalidProjectSlug(t *testing.T) {
	tests := []string{"norepo", "a/b/c", "", "owner/"}
	for _, slug := range tests {
		records := []prf.Record{{Key: "FOO_GH_PROJECT", Value: slug}}
		_, err := Build(records)

		var ie *IncompleteDescriptorError
		if !errors.As(err, &ie) {
			t.Errorf("slug %q: error = %v, want *IncompleteDescriptorError", slug, err)
		}
	}
}

func TestBuildMalformedConstraint(t *testing.T) {
	records := mustParse(t, `FOO_GH_PROJECT="owner/repo"
FOO_GH_VERSION_REQ="not a requirement"
`)
	_, err := Build(records)

	var ce *ConstraintParseError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *ConstraintParseError", err)
	}
	if ce.Name != "FOO" {
		t.Errorf("name = %q, want FOO", ce.Name)
	}
}

func TestBuildUnparseablePriorVersionIgnored(t *testing.T) {
	records := mustParse(t, `FOO_GH_PROJECT="owner/repo"
FOO_GH_VERSION="not-a-version"
`)
	descriptors, err := Build(records)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if descriptors["FOO"].CurrentVersion != nil {
		t.Error("unparseable prior version should be treated as absent")
	}
}

func TestSplitKey(t *testing.T) {
	tests := []struct {
		key    string
		name   string
		suffix string
		ok     bool
	}{
		{"HYPER_GH_PROJECT", "HYPER", SuffixProject, true},
		{"HYPER_TLS_GH_TAG_PREFIX", "HYPER_TLS", SuffixTagPrefix, true},
		{"A_GH_VERSION_REQ", "A", SuffixVersionReq, true},
		{"A_GH_VERSION", "A", SuffixVersion, true},
		{"TOOLCHAIN", "", "", false},
	}

	for _, tt := range tests {
		name, suffix, ok, err := SplitKey(tt.key)
		if err != nil {
			t.Errorf("SplitKey(%q) failed: %v", tt.key, err)
			continue
		}
		if name != tt.name || suffix != tt.suffix || ok != tt.ok {
			t.Errorf("SplitKey(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.key, name, suffix, ok, tt.name, tt.suffix, tt.ok)
		}
	}
}
