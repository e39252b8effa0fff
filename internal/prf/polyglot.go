package prf

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/ini.v1"
	"mvdan.cc/sh/v3/syntax"
)

// VerifyPolyglot parses text with real parsers for the target grammars and
// checks they agree with the codec's own reading. TOML is included because
// the record grammar is also a valid TOML document (the format's original
// fourth grammar); Makefile has no parser library, its rules are enforced
// by the codec's charset restriction alone.
//
// TOML rejects duplicate keys, so verification is stricter than Parse:
// a file that leans on last-write-wins will parse but not verify.
func VerifyPolyglot(text string) error {
	records, err := Parse(text)
	if err != nil {
		return err
	}
	want := ToMap(records)

	if err := verifyShell(text, records); err != nil {
		return fmt.Errorf("shell: %w", err)
	}
	if err := verifyTOML(text, want); err != nil {
		return fmt.Errorf("toml: %w", err)
	}
	if err := verifyINI(text, want); err != nil {
		return fmt.Errorf("ini: %w", err)
	}
	return nil
}

// verifyShell parses the text as POSIX shell and checks every statement is
// a bare variable assignment matching the record keys in order. Values are
// checked structurally, not by expansion; the charset restriction already
// guarantees no expansion can occur.
func verifyShell(text string, records []Record) error {
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	file, err := parser.Parse(strings.NewReader(text), "")
	if err != nil {
		return err
	}

	var names []string
	for _, stmt := range file.Stmts {
		call, ok := stmt.Cmd.(*syntax.CallExpr)
		if !ok || len(call.Args) > 0 {
			return fmt.Errorf("statement at line %d is not a plain assignment", stmt.Pos().Line())
		}
		for _, assign := range call.Assigns {
			if assign.Name == nil {
				return fmt.Errorf("assignment at line %d has no name", stmt.Pos().Line())
			}
			names = append(names, assign.Name.Value)
		}
	}

	if len(names) != len(records) {
		return fmt.Errorf("%d assignments, want %d records", len(names), len(records))
	}
	for i, r := range records {
		if names[i] != r.Key {
			return fmt.Errorf("assignment %d is %s, want %s", i, names[i], r.Key)
		}
	}
	return nil
}

func verifyTOML(text string, want map[string]string) error {
	var doc map[string]any
	if err := toml.Unmarshal([]byte(text), &doc); err != nil {
		return err
	}

	if len(doc) != len(want) {
		return fmt.Errorf("%d keys, want %d", len(doc), len(want))
	}
	for key, wantVal := range want {
		got, ok := doc[key]
		if !ok {
			return fmt.Errorf("key %s missing", key)
		}
		s, ok := got.(string)
		if !ok {
			return fmt.Errorf("key %s is %T, want string", key, got)
		}
		if s != wantVal {
			return fmt.Errorf("key %s is %q, want %q", key, s, wantVal)
		}
	}
	return nil
}

func verifyINI(text string, want map[string]string) error {
	file, err := ini.Load([]byte(text))
	if err != nil {
		return err
	}

	section := file.Section(ini.DefaultSection)
	keys := section.KeyStrings()
	if len(keys) != len(want) {
		return fmt.Errorf("%d keys, want %d", len(keys), len(want))
	}
	for key, wantVal := range want {
		if !section.HasKey(key) {
			return fmt.Errorf("key %s missing", key)
		}
		// INI parsers differ on backslash handling inside quoted values,
		// so values containing escapes are checked for presence only.
		if strings.ContainsAny(wantVal, `"\`) {
			continue
		}
		if got := section.Key(key).String(); got != wantVal {
			return fmt.Errorf("key %s is %q, want %q", key, got, wantVal)
		}
	}
	return nil
}
