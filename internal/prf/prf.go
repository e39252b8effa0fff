// Package prf implements the polyglot record format: KEY="VALUE" lines
// that parse identically as POSIX shell assignments, INI entries and
// Makefile variable bindings.
//
// The format is defined as the intersection of the three grammars, so the
// codec accepts only what all of them agree on: uppercase identifiers,
// double-quoted values, backslash escapes for quote and backslash, and a
// value charset free of shell expansion and comment metacharacters.
package prf

import (
	"fmt"
	"strings"
)

// Record is a single KEY="VALUE" line.
type Record struct {
	Key   string
	Value string
}

// FormatError describes a line that violates the record grammar.
type FormatError struct {
	Line   int    // 1-based line number
	Key    string // key of the offending record, if one could be read
	Reason string
}

func (e *FormatError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("line %d (key %s): %s", e.Line, e.Key, e.Reason)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Parse reads records from text. Blank lines are skipped, as are comment
// lines starting with '#' in column 0 (the only comment form shell, INI
// and Makefile agree on). Duplicate keys are permitted; consumers apply
// last-write-wins. Any other line must match the record grammar exactly.
func Parse(text string) ([]Record, error) {
	var records []Record

	for i, line := range strings.Split(text, "\n") {
		lineno := i + 1

		if line == "" {
			continue
		}
		if line[0] == '#' {
			continue
		}

		rec, err := parseLine(line, lineno)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

// parseLine parses one KEY="VALUE" line. The grammar is strict: no
// surrounding whitespace, no whitespace around '=', value fully quoted.
func parseLine(line string, lineno int) (Record, error) {
	eq := strings.IndexByte(line, '=')
	if eq < 0 {
		return Record{}, &FormatError{Line: lineno, Reason: "missing '='"}
	}

	key := line[:eq]
	if !validKey(key) {
		return Record{}, &FormatError{Line: lineno, Reason: fmt.Sprintf("invalid key %q", key)}
	}

	raw := line[eq+1:]
	if len(raw) < 2 || raw[0] != '"' {
		return Record{}, &FormatError{Line: lineno, Key: key, Reason: "value must be double-quoted"}
	}

	value, rest, err := unquote(raw)
	if err != nil {
		return Record{}, &FormatError{Line: lineno, Key: key, Reason: err.Error()}
	}
	if rest != "" {
		return Record{}, &FormatError{Line: lineno, Key: key, Reason: "trailing characters after closing quote"}
	}

	return Record{Key: key, Value: value}, nil
}

func validKey(key string) bool {
	if key == "" || key[0] < 'A' || key[0] > 'Z' {
		return false
	}
	for i := 1; i < len(key); i++ {
		c := key[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return true
}

// unquote decodes a double-quoted value, returning the decoded string and
// any text remaining after the closing quote. Only \" and \\ escapes are
// recognized; the safe charset excludes characters the three grammars
// treat differently.
func unquote(raw string) (value, rest string, err error) {
	var b strings.Builder

	i := 1 // skip opening quote
	for i < len(raw) {
		c := raw[i]
		switch c {
		case '"':
			return b.String(), raw[i+1:], nil
		case '\\':
			if i+1 >= len(raw) {
				return "", "", fmt.Errorf("dangling backslash")
			}
			esc := raw[i+1]
			if esc != '"' && esc != '\\' {
				return "", "", fmt.Errorf("unsupported escape \\%c", esc)
			}
			b.WriteByte(esc)
			i += 2
		default:
			if !safeValueByte(c) {
				return "", "", fmt.Errorf("character %q not allowed in values", c)
			}
			b.WriteByte(c)
			i++
		}
	}

	return "", "", fmt.Errorf("unterminated quoted value")
}

// safeValueByte reports whether a byte may appear unescaped in a value.
// '$' (shell and Makefile expansion), '`' (shell command substitution) and
// '#' (Makefile comments start mid-line) are excluded, as are control
// characters. Bytes >= 0x80 are UTF-8 continuation or lead bytes and pass
// through untouched.
func safeValueByte(c byte) bool {
	if c < 0x20 || c == 0x7f {
		return false
	}
	switch c {
	case '$', '`', '#':
		return false
	}
	return true
}

// escape encodes a value for emission. The inverse of unquote on the
// escape subset; byte-deterministic for a given input.
func escape(value string) string {
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Serialize writes records in the given order, one per line, each
// terminated by a single newline. Serializing the output of Parse and
// parsing it again yields the same records.
func Serialize(records []Record) string {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(r.Key)
		b.WriteString(`="`)
		b.WriteString(escape(r.Value))
		b.WriteString("\"\n")
	}
	return b.String()
}

// ToMap collapses records into a key-value map with last-write-wins
// semantics for duplicate keys.
func ToMap(records []Record) map[string]string {
	m := make(map[string]string, len(records))
	for _, r := range records {
		m[r.Key] = r.Value
	}
	return m
}
