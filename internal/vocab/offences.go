// Package vocab holds the controlled vocabulary of offence codes.
//
// Codes follow the statute_section convention used across the dataset:
// "cc_266" is s. 266 of the Criminal Code, "cdsa_5" is s. 5 of the
// Controlled Drugs and Substances Act. Youth sentences reuse the adult
// code with a "_ycja" suffix.
package vocab

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	_ "embed"
)

//go:embed offences.csv
var defaultCSV string

// Offence is one entry in the controlled vocabulary
type Offence struct {
	Code string `json:"code"` // Canonical code, e.g. "cc_266"
	Name string `json:"name"` // Human-readable offence name
}

// Table is an immutable offence lookup table
type Table struct {
	byCode  map[string]Offence
	ordered []Offence
}

// Default returns the table built from the embedded vocabulary
func Default() *Table {
	t, err := Load(strings.NewReader(defaultCSV))
	if err != nil {
		// embedded vocabulary is fixed at build time
		panic(fmt.Sprintf("vocab: embedded offences.csv invalid: %v", err))
	}
	return t
}

// Load reads a code,name CSV. A header row with a literal "code" first
// field is skipped so exported spreadsheets load unchanged.
func Load(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	t := &Table{byCode: make(map[string]Offence)}

	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read vocabulary line %d: %w", line, err)
		}

		code := strings.TrimSpace(record[0])
		name := strings.TrimSpace(record[1])
		if line == 1 && strings.EqualFold(code, "code") {
			continue
		}
		if code == "" || name == "" {
			return nil, fmt.Errorf("vocabulary line %d: empty code or name", line)
		}

		canonical := Normalize(code)
		if _, exists := t.byCode[canonical]; exists {
			return nil, fmt.Errorf("vocabulary line %d: duplicate code %q", line, canonical)
		}

		off := Offence{Code: canonical, Name: name}
		t.byCode[canonical] = off
		t.ordered = append(t.ordered, off)
	}

	if len(t.ordered) == 0 {
		return nil, fmt.Errorf("vocabulary is empty")
	}
	return t, nil
}

// LoadFile reads a vocabulary CSV from disk
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Normalize returns the canonical form of an offence code. The dataset
// writes the same section three ways ("cc_266", "cc266", "266"); all of
// them normalize to the underscored form, with bare section numbers
// defaulting to the Criminal Code.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return ""
	}

	if s[0] >= '0' && s[0] <= '9' {
		return "cc_" + s
	}

	// Insert the separator between statute prefix and section number
	i := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if i > 0 && s[i-1] != '_' {
		return s[:i] + "_" + s[i:]
	}
	return s
}

// Lookup resolves a code in any accepted variant spelling. Codes carrying
// the "_ycja" suffix resolve against the adult entry and get " (YCJA)"
// appended to the name.
func (t *Table) Lookup(raw string) (Offence, bool) {
	code := Normalize(raw)
	if code == "" {
		return Offence{}, false
	}

	if off, ok := t.byCode[code]; ok {
		return off, true
	}

	if base, found := strings.CutSuffix(code, "_ycja"); found {
		if off, ok := t.byCode[base]; ok {
			return Offence{Code: code, Name: off.Name + " (YCJA)"}, true
		}
	}

	return Offence{}, false
}

// Canonical returns the canonical code for any accepted variant, or
// false when the code is not in the vocabulary.
func (t *Table) Canonical(raw string) (string, bool) {
	off, ok := t.Lookup(raw)
	if !ok {
		return "", false
	}
	return off.Code, true
}

// Search returns entries whose name contains the term, case-insensitive,
// ordered by code
func (t *Table) Search(term string) []Offence {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}

	var matches []Offence
	for _, off := range t.ordered {
		if strings.Contains(strings.ToLower(off.Name), term) {
			matches = append(matches, off)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Code < matches[j].Code })
	return matches
}

// All returns every entry in load order
func (t *Table) All() []Offence {
	out := make([]Offence, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// Len returns the number of entries
func (t *Table) Len() int {
	return len(t.ordered)
}
