// Package query turns per-entity descriptors into SQL that fits whatever
// naming variant the connected schema uses. A Descriptor lists, for every
// logical field, the physical names it has carried over time; Resolve picks
// the ones present in the live catalog and the resulting Table builds
// SELECT, INSERT, UPDATE and DELETE statements from those names only.
package query

import (
	"strings"
)

// Kind controls how an input value is converted before binding.
type Kind int

const (
	// KindValue binds the input unchanged, parsing numbers for numeric columns.
	KindValue Kind = iota
	KindInt
	// KindDate expects YYYY-MM-DD.
	KindDate
	// KindYear accepts YYYY or YYYY-MM-DD.
	KindYear
	// KindTimestamp expects YYYY-MM-DD HH:MM[:SS].
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindDate:
		return "date"
	case KindYear:
		return "year"
	case KindTimestamp:
		return "timestamp"
	default:
		return "value"
	}
}

// OnCreate names a value filled in on insert when the input has none.
type OnCreate int

const (
	OnCreateNone OnCreate = iota
	OnCreateNow
)

// Descriptor describes one entity across schema variants.
type Descriptor struct {
	Entity  string
	Tables  []string // candidate table names, preferred first
	Key     Key
	Columns []Column
	// OrderBy names the logical column List sorts on (descending) before the
	// key. Empty sorts by key only.
	OrderBy string
}

// Key describes the primary key.
type Key struct {
	Name       string // alias in result rows
	Candidates []string
	// Sequences are tried before the conventional sequence names.
	Sequences []string
	// RowIDFallback addresses rows by the engine row id when no candidate
	// exists. Only dialects with a row id support it.
	RowIDFallback bool
}

// Column describes one logical field.
type Column struct {
	Name       string   // input key and result alias
	Candidates []string // exact physical names, preferred first
	Patterns   []string // substrings tried when no candidate matches
	// References lists tables the column is a foreign key to. A declared
	// foreign key wins over Patterns and Candidates.
	References []string
	// Inputs are further accepted input keys.
	Inputs []string
	Type   Kind

	// Optional columns may be missing from the schema. They read as NULL
	// and their input is dropped.
	Optional bool
	// RequiredOnWrite rejects inserts without a value.
	RequiredOnWrite bool
	// Hidden columns are written but never selected by List or Get.
	Hidden bool
	// Internal columns are maintained by the repository and never taken
	// from form input.
	Internal bool

	OnCreate OnCreate
	Default  any
}

func (c Column) inputKeys() []string {
	return append([]string{c.Name}, c.Inputs...)
}

func (c Column) candidates() []string {
	out := append([]string{}, c.Candidates...)
	return append(out, c.Patterns...)
}

// Column returns the descriptor column with the given logical name.
func (d *Descriptor) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// Fields carries input values keyed by logical name.
type Fields map[string]any

// Lookup returns the first value present under any of names. Exact keys
// win over case-insensitive matches.
func (f Fields) Lookup(names ...string) (any, bool) {
	for _, n := range names {
		if v, ok := f[n]; ok {
			return v, true
		}
	}
	for _, n := range names {
		for k, v := range f {
			if strings.EqualFold(k, n) {
				return v, true
			}
		}
	}
	return nil, false
}

// Has reports whether any of names is present.
func (f Fields) Has(names ...string) bool {
	_, ok := f.Lookup(names...)
	return ok
}
