package fixture

import (
	"fmt"
	"strings"
)

// Row is a flat column-to-value mapping for one fixture row. Keys are
// matched against the table definition case-insensitively.
type Row map[string]any

// Fixture holds the rows standing in for one table's contents.
type Fixture struct {
	Table string
	Rows  []Row
}

// ValidationError reports a fixture that does not match the loaded
// table definitions. Column is empty when the table itself is unknown.
type ValidationError struct {
	Table  string
	Column string
}

func (e *ValidationError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("table %q not defined", e.Table)
	}
	return fmt.Sprintf("column %q not found in table %q", e.Column, e.Table)
}

type entry struct {
	def     *TableDefinition
	fixture *Fixture
}

// FixtureSet is the validated, immutable pairing of table definitions
// and row fixtures consumed by the rewriter. Construction validates
// every fixture eagerly so a whole batch fails together; a constructed
// set is safe for concurrent use.
type FixtureSet struct {
	byName map[string]*entry // lower-cased bare and qualified names
	order  []string          // fixture display names in input order
}

// Merge combines table definitions; entries in overrides replace base
// entries with the same (case-insensitive) name.
func Merge(base, overrides []*TableDefinition) []*TableDefinition {
	out := make([]*TableDefinition, 0, len(base)+len(overrides))
	index := map[string]int{}
	for _, def := range base {
		index[strings.ToLower(def.Name())] = len(out)
		out = append(out, def)
	}
	for _, def := range overrides {
		if i, ok := index[strings.ToLower(def.Name())]; ok {
			out[i] = def
			continue
		}
		index[strings.ToLower(def.Name())] = len(out)
		out = append(out, def)
	}
	return out
}

// NewFixtureSet validates the fixtures against the definitions and
// returns the set. Every fixture table must resolve to a definition and
// every row key must name a column of that definition; the first
// mismatch fails the whole construction.
func NewFixtureSet(defs []*TableDefinition, fixtures []*Fixture) (*FixtureSet, error) {
	set := &FixtureSet{byName: map[string]*entry{}}
	for _, def := range defs {
		e := &entry{def: def}
		for _, v := range def.variants() {
			set.byName[v] = e
		}
	}

	for _, fx := range fixtures {
		e, ok := set.byName[strings.ToLower(fx.Table)]
		if !ok {
			return nil, &ValidationError{Table: fx.Table}
		}
		for _, row := range fx.Rows {
			for col := range row {
				if _, ok := e.def.Column(col); !ok {
					return nil, &ValidationError{Table: fx.Table, Column: col}
				}
			}
		}
		e.fixture = fx
		set.order = append(set.order, fx.Table)
	}
	return set, nil
}

// Lookup resolves any of the given lower-cased name variants to a
// definition and its fixture. The fixture is nil when only DDL was
// loaded for the table.
func (s *FixtureSet) Lookup(variants []string) (*TableDefinition, *Fixture, bool) {
	for _, v := range variants {
		if e, ok := s.byName[v]; ok {
			return e.def, e.fixture, true
		}
	}
	return nil, nil, false
}

// Names returns the fixture table names in the order supplied.
func (s *FixtureSet) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
