// Package fixture loads table definitions from CREATE TABLE DDL, merges
// them with row fixtures, validates the fixtures against the schema and
// builds literal-value common table expressions standing in for real
// tables.
package fixture

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/zerotable/ztdsql/ast"
	"github.com/zerotable/ztdsql/parser"
)

// ColumnDefinition is one column of a table definition. Default, when
// present, supplies the value of DB-generated columns in converted
// INSERT projections.
type ColumnDefinition struct {
	Name     string
	TypeName string
	Default  ast.Expression
}

// TableDefinition is the schema of one table, parsed from CREATE TABLE
// DDL or supplied explicitly. Immutable after load; shared read-only by
// concurrent rewrite calls.
type TableDefinition struct {
	Schema  string
	Table   string
	Columns []ColumnDefinition
}

// Name returns the dotted table name as written in the DDL.
func (d *TableDefinition) Name() string {
	if d.Schema == "" {
		return d.Table
	}
	return d.Schema + "." + d.Table
}

// Column returns the column with the given name, matched
// case-insensitively.
func (d *TableDefinition) Column(name string) (ColumnDefinition, bool) {
	for _, c := range d.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return ColumnDefinition{}, false
}

// variants returns the lower-cased names this definition answers to:
// the bare table name and, when schema-qualified, the dotted form.
func (d *TableDefinition) variants() []string {
	v := []string{strings.ToLower(d.Table)}
	if d.Schema != "" {
		v = append(v, strings.ToLower(d.Schema)+"."+strings.ToLower(d.Table))
	}
	return v
}

func definitionFromAST(q *ast.CreateTableQuery) *TableDefinition {
	def := &TableDefinition{Schema: q.Table.Schema, Table: q.Table.Table}
	for _, col := range q.Columns {
		def.Columns = append(def.Columns, ColumnDefinition{
			Name:     col.Name,
			TypeName: col.TypeName,
			Default:  col.Default,
		})
	}
	return def
}

// ParseDDL parses CREATE TABLE statements out of the given SQL text.
// Statements of other kinds are ignored.
func ParseDDL(sql string) ([]*TableDefinition, error) {
	stmts, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}
	var defs []*TableDefinition
	for _, stmt := range stmts {
		if q, ok := stmt.(*ast.CreateTableQuery); ok && q.AsSelect == nil {
			defs = append(defs, definitionFromAST(q))
		}
	}
	return defs, nil
}

// LoadDir reads every .sql file under the given directories and parses
// the CREATE TABLE statements they contain. Files are read in sorted
// order within each directory and directories in argument order; when
// two files define the same table the later definition wins.
func LoadDir(dirs ...string) ([]*TableDefinition, error) {
	var defs []*TableDefinition
	seen := map[string]int{}

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, errors.Wrapf(err, "load ddl dir %s", dir)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".sql") {
				continue
			}
			names = append(names, e.Name())
		}
		sort.Strings(names)

		for _, name := range names {
			path := filepath.Join(dir, name)
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, errors.Wrapf(err, "read ddl file %s", path)
			}
			parsed, err := ParseDDL(string(data))
			if err != nil {
				return nil, errors.Wrapf(err, "parse ddl file %s", path)
			}
			for _, def := range parsed {
				key := strings.ToLower(def.Name())
				if i, ok := seen[key]; ok {
					defs[i] = def
					continue
				}
				seen[key] = len(defs)
				defs = append(defs, def)
			}
		}
	}
	return defs, nil
}
