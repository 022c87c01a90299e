package rewrite

import (
	"fmt"

	"github.com/zerotable/ztdsql/ast"
	"github.com/zerotable/ztdsql/fixture"
	"github.com/zerotable/ztdsql/format"
	"github.com/zerotable/ztdsql/parser"
)

// MissingFixtureStrategy selects what happens when a query references a
// table that has no registered fixture.
type MissingFixtureStrategy string

const (
	// MissingIgnore leaves the reference untouched. Default.
	MissingIgnore MissingFixtureStrategy = "ignore"
	// MissingError fails the rewrite naming the table.
	MissingError MissingFixtureStrategy = "error"
)

// Options controls a rewrite call.
type Options struct {
	Format         *format.Options
	MissingFixture MissingFixtureStrategy
}

// MissingFixtureError reports a referenced table with no fixture under
// the error strategy.
type MissingFixtureError struct {
	Table string
}

func (e *MissingFixtureError) Error() string {
	return fmt.Sprintf("no fixture registered for table %q", e.Table)
}

// Result is the outcome of a rewrite call.
type Result struct {
	SQL             string
	FixturesApplied []string
}

// Rewrite parses the input, converts every CRUD statement into an
// equivalent SELECT, injects one fixture CTE per referenced fixture
// table ahead of any user CTEs, and renders the statements joined with
// "; ". Statements with no SELECT equivalent are dropped, except
// CREATE TEMPORARY TABLE ... AS SELECT whose inner query is injected
// while the wrapper is preserved. Positional parameters pass through
// byte for byte.
func Rewrite(sql string, set *fixture.FixtureSet, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	stmts, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}

	r := &rewriter{set: set, opts: opts, appliedSeen: map[string]bool{}}
	var out []ast.Statement
	for _, stmt := range stmts {
		rewritten, keep, err := r.statement(stmt)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, rewritten)
		}
	}
	return &Result{SQL: format.FormatStatements(out, opts.Format), FixturesApplied: r.applied}, nil
}

type rewriter struct {
	set         *fixture.FixtureSet
	opts        *Options
	applied     []string
	appliedSeen map[string]bool
}

func (r *rewriter) statement(stmt ast.Statement) (ast.Statement, bool, error) {
	switch s := stmt.(type) {
	case ast.SelectStatement:
		if err := r.inject(s); err != nil {
			return nil, false, err
		}
		return s, true, nil

	case *ast.InsertQuery:
		sel := convertInsert(s, r.definition(s.Table))
		if err := r.inject(sel); err != nil {
			return nil, false, err
		}
		return sel, true, nil

	case *ast.UpdateQuery:
		sel := convertUpdate(s, r.definition(s.Table))
		if err := r.inject(sel); err != nil {
			return nil, false, err
		}
		return sel, true, nil

	case *ast.DeleteQuery:
		sel := convertDelete(s)
		if err := r.inject(sel); err != nil {
			return nil, false, err
		}
		return sel, true, nil

	case *ast.MergeQuery:
		sel := convertMerge(s, r.definition(s.Target))
		if err := r.inject(sel); err != nil {
			return nil, false, err
		}
		return sel, true, nil

	case *ast.CreateTableQuery:
		if !s.Temporary || s.AsSelect == nil {
			return nil, false, nil
		}
		inner, ok := s.AsSelect.(ast.SelectStatement)
		if !ok {
			return nil, false, nil
		}
		if err := r.inject(inner); err != nil {
			return nil, false, err
		}
		return s, true, nil
	}
	return nil, false, nil
}

func (r *rewriter) definition(table *ast.TableIdentifier) *fixture.TableDefinition {
	if r.set == nil || table == nil {
		return nil
	}
	src := ast.TableSource{Schema: table.Schema, Name: table.Table}
	def, _, _ := r.set.Lookup(src.Variants())
	return def
}

// inject prepends one fixture CTE per referenced fixture table and
// strips schema qualifiers from the now-CTE-backed references.
func (r *rewriter) inject(stmt ast.SelectStatement) error {
	var ctes []*ast.CommonTable
	strip := map[string]bool{}
	injected := map[string]bool{}

	for _, src := range ast.CollectTables(stmt) {
		var (
			def *fixture.TableDefinition
			fx  *fixture.Fixture
			ok  bool
		)
		if r.set != nil {
			def, fx, ok = r.set.Lookup(src.Variants())
		}
		if !ok || fx == nil {
			if r.opts.MissingFixture == MissingError {
				return &MissingFixtureError{Table: src.Qualified()}
			}
			continue
		}
		for _, v := range src.Variants() {
			strip[v] = true
		}
		// One table can be referenced under several qualification
		// styles; the CTE name must stay unique.
		if injected[fx.Table] {
			continue
		}
		injected[fx.Table] = true
		ctes = append(ctes, fixture.BuildCTE(def, fx))
		if !r.appliedSeen[fx.Table] {
			r.appliedSeen[fx.Table] = true
			r.applied = append(r.applied, fx.Table)
		}
	}
	if len(ctes) == 0 {
		return nil
	}

	ast.WalkTableIdentifiers(stmt, func(t *ast.TableIdentifier) {
		if t.Schema == "" {
			return
		}
		src := ast.TableSource{Schema: t.Schema, Name: t.Table}
		for _, v := range src.Variants() {
			if strip[v] {
				t.Schema = ""
				return
			}
		}
	})

	if with := stmt.WithClause(); with != nil {
		stmt.SetWithClause(&ast.With{
			Recursive: with.Recursive,
			Tables:    append(ctes, with.Tables...),
		})
		return nil
	}
	stmt.SetWithClause(&ast.With{Tables: ctes})
	return nil
}
