package compose

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/zerotable/ztdsql/ast"
	"github.com/zerotable/ztdsql/format"
	"github.com/zerotable/ztdsql/parser"
)

// CycleError reports a circular resource dependency. Chain holds the
// display names along the cycle, starting and ending at the repeated
// node.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "circular dependency: " + strings.Join(e.Chain, " -> ")
}

// Report is the outcome of composing one root query.
type Report struct {
	SQL     string
	CTEs    []string // composed resource names, dependencies first
	Missing []string // referenced names with no indexed resource
}

// resolution is the per-invocation working state: cache of loaded
// resources, the visiting stack for cycle detection and the ordered
// post-order output. Two independent build invocations never share one.
type resolution struct {
	index    *Index
	visiting map[string]bool
	stack    []string // display names on the current resolution path
	added    map[string]bool
	ordered  []*ast.CommonTable
	names    []string
	missing  []string
	seen     map[string]bool // missing-name dedupe
}

// Compose loads the root query file, resolves every referenced resource
// recursively and renders root plus its dependencies as one statement.
// Dependencies precede dependents in the composed WITH clause. Whether
// the original file ended with a semicolon is preserved.
func Compose(rootPath string, index *Index, opts *format.Options) (*Report, error) {
	data, err := os.ReadFile(rootPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read root %s", rootPath)
	}
	text := string(data)
	trailingSemicolon := strings.HasSuffix(strings.TrimSpace(text), ";")

	root, err := parseResource(text, rootPath)
	if err != nil {
		return nil, err
	}

	r := &resolution{
		index:    index,
		visiting: map[string]bool{},
		added:    map[string]bool{},
		seen:     map[string]bool{},
	}
	if err := r.resolveReferences(root); err != nil {
		return nil, err
	}

	if len(r.ordered) > 0 {
		root.SetWithClause(&ast.With{Tables: r.ordered})
	}
	sql := format.Format(root, opts)
	if trailingSemicolon {
		sql += ";"
	}
	return &Report{SQL: sql, CTEs: r.names, Missing: r.missing}, nil
}

// parseResource parses a resource file into a single SELECT-like
// statement. Resources must be pure: the composer owns all CTE
// placement, so a resource carrying its own WITH clause is rejected.
func parseResource(text, path string) (ast.SelectStatement, error) {
	stmts, err := parser.Parse(text)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if len(stmts) != 1 {
		return nil, fmt.Errorf("resource %s must contain exactly one statement, found %d", path, len(stmts))
	}
	sel, ok := stmts[0].(ast.SelectStatement)
	if !ok {
		return nil, fmt.Errorf("resource %s must be a select statement", path)
	}
	if w := sel.WithClause(); w != nil && len(w.Tables) > 0 {
		return nil, fmt.Errorf("resource %s must not declare its own with clause", path)
	}
	return sel, nil
}

func (r *resolution) resolveReferences(stmt ast.Statement) error {
	for _, src := range ast.CollectTables(stmt) {
		if err := r.resolve(src.Bare()); err != nil {
			return err
		}
	}
	return nil
}

// resolve loads one resource and, post-order, appends it after its own
// dependencies. A name already on the visiting stack is a cycle.
func (r *resolution) resolve(name string) error {
	res, ok := r.index.Lookup(name)
	if !ok {
		key := strings.ToLower(name)
		if !r.seen[key] {
			r.seen[key] = true
			r.missing = append(r.missing, name)
		}
		return nil
	}
	normalized := strings.ToLower(res.DisplayName)
	if r.added[normalized] {
		return nil
	}
	if r.visiting[normalized] {
		return r.cycleError(res.DisplayName)
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		return errors.Wrapf(err, "read resource %s", res.Path)
	}
	query, err := parseResource(string(data), res.Path)
	if err != nil {
		return err
	}

	r.visiting[normalized] = true
	r.stack = append(r.stack, res.DisplayName)
	if err := r.resolveReferences(query); err != nil {
		return err
	}
	r.stack = r.stack[:len(r.stack)-1]
	delete(r.visiting, normalized)

	r.added[normalized] = true
	r.ordered = append(r.ordered, &ast.CommonTable{Name: res.DisplayName, Query: query})
	r.names = append(r.names, res.DisplayName)
	return nil
}

// cycleError builds the chain starting at the repeated node.
func (r *resolution) cycleError(repeated string) error {
	start := 0
	for i, name := range r.stack {
		if strings.EqualFold(name, repeated) {
			start = i
			break
		}
	}
	chain := append(r.stack[start:len(r.stack):len(r.stack)], repeated)
	return &CycleError{Chain: chain}
}
