package ast

import "strings"

// TableSource is a physical table referenced by a statement.
type TableSource struct {
	Schema string
	Name   string
}

// Qualified returns the schema-qualified dotted name, or the bare name
// when no schema is present.
func (t TableSource) Qualified() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Bare returns the table name without qualification.
func (t TableSource) Bare() string { return t.Name }

// Variants returns the matchable name forms, lower-cased: the qualified
// name and the bare name. Downstream fixture matching is insensitive to
// qualification style.
func (t TableSource) Variants() []string {
	bare := strings.ToLower(t.Name)
	if t.Schema == "" {
		return []string{bare}
	}
	return []string{strings.ToLower(t.Qualified()), bare}
}

// CollectTables walks a statement and returns the physical tables it
// references, in first-reference order. Names bound by the statement's
// own WITH clauses are not physical tables and are excluded.
func CollectTables(stmt Statement) []TableSource {
	c := &tableCollector{
		seen: make(map[string]bool),
		cte:  make(map[string]bool),
	}
	c.statement(stmt)
	return c.tables
}

// WalkTableIdentifiers calls fn for every physical table reference in
// the statement, in source order without deduplication. Names bound by
// WITH clauses in scope are skipped, as in CollectTables.
func WalkTableIdentifiers(stmt Statement, fn func(*TableIdentifier)) {
	c := &tableCollector{
		seen:  make(map[string]bool),
		cte:   make(map[string]bool),
		visit: fn,
	}
	c.statement(stmt)
}

type tableCollector struct {
	seen   map[string]bool
	cte    map[string]bool // names bound by WITH clauses in scope
	tables []TableSource
	visit  func(*TableIdentifier)
}

func (c *tableCollector) add(t *TableIdentifier) {
	if t == nil || t.Table == "" {
		return
	}
	if t.Schema == "" && c.cte[strings.ToLower(t.Table)] {
		return
	}
	if c.visit != nil {
		c.visit(t)
		return
	}
	key := strings.ToLower(t.Schema) + "." + strings.ToLower(t.Table)
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.tables = append(c.tables, TableSource{Schema: t.Schema, Name: t.Table})
}

func (c *tableCollector) statement(stmt Statement) {
	if stmt == nil {
		return
	}
	switch s := stmt.(type) {
	case *SelectQuery:
		c.with(s.With)
		for _, col := range s.Columns {
			c.expression(col)
		}
		c.from(s.From)
		c.expression(s.Where)
		for _, e := range s.GroupBy {
			c.expression(e)
		}
		c.expression(s.Having)
		for _, o := range s.OrderBy {
			c.expression(o.Expr)
		}
	case *BinarySelectQuery:
		c.with(s.With)
		for _, sel := range s.Selects {
			c.statement(sel)
		}
	case *ValuesQuery:
		c.with(s.With)
		for _, row := range s.Rows {
			for _, e := range row.Exprs {
				c.expression(e)
			}
		}
	case *InsertQuery:
		c.add(s.Table)
		c.statement(s.Source)
	case *UpdateQuery:
		c.add(s.Table)
		for _, set := range s.Sets {
			c.expression(set.Value)
		}
		c.from(s.From)
		c.expression(s.Where)
	case *DeleteQuery:
		c.add(s.Table)
		c.from(s.Using)
		c.expression(s.Where)
	case *MergeQuery:
		c.add(s.Target)
		c.expression(s.Source)
		c.expression(s.On)
		for _, when := range s.Whens {
			c.expression(when.Condition)
			if when.Action == nil {
				continue
			}
			for _, set := range when.Action.Sets {
				c.expression(set.Value)
			}
			for _, v := range when.Action.Values {
				c.expression(v)
			}
		}
	case *CreateTableQuery:
		c.statement(s.AsSelect)
	}
}

func (c *tableCollector) with(w *With) {
	if w == nil {
		return
	}
	for _, ct := range w.Tables {
		c.statement(ct.Query)
		c.cte[strings.ToLower(ct.Name)] = true
	}
}

func (c *tableCollector) from(f *FromClause) {
	if f == nil {
		return
	}
	for _, el := range f.Elements {
		c.expression(el.Source)
		if el.Join != nil {
			c.expression(el.Join.On)
		}
	}
}

func (c *tableCollector) expression(expr Expression) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *TableIdentifier:
		c.add(e)
	case *Subquery:
		c.statement(e.Query)
	case *BinaryExpr:
		c.expression(e.Left)
		c.expression(e.Right)
	case *UnaryExpr:
		c.expression(e.Operand)
	case *ParenExpr:
		c.expression(e.Expr)
	case *FunctionCall:
		for _, a := range e.Args {
			c.expression(a)
		}
	case *CastExpr:
		c.expression(e.Expr)
	case *CaseExpr:
		c.expression(e.Operand)
		for _, w := range e.Whens {
			c.expression(w.Condition)
			c.expression(w.Result)
		}
		c.expression(e.Else)
	case *AliasedExpr:
		c.expression(e.Expr)
	case *InExpr:
		c.expression(e.Expr)
		for _, item := range e.List {
			c.expression(item)
		}
		c.statement(e.Query)
	case *BetweenExpr:
		c.expression(e.Expr)
		c.expression(e.Low)
		c.expression(e.High)
	case *ExistsExpr:
		c.statement(e.Query)
	}
}
