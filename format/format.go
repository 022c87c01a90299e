package format

import (
	"strings"

	"github.com/zerotable/ztdsql/ast"
)

// Format renders a statement under the given options. A nil opts
// formats with the defaults (double-quoted identifiers, lower-case
// keywords, placeholders preserved).
func Format(stmt ast.Statement, opts *Options) string {
	if opts == nil {
		opts = &Options{}
	}
	f := newFormatter(opts.fill())
	f.statement(stmt)
	return f.sb.String()
}

// FormatStatements renders statements joined by "; ".
func FormatStatements(stmts []ast.Statement, opts *Options) string {
	parts := make([]string, 0, len(stmts))
	for _, s := range stmts {
		parts = append(parts, Format(s, opts))
	}
	return strings.Join(parts, "; ")
}

type formatter struct {
	opts     *Options
	sb       strings.Builder
	indent   int
	unit     string
	paramSeq int
}

func newFormatter(filled *Options) *formatter {
	return &formatter{
		opts: filled,
		unit: strings.Repeat(filled.IndentChar, filled.IndentSize),
	}
}

// compact renders a statement on a single line, used for subqueries in
// expression position and single-line WITH clauses.
func (f *formatter) compact(stmt ast.Statement) string {
	opts := *f.opts
	opts.Newline = " "
	sub := &formatter{opts: &opts, unit: ""}
	sub.statement(stmt)
	return sub.sb.String()
}

func (f *formatter) write(s string) { f.sb.WriteString(s) }
func (f *formatter) space()         { f.sb.WriteString(" ") }

func (f *formatter) kw(s string) {
	if f.opts.KeywordCase == KeywordUpper {
		f.sb.WriteString(strings.ToUpper(s))
		return
	}
	f.sb.WriteString(strings.ToLower(s))
}

func (f *formatter) newline() {
	f.write(f.opts.Newline)
	for i := 0; i < f.indent; i++ {
		f.write(f.unit)
	}
}

// comma writes the separator between list items, honoring the comma
// break style.
func (f *formatter) comma() {
	if f.opts.CommaBreak == BreakBefore {
		f.newline()
		f.write(", ")
		return
	}
	f.write(",")
	f.newline()
}

func (f *formatter) ident(part string) {
	if part == "*" {
		f.write(part)
		return
	}
	f.write(f.opts.IdentEscape.Start)
	f.write(part)
	f.write(f.opts.IdentEscape.End)
}

func (f *formatter) tableIdentifier(t *ast.TableIdentifier) {
	if t.Schema != "" {
		f.ident(t.Schema)
		f.write(".")
	}
	f.ident(t.Table)
}

// -----------------------------------------------------------------------------
// Statements

func (f *formatter) statement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.SelectQuery:
		f.selectQuery(s)
	case *ast.BinarySelectQuery:
		f.binarySelectQuery(s)
	case *ast.ValuesQuery:
		f.valuesQuery(s)
	case *ast.InsertQuery:
		f.insertQuery(s)
	case *ast.UpdateQuery:
		f.updateQuery(s)
	case *ast.DeleteQuery:
		f.deleteQuery(s)
	case *ast.MergeQuery:
		f.mergeQuery(s)
	case *ast.CreateTableQuery:
		f.createTableQuery(s)
	}
}

func (f *formatter) withClause(w *ast.With) {
	if w == nil || len(w.Tables) == 0 {
		return
	}
	f.kw("with")
	if w.Recursive {
		f.space()
		f.kw("recursive")
	}

	if f.opts.WithStyle == WithSingleLine {
		f.space()
		for i, ct := range w.Tables {
			if i > 0 {
				f.write(", ")
			}
			f.commonTableHead(ct)
			f.write("(")
			f.write(f.compact(ct.Query))
			f.write(")")
		}
		f.newline()
		return
	}

	f.indent++
	for i, ct := range w.Tables {
		if i == 0 {
			f.newline()
		} else {
			f.comma()
		}
		f.commonTableHead(ct)
		f.write("(")
		f.indent++
		f.newline()
		f.statement(ct.Query)
		f.indent--
		f.newline()
		f.write(")")
	}
	f.indent--
	f.newline()
}

func (f *formatter) commonTableHead(ct *ast.CommonTable) {
	f.ident(ct.Name)
	if len(ct.ColumnNames) > 0 {
		f.write("(")
		for i, c := range ct.ColumnNames {
			if i > 0 {
				f.write(", ")
			}
			f.ident(c)
		}
		f.write(")")
	}
	f.space()
	f.kw("as")
	f.space()
	if ct.Materialized != nil {
		if *ct.Materialized {
			f.kw("materialized")
		} else {
			f.kw("not materialized")
		}
		f.space()
	}
}

func (f *formatter) selectQuery(q *ast.SelectQuery) {
	f.withClause(q.With)
	f.kw("select")
	if q.Distinct {
		f.space()
		f.kw("distinct")
	}

	f.indent++
	for i, col := range q.Columns {
		if i == 0 {
			f.newline()
		} else {
			f.comma()
		}
		f.expression(col)
	}
	f.indent--

	if q.From != nil {
		f.newline()
		f.kw("from")
		f.fromClause(q.From)
	}
	if q.Where != nil {
		f.newline()
		f.kw("where")
		f.indent++
		f.newline()
		f.condition(q.Where)
		f.indent--
	}
	if len(q.GroupBy) > 0 {
		f.newline()
		f.kw("group by")
		f.indent++
		for i, e := range q.GroupBy {
			if i == 0 {
				f.newline()
			} else {
				f.comma()
			}
			f.expression(e)
		}
		f.indent--
	}
	if q.Having != nil {
		f.newline()
		f.kw("having")
		f.indent++
		f.newline()
		f.condition(q.Having)
		f.indent--
	}
	if len(q.OrderBy) > 0 {
		f.newline()
		f.kw("order by")
		f.indent++
		for i, el := range q.OrderBy {
			if i == 0 {
				f.newline()
			} else {
				f.comma()
			}
			f.orderByElement(el)
		}
		f.indent--
	}
	if q.Limit != nil {
		f.newline()
		f.kw("limit")
		f.space()
		f.expression(q.Limit)
	}
	if q.Offset != nil {
		f.newline()
		f.kw("offset")
		f.space()
		f.expression(q.Offset)
	}
}

func (f *formatter) binarySelectQuery(q *ast.BinarySelectQuery) {
	f.withClause(q.With)
	for i, sel := range q.Selects {
		if i > 0 {
			f.newline()
			f.kw(q.Operators[i-1])
			f.newline()
		}
		f.statement(sel)
	}
}

func (f *formatter) valuesQuery(q *ast.ValuesQuery) {
	f.withClause(q.With)
	f.kw("values")
	f.indent++
	for i, row := range q.Rows {
		if i == 0 {
			f.newline()
		} else {
			f.comma()
		}
		f.write("(")
		for j, e := range row.Exprs {
			if j > 0 {
				f.write(", ")
			}
			f.expression(e)
		}
		f.write(")")
		if f.opts.ExportComment && row.Comment != "" {
			f.write(" /* ")
			f.write(row.Comment)
			f.write(" */")
		}
	}
	f.indent--
}

func (f *formatter) insertQuery(q *ast.InsertQuery) {
	f.kw("insert into")
	f.space()
	f.tableIdentifier(q.Table)
	if len(q.Columns) > 0 {
		f.write("(")
		for i, c := range q.Columns {
			if i > 0 {
				f.write(", ")
			}
			f.ident(c)
		}
		f.write(")")
	}
	if q.Source != nil {
		f.newline()
		f.statement(q.Source)
	}
	f.returning(q.Returning)
}

func (f *formatter) updateQuery(q *ast.UpdateQuery) {
	f.kw("update")
	f.space()
	f.tableIdentifier(q.Table)
	f.alias(q.Alias)
	f.newline()
	f.kw("set")
	f.indent++
	for i, item := range q.Sets {
		if i == 0 {
			f.newline()
		} else {
			f.comma()
		}
		f.setItem(item)
	}
	f.indent--
	if q.From != nil {
		f.newline()
		f.kw("from")
		f.fromClause(q.From)
	}
	if q.Where != nil {
		f.newline()
		f.kw("where")
		f.indent++
		f.newline()
		f.condition(q.Where)
		f.indent--
	}
	f.returning(q.Returning)
}

func (f *formatter) setItem(item *ast.SetItem) {
	f.ident(item.Column)
	f.write(" = ")
	f.expression(item.Value)
}

func (f *formatter) deleteQuery(q *ast.DeleteQuery) {
	f.kw("delete from")
	f.space()
	f.tableIdentifier(q.Table)
	f.alias(q.Alias)
	if q.Using != nil {
		f.newline()
		f.kw("using")
		f.fromClause(q.Using)
	}
	if q.Where != nil {
		f.newline()
		f.kw("where")
		f.indent++
		f.newline()
		f.condition(q.Where)
		f.indent--
	}
	f.returning(q.Returning)
}

func (f *formatter) mergeQuery(q *ast.MergeQuery) {
	f.kw("merge into")
	f.space()
	f.tableIdentifier(q.Target)
	f.alias(q.TargetAlias)
	f.newline()
	f.kw("using")
	f.space()
	f.expression(q.Source)
	f.alias(q.SourceAlias)
	f.space()
	f.kw("on")
	f.space()
	f.expression(q.On)
	for _, when := range q.Whens {
		f.newline()
		f.kw("when")
		f.space()
		if !when.Matched {
			f.kw("not matched")
		} else {
			f.kw("matched")
		}
		if when.Condition != nil {
			f.space()
			f.kw("and")
			f.space()
			f.expression(when.Condition)
		}
		f.space()
		f.kw("then")
		f.indent++
		f.newline()
		f.mergeAction(when.Action)
		f.indent--
	}
}

func (f *formatter) mergeAction(a *ast.MergeAction) {
	switch a.Type {
	case ast.MergeUpdate:
		f.kw("update set")
		f.space()
		for i, item := range a.Sets {
			if i > 0 {
				f.write(", ")
			}
			f.setItem(item)
		}
	case ast.MergeInsert:
		f.kw("insert")
		if len(a.Columns) > 0 {
			f.write(" (")
			for i, c := range a.Columns {
				if i > 0 {
					f.write(", ")
				}
				f.ident(c)
			}
			f.write(")")
		}
		f.space()
		f.kw("values")
		f.write(" (")
		for i, v := range a.Values {
			if i > 0 {
				f.write(", ")
			}
			f.expression(v)
		}
		f.write(")")
	case ast.MergeDelete:
		f.kw("delete")
	case ast.MergeNothing:
		f.kw("do nothing")
	}
}

func (f *formatter) createTableQuery(q *ast.CreateTableQuery) {
	f.kw("create")
	f.space()
	if q.Temporary {
		f.kw("temporary")
		f.space()
	}
	f.kw("table")
	f.space()
	if q.IfNotExists {
		f.kw("if not exists")
		f.space()
	}
	f.tableIdentifier(q.Table)

	if q.AsSelect != nil {
		f.space()
		f.kw("as")
		f.newline()
		f.statement(q.AsSelect)
		return
	}

	f.write(" (")
	f.indent++
	for i, col := range q.Columns {
		if i == 0 {
			f.newline()
		} else {
			f.comma()
		}
		f.columnDefinition(col)
	}
	f.indent--
	f.newline()
	f.write(")")
}

func (f *formatter) columnDefinition(col *ast.ColumnDefinition) {
	f.ident(col.Name)
	f.space()
	f.write(col.TypeName)
	if col.NotNull {
		f.space()
		f.kw("not null")
	}
	if col.PrimaryKey {
		f.space()
		f.kw("primary key")
	}
	if col.Default != nil {
		f.space()
		f.kw("default")
		f.space()
		f.expression(col.Default)
	}
}

func (f *formatter) returning(exprs []ast.Expression) {
	if len(exprs) == 0 {
		return
	}
	f.newline()
	f.kw("returning")
	f.indent++
	for i, e := range exprs {
		if i == 0 {
			f.newline()
		} else {
			f.comma()
		}
		f.expression(e)
	}
	f.indent--
}

func (f *formatter) alias(name string) {
	if name == "" {
		return
	}
	f.space()
	f.kw("as")
	f.space()
	f.ident(name)
}

// -----------------------------------------------------------------------------
// FROM clause

func (f *formatter) fromClause(from *ast.FromClause) {
	f.indent++
	for i, el := range from.Elements {
		if i == 0 {
			f.newline()
		} else if el.Join != nil && el.Join.Type == "comma" {
			f.comma()
		} else {
			f.newline()
			f.joinHead(el.Join)
			f.space()
		}
		f.fromElementSource(el)
		if el.Join != nil && el.Join.On != nil {
			f.space()
			f.kw("on")
			f.space()
			f.expression(el.Join.On)
		}
		if el.Join != nil && len(el.Join.Using) > 0 {
			f.space()
			f.kw("using")
			f.write(" (")
			for j, u := range el.Join.Using {
				if j > 0 {
					f.write(", ")
				}
				f.ident(u)
			}
			f.write(")")
		}
	}
	f.indent--
}

func (f *formatter) joinHead(j *ast.JoinSpec) {
	switch j.Type {
	case "inner":
		f.kw("inner join")
	case "left":
		f.kw("left join")
	case "right":
		f.kw("right join")
	case "full":
		f.kw("full join")
	case "cross":
		f.kw("cross join")
	default:
		f.kw("join")
	}
}

func (f *formatter) fromElementSource(el *ast.FromElement) {
	switch src := el.Source.(type) {
	case *ast.Subquery:
		f.write("(")
		f.indent++
		f.newline()
		f.statement(src.Query)
		f.indent--
		f.newline()
		f.write(")")
	default:
		f.expression(el.Source)
	}
	f.alias(el.Alias)
	if len(el.ColumnAliases) > 0 {
		f.write("(")
		for i, c := range el.ColumnAliases {
			if i > 0 {
				f.write(", ")
			}
			f.ident(c)
		}
		f.write(")")
	}
}

func (f *formatter) orderByElement(el *ast.OrderByElement) {
	f.expression(el.Expr)
	if el.Descending {
		f.space()
		f.kw("desc")
	}
	if el.NullsFirst != nil {
		f.space()
		if *el.NullsFirst {
			f.kw("nulls first")
		} else {
			f.kw("nulls last")
		}
	}
}

// condition renders a boolean expression, breaking top-level AND chains
// across lines per the configured break style.
func (f *formatter) condition(expr ast.Expression) {
	terms := flattenAnd(expr)
	for i, term := range terms {
		if i > 0 {
			if f.opts.AndBreak == BreakAfter {
				f.space()
				f.kw("and")
				f.newline()
			} else {
				f.newline()
				f.kw("and")
				f.space()
			}
		}
		f.expression(term)
	}
}

func flattenAnd(expr ast.Expression) []ast.Expression {
	if b, ok := expr.(*ast.BinaryExpr); ok && b.Op == "and" {
		return append(flattenAnd(b.Left), flattenAnd(b.Right)...)
	}
	return []ast.Expression{expr}
}
