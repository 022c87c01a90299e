// Package rewrite converts CRUD statements into fixture-backed SELECT
// statements and injects fixture common table expressions, so a query
// can run without touching any real table.
package rewrite

import (
	"strings"

	"github.com/zerotable/ztdsql/ast"
	"github.com/zerotable/ztdsql/fixture"
)

// sourceAlias names the derived table wrapping an INSERT source.
const sourceAlias = "v"

// convertInsert turns an INSERT into a SELECT projecting the inserted
// rows. The statement's VALUES or SELECT source becomes a named CTE
// carrying the insert column list, and every column of the definition
// appears in the projection: supplied columns are cast to their declared
// types, the rest take their DDL default or a typed NULL. Without a
// definition only the supplied columns are projected.
func convertInsert(q *ast.InsertQuery, def *fixture.TableDefinition) ast.SelectStatement {
	columns := q.Columns
	if len(columns) == 0 && def != nil {
		columns = make([]string, len(def.Columns))
		for i, col := range def.Columns {
			columns[i] = col.Name
		}
	}

	if len(columns) == 0 {
		return &ast.SelectQuery{
			Columns: []ast.Expression{&ast.Asterisk{}},
			From: &ast.FromClause{Elements: []*ast.FromElement{{
				Source: &ast.Subquery{Query: q.Source},
				Alias:  sourceAlias,
			}}},
		}
	}

	sel := &ast.SelectQuery{
		With: &ast.With{Tables: []*ast.CommonTable{{
			Name:        sourceAlias,
			ColumnNames: columns,
			Query:       q.Source,
		}}},
		From: &ast.FromClause{Elements: []*ast.FromElement{{
			Source: &ast.TableIdentifier{Table: sourceAlias},
		}}},
	}
	if def == nil {
		for _, name := range columns {
			sel.Columns = append(sel.Columns, &ast.AliasedExpr{
				Expr:  &ast.Identifier{Parts: []string{sourceAlias, name}},
				Alias: name,
			})
		}
		return sel
	}

	for _, col := range def.Columns {
		if containsFold(columns, col.Name) {
			sel.Columns = append(sel.Columns, &ast.AliasedExpr{
				Expr:  ast.NewCast(&ast.Identifier{Parts: []string{sourceAlias, col.Name}}, col.TypeName),
				Alias: col.Name,
			})
			continue
		}
		generated := col.Default
		if generated == nil {
			generated = ast.NewCast(ast.NullLiteral(), col.TypeName)
		}
		sel.Columns = append(sel.Columns, &ast.AliasedExpr{Expr: generated, Alias: col.Name})
	}
	return sel
}

// convertUpdate turns an UPDATE into a SELECT of the affected rows with
// the assignments applied. With a definition the full row is projected;
// without one only the assigned columns are.
func convertUpdate(q *ast.UpdateQuery, def *fixture.TableDefinition) ast.SelectStatement {
	qualifier := q.Alias
	if qualifier == "" {
		qualifier = q.Table.Table
	}

	sel := &ast.SelectQuery{Where: q.Where}
	sel.From = joinedFrom(q.Table, q.Alias, q.From)

	if def == nil {
		for _, item := range q.Sets {
			sel.Columns = append(sel.Columns, &ast.AliasedExpr{Expr: item.Value, Alias: item.Column})
		}
		return sel
	}
	for _, col := range def.Columns {
		sel.Columns = append(sel.Columns, &ast.AliasedExpr{
			Expr:  assignedValue(q.Sets, col.Name, qualifier),
			Alias: col.Name,
		})
	}
	return sel
}

// convertDelete turns a DELETE into a SELECT of the rows it would
// remove.
func convertDelete(q *ast.DeleteQuery) ast.SelectStatement {
	star := &ast.Asterisk{}
	if q.Using != nil || q.Alias != "" {
		qualifier := q.Alias
		if qualifier == "" {
			qualifier = q.Table.Table
		}
		star.Table = qualifier
	}
	return &ast.SelectQuery{
		Columns: []ast.Expression{star},
		From:    joinedFrom(q.Table, q.Alias, q.Using),
		Where:   q.Where,
	}
}

// convertMerge turns a MERGE into a union of one SELECT per branch that
// produces rows: matched updates become joins of target and source with
// the assignments applied, unmatched inserts become projections over
// source rows that have no match in the target. Delete and do-nothing
// branches contribute no rows.
func convertMerge(q *ast.MergeQuery, def *fixture.TableDefinition) ast.SelectStatement {
	targetQualifier := q.TargetAlias
	if targetQualifier == "" {
		targetQualifier = q.Target.Table
	}

	var branches []ast.Statement
	for _, when := range q.Whens {
		if when.Action == nil {
			continue
		}
		switch {
		case when.Matched && when.Action.Type == ast.MergeUpdate:
			branches = append(branches, mergeUpdateBranch(q, when, def, targetQualifier))
		case !when.Matched && when.Action.Type == ast.MergeInsert:
			branches = append(branches, mergeInsertBranch(q, when, def))
		}
	}

	switch len(branches) {
	case 0:
		return &ast.SelectQuery{
			Columns: []ast.Expression{&ast.Asterisk{}},
			From:    joinedFrom(q.Target, q.TargetAlias, nil),
		}
	case 1:
		return branches[0].(ast.SelectStatement)
	}
	ops := make([]string, len(branches)-1)
	for i := range ops {
		ops[i] = "union all"
	}
	return &ast.BinarySelectQuery{Selects: branches, Operators: ops}
}

func mergeUpdateBranch(q *ast.MergeQuery, when *ast.MergeWhen, def *fixture.TableDefinition, qualifier string) ast.Statement {
	sel := &ast.SelectQuery{
		From: &ast.FromClause{Elements: []*ast.FromElement{
			{Source: q.Target, Alias: q.TargetAlias},
			{
				Join:   &ast.JoinSpec{Type: "inner", On: q.On},
				Source: q.Source,
				Alias:  q.SourceAlias,
			},
		}},
		Where: when.Condition,
	}
	if def == nil {
		for _, item := range when.Action.Sets {
			sel.Columns = append(sel.Columns, &ast.AliasedExpr{Expr: item.Value, Alias: item.Column})
		}
		return sel
	}
	for _, col := range def.Columns {
		sel.Columns = append(sel.Columns, &ast.AliasedExpr{
			Expr:  assignedValue(when.Action.Sets, col.Name, qualifier),
			Alias: col.Name,
		})
	}
	return sel
}

// mergeInsertBranch projects the rows an unmatched insert would add. An
// insert without a column list binds its values to the definition's
// columns in order. With a definition the full row is projected so the
// branch lines up with the matched-update branch in a union.
func mergeInsertBranch(q *ast.MergeQuery, when *ast.MergeWhen, def *fixture.TableDefinition) ast.Statement {
	notMatched := &ast.ExistsExpr{
		Not: true,
		Query: &ast.SelectQuery{
			Columns: []ast.Expression{ast.NewNumber("1")},
			From:    joinedFrom(q.Target, q.TargetAlias, nil),
			Where:   q.On,
		},
	}
	where := ast.Expression(notMatched)
	if when.Condition != nil {
		where = &ast.BinaryExpr{Left: notMatched, Op: "and", Right: when.Condition}
	}

	sel := &ast.SelectQuery{
		From: &ast.FromClause{Elements: []*ast.FromElement{{
			Source: q.Source,
			Alias:  q.SourceAlias,
		}}},
		Where: where,
	}

	columns := when.Action.Columns
	if len(columns) == 0 && def != nil {
		columns = make([]string, len(def.Columns))
		for i, col := range def.Columns {
			columns[i] = col.Name
		}
	}

	if def == nil {
		for i, value := range when.Action.Values {
			if i < len(columns) {
				sel.Columns = append(sel.Columns, &ast.AliasedExpr{Expr: value, Alias: columns[i]})
				continue
			}
			sel.Columns = append(sel.Columns, value)
		}
		return sel
	}

	supplied := map[string]ast.Expression{}
	for i, name := range columns {
		if i < len(when.Action.Values) {
			supplied[strings.ToLower(name)] = when.Action.Values[i]
		}
	}
	for _, col := range def.Columns {
		if value, ok := supplied[strings.ToLower(col.Name)]; ok {
			sel.Columns = append(sel.Columns, &ast.AliasedExpr{
				Expr:  ast.NewCast(value, col.TypeName),
				Alias: col.Name,
			})
			continue
		}
		generated := col.Default
		if generated == nil {
			generated = ast.NewCast(ast.NullLiteral(), col.TypeName)
		}
		sel.Columns = append(sel.Columns, &ast.AliasedExpr{Expr: generated, Alias: col.Name})
	}
	return sel
}

// joinedFrom builds a FROM clause starting at the given table and
// appending any extra elements with comma joins. Existing elements are
// copied, never mutated, since converter input may be shared.
func joinedFrom(table *ast.TableIdentifier, alias string, extra *ast.FromClause) *ast.FromClause {
	from := &ast.FromClause{Elements: []*ast.FromElement{{Source: table, Alias: alias}}}
	if extra == nil {
		return from
	}
	for _, el := range extra.Elements {
		copied := *el
		if copied.Join == nil {
			copied.Join = &ast.JoinSpec{Type: "comma"}
		}
		from.Elements = append(from.Elements, &copied)
	}
	return from
}

func assignedValue(sets []*ast.SetItem, column, qualifier string) ast.Expression {
	for _, item := range sets {
		if strings.EqualFold(item.Column, column) {
			return item.Value
		}
	}
	return &ast.Identifier{Parts: []string{qualifier, column}}
}

func containsFold(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}
