package parser

import (
	"testing"

	"github.com/zerotable/ztdsql/ast"
)

func TestParseSelect(t *testing.T) {
	sel, err := ParseSelect(`
		select o.id, o.total as amount, count(*)
		from public.orders o
		inner join users u on o.user_id = u.id
		where o.total > 100 and u.active
		group by o.id
		order by o.id desc nulls last
		limit 10 offset 5`)
	if err != nil {
		t.Fatal(err)
	}
	q, ok := sel.(*ast.SelectQuery)
	if !ok {
		t.Fatalf("expected *ast.SelectQuery, got %T", sel)
	}
	if len(q.Columns) != 3 {
		t.Fatalf("got %d columns, want 3", len(q.Columns))
	}
	aliased, ok := q.Columns[1].(*ast.AliasedExpr)
	if !ok || aliased.Alias != "amount" {
		t.Errorf("column 1: expected alias amount, got %#v", q.Columns[1])
	}
	if len(q.From.Elements) != 2 {
		t.Fatalf("got %d from elements, want 2", len(q.From.Elements))
	}
	table := q.From.Elements[0].Source.(*ast.TableIdentifier)
	if table.Schema != "public" || table.Table != "orders" {
		t.Errorf("got table %s.%s, want public.orders", table.Schema, table.Table)
	}
	if q.From.Elements[0].Alias != "o" {
		t.Errorf("got alias %q, want o", q.From.Elements[0].Alias)
	}
	join := q.From.Elements[1].Join
	if join == nil || join.Type != "inner" || join.On == nil {
		t.Errorf("expected inner join with on condition, got %#v", join)
	}
	if q.Where == nil || len(q.GroupBy) != 1 {
		t.Error("expected where clause and one group by expression")
	}
	if len(q.OrderBy) != 1 || !q.OrderBy[0].Descending {
		t.Fatal("expected one descending order by element")
	}
	if q.OrderBy[0].NullsFirst == nil || *q.OrderBy[0].NullsFirst {
		t.Error("expected nulls last")
	}
	if q.Limit == nil || q.Offset == nil {
		t.Error("expected limit and offset")
	}
}

func TestParseWithClause(t *testing.T) {
	sel, err := ParseSelect(`with recursive a(n) as (select 1), b as not materialized (select n from a) select * from b`)
	if err != nil {
		t.Fatal(err)
	}
	w := sel.WithClause()
	if w == nil || !w.Recursive || len(w.Tables) != 2 {
		t.Fatalf("expected recursive with clause of 2 tables, got %#v", w)
	}
	if w.Tables[0].Name != "a" || len(w.Tables[0].ColumnNames) != 1 {
		t.Errorf("cte 0: got %q with %d columns", w.Tables[0].Name, len(w.Tables[0].ColumnNames))
	}
	if w.Tables[1].Materialized == nil || *w.Tables[1].Materialized {
		t.Error("cte 1: expected not materialized")
	}
}

func TestParseUnion(t *testing.T) {
	sel, err := ParseSelect(`select 1 union all select 2 except select 3`)
	if err != nil {
		t.Fatal(err)
	}
	b, ok := sel.(*ast.BinarySelectQuery)
	if !ok {
		t.Fatalf("expected *ast.BinarySelectQuery, got %T", sel)
	}
	if len(b.Selects) != 3 {
		t.Fatalf("got %d selects, want 3", len(b.Selects))
	}
	if b.Operators[0] != "union all" || b.Operators[1] != "except" {
		t.Errorf("got operators %v", b.Operators)
	}
}

func TestParseValues(t *testing.T) {
	sel, err := ParseSelect(`values (1, 'a'), (2, 'b')`)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := sel.(*ast.ValuesQuery)
	if !ok {
		t.Fatalf("expected *ast.ValuesQuery, got %T", sel)
	}
	if len(v.Rows) != 2 || len(v.Rows[0].Exprs) != 2 {
		t.Fatalf("got %d rows, first has %d exprs", len(v.Rows), len(v.Rows[0].Exprs))
	}
}

func TestParseInsert(t *testing.T) {
	q, err := ParseInsert(`insert into public.orders (id, total) values (1, 9.99) returning id`)
	if err != nil {
		t.Fatal(err)
	}
	if q.Table.Schema != "public" || q.Table.Table != "orders" {
		t.Errorf("got table %s.%s", q.Table.Schema, q.Table.Table)
	}
	if len(q.Columns) != 2 {
		t.Errorf("got %d columns, want 2", len(q.Columns))
	}
	if _, ok := q.Source.(*ast.ValuesQuery); !ok {
		t.Errorf("expected values source, got %T", q.Source)
	}
	if len(q.Returning) != 1 {
		t.Errorf("expected one returning expression")
	}
}

func TestParseInsertFromSelect(t *testing.T) {
	q, err := ParseInsert(`insert into t (a) select a from s`)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := q.Source.(*ast.SelectQuery); !ok {
		t.Errorf("expected select source, got %T", q.Source)
	}
}

func TestParseUpdate(t *testing.T) {
	q, err := ParseUpdate(`update orders o set total = total * 1.1, status = 'open' from users u where o.user_id = u.id`)
	if err != nil {
		t.Fatal(err)
	}
	if q.Alias != "o" {
		t.Errorf("got alias %q, want o", q.Alias)
	}
	if len(q.Sets) != 2 || q.Sets[1].Column != "status" {
		t.Fatalf("got sets %#v", q.Sets)
	}
	if q.From == nil || q.Where == nil {
		t.Error("expected from and where clauses")
	}
}

func TestParseDelete(t *testing.T) {
	q, err := ParseDelete(`delete from orders using users u where orders.user_id = u.id`)
	if err != nil {
		t.Fatal(err)
	}
	if q.Table.Table != "orders" || q.Using == nil || q.Where == nil {
		t.Errorf("got %#v", q)
	}
}

func TestParseMerge(t *testing.T) {
	q, err := ParseMerge(`
		merge into orders t
		using staged s on t.id = s.id
		when matched and s.total > 0 then update set total = s.total
		when matched then delete
		when not matched then insert (id, total) values (s.id, s.total)`)
	if err != nil {
		t.Fatal(err)
	}
	if q.TargetAlias != "t" || q.SourceAlias != "s" || q.On == nil {
		t.Fatalf("got %#v", q)
	}
	if len(q.Whens) != 3 {
		t.Fatalf("got %d when branches, want 3", len(q.Whens))
	}
	if q.Whens[0].Condition == nil || q.Whens[0].Action.Type != ast.MergeUpdate {
		t.Errorf("branch 0: got %#v", q.Whens[0])
	}
	if q.Whens[1].Action.Type != ast.MergeDelete {
		t.Errorf("branch 1: got %v", q.Whens[1].Action.Type)
	}
	last := q.Whens[2]
	if last.Matched || last.Action.Type != ast.MergeInsert || len(last.Action.Columns) != 2 {
		t.Errorf("branch 2: got %#v", last)
	}
}

func TestParseCreateTable(t *testing.T) {
	q, err := ParseCreateTable(`
		create table if not exists public.orders (
			order_id bigint primary key,
			user_id bigint not null references users(id),
			total numeric(10, 2) not null default 0,
			note text,
			primary key (order_id)
		)`)
	if err != nil {
		t.Fatal(err)
	}
	if !q.IfNotExists || q.Table.Schema != "public" {
		t.Errorf("got %#v", q)
	}
	if len(q.Columns) != 4 {
		t.Fatalf("got %d columns, want 4", len(q.Columns))
	}
	if !q.Columns[0].PrimaryKey {
		t.Error("order_id: expected primary key")
	}
	if q.Columns[2].TypeName != "numeric(10, 2)" {
		t.Errorf("total: got type %q", q.Columns[2].TypeName)
	}
	if !q.Columns[2].NotNull || q.Columns[2].Default == nil {
		t.Error("total: expected not null with default")
	}
}

func TestParseCreateTempTableAsSelect(t *testing.T) {
	q, err := ParseCreateTable(`create temp table snapshot as select * from orders`)
	if err != nil {
		t.Fatal(err)
	}
	if !q.Temporary || q.AsSelect == nil {
		t.Errorf("got %#v", q)
	}
}

func TestParseMultipleStatements(t *testing.T) {
	stmts, err := Parse(`select 1; insert into t values (1); delete from t;`)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 3 {
		t.Fatalf("got %d statements, want 3", len(stmts))
	}
	if _, ok := stmts[1].(*ast.InsertQuery); !ok {
		t.Errorf("statement 1: got %T", stmts[1])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"select from where",
		"insert orders values (1)",
		"update set x = 1",
		"select * from t where",
		"select 'unterminated",
	}
	for _, sql := range tests {
		if _, err := Parse(sql); err == nil {
			t.Errorf("Parse(%q): expected error", sql)
		}
	}
}
