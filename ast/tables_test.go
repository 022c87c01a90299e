package ast_test

import (
	"reflect"
	"testing"

	"github.com/zerotable/ztdsql/ast"
	"github.com/zerotable/ztdsql/parser"
)

func collect(t *testing.T, sql string) []ast.TableSource {
	t.Helper()
	stmt, err := parser.ParseStatement(sql)
	if err != nil {
		t.Fatalf("parse %q: %v", sql, err)
	}
	return ast.CollectTables(stmt)
}

func names(sources []ast.TableSource) []string {
	var out []string
	for _, s := range sources {
		out = append(out, s.Qualified())
	}
	return out
}

func TestCollectTables(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "simple select",
			sql:  "select * from orders",
			want: []string{"orders"},
		},
		{
			name: "joins and schema qualification",
			sql:  "select * from public.orders o inner join users u on o.user_id = u.id",
			want: []string{"public.orders", "users"},
		},
		{
			name: "nested subqueries",
			sql:  "select * from (select * from a) x where exists (select 1 from b) and id in (select id from c)",
			want: []string{"a", "b", "c"},
		},
		{
			name: "cte names are not physical tables",
			sql:  "with recent as (select * from orders) select * from recent",
			want: []string{"orders"},
		},
		{
			name: "deduplicated",
			sql:  "select * from t union all select * from t",
			want: []string{"t"},
		},
		{
			name: "insert",
			sql:  "insert into orders select * from staged",
			want: []string{"orders", "staged"},
		},
		{
			name: "update with from",
			sql:  "update orders set total = 0 from users where orders.user_id = users.id",
			want: []string{"orders", "users"},
		},
		{
			name: "delete using",
			sql:  "delete from orders using users where orders.user_id = users.id",
			want: []string{"orders", "users"},
		},
		{
			name: "merge",
			sql:  "merge into orders t using staged s on t.id = s.id when matched then delete",
			want: []string{"orders", "staged"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(collect(t, tt.sql))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTableSourceVariants(t *testing.T) {
	src := ast.TableSource{Schema: "Public", Name: "Orders"}
	want := []string{"public.orders", "orders"}
	if !reflect.DeepEqual(src.Variants(), want) {
		t.Errorf("got %v, want %v", src.Variants(), want)
	}

	bare := ast.TableSource{Name: "Orders"}
	if !reflect.DeepEqual(bare.Variants(), []string{"orders"}) {
		t.Errorf("got %v", bare.Variants())
	}
}

func TestWalkTableIdentifiers(t *testing.T) {
	stmt, err := parser.ParseStatement("select * from public.orders where id in (select id from public.orders)")
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	ast.WalkTableIdentifiers(stmt, func(ti *ast.TableIdentifier) {
		count++
		ti.Schema = ""
	})
	if count != 2 {
		t.Fatalf("visited %d identifiers, want 2", count)
	}
	for _, src := range ast.CollectTables(stmt) {
		if src.Schema != "" {
			t.Errorf("schema not cleared: %v", src)
		}
	}
}
