package format_test

import (
	"strings"
	"testing"

	"github.com/zerotable/ztdsql/ast"
	"github.com/zerotable/ztdsql/format"
	"github.com/zerotable/ztdsql/parser"
)

func mustParse(t *testing.T, sql string) ast.Statement {
	t.Helper()
	stmt, err := parser.ParseStatement(sql)
	if err != nil {
		t.Fatalf("parse %q: %v", sql, err)
	}
	return stmt
}

func TestFormatSelect(t *testing.T) {
	got := format.Format(mustParse(t, `select id, name from users where id = 1 and status = 'open'`), nil)
	want := strings.Join([]string{
		`select`,
		`    "id",`,
		`    "name"`,
		`from`,
		`    "users"`,
		`where`,
		`    "id" = 1`,
		`    and "status" = 'open'`,
	}, "\n")
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatJoin(t *testing.T) {
	got := format.Format(mustParse(t, `select o.id from orders o inner join users u on o.user_id = u.id`), nil)
	want := strings.Join([]string{
		`select`,
		`    "o"."id"`,
		`from`,
		`    "orders" as "o"`,
		`    inner join "users" as "u" on "o"."user_id" = "u"."id"`,
	}, "\n")
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatWithClause(t *testing.T) {
	got := format.Format(mustParse(t, `with a as (select 1) select * from a`), nil)
	want := strings.Join([]string{
		`with`,
		`    "a" as (`,
		`        select`,
		`            1`,
		`    )`,
		`select`,
		`    *`,
		`from`,
		`    "a"`,
	}, "\n")
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatWithSingleLine(t *testing.T) {
	opts := &format.Options{WithStyle: format.WithSingleLine}
	got := format.Format(mustParse(t, `with a as (select 1) select * from a`), opts)
	want := strings.Join([]string{
		`with "a" as (select 1)`,
		`select`,
		`    *`,
		`from`,
		`    "a"`,
	}, "\n")
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatInsert(t *testing.T) {
	got := format.Format(mustParse(t, `insert into t (a, b) values (1, 'x')`), nil)
	want := strings.Join([]string{
		`insert into "t"("a", "b")`,
		`values`,
		`    (1, 'x')`,
	}, "\n")
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatUnion(t *testing.T) {
	got := format.Format(mustParse(t, `select 1 union all select 2`), nil)
	want := strings.Join([]string{
		`select`,
		`    1`,
		`union all`,
		`select`,
		`    2`,
	}, "\n")
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatCase(t *testing.T) {
	got := format.Format(mustParse(t, `select case when a then 1 else 2 end`), nil)
	want := strings.Join([]string{
		`select`,
		`    case`,
		`        when "a" then 1`,
		`        else 2`,
		`    end`,
	}, "\n")
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatCommaBreakBefore(t *testing.T) {
	opts := &format.Options{CommaBreak: format.BreakBefore}
	got := format.Format(mustParse(t, `select a, b`), opts)
	want := strings.Join([]string{
		`select`,
		`    "a"`,
		`    , "b"`,
	}, "\n")
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatKeywordUpper(t *testing.T) {
	opts := &format.Options{KeywordCase: format.KeywordUpper}
	got := format.Format(mustParse(t, `select a from t where a is not null`), opts)
	want := strings.Join([]string{
		`SELECT`,
		`    "a"`,
		`FROM`,
		`    "t"`,
		`WHERE`,
		`    "a" IS NOT NULL`,
	}, "\n")
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatPresets(t *testing.T) {
	stmt := `select id from users where id = $1`

	mysql := format.Format(mustParse(t, stmt), format.MySQL())
	if !strings.Contains(mysql, "`id`") || !strings.Contains(mysql, "= ?") {
		t.Errorf("mysql preset: got:\n%s", mysql)
	}

	mssql := format.Format(mustParse(t, `select id from users where id = @uid`), format.SQLServer())
	if !strings.Contains(mssql, "[id]") || !strings.Contains(mssql, "= @uid") {
		t.Errorf("sqlserver preset: got:\n%s", mssql)
	}
}

func TestFormatParamIndexed(t *testing.T) {
	got := format.Format(mustParse(t, `select * from t where a = :x and b = :y`), format.Postgres())
	if !strings.Contains(got, "= $1") || !strings.Contains(got, "= $2") {
		t.Errorf("named parameters not re-indexed:\n%s", got)
	}
}

func TestFormatParamPreserve(t *testing.T) {
	got := format.Format(mustParse(t, `select * from t where a = $1 and b = $2`), nil)
	if !strings.Contains(got, "= $1") || !strings.Contains(got, "= $2") {
		t.Errorf("positional parameters not preserved:\n%s", got)
	}
}

func TestFormatValuesComment(t *testing.T) {
	q := &ast.ValuesQuery{Rows: []*ast.ValuesRow{
		{Exprs: []ast.Expression{ast.NewNumber("1")}, Comment: "alice"},
		{Exprs: []ast.Expression{ast.NewNumber("2")}},
	}}
	got := format.Format(q, &format.Options{ExportComment: true})
	if !strings.Contains(got, "(1) /* alice */") {
		t.Errorf("row comment not rendered:\n%s", got)
	}
	plain := format.Format(q, nil)
	if strings.Contains(plain, "alice") {
		t.Errorf("row comment rendered without export option:\n%s", plain)
	}
}

func TestFormatUpdate(t *testing.T) {
	got := format.Format(mustParse(t, `update t set a = 1 where b = 2`), nil)
	want := strings.Join([]string{
		`update "t"`,
		`set`,
		`    "a" = 1`,
		`where`,
		`    "b" = 2`,
	}, "\n")
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatCreateTable(t *testing.T) {
	got := format.Format(mustParse(t, `create table t (id bigint primary key, name text not null)`), nil)
	want := strings.Join([]string{
		`create table "t" (`,
		`    "id" bigint primary key,`,
		`    "name" text not null`,
		`)`,
	}, "\n")
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestPresetLookup(t *testing.T) {
	for _, name := range []string{"postgres", "PostgreSQL", "mysql", "sqlite", "mssql"} {
		if _, err := format.Preset(name); err != nil {
			t.Errorf("Preset(%q): %v", name, err)
		}
	}
	if _, err := format.Preset("oracle"); err == nil {
		t.Error("Preset(oracle): expected error")
	}
}
