package rewrite_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerotable/ztdsql/fixture"
	"github.com/zerotable/ztdsql/rewrite"
)

const testDDL = `
create table public.orders (
	order_id bigint,
	user_id bigint,
	total numeric(10, 2),
	status text default 'open'
);
create table public.users (
	id bigint,
	name text
);`

func testSet(t *testing.T, fixtures ...*fixture.Fixture) *fixture.FixtureSet {
	t.Helper()
	defs, err := fixture.ParseDDL(testDDL)
	require.NoError(t, err)
	set, err := fixture.NewFixtureSet(defs, fixtures)
	require.NoError(t, err)
	return set
}

func ordersFixture() *fixture.Fixture {
	return &fixture.Fixture{Table: "orders", Rows: []fixture.Row{
		{"order_id": 1, "user_id": 10, "total": decimal.RequireFromString("12.5"), "status": "open"},
		{"order_id": 2, "user_id": 20, "total": decimal.RequireFromString("99.99"), "status": "paid"},
	}}
}

func TestRewriteSelectWithoutFixtures(t *testing.T) {
	set := testSet(t)
	res, err := rewrite.Rewrite(`select id from t`, set, nil)
	require.NoError(t, err)
	assert.Empty(t, res.FixturesApplied)
	assert.NotContains(t, res.SQL, "with")
	assert.Equal(t, "select\n    \"id\"\nfrom\n    \"t\"", res.SQL)
}

func TestRewriteSelectInjectsFixtureCTE(t *testing.T) {
	set := testSet(t, ordersFixture())
	res, err := rewrite.Rewrite(`select * from public.orders where total > 50`, set, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"orders"}, res.FixturesApplied)
	assert.Contains(t, res.SQL, `"orders"("order_id", "user_id", "total", "status") as (`)
	assert.Equal(t, 2, strings.Count(res.SQL, "cast("+"'"), "one quoted status cast per fixture row")
	assert.NotContains(t, res.SQL, "public", "schema qualifier must be stripped")
	assert.Contains(t, res.SQL, "cast(12.5 as numeric(10, 2))")
}

func TestRewritePrependsFixtureCTEsBeforeUserCTEs(t *testing.T) {
	set := testSet(t, ordersFixture())
	res, err := rewrite.Rewrite(`with big as (select * from orders where total > 50) select * from big`, set, nil)
	require.NoError(t, err)

	fixtureAt := strings.Index(res.SQL, `"orders"(`)
	userAt := strings.Index(res.SQL, `"big" as`)
	require.GreaterOrEqual(t, fixtureAt, 0)
	require.GreaterOrEqual(t, userAt, 0)
	assert.Less(t, fixtureAt, userAt, "fixture CTEs must precede user CTEs")
}

func TestRewritePreservesPositionalParameters(t *testing.T) {
	set := testSet(t, ordersFixture())
	res, err := rewrite.Rewrite(`select * from orders where total > $1 and status = $2`, set, nil)
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "> $1")
	assert.Contains(t, res.SQL, "= $2")
}

func TestRewriteInsert(t *testing.T) {
	set := testSet(t)
	res, err := rewrite.Rewrite(`insert into orders (order_id, total) values (1, 9.99)`, set, nil)
	require.NoError(t, err)

	assert.NotContains(t, res.SQL, "insert")
	assert.Contains(t, res.SQL, `cast("v"."order_id" as bigint) as "order_id"`)
	assert.Contains(t, res.SQL, `cast(null as bigint) as "user_id"`, "unsupplied column becomes typed NULL")
	assert.Contains(t, res.SQL, `'open' as "status"`, "generated column sourced from the DDL default")
	assert.Contains(t, res.SQL, `"v"("order_id", "total") as (`)
}

func TestRewriteUpdate(t *testing.T) {
	set := testSet(t, ordersFixture())
	res, err := rewrite.Rewrite(`update orders set status = 'paid' where order_id = 1`, set, nil)
	require.NoError(t, err)

	assert.NotContains(t, res.SQL, "update")
	assert.Contains(t, res.SQL, `'paid' as "status"`)
	assert.Contains(t, res.SQL, `"orders"."total" as "total"`, "unassigned columns come from the table")
	assert.Contains(t, res.SQL, `with`)
	assert.Equal(t, []string{"orders"}, res.FixturesApplied)
}

func TestRewriteDelete(t *testing.T) {
	set := testSet(t, ordersFixture())
	res, err := rewrite.Rewrite(`delete from orders where order_id = 1`, set, nil)
	require.NoError(t, err)
	assert.NotContains(t, res.SQL, "delete")
	assert.Contains(t, res.SQL, "select")
	assert.Contains(t, res.SQL, `"order_id" = 1`)
}

func TestRewriteMerge(t *testing.T) {
	set := testSet(t, ordersFixture())
	res, err := rewrite.Rewrite(`
		merge into orders t
		using (select 3 as order_id, 5 as total) s on t.order_id = s.order_id
		when matched then update set total = s.total
		when not matched then insert (order_id, total) values (s.order_id, s.total)`, set, nil)
	require.NoError(t, err)

	lower := strings.ToLower(res.SQL)
	assert.NotContains(t, lower, "merge")
	assert.Contains(t, lower, "union all")
	assert.Contains(t, lower, "not exists")
	assert.Contains(t, res.SQL, `cast("s"."total" as numeric(10, 2)) as "total"`)
}

func TestRewriteSelfJoinInjectsFixtureOnce(t *testing.T) {
	set := testSet(t, ordersFixture())
	res, err := rewrite.Rewrite(
		`select o.order_id from orders o join public.orders p on o.order_id = p.order_id`, set, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"orders"}, res.FixturesApplied)
	assert.Equal(t, 1, strings.Count(res.SQL, `"orders"("order_id"`),
		"one CTE per fixture table regardless of qualification style")
	assert.NotContains(t, res.SQL, "public")
}

func TestRewriteMergeInsertWithoutColumnList(t *testing.T) {
	set := testSet(t, ordersFixture())
	res, err := rewrite.Rewrite(`
		merge into orders t
		using (select 9 as order_id, 3 as user_id, 7.5 as total, 'new' as status) s on t.order_id = s.order_id
		when not matched then insert values (s.order_id, s.user_id, s.total, s.status)`, set, nil)
	require.NoError(t, err)

	assert.Contains(t, res.SQL, `cast("s"."order_id" as bigint) as "order_id"`,
		"values bind to the definition's columns in order")
	assert.Contains(t, res.SQL, `cast("s"."status" as text) as "status"`)
	assert.NotContains(t, res.SQL, "select\nfrom", "projection must not be empty")
}

func TestRewriteMergeInsertColumnListLongerThanValues(t *testing.T) {
	set := testSet(t, ordersFixture())
	res, err := rewrite.Rewrite(`
		merge into orders t
		using (select 9 as order_id) s on t.order_id = s.order_id
		when not matched then insert (order_id, user_id, total) values (s.order_id)`, set, nil)
	require.NoError(t, err)

	assert.Contains(t, res.SQL, `cast("s"."order_id" as bigint) as "order_id"`)
	assert.Contains(t, res.SQL, `cast(null as bigint) as "user_id"`,
		"listed columns without a value fall back to typed NULLs")
	assert.Contains(t, res.SQL, `'open' as "status"`)
}

func TestRewriteNoTopLevelCRUDKeywords(t *testing.T) {
	set := testSet(t, ordersFixture())
	inputs := []string{
		`insert into orders (order_id) values (1)`,
		`update orders set total = 0`,
		`delete from orders`,
		`merge into orders t using users s on t.user_id = s.id when matched then delete`,
	}
	for _, sql := range inputs {
		res, err := rewrite.Rewrite(sql, set, nil)
		require.NoError(t, err, sql)
		lower := strings.ToLower(res.SQL)
		for _, kw := range []string{"insert", "update", "delete", "merge"} {
			assert.NotContains(t, lower, kw, "input %q", sql)
		}
	}
}

func TestRewriteMissingFixtureStrategy(t *testing.T) {
	set := testSet(t, ordersFixture())
	opts := &rewrite.Options{MissingFixture: rewrite.MissingError}

	_, err := rewrite.Rewrite(`select * from orders o join public.users u on o.user_id = u.id`, set, opts)
	require.Error(t, err)
	var missing *rewrite.MissingFixtureError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "public.users", missing.Table)

	// Ignore strategy leaves the unfixtured table untouched.
	res, err := rewrite.Rewrite(`select * from orders o join public.users u on o.user_id = u.id`, set, nil)
	require.NoError(t, err)
	assert.Contains(t, res.SQL, `"public"."users"`)
}

func TestRewriteDropsPlainDDL(t *testing.T) {
	set := testSet(t, ordersFixture())
	res, err := rewrite.Rewrite(`select 1; create table x (id bigint); select 2`, set, nil)
	require.NoError(t, err)
	assert.NotContains(t, res.SQL, "create")
	assert.Equal(t, 2, strings.Count(res.SQL, "select"))
	assert.Contains(t, res.SQL, "; ")
}

func TestRewriteKeepsCreateTempAsSelect(t *testing.T) {
	set := testSet(t, ordersFixture())
	res, err := rewrite.Rewrite(`create temp table snap as select * from orders`, set, nil)
	require.NoError(t, err)
	assert.Contains(t, res.SQL, `create temporary table "snap" as`)
	assert.Contains(t, res.SQL, `"orders"(`)
	assert.Equal(t, []string{"orders"}, res.FixturesApplied)
}

func TestRewriteAppliedFixturesDeduplicated(t *testing.T) {
	set := testSet(t, ordersFixture())
	res, err := rewrite.Rewrite(`select * from orders; select total from orders`, set, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders"}, res.FixturesApplied)
}

func TestRewriteParseError(t *testing.T) {
	set := testSet(t)
	_, err := rewrite.Rewrite(`select from where`, set, nil)
	assert.Error(t, err)
}
