package fixture

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerotable/ztdsql/ast"
	"github.com/zerotable/ztdsql/format"
)

func TestBuildCTE(t *testing.T) {
	defs, err := ParseDDL(ordersDDL)
	require.NoError(t, err)
	def := defs[0]

	fx := &Fixture{Table: "orders", Rows: []Row{
		{"order_id": 1, "user_id": 10, "total": decimal.RequireFromString("12.34"), "status": "paid"},
		{"order_id": 2, "user_id": 20, "total": decimal.RequireFromString("0.01")},
	}}

	ct := BuildCTE(def, fx)
	assert.Equal(t, "orders", ct.Name)
	assert.Equal(t, []string{"order_id", "user_id", "total", "status"}, ct.ColumnNames)

	values, ok := ct.Query.(*ast.ValuesQuery)
	require.True(t, ok)
	require.Len(t, values.Rows, 2, "one CTE row per fixture row")
	for _, row := range values.Rows {
		assert.Len(t, row.Exprs, len(def.Columns))
		for _, e := range row.Exprs {
			_, ok := e.(*ast.CastExpr)
			assert.True(t, ok, "every value is cast to its declared type")
		}
	}

	sql := format.Format(&ast.SelectQuery{
		With:    &ast.With{Tables: []*ast.CommonTable{ct}},
		Columns: []ast.Expression{&ast.Asterisk{}},
		From:    &ast.FromClause{Elements: []*ast.FromElement{{Source: &ast.TableIdentifier{Table: "orders"}}}},
	}, nil)
	assert.Contains(t, sql, `"orders"("order_id", "user_id", "total", "status") as (`)
	assert.Contains(t, sql, "cast(12.34 as numeric(10, 2))")
	assert.Contains(t, sql, "cast('paid' as text)")
	assert.Contains(t, sql, "cast(null as text)", "missing row values become typed NULLs")
}

func TestBuildCTEEmptyFixture(t *testing.T) {
	defs, err := ParseDDL(ordersDDL)
	require.NoError(t, err)

	ct := BuildCTE(defs[0], &Fixture{Table: "orders"})
	sel, ok := ct.Query.(*ast.SelectQuery)
	require.True(t, ok)
	assert.Len(t, sel.Columns, 4)
	require.NotNil(t, sel.Where)

	sql := format.Format(sel, nil)
	assert.Contains(t, sql, "1 = 0")
}

func TestValueLiteral(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, "null"},
		{"string", "it's", "'it''s'"},
		{"bool", true, "true"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"float", 2.5, "2.5"},
		{"decimal", decimal.RequireFromString("1234.56"), "1234.56"},
		{"time", time.Date(2024, 3, 9, 12, 30, 0, 0, time.UTC), "'2024-03-09 12:30:00'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := format.Format(&ast.SelectQuery{
				Columns: []ast.Expression{ValueLiteral(tt.value)},
			}, nil)
			got = strings.TrimSpace(strings.TrimPrefix(got, "select"))
			assert.Equal(t, tt.want, got)
		})
	}
}
