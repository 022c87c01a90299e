package fixture

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zerotable/ztdsql/ast"
)

// BuildCTE turns a table definition plus its fixture rows into a
// literal-value common table expression named after the bare table.
// Every column of the definition appears in declaration order, cast to
// its declared type; columns a row does not supply become typed NULLs.
// An empty fixture yields a zero-row CTE with the same column shape.
func BuildCTE(def *TableDefinition, fx *Fixture) *ast.CommonTable {
	names := make([]string, len(def.Columns))
	for i, col := range def.Columns {
		names[i] = col.Name
	}

	if fx == nil || len(fx.Rows) == 0 {
		return &ast.CommonTable{Name: def.Table, ColumnNames: names, Query: emptyRowQuery(def)}
	}

	values := &ast.ValuesQuery{}
	for _, row := range fx.Rows {
		vr := &ast.ValuesRow{}
		for _, col := range def.Columns {
			vr.Exprs = append(vr.Exprs, ast.NewCast(rowValue(row, col.Name), col.TypeName))
		}
		values.Rows = append(values.Rows, vr)
	}
	return &ast.CommonTable{Name: def.Table, ColumnNames: names, Query: values}
}

// emptyRowQuery builds a SELECT with the definition's column shape and
// a contradiction predicate, so the CTE exists but yields no rows.
func emptyRowQuery(def *TableDefinition) *ast.SelectQuery {
	q := &ast.SelectQuery{
		Where: &ast.BinaryExpr{Left: ast.NewNumber("1"), Op: "=", Right: ast.NewNumber("0")},
	}
	for _, col := range def.Columns {
		q.Columns = append(q.Columns, &ast.AliasedExpr{
			Expr:  ast.NewCast(ast.NullLiteral(), col.TypeName),
			Alias: col.Name,
		})
	}
	return q
}

func rowValue(row Row, column string) ast.Expression {
	for key, value := range row {
		if strings.EqualFold(key, column) {
			return ValueLiteral(value)
		}
	}
	return ast.NullLiteral()
}

// ValueLiteral converts a Go fixture value into a literal node.
// decimal.Decimal values render their exact decimal text, so money and
// numeric columns survive the round-trip without float drift.
func ValueLiteral(value any) ast.Expression {
	switch v := value.(type) {
	case nil:
		return ast.NullLiteral()
	case string:
		return ast.NewString(v)
	case bool:
		if v {
			return &ast.Literal{Kind: ast.LiteralBoolean, Text: "true"}
		}
		return &ast.Literal{Kind: ast.LiteralBoolean, Text: "false"}
	case int:
		return ast.NewNumber(strconv.Itoa(v))
	case int32:
		return ast.NewNumber(strconv.FormatInt(int64(v), 10))
	case int64:
		return ast.NewNumber(strconv.FormatInt(v, 10))
	case float64:
		return ast.NewNumber(strconv.FormatFloat(v, 'f', -1, 64))
	case decimal.Decimal:
		return ast.NewNumber(v.String())
	case time.Time:
		return ast.NewString(v.UTC().Format("2006-01-02 15:04:05"))
	default:
		return ast.NewString(fmt.Sprintf("%v", v))
	}
}
