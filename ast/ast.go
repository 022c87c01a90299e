// Package ast defines the abstract syntax tree for SQL statements.
package ast

import (
	"strings"

	"github.com/zerotable/ztdsql/token"
)

// Node is the interface implemented by all AST nodes.
type Node interface {
	Pos() token.Position
}

// Statement is the interface implemented by all statement nodes.
type Statement interface {
	Node
	statementNode()
}

// Expression is the interface implemented by all expression nodes.
type Expression interface {
	Node
	expressionNode()
}

// SelectStatement is implemented by statements that can own a WITH
// clause: SelectQuery, BinarySelectQuery and ValuesQuery.
type SelectStatement interface {
	Statement
	WithClause() *With
	SetWithClause(*With)
}

// -----------------------------------------------------------------------------
// WITH clause

// With is an ordered list of common table expressions. Insertion order
// is evaluation order: a later table may reference an earlier one, never
// the reverse.
type With struct {
	Position  token.Position
	Recursive bool
	Tables    []*CommonTable
}

func (w *With) Pos() token.Position { return w.Position }

// CommonTable is one named entry of a WITH clause.
type CommonTable struct {
	Position     token.Position
	Name         string
	ColumnNames  []string
	Materialized *bool // nil = unspecified
	Query        Statement
}

func (c *CommonTable) Pos() token.Position { return c.Position }

// -----------------------------------------------------------------------------
// Statements

// SelectQuery represents a simple SELECT statement.
type SelectQuery struct {
	Position token.Position
	With     *With
	Distinct bool
	Columns  []Expression
	From     *FromClause
	Where    Expression
	GroupBy  []Expression
	Having   Expression
	OrderBy  []*OrderByElement
	Limit    Expression
	Offset   Expression
}

func (s *SelectQuery) Pos() token.Position   { return s.Position }
func (s *SelectQuery) statementNode()        {}
func (s *SelectQuery) WithClause() *With     { return s.With }
func (s *SelectQuery) SetWithClause(w *With) { s.With = w }

// BinarySelectQuery represents a chain of SELECTs joined by UNION,
// INTERSECT or EXCEPT. Operators[i] joins Selects[i] and Selects[i+1].
type BinarySelectQuery struct {
	Position  token.Position
	With      *With
	Selects   []Statement
	Operators []string // "union", "union all", "intersect", "except"
}

func (b *BinarySelectQuery) Pos() token.Position   { return b.Position }
func (b *BinarySelectQuery) statementNode()        {}
func (b *BinarySelectQuery) WithClause() *With     { return b.With }
func (b *BinarySelectQuery) SetWithClause(w *With) { b.With = w }

// ValuesQuery represents a VALUES statement.
type ValuesQuery struct {
	Position token.Position
	With     *With
	Rows     []*ValuesRow
}

func (v *ValuesQuery) Pos() token.Position   { return v.Position }
func (v *ValuesQuery) statementNode()        {}
func (v *ValuesQuery) WithClause() *With     { return v.With }
func (v *ValuesQuery) SetWithClause(w *With) { v.With = w }

// ValuesRow is a single parenthesized row of a VALUES list. Comment, if
// set, is rendered inline after the row when the formatter exports
// comments.
type ValuesRow struct {
	Position token.Position
	Exprs    []Expression
	Comment  string
}

func (v *ValuesRow) Pos() token.Position { return v.Position }

// InsertQuery represents an INSERT statement.
type InsertQuery struct {
	Position  token.Position
	Table     *TableIdentifier
	Columns   []string
	Source    Statement // ValuesQuery or SELECT-like statement
	Returning []Expression
}

func (i *InsertQuery) Pos() token.Position { return i.Position }
func (i *InsertQuery) statementNode()      {}

// UpdateQuery represents an UPDATE statement.
type UpdateQuery struct {
	Position  token.Position
	Table     *TableIdentifier
	Alias     string
	Sets      []*SetItem
	From      *FromClause
	Where     Expression
	Returning []Expression
}

func (u *UpdateQuery) Pos() token.Position { return u.Position }
func (u *UpdateQuery) statementNode()      {}

// SetItem is a single column assignment in UPDATE or MERGE.
type SetItem struct {
	Position token.Position
	Column   string
	Value    Expression
}

func (s *SetItem) Pos() token.Position { return s.Position }

// DeleteQuery represents a DELETE statement.
type DeleteQuery struct {
	Position  token.Position
	Table     *TableIdentifier
	Alias     string
	Using     *FromClause
	Where     Expression
	Returning []Expression
}

func (d *DeleteQuery) Pos() token.Position { return d.Position }
func (d *DeleteQuery) statementNode()      {}

// MergeQuery represents a MERGE statement.
type MergeQuery struct {
	Position    token.Position
	Target      *TableIdentifier
	TargetAlias string
	Source      Expression // TableIdentifier or Subquery
	SourceAlias string
	On          Expression
	Whens       []*MergeWhen
}

func (m *MergeQuery) Pos() token.Position { return m.Position }
func (m *MergeQuery) statementNode()      {}

// MergeWhen is one WHEN [NOT] MATCHED branch of a MERGE statement.
type MergeWhen struct {
	Position  token.Position
	Matched   bool
	Condition Expression // optional AND condition
	Action    *MergeAction
}

func (m *MergeWhen) Pos() token.Position { return m.Position }

// MergeActionType distinguishes the possible MERGE branch actions.
type MergeActionType string

const (
	MergeUpdate  MergeActionType = "update"
	MergeInsert  MergeActionType = "insert"
	MergeDelete  MergeActionType = "delete"
	MergeNothing MergeActionType = "nothing"
)

// MergeAction is the THEN part of a MERGE branch.
type MergeAction struct {
	Position token.Position
	Type     MergeActionType
	Sets     []*SetItem   // for update
	Columns  []string     // for insert
	Values   []Expression // for insert
}

func (m *MergeAction) Pos() token.Position { return m.Position }

// CreateTableQuery represents a CREATE TABLE statement.
type CreateTableQuery struct {
	Position    token.Position
	Temporary   bool
	IfNotExists bool
	Table       *TableIdentifier
	Columns     []*ColumnDefinition
	AsSelect    Statement // for CREATE [TEMP] TABLE ... AS SELECT
}

func (c *CreateTableQuery) Pos() token.Position { return c.Position }
func (c *CreateTableQuery) statementNode()      {}

// ColumnDefinition is one column declaration in CREATE TABLE.
type ColumnDefinition struct {
	Position   token.Position
	Name       string
	TypeName   string
	NotNull    bool
	PrimaryKey bool
	Default    Expression
}

func (c *ColumnDefinition) Pos() token.Position { return c.Position }

// -----------------------------------------------------------------------------
// FROM clause

// FromClause holds the table elements of a SELECT, UPDATE ... FROM or
// DELETE ... USING clause.
type FromClause struct {
	Position token.Position
	Elements []*FromElement
}

func (f *FromClause) Pos() token.Position { return f.Position }

// FromElement is one table source, optionally introduced by a join.
// The first element of a FromClause has a nil Join.
type FromElement struct {
	Position      token.Position
	Join          *JoinSpec
	Source        Expression // *TableIdentifier, *Subquery or *FunctionCall
	Alias         string
	ColumnAliases []string
}

func (f *FromElement) Pos() token.Position { return f.Position }

// JoinSpec describes how a FromElement joins the preceding sources.
type JoinSpec struct {
	Position token.Position
	Type     string // "inner", "left", "right", "full", "cross", "comma"
	On       Expression
	Using    []string
}

func (j *JoinSpec) Pos() token.Position { return j.Position }

// -----------------------------------------------------------------------------
// Expressions

// TableIdentifier names a table, optionally schema-qualified.
type TableIdentifier struct {
	Position token.Position
	Schema   string
	Table    string
}

func (t *TableIdentifier) Pos() token.Position { return t.Position }
func (t *TableIdentifier) expressionNode()     {}

// Name returns the dotted, unescaped table name.
func (t *TableIdentifier) Name() string {
	if t.Schema == "" {
		return t.Table
	}
	return t.Schema + "." + t.Table
}

// Identifier represents a possibly dotted column reference.
type Identifier struct {
	Position token.Position
	Parts    []string
}

func (i *Identifier) Pos() token.Position { return i.Position }
func (i *Identifier) expressionNode()     {}

// Name returns the dotted, unescaped identifier.
func (i *Identifier) Name() string { return strings.Join(i.Parts, ".") }

// LiteralKind classifies a literal.
type LiteralKind string

const (
	LiteralString  LiteralKind = "string"
	LiteralNumber  LiteralKind = "number"
	LiteralMoney   LiteralKind = "money"
	LiteralBoolean LiteralKind = "boolean"
	LiteralNull    LiteralKind = "null"
	LiteralRaw     LiteralKind = "raw" // keyword literals: CURRENT_TIMESTAMP etc.
)

// Literal is a literal value. Text holds the raw source text; string
// literals keep their quotes and any doubled-quote escapes verbatim.
type Literal struct {
	Position token.Position
	Kind     LiteralKind
	Text     string
}

func (l *Literal) Pos() token.Position { return l.Position }
func (l *Literal) expressionNode()     {}

// NewString returns a single-quoted string literal for the given value,
// escaping embedded quotes by doubling.
func NewString(value string) *Literal {
	return &Literal{Kind: LiteralString, Text: "'" + strings.ReplaceAll(value, "'", "''") + "'"}
}

// NewNumber returns a numeric literal with the given raw text.
func NewNumber(text string) *Literal {
	return &Literal{Kind: LiteralNumber, Text: text}
}

// NullLiteral returns a NULL literal.
func NullLiteral() *Literal {
	return &Literal{Kind: LiteralNull, Text: "null"}
}

// Parameter is a bind-parameter placeholder carried through parsing and
// formatting natively, so placeholders survive a rewrite byte-for-byte.
type Parameter struct {
	Position token.Position
	Text     string // as written: $1, :name, @name, ?
	Index    int    // positional index for $n placeholders, 0 otherwise
	Name     string // identifier for named placeholders, "" otherwise
}

func (p *Parameter) Pos() token.Position { return p.Position }
func (p *Parameter) expressionNode()     {}

// BinaryExpr represents a binary expression.
type BinaryExpr struct {
	Position token.Position
	Left     Expression
	Op       string // lower-cased: "=", "and", "is not", ...
	Right    Expression
}

func (b *BinaryExpr) Pos() token.Position { return b.Position }
func (b *BinaryExpr) expressionNode()     {}

// UnaryExpr represents a unary expression.
type UnaryExpr struct {
	Position token.Position
	Op       string
	Operand  Expression
}

func (u *UnaryExpr) Pos() token.Position { return u.Position }
func (u *UnaryExpr) expressionNode()     {}

// ParenExpr preserves explicit grouping parentheses.
type ParenExpr struct {
	Position token.Position
	Expr     Expression
}

func (p *ParenExpr) Pos() token.Position { return p.Position }
func (p *ParenExpr) expressionNode()     {}

// FunctionCall represents a function invocation.
type FunctionCall struct {
	Position token.Position
	Name     string
	Args     []Expression
	Distinct bool
}

func (f *FunctionCall) Pos() token.Position { return f.Position }
func (f *FunctionCall) expressionNode()     {}

// CastExpr represents CAST(expr AS type) or expr::type.
type CastExpr struct {
	Position       token.Position
	Expr           Expression
	TypeName       string
	OperatorSyntax bool // true for :: syntax
}

func (c *CastExpr) Pos() token.Position { return c.Position }
func (c *CastExpr) expressionNode()     {}

// NewCast builds a CAST(expr AS type) node.
func NewCast(expr Expression, typeName string) *CastExpr {
	return &CastExpr{Expr: expr, TypeName: typeName}
}

// CaseExpr represents a CASE expression.
type CaseExpr struct {
	Position token.Position
	Operand  Expression // nil for searched CASE
	Whens    []*WhenClause
	Else     Expression
}

func (c *CaseExpr) Pos() token.Position { return c.Position }
func (c *CaseExpr) expressionNode()     {}

// WhenClause is one WHEN ... THEN ... arm of a CASE expression.
type WhenClause struct {
	Position  token.Position
	Condition Expression
	Result    Expression
}

func (w *WhenClause) Pos() token.Position { return w.Position }

// Subquery wraps a statement used in expression position.
type Subquery struct {
	Position token.Position
	Query    Statement
}

func (s *Subquery) Pos() token.Position { return s.Position }
func (s *Subquery) expressionNode()     {}

// Asterisk represents * or table.*.
type Asterisk struct {
	Position token.Position
	Table    string
}

func (a *Asterisk) Pos() token.Position { return a.Position }
func (a *Asterisk) expressionNode()     {}

// AliasedExpr attaches a column alias to an expression.
type AliasedExpr struct {
	Position token.Position
	Expr     Expression
	Alias    string
}

func (a *AliasedExpr) Pos() token.Position { return a.Position }
func (a *AliasedExpr) expressionNode()     {}

// InExpr represents expr [NOT] IN (list | subquery).
type InExpr struct {
	Position token.Position
	Expr     Expression
	Not      bool
	List     []Expression
	Query    Statement
}

func (i *InExpr) Pos() token.Position { return i.Position }
func (i *InExpr) expressionNode()     {}

// BetweenExpr represents expr [NOT] BETWEEN low AND high.
type BetweenExpr struct {
	Position token.Position
	Expr     Expression
	Not      bool
	Low      Expression
	High     Expression
}

func (b *BetweenExpr) Pos() token.Position { return b.Position }
func (b *BetweenExpr) expressionNode()     {}

// ExistsExpr represents [NOT] EXISTS (subquery).
type ExistsExpr struct {
	Position token.Position
	Not      bool
	Query    Statement
}

func (e *ExistsExpr) Pos() token.Position { return e.Position }
func (e *ExistsExpr) expressionNode()     {}

// OrderByElement is one element of an ORDER BY list.
type OrderByElement struct {
	Position   token.Position
	Expr       Expression
	Descending bool
	NullsFirst *bool // nil = unspecified
}

func (o *OrderByElement) Pos() token.Position { return o.Position }
