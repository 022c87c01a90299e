// Package parser implements a recursive-descent SQL parser with one
// entry point per statement kind.
package parser

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/zerotable/ztdsql/ast"
	"github.com/zerotable/ztdsql/lexer"
	"github.com/zerotable/ztdsql/token"
)

// Parser parses SQL statements.
type Parser struct {
	lexer   *lexer.Lexer
	current lexer.Item
	peek    lexer.Item
	errs    []error
}

// New creates a new Parser for the given SQL text.
func New(sql string) *Parser {
	p := &Parser{lexer: lexer.NewString(sql)}
	// Read two tokens to initialize current and peek.
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.current = p.peek
	for {
		it, err := p.lexer.NextToken()
		if err != nil {
			p.errs = append(p.errs, err)
			p.peek = lexer.Item{Kind: token.EOF}
			return
		}
		if it.Kind == token.Comment {
			continue
		}
		p.peek = it
		return
	}
}

func (p *Parser) currentIs(k token.Kind) bool { return p.current.Kind == k }

// currentWord reports whether the current token is the given keyword or
// word operator, matched case-insensitively.
func (p *Parser) currentWord(word string) bool {
	return p.current.Command == word
}

func (p *Parser) peekWord(word string) bool {
	return p.peek.Command == word
}

// accept consumes the current token if it is the given keyword.
func (p *Parser) accept(word string) bool {
	if p.currentWord(word) {
		p.nextToken()
		return true
	}
	return false
}

// expectWord consumes the given keyword or records a syntax error.
func (p *Parser) expectWord(word string) bool {
	if p.accept(word) {
		return true
	}
	p.errorf("expected %s, got %q at line %d, column %d",
		strings.ToUpper(word), p.current.Text, p.current.Pos.Line, p.current.Pos.Column)
	return false
}

// expect consumes a token of the given kind or records a syntax error.
func (p *Parser) expect(k token.Kind) lexer.Item {
	it := p.current
	if !p.currentIs(k) {
		p.errorf("expected %s, got %q at line %d, column %d",
			k, p.current.Text, p.current.Pos.Line, p.current.Pos.Column)
		return it
	}
	p.nextToken()
	return it
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errs = append(p.errs, fmt.Errorf(format, args...))
}

func (p *Parser) err() error {
	if len(p.errs) == 0 {
		return nil
	}
	return p.errs[0]
}

// Parse parses all semicolon-separated statements in the input.
func Parse(sql string) ([]ast.Statement, error) {
	p := New(sql)
	var statements []ast.Statement
	for !p.currentIs(token.EOF) {
		if p.currentWord(";") {
			p.nextToken()
			continue
		}
		stmt := p.parseStatement()
		if err := p.err(); err != nil {
			return nil, errors.Wrap(err, "parse")
		}
		if stmt != nil {
			statements = append(statements, stmt)
		}
	}
	return statements, nil
}

// ParseStatement parses exactly one statement.
func ParseStatement(sql string) (ast.Statement, error) {
	stmts, err := Parse(sql)
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 {
		return nil, errors.Errorf("expected one statement, got %d", len(stmts))
	}
	return stmts[0], nil
}

// ParseSelect parses a SELECT, VALUES or set-operation query.
func ParseSelect(sql string) (ast.SelectStatement, error) {
	stmt, err := ParseStatement(sql)
	if err != nil {
		return nil, err
	}
	sel, ok := stmt.(ast.SelectStatement)
	if !ok {
		return nil, errors.Errorf("expected a SELECT statement, got %T", stmt)
	}
	return sel, nil
}

// ParseInsert parses an INSERT statement.
func ParseInsert(sql string) (*ast.InsertQuery, error) {
	return parseAs[*ast.InsertQuery](sql, "INSERT")
}

// ParseUpdate parses an UPDATE statement.
func ParseUpdate(sql string) (*ast.UpdateQuery, error) {
	return parseAs[*ast.UpdateQuery](sql, "UPDATE")
}

// ParseDelete parses a DELETE statement.
func ParseDelete(sql string) (*ast.DeleteQuery, error) {
	return parseAs[*ast.DeleteQuery](sql, "DELETE")
}

// ParseMerge parses a MERGE statement.
func ParseMerge(sql string) (*ast.MergeQuery, error) {
	return parseAs[*ast.MergeQuery](sql, "MERGE")
}

// ParseCreateTable parses a CREATE TABLE statement.
func ParseCreateTable(sql string) (*ast.CreateTableQuery, error) {
	return parseAs[*ast.CreateTableQuery](sql, "CREATE TABLE")
}

func parseAs[T ast.Statement](sql, kind string) (T, error) {
	var zero T
	stmt, err := ParseStatement(sql)
	if err != nil {
		return zero, err
	}
	typed, ok := stmt.(T)
	if !ok {
		return zero, errors.Errorf("expected a %s statement, got %T", kind, stmt)
	}
	return typed, nil
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.current.Command {
	case "select", "with", "values":
		return p.parseSelectLike()
	case "insert":
		return p.parseInsert()
	case "update":
		return p.parseUpdate()
	case "delete":
		return p.parseDelete()
	case "merge":
		return p.parseMerge()
	case "create":
		return p.parseCreateTable()
	default:
		p.errorf("unexpected token %q at line %d, column %d",
			p.current.Text, p.current.Pos.Line, p.current.Pos.Column)
		p.nextToken()
		return nil
	}
}

// parseSelectLike parses a SELECT or VALUES query, including an optional
// leading WITH clause and trailing set operations.
func (p *Parser) parseSelectLike() ast.SelectStatement {
	pos := p.current.Pos
	var with *ast.With
	if p.currentWord("with") {
		with = p.parseWithClause()
	}

	first := p.parseSelectCore()
	if first == nil {
		return nil
	}

	var selects []ast.Statement
	var operators []string
	selects = append(selects, first)

	for p.currentWord("union") || p.currentWord("intersect") || p.currentWord("except") {
		op := p.current.Command
		p.nextToken()
		if op == "union" && p.accept("all") {
			op = "union all"
		}
		next := p.parseSelectCore()
		if next == nil {
			return nil
		}
		selects = append(selects, next)
		operators = append(operators, op)
	}

	if len(selects) == 1 {
		first.SetWithClause(with)
		return first
	}
	return &ast.BinarySelectQuery{Position: pos, With: with, Selects: selects, Operators: operators}
}

// parseSelectCore parses one SELECT or VALUES body without WITH or set
// operations.
func (p *Parser) parseSelectCore() ast.SelectStatement {
	if p.currentWord("values") {
		return p.parseValues()
	}
	if p.currentIs(token.OpenParen) {
		// Parenthesized SELECT inside a set operation chain.
		p.nextToken()
		inner := p.parseSelectLike()
		p.expect(token.CloseParen)
		return inner
	}

	pos := p.current.Pos
	if !p.expectWord("select") {
		return nil
	}
	q := &ast.SelectQuery{Position: pos}

	if p.accept("distinct") {
		q.Distinct = true
	}
	q.Columns = p.parseSelectColumns()

	if p.accept("from") {
		q.From = p.parseFromClause()
	}
	if p.accept("where") {
		q.Where = p.parseExpression(lowestPrecedence)
	}
	if p.currentWord("group") {
		p.nextToken()
		p.expectWord("by")
		q.GroupBy = p.parseExpressionList()
	}
	if p.accept("having") {
		q.Having = p.parseExpression(lowestPrecedence)
	}
	if p.currentWord("order") {
		p.nextToken()
		p.expectWord("by")
		q.OrderBy = p.parseOrderByList()
	}
	if p.accept("limit") {
		q.Limit = p.parseExpression(lowestPrecedence)
	}
	if p.accept("offset") {
		q.Offset = p.parseExpression(lowestPrecedence)
	}
	return q
}

func (p *Parser) parseValues() *ast.ValuesQuery {
	pos := p.current.Pos
	p.expectWord("values")
	q := &ast.ValuesQuery{Position: pos}
	for {
		rowPos := p.current.Pos
		p.expect(token.OpenParen)
		row := &ast.ValuesRow{Position: rowPos, Exprs: p.parseExpressionList()}
		p.expect(token.CloseParen)
		q.Rows = append(q.Rows, row)
		if !p.currentIs(token.Comma) {
			break
		}
		p.nextToken()
	}
	return q
}

// parseWithClause parses WITH [RECURSIVE] name [(cols)] AS (query), ...
func (p *Parser) parseWithClause() *ast.With {
	pos := p.current.Pos
	p.expectWord("with")
	w := &ast.With{Position: pos}
	if p.accept("recursive") {
		w.Recursive = true
	}
	for {
		ct := p.parseCommonTable()
		if ct == nil {
			return w
		}
		w.Tables = append(w.Tables, ct)
		if !p.currentIs(token.Comma) {
			break
		}
		p.nextToken()
	}
	return w
}

func (p *Parser) parseCommonTable() *ast.CommonTable {
	pos := p.current.Pos
	name := p.expect(token.Identifier).Text
	ct := &ast.CommonTable{Position: pos, Name: name}

	if p.currentIs(token.OpenParen) {
		p.nextToken()
		for {
			ct.ColumnNames = append(ct.ColumnNames, p.expect(token.Identifier).Text)
			if !p.currentIs(token.Comma) {
				break
			}
			p.nextToken()
		}
		p.expect(token.CloseParen)
	}

	if !p.expectWord("as") {
		return nil
	}
	if p.currentWord("materialized") {
		v := true
		ct.Materialized = &v
		p.nextToken()
	} else if p.currentWord("not") && p.peekWord("materialized") {
		v := false
		ct.Materialized = &v
		p.nextToken()
		p.nextToken()
	}

	p.expect(token.OpenParen)
	ct.Query = p.parseSelectLike()
	p.expect(token.CloseParen)
	return ct
}

func (p *Parser) parseSelectColumns() []ast.Expression {
	var cols []ast.Expression
	for {
		expr := p.parseExpression(lowestPrecedence)
		expr = p.parseOptionalAlias(expr)
		cols = append(cols, expr)
		if !p.currentIs(token.Comma) {
			break
		}
		p.nextToken()
	}
	return cols
}

// parseOptionalAlias wraps expr in an AliasedExpr when followed by AS or
// a bare identifier.
func (p *Parser) parseOptionalAlias(expr ast.Expression) ast.Expression {
	if p.accept("as") {
		return &ast.AliasedExpr{Position: expr.Pos(), Expr: expr, Alias: p.expect(token.Identifier).Text}
	}
	if p.currentIs(token.Identifier) {
		alias := p.current.Text
		p.nextToken()
		return &ast.AliasedExpr{Position: expr.Pos(), Expr: expr, Alias: alias}
	}
	return expr
}

// -----------------------------------------------------------------------------
// FROM clause

func (p *Parser) parseFromClause() *ast.FromClause {
	pos := p.current.Pos
	f := &ast.FromClause{Position: pos}
	f.Elements = append(f.Elements, p.parseFromElement(nil))

	for {
		switch {
		case p.currentIs(token.Comma):
			p.nextToken()
			f.Elements = append(f.Elements, p.parseFromElement(&ast.JoinSpec{Type: "comma"}))
		case p.isJoinKeyword():
			join := p.parseJoinSpec()
			el := p.parseFromElement(join)
			if join.Type != "cross" {
				if p.accept("on") {
					join.On = p.parseExpression(lowestPrecedence)
				} else if p.accept("using") {
					p.expect(token.OpenParen)
					for {
						join.Using = append(join.Using, p.expect(token.Identifier).Text)
						if !p.currentIs(token.Comma) {
							break
						}
						p.nextToken()
					}
					p.expect(token.CloseParen)
				}
			}
			f.Elements = append(f.Elements, el)
		default:
			return f
		}
	}
}

func (p *Parser) isJoinKeyword() bool {
	switch p.current.Command {
	case "join", "inner", "left", "right", "full", "cross":
		return true
	}
	return false
}

func (p *Parser) parseJoinSpec() *ast.JoinSpec {
	pos := p.current.Pos
	join := &ast.JoinSpec{Position: pos, Type: "inner"}
	switch p.current.Command {
	case "join":
		p.nextToken()
	case "inner":
		p.nextToken()
		p.expectWord("join")
	case "left", "right", "full":
		join.Type = p.current.Command
		p.nextToken()
		p.accept("outer")
		p.expectWord("join")
	case "cross":
		join.Type = "cross"
		p.nextToken()
		p.expectWord("join")
	}
	return join
}

func (p *Parser) parseFromElement(join *ast.JoinSpec) *ast.FromElement {
	pos := p.current.Pos
	el := &ast.FromElement{Position: pos, Join: join}

	switch {
	case p.currentIs(token.OpenParen):
		p.nextToken()
		el.Source = &ast.Subquery{Position: pos, Query: p.parseSelectLike()}
		p.expect(token.CloseParen)
	case p.currentIs(token.Function):
		el.Source = p.parsePrefixExpression()
	default:
		el.Source = p.parseTableIdentifier()
	}

	if p.accept("as") {
		el.Alias = p.expect(token.Identifier).Text
	} else if p.currentIs(token.Identifier) {
		el.Alias = p.current.Text
		p.nextToken()
	}
	if el.Alias != "" && p.currentIs(token.OpenParen) {
		p.nextToken()
		for {
			el.ColumnAliases = append(el.ColumnAliases, p.expect(token.Identifier).Text)
			if !p.currentIs(token.Comma) {
				break
			}
			p.nextToken()
		}
		p.expect(token.CloseParen)
	}
	return el
}

func (p *Parser) parseTableIdentifier() *ast.TableIdentifier {
	pos := p.current.Pos
	first := p.expect(token.Identifier).Text
	t := &ast.TableIdentifier{Position: pos, Table: first}
	if p.currentIs(token.Dot) {
		p.nextToken()
		t.Schema = first
		t.Table = p.expect(token.Identifier).Text
	}
	return t
}

// -----------------------------------------------------------------------------
// ORDER BY

func (p *Parser) parseOrderByList() []*ast.OrderByElement {
	var list []*ast.OrderByElement
	for {
		el := &ast.OrderByElement{Position: p.current.Pos}
		el.Expr = p.parseExpression(lowestPrecedence)
		if p.accept("desc") {
			el.Descending = true
		} else {
			p.accept("asc")
		}
		if p.accept("nulls") {
			switch {
			case p.accept("first"):
				v := true
				el.NullsFirst = &v
			case p.accept("last"):
				v := false
				el.NullsFirst = &v
			default:
				p.errorf("expected FIRST or LAST after NULLS at line %d, column %d",
					p.current.Pos.Line, p.current.Pos.Column)
			}
		}
		list = append(list, el)
		if !p.currentIs(token.Comma) {
			break
		}
		p.nextToken()
	}
	return list
}

// -----------------------------------------------------------------------------
// INSERT / UPDATE / DELETE / MERGE

func (p *Parser) parseInsert() *ast.InsertQuery {
	pos := p.current.Pos
	p.expectWord("insert")
	p.expectWord("into")
	q := &ast.InsertQuery{Position: pos, Table: p.parseTableIdentifier()}

	if p.currentIs(token.OpenParen) {
		p.nextToken()
		for {
			q.Columns = append(q.Columns, p.expect(token.Identifier).Text)
			if !p.currentIs(token.Comma) {
				break
			}
			p.nextToken()
		}
		p.expect(token.CloseParen)
	}

	q.Source = p.parseSelectLike()

	if p.accept("returning") {
		q.Returning = p.parseSelectColumns()
	}
	return q
}

func (p *Parser) parseUpdate() *ast.UpdateQuery {
	pos := p.current.Pos
	p.expectWord("update")
	q := &ast.UpdateQuery{Position: pos, Table: p.parseTableIdentifier()}

	if p.accept("as") {
		q.Alias = p.expect(token.Identifier).Text
	} else if p.currentIs(token.Identifier) {
		q.Alias = p.current.Text
		p.nextToken()
	}

	p.expectWord("set")
	q.Sets = p.parseSetItems()

	if p.accept("from") {
		q.From = p.parseFromClause()
	}
	if p.accept("where") {
		q.Where = p.parseExpression(lowestPrecedence)
	}
	if p.accept("returning") {
		q.Returning = p.parseSelectColumns()
	}
	return q
}

func (p *Parser) parseSetItems() []*ast.SetItem {
	var items []*ast.SetItem
	for {
		item := &ast.SetItem{Position: p.current.Pos}
		item.Column = p.expect(token.Identifier).Text
		if p.currentWord("=") {
			p.nextToken()
		} else {
			p.errorf("expected = in SET clause at line %d, column %d",
				p.current.Pos.Line, p.current.Pos.Column)
		}
		item.Value = p.parseExpression(lowestPrecedence)
		items = append(items, item)
		if !p.currentIs(token.Comma) {
			break
		}
		p.nextToken()
	}
	return items
}

func (p *Parser) parseDelete() *ast.DeleteQuery {
	pos := p.current.Pos
	p.expectWord("delete")
	p.expectWord("from")
	q := &ast.DeleteQuery{Position: pos, Table: p.parseTableIdentifier()}

	if p.accept("as") {
		q.Alias = p.expect(token.Identifier).Text
	} else if p.currentIs(token.Identifier) {
		q.Alias = p.current.Text
		p.nextToken()
	}
	if p.accept("using") {
		q.Using = p.parseFromClause()
	}
	if p.accept("where") {
		q.Where = p.parseExpression(lowestPrecedence)
	}
	if p.accept("returning") {
		q.Returning = p.parseSelectColumns()
	}
	return q
}

func (p *Parser) parseMerge() *ast.MergeQuery {
	pos := p.current.Pos
	p.expectWord("merge")
	p.expectWord("into")
	q := &ast.MergeQuery{Position: pos, Target: p.parseTableIdentifier()}

	if p.accept("as") {
		q.TargetAlias = p.expect(token.Identifier).Text
	} else if p.currentIs(token.Identifier) {
		q.TargetAlias = p.current.Text
		p.nextToken()
	}

	p.expectWord("using")
	if p.currentIs(token.OpenParen) {
		srcPos := p.current.Pos
		p.nextToken()
		q.Source = &ast.Subquery{Position: srcPos, Query: p.parseSelectLike()}
		p.expect(token.CloseParen)
	} else {
		q.Source = p.parseTableIdentifier()
	}
	if p.accept("as") {
		q.SourceAlias = p.expect(token.Identifier).Text
	} else if p.currentIs(token.Identifier) {
		q.SourceAlias = p.current.Text
		p.nextToken()
	}

	p.expectWord("on")
	q.On = p.parseExpression(lowestPrecedence)

	for p.currentWord("when") {
		q.Whens = append(q.Whens, p.parseMergeWhen())
	}
	return q
}

func (p *Parser) parseMergeWhen() *ast.MergeWhen {
	pos := p.current.Pos
	p.expectWord("when")
	when := &ast.MergeWhen{Position: pos, Matched: true}
	if p.accept("not") {
		when.Matched = false
	}
	p.expectWord("matched")
	if p.currentWord("and") {
		p.nextToken()
		when.Condition = p.parseExpression(lowestPrecedence)
	}
	p.expectWord("then")

	action := &ast.MergeAction{Position: p.current.Pos}
	switch {
	case p.accept("update"):
		action.Type = ast.MergeUpdate
		p.expectWord("set")
		action.Sets = p.parseSetItems()
	case p.accept("insert"):
		action.Type = ast.MergeInsert
		if p.currentIs(token.OpenParen) {
			p.nextToken()
			for {
				action.Columns = append(action.Columns, p.expect(token.Identifier).Text)
				if !p.currentIs(token.Comma) {
					break
				}
				p.nextToken()
			}
			p.expect(token.CloseParen)
		}
		p.expectWord("values")
		p.expect(token.OpenParen)
		action.Values = p.parseExpressionList()
		p.expect(token.CloseParen)
	case p.accept("delete"):
		action.Type = ast.MergeDelete
	case p.accept("do"):
		p.expectWord("nothing")
		action.Type = ast.MergeNothing
	default:
		p.errorf("expected UPDATE, INSERT, DELETE or DO NOTHING at line %d, column %d",
			p.current.Pos.Line, p.current.Pos.Column)
	}
	when.Action = action
	return when
}

// -----------------------------------------------------------------------------
// CREATE TABLE

func (p *Parser) parseCreateTable() *ast.CreateTableQuery {
	pos := p.current.Pos
	p.expectWord("create")
	q := &ast.CreateTableQuery{Position: pos}
	if p.accept("temporary") || p.accept("temp") {
		q.Temporary = true
	}
	p.expectWord("table")
	if p.currentWord("if") {
		p.nextToken()
		p.expectWord("not")
		p.expectWord("exists")
		q.IfNotExists = true
	}
	q.Table = p.parseTableIdentifier()

	if p.accept("as") {
		q.AsSelect = p.parseSelectLike()
		return q
	}

	p.expect(token.OpenParen)
	for {
		if col := p.parseColumnDefinition(); col != nil {
			q.Columns = append(q.Columns, col)
		}
		if !p.currentIs(token.Comma) {
			break
		}
		p.nextToken()
	}
	p.expect(token.CloseParen)
	return q
}

func (p *Parser) parseColumnDefinition() *ast.ColumnDefinition {
	pos := p.current.Pos

	// Table-level constraints are skipped; only column lists feed the
	// fixture table definitions.
	switch p.current.Command {
	case "primary", "unique", "check", "constraint", "foreign":
		p.skipConstraintBody()
		return nil
	}

	col := &ast.ColumnDefinition{Position: pos}
	col.Name = p.expect(token.Identifier).Text
	col.TypeName = p.parseTypeName()

	for {
		switch {
		case p.currentWord("not") && p.peekWord("null"):
			p.nextToken()
			p.nextToken()
			col.NotNull = true
		case p.currentWord("primary"):
			p.nextToken()
			p.expectWord("key")
			col.PrimaryKey = true
		case p.accept("default"):
			col.Default = p.parseExpression(lowestPrecedence)
		case p.accept("unique"), p.accept("autoincrement"):
			// accepted, not modeled
		case p.accept("references"):
			// The referenced table lexes as a Function token when its
			// column list follows without a space.
			if p.currentIs(token.Function) {
				p.nextToken()
			} else {
				p.parseTableIdentifier()
			}
			p.skipParens()
		case p.accept("check"):
			p.skipParens()
		default:
			return col
		}
	}
}

// parseTypeName consumes a possibly parameterized, possibly multi-word
// type name and returns it as written, normalized to single spaces.
func (p *Parser) parseTypeName() string {
	var parts []string
	parts = append(parts, p.current.Text)
	isFunc := p.currentIs(token.Function)
	p.nextToken()

	if isFunc || p.currentIs(token.OpenParen) {
		var args []string
		p.expect(token.OpenParen)
		for !p.currentIs(token.CloseParen) && !p.currentIs(token.EOF) {
			if p.currentIs(token.Comma) {
				p.nextToken()
				continue
			}
			args = append(args, p.current.Text)
			p.nextToken()
		}
		p.expect(token.CloseParen)
		parts[0] += "(" + strings.Join(args, ", ") + ")"
	}

	// Multi-word types: double precision, character varying,
	// timestamp with[out] time zone.
	for p.currentIs(token.Identifier) {
		parts = append(parts, p.current.Text)
		p.nextToken()
	}
	if p.currentWord("with") && p.peek.Kind == token.Identifier && strings.EqualFold(p.peek.Text, "time") {
		parts = append(parts, "with")
		p.nextToken()
		parts = append(parts, p.expect(token.Identifier).Text) // time
		parts = append(parts, p.expect(token.Identifier).Text) // zone
	}
	return strings.Join(parts, " ")
}

func (p *Parser) skipConstraintBody() {
	for !p.currentIs(token.Comma) && !p.currentIs(token.CloseParen) && !p.currentIs(token.EOF) {
		if p.currentIs(token.OpenParen) {
			p.skipParens()
			continue
		}
		p.nextToken()
	}
}

func (p *Parser) skipParens() {
	if !p.currentIs(token.OpenParen) {
		return
	}
	depth := 0
	for !p.currentIs(token.EOF) {
		switch p.current.Kind {
		case token.OpenParen:
			depth++
		case token.CloseParen:
			depth--
			if depth == 0 {
				p.nextToken()
				return
			}
		}
		p.nextToken()
	}
}
