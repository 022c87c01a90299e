package parser

import (
	"strconv"
	"strings"

	"github.com/zerotable/ztdsql/ast"
	"github.com/zerotable/ztdsql/token"
)

const lowestPrecedence = 0

// Operator precedences, lowest binds weakest.
const (
	precOr = iota + 1
	precAnd
	precPredicate // IS, IN, LIKE, BETWEEN, NOT IN, ...
	precCompare
	precConcat
	precAdditive
	precMultiplicative
	precCast // ::
)

func (p *Parser) precedenceForCurrent() int {
	switch p.current.Command {
	case "or":
		return precOr
	case "and":
		return precAnd
	case "is", "in", "like", "ilike", "between", "similar":
		return precPredicate
	case "not":
		// Infix NOT introduces NOT IN / NOT LIKE / NOT BETWEEN.
		if p.peekWord("in") || p.peekWord("like") || p.peekWord("ilike") || p.peekWord("between") {
			return precPredicate
		}
		return lowestPrecedence
	case "=", "!=", "<>", "<", ">", "<=", ">=":
		return precCompare
	case "||", "->", "->>", "#>", "#>>", "&", "|", "#", "<<", ">>":
		return precConcat
	case "+", "-":
		return precAdditive
	case "*", "/", "%":
		return precMultiplicative
	case "::":
		return precCast
	}
	return lowestPrecedence
}

// parseExpression parses an expression with operators binding tighter
// than the given precedence.
func (p *Parser) parseExpression(precedence int) ast.Expression {
	left := p.parsePrefixExpression()
	for precedence < p.precedenceForCurrent() {
		left = p.parseInfixExpression(left)
	}
	return left
}

// parseExpressionList parses a comma-separated expression list.
func (p *Parser) parseExpressionList() []ast.Expression {
	var list []ast.Expression
	for {
		list = append(list, p.parseExpression(lowestPrecedence))
		if !p.currentIs(token.Comma) {
			break
		}
		p.nextToken()
	}
	return list
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	pos := p.current.Pos

	switch p.current.Kind {
	case token.Literal:
		return p.parseLiteral()
	case token.StringSpecifier:
		spec := p.current.Text
		p.nextToken()
		if !p.currentIs(token.Literal) {
			p.errorf("expected string literal after %s at line %d, column %d",
				spec, p.current.Pos.Line, p.current.Pos.Column)
			return &ast.Literal{Position: pos, Kind: ast.LiteralRaw, Text: spec}
		}
		lit := &ast.Literal{Position: pos, Kind: ast.LiteralString, Text: spec + p.current.Text}
		p.nextToken()
		return lit
	case token.Parameter:
		return p.parseParameter()
	case token.Identifier:
		return p.parseIdentifier()
	case token.Function:
		return p.parseFunctionCall()
	case token.OpenParen:
		return p.parseGrouped()
	}

	switch p.current.Command {
	case "case":
		return p.parseCase()
	case "cast":
		return p.parseCastFunction()
	case "exists":
		p.nextToken()
		p.expect(token.OpenParen)
		q := p.parseSelectLike()
		p.expect(token.CloseParen)
		return &ast.ExistsExpr{Position: pos, Query: q}
	case "not":
		p.nextToken()
		if p.currentWord("exists") {
			e := p.parsePrefixExpression().(*ast.ExistsExpr)
			e.Not = true
			e.Position = pos
			return e
		}
		return &ast.UnaryExpr{Position: pos, Op: "not", Operand: p.parseExpression(precPredicate)}
	case "-", "+":
		op := p.current.Command
		p.nextToken()
		return &ast.UnaryExpr{Position: pos, Op: op, Operand: p.parseExpression(precMultiplicative)}
	case "*":
		p.nextToken()
		return &ast.Asterisk{Position: pos}
	case "default":
		p.nextToken()
		return &ast.Literal{Position: pos, Kind: ast.LiteralRaw, Text: "default"}
	}

	p.errorf("unexpected token %q at line %d, column %d",
		p.current.Text, p.current.Pos.Line, p.current.Pos.Column)
	text := p.current.Text
	p.nextToken()
	return &ast.Literal{Position: pos, Kind: ast.LiteralRaw, Text: text}
}

func (p *Parser) parseLiteral() ast.Expression {
	pos := p.current.Pos
	text := p.current.Text
	lit := &ast.Literal{Position: pos, Text: text}
	switch {
	case strings.HasPrefix(text, "'"):
		lit.Kind = ast.LiteralString
	case strings.HasPrefix(text, "$"):
		lit.Kind = ast.LiteralMoney
	default:
		switch strings.ToLower(text) {
		case "null":
			lit.Kind = ast.LiteralNull
		case "true", "false":
			lit.Kind = ast.LiteralBoolean
		case "current_timestamp", "current_date", "current_time":
			lit.Kind = ast.LiteralRaw
		default:
			lit.Kind = ast.LiteralNumber
		}
	}
	p.nextToken()
	return lit
}

func (p *Parser) parseParameter() ast.Expression {
	pos := p.current.Pos
	param := &ast.Parameter{Position: pos, Text: p.current.Text}
	text := param.Text
	switch {
	case text == "?":
		// nameless positional
	case strings.HasPrefix(text, "$"):
		if n, err := strconv.Atoi(text[1:]); err == nil {
			param.Index = n
		} else {
			param.Name = text[1:]
		}
	case strings.HasPrefix(text, ":"), strings.HasPrefix(text, "@"):
		param.Name = text[1:]
	}
	p.nextToken()
	return param
}

// parseIdentifier parses a possibly dotted identifier, including the
// qualified asterisk form t.*.
func (p *Parser) parseIdentifier() ast.Expression {
	pos := p.current.Pos
	parts := []string{p.current.Text}
	p.nextToken()
	for p.currentIs(token.Dot) {
		p.nextToken()
		if p.currentWord("*") {
			p.nextToken()
			return &ast.Asterisk{Position: pos, Table: strings.Join(parts, ".")}
		}
		if p.currentIs(token.Function) {
			// Schema-qualified function call.
			call := p.parseFunctionCall().(*ast.FunctionCall)
			call.Name = strings.Join(parts, ".") + "." + call.Name
			call.Position = pos
			return call
		}
		parts = append(parts, p.expect(token.Identifier).Text)
	}
	return &ast.Identifier{Position: pos, Parts: parts}
}

func (p *Parser) parseFunctionCall() ast.Expression {
	pos := p.current.Pos
	call := &ast.FunctionCall{Position: pos, Name: p.current.Text}
	p.nextToken()
	p.expect(token.OpenParen)

	if p.accept("distinct") {
		call.Distinct = true
	}
	if !p.currentIs(token.CloseParen) {
		call.Args = p.parseExpressionList()
	}
	p.expect(token.CloseParen)
	return call
}

func (p *Parser) parseGrouped() ast.Expression {
	pos := p.current.Pos
	p.nextToken()
	switch p.current.Command {
	case "select", "with", "values":
		q := p.parseSelectLike()
		p.expect(token.CloseParen)
		return &ast.Subquery{Position: pos, Query: q}
	}
	expr := p.parseExpression(lowestPrecedence)
	p.expect(token.CloseParen)
	return &ast.ParenExpr{Position: pos, Expr: expr}
}

func (p *Parser) parseCase() ast.Expression {
	pos := p.current.Pos
	p.expectWord("case")
	c := &ast.CaseExpr{Position: pos}

	if !p.currentWord("when") {
		c.Operand = p.parseExpression(lowestPrecedence)
	}
	for p.currentWord("when") {
		w := &ast.WhenClause{Position: p.current.Pos}
		p.nextToken()
		w.Condition = p.parseExpression(lowestPrecedence)
		p.expectWord("then")
		w.Result = p.parseExpression(lowestPrecedence)
		c.Whens = append(c.Whens, w)
	}
	if p.accept("else") {
		c.Else = p.parseExpression(lowestPrecedence)
	}
	p.expectWord("end")
	return c
}

func (p *Parser) parseCastFunction() ast.Expression {
	pos := p.current.Pos
	p.expectWord("cast")
	p.expect(token.OpenParen)
	expr := p.parseExpression(lowestPrecedence)
	p.expectWord("as")
	typeName := p.parseTypeName()
	p.expect(token.CloseParen)
	return &ast.CastExpr{Position: pos, Expr: expr, TypeName: typeName}
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	pos := left.Pos()

	switch p.current.Command {
	case "::":
		p.nextToken()
		return &ast.CastExpr{Position: pos, Expr: left, TypeName: p.parseCastTypeName(), OperatorSyntax: true}
	case "is":
		p.nextToken()
		op := "is"
		if p.accept("not") {
			op = "is not"
		}
		return &ast.BinaryExpr{Position: pos, Left: left, Op: op, Right: p.parseExpression(precPredicate)}
	case "not":
		p.nextToken()
		switch p.current.Command {
		case "in":
			return p.parseInExpression(left, true)
		case "like", "ilike":
			return p.parseLikeExpression(left, true)
		case "between":
			return p.parseBetweenExpression(left, true)
		}
		p.errorf("expected IN, LIKE or BETWEEN after NOT at line %d, column %d",
			p.current.Pos.Line, p.current.Pos.Column)
		return left
	case "in":
		return p.parseInExpression(left, false)
	case "like", "ilike":
		return p.parseLikeExpression(left, false)
	case "between":
		return p.parseBetweenExpression(left, false)
	}

	op := p.current.Command
	prec := p.precedenceForCurrent()
	p.nextToken()
	right := p.parseExpression(prec)
	return &ast.BinaryExpr{Position: pos, Left: left, Op: op, Right: right}
}

// parseCastTypeName parses the type after a :: operator: a single word
// with optional parenthesized parameters.
func (p *Parser) parseCastTypeName() string {
	name := p.current.Text
	p.nextToken()
	if p.currentIs(token.OpenParen) {
		var args []string
		p.nextToken()
		for !p.currentIs(token.CloseParen) && !p.currentIs(token.EOF) {
			if p.currentIs(token.Comma) {
				p.nextToken()
				continue
			}
			args = append(args, p.current.Text)
			p.nextToken()
		}
		p.expect(token.CloseParen)
		name += "(" + strings.Join(args, ", ") + ")"
	}
	return name
}

func (p *Parser) parseInExpression(left ast.Expression, not bool) ast.Expression {
	in := &ast.InExpr{Position: left.Pos(), Expr: left, Not: not}
	p.expectWord("in")
	p.expect(token.OpenParen)
	switch p.current.Command {
	case "select", "with", "values":
		in.Query = p.parseSelectLike()
	default:
		in.List = p.parseExpressionList()
	}
	p.expect(token.CloseParen)
	return in
}

func (p *Parser) parseLikeExpression(left ast.Expression, not bool) ast.Expression {
	op := p.current.Command
	if not {
		op = "not " + op
	}
	p.nextToken()
	right := p.parseExpression(precPredicate)
	return &ast.BinaryExpr{Position: left.Pos(), Left: left, Op: op, Right: right}
}

func (p *Parser) parseBetweenExpression(left ast.Expression, not bool) ast.Expression {
	b := &ast.BetweenExpr{Position: left.Pos(), Expr: left, Not: not}
	p.expectWord("between")
	b.Low = p.parseExpression(precCompare)
	p.expectWord("and")
	b.High = p.parseExpression(precCompare)
	return b
}
