package format

import (
	"strconv"

	"github.com/zerotable/ztdsql/ast"
)

func (f *formatter) expression(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.Literal:
		// Keyword literals follow the keyword case option.
		switch e.Kind {
		case ast.LiteralNull, ast.LiteralBoolean, ast.LiteralRaw:
			f.kw(e.Text)
		default:
			f.write(e.Text)
		}
	case *ast.Parameter:
		f.parameter(e)
	case *ast.Identifier:
		for i, part := range e.Parts {
			if i > 0 {
				f.write(".")
			}
			f.ident(part)
		}
	case *ast.TableIdentifier:
		f.tableIdentifier(e)
	case *ast.Asterisk:
		if e.Table != "" {
			f.ident(e.Table)
			f.write(".")
		}
		f.write("*")
	case *ast.AliasedExpr:
		f.expression(e.Expr)
		f.alias(e.Alias)
	case *ast.BinaryExpr:
		f.expression(e.Left)
		f.space()
		f.operator(e.Op)
		f.space()
		f.expression(e.Right)
	case *ast.UnaryExpr:
		f.operator(e.Op)
		if isWordOperator(e.Op) {
			f.space()
		}
		f.expression(e.Operand)
	case *ast.ParenExpr:
		f.write("(")
		f.expression(e.Expr)
		f.write(")")
	case *ast.FunctionCall:
		f.functionCall(e)
	case *ast.CastExpr:
		f.castExpr(e)
	case *ast.CaseExpr:
		f.caseExpr(e)
	case *ast.Subquery:
		f.write("(")
		f.write(f.compact(e.Query))
		f.write(")")
	case *ast.InExpr:
		f.inExpr(e)
	case *ast.BetweenExpr:
		f.expression(e.Expr)
		f.space()
		if e.Not {
			f.kw("not")
			f.space()
		}
		f.kw("between")
		f.space()
		f.expression(e.Low)
		f.space()
		f.kw("and")
		f.space()
		f.expression(e.High)
	case *ast.ExistsExpr:
		if e.Not {
			f.kw("not")
			f.space()
		}
		f.kw("exists")
		f.write(" (")
		f.write(f.compact(e.Query))
		f.write(")")
	}
}

// parameter renders a placeholder per the configured style. The
// preserve style writes the source text verbatim, so a query using $n
// placeholders round-trips byte for byte.
func (f *formatter) parameter(p *ast.Parameter) {
	switch f.opts.ParamStyle {
	case ParamIndexed:
		if p.Index > 0 {
			f.write(f.opts.ParamSymbol + strconv.Itoa(p.Index))
			return
		}
		f.paramSeq++
		f.write(f.opts.ParamSymbol + strconv.Itoa(f.paramSeq))
	case ParamNamed:
		if p.Name != "" {
			f.write(f.opts.ParamSymbol + p.Name)
			return
		}
		f.write(p.Text)
	case ParamPositional:
		f.write(f.opts.ParamSymbol)
	default:
		f.write(p.Text)
	}
}

func (f *formatter) operator(op string) {
	if isWordOperator(op) {
		f.kw(op)
		return
	}
	f.write(op)
}

func isWordOperator(op string) bool {
	for _, r := range op {
		if r >= 'a' && r <= 'z' {
			return true
		}
	}
	return false
}

func (f *formatter) functionCall(c *ast.FunctionCall) {
	f.write(c.Name)
	f.write("(")
	if c.Distinct {
		f.kw("distinct")
		f.space()
	}
	for i, arg := range c.Args {
		if i > 0 {
			f.write(", ")
		}
		f.expression(arg)
	}
	f.write(")")
}

func (f *formatter) castExpr(c *ast.CastExpr) {
	if c.OperatorSyntax {
		f.expression(c.Expr)
		f.write("::")
		f.write(c.TypeName)
		return
	}
	f.kw("cast")
	f.write("(")
	f.expression(c.Expr)
	f.space()
	f.kw("as")
	f.space()
	f.write(c.TypeName)
	f.write(")")
}

func (f *formatter) caseExpr(c *ast.CaseExpr) {
	f.kw("case")
	if c.Operand != nil {
		f.space()
		f.expression(c.Operand)
	}
	f.indent++
	for _, w := range c.Whens {
		f.newline()
		f.kw("when")
		f.space()
		f.expression(w.Condition)
		f.space()
		f.kw("then")
		f.space()
		f.expression(w.Result)
	}
	if c.Else != nil {
		f.newline()
		f.kw("else")
		f.space()
		f.expression(c.Else)
	}
	f.indent--
	f.newline()
	f.kw("end")
}

func (f *formatter) inExpr(e *ast.InExpr) {
	f.expression(e.Expr)
	f.space()
	if e.Not {
		f.kw("not")
		f.space()
	}
	f.kw("in")
	f.write(" (")
	if e.Query != nil {
		f.write(f.compact(e.Query))
	} else {
		for i, item := range e.List {
			if i > 0 {
				f.write(", ")
			}
			f.expression(item)
		}
	}
	f.write(")")
}
