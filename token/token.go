// Package token defines the lexical token kinds shared by the lexer,
// parser and formatter.
package token

// Kind classifies a lexical token.
type Kind int

const (
	Illegal Kind = iota
	EOF

	Literal    // string, numeric, money and boolean literals
	Operator   // +, -, =, ::, AND, OR, ...
	OpenParen  // (
	CloseParen // )
	Comma      // ,
	Dot        // .
	Identifier // possibly quoted identifiers
	Command    // statement keywords: SELECT, FROM, INSERT, ...
	Parameter  // $1, :name, @name, ?
	OpenBracket
	CloseBracket
	Function        // identifier directly followed by an argument list
	StringSpecifier // string prefix such as E, N or X before a quote
	Type            // type name after a cast operator
	Comment
)

var kinds = [...]string{
	Illegal:         "ILLEGAL",
	EOF:             "EOF",
	Literal:         "LITERAL",
	Operator:        "OPERATOR",
	OpenParen:       "(",
	CloseParen:      ")",
	Comma:           ",",
	Dot:             ".",
	Identifier:      "IDENT",
	Command:         "COMMAND",
	Parameter:       "PARAM",
	OpenBracket:     "[",
	CloseBracket:    "]",
	Function:        "FUNCTION",
	StringSpecifier: "STRING_SPECIFIER",
	Type:            "TYPE",
	Comment:         "COMMENT",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kinds) {
		return kinds[k]
	}
	return ""
}

// Position represents a source position.
type Position struct {
	Offset int // byte offset
	Line   int // line number (1-based)
	Column int // column number (1-based)
}

// commands is the set of keywords lexed as Command tokens. The parser
// combines adjacent commands into multi-word clauses (INSERT INTO,
// GROUP BY, ...).
var commands = map[string]bool{
	"select": true, "from": true, "where": true, "as": true,
	"with": true, "recursive": true, "materialized": true,
	"insert": true, "into": true, "update": true, "set": true,
	"delete": true, "merge": true, "using": true, "when": true,
	"matched": true, "then": true, "values": true, "returning": true,
	"create": true, "table": true, "temporary": true, "temp": true,
	"if": true, "exists": true, "primary": true, "key": true,
	"join": true, "inner": true, "left": true, "right": true,
	"full": true, "outer": true, "cross": true, "lateral": true,
	"on": true, "case": true, "end": true, "else": true,
	"union": true, "intersect": true, "except": true, "all": true,
	"distinct": true, "order": true, "group": true, "by": true,
	"having": true, "limit": true, "offset": true, "fetch": true,
	"asc": true, "desc": true, "nulls": true, "first": true, "last": true,
	"cast": true, "filter": true, "over": true, "partition": true,
	"do": true, "nothing": true, "conflict": true, "constraint": true,
	"references": true, "unique": true, "check": true, "default": true,
	"foreign": true, "not": true,
}

// wordOperators are keywords lexed as Operator tokens rather than commands.
var wordOperators = map[string]bool{
	"and": true, "or": true, "is": true,
	"in": true, "like": true, "ilike": true, "between": true,
	"escape": true, "similar": true, "collate": true,
}

// literalWords are keywords lexed as Literal tokens.
var literalWords = map[string]bool{
	"null": true, "true": true, "false": true,
	"current_timestamp": true, "current_date": true, "current_time": true,
}

// Lookup classifies a bare word. It returns Command, Operator or Literal
// for known keywords, and Identifier otherwise.
func Lookup(word string) Kind {
	switch {
	case commands[word]:
		return Command
	case wordOperators[word]:
		return Operator
	case literalWords[word]:
		return Literal
	default:
		return Identifier
	}
}
