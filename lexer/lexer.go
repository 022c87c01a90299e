// Package lexer tokenizes SQL input.
package lexer

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zerotable/ztdsql/token"
)

// Lexer tokenizes SQL input. It owns the input cursor; emitted items are
// immutable.
type Lexer struct {
	reader *bufio.Reader
	ch     rune // current character
	pos    token.Position
	eof    bool
	prev   Item // last non-comment item emitted, for context rules
}

// Item represents a lexical token with its raw text and position.
type Item struct {
	Kind    token.Kind
	Text    string // raw text as written; string literals keep their quotes
	Command string // normalized lower-case form for commands and word operators
	Pos     token.Position
	Quoted  bool // true if this identifier was quoted in the source
}

// New creates a new Lexer from an io.Reader.
func New(r io.Reader) *Lexer {
	l := &Lexer{
		reader: bufio.NewReader(r),
		pos:    token.Position{Offset: 0, Line: 1, Column: 0},
	}
	l.readChar()
	return l
}

// NewString creates a new Lexer from a string.
func NewString(sql string) *Lexer {
	return New(strings.NewReader(sql))
}

func (l *Lexer) readChar() {
	if l.eof {
		l.ch = 0
		return
	}
	r, size, err := l.reader.ReadRune()
	if err != nil {
		l.ch = 0
		l.eof = true
		return
	}
	if l.ch == '\n' {
		l.pos.Line++
		l.pos.Column = 1
	} else {
		l.pos.Column++
	}
	l.pos.Offset += size
	l.ch = r
}

func (l *Lexer) peekChar() rune {
	if l.eof {
		return 0
	}
	bytes, err := l.reader.Peek(1)
	if err != nil || len(bytes) == 0 {
		return 0
	}
	r, _ := utf8.DecodeRune(bytes)
	return r
}

// peekBytes returns up to n upcoming bytes without consuming them.
func (l *Lexer) peekBytes(n int) []byte {
	if l.eof {
		return nil
	}
	b, _ := l.reader.Peek(n)
	return b
}

func (l *Lexer) skipWhitespace() {
	for unicode.IsSpace(l.ch) || l.ch == '\uFEFF' {
		l.readChar()
	}
}

func (l *Lexer) emit(it Item) Item {
	if it.Kind != token.Comment {
		l.prev = it
	}
	return it
}

// NextToken returns the next token from the input. Unterminated strings,
// quoted identifiers and block comments are reported as errors naming the
// construct's start position.
func (l *Lexer) NextToken() (Item, error) {
	l.skipWhitespace()

	pos := l.pos

	if l.eof || l.ch == 0 {
		return Item{Kind: token.EOF, Pos: pos}, nil
	}

	if l.ch == '-' && l.peekChar() == '-' {
		return l.readLineComment(), nil
	}
	if l.ch == '/' && l.peekChar() == '*' {
		return l.readBlockComment()
	}

	switch l.ch {
	case '(':
		l.readChar()
		return l.emit(Item{Kind: token.OpenParen, Text: "(", Pos: pos}), nil
	case ')':
		l.readChar()
		return l.emit(Item{Kind: token.CloseParen, Text: ")", Pos: pos}), nil
	case ',':
		l.readChar()
		return l.emit(Item{Kind: token.Comma, Text: ",", Pos: pos}), nil
	case '.':
		if unicode.IsDigit(l.peekChar()) {
			return l.emit(l.readNumber()), nil
		}
		l.readChar()
		return l.emit(Item{Kind: token.Dot, Text: ".", Pos: pos}), nil
	case ';':
		l.readChar()
		return l.emit(Item{Kind: token.Operator, Text: ";", Command: ";", Pos: pos}), nil
	case '[':
		// A leading [ quotes an identifier unless the previous token puts
		// us in array-index position.
		if isArrayIndexContext(l.prev) {
			l.readChar()
			return l.emit(Item{Kind: token.OpenBracket, Text: "[", Pos: pos}), nil
		}
		return l.readQuotedIdentifier(']')
	case ']':
		l.readChar()
		return l.emit(Item{Kind: token.CloseBracket, Text: "]", Pos: pos}), nil
	case '\'':
		return l.readString()
	case '"':
		return l.readQuotedIdentifier('"')
	case '`':
		return l.readQuotedIdentifier('`')
	case '?':
		l.readChar()
		return l.emit(Item{Kind: token.Parameter, Text: "?", Pos: pos}), nil
	case '@':
		return l.readNamedParameter('@'), nil
	case ':':
		if l.peekChar() == ':' {
			l.readChar()
			l.readChar()
			return l.emit(Item{Kind: token.Operator, Text: "::", Command: "::", Pos: pos}), nil
		}
		if isIdentStart(l.peekChar()) {
			return l.readNamedParameter(':'), nil
		}
		l.readChar()
		return l.emit(Item{Kind: token.Operator, Text: ":", Command: ":", Pos: pos}), nil
	case '$':
		return l.readDollar(), nil
	default:
		if unicode.IsDigit(l.ch) {
			return l.emit(l.readNumber()), nil
		}
		if isIdentStart(l.ch) {
			return l.readWord()
		}
		if isOperatorChar(l.ch) {
			return l.emit(l.readOperator()), nil
		}
		ch := l.ch
		l.readChar()
		return l.emit(Item{Kind: token.Illegal, Text: string(ch), Pos: pos}), nil
	}
}

func (l *Lexer) readLineComment() Item {
	pos := l.pos
	var sb strings.Builder
	sb.WriteRune(l.ch)
	l.readChar()
	sb.WriteRune(l.ch)
	l.readChar()
	for l.ch != '\n' && !l.eof {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	return Item{Kind: token.Comment, Text: sb.String(), Pos: pos}
}

func (l *Lexer) readBlockComment() (Item, error) {
	pos := l.pos
	var sb strings.Builder
	sb.WriteRune(l.ch)
	l.readChar()
	sb.WriteRune(l.ch)
	l.readChar()

	for {
		if l.eof {
			return Item{}, fmt.Errorf("unterminated block comment starting at line %d, column %d", pos.Line, pos.Column)
		}
		if l.ch == '*' && l.peekChar() == '/' {
			sb.WriteRune(l.ch)
			l.readChar()
			sb.WriteRune(l.ch)
			l.readChar()
			break
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	return Item{Kind: token.Comment, Text: sb.String(), Pos: pos}, nil
}

// readString reads a single-quoted string literal. A doubled quote ('')
// escapes a quote character and is kept verbatim in the raw text.
func (l *Lexer) readString() (Item, error) {
	pos := l.pos
	var sb strings.Builder
	sb.WriteRune(l.ch) // opening quote
	l.readChar()

	for {
		if l.eof {
			return Item{}, fmt.Errorf("unterminated string literal starting at line %d, column %d", pos.Line, pos.Column)
		}
		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				sb.WriteString("''")
				l.readChar()
				l.readChar()
				continue
			}
			sb.WriteRune(l.ch) // closing quote
			l.readChar()
			break
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	return l.emit(Item{Kind: token.Literal, Text: sb.String(), Pos: pos}), nil
}

// readQuotedIdentifier reads an identifier delimited by double quotes,
// backticks or square brackets. The raw text between the delimiters is
// returned without evaluating escape sequences.
func (l *Lexer) readQuotedIdentifier(closing rune) (Item, error) {
	pos := l.pos
	var sb strings.Builder
	l.readChar() // skip opening delimiter

	for {
		if l.eof {
			return Item{}, fmt.Errorf("unterminated quoted identifier starting at line %d, column %d", pos.Line, pos.Column)
		}
		if l.ch == closing {
			// Doubled closing delimiters stay verbatim.
			if closing != ']' && l.peekChar() == closing {
				sb.WriteRune(closing)
				sb.WriteRune(closing)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar()
			break
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	return l.emit(Item{Kind: token.Identifier, Text: sb.String(), Pos: pos, Quoted: true}), nil
}

func (l *Lexer) readNamedParameter(prefix rune) Item {
	pos := l.pos
	var sb strings.Builder
	sb.WriteRune(prefix)
	l.readChar()
	for isIdentChar(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	return l.emit(Item{Kind: token.Parameter, Text: sb.String(), Pos: pos})
}

// readDollar disambiguates positional parameters ($1) from money
// literals ($1,234.56) via a bounded forward scan.
func (l *Lexer) readDollar() Item {
	pos := l.pos
	l.readChar() // consume $

	if isIdentStart(l.ch) {
		// Named parameter: $name.
		var sb strings.Builder
		sb.WriteRune('$')
		for isIdentChar(l.ch) {
			sb.WriteRune(l.ch)
			l.readChar()
		}
		return l.emit(Item{Kind: token.Parameter, Text: sb.String(), Pos: pos})
	}
	if !unicode.IsDigit(l.ch) {
		return l.emit(Item{Kind: token.Illegal, Text: "$", Pos: pos})
	}

	// The current digit is already consumed from the reader, so the scan
	// window is the current char plus the unread lookahead.
	window := string(l.ch) + string(l.peekBytes(moneyScanLimit))
	if n := moneyLiteralLen(window); n > 0 {
		var sb strings.Builder
		sb.WriteRune('$')
		for i := 0; i < n; i++ {
			sb.WriteRune(l.ch)
			l.readChar()
		}
		return l.emit(Item{Kind: token.Literal, Text: sb.String(), Pos: pos})
	}

	var sb strings.Builder
	sb.WriteRune('$')
	for unicode.IsDigit(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	return l.emit(Item{Kind: token.Parameter, Text: sb.String(), Pos: pos})
}

func (l *Lexer) readNumber() Item {
	pos := l.pos
	var sb strings.Builder

	if l.ch == '.' {
		sb.WriteRune(l.ch)
		l.readChar()
	}

	// Radix prefixes: 0x, 0b, 0o.
	if l.ch == '0' {
		switch next := l.peekChar(); next {
		case 'x', 'X':
			sb.WriteRune(l.ch)
			l.readChar()
			sb.WriteRune(l.ch)
			l.readChar()
			for isHexDigit(l.ch) {
				sb.WriteRune(l.ch)
				l.readChar()
			}
			return Item{Kind: token.Literal, Text: sb.String(), Pos: pos}
		case 'b', 'B':
			sb.WriteRune(l.ch)
			l.readChar()
			sb.WriteRune(l.ch)
			l.readChar()
			for l.ch == '0' || l.ch == '1' {
				sb.WriteRune(l.ch)
				l.readChar()
			}
			return Item{Kind: token.Literal, Text: sb.String(), Pos: pos}
		case 'o', 'O':
			sb.WriteRune(l.ch)
			l.readChar()
			sb.WriteRune(l.ch)
			l.readChar()
			for l.ch >= '0' && l.ch <= '7' {
				sb.WriteRune(l.ch)
				l.readChar()
			}
			return Item{Kind: token.Literal, Text: sb.String(), Pos: pos}
		}
	}

	for unicode.IsDigit(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	if l.ch == '.' && unicode.IsDigit(l.peekChar()) {
		sb.WriteRune(l.ch)
		l.readChar()
		for unicode.IsDigit(l.ch) {
			sb.WriteRune(l.ch)
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if unicode.IsDigit(next) || next == '+' || next == '-' {
			sb.WriteRune(l.ch)
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				sb.WriteRune(l.ch)
				l.readChar()
			}
			for unicode.IsDigit(l.ch) {
				sb.WriteRune(l.ch)
				l.readChar()
			}
		}
	}
	return Item{Kind: token.Literal, Text: sb.String(), Pos: pos}
}

// readWord reads a bare word: keyword, identifier, function name, string
// specifier or type name depending on context.
func (l *Lexer) readWord() (Item, error) {
	pos := l.pos
	var sb strings.Builder
	for isIdentChar(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	word := sb.String()
	lower := strings.ToLower(word)

	// A one-letter specifier directly before a quote introduces a typed
	// string literal: E'...', N'...', X'...', B'...'.
	if l.ch == '\'' && isStringSpecifier(lower) {
		spec := l.emit(Item{Kind: token.StringSpecifier, Text: word, Pos: pos})
		return spec, nil
	}

	// After a cast operator the word names a type.
	if l.prev.Command == "::" {
		return l.emit(Item{Kind: token.Type, Text: word, Pos: pos}), nil
	}

	kind := token.Lookup(lower)
	if kind == token.Identifier && l.ch == '(' {
		return l.emit(Item{Kind: token.Function, Text: word, Pos: pos}), nil
	}
	it := Item{Kind: kind, Text: word, Pos: pos}
	if kind == token.Command || kind == token.Operator {
		it.Command = lower
	}
	return l.emit(it), nil
}

func (l *Lexer) readOperator() Item {
	pos := l.pos
	var sb strings.Builder
	for isOperatorChar(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
		// Stop before a comment opener swallowed into an operator run.
		if (l.ch == '-' && l.peekChar() == '-') || (l.ch == '*' && l.peekChar() == '/') {
			break
		}
	}
	text := sb.String()
	return Item{Kind: token.Operator, Text: text, Command: text, Pos: pos}
}

// isArrayIndexContext reports whether a [ after the given token indexes
// into a value rather than opening a quoted identifier.
func isArrayIndexContext(prev Item) bool {
	switch prev.Kind {
	case token.Identifier, token.CloseParen, token.CloseBracket, token.Function:
		return true
	}
	return false
}

func isStringSpecifier(lower string) bool {
	switch lower {
	case "e", "n", "x", "b":
		return true
	}
	return false
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentChar(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

func isHexDigit(ch rune) bool {
	return unicode.IsDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isOperatorChar(ch rune) bool {
	switch ch {
	case '+', '-', '*', '/', '%', '=', '<', '>', '!', '|', '&', '^', '#', '~':
		return true
	}
	return false
}

// Tokenize returns all non-comment tokens from the input.
func Tokenize(sql string) ([]Item, error) {
	l := NewString(sql)
	var items []Item
	for {
		it, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		if it.Kind == token.Comment {
			continue
		}
		items = append(items, it)
		if it.Kind == token.EOF {
			break
		}
	}
	return items, nil
}
