// Package format renders AST nodes back to SQL text under configurable
// dialect presets.
package format

import (
	"strings"

	"github.com/pkg/errors"
)

// ParamStyle selects how bind parameters are rendered.
type ParamStyle string

const (
	// ParamPreserve renders every placeholder exactly as written in the
	// source. This is the default and guarantees byte-identical
	// round-trips for positional parameters.
	ParamPreserve   ParamStyle = "preserve"
	ParamIndexed    ParamStyle = "indexed"    // $1, $2, ...
	ParamNamed      ParamStyle = "named"      // :name, @name
	ParamPositional ParamStyle = "positional" // ?
)

// KeywordCase selects keyword rendering.
type KeywordCase string

const (
	KeywordLower KeywordCase = "lower"
	KeywordUpper KeywordCase = "upper"
)

// BreakStyle places a separator before or after the line break.
type BreakStyle string

const (
	BreakBefore BreakStyle = "before"
	BreakAfter  BreakStyle = "after"
)

// WithStyle selects WITH clause layout.
type WithStyle string

const (
	WithOnePerLine WithStyle = "one-per-line"
	WithSingleLine WithStyle = "single-line"
)

// IdentEscape holds the identifier quoting delimiters of a dialect.
type IdentEscape struct {
	Start string
	End   string
}

// Options controls formatting. An Options value is immutable for the
// duration of a formatting call; named presets are bundles of these
// fields and a caller may supply an ad hoc value instead.
type Options struct {
	IdentEscape   IdentEscape
	ParamSymbol   string
	ParamStyle    ParamStyle
	KeywordCase   KeywordCase
	CommaBreak    BreakStyle
	AndBreak      BreakStyle
	IndentSize    int
	IndentChar    string
	Newline       string
	WithStyle     WithStyle
	ExportComment bool
}

func (o *Options) fill() *Options {
	out := *o
	if out.IdentEscape.Start == "" {
		out.IdentEscape = IdentEscape{Start: `"`, End: `"`}
	}
	if out.ParamStyle == "" {
		out.ParamStyle = ParamPreserve
	}
	if out.KeywordCase == "" {
		out.KeywordCase = KeywordLower
	}
	if out.CommaBreak == "" {
		out.CommaBreak = BreakAfter
	}
	if out.AndBreak == "" {
		out.AndBreak = BreakBefore
	}
	if out.IndentSize == 0 {
		out.IndentSize = 4
	}
	if out.IndentChar == "" {
		out.IndentChar = " "
	}
	if out.Newline == "" {
		out.Newline = "\n"
	}
	if out.WithStyle == "" {
		out.WithStyle = WithOnePerLine
	}
	return &out
}

// Postgres returns the PostgreSQL preset: double-quoted identifiers and
// indexed $n parameters.
func Postgres() *Options {
	return &Options{
		IdentEscape: IdentEscape{Start: `"`, End: `"`},
		ParamSymbol: "$",
		ParamStyle:  ParamIndexed,
	}
}

// MySQL returns the MySQL preset: backticked identifiers and positional
// ? parameters.
func MySQL() *Options {
	return &Options{
		IdentEscape: IdentEscape{Start: "`", End: "`"},
		ParamSymbol: "?",
		ParamStyle:  ParamPositional,
	}
}

// SQLite returns the SQLite preset: double-quoted identifiers, named
// :name parameters preserved as written.
func SQLite() *Options {
	return &Options{
		IdentEscape: IdentEscape{Start: `"`, End: `"`},
		ParamSymbol: ":",
		ParamStyle:  ParamPreserve,
	}
}

// SQLServer returns the SQL Server preset: bracketed identifiers and
// named @name parameters.
func SQLServer() *Options {
	return &Options{
		IdentEscape: IdentEscape{Start: "[", End: "]"},
		ParamSymbol: "@",
		ParamStyle:  ParamNamed,
	}
}

// Preset returns the named preset.
func Preset(name string) (*Options, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql":
		return Postgres(), nil
	case "mysql":
		return MySQL(), nil
	case "sqlite":
		return SQLite(), nil
	case "sqlserver", "mssql":
		return SQLServer(), nil
	}
	return nil, errors.Errorf("unknown formatter preset %q", name)
}
