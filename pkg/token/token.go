package token

import "fmt"

type Type int

const (
	EOF Type = iota
	Newline
	Ident
	Number
	Let
	Seq
	Print
	Loop
	From
	To
	If
	Else
	True
	False
	Fibonacci
	Range
	LParen
	RParen
	LBrace
	RBrace
	Comma
	Eq
	Plus
	Minus
	Star
	Slash
	Rem
	EqEq
	Neq
	Lt
	Gt
	Lte
	Gte
	AndAnd
	OrOr
)

var KeywordMap = map[string]Type{
	"let":       Let,
	"seq":       Seq,
	"print":     Print,
	"loop":      Loop,
	"from":      From,
	"to":        To,
	"if":        If,
	"else":      Else,
	"true":      True,
	"false":     False,
	"fibonacci": Fibonacci,
	"range":     Range,
}

// Reverse mapping from Type to the keyword or symbol text
var TypeStrings = map[Type]string{
	EOF:     "EOF",
	Newline: "NEWLINE",
	Ident:   "IDENT",
	Number:  "NUMBER",
	LParen:  "(",
	RParen:  ")",
	LBrace:  "{",
	RBrace:  "}",
	Comma:   ",",
	Eq:      "=",
	Plus:    "+",
	Minus:   "-",
	Star:    "*",
	Slash:   "/",
	Rem:     "%",
	EqEq:    "==",
	Neq:     "!=",
	Lt:      "<",
	Gt:      ">",
	Lte:     "<=",
	Gte:     ">=",
	AndAnd:  "&&",
	OrOr:    "||",
}

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// IsKeyword reports whether t is one of the reserved words.
func (t Type) IsKeyword() bool { return t >= Let && t <= Range }

type Token struct {
	Type   Type
	Value  string
	Line   int
	Column int
	Len    int
}

// Describe renders the token for diagnostics: its kind, plus its text when
// the kind alone does not identify it.
func (t Token) Describe() string {
	switch t.Type {
	case Ident, Number:
		return fmt.Sprintf("%s '%s'", t.Type, t.Value)
	case EOF, Newline:
		return t.Type.String()
	}
	return fmt.Sprintf("'%s'", t.Type)
}

func (t Token) Position() (line, col, length int) { return t.Line, t.Column, t.Len }
