package parser

import (
	"fmt"
	"strconv"

	"github.com/xplshn/mpl/pkg/ast"
	"github.com/xplshn/mpl/pkg/lexer"
	"github.com/xplshn/mpl/pkg/token"
)

// Error reports a token that does not fit the grammar at its position.
type Error struct {
	Expected string
	Found    token.Token
	Msg      string // overrides the expected/found wording when set
}

func (e *Error) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("expected %s, found %s", e.Expected, e.Found.Describe())
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at %d:%d", e.Message(), e.Found.Line, e.Found.Column)
}

func (e *Error) Position() (line, col, length int) { return e.Found.Position() }

// bailout carries a parse error up the recursive descent to Parse.
type bailout struct{ err *Error }

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
}

// NewParser creates and initializes a new Parser from a token stream
func NewParser(tokens []token.Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		tokens = append(tokens, token.Token{Type: token.EOF})
	}
	return &Parser{tokens: tokens, current: tokens[0]}
}

// Parse lexes and parses a complete program.
func Parse(source string) (*ast.Node, error) {
	toks, err := lexer.Tokenize(source)
	if err != nil {
		return nil, err
	}
	return NewParser(toks).Parse()
}

func (p *Parser) Parse() (root *ast.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			root, err = nil, b.err
		}
	}()

	tok := p.current
	var body []*ast.Node
	for {
		p.skipNewlines()
		if p.check(token.EOF) {
			break
		}
		body = append(body, p.parseStmt())
	}
	return ast.NewProgram(tok, body), nil
}

// Parser helpers
func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.previous = p.current
		p.pos++
		p.current = p.tokens[p.pos]
	}
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, expected string) token.Token {
	if p.check(tokType) {
		p.advance()
		return p.previous
	}
	p.fail(expected)
	return token.Token{}
}

func (p *Parser) fail(expected string) {
	panic(bailout{&Error{Expected: expected, Found: p.current}})
}

func (p *Parser) failf(tok token.Token, format string, args ...interface{}) {
	panic(bailout{&Error{Found: tok, Msg: fmt.Sprintf(format, args...)}})
}

func (p *Parser) skipNewlines() {
	for p.match(token.Newline) {
	}
}

// Statement Parsing
func (p *Parser) parseStmt() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Let):
		name := p.expect(token.Ident, "identifier after 'let'").Value
		p.expect(token.Eq, "'=' after variable name")
		return ast.NewLet(tok, name, p.parseExpr())

	case p.match(token.Seq):
		name := p.expect(token.Ident, "identifier after 'seq'").Value
		p.expect(token.Eq, "'=' after sequence name")
		return ast.NewSeqDecl(tok, name, p.parseSeqExpr())

	case p.match(token.Print):
		return ast.NewPrint(tok, p.parseExpr())

	case p.match(token.Loop):
		loopVar := p.expect(token.Ident, "loop variable after 'loop'").Value
		p.expect(token.From, "'from' after loop variable")
		start := p.parseExpr()
		p.expect(token.To, "'to' after loop start")
		end := p.parseExpr()
		return ast.NewLoop(tok, loopVar, start, end, p.parseBlock())

	case p.match(token.If):
		cond := p.parseExpr()
		thenBody := p.parseBlock()
		var elseBody []*ast.Node
		if p.match(token.Else) {
			elseBody = p.parseBlock()
			if elseBody == nil {
				elseBody = []*ast.Node{}
			}
		}
		return ast.NewIf(tok, cond, thenBody, elseBody)
	}
	p.fail("a statement")
	return nil
}

func (p *Parser) parseBlock() []*ast.Node {
	p.expect(token.LBrace, "'{' to start a block")
	var stmts []*ast.Node
	for {
		p.skipNewlines()
		if p.match(token.RBrace) {
			return stmts
		}
		if p.check(token.EOF) {
			p.fail("'}' after block")
		}
		stmts = append(stmts, p.parseStmt())
	}
}

func (p *Parser) parseSeqExpr() *ast.Node {
	tok := p.current
	if p.match(token.Fibonacci) {
		p.expect(token.LParen, "'(' after 'fibonacci'")
		n := p.parseExpr()
		p.expect(token.RParen, "')' after fibonacci argument")
		return ast.NewSeqFibonacci(tok, n)
	}
	if p.match(token.Range) {
		p.expect(token.LParen, "'(' after 'range'")
		start := p.parseExpr()
		p.expect(token.Comma, "',' between range bounds")
		end := p.parseExpr()
		p.expect(token.RParen, "')' after range bounds")
		return ast.NewSeqRange(tok, start, end)
	}
	p.fail("sequence expression 'fibonacci(...)' or 'range(...)'")
	return nil
}

// Expression Parsing

// Binary operator levels from loosest to tightest binding.
var binaryLevels = [][]token.Type{
	{token.AndAnd, token.OrOr},
	{token.EqEq, token.Neq},
	{token.Lt, token.Lte, token.Gt, token.Gte},
	{token.Plus, token.Minus},
	{token.Star, token.Slash, token.Rem},
}

func (p *Parser) parseExpr() *ast.Node {
	return p.parseBinaryExpr(0)
}

func (p *Parser) parseBinaryExpr(level int) *ast.Node {
	if level == len(binaryLevels) {
		return p.parseUnaryExpr()
	}
	left := p.parseBinaryExpr(level + 1)
	for p.atOperator(binaryLevels[level]) {
		opTok := p.current
		p.advance()
		right := p.parseBinaryExpr(level + 1)
		left = ast.NewBinaryOp(opTok, opTok.Type, left, right)
	}
	return left
}

func (p *Parser) atOperator(ops []token.Type) bool {
	for _, op := range ops {
		if p.check(op) {
			return true
		}
	}
	return false
}

func (p *Parser) parseUnaryExpr() *ast.Node {
	tok := p.current
	if p.match(token.Minus) {
		return ast.NewUnaryOp(tok, token.Minus, p.parseUnaryExpr())
	}
	return p.parsePrimaryExpr()
}

func (p *Parser) parsePrimaryExpr() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Number):
		val, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			p.failf(tok, "integer literal %s is out of range", tok.Value)
		}
		return ast.NewNumber(tok, val)
	case p.match(token.Ident):
		return ast.NewIdent(tok, tok.Value)
	case p.match(token.LParen):
		expr := p.parseExpr()
		p.expect(token.RParen, "')' after expression")
		return expr
	case p.match(token.True):
		return ast.NewNumber(tok, 1)
	case p.match(token.False):
		return ast.NewNumber(tok, 0)
	}
	p.fail("an expression")
	return nil
}
