package typeChecker

import (
	"fmt"

	"github.com/xplshn/mpl/pkg/ast"
	"github.com/xplshn/mpl/pkg/config"
	"github.com/xplshn/mpl/pkg/token"
	"github.com/xplshn/mpl/pkg/util"
)

type Type int

const (
	TypeInt Type = iota
	TypeSeq
)

func (t Type) String() string {
	if t == TypeSeq {
		return "seq"
	}
	return "int"
}

// Error is a semantic error. Tok is the node that broke the rule; it is
// informative only and may be the zero token.
type Error struct {
	Msg string
	Tok token.Token
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Position() (line, col, length int) { return e.Tok.Position() }

type Symbol struct {
	Name  string
	Type  Type
	Depth int // 0 is the program scope
	Tok   token.Token
}

type Scope struct {
	Symbols map[string]*Symbol
	Parent  *Scope
	depth   int
}

// Report is what a successful check leaves behind.
type Report struct {
	// Declared lists every declaration in source order, across all scopes.
	Declared []Symbol
	// Globals is the program scope as it stands once checking is done.
	Globals  map[string]Symbol
	Warnings []util.Diagnostic
}

type TypeChecker struct {
	currentScope *Scope
	globalScope  *Scope
	cfg          *config.Config
	report       *Report
}

func NewTypeChecker(cfg *config.Config) *TypeChecker {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	globalScope := newScope(nil)
	return &TypeChecker{
		currentScope: globalScope,
		globalScope:  globalScope,
		cfg:          cfg,
		report:       &Report{Globals: make(map[string]Symbol)},
	}
}

// Check validates a program with a fresh checker.
func Check(root *ast.Node, cfg *config.Config) (*Report, error) {
	return NewTypeChecker(cfg).Check(root)
}

func newScope(parent *Scope) *Scope {
	s := &Scope{Symbols: make(map[string]*Symbol), Parent: parent}
	if parent != nil {
		s.depth = parent.depth + 1
	}
	return s
}

func (tc *TypeChecker) enterScope() { tc.currentScope = newScope(tc.currentScope) }
func (tc *TypeChecker) exitScope() {
	if tc.currentScope.Parent != nil {
		tc.currentScope = tc.currentScope.Parent
	}
}

// Depth is the nesting level of the scope currently open.
func (tc *TypeChecker) Depth() int { return tc.currentScope.depth }

func (tc *TypeChecker) errorf(tok token.Token, format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...), Tok: tok}
}

func (tc *TypeChecker) warn(wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if !tc.cfg.IsWarningEnabled(wt) {
		return
	}
	tc.report.Warnings = append(tc.report.Warnings, util.Diagnostic{
		Name: tc.cfg.Warnings[wt].Name, Message: fmt.Sprintf(format, args...),
		Line: tok.Line, Column: tok.Column, Len: tok.Len,
	})
}

func (tc *TypeChecker) addSymbol(name string, typ Type, tok token.Token) error {
	if _, exists := tc.currentScope.Symbols[name]; exists {
		return tc.errorf(tok, "redeclaration of '%s'", name)
	}
	if outer := tc.findSymbol(name); outer != nil {
		tc.warn(config.WarnShadow, tok, "declaration of '%s' shadows the %s declared at %d:%d", name, outer.Type, outer.Tok.Line, outer.Tok.Column)
	}
	sym := &Symbol{Name: name, Type: typ, Depth: tc.currentScope.depth, Tok: tok}
	tc.currentScope.Symbols[name] = sym
	tc.report.Declared = append(tc.report.Declared, *sym)
	return nil
}

func (tc *TypeChecker) findSymbol(name string) *Symbol {
	for s := tc.currentScope; s != nil; s = s.Parent {
		if sym, ok := s.Symbols[name]; ok {
			return sym
		}
	}
	return nil
}

func (tc *TypeChecker) Check(root *ast.Node) (*Report, error) {
	d, ok := root.Data.(ast.ProgramNode)
	if !ok {
		return nil, tc.errorf(root.Tok, "expected a program, got %s", root.Type)
	}
	if err := tc.checkBody(d.Body); err != nil {
		return nil, err
	}
	for name, sym := range tc.globalScope.Symbols {
		tc.report.Globals[name] = *sym
	}
	return tc.report, nil
}

func (tc *TypeChecker) checkBody(stmts []*ast.Node) error {
	for _, stmt := range stmts {
		if err := tc.checkStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

// checkBlock checks stmts in a fresh scope. The scope is popped even when
// checking stops early.
func (tc *TypeChecker) checkBlock(stmts []*ast.Node, declare func() error) error {
	tc.enterScope()
	defer tc.exitScope()
	if declare != nil {
		if err := declare(); err != nil {
			return err
		}
	}
	return tc.checkBody(stmts)
}

func (tc *TypeChecker) expectType(node *ast.Node, want Type, format string, args ...interface{}) error {
	got, err := tc.checkExpr(node)
	if err != nil {
		return err
	}
	if got != want {
		return tc.errorf(node.Tok, format, args...)
	}
	return nil
}

func (tc *TypeChecker) checkStmt(node *ast.Node) error {
	switch d := node.Data.(type) {
	case ast.LetNode:
		if err := tc.expectType(d.Value, TypeInt, "let expects int value for '%s'", d.Name); err != nil {
			return err
		}
		return tc.addSymbol(d.Name, TypeInt, node.Tok)

	case ast.SeqDeclNode:
		if err := tc.expectType(d.Value, TypeSeq, "seq expects sequence value for '%s'", d.Name); err != nil {
			return err
		}
		return tc.addSymbol(d.Name, TypeSeq, node.Tok)

	case ast.PrintNode:
		// both types are printable
		_, err := tc.checkExpr(d.Value)
		return err

	case ast.LoopNode:
		if err := tc.expectType(d.Start, TypeInt, "loop bounds must be int"); err != nil {
			return err
		}
		if err := tc.expectType(d.End, TypeInt, "loop bounds must be int"); err != nil {
			return err
		}
		return tc.checkBlock(d.Body, func() error {
			return tc.addSymbol(d.Var, TypeInt, node.Tok)
		})

	case ast.IfNode:
		if err := tc.expectType(d.Cond, TypeInt, "if condition must be int (0/1)"); err != nil {
			return err
		}
		if d.Cond.Type == ast.Number {
			tc.warn(config.WarnConstCond, d.Cond.Tok, "'if' condition is always %s", truth(d.Cond.Data.(ast.NumberNode).Value))
		}
		if err := tc.checkBlock(d.ThenBody, nil); err != nil {
			return err
		}
		if d.ElseBody != nil {
			return tc.checkBlock(d.ElseBody, nil)
		}
		return nil
	}
	return tc.errorf(node.Tok, "unknown statement %s", node.Type)
}

func truth(v int64) string {
	if v != 0 {
		return "true"
	}
	return "false"
}

func (tc *TypeChecker) checkExpr(node *ast.Node) (Type, error) {
	switch d := node.Data.(type) {
	case ast.NumberNode:
		return TypeInt, nil

	case ast.IdentNode:
		sym := tc.findSymbol(d.Name)
		if sym == nil {
			return 0, tc.errorf(node.Tok, "undeclared identifier '%s'", d.Name)
		}
		return sym.Type, nil

	case ast.UnaryOpNode:
		t, err := tc.checkExpr(d.Expr)
		if err != nil {
			return 0, err
		}
		if d.Op != token.Minus || t != TypeInt {
			return 0, tc.errorf(node.Tok, "invalid unary op '%s' on %s", d.Op, t)
		}
		return TypeInt, nil

	case ast.BinaryOpNode:
		return tc.checkBinaryOp(node, d)

	case ast.SeqFibonacciNode:
		if err := tc.expectType(d.N, TypeInt, "fibonacci expects int n"); err != nil {
			return 0, err
		}
		if d.N.Type == ast.Number && d.N.Data.(ast.NumberNode).Value <= 0 {
			tc.warn(config.WarnEmptySeq, node.Tok, "fibonacci(%d) is always empty", d.N.Data.(ast.NumberNode).Value)
		}
		return TypeSeq, nil

	case ast.SeqRangeNode:
		if err := tc.expectType(d.Start, TypeInt, "range expects int bounds"); err != nil {
			return 0, err
		}
		if err := tc.expectType(d.End, TypeInt, "range expects int bounds"); err != nil {
			return 0, err
		}
		if d.Start.Type == ast.Number && d.End.Type == ast.Number {
			s, e := d.Start.Data.(ast.NumberNode).Value, d.End.Data.(ast.NumberNode).Value
			if s > e {
				tc.warn(config.WarnEmptySeq, node.Tok, "range(%d, %d) is always empty", s, e)
			}
		}
		return TypeSeq, nil
	}
	return 0, tc.errorf(node.Tok, "unknown expression %s", node.Type)
}

func (tc *TypeChecker) checkBinaryOp(node *ast.Node, d ast.BinaryOpNode) (Type, error) {
	lt, err := tc.checkExpr(d.Left)
	if err != nil {
		return 0, err
	}
	rt, err := tc.checkExpr(d.Right)
	if err != nil {
		return 0, err
	}

	var kind string
	switch d.Op {
	case token.Plus, token.Minus, token.Star, token.Slash, token.Rem:
		kind = "arithmetic"
	case token.Lt, token.Lte, token.Gt, token.Gte, token.EqEq, token.Neq:
		kind = "comparison"
	case token.AndAnd, token.OrOr:
		kind = "logic"
	default:
		return 0, tc.errorf(node.Tok, "unknown binary op '%s'", d.Op)
	}
	if lt != TypeInt || rt != TypeInt {
		return 0, tc.errorf(node.Tok, "%s '%s' expects int operands, got %s and %s", kind, d.Op, lt, rt)
	}

	if (d.Op == token.Slash || d.Op == token.Rem) && d.Right.Type == ast.Number && d.Right.Data.(ast.NumberNode).Value == 0 {
		tc.warn(config.WarnDivZero, node.Tok, "%s by zero", map[token.Type]string{token.Slash: "division", token.Rem: "modulo"}[d.Op])
	}
	return TypeInt, nil
}
