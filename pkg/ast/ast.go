// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
package ast

import (
	"github.com/xplshn/mpl/pkg/token"
)

// NodeType defines the kind of a node in the AST
type NodeType int

// Node types enum
const (
	// Expressions
	Number NodeType = iota
	Ident
	UnaryOp
	BinaryOp
	SeqFibonacci
	SeqRange

	// Statements
	Let
	SeqDecl
	Print
	Loop
	If

	Program
)

var nodeTypeNames = [...]string{
	Number:       "Number",
	Ident:        "Var",
	UnaryOp:      "Unary",
	BinaryOp:     "Binary",
	SeqFibonacci: "SeqFibonacci",
	SeqRange:     "SeqRange",
	Let:          "Let",
	SeqDecl:      "SeqDecl",
	Print:        "Print",
	Loop:         "Loop",
	If:           "If",
	Program:      "Program",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "Unknown"
}

// IsExpr reports whether the node type is an expression variant.
func (t NodeType) IsExpr() bool { return t <= SeqRange }

// Node represents a node in the Abstract Syntax Tree
type Node struct {
	Type NodeType
	Tok  token.Token
	Data interface{}
}

// --- Node Data Structs ---
type NumberNode struct{ Value int64 }
type IdentNode struct{ Name string }
type UnaryOpNode struct{ Op token.Type; Expr *Node }
type BinaryOpNode struct{ Op token.Type; Left, Right *Node }
type SeqFibonacciNode struct{ N *Node }
type SeqRangeNode struct{ Start, End *Node }
type LetNode struct{ Name string; Value *Node }
type SeqDeclNode struct{ Name string; Value *Node }
type PrintNode struct{ Value *Node }
type LoopNode struct {
	Var        string
	Start, End *Node
	Body       []*Node
}

// IfNode has a nil ElseBody when no else branch was written; an empty but
// present else branch is a non-nil empty slice.
type IfNode struct {
	Cond     *Node
	ThenBody []*Node
	ElseBody []*Node
}
type ProgramNode struct{ Body []*Node }

// --- Node Constructors ---

func newNode(tok token.Token, nodeType NodeType, data interface{}) *Node {
	return &Node{Type: nodeType, Tok: tok, Data: data}
}

func NewNumber(tok token.Token, value int64) *Node {
	return newNode(tok, Number, NumberNode{Value: value})
}
func NewIdent(tok token.Token, name string) *Node {
	return newNode(tok, Ident, IdentNode{Name: name})
}
func NewUnaryOp(tok token.Token, op token.Type, expr *Node) *Node {
	return newNode(tok, UnaryOp, UnaryOpNode{Op: op, Expr: expr})
}
func NewBinaryOp(tok token.Token, op token.Type, left, right *Node) *Node {
	return newNode(tok, BinaryOp, BinaryOpNode{Op: op, Left: left, Right: right})
}
func NewSeqFibonacci(tok token.Token, n *Node) *Node {
	return newNode(tok, SeqFibonacci, SeqFibonacciNode{N: n})
}
func NewSeqRange(tok token.Token, start, end *Node) *Node {
	return newNode(tok, SeqRange, SeqRangeNode{Start: start, End: end})
}
func NewLet(tok token.Token, name string, value *Node) *Node {
	return newNode(tok, Let, LetNode{Name: name, Value: value})
}
func NewSeqDecl(tok token.Token, name string, value *Node) *Node {
	return newNode(tok, SeqDecl, SeqDeclNode{Name: name, Value: value})
}
func NewPrint(tok token.Token, value *Node) *Node {
	return newNode(tok, Print, PrintNode{Value: value})
}
func NewLoop(tok token.Token, loopVar string, start, end *Node, body []*Node) *Node {
	return newNode(tok, Loop, LoopNode{Var: loopVar, Start: start, End: end, Body: body})
}
func NewIf(tok token.Token, cond *Node, thenBody, elseBody []*Node) *Node {
	return newNode(tok, If, IfNode{Cond: cond, ThenBody: thenBody, ElseBody: elseBody})
}
func NewProgram(tok token.Token, body []*Node) *Node {
	return newNode(tok, Program, ProgramNode{Body: body})
}
