package ast

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/mpl/pkg/token"
)

var tok token.Token

func num(v int64) *Node { return NewNumber(tok, v) }
func ident(n string) *Node { return NewIdent(tok, n) }

func TestExprString(t *testing.T) {
	tests := []struct {
		node *Node
		want string
	}{
		{num(-4), "-4"},
		{NewBinaryOp(tok, token.Plus, num(1), NewBinaryOp(tok, token.Star, num(2), ident("x"))), "(+ 1 (* 2 x))"},
		{NewUnaryOp(tok, token.Minus, ident("a")), "(- a)"},
		{NewSeqRange(tok, num(1), ident("n")), "(range 1 n)"},
		{NewSeqFibonacci(tok, num(5)), "(fibonacci 5)"},
		{nil, "<nil>"},
	}
	for _, tt := range tests {
		if got := ExprString(tt.node); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestDump(t *testing.T) {
	loop := NewLoop(tok, "i", num(1), ident("n"), []*Node{
		NewIf(tok, NewBinaryOp(tok, token.Gt, ident("i"), num(1)),
			[]*Node{NewPrint(tok, ident("i"))},
			[]*Node{}),
	})
	root := NewProgram(tok, []*Node{
		NewLet(tok, "n", num(3)),
		NewSeqDecl(tok, "s", NewSeqFibonacci(tok, ident("n"))),
		loop,
		NewIf(tok, num(0), nil, nil),
	})

	want := strings.Join([]string{
		"(let n 3)",
		"(seq s (fibonacci n))",
		"(loop i 1 n",
		"  (if (> i 1)",
		"    (then",
		"      (print i)",
		"    )",
		"    (else",
		"    )",
		"  )",
		")",
		"(if 0",
		"  (then",
		"  )",
		")",
	}, "\n") + "\n"
	if diff := cmp.Diff(want, Dump(root)); diff != "" {
		t.Errorf("dump mismatch (-want +got):\n%s", diff)
	}
}

func TestNodeTypes(t *testing.T) {
	if !Number.IsExpr() || !SeqRange.IsExpr() || Let.IsExpr() || Program.IsExpr() {
		t.Error("IsExpr misclassifies node types")
	}
	if Ident.String() != "Var" || NodeType(99).String() != "Unknown" {
		t.Errorf("unexpected names %q, %q", Ident.String(), NodeType(99).String())
	}
}
