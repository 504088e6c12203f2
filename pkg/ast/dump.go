package ast

import (
	"fmt"
	"strings"
)

// Dump renders a tree as indented s-expressions, one statement per line.
func Dump(node *Node) string {
	var sb strings.Builder
	dumpStmt(&sb, node, 0)
	return sb.String()
}

// ExprString renders an expression on a single line.
func ExprString(node *Node) string {
	if node == nil {
		return "<nil>"
	}
	switch d := node.Data.(type) {
	case NumberNode:
		return fmt.Sprint(d.Value)
	case IdentNode:
		return d.Name
	case UnaryOpNode:
		return fmt.Sprintf("(%s %s)", d.Op, ExprString(d.Expr))
	case BinaryOpNode:
		return fmt.Sprintf("(%s %s %s)", d.Op, ExprString(d.Left), ExprString(d.Right))
	case SeqFibonacciNode:
		return fmt.Sprintf("(fibonacci %s)", ExprString(d.N))
	case SeqRangeNode:
		return fmt.Sprintf("(range %s %s)", ExprString(d.Start), ExprString(d.End))
	}
	return fmt.Sprintf("<%s>", node.Type)
}

func dumpStmt(sb *strings.Builder, node *Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch d := node.Data.(type) {
	case ProgramNode:
		for _, s := range d.Body {
			dumpStmt(sb, s, depth)
		}
	case LetNode:
		fmt.Fprintf(sb, "%s(let %s %s)\n", indent, d.Name, ExprString(d.Value))
	case SeqDeclNode:
		fmt.Fprintf(sb, "%s(seq %s %s)\n", indent, d.Name, ExprString(d.Value))
	case PrintNode:
		fmt.Fprintf(sb, "%s(print %s)\n", indent, ExprString(d.Value))
	case LoopNode:
		fmt.Fprintf(sb, "%s(loop %s %s %s\n", indent, d.Var, ExprString(d.Start), ExprString(d.End))
		dumpBody(sb, d.Body, depth+1)
		fmt.Fprintf(sb, "%s)\n", indent)
	case IfNode:
		fmt.Fprintf(sb, "%s(if %s\n", indent, ExprString(d.Cond))
		fmt.Fprintf(sb, "%s  (then\n", indent)
		dumpBody(sb, d.ThenBody, depth+2)
		fmt.Fprintf(sb, "%s  )\n", indent)
		if d.ElseBody != nil {
			fmt.Fprintf(sb, "%s  (else\n", indent)
			dumpBody(sb, d.ElseBody, depth+2)
			fmt.Fprintf(sb, "%s  )\n", indent)
		}
		fmt.Fprintf(sb, "%s)\n", indent)
	default:
		fmt.Fprintf(sb, "%s%s\n", indent, ExprString(node))
	}
}

func dumpBody(sb *strings.Builder, body []*Node, depth int) {
	for _, s := range body {
		dumpStmt(sb, s, depth)
	}
}
