package codegen

import (
	"fmt"

	"github.com/xplshn/mpl/pkg/ast"
	"github.com/xplshn/mpl/pkg/ir"
	"github.com/xplshn/mpl/pkg/token"
)

// Context holds the state of one lowering pass. Counters start at zero for
// every Context, so two programs never share temporaries or labels.
type Context struct {
	code       []*ir.Instruction
	tempCount  int
	labelCount int
}

func NewContext() *Context { return &Context{} }

// Generate lowers a checked program with a fresh Context.
func Generate(root *ast.Node) []*ir.Instruction {
	return NewContext().GenerateIR(root)
}

func (ctx *Context) GenerateIR(root *ast.Node) []*ir.Instruction {
	d := root.Data.(ast.ProgramNode)
	ctx.codegenBody(d.Body)
	return ctx.code
}

func (ctx *Context) newTemp() *ir.Temporary {
	t := &ir.Temporary{ID: ctx.tempCount}
	ctx.tempCount++
	return t
}

func (ctx *Context) newLabel() *ir.Label {
	l := &ir.Label{ID: ctx.labelCount}
	ctx.labelCount++
	return l
}

func (ctx *Context) addInstr(op ir.Op, result ir.Value, args ...ir.Value) {
	ctx.code = append(ctx.code, &ir.Instruction{Op: op, Result: result, Args: args})
}

func (ctx *Context) placeLabel(l *ir.Label) { ctx.addInstr(ir.OpLabel, nil, l) }

func (ctx *Context) codegenBody(stmts []*ast.Node) {
	for _, stmt := range stmts {
		ctx.codegenStmt(stmt)
	}
}

func (ctx *Context) codegenStmt(node *ast.Node) {
	switch d := node.Data.(type) {
	case ast.LetNode:
		ctx.addInstr(ir.OpAssign, &ir.Global{Name: d.Name}, ctx.codegenExpr(d.Value))

	case ast.SeqDeclNode:
		ctx.addInstr(ir.OpAssign, &ir.Global{Name: d.Name}, ctx.codegenExpr(d.Value))

	case ast.PrintNode:
		ctx.addInstr(ir.OpPrint, nil, ctx.codegenExpr(d.Value))

	case ast.LoopNode:
		ctx.codegenLoop(d)

	case ast.IfNode:
		ctx.codegenIf(d)

	default:
		panic(fmt.Sprintf("codegen: unexpected statement %s", node.Type))
	}
}

// codegenLoop counts var from start up to and including end. Both bounds are
// lowered before the counter is initialised.
func (ctx *Context) codegenLoop(d ast.LoopNode) {
	counter := &ir.Global{Name: d.Var}
	start := ctx.codegenExpr(d.Start)
	end := ctx.codegenExpr(d.End)
	topL, bottomL := ctx.newLabel(), ctx.newLabel()

	ctx.addInstr(ir.OpAssign, counter, start)
	ctx.placeLabel(topL)
	cond := ctx.newTemp()
	ctx.addInstr(ir.OpBound, cond, counter, end)
	ctx.addInstr(ir.OpJz, nil, cond, bottomL)
	ctx.codegenBody(d.Body)
	ctx.addInstr(ir.OpStep, counter, counter, &ir.Const{Value: 1})
	ctx.addInstr(ir.OpJmp, nil, topL)
	ctx.placeLabel(bottomL)
}

// codegenIf always places the else label, even for an empty else branch.
func (ctx *Context) codegenIf(d ast.IfNode) {
	cond := ctx.codegenExpr(d.Cond)
	elseL, endL := ctx.newLabel(), ctx.newLabel()

	ctx.addInstr(ir.OpJz, nil, cond, elseL)
	ctx.codegenBody(d.ThenBody)
	ctx.addInstr(ir.OpJmp, nil, endL)
	ctx.placeLabel(elseL)
	ctx.codegenBody(d.ElseBody)
	ctx.placeLabel(endL)
}

func (ctx *Context) codegenExpr(node *ast.Node) ir.Value {
	switch d := node.Data.(type) {
	case ast.NumberNode:
		return &ir.Const{Value: d.Value}

	case ast.IdentNode:
		return &ir.Global{Name: d.Name}

	case ast.UnaryOpNode:
		val := ctx.codegenExpr(d.Expr)
		res := ctx.newTemp()
		ctx.addInstr(ir.OpNeg, res, val)
		return res

	case ast.BinaryOpNode:
		l := ctx.codegenExpr(d.Left)
		r := ctx.codegenExpr(d.Right)
		res := ctx.newTemp()
		ctx.addInstr(binaryOp(d.Op), res, l, r)
		return res

	case ast.SeqFibonacciNode:
		n := ctx.codegenExpr(d.N)
		res := ctx.newTemp()
		ctx.addInstr(ir.OpFib, res, n)
		return res

	case ast.SeqRangeNode:
		s := ctx.codegenExpr(d.Start)
		e := ctx.codegenExpr(d.End)
		res := ctx.newTemp()
		ctx.addInstr(ir.OpRange, res, s, e)
		return res
	}
	panic(fmt.Sprintf("codegen: unexpected expression %s", node.Type))
}

func binaryOp(op token.Type) ir.Op {
	switch op {
	case token.Plus:
		return ir.OpAdd
	case token.Minus:
		return ir.OpSub
	case token.Star:
		return ir.OpMul
	case token.Slash:
		return ir.OpDiv
	case token.Rem:
		return ir.OpRem
	case token.Lt:
		return ir.OpCLt
	case token.Lte:
		return ir.OpCLe
	case token.Gt:
		return ir.OpCGt
	case token.Gte:
		return ir.OpCGe
	case token.EqEq:
		return ir.OpCEq
	case token.Neq:
		return ir.OpCNeq
	case token.AndAnd:
		return ir.OpAnd
	case token.OrOr:
		return ir.OpOr
	}
	panic(fmt.Sprintf("codegen: unexpected binary operator %s", op))
}
