package ir

import (
	"errors"
	"fmt"
	"strings"
)

type Op int

const (
	OpAssign Op = iota
	OpPrint
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpCLt
	OpCLe
	OpCGt
	OpCGe
	OpCEq
	OpCNeq
	OpAnd
	OpOr
	OpNeg
	OpFib
	OpRange
	OpJz
	OpJmp
	OpLabel
	// Loop bookkeeping: counter increment and bound test.
	OpStep
	OpBound
)

var opNames = [...]string{
	OpAssign: "assign", OpPrint: "print",
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpRem: "%",
	OpCLt: "<", OpCLe: "<=", OpCGt: ">", OpCGe: ">=", OpCEq: "==", OpCNeq: "!=",
	OpAnd: "&&", OpOr: "||",
	OpNeg: "neg", OpFib: "fib", OpRange: "range",
	OpJz: "jz", OpJmp: "jmp", OpLabel: "label",
	OpStep: "add", OpBound: "le",
}

func (op Op) String() string {
	if op >= 0 && int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// IsArith reports whether op is one the folder may evaluate.
func IsArith(op Op) bool { return op >= OpAdd && op <= OpRem }

// IsBinary reports whether op stores Eval(Args[0], Args[1]) into Result.
func IsBinary(op Op) bool {
	return (op >= OpAdd && op <= OpOr) || op == OpStep || op == OpBound
}

type Value interface {
	isValue()
	String() string
}

// Const is an integer literal operand.
type Const struct{ Value int64 }

// Global is a user-declared variable.
type Global struct{ Name string }

// Temporary is a compiler-generated intermediate. It can never share a
// name with a Global.
type Temporary struct{ ID int }

type Label struct{ ID int }

func (c *Const) isValue()     {}
func (g *Global) isValue()    {}
func (t *Temporary) isValue() {}
func (l *Label) isValue()     {}

func (c *Const) String() string     { return fmt.Sprintf("%d", c.Value) }
func (g *Global) String() string    { return g.Name }
func (t *Temporary) String() string { return fmt.Sprintf("%%t%d", t.ID) }
func (l *Label) String() string     { return fmt.Sprintf("L%d", l.ID) }

// Instruction is one IR operation. Result is nil for print, jz, jmp and
// label; their operands are all in Args.
type Instruction struct {
	Op     Op
	Result Value
	Args   []Value
}

func (in *Instruction) String() string {
	if in.Op == OpLabel && len(in.Args) == 1 {
		return in.Args[0].String() + ":"
	}
	var sb strings.Builder
	if in.Result != nil {
		fmt.Fprintf(&sb, "%s = ", in.Result)
	}
	sb.WriteString(in.Op.String())
	for i, arg := range in.Args {
		if i == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.String())
	}
	return sb.String()
}

// Format renders a listing, one instruction per line, labels flush left.
func Format(code []*Instruction) string {
	var sb strings.Builder
	for _, in := range code {
		if in.Op != OpLabel {
			sb.WriteString("    ")
		}
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

var ErrDivByZero = errors.New("integer division by zero")

// Eval computes a binary op. Division and modulo floor toward negative
// infinity; comparisons and logic yield 1 or 0. Overflow wraps.
func Eval(op Op, a, b int64) (int64, error) {
	switch op {
	case OpAdd, OpStep:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	case OpDiv:
		if b == 0 {
			return 0, ErrDivByZero
		}
		q := a / b
		if a%b != 0 && (a < 0) != (b < 0) {
			q--
		}
		return q, nil
	case OpRem:
		if b == 0 {
			return 0, ErrDivByZero
		}
		r := a % b
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
		return r, nil
	case OpCLt:
		return boolInt(a < b), nil
	case OpCLe, OpBound:
		return boolInt(a <= b), nil
	case OpCGt:
		return boolInt(a > b), nil
	case OpCGe:
		return boolInt(a >= b), nil
	case OpCEq:
		return boolInt(a == b), nil
	case OpCNeq:
		return boolInt(a != b), nil
	case OpAnd:
		return boolInt(a != 0 && b != 0), nil
	case OpOr:
		return boolInt(a != 0 || b != 0), nil
	}
	return 0, fmt.Errorf("'%s' is not a binary operation", op)
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
