package vm

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/xplshn/mpl/pkg/ir"
)

// MaxSeqLen bounds the length of a single fib or range result.
const MaxSeqLen = 1 << 24

// Value is an integer or, when IsSeq is set, a sequence of integers.
type Value struct {
	Int   int64
	Seq   []int64
	IsSeq bool
}

func Int(v int64) Value     { return Value{Int: v} }
func Seq(vs ...int64) Value { return Value{Seq: vs, IsSeq: true} }

func (v Value) String() string {
	if !v.IsSeq {
		return strconv.FormatInt(v.Int, 10)
	}
	parts := make([]string, len(v.Seq))
	for i, x := range v.Seq {
		parts[i] = strconv.FormatInt(x, 10)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Error is a runtime fault raised while executing an instruction.
type Error struct {
	PC    int
	Instr string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("runtime error at instruction %d (%s): %s", e.PC, e.Instr, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

type Result struct {
	Output []string
	// Vars holds user-declared variables only.
	Vars  map[string]Value
	Steps int
}

// FormatVars renders the store as name=value lines sorted by name.
func (r *Result) FormatVars() string {
	names := make([]string, 0, len(r.Vars))
	for name := range r.Vars {
		names = append(names, name)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "%s=%s\n", name, r.Vars[name])
	}
	return sb.String()
}

type Option func(*VM)

// WithOutput streams every printed line to w as it is produced.
func WithOutput(w io.Writer) Option { return func(m *VM) { m.out = w } }

// WithMaxSteps faults a run once it has executed n instructions. Zero means
// no limit.
func WithMaxSteps(n int) Option { return func(m *VM) { m.maxSteps = n } }

// VM executes one listing. Create a new one per run.
type VM struct {
	code     []*ir.Instruction
	labels   map[int]int
	vars     map[string]Value
	temps    map[int]Value
	pc       int
	out      io.Writer
	maxSteps int
	result   *Result
}

func New(code []*ir.Instruction, opts ...Option) *VM {
	m := &VM{
		code:   code,
		labels: make(map[int]int),
		vars:   make(map[string]Value),
		temps:  make(map[int]Value),
		result: &Result{},
	}
	for _, opt := range opts {
		opt(m)
	}
	for i, in := range code {
		if in.Op == ir.OpLabel && len(in.Args) == 1 {
			if l, ok := in.Args[0].(*ir.Label); ok {
				m.labels[l.ID] = i
			}
		}
	}
	return m
}

// Run executes code until the program counter passes the end.
func Run(code []*ir.Instruction, opts ...Option) (*Result, error) {
	return New(code, opts...).Run()
}

func (m *VM) Run() (*Result, error) {
	for m.pc < len(m.code) {
		if m.maxSteps > 0 && m.result.Steps >= m.maxSteps {
			return nil, m.fault(nil, "step limit of %d exceeded", m.maxSteps)
		}
		m.result.Steps++
		if err := m.step(m.code[m.pc]); err != nil {
			return nil, err
		}
	}
	m.result.Vars = m.vars
	return m.result, nil
}

func (m *VM) fault(err error, format string, args ...interface{}) *Error {
	instr := ""
	if m.pc < len(m.code) {
		instr = m.code[m.pc].String()
	}
	return &Error{PC: m.pc, Instr: instr, Msg: fmt.Sprintf(format, args...), Err: err}
}

func (m *VM) get(v ir.Value) (Value, error) {
	switch v := v.(type) {
	case *ir.Const:
		return Int(v.Value), nil
	case *ir.Global:
		return m.vars[v.Name], nil
	case *ir.Temporary:
		return m.temps[v.ID], nil
	}
	return Value{}, m.fault(nil, "cannot read operand %s", v)
}

func (m *VM) getInt(v ir.Value) (int64, error) {
	val, err := m.get(v)
	if err != nil {
		return 0, err
	}
	if val.IsSeq {
		return 0, m.fault(nil, "%s holds a sequence, not an int", v)
	}
	return val.Int, nil
}

func (m *VM) set(dst ir.Value, val Value) error {
	switch d := dst.(type) {
	case *ir.Global:
		m.vars[d.Name] = val
	case *ir.Temporary:
		m.temps[d.ID] = val
	default:
		return m.fault(nil, "cannot store into %v", dst)
	}
	return nil
}

// jump moves to the label's index. An unknown label leaves pc where it is.
func (m *VM) jump(target ir.Value) {
	if l, ok := target.(*ir.Label); ok {
		if idx, ok := m.labels[l.ID]; ok {
			m.pc = idx
		}
	}
}

func (m *VM) arity(in *ir.Instruction, n int, needResult bool) error {
	if len(in.Args) != n || (needResult && in.Result == nil) {
		return m.fault(nil, "malformed '%s' instruction", in.Op)
	}
	return nil
}

func (m *VM) step(in *ir.Instruction) error {
	switch {
	case ir.IsBinary(in.Op):
		if err := m.arity(in, 2, true); err != nil {
			return err
		}
		a, err := m.getInt(in.Args[0])
		if err != nil {
			return err
		}
		b, err := m.getInt(in.Args[1])
		if err != nil {
			return err
		}
		v, err := ir.Eval(in.Op, a, b)
		if err != nil {
			return m.fault(err, "%v", err)
		}
		if err := m.set(in.Result, Int(v)); err != nil {
			return err
		}

	case in.Op == ir.OpAssign:
		if err := m.arity(in, 1, true); err != nil {
			return err
		}
		v, err := m.get(in.Args[0])
		if err != nil {
			return err
		}
		if err := m.set(in.Result, v); err != nil {
			return err
		}

	case in.Op == ir.OpPrint:
		if err := m.arity(in, 1, false); err != nil {
			return err
		}
		v, err := m.get(in.Args[0])
		if err != nil {
			return err
		}
		m.print(v.String())

	case in.Op == ir.OpNeg:
		if err := m.arity(in, 1, true); err != nil {
			return err
		}
		a, err := m.getInt(in.Args[0])
		if err != nil {
			return err
		}
		if err := m.set(in.Result, Int(-a)); err != nil {
			return err
		}

	case in.Op == ir.OpFib:
		if err := m.arity(in, 1, true); err != nil {
			return err
		}
		n, err := m.getInt(in.Args[0])
		if err != nil {
			return err
		}
		if n > MaxSeqLen {
			return m.fault(nil, "fibonacci(%d) exceeds the sequence limit of %d", n, MaxSeqLen)
		}
		if err := m.set(in.Result, Seq(fibonacci(n)...)); err != nil {
			return err
		}

	case in.Op == ir.OpRange:
		if err := m.arity(in, 2, true); err != nil {
			return err
		}
		s, err := m.getInt(in.Args[0])
		if err != nil {
			return err
		}
		e, err := m.getInt(in.Args[1])
		if err != nil {
			return err
		}
		if e >= s && uint64(e-s) >= MaxSeqLen {
			return m.fault(nil, "range(%d, %d) exceeds the sequence limit of %d", s, e, MaxSeqLen)
		}
		if err := m.set(in.Result, Seq(inclusiveRange(s, e)...)); err != nil {
			return err
		}

	case in.Op == ir.OpJz:
		if err := m.arity(in, 2, false); err != nil {
			return err
		}
		c, err := m.getInt(in.Args[0])
		if err != nil {
			return err
		}
		if c == 0 {
			m.jump(in.Args[1])
			return nil
		}

	case in.Op == ir.OpJmp:
		if err := m.arity(in, 1, false); err != nil {
			return err
		}
		m.jump(in.Args[0])
		return nil

	case in.Op == ir.OpLabel:

	default:
		return m.fault(nil, "unknown op '%s'", in.Op)
	}
	m.pc++
	return nil
}

func (m *VM) print(line string) {
	m.result.Output = append(m.result.Output, line)
	if m.out != nil {
		fmt.Fprintln(m.out, line)
	}
}

// fibonacci returns the first n Fibonacci numbers starting 0, 1.
func fibonacci(n int64) []int64 {
	if n <= 0 {
		return []int64{}
	}
	seq := make([]int64, n)
	for i := int64(1); i < n; i++ {
		if i == 1 {
			seq[i] = 1
			continue
		}
		seq[i] = seq[i-1] + seq[i-2]
	}
	return seq
}

func inclusiveRange(start, end int64) []int64 {
	if start > end {
		return []int64{}
	}
	seq := make([]int64, 0, end-start+1)
	for v := start; ; v++ {
		seq = append(seq, v)
		if v == end {
			break
		}
	}
	return seq
}
