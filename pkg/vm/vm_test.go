package vm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/mpl/pkg/codegen"
	"github.com/xplshn/mpl/pkg/ir"
	"github.com/xplshn/mpl/pkg/optimizer"
	"github.com/xplshn/mpl/pkg/parser"
)

func lower(t *testing.T, src string) []*ir.Instruction {
	t.Helper()
	root, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return codegen.Generate(root)
}

func run(t *testing.T, src string) *Result {
	t.Helper()
	res, err := Run(lower(t, src))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return res
}

func TestEndToEnd(t *testing.T) {
	res := run(t, "let n = 7\nseq s = fibonacci(n)\nprint s\nloop i from 0 to 3 {\n  print i\n}\n")
	wantOut := []string{"[0, 1, 1, 2, 3, 5, 8]", "0", "1", "2", "3"}
	if diff := cmp.Diff(wantOut, res.Output); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	wantVars := map[string]Value{
		"n": Int(7),
		"s": Seq(0, 1, 1, 2, 3, 5, 8),
		"i": Int(4),
	}
	if diff := cmp.Diff(wantVars, res.Vars); diff != "" {
		t.Errorf("vars mismatch (-want +got):\n%s", diff)
	}
}

func TestSequences(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"print fibonacci(0)", "[]"},
		{"print fibonacci(1)", "[0]"},
		{"print fibonacci(2)", "[0, 1]"},
		{"print fibonacci(5)", "[0, 1, 1, 2, 3]"},
		{"print fibonacci(-3)", "[]"},
		{"print range(3, 1)", "[]"},
		{"print range(2, 2)", "[2]"},
		{"print range(-2, 1)", "[-2, -1, 0, 1]"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			src := "seq s = " + tt.src[len("print "):] + "\nprint s"
			res := run(t, src)
			if diff := cmp.Diff([]string{tt.want}, res.Output); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"(0 - 7) / 2", "-4"},
		{"(0 - 7) % 2", "1"},
		{"-7 / 2", "-4"},
		{"-7 % 2", "1"},
		{"7 / 2", "3"},
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"10 - 4 - 3", "3"},
		{"--5", "5"},
		{"3 < 4", "1"},
		{"4 <= 3", "0"},
		{"3 == 3 && 2 != 2", "0"},
		{"0 || 7", "1"},
		{"true + true", "2"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			res := run(t, "print "+tt.expr)
			if diff := cmp.Diff([]string{tt.want}, res.Output); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestControlFlow(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"if true", "if 1 { print 1 } else { print 0 }", []string{"1"}},
		{"if false", "if 0 { print 1 } else { print 0 }", []string{"0"}},
		{"if without else", "if 0 { print 1 }\nprint 2", []string{"2"}},
		{"non-zero is true", "if 0 - 5 { print 9 }", []string{"9"}},
		{"empty loop range", "loop i from 3 to 1 { print i }\nprint 7", []string{"7"}},
		{"single iteration", "loop i from 2 to 2 { print i }", []string{"2"}},
		{"nested loops", "loop i from 1 to 2 {\n loop j from 1 to i {\n  print i * 10 + j\n }\n}", []string{"11", "21", "22"}},
		{"loop with branches", "loop i from 1 to 4 {\n if i % 2 == 0 { print i } else { print 0 - i }\n}", []string{"-1", "2", "-3", "4"}},
		{"end bound read each pass", "let n = 3\nloop i from 1 to n {\n print i\n}", []string{"1", "2", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, tt.src)
			if diff := cmp.Diff(tt.want, res.Output); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestShadowingSharesStorage(t *testing.T) {
	res := run(t, "let x = 1\nif 1 {\n let x = 2\n}\nprint x")
	if diff := cmp.Diff([]string{"2"}, res.Output); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestOptimizationPreservesBehaviour(t *testing.T) {
	programs := []string{
		"let n = 7\nseq s = fibonacci(n)\nprint s\nloop i from 0 to 3 {\n print i\n}",
		"let a = 2 * 3 + 4\nlet b = a % 4\nif b == 2 { print a } else { print b }",
		"loop i from 1 to 10 {\n if i % 3 == 0 || i == 7 {\n  print i * i - (4 / 2)\n }\n}\nprint -(3 - 10) / 2",
		"seq r = range(10 - 12, 3 * 1)\nprint r\nlet x = (1 + 2) * (3 + 4) - 5 / 2\nprint x % -4",
		"let k = 0 - 7\nprint k / 2\nprint k % 2\nif k < 0 && 1 { print 1 }",
	}
	for _, src := range programs {
		raw := lower(t, src)
		before, err := Run(raw)
		if err != nil {
			t.Fatalf("raw run failed: %v", err)
		}
		after, err := Run(optimizer.Prune(optimizer.Fold(raw)))
		if err != nil {
			t.Fatalf("optimized run failed: %v", err)
		}
		if diff := cmp.Diff(before.Output, after.Output); diff != "" {
			t.Errorf("output changed for %q:\n%s", src, diff)
		}
		if diff := cmp.Diff(before.Vars, after.Vars); diff != "" {
			t.Errorf("vars changed for %q:\n%s", src, diff)
		}
	}
}

func TestRuntimeFaults(t *testing.T) {
	tests := []struct {
		name string
		src  string
		is   error
	}{
		{"division by zero", "let z = 0\nprint 5 / z", ir.ErrDivByZero},
		{"modulo by zero", "print 5 % (1 - 1)", ir.ErrDivByZero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(lower(t, tt.src))
			var vmErr *Error
			if !errors.As(err, &vmErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if !errors.Is(err, tt.is) {
				t.Errorf("expected %v in chain, got %v", tt.is, err)
			}
		})
	}
}

func TestSeqArithmeticFaults(t *testing.T) {
	s := &ir.Global{Name: "s"}
	code := []*ir.Instruction{
		{Op: ir.OpRange, Result: s, Args: []ir.Value{&ir.Const{Value: 1}, &ir.Const{Value: 2}}},
		{Op: ir.OpAdd, Result: &ir.Temporary{ID: 0}, Args: []ir.Value{s, &ir.Const{Value: 1}}},
	}
	_, err := Run(code)
	var vmErr *Error
	if !errors.As(err, &vmErr) || vmErr.PC != 1 {
		t.Fatalf("expected fault at instruction 1, got %v", err)
	}
}

func TestLenientDefaults(t *testing.T) {
	// Unassigned names read as zero.
	code := []*ir.Instruction{
		{Op: ir.OpPrint, Args: []ir.Value{&ir.Global{Name: "ghost"}}},
		{Op: ir.OpPrint, Args: []ir.Value{&ir.Temporary{ID: 42}}},
	}
	res, err := Run(code)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if diff := cmp.Diff([]string{"0", "0"}, res.Output); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	// A jump to an unplaced label never advances.
	spin := []*ir.Instruction{
		{Op: ir.OpJmp, Args: []ir.Value{&ir.Label{ID: 99}}},
		{Op: ir.OpPrint, Args: []ir.Value{&ir.Const{Value: 1}}},
	}
	_, err = Run(spin, WithMaxSteps(50))
	var vmErr *Error
	if !errors.As(err, &vmErr) || vmErr.PC != 0 {
		t.Fatalf("expected step-limit fault at instruction 0, got %v", err)
	}
}

func TestStepLimit(t *testing.T) {
	code := lower(t, "loop i from 1 to 1000 { print i }")
	if _, err := Run(code, WithMaxSteps(100)); err == nil {
		t.Fatal("expected the step limit to trip")
	}
	res, err := Run(lower(t, "print 1\nprint 2"), WithMaxSteps(2))
	if err != nil {
		t.Fatalf("a program within the limit failed: %v", err)
	}
	if res.Steps != 2 {
		t.Errorf("steps = %d, want 2", res.Steps)
	}
}

func TestOutputStreaming(t *testing.T) {
	var buf bytes.Buffer
	res, err := Run(lower(t, "print 1\nseq r = range(1, 3)\nprint r"), WithOutput(&buf))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got, want := buf.String(), "1\n[1, 2, 3]\n"; got != want {
		t.Errorf("streamed %q, want %q", got, want)
	}
	if len(res.Output) != 2 {
		t.Errorf("collected %d lines, want 2", len(res.Output))
	}
}

func TestVarsExcludeTemporaries(t *testing.T) {
	res := run(t, "let a = 1 + 2\nseq s = fibonacci(3)")
	want := "a=3\ns=[0, 1, 1]\n"
	if got := res.FormatVars(); got != want {
		t.Errorf("FormatVars = %q, want %q", got, want)
	}
}
