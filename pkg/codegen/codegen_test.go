package codegen

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/mpl/pkg/ir"
	"github.com/xplshn/mpl/pkg/parser"
)

func generate(t *testing.T, src string) []*ir.Instruction {
	t.Helper()
	root, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return Generate(root)
}

func listing(lines ...string) string { return strings.Join(lines, "\n") + "\n" }

func TestLowering(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "end to end",
			src:  "let n = 7\nseq s = fibonacci(n)\nprint s\nloop i from 0 to 3 {\n print i\n}",
			want: listing(
				"    n = assign 7",
				"    %t0 = fib n",
				"    s = assign %t0",
				"    print s",
				"    i = assign 0",
				"L0:",
				"    %t1 = le i, 3",
				"    jz %t1, L1",
				"    print i",
				"    i = add i, 1",
				"    jmp L0",
				"L1:",
			),
		},
		{
			name: "if else",
			src:  "let x = 2\nif x > 1 { print 1 } else { print 0 }",
			want: listing(
				"    x = assign 2",
				"    %t0 = > x, 1",
				"    jz %t0, L0",
				"    print 1",
				"    jmp L1",
				"L0:",
				"    print 0",
				"L1:",
			),
		},
		{
			name: "if without else keeps both labels",
			src:  "if 1 { print 1 }",
			want: listing(
				"    jz 1, L0",
				"    print 1",
				"    jmp L1",
				"L0:",
				"L1:",
			),
		},
		{
			name: "expression temporaries",
			src:  "let a = -(1 + 2) * 3",
			want: listing(
				"    %t0 = + 1, 2",
				"    %t1 = neg %t0",
				"    %t2 = * %t1, 3",
				"    a = assign %t2",
			),
		},
		{
			name: "range with computed bounds",
			src:  "let n = 4\nseq r = range(n - 1, n + 1)\nprint r",
			want: listing(
				"    n = assign 4",
				"    %t0 = - n, 1",
				"    %t1 = + n, 1",
				"    %t2 = range %t0, %t1",
				"    r = assign %t2",
				"    print r",
			),
		},
		{
			name: "loop bounds lowered before counter init",
			src:  "let n = 2\nloop i from n - 1 to n * 2 { }",
			want: listing(
				"    n = assign 2",
				"    %t0 = - n, 1",
				"    %t1 = * n, 2",
				"    i = assign %t0",
				"L0:",
				"    %t2 = le i, %t1",
				"    jz %t2, L1",
				"    i = add i, 1",
				"    jmp L0",
				"L1:",
			),
		},
		{
			name: "logic operators",
			src:  "print 1 && 0 || 1 != 2",
			want: listing(
				"    %t0 = && 1, 0",
				"    %t1 = != 1, 2",
				"    %t2 = || %t0, %t1",
				"    print %t2",
			),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ir.Format(generate(t, tt.src))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("IR mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLabelsResolve(t *testing.T) {
	src := "loop i from 1 to 3 {\n if i == 2 {\n  loop j from 1 to i { print j }\n } else {\n  print i\n }\n}"
	code := generate(t, src)

	placed := make(map[int]int)
	for _, in := range code {
		if in.Op == ir.OpLabel {
			placed[in.Args[0].(*ir.Label).ID]++
		}
	}
	for id, n := range placed {
		if n != 1 {
			t.Errorf("label L%d placed %d times", id, n)
		}
	}
	for _, in := range code {
		if in.Op != ir.OpJz && in.Op != ir.OpJmp {
			continue
		}
		target := in.Args[len(in.Args)-1].(*ir.Label)
		if placed[target.ID] != 1 {
			t.Errorf("%s jumps to unplaced label", in)
		}
	}
}

func TestFreshContextPerRun(t *testing.T) {
	src := "let a = 1 + 2\nif a { print a }"
	first := ir.Format(generate(t, src))
	generate(t, "loop i from 1 to 9 { print i * i }")
	second := ir.Format(generate(t, src))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("generation is not isolated (-first +second):\n%s", diff)
	}
}
