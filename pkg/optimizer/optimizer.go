// Package optimizer rewrites IR listings without changing what they print
// or the final values of user variables.
package optimizer

import (
	"github.com/xplshn/mpl/pkg/config"
	"github.com/xplshn/mpl/pkg/ir"
)

// Optimize runs the passes enabled in cfg, fold before prune.
func Optimize(code []*ir.Instruction, cfg *config.Config) []*ir.Instruction {
	if cfg.IsFeatureEnabled(config.FeatFold) {
		code = Fold(code)
	}
	if cfg.IsFeatureEnabled(config.FeatPrune) {
		code = Prune(code)
	}
	return code
}

// Fold replaces arithmetic on two constants with an assign of the result.
// Division or modulo by a constant zero is left for the VM to report.
func Fold(code []*ir.Instruction) []*ir.Instruction {
	out := make([]*ir.Instruction, 0, len(code))
	for _, in := range code {
		if folded, ok := foldInstr(in); ok {
			in = folded
		}
		out = append(out, in)
	}
	return out
}

func foldInstr(in *ir.Instruction) (*ir.Instruction, bool) {
	if !ir.IsArith(in.Op) || len(in.Args) != 2 {
		return nil, false
	}
	a, aok := in.Args[0].(*ir.Const)
	b, bok := in.Args[1].(*ir.Const)
	if !aok || !bok {
		return nil, false
	}
	v, err := ir.Eval(in.Op, a.Value, b.Value)
	if err != nil {
		return nil, false
	}
	return &ir.Instruction{Op: ir.OpAssign, Result: in.Result, Args: []ir.Value{&ir.Const{Value: v}}}, true
}

// Prune drops assigns into temporaries that no instruction reads. The
// read set is taken once from the input: a temporary read only by a dropped
// assign survives this call.
func Prune(code []*ir.Instruction) []*ir.Instruction {
	used := make(map[int]bool)
	for _, in := range code {
		for _, arg := range in.Args {
			if t, ok := arg.(*ir.Temporary); ok {
				used[t.ID] = true
			}
		}
	}

	out := make([]*ir.Instruction, 0, len(code))
	for _, in := range code {
		if t, ok := in.Result.(*ir.Temporary); ok && in.Op == ir.OpAssign && !used[t.ID] {
			continue
		}
		out = append(out, in)
	}
	return out
}
