// Package compiler runs the whole pipeline once and keeps every
// intermediate artifact so callers can show them without recompiling.
package compiler

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/xplshn/mpl/pkg/ast"
	"github.com/xplshn/mpl/pkg/codegen"
	"github.com/xplshn/mpl/pkg/config"
	"github.com/xplshn/mpl/pkg/ir"
	"github.com/xplshn/mpl/pkg/lexer"
	"github.com/xplshn/mpl/pkg/optimizer"
	"github.com/xplshn/mpl/pkg/parser"
	"github.com/xplshn/mpl/pkg/typeChecker"
	"github.com/xplshn/mpl/pkg/util"
	"github.com/xplshn/mpl/pkg/vm"
)

// Artifacts accepted by Result.Artifact, in pipeline order.
var Artifacts = []string{"ast", "symbols", "ir", "folded-ir", "opt-ir"}

type Result struct {
	Source      string
	Fingerprint uint64
	AST         *ast.Node
	Symbols     []typeChecker.Symbol
	Globals     map[string]typeChecker.Symbol
	Warnings    []util.Diagnostic
	RawIR       []*ir.Instruction
	FoldedIR    []*ir.Instruction
	IR          []*ir.Instruction
	cfg         *config.Config
}

// Compile lexes, parses, checks, lowers and optimizes source. The error, if
// any, is the typed error of the first stage that failed.
func Compile(source string, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	root, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	report, err := typeChecker.Check(root, cfg)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Source:      source,
		Fingerprint: xxhash.Sum64String(source),
		AST:         root,
		Symbols:     report.Declared,
		Globals:     report.Globals,
		Warnings:    report.Warnings,
		cfg:         cfg,
	}
	res.RawIR = codegen.Generate(root)
	res.FoldedIR = res.RawIR
	if cfg.IsFeatureEnabled(config.FeatFold) {
		res.FoldedIR = optimizer.Fold(res.RawIR)
	}
	res.IR = res.FoldedIR
	if cfg.IsFeatureEnabled(config.FeatPrune) {
		res.IR = optimizer.Prune(res.FoldedIR)
	}
	return res, nil
}

// Execute runs the optimized listing. The configured step limit applies
// unless opts override it.
func (r *Result) Execute(opts ...vm.Option) (*vm.Result, error) {
	all := append([]vm.Option{vm.WithMaxSteps(r.cfg.MaxSteps)}, opts...)
	return vm.Run(r.IR, all...)
}

// Artifact renders one named artifact.
func (r *Result) Artifact(name string) (string, error) {
	switch name {
	case "ast":
		return ast.Dump(r.AST), nil
	case "symbols":
		return r.formatSymbols(), nil
	case "ir":
		return ir.Format(r.RawIR), nil
	case "folded-ir":
		return ir.Format(r.FoldedIR), nil
	case "opt-ir":
		return ir.Format(r.IR), nil
	}
	return "", fmt.Errorf("unknown artifact '%s' (want one of %s)", name, strings.Join(Artifacts, ", "))
}

func (r *Result) formatSymbols() string {
	var sb strings.Builder
	for _, sym := range r.Symbols {
		fmt.Fprintf(&sb, "%-12s %-4s depth=%d %d:%d\n", sym.Name, sym.Type, sym.Depth, sym.Tok.Line, sym.Tok.Column)
	}
	names := make([]string, 0, len(r.Globals))
	for name := range r.Globals {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(&sb, "globals: %s\n", strings.Join(names, ", "))
	return sb.String()
}

type ErrorKind string

const (
	KindNone     ErrorKind = ""
	KindLex      ErrorKind = "lex"
	KindParse    ErrorKind = "parse"
	KindSemantic ErrorKind = "semantic"
	KindRuntime  ErrorKind = "runtime"
	KindOther    ErrorKind = "other"
)

// Kind classifies an error returned by Compile or Execute.
func Kind(err error) ErrorKind {
	var (
		lexErr   *lexer.Error
		parseErr *parser.Error
		semErr   *typeChecker.Error
		vmErr    *vm.Error
	)
	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &lexErr):
		return KindLex
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &semErr):
		return KindSemantic
	case errors.As(err, &vmErr):
		return KindRuntime
	}
	return KindOther
}
