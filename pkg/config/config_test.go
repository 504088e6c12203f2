package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xplshn/mpl/pkg/cli"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	if cfg.OptLevel != "O2" || cfg.MaxSteps != 0 {
		t.Errorf("unexpected defaults: opt=%s max-steps=%d", cfg.OptLevel, cfg.MaxSteps)
	}
	if !cfg.IsFeatureEnabled(FeatFold) || !cfg.IsFeatureEnabled(FeatPrune) {
		t.Error("both passes should be on by default")
	}
	if cfg.IsWarningEnabled(WarnShadow) || !cfg.IsWarningEnabled(WarnDivZero) {
		t.Error("unexpected default warning set")
	}
	for i := Warning(0); i < WarnCount; i++ {
		if cfg.WarningMap[cfg.Warnings[i].Name] != i {
			t.Errorf("warning %d is not reachable by name", i)
		}
	}
}

func TestApplyOptLevel(t *testing.T) {
	tests := []struct {
		in          string
		want        string
		fold, prune bool
	}{
		{"O0", "O0", false, false},
		{"1", "O1", true, false},
		{"-O2", "O2", true, true},
	}
	for _, tt := range tests {
		cfg := NewConfig()
		if err := cfg.ApplyOptLevel(tt.in); err != nil {
			t.Fatalf("ApplyOptLevel(%q): %v", tt.in, err)
		}
		if cfg.OptLevel != tt.want || cfg.IsFeatureEnabled(FeatFold) != tt.fold || cfg.IsFeatureEnabled(FeatPrune) != tt.prune {
			t.Errorf("ApplyOptLevel(%q): level=%s fold=%v prune=%v", tt.in, cfg.OptLevel,
				cfg.IsFeatureEnabled(FeatFold), cfg.IsFeatureEnabled(FeatPrune))
		}
	}
	if err := NewConfig().ApplyOptLevel("O3"); err == nil {
		t.Error("expected an error for O3")
	}
}

func TestApplyFlag(t *testing.T) {
	cfg := NewConfig()
	for _, flag := range []string{"-Wshadow", "-Wno-div-zero", "-Fno-prune"} {
		if err := cfg.ApplyFlag(flag); err != nil {
			t.Fatalf("ApplyFlag(%s): %v", flag, err)
		}
	}
	if !cfg.IsWarningEnabled(WarnShadow) || cfg.IsWarningEnabled(WarnDivZero) || cfg.IsFeatureEnabled(FeatPrune) {
		t.Error("flags were not applied")
	}

	if err := cfg.ApplyFlag("-Wall"); err != nil {
		t.Fatal(err)
	}
	for i := Warning(0); i < WarnCount; i++ {
		if !cfg.IsWarningEnabled(i) {
			t.Errorf("-Wall left %s disabled", cfg.Warnings[i].Name)
		}
	}
	if err := cfg.ApplyFlag("-Wno-all"); err != nil {
		t.Fatal(err)
	}
	if cfg.IsWarningEnabled(WarnEmptySeq) {
		t.Error("-Wno-all left empty-seq enabled")
	}

	tests := []struct{ flag, msg string }{
		{"-Wbogus", "unknown warning 'bogus'"},
		{"-Fall", "unknown feature 'all'"},
		{"-X", "unrecognized flag '-X'"},
	}
	for _, tt := range tests {
		if err := cfg.ApplyFlag(tt.flag); err == nil || err.Error() != tt.msg {
			t.Errorf("ApplyFlag(%s) = %v, want %q", tt.flag, err, tt.msg)
		}
	}
}

func TestMerge(t *testing.T) {
	cfg := NewConfig()
	data := "opt: O1\nmax_steps: 500\nfeatures:\n  prune: true\nwarnings:\n  shadow: true\n  extra: false\n"
	if err := cfg.Merge([]byte(data)); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if cfg.OptLevel != "O1" || cfg.MaxSteps != 500 {
		t.Errorf("opt=%s max-steps=%d", cfg.OptLevel, cfg.MaxSteps)
	}
	if !cfg.IsFeatureEnabled(FeatPrune) {
		t.Error("explicit feature entry should override the level")
	}
	if !cfg.IsWarningEnabled(WarnShadow) || cfg.IsWarningEnabled(WarnExtra) {
		t.Error("warning entries were not applied")
	}
}

func TestMergeErrors(t *testing.T) {
	tests := []struct{ data, msg string }{
		{"opt: O9", "unsupported optimization level"},
		{"max_steps: -1", "must not be negative"},
		{"features:\n  inline: true", "unknown feature 'inline'"},
		{"warnings:\n  loud: true", "unknown warning 'loud'"},
		{"opt: [", "parse config"},
	}
	for _, tt := range tests {
		err := NewConfig().Merge([]byte(tt.data))
		if err == nil || !strings.Contains(err.Error(), tt.msg) {
			t.Errorf("Merge(%q) = %v, want error containing %q", tt.data, err, tt.msg)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mpl.yaml")
	if err := os.WriteFile(path, []byte("opt: O0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.IsFeatureEnabled(FeatFold) {
		t.Error("O0 from file should disable folding")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestFlagGroups(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.ApplyOptLevel("O0"); err != nil {
		t.Fatal(err)
	}
	fs := cli.NewFlagSet("mplc")
	warns, feats := cfg.SetupFlagGroups(fs)
	if err := fs.Parse([]string{"-Wshadow", "-Wno-empty-seq", "-Ffold"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	cfg.ApplyFlagGroups(fs, warns, feats)

	if !cfg.IsWarningEnabled(WarnShadow) || cfg.IsWarningEnabled(WarnEmptySeq) {
		t.Error("warning group flags were not applied")
	}
	if !cfg.IsFeatureEnabled(FeatFold) {
		t.Error("-Ffold was not applied")
	}
	if cfg.IsFeatureEnabled(FeatPrune) {
		t.Error("an untouched feature lost its O0 setting")
	}
}
