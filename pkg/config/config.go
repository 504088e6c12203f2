package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Feature int

const (
	FeatFold Feature = iota
	FeatPrune
	FeatCount
)

type Warning int

const (
	WarnShadow Warning = iota
	WarnConstCond
	WarnDivZero
	WarnEmptySeq
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
	OptLevel   string
	MaxSteps   int
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
		OptLevel:   "O2",
	}

	features := map[Feature]Info{
		FeatFold:  {"fold", true, "Fold arithmetic on two constants into a plain assignment."},
		FeatPrune: {"prune", true, "Drop assignments to temporaries that are never read."},
	}

	warnings := map[Warning]Info{
		WarnShadow:    {"shadow", false, "Warn when a declaration hides a name from an enclosing scope."},
		WarnConstCond: {"const-cond", false, "Warn when an 'if' condition is a literal."},
		WarnDivZero:   {"div-zero", true, "Warn on division or modulo by a literal zero."},
		WarnEmptySeq:  {"empty-seq", true, "Warn when a sequence built from literals is always empty."},
		WarnExtra:     {"extra", true, "Enable extra miscellaneous warnings."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}
	return cfg
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// ApplyOptLevel switches the optimizer passes on or off as a group.
// O0 runs nothing, O1 folds, O2 folds then prunes.
func (c *Config) ApplyOptLevel(level string) error {
	level = strings.TrimPrefix(level, "-")
	if !strings.HasPrefix(level, "O") {
		level = "O" + level
	}

	var fold, prune bool
	switch level {
	case "O0":
	case "O1":
		fold = true
	case "O2":
		fold, prune = true, true
	default:
		return fmt.Errorf("unsupported optimization level '%s'. Supported: 'O0', 'O1', 'O2'", level)
	}
	c.OptLevel = level
	c.SetFeature(FeatFold, fold)
	c.SetFeature(FeatPrune, prune)
	return nil
}

// ApplyFlag handles one -F<feature>, -Fno-<feature>, -W<warning>,
// -Wno-<warning> or -Wall flag. Unknown names are reported as errors.
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		isWarning = true
		trimmed = strings.TrimPrefix(trimmed, "W")
	case strings.HasPrefix(trimmed, "F"):
		trimmed = strings.TrimPrefix(trimmed, "F")
	default:
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}

	enable := !strings.HasPrefix(trimmed, "no-")
	name := strings.TrimPrefix(trimmed, "no-")

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return nil
	}

	if isWarning {
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enable)
		return nil
	}
	f, ok := c.FeatureMap[name]
	if !ok {
		return fmt.Errorf("unknown feature '%s'", name)
	}
	c.SetFeature(f, enable)
	return nil
}

// fileConfig is the YAML shape accepted by LoadFile.
type fileConfig struct {
	Opt      string          `yaml:"opt"`
	MaxSteps int             `yaml:"max_steps"`
	Features map[string]bool `yaml:"features"`
	Warnings map[string]bool `yaml:"warnings"`
}

// LoadFile reads a YAML config file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.MergeFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return c.Merge(data)
}

// Merge applies YAML settings. The optimization level is applied first so
// that explicit feature entries override it.
func (c *Config) Merge(data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if fc.Opt != "" {
		if err := c.ApplyOptLevel(fc.Opt); err != nil {
			return err
		}
	}
	if fc.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative, got %d", fc.MaxSteps)
	}
	if fc.MaxSteps > 0 {
		c.MaxSteps = fc.MaxSteps
	}
	for name, on := range fc.Features {
		f, ok := c.FeatureMap[name]
		if !ok {
			return fmt.Errorf("unknown feature '%s' in config", name)
		}
		c.SetFeature(f, on)
	}
	for name, on := range fc.Warnings {
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s' in config", name)
		}
		c.SetWarning(w, on)
	}
	return nil
}
