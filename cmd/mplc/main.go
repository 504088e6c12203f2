package main

import (
	"fmt"
	"io"
	"os"

	"github.com/xplshn/mpl/pkg/cli"
	"github.com/xplshn/mpl/pkg/compiler"
	"github.com/xplshn/mpl/pkg/config"
	"github.com/xplshn/mpl/pkg/util"
	"github.com/xplshn/mpl/pkg/vm"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitSemantic = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configFile string
	optLevel   string
	emit       []string
	extraWarns []string
	extraFeats []string
	maxSteps   int
	showVars   bool
	noRun      bool
	verbose    bool
}

func run(args []string, stdout, stderr io.Writer) int {
	app := cli.NewApp("mplc")
	app.Synopsis = "[options] <file.mpl>"
	app.Description = "Compiles and runs a Mini Pattern Language program on the MPL virtual machine."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/mpl>"
	app.Stdout, app.Stderr = stdout, stderr

	var opts options
	fs := app.FlagSet
	fs.String(&opts.configFile, "config", "c", "", "Read settings from a YAML <file> before applying flags.", "file")
	fs.String(&opts.optLevel, "opt", "O", "O2", "Set the optimization level (O0, O1, O2).", "level")
	fs.List(&opts.emit, "emit", "e", []string{}, "Print an artifact before running: ast, symbols, ir, folded-ir, opt-ir.", "artifact")
	fs.Int(&opts.maxSteps, "max-steps", "", 0, "Abort the run after <n> instructions (0 = no limit).", "n")
	fs.Bool(&opts.showVars, "vars", "", false, "Print the final variable store after running.")
	fs.Bool(&opts.noRun, "no-run", "", false, "Stop after compiling.")
	fs.Bool(&opts.verbose, "verbose", "v", false, "Print progress information.")
	fs.Special(&opts.extraWarns, "W", "Warning switch not covered by a named flag, such as -Wall.", "warning")
	fs.Special(&opts.extraFeats, "F", "Feature switch not covered by a named flag.", "feature")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	exit := exitOK
	app.Action = func(inputs []string) error {
		if len(inputs) != 1 {
			fmt.Fprintf(stderr, "mplc: error: expected exactly one input file, got %d\n", len(inputs))
			app.Usage()
			exit = exitFailure
			return nil
		}
		if err := applyOptions(cfg, fs, &opts, warningFlags, featureFlags); err != nil {
			fmt.Fprintf(stderr, "mplc: error: %v\n", err)
			exit = exitFailure
			return nil
		}
		exit = compileAndRun(inputs[0], cfg, &opts, stdout, stderr)
		return nil
	}

	if err := app.Run(args); err != nil {
		return exitFailure
	}
	return exit
}

// applyOptions layers settings: defaults, then the config file, then -O,
// then -W/-F switches, then --max-steps.
func applyOptions(cfg *config.Config, fs *cli.FlagSet, opts *options, warningFlags, featureFlags []cli.FlagGroupEntry) error {
	if opts.configFile != "" {
		if err := cfg.MergeFile(opts.configFile); err != nil {
			return err
		}
	}
	if fs.Changed("opt") {
		if err := cfg.ApplyOptLevel(opts.optLevel); err != nil {
			return err
		}
	}
	for _, flag := range opts.extraWarns {
		if err := cfg.ApplyFlag("-W" + flag); err != nil {
			return err
		}
	}
	for _, flag := range opts.extraFeats {
		if err := cfg.ApplyFlag("-F" + flag); err != nil {
			return err
		}
	}
	cfg.ApplyFlagGroups(fs, warningFlags, featureFlags)
	if fs.Changed("max-steps") {
		if opts.maxSteps < 0 {
			return fmt.Errorf("--max-steps must not be negative, got %d", opts.maxSteps)
		}
		cfg.MaxSteps = opts.maxSteps
	}
	for _, name := range opts.emit {
		if !isArtifact(name) {
			return fmt.Errorf("unknown artifact '%s'", name)
		}
	}
	return nil
}

func isArtifact(name string) bool {
	for _, a := range compiler.Artifacts {
		if a == name {
			return true
		}
	}
	return false
}

func compileAndRun(path string, cfg *config.Config, opts *options, stdout, stderr io.Writer) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "mplc: error: %v\n", err)
		return exitFailure
	}
	rep := util.NewReporter(stderr, util.SourceFileRecord{Name: path, Content: []rune(string(src))})

	if opts.verbose {
		rep.Info("compiling %s at -%s", path, cfg.OptLevel)
	}
	res, err := compiler.Compile(string(src), cfg)
	if err != nil {
		rep.Error(err)
		if compiler.Kind(err) == compiler.KindSemantic {
			return exitSemantic
		}
		return exitFailure
	}
	for _, w := range res.Warnings {
		rep.Warn(w)
	}
	if opts.verbose {
		rep.Info("%d instructions generated, %d after optimization", len(res.RawIR), len(res.IR))
	}

	for _, name := range opts.emit {
		text, err := res.Artifact(name)
		if err != nil {
			rep.Error(err)
			return exitFailure
		}
		fmt.Fprintf(stdout, "; %s (source %016x)\n%s", name, res.Fingerprint, text)
	}
	if opts.noRun {
		return exitOK
	}

	out, err := res.Execute(vm.WithOutput(stdout))
	if err != nil {
		rep.Error(err)
		return exitFailure
	}
	if opts.verbose {
		rep.Info("executed %d instructions", out.Steps)
	}
	if opts.showVars {
		fmt.Fprint(stdout, out.FormatVars())
	}
	return exitOK
}
