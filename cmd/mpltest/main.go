package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/xplshn/mpl/pkg/compiler"
	"github.com/xplshn/mpl/pkg/config"
)

// Observation is everything a program run shows to the outside.
type Observation struct {
	Hash   string            `json:"hash"`
	Stdout []string          `json:"stdout"`
	Vars   map[string]string `json:"vars,omitempty"`
	Kind   string            `json:"kind,omitempty"`
	Error  string            `json:"error,omitempty"`
}

type FileTestResult struct {
	File    string `json:"file"`
	Status  string `json:"status"` // PASS, FAIL, SKIP, ERROR, NEW
	Message string `json:"message,omitempty"`
	Diff    string `json:"diff,omitempty"`
}

type harness struct {
	optLevel string
	maxSteps int
	update   bool
	jsonDir  string
}

var (
	testFiles = flag.String("test-files", "examples/*.mpl", "Glob pattern(s) for files to test (space-separated).")
	optLevel  = flag.String("O", "O2", "Optimization level to check against the unoptimized run.")
	maxSteps  = flag.Int("max-steps", 1_000_000, "Step limit for each run.")
	jobs      = flag.Int("j", 4, "Number of parallel test jobs.")
	update    = flag.Bool("update", false, "Rewrite golden files from the current output.")
	jsonDir   = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
	verbose   = flag.Bool("v", false, "Enable verbose logging.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	h := &harness{optLevel: *optLevel, maxSteps: *maxSteps, update: *update, jsonDir: *jsonDir}
	results := h.runAll(files, *jobs)
	printSummary(results)
	if hasFailures(results) {
		os.Exit(1)
	}
}

func (h *harness) runAll(files []string, jobs int) []*FileTestResult {
	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < max(jobs, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- h.testFile(file)
			}
		}()
	}
	for _, file := range files {
		tasks <- file
	}
	close(tasks)
	wg.Wait()
	close(resultsChan)

	var all []*FileTestResult
	for r := range resultsChan {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].File < all[j].File })
	return all
}

func (h *harness) goldenPath(sourceFile string) string {
	name := "." + filepath.Base(sourceFile) + ".json"
	if h.jsonDir != "" {
		return filepath.Join(h.jsonDir, name)
	}
	return filepath.Join(filepath.Dir(sourceFile), name)
}

// observe compiles and runs source at the given level.
func (h *harness) observe(source, level string) (Observation, error) {
	obs := Observation{Hash: fmt.Sprintf("%016x", xxhash.Sum64String(source)), Stdout: []string{}}
	cfg := config.NewConfig()
	if err := cfg.ApplyOptLevel(level); err != nil {
		return obs, err
	}
	cfg.MaxSteps = h.maxSteps

	res, err := compiler.Compile(source, cfg)
	if err == nil {
		out, runErr := res.Execute()
		if runErr == nil {
			obs.Stdout = out.Output
			obs.Vars = make(map[string]string, len(out.Vars))
			for name, v := range out.Vars {
				obs.Vars[name] = v.String()
			}
			return obs, nil
		}
		err = runErr
	}
	obs.Kind, obs.Error = string(compiler.Kind(err)), err.Error()
	return obs, nil
}

func (h *harness) testFile(file string) *FileTestResult {
	src, err := os.ReadFile(file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not read source: %v", err)}
	}

	got, err := h.observe(string(src), h.optLevel)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
	}
	// Fault messages name instruction indexes, which optimization shifts.
	base, _ := h.observe(string(src), "O0")
	if diff := cmp.Diff(base, got, cmpopts.EquateEmpty(), cmpopts.IgnoreFields(Observation{}, "Error")); diff != "" {
		return &FileTestResult{File: file, Status: "FAIL", Message: fmt.Sprintf("-%s run differs from the unoptimized run", h.optLevel), Diff: diff}
	}

	goldenFile := h.goldenPath(file)
	goldenData, err := os.ReadFile(goldenFile)
	if h.update || os.IsNotExist(err) {
		if err := h.writeGolden(goldenFile, got); err != nil {
			return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
		}
		return &FileTestResult{File: file, Status: "NEW", Message: "Golden file written to " + goldenFile}
	}
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not read golden file %s: %v", goldenFile, err)}
	}

	var want Observation
	if err := json.Unmarshal(goldenData, &want); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}
	if want.Hash != got.Hash {
		return &FileTestResult{File: file, Status: "SKIP", Message: "Source changed since the golden file was written; rerun with -update"}
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Output differs from golden file", Diff: diff}
	}
	return &FileTestResult{File: file, Status: "PASS"}
}

func (h *harness) writeGolden(path string, obs Observation) error {
	data, err := json.MarshalIndent(obs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal golden data: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func printSummary(results []*FileTestResult) {
	counts := make(map[string]int)
	for _, r := range results {
		counts[r.Status]++
		color := cGreen
		switch r.Status {
		case "FAIL", "ERROR":
			color = cRed
		case "SKIP", "NEW":
			color = cYellow
		}
		if r.Status == "PASS" && !*verbose {
			continue
		}
		fmt.Printf("%s[%s]%s %s", color, r.Status, cNone, r.File)
		if r.Message != "" {
			fmt.Printf(": %s", r.Message)
		}
		fmt.Println()
		fmt.Print(formatDiff(r.Diff))
	}
	fmt.Printf("\n%d passed, %d failed, %d errors, %d skipped, %d new\n",
		counts["PASS"], counts["FAIL"], counts["ERROR"], counts["SKIP"], counts["NEW"])
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "-"):
			sb.WriteString(cRed)
		case strings.HasPrefix(trimmed, "+"):
			sb.WriteString(cGreen)
		}
		sb.WriteString("    " + line + cNone + "\n")
	}
	return sb.String()
}

func hasFailures(results []*FileTestResult) bool {
	for _, r := range results {
		if r.Status == "FAIL" || r.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			abs, err := filepath.Abs(file)
			if err != nil || seen[abs] {
				continue
			}
			if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() {
				allFiles = append(allFiles, abs)
				seen[abs] = true
			}
		}
	}
	return allFiles, nil
}
