package cli

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/deltasim/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string
	Update bool
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated" or "mismatch"
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the outcome of a test command.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario files",
		Long: `Run every YAML scenario (*.yaml, *.yml) under a directory.

Each scenario builds its model, applies its stimuli, runs its steps and
checks its assertions. When <scenarios-dir>/golden/<name>.golden exists
the scenario's trace must match it byte for byte; --update writes the
golden files instead.

Examples:
  deltasim test ./scenarios
  deltasim test --filter 'latch*' ./scenarios
  deltasim test --update ./scenarios`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenario files whose base name matches this glob")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "write golden files instead of comparing")

	return cmd
}

func runTest(opts *TestOptions, dir string, cmd *cobra.Command) error {
	ctx := cmdContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeInvalidFlag, fmt.Sprintf("invalid --filter %q", opts.Filter), err)
		}
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidFlag, "failed to read scenarios directory", err)
	}
	if len(files) == 0 {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidFlag, fmt.Sprintf("no scenario files in %s", dir), nil)
	}

	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, file := range files {
		sr := runScenarioFile(ctx, file, filepath.Join(dir, "golden"), opts.Update)
		formatter.VerboseLog("%s: pass=%v", sr.Name, sr.Pass)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}
	result.Total = len(result.Scenarios)

	return outputTest(formatter, result)
}

// findScenarioFiles returns the scenario files under dir in lexical order,
// skipping the golden directory.
func findScenarioFiles(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, d.Name()); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

func runScenarioFile(ctx context.Context, file, goldenDir string, update bool) ScenarioResult {
	sr := ScenarioResult{
		Name: strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)),
		File: file,
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		sr.Errors = []string{err.Error()}
		return sr
	}
	sr.Name = scenario.Name

	res, err := harness.RunContext(ctx, scenario)
	if err != nil {
		sr.Errors = []string{err.Error()}
		return sr
	}
	sr.Pass = res.Pass
	sr.Errors = res.Errors

	snapshot, err := harness.Snapshot(scenario.Name, res)
	if err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, err.Error())
		return sr
	}

	goldenPath := filepath.Join(goldenDir, scenario.Name+".golden")
	if update {
		if err := writeGolden(goldenPath, snapshot); err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, err.Error())
			return sr
		}
		sr.Golden = "updated"
		return sr
	}

	want, err := os.ReadFile(goldenPath)
	switch {
	case os.IsNotExist(err):
		return sr
	case err != nil:
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("failed to read golden file: %v", err))
		return sr
	}
	if bytes.Equal(want, snapshot) {
		sr.Golden = "match"
		return sr
	}
	sr.Golden = "mismatch"
	sr.Pass = false
	sr.Errors = append(sr.Errors, describeGoldenMismatch(goldenPath, want, snapshot))
	return sr
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// describeGoldenMismatch names the first line that differs.
func describeGoldenMismatch(path string, want, got []byte) string {
	wantLines := strings.Split(string(want), "\n")
	gotLines := strings.Split(string(got), "\n")
	for i := 0; i < max(len(wantLines), len(gotLines)); i++ {
		var w, g string
		if i < len(wantLines) {
			w = wantLines[i]
		}
		if i < len(gotLines) {
			g = gotLines[i]
		}
		if w != g {
			return fmt.Sprintf("%s:%d: got %q, want %q", path, i+1, g, w)
		}
	}
	return fmt.Sprintf("%s: trace differs", path)
}

func outputTest(formatter *OutputFormatter, result TestResult) error {
	message := fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total)

	if formatter.JSON() {
		if result.Failed == 0 {
			return formatter.Success(result)
		}
		if err := formatter.Failure(ErrCodeTestFailed, message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, message)
	}

	w := formatter.Writer
	for _, sr := range result.Scenarios {
		mark := "✓"
		if !sr.Pass {
			mark = "✗"
		}
		if sr.Golden != "" {
			fmt.Fprintf(w, "%s %s (golden %s)\n", mark, sr.Name, sr.Golden)
		} else {
			fmt.Fprintf(w, "%s %s\n", mark, sr.Name)
		}
		for _, e := range sr.Errors {
			for _, line := range strings.Split(strings.TrimRight(e, "\n"), "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, message)
	}
	return nil
}
