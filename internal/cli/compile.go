package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/deltasim/internal/value"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult summarizes a compiled model.
type CompilationResult struct {
	Model     string `json:"model"`
	ModelHash string `json:"model_hash"`
	Files     int    `json:"files"`
	Signals   int    `json:"signals"`
	Buses     int    `json:"buses"`
	Processes int    `json:"processes"`
	Theorems  int    `json:"theorems"`
	Stimuli   int    `json:"stimuli"`
	Output    string `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <model-dir>",
		Short: "Compile a CUE model and print its content hash",
		Long: `Compile a CUE model directory.

Prints the model's content hash, which identifies recorded runs. With
--output the compiled model is written as canonical JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, modelDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	res, err := loadModel(formatter, modelDir)
	if err != nil {
		return err
	}
	m := res.Model

	result := CompilationResult{
		Model:     m.Name,
		ModelHash: m.Hash(),
		Files:     res.FileCount,
		Signals:   len(m.Signals),
		Buses:     len(m.Buses),
		Processes: len(m.Processes),
		Theorems:  len(m.Theorems),
		Stimuli:   len(m.Stimuli),
		Output:    opts.Output,
	}

	if opts.Output != "" {
		data, err := value.MarshalCanonical(m.Structure())
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "encoding model", err)
		}
		if err := os.WriteFile(opts.Output, data, 0644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "writing output file", err)
		}
		formatter.VerboseLog("Wrote %d bytes to %s", len(data), opts.Output)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled model %s\n", result.Model)
	fmt.Fprintf(w, "  Hash: %s\n", result.ModelHash)
	fmt.Fprintf(w, "  Signals: %d, Buses: %d, Processes: %d, Theorems: %d, Stimuli: %d\n",
		result.Signals, result.Buses, result.Processes, result.Theorems, result.Stimuli)
	if result.Output != "" {
		fmt.Fprintf(w, "  Output: %s\n", result.Output)
	}
	return nil
}
