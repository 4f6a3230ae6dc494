package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/deltasim/internal/netlist"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                      `json:"valid"`
	Model    string                    `json:"model"`
	Errors   []netlist.ValidationError `json:"errors,omitempty"`
	Warnings []netlist.LoopWarning     `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <model-dir>",
		Short: "Validate a model without simulating it",
		Long: `Validate a CUE model directory without simulating it.

Performs syntax checking, schema validation and reference checks, and
warns about zero-delay feedback loops, which settle only through delta
cycles and may diverge.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, modelDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	res, err := loadModel(formatter, modelDir)
	if err != nil {
		return err
	}

	result := ValidationResult{
		Model:    res.Model.Name,
		Errors:   res.Model.Check(),
		Warnings: res.Model.AnalyzeLoops(),
	}
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn.Message)
	}
	fmt.Fprintf(w, "✓ Model %s valid\n", result.Model)
	return nil
}

// outputValidationErrors outputs every validation error.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	message := fmt.Sprintf("validation failed with %d error(s)", len(errs))

	if formatter.JSON() {
		if err := formatter.Failure(errs[0].Code, errs[0].Message, result); err != nil {
			return err
		}
		// Validation failures = exit code 1
		return NewExitError(ExitFailure, message)
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, err := range errs {
		fmt.Fprintf(w, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
	}
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn.Message)
	}

	return NewExitError(ExitFailure, message)
}
