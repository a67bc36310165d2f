package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/distill/internal/compiler"
)

// CheckResult holds layout check results.
type CheckResult struct {
	Valid    bool                       `json:"valid"`
	Layouts  int                        `json:"layouts"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Cycles   []compiler.CycleWarning    `json:"cycles,omitempty"`
	Overlaps []compiler.OverlapWarning  `json:"overlaps,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <layouts>",
		Short: "Check layouts for errors and warnings",
		Long: `Compile a layouts directory or .cue file and validate every layout.

Reports validation errors, recursive layouts and sum variants that
untyped values cannot tell apart. Recursion and overlaps are warnings.

Exit codes:
  0 - Layouts valid (warnings allowed)
  1 - Validation errors
  2 - Command error (invalid path, CUE errors, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	reg, err := LoadLayouts(path)
	if err != nil {
		return commandError(formatter, ErrCodeLoadFailed, err)
	}
	formatter.VerboseLog("Compiled %d layout(s) from %s", len(reg.Refs()), path)

	result := CheckResult{
		Layouts:  len(reg.Refs()),
		Errors:   compiler.Validate(reg),
		Cycles:   compiler.AnalyzeCycles(reg),
		Overlaps: compiler.AnalyzeOverlaps(reg),
	}
	result.Valid = len(result.Errors) == 0
	for _, w := range result.Cycles {
		opts.Logger(cmd).Debug("recursive layout", "path", w.Path)
	}

	if formatter.Format == "json" {
		return outputCheckJSON(formatter, result)
	}
	return outputCheckText(formatter, result)
}

// outputCheckJSON outputs the check result as JSON.
func outputCheckJSON(formatter *OutputFormatter, result CheckResult) error {
	if result.Valid {
		return formatter.Success(result)
	}

	if err := formatter.write(CLIResponse{
		Status: "error",
		Data:   result,
		Error:  &CLIError{Code: result.Errors[0].Code, Message: result.Errors[0].Message},
	}); err != nil {
		return err
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}

// outputCheckText outputs the check result as text.
func outputCheckText(formatter *OutputFormatter, result CheckResult) error {
	w := formatter.Writer

	for _, c := range result.Cycles {
		fmt.Fprintf(w, "⚠ %s\n", c.Message)
	}
	for _, o := range result.Overlaps {
		fmt.Fprintf(w, "⚠ %s\n", o.Message)
	}

	if result.Valid {
		fmt.Fprintf(w, "✓ All layouts valid (%d layouts)\n", result.Layouts)
		return nil
	}

	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, err := range result.Errors {
		fmt.Fprintf(w, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}
