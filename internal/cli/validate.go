package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ctmflow/internal/compiler"
	"github.com/roach88/ctmflow/internal/ir"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Strict bool // treat warnings as failures
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool         `json:"valid"`
	Jobs     int          `json:"jobs,omitempty"`
	Hash     string       `json:"hash,omitempty"`
	Warnings []ir.Warning `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <workflow>",
		Short: "Check a workflow without writing a document",
		Long: `Run every compile check on a workflow: job types, subfolders,
dependencies, cycles and event names. Nothing is written.

Exit codes:
  0 - Workflow is valid
  1 - Compile errors (or warnings with --strict)
  2 - Command error (bad config, unreadable workflow)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "treat warnings as failures")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	build, err := buildWorkflow(opts.RootOptions, path, opts.Logger(cmd.ErrOrStderr()))
	if err != nil {
		var ces compiler.Errors
		if errors.As(err, &ces) {
			// Validation failures = exit code 1 (test/validation failure)
			return outputBuildErrors(formatter, err, ExitFailure, "validation")
		}
		return outputBuildErrors(formatter, err, ExitCommandError, "validation")
	}

	result := ValidationResult{
		Valid:    true,
		Jobs:     build.Document.JobCount(),
		Hash:     build.Hash,
		Warnings: build.Plan.Warnings,
	}
	if opts.Strict && hasWarnings(result.Warnings) {
		result.Valid = false
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		formatter.Warnings(result.Warnings)
		if result.Valid {
			fmt.Fprintf(formatter.Writer, "✓ %s is valid (%d job(s))\n", path, result.Jobs)
		} else {
			fmt.Fprintf(formatter.Writer, "✗ %s has warnings\n", path)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed: warnings present")
	}
	return nil
}

// hasWarnings ignores info-level findings.
func hasWarnings(ws []ir.Warning) bool {
	for _, w := range ws {
		if w.Level == "warning" {
			return true
		}
	}
	return false
}
