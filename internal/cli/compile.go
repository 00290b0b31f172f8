package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ctmflow/internal/document"
	"github.com/roach88/ctmflow/internal/ir"
	"github.com/roach88/ctmflow/internal/loader"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompileSummary is the JSON payload of a successful compile.
type CompileSummary struct {
	Folder   string            `json:"folder"`
	Hash     string            `json:"hash"`
	Jobs     int               `json:"jobs"`
	Events   int               `json:"events"`
	Warnings []ir.Warning      `json:"warnings,omitempty"`
	Output   string            `json:"output,omitempty"`
	Document document.Document `json:"document,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <workflow>",
		Short: "Compile a workflow into a Control-M folder document",
		Long: `Compile a workflow file (.yaml, .yml, .json, .cue, .hcl) or CUE package
directory into a Control-M folder document.

Without --output the document is written to stdout and the summary to
stderr. The same workflow and configuration always produce the same
bytes and the same plan hash.`,
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

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	build, err := buildWorkflow(opts.RootOptions, path, opts.Logger(cmd.ErrOrStderr()))
	if err != nil {
		// Compilation errors are command-level errors (exit code 2)
		return outputBuildErrors(formatter, err, ExitCommandError, "compilation")
	}
	formatter.VerboseLog("Compiled %s into folder %s", path, build.Document.Folder())

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, build.Bytes, 0o644); err != nil {
			_ = formatter.Error(loader.ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	summary := CompileSummary{
		Folder:   build.Document.Folder(),
		Hash:     build.Hash,
		Jobs:     build.Document.JobCount(),
		Events:   len(build.Plan.Events),
		Warnings: build.Plan.Warnings,
		Output:   opts.Output,
	}

	if formatter.Format == "json" {
		if opts.Output == "" {
			summary.Document = build.Document
		}
		return formatter.Success(summary)
	}

	// Text: the document owns stdout unless it went to a file.
	out := formatter.Writer
	if opts.Output == "" {
		if _, err := formatter.Writer.Write(build.Bytes); err != nil {
			return err
		}
		out = formatter.GetErrWriter()
	}
	formatter.Warnings(summary.Warnings)
	fmt.Fprintf(out, "✓ Compiled %d job(s), %d event(s) into %s\n", summary.Jobs, summary.Events, summary.Folder)
	fmt.Fprintf(out, "Plan hash: %s\n", summary.Hash)
	if opts.Output != "" {
		fmt.Fprintf(out, "Wrote document to %s\n", opts.Output)
	}
	return nil
}
