package cli

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
)

//go:embed scaffold.yaml
var scaffoldWorkflow []byte

// ScaffoldOptions holds flags for the scaffold command.
type ScaffoldOptions struct {
	*RootOptions
	Force bool
}

// NewScaffoldCommand creates the scaffold command.
func NewScaffoldCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScaffoldOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scaffold [file]",
		Short: "Write a sample workflow",
		Long: `Write a sample two-phase workflow using built-in job types. With no
file the workflow is printed to stdout.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runScaffold(opts, path, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing file")

	return cmd
}

func runScaffold(opts *ScaffoldOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if path == "" {
		_, err := cmd.OutOrStdout().Write(scaffoldWorkflow)
		return err
	}

	if !opts.Force {
		if _, err := os.Stat(path); err == nil {
			_ = formatter.Error("E007", fmt.Sprintf("%s already exists (use --force to overwrite)", path), nil)
			return NewExitError(ExitCommandError, "file exists")
		} else if !errors.Is(err, fs.ErrNotExist) {
			return WrapExitError(ExitCommandError, "stat output file", err)
		}
	}

	if err := os.WriteFile(path, scaffoldWorkflow, 0o644); err != nil {
		_ = formatter.Error("E007", fmt.Sprintf("writing output file: %v", err), nil)
		return WrapExitError(ExitCommandError, "writing output file", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"output": path})
	}
	fmt.Fprintf(formatter.Writer, "✓ Wrote sample workflow to %s\n", path)
	return nil
}
