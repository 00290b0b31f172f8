package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ctmflow/internal/advisor"
	"github.com/roach88/ctmflow/internal/compiler"
	"github.com/roach88/ctmflow/internal/ir"
)

// AdviseOptions holds flags for the advise command.
type AdviseOptions struct {
	*RootOptions
	UseCase     string
	ReplyFile   string   // canned advisor reply
	Command     string   // advisor program
	CommandArgs []string // advisor program arguments
	NoRename    bool
	Output      string
}

// AdviseResult is the JSON payload of the advise command.
type AdviseResult struct {
	Order    []string          `json:"order"`
	Renames  map[string]string `json:"renames,omitempty"`
	Workflow *ir.WorkflowSpec  `json:"workflow"`
	Output   string            `json:"output,omitempty"`
}

// NewAdviseCommand creates the advise command.
func NewAdviseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AdviseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "advise <job-type>...",
		Short: "Draft a chained workflow from an advisor's ordering",
		Long: `Ask an advisor to order the given job types and give them business
names, then write the result as a workflow YAML file.

The advisor is an external program (--command) that reads the prompt as
JSON on stdin and replies on stdout, or a file holding a reply
(--reply-file). Replies that do not list every job type exactly once are
ignored and the job types keep the order given. The drafted workflow is
compiled before it is written.

Examples:
  ctmflow advise Data_Oracle Data_Snowflake PowerBI --use-case "sales reporting" --command ./ask-llm
  ctmflow advise Data_Oracle PowerBI --reply-file reply.json -o workflow.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdvise(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.UseCase, "use-case", "", "business use case given to the advisor")
	cmd.Flags().StringVar(&opts.ReplyFile, "reply-file", "", "file holding the advisor reply")
	cmd.Flags().StringVar(&opts.Command, "command", "", "advisor program")
	cmd.Flags().StringArrayVar(&opts.CommandArgs, "command-arg", nil, "advisor program argument (repeatable)")
	cmd.Flags().BoolVar(&opts.NoRename, "no-rename", false, "keep job type names")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.MarkFlagsMutuallyExclusive("reply-file", "command")

	return cmd
}

func runAdvise(opts *AdviseOptions, types []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger(cmd.ErrOrStderr())

	cfg, err := opts.LoadConfig()
	if err != nil {
		_ = formatter.Error("E001", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	reg, err := cfg.Registry()
	if err != nil {
		_ = formatter.Error("E001", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load catalog", err)
	}

	svc, err := adviseService(opts)
	if err != nil {
		_ = formatter.Error("E005", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read advisor reply", err)
	}

	order := types
	var renames map[string]string
	if svc != nil {
		adv := advisor.New(svc, logger)
		ctx := cmd.Context()
		if order, err = adv.Order(ctx, types, opts.UseCase); err != nil {
			_ = formatter.Error("E001", err.Error(), nil)
			return WrapExitError(ExitCommandError, "advisor failed", err)
		}
		if !opts.NoRename {
			if renames, err = adv.Rename(ctx, types, opts.UseCase); err != nil {
				_ = formatter.Error("E001", err.Error(), nil)
				return WrapExitError(ExitCommandError, "advisor failed", err)
			}
		}
	}

	spec := advisor.Workflow(order, renames)
	if _, err := compiler.Compile(spec, cfg.CompilerOptions(reg, logger)); err != nil {
		return outputBuildErrors(formatter, err, ExitCommandError, "compilation")
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(spec); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, buf.Bytes(), 0o644); err != nil {
			_ = formatter.Error("E007", fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(AdviseResult{Order: order, Renames: renames, Workflow: spec, Output: opts.Output})
	}
	if opts.Output == "" {
		_, err := formatter.Writer.Write(buf.Bytes())
		return err
	}
	fmt.Fprintf(formatter.Writer, "✓ Wrote %d job(s) to %s\n", len(spec.Jobs), opts.Output)
	return nil
}

// adviseService returns nil when no advisor is configured.
func adviseService(opts *AdviseOptions) (advisor.Service, error) {
	switch {
	case opts.ReplyFile != "":
		data, err := os.ReadFile(opts.ReplyFile)
		if err != nil {
			return nil, err
		}
		return advisor.Text(data), nil
	case opts.Command != "":
		return advisor.Command{Path: opts.Command, Args: opts.CommandArgs}, nil
	}
	return nil, nil
}
