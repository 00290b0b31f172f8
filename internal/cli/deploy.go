package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ctmflow/internal/engine"
	"github.com/roach88/ctmflow/internal/store"
)

// DeployOptions holds flags for the deploy command.
type DeployOptions struct {
	*RootOptions
	Force     bool   // deploy even when the plan hash is already deployed
	BuildOnly bool   // stop after ctm build
	Ledger    string // ledger database path; overrides the config
}

// DeployResult is the JSON payload of a deploy.
type DeployResult struct {
	RunID    string `json:"run_id,omitempty"`
	Folder   string `json:"folder"`
	Hash     string `json:"hash"`
	Status   string `json:"status"`
	Skipped  bool   `json:"skipped,omitempty"`
	Previous string `json:"previous,omitempty"`
}

// NewDeployCommand creates the deploy command.
func NewDeployCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeployOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "deploy <workflow>",
		Short: "Compile, build and deploy a workflow through ctm",
		Long: `Compile a workflow, then run "ctm build" and "ctm deploy" on the
document. Every attempt is recorded in the ledger. A plan whose hash
was already deployed to the same folder is skipped unless --force.

Engine errors are reported exactly as ctm printed them.

Exit codes:
  0 - Deployed (or skipped as already deployed)
  1 - ctm rejected the document
  2 - Command error (bad config, compile errors, ledger unavailable)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "deploy even if this plan was already deployed")
	cmd.Flags().BoolVar(&opts.BuildOnly, "build-only", false, "run ctm build only")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "ledger database path (overrides config)")

	return cmd
}

func runDeploy(opts *DeployOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger(cmd.ErrOrStderr())

	build, err := buildWorkflow(opts.RootOptions, path, logger)
	if err != nil {
		return outputBuildErrors(formatter, err, ExitCommandError, "compilation")
	}
	formatter.Warnings(build.Plan.Warnings)

	ledgerPath := build.Config.Ledger
	if opts.Ledger != "" {
		ledgerPath = opts.Ledger
	}
	st, err := store.Open(ledgerPath)
	if err != nil {
		_ = formatter.Error("E008", fmt.Sprintf("failed to open ledger: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	defer st.Close()

	ctm := &engine.CTM{
		Binary: build.Config.CTM.Binary,
		Args:   build.Config.CTM.Args,
		Logger: logger,
	}
	d := engine.NewDeployer(ctm, st, nil, logger)

	res, err := d.Deploy(cmd.Context(), engine.Request{
		Document:    build.Bytes,
		Folder:      build.Document.Folder(),
		PlanHash:    build.Hash,
		Environment: build.Config.Environment,
		Force:       opts.Force,
		BuildOnly:   opts.BuildOnly,
	})
	if err != nil {
		return outputDeployError(formatter, res, err)
	}

	result := DeployResult{
		RunID:    res.RunID,
		Folder:   build.Document.Folder(),
		Hash:     build.Hash,
		Status:   string(res.Status),
		Skipped:  res.Skipped,
		Previous: res.Previous,
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	switch {
	case res.Skipped:
		fmt.Fprintf(w, "✓ %s already deployed by run %s (use --force to redeploy)\n", result.Folder, res.Previous)
	case opts.BuildOnly:
		fmt.Fprintf(w, "✓ Built %s (run %s)\n", result.Folder, res.RunID)
	default:
		fmt.Fprintf(w, "✓ Deployed %s (run %s)\n", result.Folder, res.RunID)
	}
	fmt.Fprintf(w, "Plan hash: %s\n", result.Hash)
	return nil
}

// outputDeployError reports an engine rejection with ctm's own messages,
// or any other failure as a command error.
func outputDeployError(formatter *OutputFormatter, res *engine.Result, err error) error {
	var ee *engine.Error
	if !errors.As(err, &ee) {
		_ = formatter.Error("E001", err.Error(), nil)
		return WrapExitError(ExitCommandError, "deploy failed", err)
	}

	var details any
	if res != nil {
		details = map[string]string{"run_id": res.RunID}
	}
	if formatter.Format == "json" {
		_ = formatter.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: string(ee.Code), Message: ee.Error(), Details: details},
			Data:   ee.Messages,
		})
	} else {
		fmt.Fprintf(formatter.Writer, "✗ %s\n", ee.Code)
		for _, msg := range ee.Messages {
			fmt.Fprintf(formatter.Writer, "  %s\n", msg)
		}
		if res != nil {
			fmt.Fprintf(formatter.Writer, "Recorded as failed run %s\n", res.RunID)
		}
	}
	return WrapExitError(ExitFailure, "engine rejected the plan", err)
}
