package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ctmflow/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Folder string
	Limit  int
	Ledger string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded deploy runs",
		Long: `List runs recorded in the ledger, oldest first, with their status
and any engine messages.

Examples:
  ctmflow history
  ctmflow history --folder LBA_DEMGEN_VB --limit 5
  ctmflow history --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Folder, "folder", "", "only runs for this folder")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "most recent runs to show (0 for all)")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "ledger database path (overrides config)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	path := opts.Ledger
	if path == "" {
		cfg, err := opts.LoadConfig()
		if err != nil {
			_ = formatter.Error("E001", err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		path = cfg.Ledger
	}

	st, err := store.Open(path)
	if err != nil {
		_ = formatter.Error("E008", fmt.Sprintf("failed to open ledger: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	defer st.Close()

	runs, err := st.History(cmd.Context(), opts.Folder, opts.Limit)
	if err != nil {
		_ = formatter.Error("E008", fmt.Sprintf("failed to read ledger: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to read ledger", err)
	}

	if formatter.Format == "json" {
		if runs == nil {
			runs = []store.Run{}
		}
		return formatter.Success(runs)
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "#%d  %s  %-8s  %s  %s  %s\n",
			r.Seq, r.CreatedAt.UTC().Format(time.RFC3339), r.Status, r.Folder, shortHash(r.PlanHash), r.ID)
		for _, msg := range r.Errors {
			fmt.Fprintf(w, "      %s\n", msg)
		}
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
