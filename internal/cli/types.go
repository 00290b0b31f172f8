package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// JobTypeInfo describes one registered job type.
type JobTypeInfo struct {
	Type        string   `json:"type"`
	EngineType  string   `json:"engine_type"`
	Description string   `json:"description,omitempty"`
	Required    []string `json:"required,omitempty"`
	Optional    []string `json:"optional,omitempty"`
}

// NewTypesCommand creates the types command.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the job types workflows may use",
		Long: `List every job type in the registry: the built-in catalog plus the
catalogs named in the config file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypes(rootOpts, cmd)
		},
	}
	return cmd
}

func runTypes(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

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

	types := make([]JobTypeInfo, 0, reg.Len())
	for _, name := range reg.Types() {
		def, err := reg.Lookup(name)
		if err != nil {
			return err
		}
		types = append(types, JobTypeInfo{
			Type:        def.Type,
			EngineType:  def.EngineType,
			Description: def.Description,
			Required:    def.Required,
			Optional:    def.Optional,
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(types)
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tENGINE TYPE\tDESCRIPTION")
	for _, t := range types {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Type, t.EngineType, t.Description)
	}
	return tw.Flush()
}
