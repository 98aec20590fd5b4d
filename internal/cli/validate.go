package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/prism"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var requireDecls bool

	cmd := &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Statically validate a model without computing",
		Long: `Validate a model manifest: topology, temporal-kind algebra, and unit
algebra. All diagnostics are collected and reported in one pass.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, args[0], requireDecls)
		},
	}
	cmd.Flags().BoolVar(&requireDecls, "require-declarations", false,
		"flag source nodes missing kind and unit declarations")
	return cmd
}

func runValidate(rootOpts *RootOptions, cmd *cobra.Command, path string, requireDecls bool) error {
	man, err := LoadManifest(path)
	if err != nil {
		return err
	}
	opts := []prism.Option{prism.WithLogger(rootOpts.Logger())}
	if requireDecls {
		opts = append(opts, prism.WithRequireDeclarations())
	}
	m, err := BuildModel(man, opts...)
	if err != nil {
		return err
	}

	diags, err := m.Validate()
	if err != nil {
		if cyc := prism.CycleNodes(err); cyc != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "cycle detected among %d node(s)\n", len(cyc))
		}
		return err
	}
	if len(diags) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "valid")
		return nil
	}

	for _, d := range diags {
		fmt.Fprintln(cmd.OutOrStdout(), d.Error())
	}
	return fmt.Errorf("%d validation error(s)", len(diags))
}
