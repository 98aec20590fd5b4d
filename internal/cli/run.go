package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/prism"
	"github.com/roach88/prism/internal/audit"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	var only []string

	cmd := &cobra.Command{
		Use:           "run <manifest>",
		Short:         "Compute a model and print its value table",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, cmd, args[0], only)
		},
	}
	cmd.Flags().StringSliceVar(&only, "node", nil, "print only the named node(s)")
	return cmd
}

func runRun(rootOpts *RootOptions, cmd *cobra.Command, path string, only []string) error {
	man, err := LoadManifest(path)
	if err != nil {
		return err
	}
	m, err := BuildModel(man, prism.WithLogger(rootOpts.Logger()))
	if err != nil {
		return err
	}
	if _, err := m.Compute(); err != nil {
		return err
	}

	values, err := valueTable(m, only)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), audit.RenderValues(values))
	return nil
}
