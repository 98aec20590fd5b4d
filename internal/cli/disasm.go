package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/prism"
)

// NewDisasmCommand creates the disasm command.
func NewDisasmCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "disasm <manifest>",
		Short:         "Print a model's compiled instruction tape",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDisasm(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runDisasm(rootOpts *RootOptions, cmd *cobra.Command, path string) error {
	man, err := LoadManifest(path)
	if err != nil {
		return err
	}
	m, err := BuildModel(man, prism.WithLogger(rootOpts.Logger()))
	if err != nil {
		return err
	}
	asm, err := m.Disassemble()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), asm)
	return nil
}
