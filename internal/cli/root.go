// Package cli implements the prism command-line interface: loading
// model manifests, computing and solving them, and inspecting stored
// solve sessions.
package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose bool
	AuditDB string
}

// Logger builds the slog logger the engine receives: debug to stderr
// when verbose, discard otherwise. Diagnostics go to stderr so stdout
// stays clean for table output.
func (o *RootOptions) Logger() *slog.Logger {
	if !o.Verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// NewRootCommand creates the root command for the prism CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "prism",
		Short: "Prism - verifiable calculation engine",
		Long: `Prism compiles financial model graphs to bytecode, executes them
vectorized over the time axis, validates units and temporal kinds, and
solves circular constraint systems.`,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.AuditDB, "audit-db", "", "path to the solve-session audit database")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewSolveCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewDisasmCommand(opts))

	return cmd
}
