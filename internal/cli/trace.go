package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/prism/internal/audit"
)

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace [session-id]",
		Short: "Inspect recorded solve sessions",
		Long: `Without arguments, list the sessions stored in the audit database.
With a session id, print that session's convergence trace and value
table.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootOpts.AuditDB == "" {
				return fmt.Errorf("trace requires --audit-db")
			}
			if len(args) == 0 {
				return runTraceList(rootOpts, cmd)
			}
			return runTraceShow(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runTraceList(rootOpts *RootOptions, cmd *cobra.Command) error {
	store, err := audit.Open(rootOpts.AuditDB)
	if err != nil {
		return err
	}
	defer store.Close()

	sums, err := store.ListSessions(context.Background())
	if err != nil {
		return err
	}
	if len(sums) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no sessions recorded")
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), audit.RenderSummaries(sums))
	return nil
}

func runTraceShow(rootOpts *RootOptions, cmd *cobra.Command, id string) error {
	store, err := audit.Open(rootOpts.AuditDB)
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := store.LoadSession(context.Background(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "session %s (%s)\n", sess.ID, sess.Label)
	fmt.Fprint(cmd.OutOrStdout(), audit.RenderTrace(sess.Trace))
	if len(sess.Values) > 0 {
		fmt.Fprint(cmd.OutOrStdout(), audit.RenderValues(sess.Values))
	}
	return nil
}
