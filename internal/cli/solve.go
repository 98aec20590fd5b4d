package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/prism"
	"github.com/roach88/prism/internal/audit"
)

// NewSolveCommand creates the solve command.
func NewSolveCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		tol     float64
		maxIter int
		budget  time.Duration
		label   string
		only    []string
	)

	cmd := &cobra.Command{
		Use:   "solve <manifest>",
		Short: "Solve a model's constraint system and print the result",
		Long: `Compute a model, then drive its solver variables until every equality
constraint holds within tolerance. With --audit-db the session is
recorded for later inspection with the trace command.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := prism.SolveOptions{Tol: tol, MaxIter: maxIter, Budget: budget}
			return runSolve(rootOpts, cmd, args[0], opts, label, only)
		},
	}
	cmd.Flags().Float64Var(&tol, "tol", 0, "convergence tolerance on the residual (default 1e-8)")
	cmd.Flags().IntVar(&maxIter, "max-iter", 0, "iteration cap (default 100)")
	cmd.Flags().DurationVar(&budget, "budget", 0, "wall-clock limit, 0 for none")
	cmd.Flags().StringVar(&label, "label", "", "session label for the audit record")
	cmd.Flags().StringSliceVar(&only, "node", nil, "print only the named node(s)")
	return cmd
}

func runSolve(rootOpts *RootOptions, cmd *cobra.Command, path string, opts prism.SolveOptions, label string, only []string) error {
	man, err := LoadManifest(path)
	if err != nil {
		return err
	}
	m, err := BuildModel(man, prism.WithLogger(rootOpts.Logger()))
	if err != nil {
		return err
	}

	_, solveErr := m.Solve(opts)
	converged := solveErr == nil

	// An unconverged solve still has a history worth recording; any
	// other failure aborts before there is anything to show.
	var fail *prism.SolveFailure
	if solveErr != nil && !errors.As(solveErr, &fail) {
		return solveErr
	}

	trace := m.Trace()
	if fail != nil {
		trace = fail.History
	}

	if rootOpts.AuditDB != "" {
		values, err := valueTable(m, nil)
		if err != nil && converged {
			return err
		}
		if label == "" {
			label = path
		}
		id, err := recordSession(rootOpts.AuditDB, audit.Session{
			Label:     label,
			ModelLen:  m.ModelLen(),
			Backend:   "gauss-newton",
			Converged: converged,
			Values:    values,
			Trace:     trace,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "session %s\n", id)
	}

	fmt.Fprint(cmd.OutOrStdout(), audit.RenderTrace(trace))
	if !converged {
		return solveErr
	}

	values, err := valueTable(m, only)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), audit.RenderValues(values))
	return nil
}

func recordSession(dbPath string, sess audit.Session) (string, error) {
	store, err := audit.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer store.Close()
	return store.RecordSession(context.Background(), sess)
}
