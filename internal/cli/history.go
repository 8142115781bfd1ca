package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/trainpipe/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	RunID    string
	Limit    int
}

// RunDetail is one run with its stage events.
type RunDetail struct {
	Run    store.Run          `json:"run"`
	Events []store.StageEvent `json:"events"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `Show runs recorded in the run ledger, newest first, or the stage
events of a single run. --profile restricts the listing to one profile.

Examples:
  trainpipe history --db ./runs.db
  trainpipe history --db ./runs.db --profile test --limit 5
  trainpipe history --db ./runs.db --run 0190a6c4-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run ledger (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show stage events for one run")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	// Opening creates the file, so a typo must not leave an empty ledger behind.
	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
		return WrapExitError(ExitCommandError, "run ledger not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open run ledger", err)
	}
	defer st.Close()

	if opts.RunID != "" {
		return showRun(ctx, st, opts.RunID, formatter)
	}

	// Runs of every profile unless --profile is given.
	profile := ""
	if cmd.Flags().Changed("profile") {
		profile = opts.Profile
	}
	runs, err := st.ListRuns(ctx, profile, opts.Limit)
	if err != nil {
		_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%s  %-8s %-10s %s  %s\n",
			r.ID, r.Profile, r.Status, r.StartedAt.Format(time.RFC3339), shortHash(r.ConfigHash))
	}
	return nil
}

func showRun(ctx context.Context, st *store.Store, runID string, formatter *OutputFormatter) error {
	run, err := st.GetRun(ctx, runID)
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "unknown run", err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	events, err := st.ReadStageEvents(ctx, runID)
	if err != nil {
		_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read stage events", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(RunDetail{Run: run, Events: events})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "  profile: %s\n", run.Profile)
	fmt.Fprintf(w, "  config:  %s\n", run.ConfigHash)
	fmt.Fprintf(w, "  status:  %s\n", run.Status)
	if run.Error != "" {
		fmt.Fprintf(w, "  error:   %s\n", run.Error)
	}
	fmt.Fprintln(w, "Events:")
	for _, ev := range events {
		line := fmt.Sprintf("  [%d] %-9s %-10s", ev.Seq, ev.Stage, ev.Status)
		if ev.Status != store.StageStarted {
			line += " " + ev.Duration.String()
		}
		if ev.Error != "" {
			line += "  " + ev.Error
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
