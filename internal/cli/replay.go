package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qrscan/internal/config"
	"github.com/roach88/qrscan/internal/session"
	"github.com/roach88/qrscan/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database  string
	SessionID string // optional - specific session only
}

// ReplaySummary holds the overall replay result.
type ReplaySummary struct {
	Sessions         []session.ReplayResult `json:"sessions"`
	TotalSessions    int                    `json:"total_sessions"`
	AllDeterministic bool                   `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded sessions and verify determinism",
		Long: `Re-run recorded decode events through a fresh reconciler, using the
configuration each session was recorded with, and compare the output
with the recorded commands.

Dismissed prompts are replayed at the seq they were answered, so
sessions recorded with reprompt-on-dismiss replay identically.

Exit codes:
  0 - All sessions are deterministic
  1 - Replayed output differs from the log
  2 - Command error (database not found, unknown session, etc.)

Examples:
  qrscan replay --db ./scans.db
  qrscan replay --db ./scans.db --session 01928c7e-...
  qrscan replay --db ./scans.db --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var records []store.SessionRecord
	if opts.SessionID != "" {
		rec, err := st.ReadSession(ctx, opts.SessionID)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("session %s not found", opts.SessionID), err)
		}
		records = []store.SessionRecord{rec}
	} else {
		records, err = st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
	}

	summary := ReplaySummary{
		Sessions:         make([]session.ReplayResult, 0, len(records)),
		TotalSessions:    len(records),
		AllDeterministic: true,
	}

	for _, rec := range records {
		cfg, err := config.FromJSON(rec.Config)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("session %s: recorded config", rec.ID), err)
		}

		result, err := session.Replay(ctx, st, rec.ID, cfg.ReconcilerOptions()...)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", rec.ID), err)
		}

		summary.Sessions = append(summary.Sessions, result)
		if !result.Deterministic {
			summary.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, summary)
	}
	return outputReplayText(cmd, summary, opts.Verbose)
}

// openExisting opens a database that must already exist. store.Open would
// create an empty one.
func openExisting(path string) (*store.Store, error) {
	if err := requireFile(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func outputReplayJSON(cmd *cobra.Command, summary ReplaySummary) error {
	response := CLIResponse{
		Status: "ok",
		Data:   summary,
	}

	if !summary.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	if err := writeResponse(cmd.OutOrStdout(), response); err != nil {
		return err
	}

	if !summary.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

func outputReplayText(cmd *cobra.Command, summary ReplaySummary, verbose bool) error {
	w := cmd.OutOrStdout()

	if summary.TotalSessions == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", summary.TotalSessions)
	fmt.Fprintln(w)

	for _, s := range summary.Sessions {
		status := "\u2713"
		if !s.Deterministic {
			status = "\u2717"
		}

		fmt.Fprintf(w, "%s Session: %s\n", status, s.SessionID)
		fmt.Fprintf(w, "  Events: %d, commands: %d, dismissals: %d\n", s.Events, s.Commands, s.Dismissals)

		for i, m := range s.Mismatches {
			if i == 3 && !verbose {
				fmt.Fprintf(w, "  ... %d more (use --verbose)\n", len(s.Mismatches)-i)
				break
			}
			fmt.Fprintf(w, "  seq %d idx %d: logged %s, replayed %s\n", m.Seq, m.Idx, orNone(m.Want), orNone(m.Got))
		}
		fmt.Fprintln(w)
	}

	if summary.AllDeterministic {
		fmt.Fprintln(w, "\u2713 All sessions verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "\u2717 Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
