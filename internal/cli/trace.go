package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/qrscan/internal/scan"
	"github.com/roach88/qrscan/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	SessionID string // optional - defaults to the most recent session
}

// TraceStep is one decode event in the timeline.
type TraceStep struct {
	Seq      int64      `json:"seq"`
	Payload  *string    `json:"payload,omitempty"`
	Bounds   *scan.Rect `json:"bounds,omitempty"`
	Commands []string   `json:"commands"`
}

// TracePrompt is one URL prompt and how it was answered.
type TracePrompt struct {
	Seq         int64  `json:"seq"`
	Payload     string `json:"payload"`
	Outcome     string `json:"outcome"`
	AnsweredSeq int64  `json:"answered_seq,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	SessionID  string        `json:"session_id"`
	ConfigHash string        `json:"config_hash"`
	Config     string        `json:"config"`
	Ended      bool          `json:"ended"`
	LastSeq    int64         `json:"last_seq"`
	Timeline   []TraceStep   `json:"timeline"`
	Prompts    []TracePrompt `json:"prompts"`
	Stats      TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Frames   int `json:"frames"`
	Misses   int `json:"misses"`
	Commands int `json:"commands"`
	Prompts  int `json:"prompts"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the timeline of a recorded session",
		Long: `Show a recorded session: every decode event in seq order with the
commands it produced, followed by the URL prompts and their outcomes.

Without --session the most recent session is shown.

Examples:
  qrscan trace --db ./scans.db
  qrscan trace --db ./scans.db --session 01928c7e-...
  qrscan trace --db ./scans.db --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "session to trace (default: most recent)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	id := opts.SessionID
	if id == "" {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		if len(sessions) == 0 {
			return NewExitError(ExitCommandError, "no sessions found in database")
		}
		// UUIDv7 IDs sort by creation time.
		id = sessions[len(sessions)-1].ID
	}

	result, err := buildTrace(ctx, st, id)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		return writeResponse(cmd.OutOrStdout(), CLIResponse{
			Status:    "ok",
			Data:      result,
			SessionID: result.SessionID,
		})
	}
	outputTraceText(cmd, result)
	return nil
}

func buildTrace(ctx context.Context, st *store.Store, id string) (TraceResult, error) {
	rec, err := st.ReadSession(ctx, id)
	if err != nil {
		return TraceResult{}, WrapExitError(ExitCommandError, fmt.Sprintf("session %s not found", id), err)
	}
	events, err := st.ReadEvents(ctx, id)
	if err != nil {
		return TraceResult{}, WrapExitError(ExitCommandError, "failed to read events", err)
	}
	cmds, err := st.ReadCommands(ctx, id)
	if err != nil {
		return TraceResult{}, WrapExitError(ExitCommandError, "failed to read commands", err)
	}
	prompts, err := st.ReadPrompts(ctx, id)
	if err != nil {
		return TraceResult{}, WrapExitError(ExitCommandError, "failed to read prompts", err)
	}

	bySeq := make(map[int64][]string, len(events))
	for _, c := range cmds {
		bySeq[c.Seq] = append(bySeq[c.Seq], c.Command.String())
	}

	result := TraceResult{
		SessionID:  rec.ID,
		ConfigHash: rec.ConfigHash,
		Config:     rec.Config,
		Ended:      rec.Ended,
		LastSeq:    rec.LastSeq,
		Timeline:   make([]TraceStep, 0, len(events)),
		Prompts:    make([]TracePrompt, 0, len(prompts)),
		Stats: TraceStats{
			Frames:   len(events),
			Commands: len(cmds),
			Prompts:  len(prompts),
		},
	}

	for _, e := range events {
		step := TraceStep{
			Seq:      e.Event.Seq,
			Payload:  e.Event.Payload,
			Bounds:   e.Event.Bounds,
			Commands: bySeq[e.Event.Seq],
		}
		if step.Commands == nil {
			step.Commands = []string{}
		}
		if !e.Event.HasCode() {
			result.Stats.Misses++
		}
		result.Timeline = append(result.Timeline, step)
	}

	for _, p := range prompts {
		result.Prompts = append(result.Prompts, TracePrompt{
			Seq:         p.Seq,
			Payload:     p.Payload,
			Outcome:     string(p.Outcome),
			AnsweredSeq: p.AnsweredSeq,
		})
	}

	return result, nil
}

func outputTraceText(cmd *cobra.Command, result TraceResult) {
	w := cmd.OutOrStdout()

	state := "running"
	if result.Ended {
		state = "ended"
	}
	fmt.Fprintf(w, "Session: %s (%s, last seq %d)\n", result.SessionID, state, result.LastSeq)
	fmt.Fprintf(w, "Config: %s\n", result.Config)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Timeline:")
	for _, step := range result.Timeline {
		if step.Payload == nil {
			fmt.Fprintf(w, "  [%d] miss\n", step.Seq)
		} else {
			bounds := "?"
			if step.Bounds != nil {
				bounds = step.Bounds.String()
			}
			fmt.Fprintf(w, "  [%d] %q at %s\n", step.Seq, *step.Payload, bounds)
		}
		for _, c := range step.Commands {
			fmt.Fprintf(w, "        %s\n", c)
		}
	}

	if len(result.Prompts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Prompts:")
		for _, p := range result.Prompts {
			if p.AnsweredSeq > 0 {
				fmt.Fprintf(w, "  [%d] %s: %s at seq %d\n", p.Seq, p.Payload, p.Outcome, p.AnsweredSeq)
			} else {
				fmt.Fprintf(w, "  [%d] %s: %s\n", p.Seq, p.Payload, p.Outcome)
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d frame(s), %d miss(es), %d command(s), %d prompt(s)\n",
		result.Stats.Frames, result.Stats.Misses, result.Stats.Commands, result.Stats.Prompts)
}

// requireFile returns an error if path does not exist.
func requireFile(path string) error {
	_, err := os.Stat(path)
	return err
}
