package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// SessionInfo is one line of the sessions listing.
type SessionInfo struct {
	ID         string `json:"id"`
	ConfigHash string `json:"config_hash"`
	Ended      bool   `json:"ended"`
	LastSeq    int64  `json:"last_seq"`
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	var database string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		Long: `List the sessions recorded in a database, oldest first.

Examples:
  qrscan sessions --db ./scans.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			st, err := openExisting(database)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.ListSessions(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list sessions", err)
			}

			infos := make([]SessionInfo, len(records))
			for i, r := range records {
				infos[i] = SessionInfo{ID: r.ID, ConfigHash: r.ConfigHash, Ended: r.Ended, LastSeq: r.LastSeq}
			}

			if rootOpts.Format == "json" {
				return writeResponse(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: infos})
			}

			w := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintln(w, "No sessions found in database.")
				return nil
			}
			for _, s := range infos {
				state := "running"
				if s.Ended {
					state = "ended"
				}
				fmt.Fprintf(w, "%s  %-7s  seq %-6d  config %s\n", s.ID, state, s.LastSeq, shortHash(s.ConfigHash))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
