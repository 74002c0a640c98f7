package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/qrscan/internal/scan"
)

// ReadSession retrieves a session by ID.
// Returns sql.ErrNoRows (wrapped) if not found.
func (s *Store) ReadSession(ctx context.Context, id string) (SessionRecord, error) {
	var rec SessionRecord
	var ended int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, config_hash, config, ended, last_seq
		FROM sessions
		WHERE id = ?
	`, id).Scan(&rec.ID, &rec.ConfigHash, &rec.Config, &ended, &rec.LastSeq)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("read session: %w", err)
	}
	rec.Ended = ended != 0
	return rec, nil
}

// ListSessions returns all sessions ordered by ID.
// Session IDs are UUIDv7 in production, so ID order is creation order.
func (s *Store) ListSessions(ctx context.Context) ([]SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, config_hash, config, ended, last_seq
		FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionRecord{}
	for rows.Next() {
		var rec SessionRecord
		var ended int
		if err := rows.Scan(&rec.ID, &rec.ConfigHash, &rec.Config, &ended, &rec.LastSeq); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec.Ended = ended != 0
		sessions = append(sessions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadEvents returns a session's decode events in seq order.
// Returns an empty slice (not nil) if the session has no events.
func (s *Store) ReadEvents(ctx context.Context, sessionID string) ([]EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, payload, bounds
		FROM decode_events
		WHERE session_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []EventRecord{}
	for rows.Next() {
		var (
			rec     EventRecord
			payload sql.NullString
			bounds  sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Event.Seq, &payload, &bounds); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		rec.Event.Payload = payloadFromNull(payload)
		if rec.Event.Bounds, err = unmarshalBounds(bounds); err != nil {
			return nil, err
		}
		events = append(events, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ReadCommands returns a session's commands in (seq, idx) order.
// Returns an empty slice (not nil) if the session has no commands.
func (s *Store) ReadCommands(ctx context.Context, sessionID string) ([]CommandRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, idx, kind, text, bounds
		FROM commands
		WHERE session_id = ?
		ORDER BY seq ASC, idx ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer rows.Close()

	cmds := []CommandRecord{}
	for rows.Next() {
		var (
			rec    CommandRecord
			kind   string
			bounds sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Seq, &rec.Idx, &kind, &rec.Command.Text, &bounds); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		rec.Command.Kind = scan.CommandKind(kind)
		if rec.Command.Bounds, err = unmarshalBounds(bounds); err != nil {
			return nil, err
		}
		cmds = append(cmds, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commands: %w", err)
	}
	return cmds, nil
}

// ReadPrompts returns a session's URL prompts in seq order.
func (s *Store) ReadPrompts(ctx context.Context, sessionID string) ([]PromptRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, payload, outcome, COALESCE(answered_seq, 0)
		FROM prompts
		WHERE session_id = ?
		ORDER BY seq ASC, payload COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query prompts: %w", err)
	}
	defer rows.Close()

	prompts := []PromptRecord{}
	for rows.Next() {
		var (
			rec     PromptRecord
			outcome string
		)
		if err := rows.Scan(&rec.Seq, &rec.Payload, &outcome, &rec.AnsweredSeq); err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		rec.Outcome = PromptOutcome(outcome)
		prompts = append(prompts, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompts: %w", err)
	}
	return prompts, nil
}
