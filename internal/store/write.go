package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/qrscan/internal/scan"
)

// CreateSession inserts a session row.
// Uses ON CONFLICT(id) DO NOTHING - reopening an existing session is a no-op.
func (s *Store) CreateSession(ctx context.Context, rec SessionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, config_hash, config)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, rec.ID, rec.ConfigHash, rec.Config)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// EndSession marks a session as ended at lastSeq.
func (s *Store) EndSession(ctx context.Context, sessionID string, lastSeq int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET ended = 1, last_seq = MAX(last_seq, ?)
		WHERE id = ?
	`, lastSeq, sessionID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end session: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("end session: %w", sql.ErrNoRows)
	}
	return nil
}

// WriteStep atomically records one processed event and the commands it
// produced. Every prompt_open_url command also gets a pending prompts row.
//
// Returns the event's content-addressed ID.
//
// The event must already carry its session seq. Re-writing the same step is
// a no-op (ON CONFLICT DO NOTHING on every insert).
func (s *Store) WriteStep(ctx context.Context, sessionID string, ev scan.DecodeEvent, cmds []scan.Command) (string, error) {
	eventID, err := scan.EventID(sessionID, ev)
	if err != nil {
		return "", fmt.Errorf("write step: %w", err)
	}
	bounds, err := marshalBounds(ev.Bounds)
	if err != nil {
		return "", fmt.Errorf("write step: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("write step: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO decode_events (id, session_id, seq, payload, bounds)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, eventID, sessionID, ev.Seq, nullablePayload(ev.Payload), bounds)
	if err != nil {
		return "", fmt.Errorf("write step: insert event: %w", err)
	}

	for idx, cmd := range cmds {
		cmdID, err := scan.CommandID(sessionID, ev.Seq, idx, cmd)
		if err != nil {
			return "", fmt.Errorf("write step: %w", err)
		}
		cmdBounds, err := marshalBounds(cmd.Bounds)
		if err != nil {
			return "", fmt.Errorf("write step: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO commands (id, session_id, seq, idx, kind, text, bounds)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, cmdID, sessionID, ev.Seq, idx, string(cmd.Kind), cmd.Text, cmdBounds)
		if err != nil {
			return "", fmt.Errorf("write step: insert command %d: %w", idx, err)
		}

		if cmd.Kind == scan.KindPromptOpenURL {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO prompts (session_id, seq, payload)
				VALUES (?, ?, ?)
				ON CONFLICT DO NOTHING
			`, sessionID, ev.Seq, cmd.Text)
			if err != nil {
				return "", fmt.Errorf("write step: insert prompt: %w", err)
			}
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions SET last_seq = MAX(last_seq, ?) WHERE id = ?
	`, ev.Seq, sessionID)
	if err != nil {
		return "", fmt.Errorf("write step: update session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("write step: commit: %w", err)
	}
	return eventID, nil
}

// SetPromptOutcome records the user's answer to the most recent pending
// prompt for payload, processed at session seq. Returns false if there was
// no pending prompt.
func (s *Store) SetPromptOutcome(ctx context.Context, sessionID, payload string, outcome PromptOutcome, seq int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE prompts SET outcome = ?, answered_seq = ?
		WHERE session_id = ? AND payload = ? AND outcome = 'pending'
		  AND seq = (
			SELECT MAX(seq) FROM prompts
			WHERE session_id = ? AND payload = ? AND outcome = 'pending'
		  )
	`, string(outcome), seq, sessionID, payload, sessionID, payload)
	if err != nil {
		return false, fmt.Errorf("set prompt outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set prompt outcome: rows affected: %w", err)
	}
	return n > 0, nil
}
