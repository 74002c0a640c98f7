package session

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/qrscan/internal/reconcile"
	"github.com/roach88/qrscan/internal/scan"
	"github.com/roach88/qrscan/internal/store"
)

// Mismatch is one position where replayed output differs from the log.
// Want or Got is empty when one side has no command at that position.
type Mismatch struct {
	Seq  int64  `json:"seq"`
	Idx  int    `json:"idx"`
	Want string `json:"want"`
	Got  string `json:"got"`
}

// ReplayResult summarises a replayed session.
type ReplayResult struct {
	SessionID     string     `json:"session_id"`
	Events        int        `json:"events"`
	Commands      int        `json:"commands"`
	Dismissals    int        `json:"dismissals"`
	Mismatches    []Mismatch `json:"mismatches"`
	Deterministic bool       `json:"deterministic"`
}

// replayItem is a logged decode event or a logged dismissal, keyed by the
// seq the session processed it at.
type replayItem struct {
	seq     int64
	event   *scan.DecodeEvent
	dismiss string
}

// Replay re-runs a recorded session through a fresh reconciler and compares
// the output with the stored command log.
//
// Dismissals are fed back at their answered seq so a session recorded with
// re-prompt-on-dismiss enabled replays identically. Accepted prompts do not
// touch reconciler state and are skipped. opts must match the configuration
// the session was recorded with.
func Replay(ctx context.Context, st *store.Store, sessionID string, opts ...reconcile.Option) (ReplayResult, error) {
	if _, err := st.ReadSession(ctx, sessionID); err != nil {
		return ReplayResult{}, err
	}

	events, err := st.ReadEvents(ctx, sessionID)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay %s: %w", sessionID, err)
	}
	prompts, err := st.ReadPrompts(ctx, sessionID)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay %s: %w", sessionID, err)
	}
	logged, err := st.ReadCommands(ctx, sessionID)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay %s: %w", sessionID, err)
	}

	result := ReplayResult{
		SessionID:  sessionID,
		Events:     len(events),
		Commands:   len(logged),
		Mismatches: []Mismatch{},
	}

	items := make([]replayItem, 0, len(events)+len(prompts))
	for i := range events {
		items = append(items, replayItem{seq: events[i].Event.Seq, event: &events[i].Event})
	}
	for _, p := range prompts {
		if p.Outcome == store.PromptDismissed && p.AnsweredSeq > 0 {
			items = append(items, replayItem{seq: p.AnsweredSeq, dismiss: p.Payload})
			result.Dismissals++
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].seq < items[j].seq
	})

	want := make(map[int64][]scan.Command, len(events))
	for _, rec := range logged {
		want[rec.Seq] = append(want[rec.Seq], rec.Command)
	}

	r := reconcile.New(opts...)
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return ReplayResult{}, err
		}
		if it.event == nil {
			r.Dismissed(it.dismiss)
			continue
		}
		got := r.Process(*it.event)
		result.Mismatches = append(result.Mismatches, diffCommands(it.seq, want[it.seq], got)...)
		delete(want, it.seq)
	}

	// Commands logged against a seq with no event.
	orphans := make([]int64, 0, len(want))
	for seq := range want {
		orphans = append(orphans, seq)
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i] < orphans[j] })
	for _, seq := range orphans {
		result.Mismatches = append(result.Mismatches, diffCommands(seq, want[seq], nil)...)
	}

	result.Deterministic = len(result.Mismatches) == 0
	return result, nil
}

func diffCommands(seq int64, want, got []scan.Command) []Mismatch {
	n := max(len(want), len(got))
	var out []Mismatch
	for idx := 0; idx < n; idx++ {
		var w, g string
		switch {
		case idx >= len(want):
			g = got[idx].String()
		case idx >= len(got):
			w = want[idx].String()
		case want[idx].Equal(got[idx]):
			continue
		default:
			w, g = want[idx].String(), got[idx].String()
		}
		out = append(out, Mismatch{Seq: seq, Idx: idx, Want: w, Got: g})
	}
	return out
}
