package harness

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/qrscan/internal/config"
	"github.com/roach88/qrscan/internal/present"
	"github.com/roach88/qrscan/internal/session"
	"github.com/roach88/qrscan/internal/store"
	"github.com/roach88/qrscan/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory session log. Every step is queued
// before the session starts, so seq i belongs to the i-th queued item.
//
// Execution flow:
//  1. Resolve the config (defaults plus scenario overrides)
//  2. Queue every frame and answer, then run the session until drained
//  3. Replay the recorded session and compare
//  4. Check expect and assertions
func Run(scenario *Scenario) (*Result, error) {
	cfg, err := scenarioConfig(scenario)
	if err != nil {
		return nil, err
	}
	hash, cfgJSON, err := cfg.Record()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	result := NewResult()
	frames := make(map[int64]session.Step)

	sess := session.New(
		present.NewRecorder(),
		testutil.NewFixedSessionGenerator(scenario.SessionID),
		session.WithStore(st),
		session.WithClock(testutil.NewDeterministicClock()),
		session.WithReconciler(cfg.ReconcilerOptions()...),
		session.WithConfigRecord(hash, cfgJSON),
		session.WithObserver(func(step session.Step) {
			frames[step.Event.Seq] = step
		}),
	)
	result.SessionID = sess.ID()

	var seq int64
	for _, step := range scenario.Steps {
		if step.Answer != nil {
			seq++
			accepted := step.Answer.Accepted
			payload := step.Answer.Payload
			sess.Answer(payload, accepted)
			result.Trace = append(result.Trace, TraceEvent{
				Seq:      seq,
				Type:     EventAnswer,
				Payload:  &payload,
				Accepted: &accepted,
			})
			continue
		}
		for i := 0; i < step.times(); i++ {
			seq++
			sess.Enqueue(step.Event())
			result.Trace = append(result.Trace, TraceEvent{Seq: seq, Type: EventFrame})
		}
	}

	ctx := context.Background()
	sess.Stop()
	if err := sess.Run(ctx); err != nil {
		return nil, fmt.Errorf("failed to run session: %w", err)
	}

	for i, ev := range result.Trace {
		if ev.Type != EventFrame {
			continue
		}
		step, ok := frames[ev.Seq]
		if !ok {
			result.AddError(fmt.Sprintf("frame at seq %d was not processed", ev.Seq))
			continue
		}
		result.Trace[i].Payload = step.Event.Payload
		result.Trace[i].Bounds = step.Event.Bounds
		result.Trace[i].Commands = step.Commands
	}
	result.State = sess.State()

	for _, err := range sess.Errors() {
		result.AddError(err.Error())
	}

	replay, err := session.Replay(ctx, st, sess.ID(), cfg.ReconcilerOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to replay session: %w", err)
	}
	for _, m := range replay.Mismatches {
		result.AddError(fmt.Sprintf("replay diverged at seq %d idx %d: logged %q, replayed %q", m.Seq, m.Idx, m.Want, m.Got))
	}

	if len(scenario.Expect) > 0 {
		checkExpect(result, scenario.Expect)
	}

	actx := &AssertionContext{Store: st, Ctx: ctx, SessionID: sess.ID()}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	slog.Debug("scenario finished",
		"scenario", scenario.Name,
		"steps", len(result.Trace),
		"pass", result.Pass,
	)
	return result, nil
}

// scenarioConfig applies the scenario's overrides to the defaults.
func scenarioConfig(scenario *Scenario) (config.Config, error) {
	cfg := config.Defaults()
	if o := scenario.Config; o != nil {
		if o.OpenSchemes != nil {
			cfg.OpenSchemes = o.OpenSchemes
		}
		if o.RepromptOnDismiss != nil {
			cfg.RepromptOnDismiss = *o.RepromptOnDismiss
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("scenario %s: config: %w", scenario.Name, err)
	}
	return cfg, nil
}

// checkExpect compares the full command sequence.
func checkExpect(result *Result, expect []string) {
	got := result.CommandStrings()
	n := max(len(got), len(expect))
	for i := 0; i < n; i++ {
		var g, w string
		if i < len(got) {
			g = got[i]
		}
		if i < len(expect) {
			w = expect[i]
		}
		if g != w {
			result.AddError(fmt.Sprintf("command %d: expected %s, got %s\n  full sequence: %s",
				i, orNone(w), orNone(g), strings.Join(got, ", ")))
			return
		}
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
