package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qrscan/internal/scan"
	"github.com/roach88/qrscan/internal/testutil"
)

func strp(s string) *string { return &s }

func TestRun_SpecScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "abc",
		Description: "label persists",
		Steps: []Step{
			{Payload: strp("ABC"), Bounds: &scan.Rect{Width: 1, Height: 1}},
			{Payload: strp("ABC"), Bounds: &scan.Rect{X: 1, Width: 1, Height: 1}},
			{},
			{Payload: strp("ABC"), Bounds: &scan.Rect{X: 2, Width: 1, Height: 1}},
		},
		Expect: []string{
			"ShowOverlay(0,0 1x1)",
			`UpdateLabel("ABC")`,
			"ShowOverlay(1,0 1x1)",
			"HideOverlay",
			"ShowOverlay(2,0 1x1)",
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, testutil.DefaultSessionID, result.SessionID)
	require.Len(t, result.Trace, 4)
	for i, ev := range result.Trace {
		assert.Equal(t, int64(i+1), ev.Seq)
		assert.Equal(t, EventFrame, ev.Type)
	}
	assert.Nil(t, result.Trace[2].Payload)
	assert.Nil(t, result.Trace[2].Bounds)
}

func TestRun_ExpectMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong",
		Description: "expects a second label",
		Steps: []Step{
			{Payload: strp("ABC"), Bounds: &scan.Rect{}, Repeat: 2},
		},
		Expect: []string{
			"ShowOverlay(0,0 0x0)",
			`UpdateLabel("ABC")`,
			"ShowOverlay(0,0 0x0)",
			`UpdateLabel("ABC")`,
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `command 3: expected UpdateLabel("ABC"), got (none)`)
}

func TestRun_AnswersConsumeSeqs(t *testing.T) {
	url := "https://example.com"
	scenario := &Scenario{
		Name:        "answers",
		Description: "answer between frames",
		SessionID:   "fixed-session",
		Steps: []Step{
			{Payload: strp(url), Bounds: &scan.Rect{}},
			{Answer: &Answer{Payload: url, Accepted: false}},
			{Payload: strp(url), Bounds: &scan.Rect{}},
		},
		Assertions: []Assertion{
			{Type: AssertCommandCount, Kind: string(scan.KindPromptOpenURL), Count: 1},
			{Type: AssertLogRow, Table: "prompts", Where: map[string]interface{}{"seq": 1},
				Expect: map[string]interface{}{"outcome": "dismissed", "answered_seq": 2}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "fixed-session", result.SessionID)
	require.Len(t, result.Trace, 3)
	assert.Equal(t, EventAnswer, result.Trace[1].Type)
	assert.Equal(t, int64(2), result.Trace[1].Seq)
	assert.Empty(t, result.Trace[1].Commands)
	assert.Equal(t, int64(3), result.Trace[2].Seq)
}

func TestRun_InvalidConfig(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_config",
		Description: "scheme with a space",
		Config:      &ConfigOverrides{OpenSchemes: []string{"not a scheme"}},
		Steps:       []Step{{}},
		Expect:      []string{"HideOverlay"},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad_config")
}

func TestRun_Deterministic(t *testing.T) {
	scenario := &Scenario{
		Name:        "twice",
		Description: "same steps, same trace",
		Steps: []Step{
			{Payload: strp("https://example.com"), Bounds: &scan.Rect{Width: 2}, Repeat: 3},
			{},
		},
		Assertions: []Assertion{{Type: AssertCommandCount, Kind: "hide_overlay", Count: 1}},
	}

	a, err := Run(scenario)
	require.NoError(t, err)
	b, err := Run(scenario)
	require.NoError(t, err)

	snapA, err := Snapshot(scenario.Name, a)
	require.NoError(t, err)
	snapB, err := Snapshot(scenario.Name, b)
	require.NoError(t, err)
	assert.Equal(t, string(snapA), string(snapB))
}

func TestSnapshot_Shape(t *testing.T) {
	scenario := &Scenario{
		Name:        "shape",
		Description: "one miss",
		Steps:       []Step{{}},
		Expect:      []string{"HideOverlay"},
	}
	result, err := Run(scenario)
	require.NoError(t, err)

	snap, err := Snapshot("shape", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"shape","session_id":"test-session-default","trace":[{"commands":[{"kind":"hide_overlay"}],"seq":1,"type":"frame"}]}`,
		string(snap))
}

func TestResult_CommandStrings(t *testing.T) {
	r := NewResult()
	r.Trace = []TraceEvent{
		{Seq: 1, Type: EventFrame, Commands: []scan.Command{scan.HideOverlay()}},
		{Seq: 2, Type: EventAnswer},
		{Seq: 3, Type: EventFrame, Commands: []scan.Command{scan.UpdateLabel("x")}},
	}
	assert.Equal(t, []string{"HideOverlay", `UpdateLabel("x")`}, r.CommandStrings())

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.True(t, strings.Contains(r.Errors[0], "boom"))
}
