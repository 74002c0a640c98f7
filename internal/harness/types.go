package harness

import (
	"github.com/roach88/qrscan/internal/reconcile"
	"github.com/roach88/qrscan/internal/scan"
)

// Trace event types.
const (
	EventFrame  = "frame"
	EventAnswer = "answer"
)

// TraceEvent is one processed step: a frame and the commands it produced,
// or a prompt answer.
type TraceEvent struct {
	Seq      int64          `json:"seq"`
	Type     string         `json:"type"`
	Payload  *string        `json:"payload,omitempty"`
	Bounds   *scan.Rect     `json:"bounds,omitempty"`
	Accepted *bool          `json:"accepted,omitempty"`
	Commands []scan.Command `json:"commands,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when expect, every assertion, and the replay check hold.
	Pass bool `json:"pass"`

	SessionID string `json:"session_id"`

	// Trace holds every step in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the reconciler state after the last step.
	State reconcile.State `json:"state"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Commands returns every command in the trace, in emission order.
func (r *Result) Commands() []scan.Command {
	var out []scan.Command
	for _, ev := range r.Trace {
		out = append(out, ev.Commands...)
	}
	return out
}

// CommandStrings returns Commands in compact form.
func (r *Result) CommandStrings() []string {
	cmds := r.Commands()
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.String()
	}
	return out
}
