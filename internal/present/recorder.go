package present

import (
	"context"
	"sync"

	"github.com/roach88/qrscan/internal/scan"
)

// Recorder keeps every applied command in memory.
//
// Thread-safety: safe for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	cmds []scan.Command
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Apply records cmd. Never fails.
func (r *Recorder) Apply(_ context.Context, cmd scan.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
	return nil
}

// Commands returns a copy of the recorded commands in apply order.
func (r *Recorder) Commands() []scan.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]scan.Command(nil), r.cmds...)
}

// Strings returns the recorded commands in their compact text form.
func (r *Recorder) Strings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.cmds))
	for i, c := range r.cmds {
		out[i] = c.String()
	}
	return out
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = nil
}
