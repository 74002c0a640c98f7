// Package reconcile turns per-frame decode outcomes into presentation
// commands.
//
// A Reconciler is a fold over the decode event stream. It remembers the last
// payload it displayed and the set of payloads it has already offered to open
// as a URL, and nothing else. It performs no I/O and never fails; every
// rendering side effect is returned as a scan.Command value.
//
// A Reconciler is not safe for concurrent use. Callers deliver events
// serially, in arrival order, and finish one Process call before starting the
// next (the session loop in internal/session upholds this).
package reconcile

import (
	"net/url"
	"strings"

	"github.com/roach88/qrscan/internal/scan"
)

// Opener answers the host platform's "can this URL be opened?" query.
// The answer is authoritative; a false result is never retried.
type Opener interface {
	CanOpen(u *url.URL) bool
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(u *url.URL) bool

// CanOpen calls f(u).
func (f OpenerFunc) CanOpen(u *url.URL) bool { return f(u) }

// SchemeOpener reports a URL as openable when its scheme is in the set.
// Schemes are compared lowercase.
type SchemeOpener map[string]struct{}

// NewSchemeOpener builds a SchemeOpener from a scheme allow-list.
func NewSchemeOpener(schemes ...string) SchemeOpener {
	s := make(SchemeOpener, len(schemes))
	for _, scheme := range schemes {
		s[strings.ToLower(scheme)] = struct{}{}
	}
	return s
}

// CanOpen reports whether u's scheme is allowed.
func (s SchemeOpener) CanOpen(u *url.URL) bool {
	_, ok := s[strings.ToLower(u.Scheme)]
	return ok
}

// DefaultSchemes are the schemes a terminal host can hand to a browser.
var DefaultSchemes = []string{"http", "https"}

// State is a snapshot of the reconciler's memory.
type State struct {
	// LastPayload is the most recently displayed payload, nil before the
	// first decoded frame.
	LastPayload *string

	// Prompted lists payloads that have been offered as URLs, in prompt order.
	Prompted []string
}

// Reconciler is the frame-to-presentation policy for one scanning session.
type Reconciler struct {
	opener            Opener
	repromptOnDismiss bool

	lastPayload *string
	prompted    map[string]struct{}
	order       []string // prompt order, for State()
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithOpener sets the URL-capability query.
// Default: NewSchemeOpener(DefaultSchemes...).
func WithOpener(o Opener) Option {
	return func(r *Reconciler) {
		if o != nil {
			r.opener = o
		}
	}
}

// WithRepromptOnDismiss lets Dismissed forget a payload so the next frame
// carrying it prompts again. Off by default, in which case the prompted set
// only grows for the lifetime of the session.
func WithRepromptOnDismiss(enabled bool) Option {
	return func(r *Reconciler) {
		r.repromptOnDismiss = enabled
	}
}

// New creates a Reconciler with empty state.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{
		opener:   NewSchemeOpener(DefaultSchemes...),
		prompted: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Process folds one decode event into the state and returns the commands it
// produces, in the order overlay, label, prompt.
//
//   - No code: HideOverlay. The label keeps its last value so a single-frame
//     dropout does not flicker.
//   - Code: ShowOverlay on every frame; UpdateLabel only when the payload
//     differs from the one on screen; PromptOpenURL at most once per distinct
//     payload, and only for absolute URLs the Opener accepts.
func (r *Reconciler) Process(ev scan.DecodeEvent) []scan.Command {
	if ev.Payload == nil {
		return []scan.Command{scan.HideOverlay()}
	}
	payload := *ev.Payload

	cmds := make([]scan.Command, 0, 3)
	cmds = append(cmds, scan.ShowOverlay(ev.Bounds))

	if r.lastPayload == nil || *r.lastPayload != payload {
		cmds = append(cmds, scan.UpdateLabel(payload))
		r.lastPayload = &payload
	}

	if _, done := r.prompted[payload]; !done {
		if u, ok := ParseURL(payload); ok && r.opener.CanOpen(u) {
			cmds = append(cmds, scan.PromptOpenURL(payload))
			r.prompted[payload] = struct{}{}
			r.order = append(r.order, payload)
		}
	}

	return cmds
}

// Dismissed records that the user cancelled the prompt for payload.
// It reports whether the payload was forgotten, which only happens when
// re-prompting on dismiss is enabled.
func (r *Reconciler) Dismissed(payload string) bool {
	if !r.repromptOnDismiss {
		return false
	}
	if _, ok := r.prompted[payload]; !ok {
		return false
	}
	delete(r.prompted, payload)
	for i, p := range r.order {
		if p == payload {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Prompted reports whether payload has already been offered.
func (r *Reconciler) Prompted(payload string) bool {
	_, ok := r.prompted[payload]
	return ok
}

// State returns a copy of the reconciler's memory.
func (r *Reconciler) State() State {
	s := State{Prompted: append([]string(nil), r.order...)}
	if r.lastPayload != nil {
		p := *r.lastPayload
		s.LastPayload = &p
	}
	return s
}

// ParseURL reports whether text is a well-formed absolute URL with both a
// scheme and an authority, returning the parsed form when it is.
func ParseURL(text string) (*url.URL, bool) {
	u, err := url.Parse(text)
	if err != nil {
		return nil, false
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, false
	}
	return u, true
}
