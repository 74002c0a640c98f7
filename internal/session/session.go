package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/qrscan/internal/reconcile"
	"github.com/roach88/qrscan/internal/scan"
	"github.com/roach88/qrscan/internal/store"
)

// Presenter applies presentation commands.
//
// Apply must not block on user interaction. A prompt is shown and the call
// returns; the answer comes back later through Session.Answer.
type Presenter interface {
	Apply(ctx context.Context, cmd scan.Command) error
}

// Step is one processed decode event and the commands it produced.
type Step struct {
	Event    scan.DecodeEvent
	Commands []scan.Command
}

// Session is the single-writer loop for one scanning session.
//
// Thread-safety model:
//   - Enqueue, Answer, Stop: safe from any goroutine
//   - Run: must be called from exactly one goroutine, once
type Session struct {
	id         string
	reconciler *reconcile.Reconciler
	presenter  Presenter
	store      *store.Store
	clock      Clock
	queue      *itemQueue

	configHash string
	configJSON string
	observer   func(Step)

	mu   sync.Mutex
	errs []error
}

// Option configures a Session.
type Option func(*Session)

// WithStore records every step to the session log.
func WithStore(st *store.Store) Option {
	return func(s *Session) {
		s.store = st
	}
}

// WithClock replaces the logical clock (tests use a deterministic one).
func WithClock(c Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// WithReconciler configures the session's reconciler.
func WithReconciler(opts ...reconcile.Option) Option {
	return func(s *Session) {
		s.reconciler = reconcile.New(opts...)
	}
}

// WithConfigRecord stores the effective config alongside the session row.
// hash fingerprints cfgJSON; see scan.ConfigHash.
func WithConfigRecord(hash, cfgJSON string) Option {
	return func(s *Session) {
		s.configHash = hash
		s.configJSON = cfgJSON
	}
}

// WithObserver calls fn after each decode event is processed and applied.
// fn runs on the Run goroutine and must not call back into the session.
func WithObserver(fn func(Step)) Option {
	return func(s *Session) {
		s.observer = fn
	}
}

// New creates a session with a fresh reconciler and an ID from ids.
func New(p Presenter, ids IDGenerator, opts ...Option) *Session {
	s := &Session{
		id:         ids.Generate(),
		reconciler: reconcile.New(),
		presenter:  p,
		clock:      NewClock(),
		queue:      newItemQueue(),
		configJSON: "{}",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Enqueue submits a decode event. Returns false once the session is stopped.
func (s *Session) Enqueue(ev scan.DecodeEvent) bool {
	return s.queue.Enqueue(item{Type: itemDecode, Event: ev})
}

// Answer reports the user's answer to the prompt for payload.
// Returns false once the session is stopped.
func (s *Session) Answer(payload string, accepted bool) bool {
	return s.queue.Enqueue(item{Type: itemAnswer, Payload: payload, Accepted: accepted})
}

// QueueLen returns the number of items waiting to be processed.
func (s *Session) QueueLen() int {
	return s.queue.Len()
}

// Stop closes the queue. Run drains what is already queued and returns.
func (s *Session) Stop() {
	s.queue.Close()
}

// Errors returns the runtime errors observed so far.
func (s *Session) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

// State returns a snapshot of the reconciler state. Only meaningful after Run
// has returned, or from the observer.
func (s *Session) State() reconcile.State {
	return s.reconciler.State()
}

// Run starts the event loop and blocks until ctx is cancelled or Stop is
// called and the queue has drained.
//
// Returns ctx.Err() on cancellation, nil after Stop, or an error if the
// session row could not be created.
func (s *Session) Run(ctx context.Context) error {
	log := slog.With("session", s.id)

	if s.store != nil {
		err := s.store.CreateSession(ctx, store.SessionRecord{
			ID:         s.id,
			ConfigHash: s.configHash,
			Config:     s.configJSON,
		})
		if err != nil {
			return fmt.Errorf("start session: %w", err)
		}
	}

	log.Info("session starting")
	defer s.end(log)

	for {
		it, ok := s.queue.TryDequeue()
		if ok {
			s.process(ctx, log, it)
			continue
		}

		select {
		case <-ctx.Done():
			log.Info("session stopping: context cancelled")
			s.queue.Close()
			return ctx.Err()

		case <-s.queue.Wait():
			// The signal channel closes with the queue, so this fires
			// immediately once stopped.
			if s.queue.Len() == 0 && s.queue.Closed() {
				log.Info("session stopping: queue closed")
				return nil
			}
		}
	}
}

// end marks the session ended in the log. Uses a fresh context because the
// run context is usually already cancelled here.
func (s *Session) end(log *slog.Logger) {
	if s.store == nil {
		return
	}
	if err := s.store.EndSession(context.Background(), s.id, s.clock.Current()); err != nil {
		log.Error("failed to end session", "error", err)
	}
}

// process handles one item. Called only from Run.
func (s *Session) process(ctx context.Context, log *slog.Logger, it item) {
	seq := s.clock.Next()

	switch it.Type {
	case itemDecode:
		s.processDecode(ctx, log, seq, it.Event)
	case itemAnswer:
		s.processAnswer(ctx, log, seq, it.Payload, it.Accepted)
	default:
		log.Error("unknown item type", "type", it.Type, "seq", seq)
	}
}

func (s *Session) processDecode(ctx context.Context, log *slog.Logger, seq int64, ev scan.DecodeEvent) {
	ev.Seq = seq
	if ev.Payload == nil {
		ev.Bounds = nil
	}

	cmds := s.reconciler.Process(ev)

	log.Debug("processing frame",
		"seq", seq,
		"found", ev.HasCode(),
		"commands", len(cmds),
	)

	if s.store != nil {
		if _, err := s.store.WriteStep(ctx, s.id, ev, cmds); err != nil {
			s.fail(log, &RuntimeError{
				Code:      ErrCodeStoreFailed,
				Message:   "failed to record step",
				SessionID: s.id,
				Seq:       seq,
				Err:       err,
			})
		}
	}

	for _, cmd := range cmds {
		if err := s.presenter.Apply(ctx, cmd); err != nil {
			s.fail(log, &RuntimeError{
				Code:      ErrCodePresentFailed,
				Message:   fmt.Sprintf("presenter rejected %s", cmd.Kind),
				SessionID: s.id,
				Seq:       seq,
				Err:       err,
			})
		}
	}

	if s.observer != nil {
		s.observer(Step{Event: ev, Commands: cmds})
	}
}

func (s *Session) processAnswer(ctx context.Context, log *slog.Logger, seq int64, payload string, accepted bool) {
	outcome := store.PromptAccepted
	if !accepted {
		outcome = store.PromptDismissed
	}
	log.Debug("prompt answered", "seq", seq, "payload", payload, "outcome", outcome)

	if s.store != nil {
		if _, err := s.store.SetPromptOutcome(ctx, s.id, payload, outcome, seq); err != nil {
			s.fail(log, &RuntimeError{
				Code:      ErrCodeStoreFailed,
				Message:   "failed to record prompt outcome",
				SessionID: s.id,
				Seq:       seq,
				Err:       err,
			})
		}
	}

	if !accepted && s.reconciler.Dismissed(payload) {
		log.Debug("prompt forgotten after dismiss", "payload", payload)
	}
}

func (s *Session) fail(log *slog.Logger, err *RuntimeError) {
	log.Error("session error", "code", err.Code, "seq", err.Seq, "error", err.Err)
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
}
