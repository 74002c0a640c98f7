package present

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/qrscan/internal/scan"
)

// Presenter is the contract Prompting decorates. session.Presenter has the
// same method set.
type Presenter interface {
	Apply(ctx context.Context, cmd scan.Command) error
}

// AnswerFunc receives the user's answer to a prompt.
type AnswerFunc func(payload string, accepted bool)

// Prompting forwards every command to next and, for prompt_open_url, asks
// confirm in the background. Accepted URLs go to launch. Every answer is
// reported to onAnswer, accepted or not. With a nil confirm the prompt is
// only presented and stays unanswered.
//
// Apply never waits for the user. Call Wait before tearing down the session
// so outstanding questions are answered or cancelled.
type Prompting struct {
	next     Presenter
	confirm  Confirmer
	launch   Launcher
	onAnswer AnswerFunc

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	g      *errgroup.Group
}

// NewPrompting creates a Prompting presenter. onAnswer may be nil.
// ctx bounds every outstanding question and launch.
func NewPrompting(ctx context.Context, next Presenter, confirm Confirmer, launch Launcher, onAnswer AnswerFunc) *Prompting {
	ctx, cancel := context.WithCancel(ctx)
	return &Prompting{
		next:     next,
		confirm:  confirm,
		launch:   launch,
		onAnswer: onAnswer,
		ctx:      ctx,
		cancel:   cancel,
		g:        &errgroup.Group{},
	}
}

// Apply forwards cmd to the wrapped presenter and starts a question for
// prompt_open_url commands.
func (p *Prompting) Apply(ctx context.Context, cmd scan.Command) error {
	if err := p.next.Apply(ctx, cmd); err != nil {
		return err
	}
	if cmd.Kind != scan.KindPromptOpenURL || p.confirm == nil {
		return nil
	}

	url := cmd.Text
	p.mu.Lock()
	defer p.mu.Unlock()
	p.g.Go(func() error {
		return p.ask(url)
	})
	return nil
}

func (p *Prompting) ask(url string) error {
	accepted, err := p.confirm.Confirm(p.ctx, url)
	if err != nil {
		slog.Warn("prompt abandoned", "url", url, "error", err)
		return nil
	}

	var launchErr error
	if accepted {
		if err := p.launch.Launch(p.ctx, url); err != nil {
			slog.Error("failed to open url", "url", url, "error", err)
			launchErr = fmt.Errorf("open %s: %w", url, err)
		}
	}

	if p.onAnswer != nil {
		p.onAnswer(url, accepted)
	}
	return launchErr
}

// Wait blocks until every question has been answered and returns the first
// launch failure.
func (p *Prompting) Wait() error {
	p.mu.Lock()
	g := p.g
	p.mu.Unlock()
	return g.Wait()
}

// Close cancels outstanding questions and waits for them to return.
func (p *Prompting) Close() error {
	p.cancel()
	return p.Wait()
}
