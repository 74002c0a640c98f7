package present

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Prompt modes, matching the config's prompt field.
const (
	PromptAsk    = "ask"
	PromptNever  = "never"
	PromptAlways = "always"
)

// Confirmer offers the user an accept/cancel choice for a URL.
type Confirmer interface {
	Confirm(ctx context.Context, url string) (bool, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, url string) (bool, error)

// Confirm calls f.
func (f ConfirmerFunc) Confirm(ctx context.Context, url string) (bool, error) {
	return f(ctx, url)
}

// Fixed returns a Confirmer that always gives the same answer.
func Fixed(accept bool) Confirmer {
	return ConfirmerFunc(func(context.Context, string) (bool, error) {
		return accept, nil
	})
}

// TerminalConfirmer asks on out and reads a y/n line from in.
// Anything other than y or yes (case-insensitive) is a cancel, as is EOF.
//
// A single goroutine reads in for the confirmer's lifetime, so a question
// abandoned on cancellation leaves the next line for the next question.
//
// Thread-safety: Confirm serialises questions, so concurrent prompts are
// asked one after another.
type TerminalConfirmer struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer

	start sync.Once
	lines chan inputLine
}

type inputLine struct {
	text string
	err  error
}

// NewTerminalConfirmer creates a confirmer reading answers from in.
func NewTerminalConfirmer(in io.Reader, out io.Writer) *TerminalConfirmer {
	return &TerminalConfirmer{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan inputLine),
	}
}

// readLines feeds c.lines until in is exhausted, then closes it.
func (c *TerminalConfirmer) readLines() {
	defer close(c.lines)
	for {
		text, err := c.in.ReadString('\n')
		if text != "" {
			c.lines <- inputLine{text: text}
		}
		if err != nil {
			if err != io.EOF {
				c.lines <- inputLine{err: err}
			}
			return
		}
	}
}

// Confirm asks whether to open url. Returns ctx.Err() if the context ends
// before an answer arrives; the question is not asked at all if it already
// has.
func (c *TerminalConfirmer) Confirm(ctx context.Context, url string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.start.Do(func() { go c.readLines() })

	if _, err := fmt.Fprintf(c.out, "Open %s? [y/N] ", url); err != nil {
		return false, fmt.Errorf("ask: %w", err)
	}

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case l, ok := <-c.lines:
		if !ok {
			return false, nil
		}
		if l.err != nil {
			return false, fmt.Errorf("read answer: %w", l.err)
		}
		switch strings.ToLower(strings.TrimSpace(l.text)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

// ConfirmerFor maps a prompt mode to a Confirmer. ask reads from in and
// writes questions to out, and always accepts without asking. never
// returns nil: the prompt is shown but nobody answers it.
func ConfirmerFor(mode string, in io.Reader, out io.Writer) (Confirmer, error) {
	switch mode {
	case PromptAsk:
		return NewTerminalConfirmer(in, out), nil
	case PromptAlways:
		return Fixed(true), nil
	case PromptNever, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown prompt mode %q", mode)
	}
}
