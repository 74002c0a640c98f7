// Package feed reads decode outcomes produced by an external camera/decoder
// pipeline.
//
// The wire format is JSON lines, one frame per line:
//
//	{"seq":1,"codes":[{"payload":"https://example.com","bounds":{"x":10,"y":20,"width":30,"height":30}}]}
//	{"seq":2,"codes":[]}
//
// A frame with several codes yields the first one. A frame with no codes is
// a miss. seq is optional; when present it must increase.
package feed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/qrscan/internal/scan"
)

// maxLineSize bounds a single frame line.
const maxLineSize = 1 << 20

// Source delivers decode events in frame order. Next returns io.EOF when
// the feed is exhausted.
type Source interface {
	Next(ctx context.Context) (scan.DecodeEvent, error)
}

// Code is one detected symbol within a frame.
type Code struct {
	Payload *string    `json:"payload"`
	Bounds  *scan.Rect `json:"bounds,omitempty"`
}

// Frame is one line of the feed.
type Frame struct {
	Seq   int64  `json:"seq,omitempty"`
	Codes []Code `json:"codes"`
}

// Event converts the frame to a decode event using the first code.
func (f Frame) Event() scan.DecodeEvent {
	ev := scan.DecodeEvent{Seq: f.Seq}
	if len(f.Codes) == 0 || f.Codes[0].Payload == nil {
		return ev
	}
	first := f.Codes[0]
	p := *first.Payload
	ev.Payload = &p
	if first.Bounds != nil {
		b := *first.Bounds
		ev.Bounds = &b
	}
	return ev
}

// FrameError reports a malformed line.
type FrameError struct {
	Line int
	Err  error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame at line %d: %v", e.Line, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// ErrOutOfOrder is wrapped by a FrameError whose seq does not increase.
var ErrOutOfOrder = errors.New("seq out of order")

// Reader is a Source over a JSON-lines stream. Blank lines are skipped.
type Reader struct {
	sc      *bufio.Scanner
	line    int
	lastSeq int64
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{sc: sc}
}

// Next returns the next frame's decode event.
func (r *Reader) Next(ctx context.Context) (scan.DecodeEvent, error) {
	for {
		if err := ctx.Err(); err != nil {
			return scan.DecodeEvent{}, err
		}
		if !r.sc.Scan() {
			if err := r.sc.Err(); err != nil {
				return scan.DecodeEvent{}, fmt.Errorf("read feed: %w", err)
			}
			return scan.DecodeEvent{}, io.EOF
		}
		r.line++

		line := bytes.TrimSpace(r.sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var f Frame
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return scan.DecodeEvent{}, &FrameError{Line: r.line, Err: err}
		}
		if f.Seq != 0 {
			if f.Seq <= r.lastSeq {
				return scan.DecodeEvent{}, &FrameError{
					Line: r.line,
					Err:  fmt.Errorf("%w: %d after %d", ErrOutOfOrder, f.Seq, r.lastSeq),
				}
			}
			r.lastSeq = f.Seq
		}
		return f.Event(), nil
	}
}

// Slice is a Source over events already in memory.
type Slice struct {
	events []scan.DecodeEvent
	idx    int
}

// NewSlice creates a Source that yields events in order.
func NewSlice(events ...scan.DecodeEvent) *Slice {
	return &Slice{events: events}
}

// Next returns the next event or io.EOF.
func (s *Slice) Next(ctx context.Context) (scan.DecodeEvent, error) {
	if err := ctx.Err(); err != nil {
		return scan.DecodeEvent{}, err
	}
	if s.idx >= len(s.events) {
		return scan.DecodeEvent{}, io.EOF
	}
	ev := s.events[s.idx]
	s.idx++
	return ev, nil
}

// Pump reads src until EOF and passes each event to sink. It stops early,
// without error, when sink returns false (the consumer has shut down).
// Returns the number of events delivered.
func Pump(ctx context.Context, src Source, sink func(scan.DecodeEvent) bool) (int, error) {
	n := 0
	for {
		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if !sink(ev) {
			return n, nil
		}
		n++
	}
}
