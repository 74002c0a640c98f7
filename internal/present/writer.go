package present

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/roach88/qrscan/internal/scan"
)

// Output formats understood by Writer.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Writer renders commands as lines on an io.Writer.
//
// Text lines use Command.String. JSON lines are canonical JSON, so two runs
// over the same frames produce byte-identical output.
//
// Thread-safety: Apply is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	format string
}

// NewWriter creates a Writer. Unknown formats fall back to text.
func NewWriter(w io.Writer, format string) *Writer {
	if format != FormatJSON {
		format = FormatText
	}
	return &Writer{w: w, format: format}
}

// Apply writes one line for cmd.
func (p *Writer) Apply(_ context.Context, cmd scan.Command) error {
	var line []byte
	if p.format == FormatJSON {
		b, err := scan.MarshalCanonical(cmd)
		if err != nil {
			return fmt.Errorf("render %s: %w", cmd.Kind, err)
		}
		line = b
	} else {
		line = []byte(cmd.String())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write %s: %w", cmd.Kind, err)
	}
	return nil
}
