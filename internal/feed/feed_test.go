package feed

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qrscan/internal/scan"
)

func readAll(t *testing.T, input string) ([]scan.DecodeEvent, error) {
	t.Helper()
	var events []scan.DecodeEvent
	_, err := Pump(context.Background(), NewReader(strings.NewReader(input)), func(ev scan.DecodeEvent) bool {
		events = append(events, ev)
		return true
	})
	return events, err
}

func TestReader_Frames(t *testing.T) {
	input := `{"seq":1,"codes":[{"payload":"ABC","bounds":{"x":1,"y":2,"width":3,"height":4}}]}

{"seq":2,"codes":[]}
{"seq":3}
{"codes":[{"payload":"XYZ"}]}
`
	events, err := readAll(t, input)
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, "ABC", events[0].Text())
	assert.Equal(t, &scan.Rect{X: 1, Y: 2, Width: 3, Height: 4}, events[0].Bounds)
	assert.Equal(t, int64(1), events[0].Seq)

	assert.False(t, events[1].HasCode())
	assert.False(t, events[2].HasCode())

	assert.Equal(t, "XYZ", events[3].Text())
	assert.Nil(t, events[3].Bounds)
}

func TestReader_FirstCodeWins(t *testing.T) {
	events, err := readAll(t, `{"codes":[{"payload":"first","bounds":{"x":0,"y":0,"width":1,"height":1}},{"payload":"second"}]}`)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "first", events[0].Text())
}

func TestReader_EmptyPayloadIsACode(t *testing.T) {
	events, err := readAll(t, `{"codes":[{"payload":""}]}`)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].HasCode())
	assert.Equal(t, "", events[0].Text())
}

func TestReader_MalformedLine(t *testing.T) {
	events, err := readAll(t, "{\"codes\":[]}\n{not json}\n")

	var fe *FrameError
	require.True(t, errors.As(err, &fe), "got %v", err)
	assert.Equal(t, 2, fe.Line)
	assert.Len(t, events, 1, "frames before the bad line are delivered")
}

func TestReader_UnknownField(t *testing.T) {
	_, err := readAll(t, `{"codes":[],"timestamp":3}`)

	var fe *FrameError
	assert.True(t, errors.As(err, &fe))
}

func TestReader_OutOfOrder(t *testing.T) {
	_, err := readAll(t, "{\"seq\":2,\"codes\":[]}\n{\"seq\":2,\"codes\":[]}\n")

	assert.ErrorIs(t, err, ErrOutOfOrder)
	var fe *FrameError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 2, fe.Line)
}

func TestReader_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReader(strings.NewReader(`{"codes":[]}`)).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReader_EOF(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	_, err := r.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestPump_SinkStops(t *testing.T) {
	src := NewSlice(scan.Missed(), scan.Missed(), scan.Missed())

	calls := 0
	n, err := Pump(context.Background(), src, func(scan.DecodeEvent) bool {
		calls++
		return calls < 2
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, calls)
}

func TestFrame_EventCopies(t *testing.T) {
	p := "ABC"
	b := scan.Rect{Width: 1}
	f := Frame{Codes: []Code{{Payload: &p, Bounds: &b}}}

	ev := f.Event()
	p = "changed"
	b.Width = 9

	assert.Equal(t, "ABC", ev.Text())
	assert.Equal(t, 1, ev.Bounds.Width)
}
