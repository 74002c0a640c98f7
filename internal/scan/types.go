package scan

import "fmt"

// Rect is an axis-aligned rectangle in preview-layer pixel coordinates.
type Rect struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// String renders the rect as "x,y wxh".
func (r Rect) String() string {
	return fmt.Sprintf("%d,%d %dx%d", r.X, r.Y, r.Width, r.Height)
}

// DecodeEvent is the decode outcome for one camera frame.
//
// Payload and Bounds are either both set (a code was found) or both nil.
// Seq is stamped by the session clock when the event is processed; any value
// set by the producer is overwritten.
type DecodeEvent struct {
	Seq     int64
	Payload *string
	Bounds  *Rect
}

// Found builds an event for a frame in which a code was decoded.
func Found(payload string, bounds Rect) DecodeEvent {
	return DecodeEvent{Payload: &payload, Bounds: &bounds}
}

// Missed builds an event for a frame with no decodable code.
func Missed() DecodeEvent {
	return DecodeEvent{}
}

// HasCode reports whether the frame carried a decoded payload.
func (e DecodeEvent) HasCode() bool {
	return e.Payload != nil
}

// Text returns the payload or "" when no code was found.
func (e DecodeEvent) Text() string {
	if e.Payload == nil {
		return ""
	}
	return *e.Payload
}

// CommandKind names a presentation command.
type CommandKind string

const (
	// KindShowOverlay moves the overlay to Bounds and makes it visible.
	KindShowOverlay CommandKind = "show_overlay"
	// KindHideOverlay hides the overlay.
	KindHideOverlay CommandKind = "hide_overlay"
	// KindUpdateLabel replaces the label text with Text.
	KindUpdateLabel CommandKind = "update_label"
	// KindPromptOpenURL asks the user whether to open Text as a URL.
	KindPromptOpenURL CommandKind = "prompt_open_url"
)

// Valid reports whether k is one of the known command kinds.
func (k CommandKind) Valid() bool {
	switch k {
	case KindShowOverlay, KindHideOverlay, KindUpdateLabel, KindPromptOpenURL:
		return true
	}
	return false
}

// Command is an instruction for the presentation layer.
type Command struct {
	Kind   CommandKind
	Text   string
	Bounds *Rect
}

// ShowOverlay builds a show_overlay command. A nil bounds yields a command
// with no rectangle; presenters keep the overlay where it was.
func ShowOverlay(bounds *Rect) Command {
	if bounds == nil {
		return Command{Kind: KindShowOverlay}
	}
	b := *bounds
	return Command{Kind: KindShowOverlay, Bounds: &b}
}

// HideOverlay builds a hide_overlay command.
func HideOverlay() Command {
	return Command{Kind: KindHideOverlay}
}

// UpdateLabel builds an update_label command.
func UpdateLabel(text string) Command {
	return Command{Kind: KindUpdateLabel, Text: text}
}

// PromptOpenURL builds a prompt_open_url command.
func PromptOpenURL(text string) Command {
	return Command{Kind: KindPromptOpenURL, Text: text}
}

// String renders the command in the compact form used by text output and
// test failure messages, e.g. `ShowOverlay(10,20 30x30)`.
func (c Command) String() string {
	switch c.Kind {
	case KindShowOverlay:
		if c.Bounds == nil {
			return "ShowOverlay()"
		}
		return fmt.Sprintf("ShowOverlay(%s)", c.Bounds)
	case KindHideOverlay:
		return "HideOverlay"
	case KindUpdateLabel:
		return fmt.Sprintf("UpdateLabel(%q)", c.Text)
	case KindPromptOpenURL:
		return fmt.Sprintf("PromptOpenURL(%q)", c.Text)
	default:
		return fmt.Sprintf("Unknown(%s)", c.Kind)
	}
}

// Equal reports whether two commands carry the same kind, text and bounds.
func (c Command) Equal(o Command) bool {
	if c.Kind != o.Kind || c.Text != o.Text {
		return false
	}
	if (c.Bounds == nil) != (o.Bounds == nil) {
		return false
	}
	return c.Bounds == nil || *c.Bounds == *o.Bounds
}
