package store

import "github.com/roach88/qrscan/internal/scan"

// SessionRecord is one row of the sessions table.
type SessionRecord struct {
	ID         string
	ConfigHash string
	Config     string // canonical JSON of the effective config
	Ended      bool
	LastSeq    int64
}

// EventRecord is a stored decode event with its content-addressed ID.
type EventRecord struct {
	ID    string
	Event scan.DecodeEvent
}

// CommandRecord is a stored presentation command.
// (Seq, Idx) locate it: the idx-th command emitted for the event at seq.
type CommandRecord struct {
	ID      string
	Seq     int64
	Idx     int
	Command scan.Command
}

// PromptOutcome records how the user answered a URL prompt.
type PromptOutcome string

const (
	PromptPending   PromptOutcome = "pending"
	PromptAccepted  PromptOutcome = "accepted"
	PromptDismissed PromptOutcome = "dismissed"
)

// PromptRecord is one row of the prompts table.
// AnsweredSeq is the session seq at which the answer was processed, zero
// while the prompt is pending.
type PromptRecord struct {
	Seq         int64
	Payload     string
	Outcome     PromptOutcome
	AnsweredSeq int64
}
