// Package harness runs scanning scenarios as executable contract tests.
//
// A scenario feeds a fixed sequence of frames and prompt answers through a
// real session (reconciler, session log, presenter) and checks the commands
// that come out.
//
// # Scenario Format
//
//	name: url_prompted_once
//	description: "A URL held in frame is offered once"
//	config:
//	  open_schemes: ["https"]
//	  reprompt_on_dismiss: false
//	steps:
//	  - payload: "https://example.com"
//	    bounds: { x: 0, y: 0, width: 10, height: 10 }
//	    repeat: 5
//	  - {}                                  # a frame with no code
//	  - answer: { payload: "https://example.com", accepted: false }
//	expect:
//	  - ShowOverlay(0,0 10x10)
//	  - UpdateLabel("https://example.com")
//	assertions:
//	  - type: command_count
//	    kind: prompt_open_url
//	    count: 1
//
// expect, when present, is the complete command sequence in compact form.
//
// # Assertion Types
//
//   - command_contains: a command appears at least once
//   - command_order: commands appear in the given order, not necessarily adjacent
//   - command_count: commands of a kind (or one exact command) appear N times
//   - final_state: reconciler state after the last step
//   - log_row: a row of the session log matches expected column values
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory session log with a
// deterministic clock and a fixed session ID, so traces are byte-identical
// across runs and can be compared against golden files. Every run also
// replays the recorded session and fails if replay diverges.
package harness
