package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/qrscan/internal/scan"
)

// Scenario defines a scanning scenario: frames in, commands out.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// SessionID fixes the session ID. Defaults to testutil.DefaultSessionID.
	SessionID string `yaml:"session_id,omitempty"`

	// Config overrides the default configuration.
	Config *ConfigOverrides `yaml:"config,omitempty"`

	// Steps are fed to the session in order.
	Steps []Step `yaml:"steps"`

	// Expect is the complete expected command sequence in compact form,
	// e.g. `UpdateLabel("ABC")`. Optional.
	Expect []string `yaml:"expect,omitempty"`

	// Assertions validate the trace, the final state, and the session log.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ConfigOverrides are the reconciler settings a scenario may change.
type ConfigOverrides struct {
	OpenSchemes       []string `yaml:"open_schemes,omitempty"`
	RepromptOnDismiss *bool    `yaml:"reprompt_on_dismiss,omitempty"`
}

// Step is a frame (payload and bounds, or neither for a miss) or an answer
// to a prompt.
type Step struct {
	Payload *string    `yaml:"payload,omitempty"`
	Bounds  *scan.Rect `yaml:"bounds,omitempty"`

	// Repeat feeds the same frame this many times. 0 means once.
	Repeat int `yaml:"repeat,omitempty"`

	Answer *Answer `yaml:"answer,omitempty"`
}

// Answer is the user's response to the prompt for Payload.
type Answer struct {
	Payload  string `yaml:"payload"`
	Accepted bool   `yaml:"accepted"`
}

// Event converts a frame step to a decode event.
func (s Step) Event() scan.DecodeEvent {
	ev := scan.DecodeEvent{}
	if s.Payload != nil {
		p := *s.Payload
		ev.Payload = &p
	}
	if s.Bounds != nil {
		b := *s.Bounds
		ev.Bounds = &b
	}
	return ev
}

// times returns how many items the step expands to.
func (s Step) times() int {
	if s.Repeat > 0 {
		return s.Repeat
	}
	return 1
}

// Assertion validates the trace, final state, or session log.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Command is a compact command (command_contains, command_count).
	Command string `yaml:"command,omitempty"`

	// Kind is a command kind (command_count).
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number of matches (command_count).
	Count int `yaml:"count,omitempty"`

	// Commands is the expected order (command_order).
	Commands []string `yaml:"commands,omitempty"`

	// LastPayload and Prompted are checked by final_state when set.
	LastPayload *string  `yaml:"last_payload,omitempty"`
	Prompted    []string `yaml:"prompted,omitempty"`

	// Table, Where, and Expect select and check a session-log row (log_row).
	Table  string                 `yaml:"table,omitempty"`
	Where  map[string]interface{} `yaml:"where,omitempty"`
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertCommandContains = "command_contains"
	AssertCommandOrder    = "command_order"
	AssertCommandCount    = "command_count"
	AssertFinalState      = "final_state"
	AssertLogRow          = "log_row"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so a typo is not silently ignored.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Expect) == 0 && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}

	for i, step := range s.Steps {
		if step.Repeat < 0 {
			return fmt.Errorf("steps[%d]: repeat must be non-negative", i)
		}
		if step.Answer == nil {
			continue
		}
		if step.Payload != nil || step.Bounds != nil || step.Repeat != 0 {
			return fmt.Errorf("steps[%d]: answer cannot be combined with a frame", i)
		}
		if step.Answer.Payload == "" {
			return fmt.Errorf("steps[%d].answer: payload is required", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCommandContains:
		if a.Command == "" {
			return fmt.Errorf("assertions[%d]: command is required for command_contains", index)
		}
	case AssertCommandOrder:
		if len(a.Commands) == 0 {
			return fmt.Errorf("assertions[%d]: commands list is required for command_order", index)
		}
	case AssertCommandCount:
		if a.Kind == "" && a.Command == "" {
			return fmt.Errorf("assertions[%d]: kind or command is required for command_count", index)
		}
		if a.Kind != "" && !scan.CommandKind(a.Kind).Valid() {
			return fmt.Errorf("assertions[%d]: unknown command kind %q", index, a.Kind)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for command_count", index)
		}
	case AssertFinalState:
		if a.LastPayload == nil && a.Prompted == nil {
			return fmt.Errorf("assertions[%d]: last_payload or prompted is required for final_state", index)
		}
	case AssertLogRow:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for log_row", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for log_row", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
