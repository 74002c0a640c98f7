package testutil

// DefaultSessionID is used when a scenario does not name its session.
const DefaultSessionID = "test-session-default"

// FixedSessionGenerator returns the same session ID on every call.
//
// A scenario run with a fixed session ID produces byte-identical event and
// command IDs, which is what golden traces compare.
//
// Thread-safety: stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a generator for id.
// An empty id falls back to DefaultSessionID.
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = DefaultSessionID
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed session ID. Implements session.IDGenerator.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
