package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/qrscan/internal/scan"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession inserts a session with a fixed config.
func createTestSession(t *testing.T, s *Store, id string) {
	t.Helper()
	err := s.CreateSession(context.Background(), SessionRecord{
		ID:         id,
		ConfigHash: "test-hash",
		Config:     `{"open_schemes":["http","https"]}`,
	})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
}

// stamped returns ev with Seq set.
func stamped(ev scan.DecodeEvent, seq int64) scan.DecodeEvent {
	ev.Seq = seq
	return ev
}
