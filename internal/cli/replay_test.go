package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qrscan/internal/scan"
	"github.com/roach88/qrscan/internal/store"
)

// recordScan runs scan against a fresh database and returns its path.
func recordScan(t *testing.T, args ...string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "scans.db")
	args = append([]string{writeFeed(t, sampleFeed), "--db", dbPath}, args...)
	_, err := runScanCommand(t, "text", &launchRecorder{}, "", args...)
	require.NoError(t, err)
	return dbPath
}

func executeReplay(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewReplayCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestReplayMissingDatabaseFlag(t *testing.T) {
	_, err := executeReplay(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestReplayDatabaseNotFound(t *testing.T) {
	_, err := executeReplay(t, "text", "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}

func TestReplayEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := executeReplay(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found")
}

func TestReplayRecordedSession(t *testing.T) {
	dbPath := recordScan(t)

	out, err := executeReplay(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "\u2713 Session: scan-session-1")
	assert.Contains(t, out, "Events: 4, commands: 7, dismissals: 0")
	assert.Contains(t, out, "All sessions verified deterministic")
}

func TestReplayRecordedSession_Reprompt(t *testing.T) {
	// Whether the second URL frame re-prompts depends on when the dismissal
	// lands, but replay must reproduce whichever order was recorded.
	dbPath := filepath.Join(t.TempDir(), "scans.db")
	_, err := runScanCommand(t, "text", &launchRecorder{}, "n\n",
		writeFeed(t, sampleFeed), "--db", dbPath, "--prompt", "ask", "--reprompt")
	require.NoError(t, err)

	out, err := executeReplay(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "All sessions verified deterministic")
}

func TestReplayJSON(t *testing.T) {
	dbPath := recordScan(t)

	out, err := executeReplay(t, "json", "--db", dbPath, "--session", "scan-session-1")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ReplaySummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.AllDeterministic)
	require.Len(t, resp.Data.Sessions, 1)
	assert.Equal(t, 4, resp.Data.Sessions[0].Events)
	assert.Empty(t, resp.Data.Sessions[0].Mismatches)
}

func TestReplayUnknownSession(t *testing.T) {
	dbPath := recordScan(t)

	_, err := executeReplay(t, "text", "--db", dbPath, "--session", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "session nope not found")
}

func TestReplayDetectsDivergence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tampered.db")
	ctx := context.Background()

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.CreateSession(ctx, store.SessionRecord{ID: "s-1", Config: "{}"}))

	// A miss must hide the overlay; the log claims it showed a label.
	ev := scan.DecodeEvent{Seq: 1}
	_, err = st.WriteStep(ctx, "s-1", ev, []scan.Command{scan.UpdateLabel("forged")})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := executeReplay(t, "text", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "\u2717 Session: s-1")
	assert.Contains(t, out, `seq 1 idx 0: logged UpdateLabel("forged"), replayed HideOverlay`)
	assert.Contains(t, out, "Determinism verification failed")

	out, err = executeReplay(t, "json", "--db", dbPath)
	require.Error(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_DETERMINISM", resp.Error.Code)
}
