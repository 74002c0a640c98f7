package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteResponse(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, writeResponse(buf, CLIResponse{Status: "ok", Data: map[string]string{"session": "s-1"}, SessionID: "s-1"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "s-1", resp.SessionID)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
	assert.Contains(t, buf.String(), "\n  \"status\"", "output is indented")
}

func TestWriteFailure(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, writeFailure(buf, "json", "E204", "prompt: 2 errors in empty disjunction"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E204", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "prompt")

	buf.Reset()
	require.NoError(t, writeFailure(buf, "text", "E201", "config file not found"))
	assert.Equal(t, "Error [E201]: config file not found\n", buf.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "open feed", errors.New("no such file")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Equal(t, "outer: open feed: no such file", wrapped.Error())
}
