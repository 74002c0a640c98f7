package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // scan errors, failed scenarios, replay divergence, invalid config
	ExitCommandError = 2 // bad flags, unreadable feed, missing database
)

// ExitError is returned by a command to choose the process exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError creates an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code and message to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps a command error to an exit code. Errors that are not
// ExitErrors exit with ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &exitErr):
		return exitErr.Code
	default:
		return ExitFailure
	}
}

// CLIResponse is the envelope every command writes under --format json.
type CLIResponse struct {
	Status    string      `json:"status"` // "ok" or "error"
	Data      interface{} `json:"data,omitempty"`
	Error     *CLIError   `json:"error,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
}

// CLIError is the error half of a CLIResponse.
type CLIError struct {
	Code    string `json:"code"` // "E204", "E_DETERMINISM", ...
	Message string `json:"message"`
}

// writeResponse writes resp as indented JSON.
func writeResponse(w io.Writer, resp CLIResponse) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}

// writeFailure reports a coded error as a JSON envelope or a text line.
func writeFailure(w io.Writer, format, code, message string) error {
	if format == "json" {
		return writeResponse(w, CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message},
		})
	}
	_, err := fmt.Fprintf(w, "Error [%s]: %s\n", code, message)
	return err
}
