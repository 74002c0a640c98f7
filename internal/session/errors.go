package session

import (
	"errors"
	"fmt"
)

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeStoreFailed indicates the session log could not be written.
	ErrCodeStoreFailed RuntimeErrorCode = "STORE_FAILED"

	// ErrCodePresentFailed indicates the presenter rejected a command.
	ErrCodePresentFailed RuntimeErrorCode = "PRESENT_FAILED"
)

// RuntimeError is a failure observed while processing an item. The loop logs
// it and keeps going; Session.Errors returns the accumulated list.
type RuntimeError struct {
	Code      RuntimeErrorCode
	Message   string
	SessionID string
	Seq       int64
	Err       error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s (session=%s, seq=%d)", e.Code, e.Message, e.SessionID, e.Seq)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err is a session-log write failure.
// Uses errors.As to handle wrapped errors.
func IsStoreError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeStoreFailed
	}
	return false
}

// IsPresentError reports whether err is a presenter failure.
func IsPresentError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodePresentFailed
	}
	return false
}
