package core

import (
	"errors"
	"fmt"
)

// Code classifies errors for API consumers. Internal details never leak
// past the message carried here.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeScoreRejected Code = "SCORE_REJECTED"
	CodeNotFound      Code = "NOT_FOUND"
	CodePersistence   Code = "PERSISTENCE_ERROR"
)

// Error is the structured error surfaced to callers: a taxonomy code plus a
// safe message. Wrapped causes stay available through errors.Unwrap.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Validationf reports malformed or out-of-range input. No mutation occurred;
// the caller can fix the input and retry.
func Validationf(format string, args ...any) error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// RejectScore reports a plausible-but-suspicious submission stopped by the
// anti-cheat checks. No mutation occurred.
func RejectScore(reason string) error {
	return &Error{Code: CodeScoreRejected, Message: reason}
}

// NotFoundf reports a missing session, achievement, or player.
func NotFoundf(format string, args ...any) error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Persistencef wraps a store failure as a retriable error. The atomic unit
// it interrupted was aborted wholesale, so no partial state survives.
func Persistencef(cause error, format string, args ...any) error {
	return &Error{Code: CodePersistence, Message: fmt.Sprintf(format, args...), cause: cause}
}

// CodeOf extracts the taxonomy code, defaulting unclassified errors to
// persistence so they surface as retriable rather than leaking internals.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodePersistence
}
