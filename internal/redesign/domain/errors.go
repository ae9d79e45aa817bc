package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrProjectExists   = errors.New("project already exists")
	ErrSignalRejected  = errors.New("signal rejected")
	ErrValidation      = errors.New("invalid signal payload")
	ErrEngineStopped   = errors.New("engine stopped")

	// ErrUnchanged is returned from an update callback to skip the write.
	ErrUnchanged = errors.New("project unchanged")
)

// Rejection codes surfaced to clients for precondition violations.
const (
	CodeWrongPhase      = "wrong_phase"
	CodeTerminal        = "terminal"
	CodeUnknownSignal   = "unknown_signal"
	CodeStreamMismatch  = "stream_mismatch"
	CodeNotEnoughPhotos = "not_enough_photos"
	CodePhotoLimit      = "photo_limit"
	CodeUnknownPhoto    = "unknown_photo"
	CodeScanAlreadySet  = "scan_already_set"
	CodeBusy            = "busy"
	CodeIterationLimit  = "iteration_limit"
	CodeBadOptionIndex  = "bad_option_index"
	CodeNotRetryable    = "not_retryable"
	CodeNotStreaming    = "not_streaming"
	CodeAlreadyClaimed  = "already_claimed"
)

// RejectionError reports a signal that is illegal in the current phase or state.
// The project is left untouched.
type RejectionError struct {
	Signal SignalKind
	Phase  Phase
	Code   string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("signal %s rejected in phase %s: %s", e.Signal, e.Phase, e.Code)
}

func (e *RejectionError) Unwrap() error { return ErrSignalRejected }

// Reject builds a RejectionError.
func Reject(sig SignalKind, phase Phase, code string) error {
	return &RejectionError{Signal: sig, Phase: phase, Code: code}
}

// ValidationError reports a malformed signal payload caught at the gateway.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Activity error kinds.
const (
	ErrorKindRateLimited   = "rate_limited"
	ErrorKindTransient     = "transient"
	ErrorKindTimeout       = "timeout"
	ErrorKindInvalidInput  = "invalid_input"
	ErrorKindContentPolicy = "content_policy"
	ErrorKindInvalidOutput = "invalid_output"
	ErrorKindUnavailable   = "unavailable"
	ErrorKindUnknown       = "unknown"
)

// ActivityError is the persisted, client-visible form of an activity failure.
type ActivityError struct {
	Activity  ActivityKind `json:"activity"`
	Kind      string       `json:"kind"`
	Message   string       `json:"message"`
	Retryable bool         `json:"retryable"`
}

// CollaboratorError is returned by collaborator clients that know whether a
// failure is worth retrying.
type CollaboratorError struct {
	Kind       string
	Message    string
	Retryable  bool
	StatusCode int
	Err        error
}

func (e *CollaboratorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }
