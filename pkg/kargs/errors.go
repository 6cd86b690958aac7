// Package kargs manages persistent kernel command-line parameters through one
// of two mutually incompatible backends: the transactional image-layering tool
// on immutable systems (rpm-ostree) or the bootloader configuration file on
// mutable ones (/etc/default/grub).
package kargs

import (
	"errors"
	"fmt"
)

// ErrorClass classifies a backend error for recovery decisions.
type ErrorClass string

const (
	// ErrorClassDetection indicates an ambiguous platform probe. Never fatal:
	// detection always resolves to the bootloader-config default.
	ErrorClassDetection ErrorClass = "detection"

	// ErrorClassBusy indicates the transactional backend still holds an
	// in-flight transaction after one cleanup attempt. The operation is
	// aborted with no state change; a later re-attempt is safe.
	ErrorClassBusy ErrorClass = "busy"

	// ErrorClassUnavailable indicates a required binary or config file is
	// missing. Surfaced immediately, before any mutation is attempted.
	ErrorClassUnavailable ErrorClass = "unavailable"

	// ErrorClassPartial indicates one of the removal/addition batches
	// succeeded and the other failed. Persisted state is not updated, so the
	// next run diffs against the last known-good record; both backends are
	// idempotent on append/remove, which makes the re-attempt safe.
	ErrorClassPartial ErrorClass = "partial"

	// ErrorClassInternal indicates any other failure of a backend invocation.
	ErrorClassInternal ErrorClass = "internal"
)

// KargError is a classified error carrying the operation context callers need
// to decide whether a re-attempt is safe.
type KargError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Operation is the backend operation being performed ("append", "remove",
	// "query", "ensure-ready").
	Operation string `json:"operation,omitempty"`

	// Step is the failing apply step, set by the orchestrator.
	Step string `json:"step,omitempty"`

	// Err is the underlying cause.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *KargError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("[%s] %s (operation=%s): %s", e.Class, e.Message, e.Operation, e.causeMessage())
	}
	return fmt.Sprintf("[%s] %s: %s", e.Class, e.Message, e.causeMessage())
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *KargError) Unwrap() error {
	return e.Err
}

// Is matches on class so callers can compare against sentinel classes.
func (e *KargError) Is(target error) bool {
	t, ok := target.(*KargError)
	if !ok {
		return false
	}
	return e.Class == t.Class
}

func (e *KargError) causeMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// WithOperation adds operation context to the error.
func (e *KargError) WithOperation(op string) *KargError {
	e.Operation = op
	return e
}

// WithStep records the apply step during which the error occurred.
func (e *KargError) WithStep(step string) *KargError {
	e.Step = step
	return e
}

// NewBusyError creates a backend-busy error.
func NewBusyError(message string, err error) *KargError {
	return &KargError{Class: ErrorClassBusy, Message: message, Err: err}
}

// NewUnavailableError creates a backend-unavailable error.
func NewUnavailableError(message string, err error) *KargError {
	return &KargError{Class: ErrorClassUnavailable, Message: message, Err: err}
}

// NewPartialError creates a partial-apply error.
func NewPartialError(message string, err error) *KargError {
	return &KargError{Class: ErrorClassPartial, Message: message, Err: err}
}

// NewInternalError creates an internal backend error.
func NewInternalError(message string, err error) *KargError {
	return &KargError{Class: ErrorClassInternal, Message: message, Err: err}
}

// IsBusy returns true if the error is classified as backend-busy.
func IsBusy(err error) bool {
	var e *KargError
	if errors.As(err, &e) {
		return e.Class == ErrorClassBusy
	}
	return false
}

// IsUnavailable returns true if the error is classified as backend-unavailable.
func IsUnavailable(err error) bool {
	var e *KargError
	if errors.As(err, &e) {
		return e.Class == ErrorClassUnavailable
	}
	return false
}

// IsPartial returns true if the error is classified as a partial apply.
func IsPartial(err error) bool {
	var e *KargError
	if errors.As(err, &e) {
		return e.Class == ErrorClassPartial
	}
	return false
}
