package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotConfigured     ErrorKind = "not_configured"
	KindNetwork           ErrorKind = "network"
	KindHTTP              ErrorKind = "http"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindNotFound          ErrorKind = "not_found"
	KindValidation        ErrorKind = "validation"
	KindInvalidState      ErrorKind = "invalid_state"
	KindPartialFailure    ErrorKind = "partial_failure"
	KindRefreshFailed     ErrorKind = "refresh_failed"
	KindInternal          ErrorKind = "internal"
)

// IsFault reports whether the kind is an infrastructure fault rather than an
// expected business outcome.
func (k ErrorKind) IsFault() bool {
	switch k {
	case KindNetwork, KindHTTP, KindMalformedResponse, KindNotConfigured, KindRefreshFailed, KindInternal:
		return true
	}
	return false
}

// Error carries a kind, the failing operation and a user-safe message.
// Err holds the underlying detail for logs.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func E(kind ErrorKind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// kinded is implemented by errors outside this package that know their kind.
type kinded interface {
	ErrorKind() ErrorKind
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return KindInternal
}

// MessageOf returns the user-safe message of err, or fallback.
func MessageOf(err error, fallback string) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return fallback
}

// OperationResult is what every workflow operation hands back to handlers.
type OperationResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Kind    ErrorKind      `json:"kind,omitempty"`
	Rental  *RentalRequest `json:"rental,omitempty"`
	Err     error          `json:"-"`
}

func Succeeded(message string, rental *RentalRequest) *OperationResult {
	return &OperationResult{Success: true, Message: message, Rental: rental}
}

func Failed(err error, fallback string) *OperationResult {
	return &OperationResult{
		Success: false,
		Message: MessageOf(err, fallback),
		Kind:    KindOf(err),
		Err:     err,
	}
}
