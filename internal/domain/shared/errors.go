// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero
// external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Every DomainError carries one of these so callers
// can branch with errors.Is without knowing the concrete error.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	ErrInvalidState = errors.New("invalid state")

	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError ties an error to the domain and operation it came from.
// Kind is one of the sentinel kinds above; Err, when set, is the
// wrapped cause.
type DomainError struct {
	Domain  string
	Op      string
	Kind    error
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap prefers the wrapped cause over the kind, so a chain built
// with WrapError stays walkable.
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches against both the kind and the wrapped cause.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

// NewDomainError builds a DomainError without a wrapped cause.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

// WrapError builds a DomainError around an underlying error.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// Learner domain errors
var (
	ErrLearnerNotFound      = NewDomainError("learner", "Find", ErrNotFound, "learner not found")
	ErrLearnerAlreadyExists = NewDomainError("learner", "Create", ErrAlreadyExists, "learner already exists")
	ErrInvalidLearnerID     = NewDomainError("learner", "Validate", ErrInvalidID, "invalid learner ID")
	ErrStaleLearner         = NewDomainError("learner", "Save", ErrOptimisticLock, "learner was modified concurrently")
)

// Practice domain errors
var (
	ErrInvalidEventKind    = NewDomainError("practice", "Validate", ErrInvalidInput, "unknown practice event kind")
	ErrMissingTimestamp    = NewDomainError("practice", "Validate", ErrEmptyValue, "completion timestamp is required")
	ErrNegativeCount       = NewDomainError("practice", "Validate", ErrNegativeValue, "answer counts must be non-negative")
	ErrCorrectExceedsTotal = NewDomainError("practice", "Validate", ErrValueOutOfRange, "correct count exceeds total count")
	ErrScoreOutOfRange     = NewDomainError("practice", "Validate", ErrValueOutOfRange, "accuracy score must be between 0 and 100")
)

// External service errors
var (
	ErrScoringUnavailable = NewDomainError("speech", "Score", ErrServiceUnavailable, "scoring service is unavailable")
	ErrScoringRateLimited = NewDomainError("speech", "Score", ErrRateLimited, "scoring service rate limit exceeded")
)
