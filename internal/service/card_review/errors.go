package card_review

import (
	"errors"
	"fmt"

	"github.com/phrazzld/scry-srs/internal/domain"
)

// Error kinds returned by the review service. Every error the service returns
// wraps exactly one of these, so callers can branch with errors.Is.
var (
	// ErrInvalidGrade indicates a grade outside [1,5]. No store access happens.
	ErrInvalidGrade = domain.ErrInvalidGrade

	// ErrInvalidState indicates a stored card whose schedule violates the
	// scheduling invariants. The card is left untouched.
	ErrInvalidState = domain.ErrInvalidState

	// ErrNotFound indicates the card or deck does not exist or is not owned by
	// the caller. Both cases produce the same error.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates the review lost every optimistic
	// concurrency race it was allowed to retry.
	ErrVersionConflict = errors.New("version conflict: card was modified concurrently")

	// ErrStoreUnavailable indicates the store failed for a reason other than a
	// missing row or a version conflict.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ServiceError wraps errors from the card review service with additional context.
// This allows consumers to differentiate between different types of service errors
// using errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "get_due_cards", "submit_review")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewSubmitReviewError returns a new ServiceError for the submit_review operation.
func NewSubmitReviewError(message string, err error) *ServiceError {
	return &ServiceError{
		Operation: "submit_review",
		Message:   message,
		Err:       err,
	}
}

// NewGetDueCardsError returns a new ServiceError for the get_due_cards operation.
func NewGetDueCardsError(message string, err error) *ServiceError {
	return &ServiceError{
		Operation: "get_due_cards",
		Message:   message,
		Err:       err,
	}
}

// unavailable wraps a raw store failure so it matches ErrStoreUnavailable
// while keeping the cause in the chain.
func unavailable(cause error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, cause)
}
