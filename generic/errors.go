/*
errors.go - Centralized error types for the concierge engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Validation errors - Malformed input rejected at the boundary
  2. Ledger errors - Point ledger write failures
  3. Store errors - Missing records

WHAT IS NOT AN ERROR:
  The calculators never fail for structurally valid input. "No rule applies"
  and "no SLA clock running" are returned as nil values, not errors. Callers
  decide the fallback.

USAGE:
  if errors.Is(err, generic.ErrInsufficientBalance) {
      // reject the gift send
  }

SEE ALSO:
  - factory/rule.go: Joins ValidationErrors for a whole form
  - points/ledger.go: Returns InsufficientBalanceError
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDate is returned when a date is not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("invalid date: expected YYYY-MM-DD")

	// ErrInvalidPeriod is returned when a range ends before it starts.
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidPercent is returned when a percent is outside [0, 100].
	ErrInvalidPercent = errors.New("percent must be between 0 and 100")

	// ErrUnknownScope is returned for a scope type the resolver does not know.
	ErrUnknownScope = errors.New("unknown rule scope")

	// ErrUnknownRuleType is returned for a rule type other than gift_share.
	ErrUnknownRuleType = errors.New("unknown rule type")

	// ErrCastRequired is returned when a cast-scoped rule has no cast.
	ErrCastRequired = errors.New("cast_id is required for this scope")

	// ErrGiftRequired is returned when a cast_gift rule has no gift.
	ErrGiftRequired = errors.New("gift_id is required for this scope")

	// ErrCategoryRequired is returned when a cast_gift_category rule has no category.
	ErrCategoryRequired = errors.New("gift_category is required for this scope")

	// ErrInvalidAmount is returned when a caller-level flow gets a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrDuplicateIdempotencyKey is returned when a ledger entry with the same
	// idempotency key already exists. This is expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrInsufficientBalance is returned when a debit would overdraw points.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// InsufficientBalanceError provides details about a point shortage.
type InsufficientBalanceError struct {
	UserID    UserID
	Available int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %d, requested %d, shortfall %d",
		e.Available, e.Requested, e.Requested-e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidAmount)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
