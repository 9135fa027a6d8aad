/*
errors.go - Centralized error types for the booking engine

PURPOSE:
  All engine error types in one place. Callers distinguish expected
  business outcomes (conflict, capacity exhausted) from real failures
  using errors.Is/As and the helpers at the bottom.

ERROR CATEGORIES:
  1. Not-found errors - Missing rules/bookings/blocks/services/holds
  2. Validation errors - Bad intervals, unknown statuses
  3. Business outcomes - Slot conflicts, capacity exhaustion
  4. Store errors - Duplicate slot (unique index violation)

USAGE:
  if errors.Is(err, booking.ErrSlotConflict) {
      // expected: surface as "not available", not a 500
  }

SEE ALSO:
  - conflict.go: Produces ConflictError
  - materializer.go: Produces IncompleteRuleError (logged, never fatal)
*/
package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRuleNotFound is returned when a referenced recurrence rule doesn't exist.
	ErrRuleNotFound = errors.New("recurrence rule not found")

	// ErrBookingNotFound is returned when a referenced booking doesn't exist
	// or has been soft-deleted.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrServiceNotFound is returned when a referenced service doesn't exist.
	ErrServiceNotFound = errors.New("service not found")

	// ErrBlockNotFound is returned when a referenced capacity block doesn't exist.
	ErrBlockNotFound = errors.New("capacity block not found")

	// ErrHoldNotFound is returned when releasing a hold that no longer exists
	// (already released, or purged by the expiry sweep).
	ErrHoldNotFound = errors.New("capacity hold not found")

	// ErrSlotConflict is returned when a candidate interval overlaps an
	// existing active booking for the same client. Expected outcome, not a
	// system error.
	ErrSlotConflict = errors.New("slot conflicts with an existing booking")

	// ErrCapacityExhausted is returned when a capacity block has no remaining
	// seats for the requested service. Surfaced as "not available".
	ErrCapacityExhausted = errors.New("no remaining capacity in block")

	// ErrDuplicateSlot is returned by stores when a non-deleted booking
	// already exists for the same (client, service, start) triple. This is
	// the transactional upsert guard for concurrent materialization.
	ErrDuplicateSlot = errors.New("duplicate booking slot")

	// ErrInvalidInterval is returned when end is not after start.
	ErrInvalidInterval = errors.New("invalid interval: end must be after start")

	// ErrInvalidStatus is returned when an unknown booking status is supplied.
	ErrInvalidStatus = errors.New("invalid booking status")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConflictError reports which booking a candidate interval collided with.
type ConflictError struct {
	ClientID ClientID
	Start    time.Time
	End      time.Time
	With     BookingID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("client %s: interval [%s, %s) conflicts with booking %s",
		e.ClientID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), e.With)
}

func (e *ConflictError) Unwrap() error { return ErrSlotConflict }

// IncompleteRuleError reports why a rule cannot be materialized.
// The materializer logs these and moves on; they are never fatal to a run.
type IncompleteRuleError struct {
	RuleID  RuleID
	Missing []string
}

func (e *IncompleteRuleError) Error() string {
	return fmt.Sprintf("rule %s incomplete: missing %s", e.RuleID, strings.Join(e.Missing, ","))
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrServiceNotFound) ||
		errors.Is(err, ErrBlockNotFound) ||
		errors.Is(err, ErrHoldNotFound)
}

// IsClientError returns true if the error is an expected business outcome
// caused by the request rather than a system failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrSlotConflict) ||
		errors.Is(err, ErrCapacityExhausted) ||
		errors.Is(err, ErrDuplicateSlot) ||
		errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrInvalidStatus)
}
