package reconcile

import (
	"context"
	"errors"

	"github.com/pawtrack/booking-engine/booking"
)

// ErrDiffNotFound is returned when a booking has no outstanding diff.
var ErrDiffNotFound = errors.New("reconciliation diff not found")

// DiffStore persists the one-outstanding-diff-per-booking invariant.
type DiffStore interface {
	// SaveDiff inserts or replaces the diff for its booking.
	SaveDiff(ctx context.Context, d Diff) error

	// GetDiff returns the outstanding diff for a booking.
	// Returns ErrDiffNotFound if there is none.
	GetDiff(ctx context.Context, id booking.BookingID) (*Diff, error)

	// ClearDiff removes the outstanding diff for a booking.
	// Clearing an absent diff is a no-op.
	ClearDiff(ctx context.Context, id booking.BookingID) error

	// ListDiffs returns every outstanding diff, for the review queue.
	ListDiffs(ctx context.Context) ([]Diff, error)
}

// RunStore records validation batches for audit and UI display.
type RunStore interface {
	SaveRun(ctx context.Context, r Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}
