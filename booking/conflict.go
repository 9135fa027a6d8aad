/*
conflict.go - Client-level booking overlap detection

PURPOSE:
  Pure predicate answering "does this candidate interval overlap any
  existing active booking for this client?". Consulted synchronously
  before every client-scoped booking write.

OVERLAP RULE:
  Two intervals [s1,e1) and [s2,e2) conflict iff s1 < e2 AND e1 > s2.
  Half-open: a booking ending exactly at T does not conflict with a
  candidate starting at T. Overlap is symmetric.

SCOPE:
  Only the same client's bookings participate, and only those that are
  not soft-deleted and whose status still counts against the schedule
  (cancelled / voided bookings are invisible here).

SEE ALSO:
  - materializer.go: Checks conflicts before creating each slot
  - types.go: Booking.Overlaps, BookingStatus.CountsAgainstSchedule
*/
package booking

import (
	"context"
	"time"
)

// Detector answers conflict queries against a BookingStore.
// It has no state and no side effects; safe for concurrent use.
type Detector struct {
	Bookings BookingStore
}

// NewDetector creates a conflict detector over the given store.
func NewDetector(bookings BookingStore) *Detector {
	return &Detector{Bookings: bookings}
}

// HasConflict reports whether [start, end) overlaps any active booking for
// the client. Pass a non-empty exclude ID when editing a booking in place,
// so it is not compared against itself.
func (d *Detector) HasConflict(ctx context.Context, clientID ClientID, start, end time.Time, exclude BookingID) (bool, error) {
	b, err := d.FindConflict(ctx, clientID, start, end, exclude)
	if err != nil {
		return false, err
	}
	return b != nil, nil
}

// FindConflict returns the first active booking overlapping [start, end),
// or nil if the interval is free. Returns ErrInvalidInterval when end is
// not after start.
func (d *Detector) FindConflict(ctx context.Context, clientID ClientID, start, end time.Time, exclude BookingID) (*Booking, error) {
	if !end.After(start) {
		return nil, ErrInvalidInterval
	}

	existing, err := d.Bookings.ListClientBookings(ctx, clientID, start, end)
	if err != nil {
		return nil, err
	}

	for i := range existing {
		b := existing[i]
		if b.ID == exclude {
			continue
		}
		if !b.Status.CountsAgainstSchedule() {
			continue
		}
		// The store already filtered to intersecting intervals; re-check to
		// keep the overlap rule in one place regardless of store behavior.
		if b.Overlaps(start, end) {
			return &b, nil
		}
	}
	return nil, nil
}
