/*
capacity.go - Capacity ledger for shared time blocks

PURPOSE:
  Computes remaining seats for capacity-bounded time blocks and manages
  the short-lived holds that protect an in-progress booking flow.

THE FORMULA:
  remaining = max(capacity - active bookings in window - live holds, 0)

  Active bookings: any client's booking of the block's service whose
  interval intersects the block window and which still counts against
  the schedule. Live holds: holds for block+service with expiry in the
  future. The floor at zero matters: a manual override that overbooks a
  block must never report negative remaining.

TOCTOU:
  Remaining() and CreateHold() are deliberately separate calls. The gap
  between them is a race window bounded by the hold TTL (minutes), an
  accepted trade-off: an overbooking race is short-lived, not permanent.
  Callers must check Remaining() > 0 before CreateHold().

SEE ALSO:
  - store.go: HoldStore / BlockStore / BookingStore interfaces
  - api/handlers.go: The availability -> hold -> confirm booking flow
*/
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultHoldTTL is how long a capacity hold protects an in-progress
// booking flow before the expiry sweep reclaims the seat.
const DefaultHoldTTL = 10 * time.Minute

// Ledger computes remaining capacity for blocks and manages holds.
type Ledger struct {
	Bookings BookingStore
	Holds    HoldStore

	// Now is the clock; defaults to time.Now. Injectable for tests.
	Now func() time.Time
}

// NewLedger creates a capacity ledger over the given stores.
func NewLedger(bookings BookingStore, holds HoldStore) *Ledger {
	return &Ledger{Bookings: bookings, Holds: holds, Now: time.Now}
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Remaining returns the number of seats left in the block for the service,
// never negative. A service with no capacity entry in the block has zero
// seats. Expired holds are purged globally before counting, so the answer
// is authoritative at the instant of the call.
func (l *Ledger) Remaining(ctx context.Context, block CapacityBlock, serviceID ServiceID) (int, error) {
	capacity := block.Capacity(serviceID)
	if capacity <= 0 {
		return 0, nil
	}

	now := l.now()

	// Maintenance sweep first: expired holds anywhere must not linger.
	if _, err := l.Holds.PurgeExpiredHolds(ctx, now); err != nil {
		return 0, fmt.Errorf("purge expired holds: %w", err)
	}

	booked, err := l.Bookings.CountActiveInWindow(ctx, serviceID, block.Start, block.End)
	if err != nil {
		return 0, fmt.Errorf("count bookings in block %s: %w", block.ID, err)
	}

	held, err := l.Holds.CountActiveHolds(ctx, block.ID, serviceID, now)
	if err != nil {
		return 0, fmt.Errorf("count holds in block %s: %w", block.ID, err)
	}

	remaining := capacity - booked - held
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// CreateHold reserves a seat for ttl. It does NOT check remaining capacity;
// the caller checks Remaining() > 0 first and accepts the TTL-bounded race.
// A non-positive ttl falls back to DefaultHoldTTL.
func (l *Ledger) CreateHold(ctx context.Context, block CapacityBlock, serviceID ServiceID, clientID ClientID, ttl time.Duration) (CapacityHold, error) {
	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}
	now := l.now()
	hold := CapacityHold{
		ID:        HoldID(uuid.NewString()),
		BlockID:   block.ID,
		ServiceID: serviceID,
		ClientID:  clientID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := l.Holds.CreateHold(ctx, hold); err != nil {
		return CapacityHold{}, fmt.Errorf("create hold: %w", err)
	}
	return hold, nil
}

// ReleaseHold destroys a hold when the booking flow it protected completes
// or is abandoned. Releasing an already-purged hold returns ErrHoldNotFound.
func (l *Ledger) ReleaseHold(ctx context.Context, id HoldID) error {
	return l.Holds.DeleteHold(ctx, id)
}
