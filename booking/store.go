/*
store.go - Persistence interfaces for the booking engine

PURPOSE:
  Defines the boundary between the engine and the database. The engine
  never prescribes a storage technology; the domain entities
  (rules, bookings, blocks, holds) must simply be durably stored.

KEY INTERFACES:
  RuleStore:    Recurrence rule persistence
  ServiceStore: Service catalog lookups
  BookingStore: Booking CRUD with soft deletion and slot lookups
  HoldStore:    Ephemeral capacity holds (create, release, purge)
  BlockStore:   Capacity block persistence
  Store:        All of the above, for wiring convenience

SLOT UNIQUENESS:
  CreateBooking returns ErrDuplicateSlot when a non-deleted booking
  already exists for the same (client, service, start) triple. SQLite
  enforces this with a partial unique index; the in-memory store checks
  it under its lock. This is the upsert guard that makes the
  materializer's read-then-write safe against a concurrent pass.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - booking/store/memory.go: In-memory for tests

SEE ALSO:
  - materializer.go: Main consumer of RuleStore + BookingStore
  - capacity.go: Consumer of HoldStore + BookingStore
*/
package booking

import (
	"context"
	"time"
)

// =============================================================================
// RULE STORE
// =============================================================================

// RuleStore persists recurrence rules. Rules are deactivated, never removed.
type RuleStore interface {
	// SaveRule inserts or updates a rule by ID.
	SaveRule(ctx context.Context, rule RecurrenceRule) error

	// GetRule returns a rule by ID, active or not.
	// Returns ErrRuleNotFound if it does not exist.
	GetRule(ctx context.Context, id RuleID) (*RecurrenceRule, error)

	// GetRuleBySubscription returns the rule linked to an external
	// subscription ID. Returns ErrRuleNotFound if none exists.
	GetRuleBySubscription(ctx context.Context, subscriptionID string) (*RecurrenceRule, error)

	// ListActiveRules returns all rules with Active=true.
	ListActiveRules(ctx context.Context) ([]RecurrenceRule, error)
}

// =============================================================================
// SERVICE STORE
// =============================================================================

// ServiceStore provides service catalog lookups.
type ServiceStore interface {
	SaveService(ctx context.Context, svc Service) error

	// GetService returns a service by ID. Returns ErrServiceNotFound if missing.
	GetService(ctx context.Context, id ServiceID) (*Service, error)

	// GetServiceByCode returns an active service by external code.
	// Returns ErrServiceNotFound if missing or inactive.
	GetServiceByCode(ctx context.Context, code string) (*Service, error)
}

// =============================================================================
// BOOKING STORE
// =============================================================================

// BookingStore persists bookings. Deletion is always a soft delete; the
// historical record is retained.
type BookingStore interface {
	// CreateBooking inserts a booking. Returns ErrDuplicateSlot when a
	// non-deleted booking already exists at (client, service, start).
	CreateBooking(ctx context.Context, b Booking) error

	// GetBooking returns a booking by ID, including soft-deleted ones.
	// Returns ErrBookingNotFound if it does not exist.
	GetBooking(ctx context.Context, id BookingID) (*Booking, error)

	// UpdateBooking rewrites an existing booking by ID.
	UpdateBooking(ctx context.Context, b Booking) error

	// FindBySlot returns the non-deleted booking at exactly
	// (client, service, start), any status. Returns ErrBookingNotFound
	// if no such booking exists.
	FindBySlot(ctx context.Context, clientID ClientID, serviceID ServiceID, start time.Time) (*Booking, error)

	// ListClientBookings returns the client's non-deleted bookings, any
	// status, whose [Start, End) interval intersects [from, to).
	ListClientBookings(ctx context.Context, clientID ClientID, from, to time.Time) ([]Booking, error)

	// ListAutoGenerated returns all non-deleted auto-generated bookings
	// starting after the given instant, across all clients.
	ListAutoGenerated(ctx context.Context, after time.Time) ([]Booking, error)

	// SoftDeleteBooking marks a booking deleted.
	SoftDeleteBooking(ctx context.Context, id BookingID) error

	// CountActiveInWindow counts bookings of the given service, across all
	// clients, that are active (not deleted, status counts against the
	// schedule) and intersect [start, end).
	CountActiveInWindow(ctx context.Context, serviceID ServiceID, start, end time.Time) (int, error)
}

// =============================================================================
// CAPACITY STORES
// =============================================================================

// HoldStore persists ephemeral capacity holds.
type HoldStore interface {
	CreateHold(ctx context.Context, h CapacityHold) error

	// DeleteHold removes a hold. Returns ErrHoldNotFound if it is already gone.
	DeleteHold(ctx context.Context, id HoldID) error

	// PurgeExpiredHolds deletes every hold with ExpiresAt <= now, across all
	// blocks. Returns the number purged. This is the global maintenance sweep
	// that must run before any authoritative capacity computation.
	PurgeExpiredHolds(ctx context.Context, now time.Time) (int, error)

	// CountActiveHolds counts holds for block+service with ExpiresAt > now.
	CountActiveHolds(ctx context.Context, blockID BlockID, serviceID ServiceID, now time.Time) (int, error)
}

// BlockStore persists capacity blocks and their per-service seat counts.
type BlockStore interface {
	SaveBlock(ctx context.Context, b CapacityBlock) error

	// GetBlock returns a block by ID. Returns ErrBlockNotFound if missing.
	GetBlock(ctx context.Context, id BlockID) (*CapacityBlock, error)

	// ListBlocksInRange returns blocks whose window intersects [from, to),
	// ordered by start.
	ListBlocksInRange(ctx context.Context, from, to time.Time) ([]CapacityBlock, error)
}

// =============================================================================
// COMBINED STORE
// =============================================================================

// Store is the full persistence surface the engine needs.
type Store interface {
	RuleStore
	ServiceStore
	BookingStore
	HoldStore
	BlockStore
}
