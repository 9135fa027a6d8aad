/*
Package booking provides the core scheduling engine for a recurring
dog-walking service.

PURPOSE:
  This package contains the domain types and algorithms for turning
  declarative recurrence rules into concrete calendar bookings, detecting
  client-level conflicts, and managing capacity-bounded time blocks with
  short-lived holds.

KEY CONCEPTS IN THIS FILE (types.go):
  - RecurrenceRule: A client's declarative weekly/fortnightly schedule
  - Booking: A concrete calendar slot (auto-generated or manual)
  - BookingStatus: Closed enum of booking states
  - CapacityBlock/CapacityHold: Shared time windows with per-service seats
  - Service: A bookable service with a fixed duration and price

DESIGN PRINCIPLES:
  1. Ownership: Auto-generated bookings belong to the Materializer;
     manual bookings are never created, modified, or deleted by it.
  2. Closed states: BookingStatus is an enum, and CountsAgainstSchedule
     is the single source of truth for "still occupies calendar time".
  3. Soft deletion: Bookings carry a Deleted flag; history is retained.
  4. Precision: Prices use decimal.Decimal, never float64.

USAGE:
  rule := booking.RecurrenceRule{
      ClientID:  "client-1",
      ServiceID: "svc-walk-30",
      Cadence:   booking.CadenceWeekly,
      Weekdays:  []int{0, 2}, // Monday, Wednesday
      TimeOfDay: booking.TimeOfDay{Hour: 10},
      Location:  "Park",
      Active:    true,
  }

SEE ALSO:
  - materializer.go: Expands rules into bookings
  - conflict.go: Client-level overlap detection
  - capacity.go: Capacity ledger for shared blocks
  - store.go: Persistence interfaces
*/
package booking

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ClientID string
type ServiceID string
type RuleID string
type BookingID string
type BlockID string
type HoldID string

// =============================================================================
// SERVICE - A bookable service with fixed duration
// =============================================================================

// Service defines what is being booked. Duration drives booking end times.
type Service struct {
	ID              ServiceID
	Code            string // external service code, e.g. "walk30"
	Name            string
	DurationMinutes int
	Price           decimal.Decimal
	Active          bool
}

// Duration returns the service duration. Zero if DurationMinutes is unset.
func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// =============================================================================
// RECURRENCE RULE - Declarative recurring schedule
// =============================================================================

// Cadence is how often a rule repeats.
type Cadence string

const (
	CadenceWeekly      Cadence = "weekly"
	CadenceFortnightly Cadence = "fortnightly"
)

// IntervalWeeks returns the week step for the cadence (1 or 2).
// Unknown cadences return 0, which marks the rule incomplete.
func (c Cadence) IntervalWeeks() int {
	switch c {
	case CadenceWeekly:
		return 1
	case CadenceFortnightly:
		return 2
	default:
		return 0
	}
}

// TimeOfDay is a wall-clock time with minute granularity.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// IsZero reports whether the time-of-day was never set.
// Midnight walks are not a thing for this business, so 00:00 means "unset".
func (t TimeOfDay) IsZero() bool {
	return t.Hour == 0 && t.Minute == 0
}

// RecurrenceRule is the declarative description of a client's recurring
// service. Rules are deactivated, never deleted, when the upstream
// subscription ends; deactivation triggers retraction of future
// auto-generated slots on the next materialization pass.
type RecurrenceRule struct {
	ID             RuleID
	ClientID       ClientID
	ServiceID      ServiceID
	SubscriptionID string // external billing subscription, if rule was derived from one
	Cadence        Cadence
	Weekdays       []int // 0=Monday .. 6=Sunday
	TimeOfDay      TimeOfDay
	Location       string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MissingFields lists everything that prevents the rule from being
// materialized. An empty result means the rule is complete.
func (r RecurrenceRule) MissingFields(svc *Service) []string {
	var missing []string
	if r.Cadence.IntervalWeeks() == 0 {
		missing = append(missing, "cadence")
	}
	if len(r.Weekdays) == 0 {
		missing = append(missing, "weekdays")
	}
	for _, d := range r.Weekdays {
		if d < 0 || d > 6 {
			missing = append(missing, "weekdays")
			break
		}
	}
	if r.TimeOfDay.IsZero() {
		missing = append(missing, "time_of_day")
	}
	if r.Location == "" {
		missing = append(missing, "location")
	}
	if svc == nil || !svc.Active || svc.DurationMinutes <= 0 {
		missing = append(missing, "service_duration")
	}
	return missing
}

// Complete reports whether the rule can be materialized.
func (r RecurrenceRule) Complete(svc *Service) bool {
	return len(r.MissingFields(svc)) == 0
}

// HasWeekday reports whether the rule covers the given Monday-indexed weekday.
func (r RecurrenceRule) HasWeekday(day int) bool {
	for _, d := range r.Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// =============================================================================
// BOOKING - A concrete calendar slot
// =============================================================================

// BookingStatus is the closed set of booking states.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
	StatusVoid      BookingStatus = "void"
	StatusNoShow    BookingStatus = "no_show"
)

// CountsAgainstSchedule is the single source of truth for whether a booking
// still occupies calendar time. Cancelled and voided bookings keep their
// historical record but are invisible to conflict and capacity checks.
func (s BookingStatus) CountsAgainstSchedule() bool {
	switch s {
	case StatusCancelled, StatusVoid:
		return false
	default:
		return true
	}
}

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusVoid, StatusNoShow:
		return true
	}
	return false
}

// Booking is a concrete calendar slot, either produced by the Materializer
// (AutoGenerated=true, RuleID set) or created manually by staff/portal
// action. Manual bookings are permanently exempt from Materializer deletion.
type Booking struct {
	ID        BookingID
	ClientID  ClientID
	ServiceID ServiceID
	Start     time.Time
	End       time.Time // Start + service duration
	Location  string
	Headcount int // number of dogs on the walk
	Price     decimal.Decimal
	Status    BookingStatus

	AutoGenerated bool
	RuleID        RuleID // back-reference to the producing rule, if any
	Deleted       bool   // soft delete; deleted bookings are invisible everywhere

	// NeedsReview is set by the reconciliation validator when an external
	// billing record disagrees with this booking. Cleared on apply/dismiss.
	NeedsReview bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the booking participates in conflict and capacity
// checks: not soft-deleted and in a status that counts against the schedule.
func (b Booking) Active() bool {
	return !b.Deleted && b.Status.CountsAgainstSchedule()
}

// Overlaps reports whether [b.Start, b.End) intersects [start, end).
// Half-open intervals: a booking ending exactly when another starts
// does not overlap it.
func (b Booking) Overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && b.End.After(start)
}

// =============================================================================
// CAPACITY BLOCK / HOLD - Shared, capacity-bounded time windows
// =============================================================================

// CapacityBlock is a named time window (e.g. "08:30-10:30 farm run") with a
// per-service seat count. Services without an entry cannot be booked into
// the block at all.
type CapacityBlock struct {
	ID         BlockID
	Label      string
	Start      time.Time
	End        time.Time
	Capacities map[ServiceID]int
}

// Capacity returns the declared seat count for a service, zero if the
// service has no entry in the block.
func (cb CapacityBlock) Capacity(service ServiceID) int {
	return cb.Capacities[service]
}

// CapacityHold is an ephemeral reservation against a block, created when a
// client begins a booking flow and destroyed by expiry or flow completion.
// A hold counts against capacity only while now < ExpiresAt.
type CapacityHold struct {
	ID        HoldID
	BlockID   BlockID
	ServiceID ServiceID
	ClientID  ClientID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ActiveAt reports whether the hold still counts at the given instant.
func (h CapacityHold) ActiveAt(now time.Time) bool {
	return now.Before(h.ExpiresAt)
}
