/*
materializer.go - Deriving concrete bookings from recurrence rules

PURPOSE:
  The core engine. Given the set of active recurrence rules and a
  forward horizon, derive the exact set of calendar slots that should
  exist: create the missing ones (respecting client conflicts and manual
  precedence) and retract previously auto-generated slots no longer
  implied by current rules. Manually created bookings are never touched.

ALGORITHM (per active rule):
  1. Resolve the service duration; missing -> log and skip the rule.
  2. Expand candidates from week zero (Monday on/before `now`) across
     the horizon, stepping by the cadence interval.
  3. Per candidate:
     - booking already at (client, service, start): leave alone.
     - manual booking at that slot, any status: skip, count it.
     - candidate overlaps another active client booking: skip, count it.
     - otherwise create an auto-generated pending booking.
  4. Deletion pass: soft-delete every FUTURE auto-generated booking
     whose rule is gone, inactive, incomplete, or no longer implies the
     slot. Past bookings and manual bookings are never deleted.

IDEMPOTENCE:
  Running twice with no intervening rule change yields created=0 and
  removed=0 on the second run. Deactivating a rule then re-running
  removes exactly that rule's future auto-generated slots.

FAILURE ISOLATION:
  Rules are processed independently. A failing rule is logged and its
  error joined into the returned error; slots already committed for
  other rules stay committed. There is no all-or-nothing rollback
  across the horizon.

CONCURRENCY:
  One pass at a time. The read-then-write per slot is guarded by the
  store's (client, service, start) uniqueness, so a duplicate create
  from a concurrent pass degrades to an idempotent no-op, but callers
  should still serialize passes (see api/scheduler.go).

SEE ALSO:
  - recurrence.go: Candidate expansion and implication
  - conflict.go: Overlap detection
  - api/scheduler.go: The periodic trigger that owns invocation
*/
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// DefaultHorizon is how far ahead rules are materialized into bookings.
const DefaultHorizon = 8 * 7 * 24 * time.Hour

// Summary reports what a materialization pass did.
type Summary struct {
	Created int `json:"created"`
	Removed int `json:"removed"`
	Skipped int `json:"skipped"`
}

// Materializer turns recurrence rules into concrete bookings.
// It is a pure function of (now, horizon) over the store: no hidden
// process-global state, no background goroutines. The trigger's
// lifecycle belongs to the caller.
type Materializer struct {
	Rules    RuleStore
	Services ServiceStore
	Bookings BookingStore
	Detector *Detector

	// Location is the business's civil timezone; week boundaries and
	// slot wall-clock times are computed in it. Defaults to time.Local.
	Location *time.Location
}

// NewMaterializer wires a materializer over a combined store.
func NewMaterializer(store Store, loc *time.Location) *Materializer {
	if loc == nil {
		loc = time.Local
	}
	return &Materializer{
		Rules:    store,
		Services: store,
		Bookings: store,
		Detector: NewDetector(store),
		Location: loc,
	}
}

// Run executes one full materialization pass: creation for every active
// rule, then the deletion pass. Per-rule failures are collected, not fatal.
func (m *Materializer) Run(ctx context.Context, now time.Time, horizon time.Duration) (Summary, error) {
	loc := m.Location
	if loc == nil {
		loc = time.Local
	}
	week0 := WeekStart(now.In(loc))
	weeks := HorizonWeeks(horizon)

	var summary Summary
	var errs []error

	rules, err := m.Rules.ListActiveRules(ctx)
	if err != nil {
		return summary, fmt.Errorf("list active rules: %w", err)
	}

	for _, rule := range rules {
		created, skipped, err := m.materializeRule(ctx, rule, week0, weeks)
		summary.Created += created
		summary.Skipped += skipped
		if err != nil {
			log.Printf("[Materializer] rule %s failed: %v", rule.ID, err)
			errs = append(errs, fmt.Errorf("rule %s: %w", rule.ID, err))
		}
	}

	removed, err := m.deletionPass(ctx, now, week0)
	summary.Removed = removed
	if err != nil {
		errs = append(errs, err)
	}

	log.Printf("[Materializer] pass done: created=%d removed=%d skipped=%d",
		summary.Created, summary.Removed, summary.Skipped)
	return summary, errors.Join(errs...)
}

// materializeRule creates the missing slots for one rule.
func (m *Materializer) materializeRule(ctx context.Context, rule RecurrenceRule, week0 time.Time, weeks int) (created, skipped int, err error) {
	svc, err := m.Services.GetService(ctx, rule.ServiceID)
	if err != nil && !errors.Is(err, ErrServiceNotFound) {
		return 0, 0, err
	}

	// Configuration errors never fail the run; the rule is skipped wholesale.
	if missing := rule.MissingFields(svc); len(missing) > 0 {
		log.Printf("[Materializer] skipping %v", &IncompleteRuleError{RuleID: rule.ID, Missing: missing})
		return 0, 0, nil
	}

	for _, slot := range ExpandRule(rule, *svc, week0, weeks) {
		existing, err := m.Bookings.FindBySlot(ctx, rule.ClientID, rule.ServiceID, slot.Start)
		if err != nil && !errors.Is(err, ErrBookingNotFound) {
			return created, skipped, err
		}
		if existing != nil {
			if !existing.AutoGenerated {
				// Manual entries always win; never overwrite or duplicate.
				skipped++
			}
			continue
		}

		conflict, err := m.Detector.FindConflict(ctx, rule.ClientID, slot.Start, slot.End, "")
		if err != nil {
			return created, skipped, err
		}
		if conflict != nil {
			skipped++
			continue
		}

		now := time.Now()
		b := Booking{
			ID:            BookingID(uuid.NewString()),
			ClientID:      rule.ClientID,
			ServiceID:     rule.ServiceID,
			Start:         slot.Start,
			End:           slot.End,
			Location:      rule.Location,
			Headcount:     1,
			Price:         svc.Price,
			Status:        StatusPending,
			AutoGenerated: true,
			RuleID:        rule.ID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := m.Bookings.CreateBooking(ctx, b); err != nil {
			if errors.Is(err, ErrDuplicateSlot) {
				// Lost a race with a concurrent pass; the slot exists, which
				// is exactly what we wanted.
				continue
			}
			return created, skipped, err
		}
		created++
	}
	return created, skipped, nil
}

// deletionPass retracts future auto-generated bookings no longer implied by
// their rule. Ownership rule: only AutoGenerated bookings are candidates,
// and only those strictly in the future relative to now.
func (m *Materializer) deletionPass(ctx context.Context, now, week0 time.Time) (int, error) {
	auto, err := m.Bookings.ListAutoGenerated(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list auto-generated bookings: %w", err)
	}

	ruleCache := make(map[RuleID]*RecurrenceRule)
	svcCache := make(map[ServiceID]*Service)

	removed := 0
	var errs []error
	for _, b := range auto {
		if !b.AutoGenerated || b.Deleted || !b.Start.After(now) {
			continue
		}

		rule, ok := ruleCache[b.RuleID]
		if !ok {
			r, err := m.Rules.GetRule(ctx, b.RuleID)
			if err != nil && !errors.Is(err, ErrRuleNotFound) {
				errs = append(errs, err)
				continue
			}
			rule = r
			ruleCache[b.RuleID] = rule
		}

		implied := false
		if rule != nil && rule.ServiceID == b.ServiceID {
			svc, ok := svcCache[rule.ServiceID]
			if !ok {
				s, err := m.Services.GetService(ctx, rule.ServiceID)
				if err != nil && !errors.Is(err, ErrServiceNotFound) {
					errs = append(errs, err)
					continue
				}
				svc = s
				svcCache[rule.ServiceID] = svc
			}
			if svc != nil {
				implied = RuleImplies(*rule, *svc, b.Start, week0)
			}
		}
		if implied {
			continue
		}

		if err := m.Bookings.SoftDeleteBooking(ctx, b.ID); err != nil {
			errs = append(errs, fmt.Errorf("retract booking %s: %w", b.ID, err))
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
