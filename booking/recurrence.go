/*
recurrence.go - Expanding rules into candidate slots

PURPOSE:
  The pure time arithmetic behind materialization: compute the Monday
  anchoring a week, expand a rule into candidate (start, end) slots over
  a horizon, and decide whether a rule still implies a given slot.

THE FORTNIGHT PHASE PROBLEM:
  Fortnightly cadence needs an anchor to know which alternate week is
  "on". No anchor is stored; phase is derived from week zero, the Monday
  on/before the materialization `now`. Two consequences, both deliberate
  and covered by tests rather than silently resolved:
    - Re-running at a `now` one week later flips which weeks a
      fortnightly rule lands on.
    - A skipped run across a cadence-aligned gap can drift the phase.
  A stored per-rule anchor date would fix this; see DESIGN.md.

IMPLICATION IS STRUCTURAL:
  RuleImplies checks weekday, time-of-day, location, service and
  fortnight phase, but not the horizon length. Shrinking the horizon
  must not retract slots a longer earlier run created beyond it.
*/
package booking

import (
	"math"
	"time"
)

// WeekStart returns Monday 00:00 of the week containing t, in t's location.
func WeekStart(t time.Time) time.Time {
	// time.Weekday is Sunday-indexed; shift so Monday = 0.
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// HorizonWeeks converts a forward horizon duration into whole weeks,
// rounding partial weeks up so the tail of the horizon is still covered.
func HorizonWeeks(horizon time.Duration) int {
	if horizon <= 0 {
		return 0
	}
	const week = 7 * 24 * time.Hour
	return int(math.Ceil(float64(horizon) / float64(week)))
}

// Slot is one candidate occurrence of a rule.
type Slot struct {
	Start time.Time
	End   time.Time
}

// ExpandRule computes every slot the rule implies between week0 and
// week0 + weeks. week0 must be a Monday 00:00 (see WeekStart). The rule is
// assumed complete; callers check Complete() first.
func ExpandRule(rule RecurrenceRule, svc Service, week0 time.Time, weeks int) []Slot {
	interval := rule.Cadence.IntervalWeeks()
	if interval == 0 || weeks <= 0 {
		return nil
	}
	duration := svc.Duration()

	var slots []Slot
	for wk := 0; wk < weeks; wk += interval {
		weekStart := week0.AddDate(0, 0, 7*wk)
		for _, day := range rule.Weekdays {
			dayStart := weekStart.AddDate(0, 0, day)
			// Rebuild from calendar components so a DST transition inside
			// the week cannot shift the wall-clock start time.
			y, m, d := dayStart.Date()
			start := time.Date(y, m, d, rule.TimeOfDay.Hour, rule.TimeOfDay.Minute, 0, 0, week0.Location())
			slots = append(slots, Slot{Start: start, End: start.Add(duration)})
		}
	}
	return slots
}

// RuleImplies reports whether the rule, as currently configured, still
// implies a slot starting at the given instant. Used by the materializer's
// deletion pass: an auto-generated booking whose rule no longer implies its
// slot is retracted. Horizon length is deliberately not part of the check.
func RuleImplies(rule RecurrenceRule, svc Service, start time.Time, week0 time.Time) bool {
	if !rule.Active || !rule.Complete(&svc) {
		return false
	}

	local := start.In(week0.Location())

	day := (int(local.Weekday()) + 6) % 7
	if !rule.HasWeekday(day) {
		return false
	}
	if local.Hour() != rule.TimeOfDay.Hour || local.Minute() != rule.TimeOfDay.Minute {
		return false
	}

	// Fortnight phase relative to week zero.
	interval := rule.Cadence.IntervalWeeks()
	if interval > 1 {
		slotWeek := WeekStart(local)
		weeksApart := int(math.Round(slotWeek.Sub(week0).Hours() / (24 * 7)))
		if ((weeksApart%interval)+interval)%interval != 0 {
			return false
		}
	}
	return true
}
