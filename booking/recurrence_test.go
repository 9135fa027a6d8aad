package booking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawtrack/booking-engine/booking"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

// Monday, March 2, 2026.
var monday = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func walkService() booking.Service {
	return booking.Service{
		ID:              "svc-walk-30",
		Code:            "walk30",
		Name:            "30 minute walk",
		DurationMinutes: 30,
		Active:          true,
	}
}

func weeklyRule() booking.RecurrenceRule {
	return booking.RecurrenceRule{
		ID:        "rule-1",
		ClientID:  "client-1",
		ServiceID: "svc-walk-30",
		Cadence:   booking.CadenceWeekly,
		Weekdays:  []int{0, 2}, // Monday, Wednesday
		TimeOfDay: booking.TimeOfDay{Hour: 10},
		Location:  "Northside Park",
		Active:    true,
	}
}

// =============================================================================
// WEEK START
// =============================================================================

func TestWeekStart_MidWeek(t *testing.T) {
	// GIVEN: A Thursday afternoon
	// WHEN: Computing the week start
	// THEN: The Monday 00:00 of the same week is returned

	thursday := time.Date(2026, time.March, 5, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, monday, booking.WeekStart(thursday))
}

func TestWeekStart_MondayIsItsOwnWeekStart(t *testing.T) {
	// Any instant on Monday maps to that Monday's midnight, not the prior week.
	assert.Equal(t, monday, booking.WeekStart(monday))
	assert.Equal(t, monday, booking.WeekStart(monday.Add(23*time.Hour)))
}

func TestWeekStart_Sunday(t *testing.T) {
	// Sunday belongs to the week that started six days earlier.
	sunday := time.Date(2026, time.March, 8, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, booking.WeekStart(sunday))
}

func TestHorizonWeeks_RoundsPartialWeeksUp(t *testing.T) {
	assert.Equal(t, 0, booking.HorizonWeeks(0))
	assert.Equal(t, 1, booking.HorizonWeeks(24*time.Hour))
	assert.Equal(t, 1, booking.HorizonWeeks(7*24*time.Hour))
	assert.Equal(t, 2, booking.HorizonWeeks(8*24*time.Hour))
	assert.Equal(t, 8, booking.HorizonWeeks(booking.DefaultHorizon))
}

// =============================================================================
// EXPANSION
// =============================================================================

func TestExpandRule_WeeklyTwoDays(t *testing.T) {
	// GIVEN: A weekly Monday+Wednesday 10:00 rule for a 30-minute service
	// WHEN: Expanding over a two-week horizon
	// THEN: Four slots, chronological per week, each 30 minutes long

	slots := booking.ExpandRule(weeklyRule(), walkService(), monday, 2)
	require.Len(t, slots, 4)

	wantStarts := []time.Time{
		time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 11, 10, 0, 0, 0, time.UTC),
	}
	for i, want := range wantStarts {
		assert.True(t, slots[i].Start.Equal(want), "slot %d start", i)
		assert.Equal(t, 30*time.Minute, slots[i].End.Sub(slots[i].Start), "slot %d duration", i)
	}
}

func TestExpandRule_FortnightlySkipsAlternateWeeks(t *testing.T) {
	rule := weeklyRule()
	rule.Cadence = booking.CadenceFortnightly
	rule.Weekdays = []int{0}

	slots := booking.ExpandRule(rule, walkService(), monday, 4)
	require.Len(t, slots, 2)
	assert.True(t, slots[0].Start.Equal(time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)))
	assert.True(t, slots[1].Start.Equal(time.Date(2026, time.March, 16, 10, 0, 0, 0, time.UTC)))
}

func TestExpandRule_UnknownCadenceYieldsNothing(t *testing.T) {
	rule := weeklyRule()
	rule.Cadence = "monthly"
	assert.Empty(t, booking.ExpandRule(rule, walkService(), monday, 4))
}

func TestExpandRule_DSTTransitionKeepsWallClockTime(t *testing.T) {
	// GIVEN: A timezone with a DST transition inside the horizon
	// WHEN: Expanding a rule across the transition
	// THEN: Every slot starts at the same wall-clock time

	syd, err := time.LoadLocation("Australia/Sydney")
	require.NoError(t, err)

	// Sydney leaves DST on April 5, 2026.
	week0 := booking.WeekStart(time.Date(2026, time.March, 30, 9, 0, 0, 0, syd))
	rule := weeklyRule()
	rule.Weekdays = []int{0}

	slots := booking.ExpandRule(rule, walkService(), week0, 2)
	require.Len(t, slots, 2)
	for i, s := range slots {
		assert.Equal(t, 10, s.Start.Hour(), "slot %d wall-clock hour", i)
		assert.Equal(t, 0, s.Start.Minute(), "slot %d wall-clock minute", i)
	}
}

// =============================================================================
// IMPLICATION
// =============================================================================

func TestRuleImplies_MatchingSlot(t *testing.T) {
	start := time.Date(2026, time.March, 11, 10, 0, 0, 0, time.UTC) // Wednesday
	assert.True(t, booking.RuleImplies(weeklyRule(), walkService(), start, monday))
}

func TestRuleImplies_WeekdayRemoved(t *testing.T) {
	// GIVEN: A booking on Wednesday
	// WHEN: The rule no longer covers Wednesday
	// THEN: The slot is no longer implied

	rule := weeklyRule()
	rule.Weekdays = []int{0}
	start := time.Date(2026, time.March, 11, 10, 0, 0, 0, time.UTC)
	assert.False(t, booking.RuleImplies(rule, walkService(), start, monday))
}

func TestRuleImplies_TimeChanged(t *testing.T) {
	rule := weeklyRule()
	rule.TimeOfDay = booking.TimeOfDay{Hour: 14}
	start := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	assert.False(t, booking.RuleImplies(rule, walkService(), start, monday))
}

func TestRuleImplies_InactiveRule(t *testing.T) {
	rule := weeklyRule()
	rule.Active = false
	start := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	assert.False(t, booking.RuleImplies(rule, walkService(), start, monday))
}

func TestRuleImplies_FortnightPhase(t *testing.T) {
	// GIVEN: A fortnightly Monday rule with phase derived from week zero
	// THEN: On-weeks are implied, off-weeks are not

	rule := weeklyRule()
	rule.Cadence = booking.CadenceFortnightly
	rule.Weekdays = []int{0}

	onWeek := time.Date(2026, time.March, 16, 10, 0, 0, 0, time.UTC)  // +2 weeks
	offWeek := time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC)  // +1 week
	assert.True(t, booking.RuleImplies(rule, walkService(), onWeek, monday))
	assert.False(t, booking.RuleImplies(rule, walkService(), offWeek, monday))
}

func TestRuleImplies_IgnoresHorizonLength(t *testing.T) {
	// A slot a year out is still implied: shrinking the horizon must not
	// cause retraction of slots an earlier, longer run created.
	farOut := time.Date(2027, time.March, 1, 10, 0, 0, 0, time.UTC) // a Monday
	assert.True(t, booking.RuleImplies(weeklyRule(), walkService(), farOut, monday))
}
