package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawtrack/booking-engine/booking"
	"github.com/pawtrack/booking-engine/booking/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const twoWeeks = 14 * 24 * time.Hour

func newMaterializer(t *testing.T) (*booking.Materializer, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	m := booking.NewMaterializer(mem, time.UTC)

	require.NoError(t, mem.SaveService(context.Background(), walkService()))
	return m, mem
}

func saveRule(t *testing.T, mem *store.Memory, rule booking.RecurrenceRule) {
	t.Helper()
	require.NoError(t, mem.SaveRule(context.Background(), rule))
}

func autoBookings(t *testing.T, mem *store.Memory, after time.Time) []booking.Booking {
	t.Helper()
	out, err := mem.ListAutoGenerated(context.Background(), after)
	require.NoError(t, err)
	return out
}

// =============================================================================
// CREATION
// =============================================================================

func TestMaterializer_WeeklyRuleOverTwoWeeks(t *testing.T) {
	// GIVEN: An active weekly Monday+Wednesday 10:00 rule, empty calendar
	// WHEN: Materializing at Monday 09:00 with a two-week horizon
	// THEN: Four pending auto-generated bookings, 30 minutes each

	m, mem := newMaterializer(t)
	ctx := context.Background()
	saveRule(t, mem, weeklyRule())

	now := monday.Add(9 * time.Hour)
	summary, err := m.Run(ctx, now, twoWeeks)
	require.NoError(t, err)
	assert.Equal(t, booking.Summary{Created: 4, Removed: 0, Skipped: 0}, summary)

	got := autoBookings(t, mem, now)
	require.Len(t, got, 4)
	for _, b := range got {
		assert.Equal(t, booking.StatusPending, b.Status)
		assert.True(t, b.AutoGenerated)
		assert.Equal(t, booking.RuleID("rule-1"), b.RuleID)
		assert.Equal(t, "Northside Park", b.Location)
		assert.Equal(t, 30*time.Minute, b.End.Sub(b.Start))
		assert.Equal(t, 1, b.Headcount)
	}
}

func TestMaterializer_SecondRunIsNoOp(t *testing.T) {
	// Idempotence: re-running with identical inputs changes nothing.

	m, mem := newMaterializer(t)
	ctx := context.Background()
	saveRule(t, mem, weeklyRule())
	now := monday.Add(9 * time.Hour)

	_, err := m.Run(ctx, now, twoWeeks)
	require.NoError(t, err)

	summary, err := m.Run(ctx, now, twoWeeks)
	require.NoError(t, err)
	assert.Equal(t, booking.Summary{}, summary)
	assert.Len(t, autoBookings(t, mem, now), 4)
}

func TestMaterializer_IncompleteRuleSkippedWholesale(t *testing.T) {
	// GIVEN: A rule with no time of day
	// WHEN: Materializing
	// THEN: No bookings, no error; the rule waits for configuration

	m, mem := newMaterializer(t)
	ctx := context.Background()
	rule := weeklyRule()
	rule.TimeOfDay = booking.TimeOfDay{}
	saveRule(t, mem, rule)

	summary, err := m.Run(ctx, monday, twoWeeks)
	require.NoError(t, err)
	assert.Equal(t, booking.Summary{}, summary)
}

// =============================================================================
// PRECEDENCE AND CONFLICTS
// =============================================================================

func TestMaterializer_ManualBookingInSlotWins(t *testing.T) {
	// GIVEN: A manual booking already occupying the Monday 10:00 slot
	// WHEN: Materializing
	// THEN: The slot is skipped and the manual booking is untouched

	m, mem := newMaterializer(t)
	ctx := context.Background()
	saveRule(t, mem, weeklyRule())

	manual := booking.Booking{
		ID:        "manual-1",
		ClientID:  "client-1",
		ServiceID: "svc-walk-30",
		Start:     monday.Add(10 * time.Hour),
		End:       monday.Add(10*time.Hour + 30*time.Minute),
		Status:    booking.StatusConfirmed,
	}
	require.NoError(t, mem.CreateBooking(ctx, manual))

	now := monday.Add(9 * time.Hour)
	summary, err := m.Run(ctx, now, twoWeeks)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Created)
	assert.Equal(t, 1, summary.Skipped)

	kept, err := mem.GetBooking(ctx, "manual-1")
	require.NoError(t, err)
	assert.False(t, kept.AutoGenerated)
	assert.Equal(t, booking.StatusConfirmed, kept.Status)
}

func TestMaterializer_ConflictingBookingSkipsSlot(t *testing.T) {
	// GIVEN: A manual booking of a different service overlapping Wednesday 10:00
	// WHEN: Materializing
	// THEN: The overlapped slot is skipped, counted, and the run succeeds

	m, mem := newMaterializer(t)
	ctx := context.Background()
	saveRule(t, mem, weeklyRule())

	vet := booking.Booking{
		ID:        "vet-visit",
		ClientID:  "client-1",
		ServiceID: "svc-vet",
		Start:     monday.Add(2*24*time.Hour + 9*time.Hour + 45*time.Minute), // Wed 09:45
		End:       monday.Add(2*24*time.Hour + 10*time.Hour + 15*time.Minute),
		Status:    booking.StatusConfirmed,
	}
	require.NoError(t, mem.CreateBooking(ctx, vet))

	summary, err := m.Run(ctx, monday.Add(9*time.Hour), twoWeeks)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Created)
	assert.Equal(t, 1, summary.Skipped)
}

func TestMaterializer_CancelledAutoSlotNotResurrected(t *testing.T) {
	// GIVEN: A materialized slot the client then cancelled
	// WHEN: Materializing again
	// THEN: The cancelled booking stays cancelled; no duplicate is created

	m, mem := newMaterializer(t)
	ctx := context.Background()
	saveRule(t, mem, weeklyRule())
	now := monday.Add(9 * time.Hour)

	_, err := m.Run(ctx, now, twoWeeks)
	require.NoError(t, err)

	first := autoBookings(t, mem, now)[0]
	first.Status = booking.StatusCancelled
	require.NoError(t, mem.UpdateBooking(ctx, first))

	summary, err := m.Run(ctx, now, twoWeeks)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)

	got, err := mem.GetBooking(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, got.Status)
	assert.False(t, got.Deleted)
}

// =============================================================================
// DELETION PASS
// =============================================================================

func TestMaterializer_DeactivationRetractsFutureSlots(t *testing.T) {
	// GIVEN: Four materialized future slots, then the rule is deactivated
	// WHEN: Materializing again
	// THEN: All four are soft-deleted; records retained

	m, mem := newMaterializer(t)
	ctx := context.Background()
	rule := weeklyRule()
	saveRule(t, mem, rule)
	now := monday.Add(9 * time.Hour)

	_, err := m.Run(ctx, now, twoWeeks)
	require.NoError(t, err)
	created := autoBookings(t, mem, now)
	require.Len(t, created, 4)

	rule.Active = false
	saveRule(t, mem, rule)

	summary, err := m.Run(ctx, now, twoWeeks)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Removed)
	assert.Equal(t, 0, summary.Created)

	for _, b := range created {
		got, err := mem.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, got.Deleted, "retraction is a soft delete")
	}
}

func TestMaterializer_PastBookingsNeverRetracted(t *testing.T) {
	// GIVEN: An auto-generated booking that already happened
	// WHEN: Its rule is deactivated and materialization runs
	// THEN: The past booking is untouched

	m, mem := newMaterializer(t)
	ctx := context.Background()
	rule := weeklyRule()
	rule.Active = false
	saveRule(t, mem, rule)

	past := booking.Booking{
		ID:            "past-1",
		ClientID:      "client-1",
		ServiceID:     "svc-walk-30",
		Start:         monday.Add(-7*24*time.Hour + 10*time.Hour),
		End:           monday.Add(-7*24*time.Hour + 10*time.Hour + 30*time.Minute),
		Status:        booking.StatusCompleted,
		AutoGenerated: true,
		RuleID:        rule.ID,
	}
	require.NoError(t, mem.CreateBooking(ctx, past))

	summary, err := m.Run(ctx, monday.Add(9*time.Hour), twoWeeks)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Removed)

	got, err := mem.GetBooking(ctx, "past-1")
	require.NoError(t, err)
	assert.False(t, got.Deleted)
}

func TestMaterializer_ManualBookingsExemptFromDeletion(t *testing.T) {
	m, mem := newMaterializer(t)
	ctx := context.Background()

	manual := booking.Booking{
		ID:        "manual-1",
		ClientID:  "client-1",
		ServiceID: "svc-walk-30",
		Start:     monday.Add(24*time.Hour + 15*time.Hour),
		End:       monday.Add(24*time.Hour + 15*time.Hour + 30*time.Minute),
		Status:    booking.StatusConfirmed,
	}
	require.NoError(t, mem.CreateBooking(ctx, manual))

	summary, err := m.Run(ctx, monday.Add(9*time.Hour), twoWeeks)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Removed)

	got, err := mem.GetBooking(ctx, "manual-1")
	require.NoError(t, err)
	assert.False(t, got.Deleted)
}

func TestMaterializer_ServiceChangeRetractsOldSlots(t *testing.T) {
	// GIVEN: Materialized slots, then the rule switches to another service
	// WHEN: Materializing again, twice
	// THEN: First pass retracts old-service slots (new candidates still
	//       collide with them), second pass fills in the new-service slots

	m, mem := newMaterializer(t)
	ctx := context.Background()
	saveRule(t, mem, weeklyRule())
	now := monday.Add(9 * time.Hour)

	_, err := m.Run(ctx, now, twoWeeks)
	require.NoError(t, err)

	hourWalk := booking.Service{
		ID: "svc-walk-60", Code: "walk60", Name: "60 minute walk",
		DurationMinutes: 60, Active: true,
	}
	require.NoError(t, mem.SaveService(ctx, hourWalk))

	rule := weeklyRule()
	rule.ServiceID = hourWalk.ID
	saveRule(t, mem, rule)

	summary, err := m.Run(ctx, now, twoWeeks)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Removed, "old-service slots retracted")
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 4, summary.Skipped, "old slots still occupy the times this pass")

	summary, err = m.Run(ctx, now, twoWeeks)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Created, "new-service slots created once times are free")
}

// =============================================================================
// FORTNIGHT PHASE
// =============================================================================

func TestMaterializer_FortnightPhaseDerivedFromRunWeek(t *testing.T) {
	// The fortnight phase anchors on the Monday of the run. Running a week
	// later flips which weeks the rule lands on: the old on-week slot is
	// retracted and the new phase's slots are created. Documented behavior,
	// not a bug; a stored anchor would pin it.

	m, mem := newMaterializer(t)
	ctx := context.Background()
	rule := weeklyRule()
	rule.Cadence = booking.CadenceFortnightly
	rule.Weekdays = []int{0}
	saveRule(t, mem, rule)

	fourWeeks := 28 * 24 * time.Hour
	now := monday.Add(9 * time.Hour)
	summary, err := m.Run(ctx, now, fourWeeks)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Created) // Mar 2, Mar 16

	// One week later the phase flips: Mar 16 is now an off-week.
	nextWeek := now.Add(7 * 24 * time.Hour)
	summary, err = m.Run(ctx, nextWeek, fourWeeks)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Removed, "previous phase's future slot retracted")
	assert.Equal(t, 2, summary.Created) // Mar 9, Mar 23
}
