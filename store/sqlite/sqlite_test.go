package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawtrack/booking-engine/booking"
	"github.com/pawtrack/booking-engine/reconcile"
	"github.com/pawtrack/booking-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var mondayTen = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedService(t *testing.T, s *sqlite.Store) booking.Service {
	t.Helper()
	svc := booking.Service{
		ID: "svc-walk-30", Code: "walk30", Name: "30 minute walk",
		DurationMinutes: 30, Price: decimal.NewFromFloat(35.00), Active: true,
	}
	require.NoError(t, s.SaveService(context.Background(), svc))
	return svc
}

func testBooking(id booking.BookingID, start time.Time) booking.Booking {
	return booking.Booking{
		ID:        id,
		ClientID:  "client-1",
		ServiceID: "svc-walk-30",
		Start:     start,
		End:       start.Add(30 * time.Minute),
		Location:  "Northside Park",
		Headcount: 2,
		Price:     decimal.NewFromFloat(35.00),
		Status:    booking.StatusConfirmed,
		CreatedAt: mondayTen,
		UpdatedAt: mondayTen,
	}
}

// =============================================================================
// SERVICES
// =============================================================================

func TestStore_ServiceRoundtrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	svc := seedService(t, s)

	got, err := s.GetService(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, svc.Code, got.Code)
	assert.Equal(t, svc.Name, got.Name)
	assert.Equal(t, 30, got.DurationMinutes)
	assert.True(t, got.Price.Equal(svc.Price))
	assert.True(t, got.Active)

	_, err = s.GetService(ctx, "svc-ghost")
	assert.ErrorIs(t, err, booking.ErrServiceNotFound)
}

func TestStore_GetServiceByCodeActiveOnly(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	svc := seedService(t, s)

	got, err := s.GetServiceByCode(ctx, "walk30")
	require.NoError(t, err)
	assert.Equal(t, svc.ID, got.ID)

	svc.Active = false
	require.NoError(t, s.SaveService(ctx, svc))

	_, err = s.GetServiceByCode(ctx, "walk30")
	assert.ErrorIs(t, err, booking.ErrServiceNotFound, "retired codes do not resolve")
}

// =============================================================================
// RULES
// =============================================================================

func TestStore_RuleRoundtrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seedService(t, s)

	rule := booking.RecurrenceRule{
		ID:             "rule-1",
		ClientID:       "client-1",
		ServiceID:      "svc-walk-30",
		SubscriptionID: "sub-1",
		Cadence:        booking.CadenceFortnightly,
		Weekdays:       []int{0, 2, 4},
		TimeOfDay:      booking.TimeOfDay{Hour: 10, Minute: 30},
		Location:       "Northside Park",
		Active:         true,
		CreatedAt:      mondayTen,
		UpdatedAt:      mondayTen,
	}
	require.NoError(t, s.SaveRule(ctx, rule))

	got, err := s.GetRule(ctx, "rule-1")
	require.NoError(t, err)
	assert.Equal(t, rule.Weekdays, got.Weekdays)
	assert.Equal(t, rule.TimeOfDay, got.TimeOfDay)
	assert.Equal(t, booking.CadenceFortnightly, got.Cadence)

	bySub, err := s.GetRuleBySubscription(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, rule.ID, bySub.ID)

	_, err = s.GetRuleBySubscription(ctx, "sub-ghost")
	assert.ErrorIs(t, err, booking.ErrRuleNotFound)
}

func TestStore_ListActiveRulesExcludesInactive(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seedService(t, s)

	active := booking.RecurrenceRule{
		ID: "rule-on", ClientID: "client-1", ServiceID: "svc-walk-30",
		Cadence: booking.CadenceWeekly, Weekdays: []int{0},
		TimeOfDay: booking.TimeOfDay{Hour: 10}, Location: "Park", Active: true,
	}
	inactive := active
	inactive.ID = "rule-off"
	inactive.Active = false

	require.NoError(t, s.SaveRule(ctx, active))
	require.NoError(t, s.SaveRule(ctx, inactive))

	rules, err := s.ListActiveRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, booking.RuleID("rule-on"), rules[0].ID)
}

func TestStore_IncompleteRuleSurvivesRoundtrip(t *testing.T) {
	// A half-configured rule (no weekdays, no time) persists and comes back
	// with its zero values intact.

	s := newStore(t)
	ctx := context.Background()

	rule := booking.RecurrenceRule{
		ID: "rule-partial", ClientID: "client-1",
		SubscriptionID: "sub-2", Cadence: booking.CadenceWeekly, Active: true,
	}
	require.NoError(t, s.SaveRule(ctx, rule))

	got, err := s.GetRule(ctx, "rule-partial")
	require.NoError(t, err)
	assert.Empty(t, got.Weekdays)
	assert.True(t, got.TimeOfDay.IsZero())
	assert.Empty(t, got.Location)
}

// =============================================================================
// BOOKINGS
// =============================================================================

func TestStore_BookingRoundtrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seedService(t, s)

	b := testBooking("bk-1", mondayTen)
	b.AutoGenerated = true
	b.RuleID = "rule-1"
	require.NoError(t, s.CreateBooking(ctx, b))

	got, err := s.GetBooking(ctx, "bk-1")
	require.NoError(t, err)
	assert.True(t, got.Start.Equal(mondayTen))
	assert.True(t, got.End.Equal(mondayTen.Add(30*time.Minute)))
	assert.Equal(t, 2, got.Headcount)
	assert.True(t, got.Price.Equal(b.Price))
	assert.True(t, got.AutoGenerated)
	assert.Equal(t, booking.RuleID("rule-1"), got.RuleID)
	assert.False(t, got.NeedsReview)
}

func TestStore_DuplicateSlotRejected(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seedService(t, s)

	require.NoError(t, s.CreateBooking(ctx, testBooking("bk-1", mondayTen)))

	err := s.CreateBooking(ctx, testBooking("bk-2", mondayTen))
	assert.ErrorIs(t, err, booking.ErrDuplicateSlot)

	// Different start, same client and service: fine.
	assert.NoError(t, s.CreateBooking(ctx, testBooking("bk-3", mondayTen.Add(time.Hour))))
}

func TestStore_SoftDeletedSlotIsRecreatable(t *testing.T) {
	// GIVEN: A booking retracted by soft delete
	// WHEN: The same (client, service, start) slot is created again
	// THEN: The create succeeds and FindBySlot sees only the live one

	s := newStore(t)
	ctx := context.Background()
	seedService(t, s)

	require.NoError(t, s.CreateBooking(ctx, testBooking("bk-1", mondayTen)))
	require.NoError(t, s.SoftDeleteBooking(ctx, "bk-1"))

	require.NoError(t, s.CreateBooking(ctx, testBooking("bk-2", mondayTen)))

	got, err := s.FindBySlot(ctx, "client-1", "svc-walk-30", mondayTen)
	require.NoError(t, err)
	assert.Equal(t, booking.BookingID("bk-2"), got.ID)

	// The deleted record is retained, flagged.
	old, err := s.GetBooking(ctx, "bk-1")
	require.NoError(t, err)
	assert.True(t, old.Deleted)
}

func TestStore_SoftDeleteUnknownBooking(t *testing.T) {
	s := newStore(t)
	err := s.SoftDeleteBooking(context.Background(), "bk-ghost")
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
}

func TestStore_UpdateBooking(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seedService(t, s)

	b := testBooking("bk-1", mondayTen)
	require.NoError(t, s.CreateBooking(ctx, b))

	b.Status = booking.StatusCancelled
	b.NeedsReview = true
	require.NoError(t, s.UpdateBooking(ctx, b))

	got, err := s.GetBooking(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, got.Status)
	assert.True(t, got.NeedsReview)

	missing := testBooking("bk-ghost", mondayTen)
	assert.ErrorIs(t, s.UpdateBooking(ctx, missing), booking.ErrBookingNotFound)
}

func TestStore_ListClientBookingsHalfOpenWindow(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seedService(t, s)

	before := testBooking("bk-before", mondayTen.Add(-2*time.Hour)) // ends 08:30
	inside := testBooking("bk-inside", mondayTen)                   // 10:00-10:30
	atEnd := testBooking("bk-at-end", mondayTen.Add(2*time.Hour))   // starts at window end
	require.NoError(t, s.CreateBooking(ctx, before))
	require.NoError(t, s.CreateBooking(ctx, inside))
	require.NoError(t, s.CreateBooking(ctx, atEnd))

	got, err := s.ListClientBookings(ctx, "client-1", mondayTen.Add(-90*time.Minute), mondayTen.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1, "touching endpoints excluded on both sides")
	assert.Equal(t, booking.BookingID("bk-inside"), got[0].ID)
}

func TestStore_ListAutoGeneratedStrictlyAfter(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seedService(t, s)

	past := testBooking("bk-past", mondayTen.Add(-24*time.Hour))
	past.AutoGenerated = true
	at := testBooking("bk-at", mondayTen)
	at.AutoGenerated = true
	future := testBooking("bk-future", mondayTen.Add(24*time.Hour))
	future.AutoGenerated = true
	manual := testBooking("bk-manual", mondayTen.Add(48*time.Hour))

	for _, b := range []booking.Booking{past, at, future, manual} {
		require.NoError(t, s.CreateBooking(ctx, b))
	}

	got, err := s.ListAutoGenerated(ctx, mondayTen)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, booking.BookingID("bk-future"), got[0].ID)
}

func TestStore_CountActiveInWindow(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seedService(t, s)

	confirmed := testBooking("bk-1", mondayTen)
	cancelled := testBooking("bk-2", mondayTen.Add(5*time.Minute))
	cancelled.ClientID = "client-2"
	cancelled.Status = booking.StatusCancelled
	outside := testBooking("bk-3", mondayTen.Add(3*time.Hour))
	outside.ClientID = "client-3"

	for _, b := range []booking.Booking{confirmed, cancelled, outside} {
		require.NoError(t, s.CreateBooking(ctx, b))
	}

	n, err := s.CountActiveInWindow(ctx, "svc-walk-30", mondayTen, mondayTen.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n, "cancelled and out-of-window bookings excluded")
}

// =============================================================================
// BLOCKS AND HOLDS
// =============================================================================

func TestStore_BlockRoundtripReplacesCapacities(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	block := booking.CapacityBlock{
		ID:    "block-farm-am",
		Label: "Morning farm run",
		Start: mondayTen.Add(-90 * time.Minute),
		End:   mondayTen.Add(30 * time.Minute),
		Capacities: map[booking.ServiceID]int{
			"svc-farm": 4,
			"svc-solo": 1,
		},
	}
	require.NoError(t, s.SaveBlock(ctx, block))

	// Re-save with a changed capacity set: entries are replaced wholesale.
	block.Capacities = map[booking.ServiceID]int{"svc-farm": 6}
	require.NoError(t, s.SaveBlock(ctx, block))

	got, err := s.GetBlock(ctx, "block-farm-am")
	require.NoError(t, err)
	assert.Equal(t, "Morning farm run", got.Label)
	assert.Equal(t, map[booking.ServiceID]int{"svc-farm": 6}, got.Capacities)
	assert.Equal(t, 0, got.Capacity("svc-solo"))

	_, err = s.GetBlock(ctx, "block-ghost")
	assert.ErrorIs(t, err, booking.ErrBlockNotFound)
}

func TestStore_ListBlocksInRange(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	morning := booking.CapacityBlock{
		ID: "block-am", Label: "AM",
		Start: mondayTen, End: mondayTen.Add(2 * time.Hour),
		Capacities: map[booking.ServiceID]int{"svc-farm": 4},
	}
	evening := booking.CapacityBlock{
		ID: "block-pm", Label: "PM",
		Start: mondayTen.Add(8 * time.Hour), End: mondayTen.Add(10 * time.Hour),
		Capacities: map[booking.ServiceID]int{"svc-farm": 4},
	}
	require.NoError(t, s.SaveBlock(ctx, morning))
	require.NoError(t, s.SaveBlock(ctx, evening))

	got, err := s.ListBlocksInRange(ctx, mondayTen.Add(-time.Hour), mondayTen.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, booking.BlockID("block-am"), got[0].ID)
	assert.Equal(t, 4, got[0].Capacity("svc-farm"))
}

func TestStore_HoldLifecycle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	live := booking.CapacityHold{
		ID: "hold-1", BlockID: "block-am", ServiceID: "svc-farm",
		ClientID: "client-1", ExpiresAt: mondayTen.Add(10 * time.Minute), CreatedAt: mondayTen,
	}
	expired := booking.CapacityHold{
		ID: "hold-2", BlockID: "block-am", ServiceID: "svc-farm",
		ClientID: "client-2", ExpiresAt: mondayTen.Add(-time.Minute), CreatedAt: mondayTen.Add(-11 * time.Minute),
	}
	require.NoError(t, s.CreateHold(ctx, live))
	require.NoError(t, s.CreateHold(ctx, expired))

	n, err := s.CountActiveHolds(ctx, "block-am", "svc-farm", mondayTen)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "expired hold does not count")

	purged, err := s.PurgeExpiredHolds(ctx, mondayTen)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	require.NoError(t, s.DeleteHold(ctx, "hold-1"))
	assert.ErrorIs(t, s.DeleteHold(ctx, "hold-1"), booking.ErrHoldNotFound)
}

// =============================================================================
// RECONCILIATION
// =============================================================================

func TestStore_DiffRoundtripAndReplace(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first := reconcile.Diff{
		BookingID: "bk-1",
		Fields: map[string]reconcile.FieldDiff{
			reconcile.FieldHeadcount: {Booking: "2", External: "3"},
		},
		SourceRecordID: "inv-100",
		CreatedAt:      mondayTen,
	}
	require.NoError(t, s.SaveDiff(ctx, first))

	// A later run replaces the booking's diff outright.
	second := first
	second.Fields = map[string]reconcile.FieldDiff{
		reconcile.FieldAmount: {Booking: "35", External: "42.5"},
	}
	second.SourceRecordID = "inv-101"
	require.NoError(t, s.SaveDiff(ctx, second))

	got, err := s.GetDiff(ctx, "bk-1")
	require.NoError(t, err)
	require.Len(t, got.Fields, 1)
	assert.Contains(t, got.Fields, reconcile.FieldAmount)
	assert.Equal(t, "inv-101", got.SourceRecordID)

	all, err := s.ListDiffs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.ClearDiff(ctx, "bk-1"))
	_, err = s.GetDiff(ctx, "bk-1")
	assert.ErrorIs(t, err, reconcile.ErrDiffNotFound)
}

func TestStore_RunsNewestFirstWithLimit(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for i, id := range []string{"run-1", "run-2", "run-3"} {
		r := reconcile.Run{
			ID:        id,
			RecordID:  "inv-100",
			Lines:     2,
			Status:    "completed",
			StartedAt: mondayTen.Add(time.Duration(i) * time.Minute),
		}
		r.CompletedAt = r.StartedAt.Add(time.Second)
		require.NoError(t, s.SaveRun(ctx, r))
	}

	got, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run-3", got[0].ID)
	assert.Equal(t, "run-2", got[1].ID)

	all, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
