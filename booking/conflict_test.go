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

func newDetector(t *testing.T) (*booking.Detector, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return booking.NewDetector(mem), mem
}

func seedBooking(t *testing.T, mem *store.Memory, id string, client string, start time.Time, d time.Duration, status booking.BookingStatus) booking.Booking {
	t.Helper()
	b := booking.Booking{
		ID:        booking.BookingID(id),
		ClientID:  booking.ClientID(client),
		ServiceID: "svc-walk-30",
		Start:     start,
		End:       start.Add(d),
		Headcount: 1,
		Status:    status,
	}
	require.NoError(t, mem.CreateBooking(context.Background(), b))
	return b
}

// =============================================================================
// OVERLAP RULE
// =============================================================================

func TestDetector_OverlappingInterval_Conflicts(t *testing.T) {
	// GIVEN: A confirmed 10:00-10:30 booking
	// WHEN: Checking 10:15-10:45 for the same client
	// THEN: Conflict

	detector, mem := newDetector(t)
	ctx := context.Background()
	ten := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	seedBooking(t, mem, "b-1", "client-1", ten, 30*time.Minute, booking.StatusConfirmed)

	got, err := detector.FindConflict(ctx, "client-1", ten.Add(15*time.Minute), ten.Add(45*time.Minute), "")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, booking.BookingID("b-1"), got.ID)
}

func TestDetector_OverlapIsSymmetric(t *testing.T) {
	// The candidate containing the existing booking conflicts just like
	// the existing booking containing the candidate.

	detector, mem := newDetector(t)
	ctx := context.Background()
	ten := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	seedBooking(t, mem, "b-1", "client-1", ten, 30*time.Minute, booking.StatusConfirmed)

	containing, err := detector.HasConflict(ctx, "client-1", ten.Add(-time.Hour), ten.Add(2*time.Hour), "")
	require.NoError(t, err)
	contained, err := detector.HasConflict(ctx, "client-1", ten.Add(10*time.Minute), ten.Add(20*time.Minute), "")
	require.NoError(t, err)

	assert.True(t, containing)
	assert.True(t, contained)
}

func TestDetector_TouchingEndpoints_NoConflict(t *testing.T) {
	// GIVEN: A booking ending exactly at 10:30
	// WHEN: Checking a candidate starting at 10:30
	// THEN: No conflict (half-open intervals)

	detector, mem := newDetector(t)
	ctx := context.Background()
	ten := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	seedBooking(t, mem, "b-1", "client-1", ten, 30*time.Minute, booking.StatusConfirmed)

	after, err := detector.HasConflict(ctx, "client-1", ten.Add(30*time.Minute), ten.Add(time.Hour), "")
	require.NoError(t, err)
	before, err := detector.HasConflict(ctx, "client-1", ten.Add(-time.Hour), ten, "")
	require.NoError(t, err)

	assert.False(t, after, "candidate starting at existing end should not conflict")
	assert.False(t, before, "candidate ending at existing start should not conflict")
}

// =============================================================================
// SCOPE
// =============================================================================

func TestDetector_OtherClientsInvisible(t *testing.T) {
	detector, mem := newDetector(t)
	ctx := context.Background()
	ten := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	seedBooking(t, mem, "b-1", "client-2", ten, 30*time.Minute, booking.StatusConfirmed)

	conflict, err := detector.HasConflict(ctx, "client-1", ten, ten.Add(30*time.Minute), "")
	require.NoError(t, err)
	assert.False(t, conflict)
}

func TestDetector_CancelledAndVoidExcluded(t *testing.T) {
	// GIVEN: Cancelled and voided bookings occupying the interval
	// WHEN: Checking the same interval
	// THEN: No conflict; those records no longer count against the schedule

	detector, mem := newDetector(t)
	ctx := context.Background()
	ten := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	seedBooking(t, mem, "b-1", "client-1", ten, 30*time.Minute, booking.StatusCancelled)

	conflict, err := detector.HasConflict(ctx, "client-1", ten, ten.Add(30*time.Minute), "")
	require.NoError(t, err)
	assert.False(t, conflict)
}

func TestDetector_ExcludeSelfWhenEditing(t *testing.T) {
	detector, mem := newDetector(t)
	ctx := context.Background()
	ten := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	seedBooking(t, mem, "b-1", "client-1", ten, 30*time.Minute, booking.StatusConfirmed)

	conflict, err := detector.HasConflict(ctx, "client-1", ten, ten.Add(30*time.Minute), "b-1")
	require.NoError(t, err)
	assert.False(t, conflict, "a booking must not conflict with itself")
}

func TestDetector_InvalidInterval(t *testing.T) {
	detector, _ := newDetector(t)
	ten := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

	_, err := detector.FindConflict(context.Background(), "client-1", ten, ten, "")
	assert.ErrorIs(t, err, booking.ErrInvalidInterval)
}
