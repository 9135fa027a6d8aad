/*
apply.go - Staff resolution of reconciliation diffs

PURPOSE:
  A recorded diff is resolved one of two ways, always by explicit staff
  action:
    Apply:   copy the external value(s) for the selected fields onto the
             booking, then clear the diff.
    Dismiss: clear the diff without copying anything.
  There is no automatic path; see validator.go.
*/
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pawtrack/booking-engine/booking"
)

// Apply copies the external values for the selected fields onto the booking
// and clears the diff. An empty fields slice applies every recorded field.
// Unknown or un-recorded field names are rejected.
func (v *Validator) Apply(ctx context.Context, id booking.BookingID, fields []string) error {
	d, err := v.Diffs.GetDiff(ctx, id)
	if err != nil {
		return err
	}
	b, err := v.Bookings.GetBooking(ctx, id)
	if err != nil {
		return err
	}

	if len(fields) == 0 {
		for name := range d.Fields {
			fields = append(fields, name)
		}
	}

	loc := v.Location
	if loc == nil {
		loc = time.Local
	}

	for _, name := range fields {
		fd, ok := d.Fields[name]
		if !ok {
			return fmt.Errorf("field %q is not part of the recorded diff", name)
		}
		if err := applyField(ctx, v.Services, b, name, fd.External, loc); err != nil {
			return err
		}
	}

	if !b.End.After(b.Start) {
		return booking.ErrInvalidInterval
	}

	b.NeedsReview = false
	b.UpdatedAt = time.Now()
	if err := v.Bookings.UpdateBooking(ctx, *b); err != nil {
		return fmt.Errorf("apply diff to booking %s: %w", id, err)
	}
	return v.Diffs.ClearDiff(ctx, id)
}

// Dismiss clears the outstanding diff and the review flag without copying
// any external values.
func (v *Validator) Dismiss(ctx context.Context, id booking.BookingID) error {
	if _, err := v.Diffs.GetDiff(ctx, id); err != nil {
		return err
	}
	b, err := v.Bookings.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	b.NeedsReview = false
	b.UpdatedAt = time.Now()
	if err := v.Bookings.UpdateBooking(ctx, *b); err != nil {
		return fmt.Errorf("dismiss diff for booking %s: %w", id, err)
	}
	return v.Diffs.ClearDiff(ctx, id)
}

func applyField(ctx context.Context, services booking.ServiceStore, b *booking.Booking, name, external string, loc *time.Location) error {
	switch name {
	case FieldStart:
		t, err := time.Parse(time.RFC3339, external)
		if err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		b.Start = t.In(loc)
	case FieldEnd:
		t, err := time.Parse(time.RFC3339, external)
		if err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		b.End = t.In(loc)
	case FieldHeadcount:
		n, err := strconv.Atoi(external)
		if err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		b.Headcount = n
	case FieldLocation:
		b.Location = external
	case FieldServiceCode:
		svc, err := services.GetServiceByCode(ctx, external)
		if err != nil {
			if errors.Is(err, booking.ErrServiceNotFound) {
				return fmt.Errorf("apply %s: no active service with code %q", name, external)
			}
			return err
		}
		b.ServiceID = svc.ID
	case FieldAmount:
		amt, err := decimal.NewFromString(external)
		if err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		b.Price = amt
	default:
		return fmt.Errorf("unknown diff field %q", name)
	}
	return nil
}
