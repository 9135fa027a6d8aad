/*
validator.go - Field-by-field comparison of billing records and bookings

PURPOSE:
  For each invoice line with a resolvable booking reference, compute a
  field-by-field diff against the stored booking. Any mismatch persists
  a ReconciliationDiff (replacing a prior one) and flags the booking for
  review; a clean comparison clears any prior diff.

COMPARISON RULES:
  - Only fields present in the payload are compared. Absent != mismatch.
  - Times are normalized to the validator's civil timezone and compared
    at whole-second granularity, so representation differences (offset
    notation, sub-second precision) never produce false diffs.
  - Amounts compare with decimal.Equal, not string equality.
  - Location compares trimmed; a nil local location compares as "".

FAILURE SEMANTICS:
  Per-line isolation. Malformed booking references, unparseable
  timestamps, and non-numeric headcounts are logged and skip the line
  (or just the field); one bad line never aborts the batch.

SEE ALSO:
  - types.go: ParseLineMetadata (the explicit mapping)
  - apply.go: Staff resolution of recorded diffs
*/
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pawtrack/booking-engine/booking"
)

// Validator compares external billing records against stored bookings.
type Validator struct {
	Bookings booking.BookingStore
	Services booking.ServiceStore
	Diffs    DiffStore
	Runs     RunStore // optional; nil disables run recording

	// Location is the civil timezone both sides are normalized to before
	// time comparison. Defaults to time.Local.
	Location *time.Location
}

// NewValidator wires a validator. loc may be nil.
func NewValidator(bookings booking.BookingStore, services booking.ServiceStore, diffs DiffStore, runs RunStore, loc *time.Location) *Validator {
	if loc == nil {
		loc = time.Local
	}
	return &Validator{Bookings: bookings, Services: services, Diffs: diffs, Runs: runs, Location: loc}
}

// Validate processes one external record and returns the number of bookings
// flagged with a diff. Lines without a resolvable booking reference are
// logged and skipped. The error, if any, covers persistence failures only.
func (v *Validator) Validate(ctx context.Context, rec ExternalRecord) (int, error) {
	loc := v.Location
	if loc == nil {
		loc = time.Local
	}

	run := Run{
		ID:        uuid.NewString(),
		RecordID:  rec.ID,
		Lines:     len(rec.Lines),
		StartedAt: time.Now(),
	}

	diffCount := 0
	var errs []error
	for _, line := range rec.Lines {
		if len(line.Metadata) == 0 {
			continue
		}
		md, unknown, problems := ParseLineMetadata(line.Metadata, loc)
		if len(unknown) > 0 {
			log.Printf("[Reconcile] record %s: unknown metadata keys: %s", rec.ID, strings.Join(unknown, ","))
		}
		for _, p := range problems {
			log.Printf("[Reconcile] record %s: %s", rec.ID, p)
		}
		if md.BookingID == "" {
			continue
		}

		b, err := v.Bookings.GetBooking(ctx, booking.BookingID(md.BookingID))
		if err != nil {
			if errors.Is(err, booking.ErrBookingNotFound) {
				log.Printf("[Reconcile] record %s: booking %q not found locally", rec.ID, md.BookingID)
				run.SkippedRefs++
				continue
			}
			errs = append(errs, err)
			continue
		}

		fields, err := v.compare(ctx, *b, md, loc)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if len(fields) == 0 {
			if err := v.clear(ctx, *b); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		d := Diff{
			BookingID:      b.ID,
			Fields:         fields,
			SourceRecordID: rec.ID,
			CreatedAt:      time.Now(),
		}
		if err := v.flag(ctx, *b, d); err != nil {
			errs = append(errs, err)
			continue
		}
		log.Printf("[Reconcile] record %s: booking %s flagged for review (%d fields)", rec.ID, b.ID, len(fields))
		diffCount++
	}

	run.Diffs = diffCount
	run.CompletedAt = time.Now()
	run.Status = "completed"
	if err := errors.Join(errs...); err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		v.saveRun(ctx, run)
		return diffCount, err
	}
	v.saveRun(ctx, run)
	return diffCount, nil
}

func (v *Validator) saveRun(ctx context.Context, run Run) {
	if v.Runs == nil {
		return
	}
	if err := v.Runs.SaveRun(ctx, run); err != nil {
		log.Printf("[Reconcile] failed to record run %s: %v", run.ID, err)
	}
}

// compare builds the field diff map. Only fields present in md participate.
func (v *Validator) compare(ctx context.Context, b booking.Booking, md LineMetadata, loc *time.Location) (map[string]FieldDiff, error) {
	fields := make(map[string]FieldDiff)

	if md.Start != nil && !sameInstant(b.Start, *md.Start, loc) {
		fields[FieldStart] = FieldDiff{
			Booking:  b.Start.In(loc).Format(time.RFC3339),
			External: md.Start.Format(time.RFC3339),
		}
	}
	if md.End != nil && !sameInstant(b.End, *md.End, loc) {
		fields[FieldEnd] = FieldDiff{
			Booking:  b.End.In(loc).Format(time.RFC3339),
			External: md.End.Format(time.RFC3339),
		}
	}
	if md.Headcount != nil && b.Headcount != *md.Headcount {
		fields[FieldHeadcount] = FieldDiff{
			Booking:  fmt.Sprintf("%d", b.Headcount),
			External: fmt.Sprintf("%d", *md.Headcount),
		}
	}
	if md.Location != nil && strings.TrimSpace(b.Location) != *md.Location {
		fields[FieldLocation] = FieldDiff{
			Booking:  strings.TrimSpace(b.Location),
			External: *md.Location,
		}
	}
	if md.ServiceCode != nil {
		code, err := v.serviceCode(ctx, b.ServiceID)
		if err != nil {
			return nil, err
		}
		if code != "" && code != *md.ServiceCode {
			fields[FieldServiceCode] = FieldDiff{Booking: code, External: *md.ServiceCode}
		}
	}
	if md.Amount != nil && !b.Price.Equal(*md.Amount) {
		fields[FieldAmount] = FieldDiff{
			Booking:  b.Price.String(),
			External: md.Amount.String(),
		}
	}
	return fields, nil
}

func (v *Validator) serviceCode(ctx context.Context, id booking.ServiceID) (string, error) {
	svc, err := v.Services.GetService(ctx, id)
	if err != nil {
		if errors.Is(err, booking.ErrServiceNotFound) {
			return "", nil
		}
		return "", err
	}
	return svc.Code, nil
}

// flag persists the diff (replacing any prior one) and marks the booking.
func (v *Validator) flag(ctx context.Context, b booking.Booking, d Diff) error {
	if err := v.Diffs.SaveDiff(ctx, d); err != nil {
		return fmt.Errorf("save diff for booking %s: %w", b.ID, err)
	}
	if !b.NeedsReview {
		b.NeedsReview = true
		b.UpdatedAt = time.Now()
		if err := v.Bookings.UpdateBooking(ctx, b); err != nil {
			return fmt.Errorf("flag booking %s: %w", b.ID, err)
		}
	}
	return nil
}

// clear removes any prior diff and the review flag after a clean comparison.
func (v *Validator) clear(ctx context.Context, b booking.Booking) error {
	if err := v.Diffs.ClearDiff(ctx, b.ID); err != nil {
		return fmt.Errorf("clear diff for booking %s: %w", b.ID, err)
	}
	if b.NeedsReview {
		b.NeedsReview = false
		b.UpdatedAt = time.Now()
		if err := v.Bookings.UpdateBooking(ctx, b); err != nil {
			return fmt.Errorf("unflag booking %s: %w", b.ID, err)
		}
	}
	return nil
}

// sameInstant compares two instants in the given civil timezone at
// whole-second granularity.
func sameInstant(a, b time.Time, loc *time.Location) bool {
	return a.In(loc).Truncate(time.Second).Equal(b.In(loc).Truncate(time.Second))
}
