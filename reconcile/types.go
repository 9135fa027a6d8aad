/*
Package reconcile validates external billing records against stored bookings.

PURPOSE:
  The billing provider reports invoice line items carrying booking
  metadata (start/end, headcount, location, service code, amount). This
  package compares that metadata field-by-field against the local
  booking and records divergences as ReconciliationDiffs for manual
  staff review. Mismatches are NEVER auto-applied: silently moving a
  client's walk time costs more than a review queue.

KEY CONCEPTS IN THIS FILE (types.go):
  - ExternalRecord/LineItem: The opaque invoice payload
  - LineMetadata: The explicit, fully-enumerated field mapping
  - Diff/FieldDiff: A recorded field-level mismatch
  - Run: Audit record of one validation batch

EXPLICIT MAPPING:
  Metadata is a closed set of known keys. Unknown keys are logged and
  ignored, never probed dynamically against the booking model. Absent
  keys mean "no information", never a mismatch; "" and 0 are values,
  absence is not.

SEE ALSO:
  - validator.go: The comparison engine
  - apply.go: Staff apply/dismiss actions
*/
package reconcile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pawtrack/booking-engine/booking"
)

// =============================================================================
// EXTERNAL PAYLOAD
// =============================================================================

// ExternalRecord is one billing record (an invoice) as reported by the
// provider. The protocol that produced it is not this package's concern.
type ExternalRecord struct {
	ID    string
	Lines []LineItem
}

// LineItem is one invoice line. Metadata carries the booking reference and
// the provider's view of the booking fields.
type LineItem struct {
	Metadata map[string]string
}

// Field names used in diffs, apply requests, and metadata keys.
const (
	FieldStart       = "start"
	FieldEnd         = "end"
	FieldHeadcount   = "headcount"
	FieldLocation    = "location"
	FieldServiceCode = "service_code"
	FieldAmount      = "amount"
)

// Metadata keys the provider is known to send. Everything else is logged
// as unknown and ignored.
var knownKeys = map[string]string{
	"booking_id":    "",
	"booking_start": FieldStart,
	"booking_end":   FieldEnd,
	"dogs":          FieldHeadcount,
	"location":      FieldLocation,
	"service_code":  FieldServiceCode,
	"amount":        FieldAmount,
}

// LineMetadata is the parsed, explicitly-mapped view of a line's metadata.
// Pointer fields distinguish "absent" from zero values.
type LineMetadata struct {
	BookingID   string
	Start       *time.Time
	End         *time.Time
	Headcount   *int
	Location    *string
	ServiceCode *string
	Amount      *decimal.Decimal
}

// ParseLineMetadata maps raw metadata onto LineMetadata. Times are parsed
// as RFC 3339 and normalized to loc at second granularity; naive timestamps
// are assumed to already be in loc. Returns the parsed fields, the sorted
// unknown keys, and per-field parse problems. A malformed field is reported
// and dropped; it never aborts the line.
func ParseLineMetadata(md map[string]string, loc *time.Location) (LineMetadata, []string, []string) {
	var parsed LineMetadata
	var problems []string
	var unknown []string

	for k, v := range md {
		if _, ok := knownKeys[k]; !ok {
			unknown = append(unknown, k)
			continue
		}
		switch k {
		case "booking_id":
			parsed.BookingID = strings.TrimSpace(v)
		case "booking_start":
			t, err := parseLocalTime(v, loc)
			if err != nil {
				problems = append(problems, fmt.Sprintf("booking_start: %v", err))
				continue
			}
			parsed.Start = &t
		case "booking_end":
			t, err := parseLocalTime(v, loc)
			if err != nil {
				problems = append(problems, fmt.Sprintf("booking_end: %v", err))
				continue
			}
			parsed.End = &t
		case "dogs":
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				problems = append(problems, fmt.Sprintf("dogs: invalid count %q", v))
				continue
			}
			parsed.Headcount = &n
		case "location":
			s := strings.TrimSpace(v)
			parsed.Location = &s
		case "service_code":
			s := strings.TrimSpace(v)
			parsed.ServiceCode = &s
		case "amount":
			amt, err := decimal.NewFromString(strings.TrimSpace(v))
			if err != nil {
				problems = append(problems, fmt.Sprintf("amount: invalid decimal %q", v))
				continue
			}
			parsed.Amount = &amt
		}
	}
	sort.Strings(unknown)
	return parsed, unknown, problems
}

// parseLocalTime parses an RFC 3339 timestamp (with or without offset) and
// returns it in loc, truncated to whole seconds. A timestamp without offset
// is interpreted as already being in loc.
func parseLocalTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc).Truncate(time.Second), nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, loc); err == nil {
		return t.Truncate(time.Second), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// =============================================================================
// DIFF - A recorded field-level mismatch
// =============================================================================

// FieldDiff holds both sides of one mismatched field, string-rendered.
type FieldDiff struct {
	Booking  string `json:"booking"`
	External string `json:"external"`
}

// Diff is the outstanding mismatch record for one booking. A booking
// carries at most one Diff; a new validation run replaces it.
type Diff struct {
	BookingID      booking.BookingID
	Fields         map[string]FieldDiff
	SourceRecordID string
	CreatedAt      time.Time
}

// Run is the audit record of one validation batch.
type Run struct {
	ID          string
	RecordID    string
	Lines       int
	Diffs       int
	SkippedRefs int
	Status      string // "completed" | "failed"
	Error       string
	StartedAt   time.Time
	CompletedAt time.Time
}
