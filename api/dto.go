/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Services:
    ServiceDTO, SaveServiceRequest

  Rules:
    RuleDTO, SaveRuleRequest

  Bookings:
    BookingDTO, CreateBookingRequest

  Capacity:
    BlockDTO, SaveBlockRequest, AvailabilityDTO, HoldRequest, HoldDTO

  Reconciliation:
    DiffDTO, RunDTO, ApplyDiffRequest

  Billing:
    SubscriptionEventRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/pawtrack/booking-engine/booking"
	"github.com/pawtrack/booking-engine/reconcile"
)

// =============================================================================
// SERVICE TYPES
// =============================================================================

// ServiceDTO represents a service in API responses.
type ServiceDTO struct {
	ID              string `json:"id"`
	Code            string `json:"code"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           string `json:"price"`
	Active          bool   `json:"active"`
}

// SaveServiceRequest is the request to create or update a service.
type SaveServiceRequest struct {
	ID              string `json:"id"`
	Code            string `json:"code"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           string `json:"price"`
	Active          *bool  `json:"active,omitempty"`
}

// =============================================================================
// RULE TYPES
// =============================================================================

// RuleDTO represents a recurrence rule in API responses.
type RuleDTO struct {
	ID             string `json:"id"`
	ClientID       string `json:"client_id"`
	ServiceID      string `json:"service_id,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	Cadence        string `json:"cadence,omitempty"`
	Weekdays       []int  `json:"weekdays,omitempty"`
	TimeOfDay      string `json:"time_of_day,omitempty"`
	Location       string `json:"location,omitempty"`
	Active         bool   `json:"active"`
	Complete       bool   `json:"complete"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// SaveRuleRequest is the request to create or update a rule.
type SaveRuleRequest struct {
	ID        string `json:"id,omitempty"`
	ClientID  string `json:"client_id"`
	ServiceID string `json:"service_id"`
	Cadence   string `json:"cadence"`
	Weekdays  []int  `json:"weekdays"`
	TimeOfDay string `json:"time_of_day"`
	Location  string `json:"location,omitempty"`
	Active    *bool  `json:"active,omitempty"`
}

// =============================================================================
// BOOKING TYPES
// =============================================================================

// BookingDTO represents a booking in API responses.
type BookingDTO struct {
	ID            string `json:"id"`
	ClientID      string `json:"client_id"`
	ServiceID     string `json:"service_id"`
	Start         string `json:"start"`
	End           string `json:"end"`
	Location      string `json:"location,omitempty"`
	Headcount     int    `json:"headcount"`
	Price         string `json:"price"`
	Status        string `json:"status"`
	AutoGenerated bool   `json:"auto_generated"`
	RuleID        string `json:"rule_id,omitempty"`
	NeedsReview   bool   `json:"needs_review"`
}

// CreateBookingRequest is the request to create a manual booking.
type CreateBookingRequest struct {
	ClientID  string `json:"client_id"`
	ServiceID string `json:"service_id"`
	Start     string `json:"start"`
	End       string `json:"end,omitempty"`
	Location  string `json:"location,omitempty"`
	Headcount int    `json:"headcount,omitempty"`
}

// =============================================================================
// CAPACITY TYPES
// =============================================================================

// BlockDTO represents a capacity block in API responses.
type BlockDTO struct {
	ID         string         `json:"id"`
	Label      string         `json:"label,omitempty"`
	Start      string         `json:"start"`
	End        string         `json:"end"`
	Capacities map[string]int `json:"capacities"`
}

// SaveBlockRequest is the request to create or update a capacity block.
type SaveBlockRequest struct {
	ID         string         `json:"id,omitempty"`
	Label      string         `json:"label,omitempty"`
	Start      string         `json:"start"`
	End        string         `json:"end"`
	Capacities map[string]int `json:"capacities"`
}

// AvailabilityDTO reports remaining capacity for a service within a block.
type AvailabilityDTO struct {
	BlockID   string `json:"block_id"`
	ServiceID string `json:"service_id"`
	Remaining int    `json:"remaining"`
}

// HoldRequest is the request to place a capacity hold.
type HoldRequest struct {
	ServiceID  string `json:"service_id"`
	ClientID   string `json:"client_id"`
	TTLMinutes int    `json:"ttl_minutes,omitempty"`
}

// HoldDTO represents a capacity hold in API responses.
type HoldDTO struct {
	ID        string `json:"id"`
	BlockID   string `json:"block_id"`
	ServiceID string `json:"service_id"`
	ClientID  string `json:"client_id"`
	ExpiresAt string `json:"expires_at"`
}

// =============================================================================
// RECONCILIATION TYPES
// =============================================================================

// DiffDTO represents a pending reconciliation diff.
type DiffDTO struct {
	BookingID      string                         `json:"booking_id"`
	Fields         map[string]reconcile.FieldDiff `json:"fields"`
	SourceRecordID string                         `json:"source_record_id,omitempty"`
	CreatedAt      string                         `json:"created_at,omitempty"`
}

// ApplyDiffRequest selects which diff fields to accept. An empty list
// means accept all recorded fields.
type ApplyDiffRequest struct {
	Fields []string `json:"fields,omitempty"`
}

// RunDTO represents a reconciliation run in API responses.
type RunDTO struct {
	ID          string `json:"id"`
	RecordID    string `json:"record_id,omitempty"`
	Lines       int    `json:"lines"`
	Diffs       int    `json:"diffs"`
	SkippedRefs int    `json:"skipped_refs"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// =============================================================================
// BILLING TYPES
// =============================================================================

// SubscriptionEventRequest carries a billing subscription event.
type SubscriptionEventRequest struct {
	SubscriptionID string            `json:"subscription_id"`
	ClientID       string            `json:"client_id"`
	Status         string            `json:"status"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// =============================================================================
// COMMON TYPES
// =============================================================================

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toServiceDTO(svc *booking.Service) ServiceDTO {
	return ServiceDTO{
		ID:              string(svc.ID),
		Code:            svc.Code,
		Name:            svc.Name,
		DurationMinutes: svc.DurationMinutes,
		Price:           svc.Price.String(),
		Active:          svc.Active,
	}
}

func toRuleDTO(rule *booking.RecurrenceRule, svc *booking.Service) RuleDTO {
	dto := RuleDTO{
		ID:             string(rule.ID),
		ClientID:       string(rule.ClientID),
		ServiceID:      string(rule.ServiceID),
		SubscriptionID: rule.SubscriptionID,
		Cadence:        string(rule.Cadence),
		Weekdays:       rule.Weekdays,
		Location:       rule.Location,
		Active:         rule.Active,
		Complete:       rule.Complete(svc),
	}
	if !rule.TimeOfDay.IsZero() {
		dto.TimeOfDay = rule.TimeOfDay.String()
	}
	if !rule.CreatedAt.IsZero() {
		dto.CreatedAt = rule.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toBookingDTO(b *booking.Booking) BookingDTO {
	return BookingDTO{
		ID:            string(b.ID),
		ClientID:      string(b.ClientID),
		ServiceID:     string(b.ServiceID),
		Start:         b.Start.Format(time.RFC3339),
		End:           b.End.Format(time.RFC3339),
		Location:      b.Location,
		Headcount:     b.Headcount,
		Price:         b.Price.String(),
		Status:        string(b.Status),
		AutoGenerated: b.AutoGenerated,
		RuleID:        string(b.RuleID),
		NeedsReview:   b.NeedsReview,
	}
}

func toBlockDTO(b *booking.CapacityBlock) BlockDTO {
	caps := make(map[string]int, len(b.Capacities))
	for svcID, c := range b.Capacities {
		caps[string(svcID)] = c
	}
	return BlockDTO{
		ID:         string(b.ID),
		Label:      b.Label,
		Start:      b.Start.Format(time.RFC3339),
		End:        b.End.Format(time.RFC3339),
		Capacities: caps,
	}
}

func toDiffDTO(d reconcile.Diff) DiffDTO {
	dto := DiffDTO{
		BookingID:      string(d.BookingID),
		Fields:         d.Fields,
		SourceRecordID: d.SourceRecordID,
	}
	if !d.CreatedAt.IsZero() {
		dto.CreatedAt = d.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toRunDTO(r reconcile.Run) RunDTO {
	dto := RunDTO{
		ID:          r.ID,
		RecordID:    r.RecordID,
		Lines:       r.Lines,
		Diffs:       r.Diffs,
		SkippedRefs: r.SkippedRefs,
		Status:      r.Status,
		Error:       r.Error,
		StartedAt:   r.StartedAt.Format(time.RFC3339),
	}
	if !r.CompletedAt.IsZero() {
		dto.CompletedAt = r.CompletedAt.Format(time.RFC3339)
	}
	return dto
}
