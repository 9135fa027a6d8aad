/*
handlers.go - HTTP API handlers for the booking engine

PURPOSE:
  Exposes the booking engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Services:
    POST   /api/services                Create/update service
    GET    /api/services/{id}           Get service

  Rules:
    GET    /api/rules                   List active rules
    POST   /api/rules                   Create/update rule
    GET    /api/rules/{id}              Get rule
    POST   /api/rules/{id}/deactivate   Deactivate rule

  Bookings:
    POST   /api/bookings                Create manual booking
    GET    /api/bookings                List client bookings in a window
    GET    /api/bookings/{id}           Get booking
    POST   /api/bookings/{id}/cancel    Cancel booking

  Capacity:
    POST   /api/blocks                    Create/update capacity block
    GET    /api/blocks/{id}/availability  Remaining capacity for a service
    POST   /api/blocks/{id}/holds         Place a hold
    DELETE /api/holds/{id}                Release a hold

  Admin:
    POST   /api/admin/materialize       Run a materialization pass now

  Reconciliation:
    POST   /api/reconciliation/validate        Submit external record
    GET    /api/reconciliation/diffs           List pending diffs
    POST   /api/reconciliation/diffs/{id}/apply    Accept external values
    POST   /api/reconciliation/diffs/{id}/dismiss  Keep internal values
    GET    /api/reconciliation/runs            List validation runs

  Billing:
    POST   /api/billing/subscriptions               Apply subscription event
    POST   /api/billing/subscriptions/{id}/deactivate  Deactivate

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (overlapping booking, duplicate slot)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pawtrack/booking-engine/billing"
	"github.com/pawtrack/booking-engine/booking"
	"github.com/pawtrack/booking-engine/reconcile"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store booking.Store
	Diffs reconcile.DiffStore
	Runs  reconcile.RunStore

	Materializer *booking.Materializer
	Validator    *reconcile.Validator
	Ledger       *booking.Ledger
	Detector     *booking.Detector
	Syncer       *billing.Syncer

	// Location is the business's civil timezone for naive timestamps.
	Location *time.Location
	Horizon  time.Duration
	HoldTTL  time.Duration
	Metrics  *Metrics
}

// CombinedStore is the full persistence surface the handler needs.
type CombinedStore interface {
	booking.Store
	reconcile.DiffStore
	reconcile.RunStore
}

// NewHandler creates a new handler over a combined store.
func NewHandler(store CombinedStore, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		Store:        store,
		Diffs:        store,
		Runs:         store,
		Materializer: booking.NewMaterializer(store, loc),
		Validator:    reconcile.NewValidator(store, store, store, store, loc),
		Ledger:       booking.NewLedger(store, store),
		Detector:     booking.NewDetector(store),
		Syncer:       billing.NewSyncer(store, store),
		Location:     loc,
		Horizon:      booking.DefaultHorizon,
		HoldTTL:      booking.DefaultHoldTTL,
	}
}

// =============================================================================
// SERVICE HANDLERS
// =============================================================================

// SaveService creates or updates a service.
func (h *Handler) SaveService(w http.ResponseWriter, r *http.Request) {
	var req SaveServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "id and code are required", nil)
		return
	}
	price := decimal.Zero
	if req.Price != "" {
		p, err := decimal.NewFromString(req.Price)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid price", err)
			return
		}
		price = p
	}
	svc := booking.Service{
		ID:              booking.ServiceID(req.ID),
		Code:            req.Code,
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		Price:           price,
		Active:          true,
	}
	if req.Active != nil {
		svc.Active = *req.Active
	}
	if err := h.Store.SaveService(r.Context(), svc); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save service", err)
		return
	}
	writeJSON(w, http.StatusCreated, toServiceDTO(&svc))
}

// GetService returns a single service.
func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.Store.GetService(r.Context(), booking.ServiceID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, "Failed to get service", err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceDTO(svc))
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

// ListRules returns all active recurrence rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Store.ListActiveRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rules", err)
		return
	}
	dtos := make([]RuleDTO, len(rules))
	for i := range rules {
		dtos[i] = toRuleDTO(&rules[i], h.lookupService(r, rules[i].ServiceID))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRule returns a single rule.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.Store.GetRule(r.Context(), booking.RuleID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, "Failed to get rule", err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleDTO(rule, h.lookupService(r, rule.ServiceID)))
}

// SaveRule creates or updates a recurrence rule.
func (h *Handler) SaveRule(w http.ResponseWriter, r *http.Request) {
	var req SaveRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ClientID == "" {
		writeError(w, http.StatusBadRequest, "client_id is required", nil)
		return
	}
	for _, d := range req.Weekdays {
		if d < 0 || d > 6 {
			writeError(w, http.StatusBadRequest, "weekdays must be 0 (Monday) through 6 (Sunday)", nil)
			return
		}
	}

	rule := booking.RecurrenceRule{
		ID:        booking.RuleID(req.ID),
		ClientID:  booking.ClientID(req.ClientID),
		ServiceID: booking.ServiceID(req.ServiceID),
		Cadence:   booking.Cadence(req.Cadence),
		Weekdays:  req.Weekdays,
		Location:  req.Location,
		Active:    true,
		CreatedAt: time.Now(),
	}
	if rule.ID == "" {
		rule.ID = booking.RuleID(uuid.NewString())
	} else if existing, err := h.Store.GetRule(r.Context(), rule.ID); err == nil {
		rule.SubscriptionID = existing.SubscriptionID
		rule.CreatedAt = existing.CreatedAt
	}
	if req.TimeOfDay != "" {
		tod, err := parseClock(req.TimeOfDay)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid time_of_day (use HH:MM)", err)
			return
		}
		rule.TimeOfDay = tod
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}

	if err := h.Store.SaveRule(r.Context(), rule); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rule", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRuleDTO(&rule, h.lookupService(r, rule.ServiceID)))
}

// DeactivateRule turns a rule off. Its future auto-bookings are retracted
// on the next materialization pass.
func (h *Handler) DeactivateRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.Store.GetRule(r.Context(), booking.RuleID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, "Failed to get rule", err)
		return
	}
	rule.Active = false
	rule.UpdatedAt = time.Now()
	if err := h.Store.SaveRule(r.Context(), *rule); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rule", err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleDTO(rule, h.lookupService(r, rule.ServiceID)))
}

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// CreateBooking creates a manual booking after a conflict check.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ClientID == "" || req.ServiceID == "" {
		writeError(w, http.StatusBadRequest, "client_id and service_id are required", nil)
		return
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start (use RFC 3339)", err)
		return
	}

	svc, err := h.Store.GetService(r.Context(), booking.ServiceID(req.ServiceID))
	if err != nil {
		writeStoreError(w, "Failed to get service", err)
		return
	}

	end := start.Add(svc.Duration())
	if req.End != "" {
		end, err = time.Parse(time.RFC3339, req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end (use RFC 3339)", err)
			return
		}
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "end must be after start", nil)
		return
	}

	conflict, err := h.Detector.FindConflict(r.Context(), booking.ClientID(req.ClientID), start, end, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Conflict check failed", err)
		return
	}
	if conflict != nil {
		writeError(w, http.StatusConflict, "Overlaps existing booking "+string(conflict.ID), nil)
		return
	}

	headcount := req.Headcount
	if headcount <= 0 {
		headcount = 1
	}
	b := booking.Booking{
		ID:        booking.BookingID(uuid.NewString()),
		ClientID:  booking.ClientID(req.ClientID),
		ServiceID: svc.ID,
		Start:     start,
		End:       end,
		Location:  req.Location,
		Headcount: headcount,
		Price:     svc.Price,
		Status:    booking.StatusConfirmed,
		CreatedAt: time.Now(),
	}
	if err := h.Store.CreateBooking(r.Context(), b); err != nil {
		if errors.Is(err, booking.ErrDuplicateSlot) {
			writeError(w, http.StatusConflict, "Slot already booked", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create booking", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingDTO(&b))
}

// GetBooking returns a single booking.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Store.GetBooking(r.Context(), booking.BookingID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, "Failed to get booking", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// ListBookings returns a client's bookings intersecting a time window.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "client_id is required", nil)
		return
	}
	now := time.Now()
	from, to := now, now.Add(h.Horizon)
	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from (use RFC 3339)", err)
			return
		}
		from = t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to (use RFC 3339)", err)
			return
		}
		to = t
	}

	bookings, err := h.Store.ListClientBookings(r.Context(), booking.ClientID(clientID), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bookings", err)
		return
	}
	dtos := make([]BookingDTO, len(bookings))
	for i := range bookings {
		dtos[i] = toBookingDTO(&bookings[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CancelBooking marks a booking cancelled. The record is kept; cancelled
// bookings no longer count against the schedule but materialization does
// not resurrect the slot.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Store.GetBooking(r.Context(), booking.BookingID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, "Failed to get booking", err)
		return
	}
	b.Status = booking.StatusCancelled
	if err := h.Store.UpdateBooking(r.Context(), *b); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to cancel booking", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// =============================================================================
// CAPACITY HANDLERS
// =============================================================================

// SaveBlock creates or updates a capacity block.
func (h *Handler) SaveBlock(w http.ResponseWriter, r *http.Request) {
	var req SaveBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start (use RFC 3339)", err)
		return
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end (use RFC 3339)", err)
		return
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "end must be after start", nil)
		return
	}

	block := booking.CapacityBlock{
		ID:         booking.BlockID(req.ID),
		Label:      req.Label,
		Start:      start,
		End:        end,
		Capacities: make(map[booking.ServiceID]int, len(req.Capacities)),
	}
	if block.ID == "" {
		block.ID = booking.BlockID(uuid.NewString())
	}
	for svcID, c := range req.Capacities {
		block.Capacities[booking.ServiceID(svcID)] = c
	}
	if err := h.Store.SaveBlock(r.Context(), block); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save block", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBlockDTO(&block))
}

// GetAvailability returns remaining capacity for a service within a block.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	serviceID := r.URL.Query().Get("service_id")
	if serviceID == "" {
		writeError(w, http.StatusBadRequest, "service_id is required", nil)
		return
	}
	block, err := h.Store.GetBlock(r.Context(), booking.BlockID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, "Failed to get block", err)
		return
	}
	remaining, err := h.Ledger.Remaining(r.Context(), *block, booking.ServiceID(serviceID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute availability", err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityDTO{
		BlockID:   string(block.ID),
		ServiceID: serviceID,
		Remaining: remaining,
	})
}

// CreateHold places a temporary capacity hold on a block.
func (h *Handler) CreateHold(w http.ResponseWriter, r *http.Request) {
	var req HoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ServiceID == "" || req.ClientID == "" {
		writeError(w, http.StatusBadRequest, "service_id and client_id are required", nil)
		return
	}
	block, err := h.Store.GetBlock(r.Context(), booking.BlockID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, "Failed to get block", err)
		return
	}

	remaining, err := h.Ledger.Remaining(r.Context(), *block, booking.ServiceID(req.ServiceID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute availability", err)
		return
	}
	if remaining <= 0 {
		writeError(w, http.StatusConflict, "No capacity remaining", booking.ErrCapacityExhausted)
		return
	}

	ttl := h.HoldTTL
	if req.TTLMinutes > 0 {
		ttl = time.Duration(req.TTLMinutes) * time.Minute
	}
	hold, err := h.Ledger.CreateHold(r.Context(), *block, booking.ServiceID(req.ServiceID), booking.ClientID(req.ClientID), ttl)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create hold", err)
		return
	}
	writeJSON(w, http.StatusCreated, HoldDTO{
		ID:        string(hold.ID),
		BlockID:   string(hold.BlockID),
		ServiceID: string(hold.ServiceID),
		ClientID:  string(hold.ClientID),
		ExpiresAt: hold.ExpiresAt.Format(time.RFC3339),
	})
}

// ReleaseHold releases a capacity hold before it expires.
func (h *Handler) ReleaseHold(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.ReleaseHold(r.Context(), booking.HoldID(chi.URLParam(r, "id"))); err != nil {
		writeStoreError(w, "Failed to release hold", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerMaterialization runs a full materialization pass immediately.
func (h *Handler) TriggerMaterialization(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Materializer.Run(r.Context(), time.Now(), h.Horizon)
	h.Metrics.RecordRun(summary.Created, summary.Removed, summary.Skipped, err != nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Materialization failed", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// =============================================================================
// RECONCILIATION HANDLERS
// =============================================================================

// ValidateRecord runs the reconciliation validator over an external record.
func (h *Handler) ValidateRecord(w http.ResponseWriter, r *http.Request) {
	var rec reconcile.ExternalRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	diffs, err := h.Validator.Validate(r.Context(), rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Validation failed", err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.DiffsRecorded.Add(float64(diffs))
	}
	writeJSON(w, http.StatusOK, map[string]int{"diffs": diffs})
}

// ListDiffs returns all pending reconciliation diffs.
func (h *Handler) ListDiffs(w http.ResponseWriter, r *http.Request) {
	diffs, err := h.Diffs.ListDiffs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list diffs", err)
		return
	}
	dtos := make([]DiffDTO, len(diffs))
	for i, d := range diffs {
		dtos[i] = toDiffDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApplyDiff accepts the external values for a diff, in whole or per field.
func (h *Handler) ApplyDiff(w http.ResponseWriter, r *http.Request) {
	var req ApplyDiffRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	id := booking.BookingID(chi.URLParam(r, "id"))
	if err := h.Validator.Apply(r.Context(), id, req.Fields); err != nil {
		writeStoreError(w, "Failed to apply diff", err)
		return
	}
	b, err := h.Store.GetBooking(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Failed to get booking", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// DismissDiff keeps the internal values and clears the diff.
func (h *Handler) DismissDiff(w http.ResponseWriter, r *http.Request) {
	if err := h.Validator.Dismiss(r.Context(), booking.BookingID(chi.URLParam(r, "id"))); err != nil {
		writeStoreError(w, "Failed to dismiss diff", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListReconciliationRuns returns recent validation runs, newest first.
func (h *Handler) ListReconciliationRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}
	runs, err := h.Runs.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}
	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BILLING HANDLERS
// =============================================================================

// ApplySubscription upserts a recurrence rule from a subscription event.
func (h *Handler) ApplySubscription(w http.ResponseWriter, r *http.Request) {
	var req SubscriptionEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.SubscriptionID == "" || req.ClientID == "" {
		writeError(w, http.StatusBadRequest, "subscription_id and client_id are required", nil)
		return
	}
	rule, err := h.Syncer.ApplySubscription(r.Context(), billing.Subscription{
		ID:       req.SubscriptionID,
		ClientID: booking.ClientID(req.ClientID),
		Status:   req.Status,
		Metadata: req.Metadata,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to apply subscription", err)
		return
	}
	if rule == nil {
		// Inactive subscription with no existing rule: nothing to do.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toRuleDTO(rule, h.lookupService(r, rule.ServiceID)))
}

// DeactivateSubscription deactivates the rule linked to a subscription.
func (h *Handler) DeactivateSubscription(w http.ResponseWriter, r *http.Request) {
	if err := h.Syncer.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to deactivate subscription", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) lookupService(r *http.Request, id booking.ServiceID) *booking.Service {
	if id == "" {
		return nil
	}
	svc, err := h.Store.GetService(r.Context(), id)
	if err != nil {
		return nil
	}
	return svc
}

func parseClock(s string) (booking.TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return booking.TimeOfDay{}, err
	}
	return booking.TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeStoreError maps domain errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, message string, err error) {
	switch {
	case booking.IsNotFound(err), errors.Is(err, reconcile.ErrDiffNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case booking.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
