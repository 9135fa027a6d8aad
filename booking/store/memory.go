// Package store provides an in-memory Store implementation for tests and dev.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pawtrack/booking-engine/booking"
	"github.com/pawtrack/booking-engine/reconcile"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements booking.Store plus the reconcile store interfaces.
// All maps are guarded by a single RWMutex; values are copied on the way
// in and out so callers cannot alias internal state.
type Memory struct {
	mu       sync.RWMutex
	rules    map[booking.RuleID]booking.RecurrenceRule
	services map[booking.ServiceID]booking.Service
	bookings map[booking.BookingID]booking.Booking
	blocks   map[booking.BlockID]booking.CapacityBlock
	holds    map[booking.HoldID]booking.CapacityHold
	diffs    map[booking.BookingID]reconcile.Diff
	runs     []reconcile.Run
}

func NewMemory() *Memory {
	return &Memory{
		rules:    make(map[booking.RuleID]booking.RecurrenceRule),
		services: make(map[booking.ServiceID]booking.Service),
		bookings: make(map[booking.BookingID]booking.Booking),
		blocks:   make(map[booking.BlockID]booking.CapacityBlock),
		holds:    make(map[booking.HoldID]booking.CapacityHold),
		diffs:    make(map[booking.BookingID]reconcile.Diff),
	}
}

// =============================================================================
// RULE STORE
// =============================================================================

func (m *Memory) SaveRule(_ context.Context, rule booking.RecurrenceRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.ID] = rule
	return nil
}

func (m *Memory) GetRule(_ context.Context, id booking.RuleID) (*booking.RecurrenceRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rules[id]
	if !ok {
		return nil, booking.ErrRuleNotFound
	}
	out := r
	return &out, nil
}

func (m *Memory) GetRuleBySubscription(_ context.Context, subscriptionID string) (*booking.RecurrenceRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rules {
		if r.SubscriptionID != "" && r.SubscriptionID == subscriptionID {
			out := r
			return &out, nil
		}
	}
	return nil, booking.ErrRuleNotFound
}

func (m *Memory) ListActiveRules(_ context.Context) ([]booking.RecurrenceRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []booking.RecurrenceRule
	for _, r := range m.rules {
		if r.Active {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// SERVICE STORE
// =============================================================================

func (m *Memory) SaveService(_ context.Context, svc booking.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[svc.ID] = svc
	return nil
}

func (m *Memory) GetService(_ context.Context, id booking.ServiceID) (*booking.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.services[id]
	if !ok {
		return nil, booking.ErrServiceNotFound
	}
	out := s
	return &out, nil
}

func (m *Memory) GetServiceByCode(_ context.Context, code string) (*booking.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.services {
		if s.Code == code && s.Active {
			out := s
			return &out, nil
		}
	}
	return nil, booking.ErrServiceNotFound
}

// =============================================================================
// BOOKING STORE
// =============================================================================

func (m *Memory) CreateBooking(_ context.Context, b booking.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bookings {
		if existing.Deleted {
			continue
		}
		if existing.ClientID == b.ClientID && existing.ServiceID == b.ServiceID && existing.Start.Equal(b.Start) {
			return booking.ErrDuplicateSlot
		}
	}
	m.bookings[b.ID] = b
	return nil
}

func (m *Memory) GetBooking(_ context.Context, id booking.BookingID) (*booking.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	out := b
	return &out, nil
}

func (m *Memory) UpdateBooking(_ context.Context, b booking.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[b.ID]; !ok {
		return booking.ErrBookingNotFound
	}
	m.bookings[b.ID] = b
	return nil
}

func (m *Memory) FindBySlot(_ context.Context, clientID booking.ClientID, serviceID booking.ServiceID, start time.Time) (*booking.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bookings {
		if b.Deleted {
			continue
		}
		if b.ClientID == clientID && b.ServiceID == serviceID && b.Start.Equal(start) {
			out := b
			return &out, nil
		}
	}
	return nil, booking.ErrBookingNotFound
}

func (m *Memory) ListClientBookings(_ context.Context, clientID booking.ClientID, from, to time.Time) ([]booking.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []booking.Booking
	for _, b := range m.bookings {
		if b.Deleted || b.ClientID != clientID {
			continue
		}
		if b.Overlaps(from, to) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *Memory) ListAutoGenerated(_ context.Context, after time.Time) ([]booking.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []booking.Booking
	for _, b := range m.bookings {
		if b.Deleted || !b.AutoGenerated {
			continue
		}
		if b.Start.After(after) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *Memory) SoftDeleteBooking(_ context.Context, id booking.BookingID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return booking.ErrBookingNotFound
	}
	b.Deleted = true
	b.UpdatedAt = time.Now()
	m.bookings[id] = b
	return nil
}

func (m *Memory) CountActiveInWindow(_ context.Context, serviceID booking.ServiceID, start, end time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, b := range m.bookings {
		if b.ServiceID != serviceID || !b.Active() {
			continue
		}
		if b.Overlaps(start, end) {
			count++
		}
	}
	return count, nil
}

// =============================================================================
// HOLD STORE
// =============================================================================

func (m *Memory) CreateHold(_ context.Context, h booking.CapacityHold) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holds[h.ID] = h
	return nil
}

func (m *Memory) DeleteHold(_ context.Context, id booking.HoldID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.holds[id]; !ok {
		return booking.ErrHoldNotFound
	}
	delete(m.holds, id)
	return nil
}

func (m *Memory) PurgeExpiredHolds(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	purged := 0
	for id, h := range m.holds {
		if !h.ActiveAt(now) {
			delete(m.holds, id)
			purged++
		}
	}
	return purged, nil
}

func (m *Memory) CountActiveHolds(_ context.Context, blockID booking.BlockID, serviceID booking.ServiceID, now time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, h := range m.holds {
		if h.BlockID == blockID && h.ServiceID == serviceID && h.ActiveAt(now) {
			count++
		}
	}
	return count, nil
}

// =============================================================================
// BLOCK STORE
// =============================================================================

func (m *Memory) SaveBlock(_ context.Context, b booking.CapacityBlock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := b
	copied.Capacities = make(map[booking.ServiceID]int, len(b.Capacities))
	for k, v := range b.Capacities {
		copied.Capacities[k] = v
	}
	m.blocks[b.ID] = copied
	return nil
}

func (m *Memory) GetBlock(_ context.Context, id booking.BlockID) (*booking.CapacityBlock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blocks[id]
	if !ok {
		return nil, booking.ErrBlockNotFound
	}
	out := b
	out.Capacities = make(map[booking.ServiceID]int, len(b.Capacities))
	for k, v := range b.Capacities {
		out.Capacities[k] = v
	}
	return &out, nil
}

func (m *Memory) ListBlocksInRange(_ context.Context, from, to time.Time) ([]booking.CapacityBlock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []booking.CapacityBlock
	for _, b := range m.blocks {
		if b.Start.Before(to) && b.End.After(from) {
			copied := b
			copied.Capacities = make(map[booking.ServiceID]int, len(b.Capacities))
			for k, v := range b.Capacities {
				copied.Capacities[k] = v
			}
			out = append(out, copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// =============================================================================
// RECONCILIATION STORES
// =============================================================================

func (m *Memory) SaveDiff(_ context.Context, d reconcile.Diff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.diffs[d.BookingID] = d
	return nil
}

func (m *Memory) GetDiff(_ context.Context, id booking.BookingID) (*reconcile.Diff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.diffs[id]
	if !ok {
		return nil, reconcile.ErrDiffNotFound
	}
	out := d
	out.Fields = make(map[string]reconcile.FieldDiff, len(d.Fields))
	for k, v := range d.Fields {
		out.Fields[k] = v
	}
	return &out, nil
}

func (m *Memory) ClearDiff(_ context.Context, id booking.BookingID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.diffs, id)
	return nil
}

func (m *Memory) ListDiffs(_ context.Context) ([]reconcile.Diff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []reconcile.Diff
	for _, d := range m.diffs {
		copied := d
		copied.Fields = make(map[string]reconcile.FieldDiff, len(d.Fields))
		for k, v := range d.Fields {
			copied.Fields[k] = v
		}
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingID < out[j].BookingID })
	return out, nil
}

func (m *Memory) SaveRun(_ context.Context, r reconcile.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r)
	return nil
}

func (m *Memory) ListRuns(_ context.Context, limit int) ([]reconcile.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]reconcile.Run, len(m.runs))
	copy(out, m.runs)
	// Newest first.
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
