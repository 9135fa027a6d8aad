/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements booking.Store plus the reconciliation store interfaces using
  SQLite. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  booking.RuleStore:    Recurrence rule persistence
  booking.ServiceStore: Service catalog
  booking.BookingStore: Bookings with soft delete
  booking.HoldStore:    Ephemeral capacity holds
  booking.BlockStore:   Capacity blocks
  reconcile.DiffStore:  Pending reconciliation diffs
  reconcile.RunStore:   Reconciliation run audit trail

SLOT UNIQUENESS:
  A partial unique index on bookings(client_id, service_id, start_dt)
  WHERE deleted = 0 is the transactional guard that makes concurrent
  materialization passes safe: losing the race surfaces as
  booking.ErrDuplicateSlot, which callers treat as "slot already exists".

TIME ENCODING:
  All instants are stored as UTC RFC 3339 at second precision. Fixed
  width plus UTC means lexicographic string comparison in SQL matches
  chronological order, which the range queries rely on.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/walks.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - booking/store.go: Interface definitions
  - booking/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/pawtrack/booking-engine/booking"
	"github.com/pawtrack/booking-engine/reconcile"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Service catalog
	CREATE TABLE IF NOT EXISTS services (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		price TEXT NOT NULL DEFAULT '0',
		active BOOLEAN NOT NULL DEFAULT TRUE
	);

	-- Recurrence rules (deactivated, never deleted)
	CREATE TABLE IF NOT EXISTS recurrence_rules (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		service_id TEXT NOT NULL DEFAULT '',
		subscription_id TEXT NOT NULL DEFAULT '',
		cadence TEXT NOT NULL DEFAULT '',
		weekdays TEXT NOT NULL DEFAULT '',
		time_of_day TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rules_active
		ON recurrence_rules(active);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_rules_subscription
		ON recurrence_rules(subscription_id) WHERE subscription_id != '';

	-- Bookings (soft-deleted, never removed)
	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		service_id TEXT NOT NULL,
		start_dt TEXT NOT NULL,
		end_dt TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		headcount INTEGER NOT NULL DEFAULT 1,
		price TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL,
		auto_generated BOOLEAN NOT NULL DEFAULT FALSE,
		rule_id TEXT NOT NULL DEFAULT '',
		deleted BOOLEAN NOT NULL DEFAULT FALSE,
		needs_review BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: one live booking per (client, service, start). This is the
	-- upsert guard that makes concurrent materialization passes safe.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_unique_slot
		ON bookings(client_id, service_id, start_dt) WHERE deleted = 0;

	-- Conflict detection (hot path)
	CREATE INDEX IF NOT EXISTS idx_bookings_client_window
		ON bookings(client_id, start_dt, end_dt);

	-- Deletion pass
	CREATE INDEX IF NOT EXISTS idx_bookings_auto
		ON bookings(auto_generated, start_dt) WHERE deleted = 0;
	CREATE INDEX IF NOT EXISTS idx_bookings_rule
		ON bookings(rule_id) WHERE rule_id != '';

	-- Capacity counting
	CREATE INDEX IF NOT EXISTS idx_bookings_service_window
		ON bookings(service_id, start_dt, end_dt);

	-- Capacity blocks and per-service seat counts
	CREATE TABLE IF NOT EXISTS capacity_blocks (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL DEFAULT '',
		start_dt TEXT NOT NULL,
		end_dt TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_blocks_window
		ON capacity_blocks(start_dt, end_dt);

	CREATE TABLE IF NOT EXISTS block_capacities (
		block_id TEXT NOT NULL,
		service_id TEXT NOT NULL,
		capacity INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (block_id, service_id)
	);

	-- Ephemeral capacity holds
	CREATE TABLE IF NOT EXISTS capacity_holds (
		id TEXT PRIMARY KEY,
		block_id TEXT NOT NULL,
		service_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holds_block_service
		ON capacity_holds(block_id, service_id, expires_at);
	CREATE INDEX IF NOT EXISTS idx_holds_expiry
		ON capacity_holds(expires_at);

	-- Reconciliation diffs (at most one per booking)
	CREATE TABLE IF NOT EXISTS reconciliation_diffs (
		booking_id TEXT PRIMARY KEY,
		fields_json TEXT NOT NULL,
		source_record_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Reconciliation runs (audit of validation batches)
	CREATE TABLE IF NOT EXISTS reconciliation_runs (
		id TEXT PRIMARY KEY,
		record_id TEXT NOT NULL DEFAULT '',
		lines INTEGER NOT NULL DEFAULT 0,
		diffs INTEGER NOT NULL DEFAULT 0,
		skipped_refs INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		completed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started
		ON reconciliation_runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ENCODING HELPERS
// =============================================================================

// fmtTime encodes an instant as UTC RFC 3339 at second precision.
func fmtTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func fmtWeekdays(days []int) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return strings.Join(parts, ",")
}

func parseWeekdays(s string) []int {
	if s == "" {
		return nil
	}
	var days []int
	for _, part := range strings.Split(s, ",") {
		var d int
		if _, err := fmt.Sscanf(part, "%d", &d); err == nil {
			days = append(days, d)
		}
	}
	return days
}

func fmtTimeOfDay(t booking.TimeOfDay) string {
	if t.IsZero() {
		return ""
	}
	return t.String()
}

func parseTimeOfDay(s string) booking.TimeOfDay {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return booking.TimeOfDay{}
	}
	return booking.TimeOfDay{Hour: h, Minute: m}
}

func parsePrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// rowScanner lets the scan helpers work with both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// SERVICE STORE
// =============================================================================

func (s *Store) SaveService(ctx context.Context, svc booking.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO services (id, code, name, duration_minutes, price, active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			name = excluded.name,
			duration_minutes = excluded.duration_minutes,
			price = excluded.price,
			active = excluded.active
	`
	_, err := s.db.ExecContext(ctx, query,
		svc.ID, svc.Code, svc.Name, svc.DurationMinutes, svc.Price.String(), svc.Active)
	if err != nil {
		return fmt.Errorf("failed to save service: %w", err)
	}
	return nil
}

func (s *Store) GetService(ctx context.Context, id booking.ServiceID) (*booking.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, code, name, duration_minutes, price, active FROM services WHERE id = ?`, id)
	return scanService(row)
}

func (s *Store) GetServiceByCode(ctx context.Context, code string) (*booking.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, code, name, duration_minutes, price, active FROM services WHERE code = ? AND active = 1`, code)
	return scanService(row)
}

func scanService(row *sql.Row) (*booking.Service, error) {
	var svc booking.Service
	var price string
	err := row.Scan(&svc.ID, &svc.Code, &svc.Name, &svc.DurationMinutes, &price, &svc.Active)
	if err == sql.ErrNoRows {
		return nil, booking.ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan service: %w", err)
	}
	svc.Price = parsePrice(price)
	return &svc, nil
}

// =============================================================================
// RULE STORE
// =============================================================================

const ruleColumns = `id, client_id, service_id, subscription_id, cadence, weekdays, time_of_day, location, active, created_at, updated_at`

func (s *Store) SaveRule(ctx context.Context, rule booking.RecurrenceRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO recurrence_rules (` + ruleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_id = excluded.client_id,
			service_id = excluded.service_id,
			subscription_id = excluded.subscription_id,
			cadence = excluded.cadence,
			weekdays = excluded.weekdays,
			time_of_day = excluded.time_of_day,
			location = excluded.location,
			active = excluded.active,
			updated_at = excluded.updated_at
	`
	createdAt := rule.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := rule.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	_, err := s.db.ExecContext(ctx, query,
		rule.ID, rule.ClientID, rule.ServiceID, rule.SubscriptionID,
		string(rule.Cadence), fmtWeekdays(rule.Weekdays), fmtTimeOfDay(rule.TimeOfDay),
		rule.Location, rule.Active, fmtTime(createdAt), fmtTime(updatedAt))
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}
	return nil
}

func (s *Store) GetRule(ctx context.Context, id booking.RuleID) (*booking.RecurrenceRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM recurrence_rules WHERE id = ?`, id)
	return scanRule(row)
}

func (s *Store) GetRuleBySubscription(ctx context.Context, subscriptionID string) (*booking.RecurrenceRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM recurrence_rules WHERE subscription_id = ? AND subscription_id != ''`,
		subscriptionID)
	return scanRule(row)
}

func (s *Store) ListActiveRules(ctx context.Context) ([]booking.RecurrenceRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM recurrence_rules WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active rules: %w", err)
	}
	defer rows.Close()

	var out []booking.RecurrenceRule
	for rows.Next() {
		rule, err := scanRuleFields(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		out = append(out, *rule)
	}
	return out, rows.Err()
}

func scanRuleFields(sc rowScanner) (*booking.RecurrenceRule, error) {
	var rule booking.RecurrenceRule
	var cadence, weekdays, timeOfDay, createdAt, updatedAt string
	err := sc.Scan(&rule.ID, &rule.ClientID, &rule.ServiceID, &rule.SubscriptionID,
		&cadence, &weekdays, &timeOfDay, &rule.Location, &rule.Active, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	rule.Cadence = booking.Cadence(cadence)
	rule.Weekdays = parseWeekdays(weekdays)
	rule.TimeOfDay = parseTimeOfDay(timeOfDay)
	rule.CreatedAt, _ = parseTime(createdAt)
	rule.UpdatedAt, _ = parseTime(updatedAt)
	return &rule, nil
}

func scanRule(row *sql.Row) (*booking.RecurrenceRule, error) {
	rule, err := scanRuleFields(row)
	if err == sql.ErrNoRows {
		return nil, booking.ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}
	return rule, nil
}

// =============================================================================
// BOOKING STORE
// =============================================================================

const bookingColumns = `id, client_id, service_id, start_dt, end_dt, location, headcount, price, status, auto_generated, rule_id, deleted, needs_review, created_at, updated_at`

func (s *Store) CreateBooking(ctx context.Context, b booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	createdAt := b.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := b.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	_, err := s.db.ExecContext(ctx, query,
		b.ID, b.ClientID, b.ServiceID, fmtTime(b.Start), fmtTime(b.End),
		b.Location, b.Headcount, b.Price.String(), string(b.Status),
		b.AutoGenerated, b.RuleID, b.Deleted, b.NeedsReview,
		fmtTime(createdAt), fmtTime(updatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return booking.ErrDuplicateSlot
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id booking.BookingID) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	return scanBooking(row)
}

func (s *Store) UpdateBooking(ctx context.Context, b booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE bookings SET
			client_id = ?, service_id = ?, start_dt = ?, end_dt = ?,
			location = ?, headcount = ?, price = ?, status = ?,
			auto_generated = ?, rule_id = ?, deleted = ?, needs_review = ?,
			updated_at = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		b.ClientID, b.ServiceID, fmtTime(b.Start), fmtTime(b.End),
		b.Location, b.Headcount, b.Price.String(), string(b.Status),
		b.AutoGenerated, b.RuleID, b.Deleted, b.NeedsReview,
		fmtTime(time.Now()), b.ID)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

func (s *Store) FindBySlot(ctx context.Context, clientID booking.ClientID, serviceID booking.ServiceID, start time.Time) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE client_id = ? AND service_id = ? AND start_dt = ? AND deleted = 0`,
		clientID, serviceID, fmtTime(start))
	return scanBooking(row)
}

func (s *Store) ListClientBookings(ctx context.Context, clientID booking.ClientID, from, to time.Time) ([]booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Half-open overlap: start < to AND end > from.
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE client_id = ? AND deleted = 0 AND start_dt < ? AND end_dt > ?
		 ORDER BY start_dt`,
		clientID, fmtTime(to), fmtTime(from))
	if err != nil {
		return nil, fmt.Errorf("failed to list client bookings: %w", err)
	}
	return collectBookings(rows)
}

func (s *Store) ListAutoGenerated(ctx context.Context, after time.Time) ([]booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE auto_generated = 1 AND deleted = 0 AND start_dt > ?
		 ORDER BY start_dt`,
		fmtTime(after))
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-generated bookings: %w", err)
	}
	return collectBookings(rows)
}

func (s *Store) SoftDeleteBooking(ctx context.Context, id booking.BookingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE bookings SET deleted = 1, updated_at = ? WHERE id = ?`,
		fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete booking: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

func (s *Store) CountActiveInWindow(ctx context.Context, serviceID booking.ServiceID, start, end time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings
		 WHERE service_id = ? AND deleted = 0
		   AND status NOT IN (?, ?)
		   AND start_dt < ? AND end_dt > ?`,
		serviceID, string(booking.StatusCancelled), string(booking.StatusVoid),
		fmtTime(end), fmtTime(start))
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bookings in window: %w", err)
	}
	return count, nil
}

func scanBookingFields(sc rowScanner) (*booking.Booking, error) {
	var b booking.Booking
	var start, end, price, status, createdAt, updatedAt string
	err := sc.Scan(&b.ID, &b.ClientID, &b.ServiceID, &start, &end,
		&b.Location, &b.Headcount, &price, &status,
		&b.AutoGenerated, &b.RuleID, &b.Deleted, &b.NeedsReview,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	b.Start, _ = parseTime(start)
	b.End, _ = parseTime(end)
	b.Price = parsePrice(price)
	b.Status = booking.BookingStatus(status)
	b.CreatedAt, _ = parseTime(createdAt)
	b.UpdatedAt, _ = parseTime(updatedAt)
	return &b, nil
}

func scanBooking(row *sql.Row) (*booking.Booking, error) {
	b, err := scanBookingFields(row)
	if err == sql.ErrNoRows {
		return nil, booking.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}
	return b, nil
}

func collectBookings(rows *sql.Rows) ([]booking.Booking, error) {
	defer rows.Close()
	var out []booking.Booking
	for rows.Next() {
		b, err := scanBookingFields(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// =============================================================================
// BLOCK STORE
// =============================================================================

func (s *Store) SaveBlock(ctx context.Context, b booking.CapacityBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO capacity_blocks (id, label, start_dt, end_dt)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			start_dt = excluded.start_dt,
			end_dt = excluded.end_dt
	`, b.ID, b.Label, fmtTime(b.Start), fmtTime(b.End))
	if err != nil {
		return fmt.Errorf("failed to save block: %w", err)
	}

	// Capacities are replaced wholesale; the block definition owns them.
	if _, err := tx.ExecContext(ctx, `DELETE FROM block_capacities WHERE block_id = ?`, b.ID); err != nil {
		return fmt.Errorf("failed to reset block capacities: %w", err)
	}
	for svcID, capacity := range b.Capacities {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO block_capacities (block_id, service_id, capacity) VALUES (?, ?, ?)`,
			b.ID, svcID, capacity); err != nil {
			return fmt.Errorf("failed to save block capacity: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) GetBlock(ctx context.Context, id booking.BlockID) (*booking.CapacityBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, label, start_dt, end_dt FROM capacity_blocks WHERE id = ?`, id)
	var b booking.CapacityBlock
	var start, end string
	err := row.Scan(&b.ID, &b.Label, &start, &end)
	if err == sql.ErrNoRows {
		return nil, booking.ErrBlockNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan block: %w", err)
	}
	b.Start, _ = parseTime(start)
	b.End, _ = parseTime(end)

	if err := s.loadCapacities(ctx, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) ListBlocksInRange(ctx context.Context, from, to time.Time) ([]booking.CapacityBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, start_dt, end_dt FROM capacity_blocks
		 WHERE start_dt < ? AND end_dt > ?
		 ORDER BY start_dt`,
		fmtTime(to), fmtTime(from))
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}
	defer rows.Close()

	var out []booking.CapacityBlock
	for rows.Next() {
		var b booking.CapacityBlock
		var start, end string
		if err := rows.Scan(&b.ID, &b.Label, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		b.Start, _ = parseTime(start)
		b.End, _ = parseTime(end)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := s.loadCapacities(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) loadCapacities(ctx context.Context, b *booking.CapacityBlock) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT service_id, capacity FROM block_capacities WHERE block_id = ?`, b.ID)
	if err != nil {
		return fmt.Errorf("failed to load block capacities: %w", err)
	}
	defer rows.Close()

	b.Capacities = make(map[booking.ServiceID]int)
	for rows.Next() {
		var svcID booking.ServiceID
		var capacity int
		if err := rows.Scan(&svcID, &capacity); err != nil {
			return fmt.Errorf("failed to scan block capacity: %w", err)
		}
		b.Capacities[svcID] = capacity
	}
	return rows.Err()
}

// =============================================================================
// HOLD STORE
// =============================================================================

func (s *Store) CreateHold(ctx context.Context, h booking.CapacityHold) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := h.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO capacity_holds (id, block_id, service_id, client_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, h.ID, h.BlockID, h.ServiceID, h.ClientID, fmtTime(h.ExpiresAt), fmtTime(createdAt))
	if err != nil {
		return fmt.Errorf("failed to create hold: %w", err)
	}
	return nil
}

func (s *Store) DeleteHold(ctx context.Context, id booking.HoldID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM capacity_holds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete hold: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return booking.ErrHoldNotFound
	}
	return nil
}

func (s *Store) PurgeExpiredHolds(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM capacity_holds WHERE expires_at <= ?`, fmtTime(now))
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired holds: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) CountActiveHolds(ctx context.Context, blockID booking.BlockID, serviceID booking.ServiceID, now time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM capacity_holds
		 WHERE block_id = ? AND service_id = ? AND expires_at > ?`,
		blockID, serviceID, fmtTime(now))
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active holds: %w", err)
	}
	return count, nil
}

// =============================================================================
// RECONCILIATION DIFF STORE
// =============================================================================

func (s *Store) SaveDiff(ctx context.Context, d reconcile.Diff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fieldsJSON, err := json.Marshal(d.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode diff fields: %w", err)
	}
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_diffs (booking_id, fields_json, source_record_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(booking_id) DO UPDATE SET
			fields_json = excluded.fields_json,
			source_record_id = excluded.source_record_id,
			created_at = excluded.created_at
	`, d.BookingID, string(fieldsJSON), d.SourceRecordID, fmtTime(createdAt))
	if err != nil {
		return fmt.Errorf("failed to save diff: %w", err)
	}
	return nil
}

func (s *Store) GetDiff(ctx context.Context, id booking.BookingID) (*reconcile.Diff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT booking_id, fields_json, source_record_id, created_at
		 FROM reconciliation_diffs WHERE booking_id = ?`, id)
	d, err := scanDiffFields(row)
	if err == sql.ErrNoRows {
		return nil, reconcile.ErrDiffNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan diff: %w", err)
	}
	return d, nil
}

func (s *Store) ClearDiff(ctx context.Context, id booking.BookingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM reconciliation_diffs WHERE booking_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear diff: %w", err)
	}
	return nil
}

func (s *Store) ListDiffs(ctx context.Context) ([]reconcile.Diff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT booking_id, fields_json, source_record_id, created_at
		 FROM reconciliation_diffs ORDER BY booking_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list diffs: %w", err)
	}
	defer rows.Close()

	var out []reconcile.Diff
	for rows.Next() {
		d, err := scanDiffFields(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan diff: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func scanDiffFields(sc rowScanner) (*reconcile.Diff, error) {
	var d reconcile.Diff
	var fieldsJSON, createdAt string
	if err := sc.Scan(&d.BookingID, &fieldsJSON, &d.SourceRecordID, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &d.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode diff fields: %w", err)
	}
	d.CreatedAt, _ = parseTime(createdAt)
	return &d, nil
}

// =============================================================================
// RECONCILIATION RUN STORE
// =============================================================================

func (s *Store) SaveRun(ctx context.Context, r reconcile.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_runs
		(id, record_id, lines, diffs, skipped_refs, status, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			lines = excluded.lines,
			diffs = excluded.diffs,
			skipped_refs = excluded.skipped_refs,
			status = excluded.status,
			error = excluded.error,
			completed_at = excluded.completed_at
	`, r.ID, r.RecordID, r.Lines, r.Diffs, r.SkippedRefs, r.Status, r.Error,
		fmtTime(r.StartedAt), fmtTime(r.CompletedAt))
	if err != nil {
		return fmt.Errorf("failed to save reconciliation run: %w", err)
	}
	return nil
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]reconcile.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, record_id, lines, diffs, skipped_refs, status, error, started_at, completed_at
	          FROM reconciliation_runs ORDER BY started_at DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+` LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliation runs: %w", err)
	}
	defer rows.Close()

	var out []reconcile.Run
	for rows.Next() {
		var r reconcile.Run
		var started, completed string
		if err := rows.Scan(&r.ID, &r.RecordID, &r.Lines, &r.Diffs, &r.SkippedRefs,
			&r.Status, &r.Error, &started, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation run: %w", err)
		}
		r.StartedAt, _ = parseTime(started)
		r.CompletedAt, _ = parseTime(completed)
		out = append(out, r)
	}
	return out, rows.Err()
}
