/*
Package billing maps external subscription metadata onto recurrence rules.

PURPOSE:
  The billing provider is consumed as an opaque source of subscription
  metadata: cadence, weekday, time and location hints that staff set on
  the subscription when the client signs up. This package turns that
  metadata into a RecurrenceRule create/update, and deactivates the rule
  when the upstream subscription ends.

EXPLICIT MAPPING:
  The mapping from external field name to rule attribute is a closed,
  fully-enumerated table (see parseMetadata). Unknown keys are logged
  and ignored; nothing is probed dynamically against the rule model.

KNOWN METADATA KEYS:
  repeats      "weekly" | "fortnightly"
  days         CSV of MON,TUE,WED,THU,FRI,SAT,SUN
  start_time   HH:MM, 24-hour
  location     free text
  service_code resolved against the service catalog

LIFECYCLE:
  A subscription in a non-active status deactivates its rule; rules are
  never deleted, so the next materialization pass retracts the future
  auto-generated slots.

SEE ALSO:
  - booking/materializer.go: Consumes the rules this package maintains
*/
package billing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pawtrack/booking-engine/booking"
)

// Subscription is the provider-agnostic view of one billing subscription.
type Subscription struct {
	ID       string
	ClientID booking.ClientID
	Status   string // provider status, e.g. "active", "trialing", "canceled"
	Metadata map[string]string
}

// activeStatuses are the provider statuses that keep a rule active.
var activeStatuses = map[string]bool{
	"active":   true,
	"trialing": true,
}

var weekdayNames = map[string]int{
	"MON": 0, "TUE": 1, "WED": 2, "THU": 3, "FRI": 4, "SAT": 5, "SUN": 6,
}

var knownMetadataKeys = map[string]bool{
	"repeats":      true,
	"days":         true,
	"start_time":   true,
	"location":     true,
	"service_code": true,
}

// Syncer maintains recurrence rules from subscription metadata.
type Syncer struct {
	Rules    booking.RuleStore
	Services booking.ServiceStore
}

// NewSyncer wires a syncer over the given stores.
func NewSyncer(rules booking.RuleStore, services booking.ServiceStore) *Syncer {
	return &Syncer{Rules: rules, Services: services}
}

// ApplySubscription creates or updates the rule linked to the subscription.
// A non-active subscription deactivates the rule (or is a no-op when no
// rule exists yet). Incomplete metadata still persists the rule: the
// materializer skips incomplete rules, so a half-configured subscription
// is visible to staff without producing bookings.
func (s *Syncer) ApplySubscription(ctx context.Context, sub Subscription) (*booking.RecurrenceRule, error) {
	if sub.ID == "" {
		return nil, errors.New("billing: subscription ID is required")
	}

	rule, err := s.Rules.GetRuleBySubscription(ctx, sub.ID)
	if err != nil && !errors.Is(err, booking.ErrRuleNotFound) {
		return nil, err
	}

	now := time.Now()
	if rule == nil {
		if !activeStatuses[sub.Status] {
			// Never materialized, nothing to retract.
			return nil, nil
		}
		rule = &booking.RecurrenceRule{
			ID:             booking.RuleID(uuid.NewString()),
			ClientID:       sub.ClientID,
			SubscriptionID: sub.ID,
			CreatedAt:      now,
		}
	}

	rule.Active = activeStatuses[sub.Status]
	if err := s.applyMetadata(ctx, rule, sub); err != nil {
		return nil, err
	}

	rule.UpdatedAt = now
	if err := s.Rules.SaveRule(ctx, *rule); err != nil {
		return nil, fmt.Errorf("save rule for subscription %s: %w", sub.ID, err)
	}
	return rule, nil
}

// Deactivate marks the subscription's rule inactive. Missing rules are a
// no-op: a subscription that never produced a rule has nothing to retract.
func (s *Syncer) Deactivate(ctx context.Context, subscriptionID string) error {
	rule, err := s.Rules.GetRuleBySubscription(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, booking.ErrRuleNotFound) {
			return nil
		}
		return err
	}
	if !rule.Active {
		return nil
	}
	rule.Active = false
	rule.UpdatedAt = time.Now()
	return s.Rules.SaveRule(ctx, *rule)
}

// applyMetadata writes the recognized metadata fields onto the rule.
// Malformed fields are logged and leave the current rule value in place;
// the completeness check at materialization time is the safety net.
func (s *Syncer) applyMetadata(ctx context.Context, rule *booking.RecurrenceRule, sub Subscription) error {
	var unknown []string
	for k := range sub.Metadata {
		if !knownMetadataKeys[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		log.Printf("[Billing] subscription %s: unknown metadata keys: %s", sub.ID, strings.Join(unknown, ","))
	}

	if v, ok := sub.Metadata["repeats"]; ok {
		switch cadence := booking.Cadence(strings.ToLower(strings.TrimSpace(v))); cadence {
		case booking.CadenceWeekly, booking.CadenceFortnightly:
			rule.Cadence = cadence
		default:
			log.Printf("[Billing] subscription %s: invalid repeats %q", sub.ID, v)
		}
	}

	if v, ok := sub.Metadata["days"]; ok {
		if days, err := parseWeekdays(v); err != nil {
			log.Printf("[Billing] subscription %s: %v", sub.ID, err)
		} else {
			rule.Weekdays = days
		}
	}

	if v, ok := sub.Metadata["start_time"]; ok {
		if tod, err := parseTimeOfDay(v); err != nil {
			log.Printf("[Billing] subscription %s: %v", sub.ID, err)
		} else {
			rule.TimeOfDay = tod
		}
	}

	if v, ok := sub.Metadata["location"]; ok {
		rule.Location = strings.TrimSpace(v)
	}

	if v, ok := sub.Metadata["service_code"]; ok {
		code := strings.TrimSpace(v)
		svc, err := s.Services.GetServiceByCode(ctx, code)
		if err != nil {
			if errors.Is(err, booking.ErrServiceNotFound) {
				log.Printf("[Billing] subscription %s: unknown service code %q", sub.ID, code)
			} else {
				return err
			}
		} else {
			rule.ServiceID = svc.ID
		}
	}

	return nil
}

// parseWeekdays maps "MON,WED" onto Monday-indexed weekday numbers,
// deduplicated and sorted.
func parseWeekdays(csv string) ([]int, error) {
	seen := make(map[int]bool)
	var days []int
	for _, part := range strings.Split(csv, ",") {
		name := strings.ToUpper(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		d, ok := weekdayNames[name]
		if !ok {
			return nil, fmt.Errorf("invalid weekday %q in days %q", name, csv)
		}
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("days %q contains no weekdays", csv)
	}
	sort.Ints(days)
	return days, nil
}

// parseTimeOfDay parses "HH:MM" in 24-hour time.
func parseTimeOfDay(s string) (booking.TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return booking.TimeOfDay{}, fmt.Errorf("invalid start_time %q", s)
	}
	return booking.TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}
