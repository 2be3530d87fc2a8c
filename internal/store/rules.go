package store

import (
	"fmt"
	"sort"
	"strings"
)

// SupportedAssets is the closed set of crypto symbols the platform handles.
// Kept here so the validator works without the assets file being present.
var SupportedAssets = []string{"BTC", "ETH", "USDT", "USDC"}

// TransactionTypes and TransactionStatuses are the closed enumerations used
// by the transaction lifecycle.
var (
	TransactionTypes    = []string{"deposit", "withdraw", "exchange", "invest"}
	TransactionStatuses = []string{"pending", "awaiting_admin", "sent", "completed", "rejected", "failed"}
	UserRoles           = []string{"admin", "client"}
	UserStatuses        = []string{"active", "suspended", "pending"}
	SubscriptionStates  = []string{"ACTIVE", "CLOSED", "CANCELLED"}
)

// CollectionRule declares the create-time requirements for one collection.
// Rules apply on create only; updates patch existing, already-valid records.
type CollectionRule struct {
	Required []string
	Enums    map[string][]string
}

var collectionRules = map[string]CollectionRule{
	"transactions": {
		Required: []string{"user_id", "type", "amount", "crypto"},
		Enums: map[string][]string{
			"type":   TransactionTypes,
			"status": TransactionStatuses,
		},
	},
	"wallets": {
		Required: []string{"user_id", "crypto", "balance"},
		Enums: map[string][]string{
			"crypto": SupportedAssets,
		},
	},
	"users": {
		Required: []string{"email", "role"},
		Enums: map[string][]string{
			"role":   UserRoles,
			"status": UserStatuses,
		},
	},
	"plans": {
		Required: []string{"name", "roi_min", "roi_max", "min_eur", "max_eur", "duration_days"},
	},
	"subscriptions": {
		Required: []string{"user_id", "plan_id", "amount_eur", "duration_days"},
		Enums: map[string][]string{
			"status": SubscriptionStates,
		},
	},
}

// knownCollections is the full set of collection names accepted by the HTTP
// surface. Collections without rules are free-form (settings, notifications,
// support tickets, audit trail).
var knownCollections = map[string]bool{
	"users":           true,
	"wallets":         true,
	"transactions":    true,
	"plans":           true,
	"subscriptions":   true,
	"settings":        true,
	"notifications":   true,
	"support_tickets": true,
	"audit_trail":     true,
}

// KnownCollection reports whether name maps to a backing file.
func KnownCollection(name string) bool {
	return knownCollections[name]
}

// KnownCollections returns the accepted collection names, sorted.
func KnownCollections() []string {
	names := make([]string, 0, len(knownCollections))
	for name := range knownCollections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidationError carries the precise field-level reason a create was
// rejected. It wraps ErrValidation so callers can test with errors.Is.
type ValidationError struct {
	Collection    string
	MissingFields []string
	InvalidEnum   string // field name whose value is outside its enumeration
	InvalidValue  string
}

func (e *ValidationError) Error() string {
	if len(e.MissingFields) > 0 {
		return fmt.Sprintf("%s: missing required fields: %s", e.Collection, strings.Join(e.MissingFields, ", "))
	}
	return fmt.Sprintf("%s: invalid value %q for field %q", e.Collection, e.InvalidValue, e.InvalidEnum)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validate applies the collection's create rules to payload. Collections
// without declared rules always pass.
func Validate(collection string, payload Record) error {
	rule, ok := collectionRules[collection]
	if !ok {
		return nil
	}

	var missing []string
	for _, field := range rule.Required {
		value, present := payload[field]
		if !present || value == nil || value == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Collection: collection, MissingFields: missing}
	}

	for field, allowed := range rule.Enums {
		raw, present := payload[field]
		if !present || raw == nil {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			return &ValidationError{Collection: collection, InvalidEnum: field, InvalidValue: fmt.Sprintf("%v", raw)}
		}
		if !contains(allowed, value) {
			return &ValidationError{Collection: collection, InvalidEnum: field, InvalidValue: value}
		}
	}

	return nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
