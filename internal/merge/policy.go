// Package merge turns staged string rows into typed fact records and
// resolves conflicts between multiple sightings of the same invoice key.
//
// Conflict resolution is field-level last-writer-wins with two classes of
// columns. Occurrence-gated columns describe the tracking state of a
// delivery and are overwritten only when the incoming occurrence
// timestamp strictly beats the stored one; under SQL comparison a NULL
// on either side keeps the stored values. Fill-if-null columns describe
// the order itself and take the incoming value unless it is NULL. The
// split lives in a policy table so the upsert statement and the tests
// are driven from one place.
package merge

import (
	"fmt"

	"sftp-data-ingestion/internal/schema"
)

// Rule says how a fact-store column behaves on conflict.
type Rule int

const (
	// FillIfNull takes the incoming value, keeping the stored one only
	// when the incoming value is SQL NULL.
	FillIfNull Rule = iota
	// OccurrenceGated takes the incoming value when the incoming
	// occurrence timestamp is newer than the stored one.
	OccurrenceGated
	// GreatestTimestamp keeps the maximum of stored and incoming.
	GreatestTimestamp
)

// FieldPolicy binds one canonical column to its conflict rule.
type FieldPolicy struct {
	Column string
	Rule   Rule
}

// occurrenceColumns are the tracking-state columns that follow the
// newest occurrence of a delivery.
var occurrenceColumns = map[string]bool{
	"delivery_forecast": true,
	"deadline_status":   true,
	"last_event_id":     true,
	"last_event_desc":   true,
	"last_event_key":    true,
	"last_event_at":     true,
	"carrier_arrival":   true,
	"source_file":       true,
}

// DefaultPolicies returns the conflict rule for every fact-store column
// except the invoice key, in canonical column order.
func DefaultPolicies() []FieldPolicy {
	policies := make([]FieldPolicy, 0, len(schema.Columns)-1)
	for _, col := range schema.Columns {
		if col == "invoice_key" {
			continue
		}
		rule := FillIfNull
		switch {
		case col == "inserted_at":
			rule = GreatestTimestamp
		case occurrenceColumns[col]:
			rule = OccurrenceGated
		}
		policies = append(policies, FieldPolicy{Column: col, Rule: rule})
	}
	return policies
}

// ValidatePolicies checks that policies covers every fact-store column
// except invoice_key exactly once and names no unknown column.
func ValidatePolicies(policies []FieldPolicy) error {
	known := make(map[string]bool, len(schema.Columns))
	for _, col := range schema.Columns {
		known[col] = true
	}

	seen := make(map[string]bool, len(policies))
	for _, p := range policies {
		if p.Column == "invoice_key" {
			return fmt.Errorf("policy table must not cover the conflict key")
		}
		if !known[p.Column] {
			return fmt.Errorf("policy names unknown column %q", p.Column)
		}
		if seen[p.Column] {
			return fmt.Errorf("duplicate policy for column %q", p.Column)
		}
		seen[p.Column] = true
	}

	for _, col := range schema.Columns {
		if col != "invoice_key" && !seen[col] {
			return fmt.Errorf("no policy for column %q", col)
		}
	}
	return nil
}
