package validation

import (
	"fmt"

	"github.com/artpar/villagelookup/internal/core/domain"
)

// =============================================================================
// Check Plan
// =============================================================================

// CheckKind identifies which reference lookup a check needs.
type CheckKind int

const (
	// CheckWard asks whether a ward code belongs to a township code.
	CheckWard CheckKind = iota
	// CheckVillage asks whether a village code belongs to a township code.
	CheckVillage
	// CheckClassification asks whether an ICD10 option code exists.
	CheckClassification
)

// String returns the metric/log label of the kind.
func (k CheckKind) String() string {
	switch k {
	case CheckWard:
		return "ward"
	case CheckVillage:
		return "village"
	case CheckClassification:
		return "classification"
	default:
		return "unknown"
	}
}

// Check is one reference lookup planned for an event. A check that comes
// back false becomes exactly one ValidationError via Failure.
type Check struct {
	Kind  CheckKind
	Event string
	Field string

	// Township is the township business code (ward and village checks only).
	Township string

	// Code is the submitted ward, village or ICD10 code.
	Code string

	// Label names the classification field in the message.
	Label string
}

// Failure renders the validation error reported when the check fails.
func (c Check) Failure() domain.ValidationError {
	var msg string
	switch c.Kind {
	case CheckWard:
		msg = fmt.Sprintf("Ward '%s' does not belong to township '%s'.", c.Code, c.Township)
	case CheckVillage:
		msg = fmt.Sprintf("Village '%s' does not belong to township '%s'.", c.Code, c.Township)
	default:
		msg = fmt.Sprintf("'%s' is not a valid ICD10 code (%s).", c.Code, c.Label)
	}
	return domain.ValidationError{
		Event:   c.Event,
		Field:   c.Field,
		Message: msg,
	}
}

// PlanHierarchy returns the address membership check for an event, if one
// applies. It needs a township code and a location category; "Urban" checks
// the ward code and "Rural" the village code, each only when present. Any
// other category plans nothing.
func PlanHierarchy(cat Catalog, eventID string, values []domain.DataValue) (Check, bool) {
	township, ok := Extract(values, cat.Township)
	if !ok {
		return Check{}, false
	}
	location, ok := Extract(values, cat.Location)
	if !ok {
		return Check{}, false
	}

	var kind CheckKind
	var field string
	switch location {
	case LocationUrban:
		kind, field = CheckWard, cat.Ward
	case LocationRural:
		kind, field = CheckVillage, cat.Village
	default:
		return Check{}, false
	}

	code, ok := Extract(values, field)
	if !ok {
		return Check{}, false
	}

	return Check{
		Kind:     kind,
		Event:    eventID,
		Field:    field,
		Township: township,
		Code:     code,
	}, true
}

// PlanClassification returns one existence check per classification field
// that carries a value, in catalog order.
func PlanClassification(cat Catalog, eventID string, values []domain.DataValue) []Check {
	var checks []Check
	for _, f := range cat.Classification {
		code, ok := Extract(values, f.ID)
		if !ok {
			continue
		}
		checks = append(checks, Check{
			Kind:  CheckClassification,
			Event: eventID,
			Field: f.ID,
			Code:  code,
			Label: f.Label,
		})
	}
	return checks
}

// PlanEvent returns every check for one event: the hierarchy check first,
// then the classification checks in catalog order. Failures reported in this
// order give the event's error ordering.
func PlanEvent(cat Catalog, eventID string, values []domain.DataValue) []Check {
	checks := make([]Check, 0, 1+len(cat.Classification))
	if c, ok := PlanHierarchy(cat, eventID, values); ok {
		checks = append(checks, c)
	}
	return append(checks, PlanClassification(cat, eventID, values)...)
}

// PlanEvents concatenates PlanEvent over events in their original order.
func PlanEvents(cat Catalog, events []domain.Event) []Check {
	var checks []Check
	for _, e := range events {
		checks = append(checks, PlanEvent(cat, e.ID, e.DataValues)...)
	}
	return checks
}

// Failures keeps the failed checks, as reported by passed, in plan order.
// passed must be index-aligned with checks.
func Failures(checks []Check, passed []bool) []domain.ValidationError {
	var errs []domain.ValidationError
	for i, c := range checks {
		if !passed[i] {
			errs = append(errs, c.Failure())
		}
	}
	return errs
}
