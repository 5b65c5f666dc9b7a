// Package validation provides the pure rules of the submission validation
// pipeline.
//
// Nothing in this package performs I/O. The rules turn an event's data
// values into an ordered check plan; the shell executes the plan against the
// reference store and hands the failed checks back here to be rendered as
// validation errors and, when needed, a rejection response.
//
// # Functions
//
//   - Extract: first trimmed, non-empty value of a data element
//   - PlanHierarchy: the ward or village membership check for an event
//   - PlanClassification: one ICD10 existence check per coded field
//   - PlanEvent: the full, ordered plan for one event
//   - BuildRejection: the 409 response for a non-empty error list
//
// # Usage
//
//	checks := validation.PlanEvent(catalog, event.ID, event.DataValues)
//	// run each check against the store, keep the failures in plan order
//	rej, err := validation.BuildRejection(errs, validation.FormatSimple, len(events))
package validation
