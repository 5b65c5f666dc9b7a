// Package tracker decides whether a tracker submission is intercepted for
// validation or relayed untouched.
//
// Decide is pure: it reads the request body and query, never performs I/O,
// and never mutates its inputs. The caller relays the original bytes.
package tracker

import (
	"encoding/json"
	"net/url"

	"github.com/artpar/villagelookup/internal/core/domain"
)

// SyncParam is the query parameter that marks a synchronous import.
const SyncParam = "async"

// Decision is the outcome of the interception gate.
type Decision struct {
	// Validate is true when the submission must be validated before relaying.
	Validate bool

	// Events holds the events of the target program, in submission order.
	// Empty when Validate is false.
	Events []domain.Event

	// TotalEvents counts every event in the submission, including events of
	// other programs. Zero when the body could not be decoded.
	TotalEvents int
}

// PassThrough is the decision to relay without validation.
var PassThrough = Decision{}

// Decide classifies a proxied submission. Only synchronous imports
// (async=false) that contain at least one event of program are validated.
// Anything else, including a body that is not a JSON object with an events
// array, passes through.
func Decide(body []byte, query url.Values, program string) Decision {
	if !IsSynchronous(query) {
		return PassThrough
	}

	var sub domain.Submission
	if err := json.Unmarshal(body, &sub); err != nil {
		return PassThrough
	}

	matching := FilterProgram(sub.Events, program)
	if len(matching) == 0 {
		return Decision{TotalEvents: len(sub.Events)}
	}

	return Decision{
		Validate:    true,
		Events:      matching,
		TotalEvents: len(sub.Events),
	}
}

// IsSynchronous reports whether the first async value is exactly "false".
func IsSynchronous(query url.Values) bool {
	values, ok := query[SyncParam]
	return ok && len(values) > 0 && values[0] == "false"
}

// FilterProgram returns the events whose program equals program.
func FilterProgram(events []domain.Event, program string) []domain.Event {
	var out []domain.Event
	for _, e := range events {
		if e.Program == program {
			out = append(out, e)
		}
	}
	return out
}
