package domain

import (
	"bytes"
	"encoding/json"
)

// =============================================================================
// Tracker Payload
// =============================================================================

// DataValue pairs a DHIS2 data element identifier with its raw value.
type DataValue struct {
	DataElement string `json:"dataElement"`
	Value       string `json:"value"`
}

// UnmarshalJSON accepts non-string values (numbers, booleans) by keeping their
// literal JSON text. A null value decodes as the empty string.
func (d *DataValue) UnmarshalJSON(data []byte) error {
	var raw struct {
		DataElement string          `json:"dataElement"`
		Value       json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.DataElement = raw.DataElement
	d.Value = ""

	v := bytes.TrimSpace(raw.Value)
	switch {
	case len(v) == 0, bytes.Equal(v, []byte("null")):
	case v[0] == '"':
		if err := json.Unmarshal(v, &d.Value); err != nil {
			return err
		}
	default:
		d.Value = string(v)
	}
	return nil
}

// Event is one tracker event within a submission.
type Event struct {
	ID         string      `json:"event"`
	Program    string      `json:"program,omitempty"`
	DataValues []DataValue `json:"dataValues"`
}

// Submission is the tracker import document. Only the parts this service
// inspects are modelled; the original bytes are what gets relayed.
type Submission struct {
	Events []Event `json:"events"`
}

// =============================================================================
// Validation Results
// =============================================================================

// ValidationError is a single failed check on one field of one event.
type ValidationError struct {
	Event   string `json:"event"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult is the response envelope for validation outcomes.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors"`
}

// NewValidationResult builds a result from an error list. A nil list is
// reported as an empty array.
func NewValidationResult(errs []ValidationError) ValidationResult {
	if errs == nil {
		errs = []ValidationError{}
	}
	return ValidationResult{
		Valid:  len(errs) == 0,
		Errors: errs,
	}
}
