package validation

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/artpar/villagelookup/internal/core/domain"
)

// =============================================================================
// Rejection Builder
// =============================================================================

// RejectionFormat selects the response envelope of a rejection.
type RejectionFormat string

const (
	// FormatSimple is the canonical {"valid": false, "errors": [...]} envelope.
	FormatSimple RejectionFormat = "simple"

	// FormatDHIS2 mimics a DHIS2 tracker import report so clients that only
	// understand upstream responses can surface the messages.
	FormatDHIS2 RejectionFormat = "dhis2"
)

// HierarchyErrorCode is the error code carried by DHIS2-style error reports.
const HierarchyErrorCode = "E1301"

// ParseRejectionFormat maps a configuration value to a RejectionFormat.
// The empty string selects FormatSimple.
func ParseRejectionFormat(s string) (RejectionFormat, error) {
	switch RejectionFormat(s) {
	case "", FormatSimple:
		return FormatSimple, nil
	case FormatDHIS2:
		return FormatDHIS2, nil
	default:
		return "", fmt.Errorf("unknown rejection format %q", s)
	}
}

// Rejection is a complete HTTP response returned instead of relaying.
type Rejection struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

type dhis2ErrorReport struct {
	Message     string `json:"message"`
	ErrorCode   string `json:"errorCode"`
	TrackerType string `json:"trackerType"`
	UID         string `json:"uid"`
}

type dhis2ValidationReport struct {
	ErrorReports   []dhis2ErrorReport `json:"errorReports"`
	WarningReports []dhis2ErrorReport `json:"warningReports"`
}

type dhis2Stats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Ignored int `json:"ignored"`
	Total   int `json:"total"`
}

type dhis2ImportReport struct {
	Status           string                `json:"status"`
	ValidationReport dhis2ValidationReport `json:"validationReport"`
	Stats            dhis2Stats            `json:"stats"`
}

// BuildRejection renders errs as a 409 Conflict response. totalEvents is the
// number of events in the whole submission; only the DHIS2 format uses it,
// reporting every event as ignored.
func BuildRejection(errs []domain.ValidationError, format RejectionFormat, totalEvents int) (Rejection, error) {
	var payload any
	switch format {
	case FormatDHIS2:
		reports := make([]dhis2ErrorReport, 0, len(errs))
		for _, e := range errs {
			reports = append(reports, dhis2ErrorReport{
				Message:     e.Message,
				ErrorCode:   HierarchyErrorCode,
				TrackerType: "EVENT",
				UID:         e.Event,
			})
		}
		payload = dhis2ImportReport{
			Status: "ERROR",
			ValidationReport: dhis2ValidationReport{
				ErrorReports:   reports,
				WarningReports: []dhis2ErrorReport{},
			},
			Stats: dhis2Stats{Ignored: totalEvents, Total: totalEvents},
		}
	default:
		payload = domain.NewValidationResult(errs)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Rejection{}, fmt.Errorf("encode rejection: %w", err)
	}

	return Rejection{
		StatusCode:  http.StatusConflict,
		ContentType: "application/json",
		Body:        body,
	}, nil
}
