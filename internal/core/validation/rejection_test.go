package validation

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/artpar/villagelookup/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleErrors() []domain.ValidationError {
	return []domain.ValidationError{
		{Event: "E1", Field: fWard, Message: "Ward 'ABC' does not belong to township '100301'."},
		{Event: "E2", Field: fCoDIA, Message: "'Z999' is not a valid ICD10 code (CoD - Cause of Death I A)."},
	}
}

func TestBuildRejection_Simple(t *testing.T) {
	rej, err := BuildRejection(sampleErrors(), FormatSimple, 3)
	require.NoError(t, err)

	assert.Equal(t, http.StatusConflict, rej.StatusCode)
	assert.Equal(t, "application/json", rej.ContentType)
	assert.JSONEq(t, `{
		"valid": false,
		"errors": [
			{"event": "E1", "field": "ZT3zBscjD24", "message": "Ward 'ABC' does not belong to township '100301'."},
			{"event": "E2", "field": "TJlsMB053WZ", "message": "'Z999' is not a valid ICD10 code (CoD - Cause of Death I A)."}
		]
	}`, string(rej.Body))
}

func TestBuildRejection_DHIS2(t *testing.T) {
	rej, err := BuildRejection(sampleErrors(), FormatDHIS2, 3)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, rej.StatusCode)

	var report dhis2ImportReport
	require.NoError(t, json.Unmarshal(rej.Body, &report))
	assert.Equal(t, "ERROR", report.Status)
	require.Len(t, report.ValidationReport.ErrorReports, 2)
	assert.Equal(t, dhis2ErrorReport{
		Message:     "Ward 'ABC' does not belong to township '100301'.",
		ErrorCode:   "E1301",
		TrackerType: "EVENT",
		UID:         "E1",
	}, report.ValidationReport.ErrorReports[0])
	assert.NotNil(t, report.ValidationReport.WarningReports)
	assert.Equal(t, dhis2Stats{Ignored: 3, Total: 3}, report.Stats)
}

func TestParseRejectionFormat(t *testing.T) {
	f, err := ParseRejectionFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatSimple, f)

	f, err = ParseRejectionFormat("dhis2")
	require.NoError(t, err)
	assert.Equal(t, FormatDHIS2, f)

	_, err = ParseRejectionFormat("xml")
	assert.Error(t, err)
}
