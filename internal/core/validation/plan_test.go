package validation

import (
	"testing"

	"github.com/artpar/villagelookup/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fTownship = "QcFEXzah0f1"
	fLocation = "hQnTVzOd0m9"
	fWard     = "ZT3zBscjD24"
	fVillage  = "C5ppG8eJSKs"
	fCoDIA    = "TJlsMB053WZ"
	fCoDIB    = "Wntbkbl2ext"
	fCoDIC    = "auAvndfLb5x"
	fCoDUnder = "nQy5xQrOMXj"
)

// =============================================================================
// PlanHierarchy Tests
// =============================================================================

func TestPlanHierarchy_Urban(t *testing.T) {
	values := []domain.DataValue{
		dv(fTownship, "100301"),
		dv(fLocation, "Urban"),
		dv(fWard, "ABC"),
		dv(fVillage, "V1"),
	}

	c, ok := PlanHierarchy(DefaultCatalog(), "E1", values)
	require.True(t, ok)
	assert.Equal(t, CheckWard, c.Kind)
	assert.Equal(t, fWard, c.Field)
	assert.Equal(t, "100301", c.Township)
	assert.Equal(t, "ABC", c.Code)
	assert.Equal(t, "E1", c.Event)
}

func TestPlanHierarchy_Rural(t *testing.T) {
	values := []domain.DataValue{
		dv(fTownship, "100301"),
		dv(fLocation, "Rural"),
		dv(fWard, "ABC"),
		dv(fVillage, "V1"),
	}

	c, ok := PlanHierarchy(DefaultCatalog(), "E1", values)
	require.True(t, ok)
	assert.Equal(t, CheckVillage, c.Kind)
	assert.Equal(t, fVillage, c.Field)
	assert.Equal(t, "V1", c.Code)
}

func TestPlanHierarchy_NoCheck_TableDriven(t *testing.T) {
	tests := []struct {
		name   string
		values []domain.DataValue
	}{
		{
			name:   "missing township",
			values: []domain.DataValue{dv(fLocation, "Urban"), dv(fWard, "ABC")},
		},
		{
			name:   "blank township",
			values: []domain.DataValue{dv(fTownship, " "), dv(fLocation, "Urban"), dv(fWard, "ABC")},
		},
		{
			name:   "missing location",
			values: []domain.DataValue{dv(fTownship, "100301"), dv(fWard, "ABC"), dv(fVillage, "V1")},
		},
		{
			name:   "unknown location",
			values: []domain.DataValue{dv(fTownship, "100301"), dv(fLocation, "Suburban"), dv(fWard, "ABC"), dv(fVillage, "V1")},
		},
		{
			name:   "location is case sensitive",
			values: []domain.DataValue{dv(fTownship, "100301"), dv(fLocation, "urban"), dv(fWard, "ABC")},
		},
		{
			name:   "urban without ward",
			values: []domain.DataValue{dv(fTownship, "100301"), dv(fLocation, "Urban"), dv(fVillage, "V1")},
		},
		{
			name:   "rural without village",
			values: []domain.DataValue{dv(fTownship, "100301"), dv(fLocation, "Rural"), dv(fWard, "ABC")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := PlanHierarchy(DefaultCatalog(), "E1", tt.values)
			assert.False(t, ok)
		})
	}
}

// =============================================================================
// PlanClassification Tests
// =============================================================================

func TestPlanClassification_CatalogOrder(t *testing.T) {
	// Submitted out of order; plan follows the catalog.
	values := []domain.DataValue{
		dv(fCoDUnder, "U1"),
		dv(fCoDIA, "A1"),
		dv(fCoDIC, "C1"),
	}

	checks := PlanClassification(DefaultCatalog(), "E1", values)
	require.Len(t, checks, 3)
	assert.Equal(t, fCoDIA, checks[0].Field)
	assert.Equal(t, fCoDIC, checks[1].Field)
	assert.Equal(t, fCoDUnder, checks[2].Field)
	assert.Equal(t, "CoD - Underlying Cause of Death", checks[2].Label)
	for _, c := range checks {
		assert.Equal(t, CheckClassification, c.Kind)
	}
}

func TestPlanClassification_SkipsBlank(t *testing.T) {
	checks := PlanClassification(DefaultCatalog(), "E1", []domain.DataValue{dv(fCoDIB, "  ")})
	assert.Empty(t, checks)
}

// =============================================================================
// PlanEvent / Failures Tests
// =============================================================================

func TestPlanEvent_HierarchyFirst(t *testing.T) {
	values := []domain.DataValue{
		dv(fCoDIA, "A1"),
		dv(fTownship, "100301"),
		dv(fLocation, "Urban"),
		dv(fWard, "ABC"),
		dv(fCoDIB, "B1"),
	}

	checks := PlanEvent(DefaultCatalog(), "E1", values)
	require.Len(t, checks, 3)
	assert.Equal(t, CheckWard, checks[0].Kind)
	assert.Equal(t, fCoDIA, checks[1].Field)
	assert.Equal(t, fCoDIB, checks[2].Field)
}

func TestPlanEvents_PreservesEventOrder(t *testing.T) {
	events := []domain.Event{
		{ID: "E1", DataValues: []domain.DataValue{dv(fCoDIA, "A1")}},
		{ID: "E2", DataValues: nil},
		{ID: "E3", DataValues: []domain.DataValue{dv(fCoDIA, "A3"), dv(fCoDIB, "B3")}},
	}

	checks := PlanEvents(DefaultCatalog(), events)
	require.Len(t, checks, 3)
	assert.Equal(t, "E1", checks[0].Event)
	assert.Equal(t, "E3", checks[1].Event)
	assert.Equal(t, "E3", checks[2].Event)
}

func TestCheckFailure_Messages(t *testing.T) {
	ward := Check{Kind: CheckWard, Event: "E1", Field: fWard, Township: "100301", Code: "ABC"}
	assert.Equal(t, domain.ValidationError{
		Event:   "E1",
		Field:   fWard,
		Message: "Ward 'ABC' does not belong to township '100301'.",
	}, ward.Failure())

	village := Check{Kind: CheckVillage, Event: "E1", Field: fVillage, Township: "100301", Code: "V9"}
	assert.Equal(t, "Village 'V9' does not belong to township '100301'.", village.Failure().Message)

	icd := Check{Kind: CheckClassification, Event: "E1", Field: fCoDIA, Code: "Z999", Label: "CoD - Cause of Death I A"}
	assert.Equal(t, "'Z999' is not a valid ICD10 code (CoD - Cause of Death I A).", icd.Failure().Message)
}

func TestFailures_KeepsPlanOrder(t *testing.T) {
	checks := []Check{
		{Kind: CheckWard, Event: "E1", Field: fWard, Township: "T", Code: "W"},
		{Kind: CheckClassification, Event: "E1", Field: fCoDIA, Code: "ok", Label: "A"},
		{Kind: CheckClassification, Event: "E2", Field: fCoDIA, Code: "X", Label: "A"},
		{Kind: CheckClassification, Event: "E2", Field: fCoDIB, Code: "Y", Label: "B"},
	}

	errs := Failures(checks, []bool{false, true, false, false})
	require.Len(t, errs, 3)
	assert.Equal(t, "E1", errs[0].Event)
	assert.Equal(t, fWard, errs[0].Field)
	assert.Equal(t, fCoDIA, errs[1].Field)
	assert.Equal(t, fCoDIB, errs[2].Field)
}

func TestFailures_AllPassed(t *testing.T) {
	checks := []Check{{Kind: CheckClassification, Code: "A"}}
	assert.Empty(t, Failures(checks, []bool{true}))
}

func TestCheckKind_String(t *testing.T) {
	assert.Equal(t, "ward", CheckWard.String())
	assert.Equal(t, "village", CheckVillage.String())
	assert.Equal(t, "classification", CheckClassification.String())
	assert.Equal(t, "unknown", CheckKind(42).String())
}
