// Package domain defines core domain types for Village Lookup.
package domain

// =============================================================================
// Reference Data - Townships, Wards, Villages
// =============================================================================

// Township is a top-level administrative area loaded from the DHIS2 township
// option set. Rows are written only by the batch loader. Wards and villages
// reference a township by its ID.
type Township struct {
	// ID is the internal database identifier.
	ID int `json:"-" db:"id"`

	// UID is the stable DHIS2 option identifier.
	UID string `json:"uid" db:"uid"`

	// Code is the business code submitters send. Distinct from UID.
	Code *string `json:"code" db:"code"`

	// Name is the display name.
	Name string `json:"name" db:"name"`

	// NameMy is the Burmese display name, if translated.
	NameMy *string `json:"name_my" db:"name_my"`
}

// Area is the listing shape shared by townships, wards and villages.
type Area struct {
	UID    string  `json:"uid" db:"uid"`
	Code   *string `json:"code" db:"code"`
	Name   string  `json:"name" db:"name"`
	NameMy *string `json:"name_my" db:"name_my"`
}

// Area returns the listing view of a township.
func (t Township) Area() Area {
	return Area{UID: t.UID, Code: t.Code, Name: t.Name, NameMy: t.NameMy}
}

// =============================================================================
// Reference Data - Classification Codes
// =============================================================================

// ClassificationCode is an ICD10 option. Validation matches Code, never
// ICDCode or UID.
type ClassificationCode struct {
	// UID is the DHIS2 option identifier.
	UID string `json:"uid" db:"uid"`

	// Code is the DHIS2 option code, the value submitters put in data values.
	Code *string `json:"code" db:"code"`

	// ICDCode is the clinical code, e.g. "A00.0".
	ICDCode *string `json:"icd_code" db:"icd_code"`

	// Name is the full display name.
	Name string `json:"name" db:"name"`
}

// ClassificationPage is one page of a classification code search.
type ClassificationPage struct {
	Page    int                  `json:"page"`
	Limit   int                  `json:"limit"`
	Total   int                  `json:"total"`
	Results []ClassificationCode `json:"results"`
}

// =============================================================================
// Loader Input
// =============================================================================

// AreaOption is a reference row as fetched from the registry, before it has
// been linked to a township row.
type AreaOption struct {
	UID    string
	Code   *string
	Name   string
	NameMy *string
}

// LinkedOption is a ward or village option with its resolved township row id.
type LinkedOption struct {
	AreaOption
	TownshipID int
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
