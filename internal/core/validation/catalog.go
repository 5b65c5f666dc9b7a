package validation

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Field Catalog
// =============================================================================

// Location category literals that select which hierarchy check applies.
const (
	LocationUrban = "Urban"
	LocationRural = "Rural"
)

// Field is a DHIS2 data element with the label used in error messages.
type Field struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

// Catalog names the program whose events are intercepted and the data
// elements the rules read.
type Catalog struct {
	// Program is the tracker program whose events are validated on the proxy path.
	Program string `yaml:"program"`

	// Address data elements.
	Township string `yaml:"township"`
	Location string `yaml:"location"`
	Ward     string `yaml:"ward"`
	Village  string `yaml:"village"`

	// Classification lists the ICD10 coded fields in evaluation order.
	Classification []Field `yaml:"classification"`
}

// DefaultCatalog returns the Death Register program configuration.
func DefaultCatalog() Catalog {
	return Catalog{
		Program:  "cUjoGJK4gPL",
		Township: "QcFEXzah0f1", // Permanent Address - Township (MBDR)
		Location: "hQnTVzOd0m9", // Permanent Address - Ward/Village Location
		Ward:     "ZT3zBscjD24", // Permanent Address - Ward Name
		Village:  "C5ppG8eJSKs", // Permanent Address - Village Name
		Classification: []Field{
			{ID: "TJlsMB053WZ", Label: "CoD - Cause of Death I A"},
			{ID: "Wntbkbl2ext", Label: "CoD - Cause of Death I B"},
			{ID: "auAvndfLb5x", Label: "CoD - Cause of Death I C"},
			{ID: "nQy5xQrOMXj", Label: "CoD - Underlying Cause of Death"},
		},
	}
}

// ParseCatalog decodes a YAML catalog. Keys missing from the document keep
// their DefaultCatalog values; a classification list, when given, replaces
// the default list entirely.
func ParseCatalog(data []byte) (Catalog, error) {
	cat := DefaultCatalog()
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return Catalog{}, fmt.Errorf("parse field catalog: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return Catalog{}, err
	}
	return cat, nil
}

// Validate reports the first missing identifier.
func (c Catalog) Validate() error {
	required := []struct{ name, value string }{
		{"program", c.Program},
		{"township", c.Township},
		{"location", c.Location},
		{"ward", c.Ward},
		{"village", c.Village},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("field catalog: %s is required", r.name)
		}
	}
	for i, f := range c.Classification {
		if f.ID == "" {
			return fmt.Errorf("field catalog: classification[%d].id is required", i)
		}
		if f.Label == "" {
			return fmt.Errorf("field catalog: classification[%d].label is required", i)
		}
	}
	return nil
}
