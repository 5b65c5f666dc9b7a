package validation

import (
	"strings"

	"github.com/artpar/villagelookup/internal/core/domain"
)

// Extract returns the first value recorded for dataElement, trimmed. The
// second result is false when the element is missing or its value is blank.
// Later duplicates of the same element are ignored.
func Extract(values []domain.DataValue, dataElement string) (string, bool) {
	for _, dv := range values {
		if dv.DataElement != dataElement {
			continue
		}
		v := strings.TrimSpace(dv.Value)
		return v, v != ""
	}
	return "", false
}
