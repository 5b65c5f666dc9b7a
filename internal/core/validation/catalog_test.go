package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog_Valid(t *testing.T) {
	cat := DefaultCatalog()
	require.NoError(t, cat.Validate())
	assert.Equal(t, "cUjoGJK4gPL", cat.Program)
	assert.Len(t, cat.Classification, 4)
}

func TestParseCatalog_OverridesAndDefaults(t *testing.T) {
	doc := `
program: prog123
classification:
  - id: f1
    label: First
  - id: f2
    label: Second
`
	cat, err := ParseCatalog([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "prog123", cat.Program)
	assert.Equal(t, "QcFEXzah0f1", cat.Township, "unset keys keep defaults")
	require.Len(t, cat.Classification, 2)
	assert.Equal(t, Field{ID: "f2", Label: "Second"}, cat.Classification[1])
}

func TestParseCatalog_Invalid(t *testing.T) {
	_, err := ParseCatalog([]byte("program: [unterminated"))
	require.Error(t, err)

	_, err = ParseCatalog([]byte("ward: \"\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ward is required")

	_, err = ParseCatalog([]byte("classification:\n  - id: f1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classification[0].label")
}
