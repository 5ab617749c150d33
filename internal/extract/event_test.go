package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpintel/edgargraph/internal/models"
)

const eightKHTML = `
<html><body>
<p>Item 5.02 Departure of Directors or Certain Officers; Election of Directors</p>
<p>On April 1, 2024, Jane Roe resigned as Chief Financial Officer of the Company.</p>
<p>Item 9.01 Financial Statements and Exhibits</p>
<p>(d) Exhibits.</p>
</body></html>`

func TestEventExtractor(t *testing.T) {
	ref := models.FilingReference{AccessionNumber: "0001193125-24-000123", CIK: "0000320193", FormType: "8-K"}

	e := NewEventExtractor()
	result := e.ParseEvents(eightKHTML, "Apple Inc.", ref)

	require.Len(t, result.Events, 2)
	assert.True(t, result.HasMASignal)
	assert.Empty(t, result.Warnings)

	departure := result.Events[0]
	assert.Equal(t, "5.02", departure.ItemNumber)
	assert.Equal(t, "executive_change", departure.SignalType)
	assert.True(t, departure.IsMASignal)
	assert.Contains(t, departure.RawText, "Jane Roe resigned")

	exhibits := result.Events[1]
	assert.Equal(t, "9.01", exhibits.ItemNumber)
	assert.False(t, exhibits.IsMASignal)

	assert.Equal(t, []string{"5.02"}, result.MAItems())
	assert.Equal(t, "Apple Inc.: Executive change", result.Summary())
}

func TestEventExtractorNoItems(t *testing.T) {
	e := NewEventExtractor()
	result := e.ParseEvents("<html><body>nothing relevant</body></html>", "Acme", models.FilingReference{})
	assert.Empty(t, result.Events)
	assert.False(t, result.HasMASignal)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "", result.Summary())
}

func TestEventExtractorDeduplicatesItems(t *testing.T) {
	content := `Item 1.01 Entry into a Material Definitive Agreement.
Some description here.
Item 1.01 Entry into a Material Definitive Agreement.`

	e := NewEventExtractor()
	result := e.ParseEvents(content, "Acme", models.FilingReference{})
	require.Len(t, result.Events, 1)
	assert.Equal(t, "1.01", result.Events[0].ItemNumber)
}

func TestNormalizeItemNumber(t *testing.T) {
	assert.Equal(t, "5.02", normalizeItemNumber("5.2"))
	assert.Equal(t, "5.02", normalizeItemNumber("5.02"))
	assert.Equal(t, "9.01", normalizeItemNumber("9.01"))
	assert.Equal(t, "8", normalizeItemNumber("8"))
}
