package export

import (
	"bytes"
	"testing"

	"tranzac/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testDocument() models.EstimateDocument {
	return models.EstimateDocument{
		RentalRequestID:  "rental-1",
		Version:          1,
		OrganizationName: "Toronto Zine Collective",
		ContactName:      "Sam Lee",
		IssuedOn:         "January 5, 2026",
		Slots: []models.DocumentSlot{{
			Date:      "Saturday, January 3, 2026",
			TimeRange: "7:00 PM - 11:00 PM",
			Title:     "Evening show",
			Lines: []models.DocumentLine{
				{Description: "Main Hall: Evening Flat Rate", Amount: 300},
				{Description: "Weekend surcharge", Amount: 50},
				{Description: "After-hours surcharge", Amount: 100},
			},
			SlotTotal: 450,
		}},
		TotalCost:    450,
		Tax:          58.50,
		TotalWithTax: 508.50,
	}
}

func TestWriteVersionProducesReadableWorkbook(t *testing.T) {
	data, err := WriteVersion(testDocument())
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue("Estimate", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Cost estimate rental-1 (version 1)", title)

	rows, err := f.GetRows("Estimate")
	require.NoError(t, err)

	var flat []string
	for _, row := range rows {
		flat = append(flat, row...)
	}
	assert.Contains(t, flat, "Main Hall: Evening Flat Rate")
	assert.Contains(t, flat, "Weekend surcharge")
	assert.Contains(t, flat, "Subtotal")
	assert.Contains(t, flat, "Total")
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "cost_estimate_rental-1_v1.xlsx", Filename(testDocument()))
}
