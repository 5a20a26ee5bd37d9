package export

import (
	"fmt"

	"tranzac/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Estimate"

// VersionWorkbook renders one estimate version as an xlsx workbook. It
// takes the same presentation-shaped document the PDF renderers take, so
// both exports always show identical lines.
func VersionWorkbook(doc models.EstimateDocument) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Cost estimate %s (version %d)", doc.RentalRequestID, doc.Version))
	_ = f.MergeCell(sheetName, "A1", "C1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	row := 3
	if doc.OrganizationName != "" {
		setRow(f, row, "Organization", doc.OrganizationName, nil)
		row++
	}
	if doc.ContactName != "" {
		setRow(f, row, "Contact", doc.ContactName, nil)
		row++
	}
	setRow(f, row, "Issued", doc.IssuedOn, nil)
	row += 2

	boldStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	for _, slot := range doc.Slots {
		header := slot.Date
		if slot.TimeRange != "" {
			header += "  " + slot.TimeRange
		}
		if slot.Title != "" {
			header += "  -  " + slot.Title
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, boldStyle)
		row++

		for _, line := range slot.Lines {
			setRow(f, row, line.Description, "", &line.Amount)
			row++
		}

		total := slot.SlotTotal
		setRow(f, row, "Slot total", "", &total)
		styleRowBold(f, row, boldStyle)
		row += 2
	}

	subtotal := doc.TotalCost
	tax := doc.Tax
	grand := doc.TotalWithTax
	setRow(f, row, "Subtotal", "", &subtotal)
	row++
	setRow(f, row, "Tax", "", &tax)
	row++
	setRow(f, row, "Total", "", &grand)
	styleRowBold(f, row, boldStyle)

	_ = f.SetColWidth(sheetName, "A", "A", 50)
	_ = f.SetColWidth(sheetName, "B", "C", 16)
	_ = f.DeleteSheet("Sheet1")

	return f, nil
}

// WriteVersion renders the workbook and returns the xlsx bytes.
func WriteVersion(doc models.EstimateDocument) ([]byte, error) {
	f, err := VersionWorkbook(doc)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("error writing workbook: %v", err)
	}
	return buf.Bytes(), nil
}

// Filename derives the download name for one exported version.
func Filename(doc models.EstimateDocument) string {
	return fmt.Sprintf("cost_estimate_%s_v%d.xlsx", doc.RentalRequestID, doc.Version)
}

func setRow(f *excelize.File, row int, label, text string, amount *float64) {
	labelCell, _ := excelize.CoordinatesToCellName(1, row)
	_ = f.SetCellValue(sheetName, labelCell, label)
	if text != "" {
		valueCell, _ := excelize.CoordinatesToCellName(2, row)
		_ = f.SetCellValue(sheetName, valueCell, text)
	}
	if amount != nil {
		amountCell, _ := excelize.CoordinatesToCellName(3, row)
		_ = f.SetCellValue(sheetName, amountCell, *amount)
	}
}

func styleRowBold(f *excelize.File, row int, style int) {
	start, _ := excelize.CoordinatesToCellName(1, row)
	end, _ := excelize.CoordinatesToCellName(3, row)
	_ = f.SetCellStyle(sheetName, start, end, style)
}
