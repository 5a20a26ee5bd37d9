package pdf

import (
	"bytes"
	"context"
	"fmt"

	"tranzac/internal/models"

	"github.com/phpdave11/gofpdf"
)

// LocalRenderer renders estimate PDFs in process. It is the fallback when
// no document service is configured and the renderer used in development.
type LocalRenderer struct {
	venueName string
}

func NewLocalRenderer(venueName string) *LocalRenderer {
	if venueName == "" {
		venueName = "Tranzac"
	}
	return &LocalRenderer{venueName: venueName}
}

func (r *LocalRenderer) GenerateEstimatePDF(ctx context.Context, doc models.EstimateDocument) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, fmt.Sprintf("%s Rental Cost Estimate", r.venueName))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Rental request: %s (version %d)", doc.RentalRequestID, doc.Version))
	pdf.Ln(7)
	if doc.OrganizationName != "" {
		pdf.Cell(0, 7, fmt.Sprintf("Organization: %s", doc.OrganizationName))
		pdf.Ln(7)
	}
	if doc.ContactName != "" {
		pdf.Cell(0, 7, fmt.Sprintf("Contact: %s", doc.ContactName))
		pdf.Ln(7)
	}
	pdf.Cell(0, 7, fmt.Sprintf("Issued: %s", doc.IssuedOn))
	pdf.Ln(12)

	for _, slot := range doc.Slots {
		pdf.SetFont("Arial", "B", 12)
		header := slot.Date
		if slot.TimeRange != "" {
			header += "  " + slot.TimeRange
		}
		if slot.Title != "" {
			header += "  -  " + slot.Title
		}
		pdf.Cell(0, 8, header)
		pdf.Ln(9)

		pdf.SetFont("Arial", "", 11)
		for _, line := range slot.Lines {
			pdf.Cell(140, 7, line.Description)
			pdf.CellFormat(40, 7, fmt.Sprintf("$%.2f", line.Amount), "", 0, "R", false, 0, "")
			pdf.Ln(7)
		}

		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(140, 7, "Slot total")
		pdf.CellFormat(40, 7, fmt.Sprintf("$%.2f", slot.SlotTotal), "", 0, "R", false, 0, "")
		pdf.Ln(11)
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(140, 8, "Subtotal")
	pdf.CellFormat(40, 8, fmt.Sprintf("$%.2f", doc.TotalCost), "", 0, "R", false, 0, "")
	pdf.Ln(8)
	pdf.Cell(140, 8, "Tax")
	pdf.CellFormat(40, 8, fmt.Sprintf("$%.2f", doc.Tax), "", 0, "R", false, 0, "")
	pdf.Ln(8)
	pdf.Cell(140, 8, "Total")
	pdf.CellFormat(40, 8, fmt.Sprintf("$%.2f", doc.TotalWithTax), "", 0, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
