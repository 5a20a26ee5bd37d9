package service

import (
	"fmt"
	"time"

	"tranzac/internal/models"
	"tranzac/internal/pricing"
)

// BuildDocument flattens one estimate version into the presentation shape
// the PDF and xlsx renderers take. All amounts come out rounded to cents.
func BuildDocument(rental *models.RentalRequest, v *models.EstimateVersion, loc *time.Location, now time.Time) models.EstimateDocument {
	doc := models.EstimateDocument{
		Version:      v.Version,
		IssuedOn:     now.In(loc).Format("Monday, January 2, 2006"),
		CurrentDate:  now.In(loc).Format("Monday, January 2, 2006"),
		TotalCost:    pricing.Round2(v.TotalCost),
		Tax:          pricing.Round2(v.Tax),
		TotalWithTax: pricing.Round2(v.TotalWithTax),
	}
	if rental != nil {
		doc.RentalRequestID = rental.ID
		doc.OrganizationName = rental.OrganizationName
		doc.ContactName = rental.ContactName
		doc.EventTitle = rental.EventTitle
	}

	for i := range v.CostEstimates {
		doc.Slots = append(doc.Slots, buildDocumentSlot(&v.CostEstimates[i], loc))
	}
	return doc
}

func buildDocumentSlot(slot *models.CostEstimateSlot, loc *time.Location) models.DocumentSlot {
	out := models.DocumentSlot{
		Title:     slot.Title,
		SlotTotal: pricing.Round2(slot.SlotTotal),
	}
	if !slot.Start.IsZero() {
		out.Date = slot.Start.In(loc).Format("Monday, January 2, 2006")
		out.TimeRange = fmt.Sprintf("%s - %s",
			slot.Start.In(loc).Format("3:04 PM"),
			slot.End.In(loc).Format("3:04 PM"))
	} else {
		out.Date = slot.Date
	}

	addLine := func(description string, amount float64) {
		out.Lines = append(out.Lines, models.DocumentLine{
			Description: description,
			Amount:      pricing.Round2(amount),
		})
	}

	for _, item := range slot.PerSlotCosts {
		addLine(item.Description, item.Cost)
	}

	for i := range slot.Rooms {
		room := &slot.Rooms[i]
		if room.FullDayCostItem != nil {
			addLine(fmt.Sprintf("%s: Full Day Flat Rate", room.RoomName), room.FullDayCostItem.Cost)
		}
		if room.DaytimeCostItem != nil {
			addLine(fmt.Sprintf("%s: %s", room.RoomName,
				periodDescription(room.DaytimeHours, room.DaytimeRate, room.DaytimeRateType, "Daytime")),
				room.DaytimeCostItem.Cost)
		}
		if room.EveningCostItem != nil {
			addLine(fmt.Sprintf("%s: %s", room.RoomName,
				periodDescription(room.EveningHours, room.EveningRate, room.EveningRateType, "Evening")),
				room.EveningCostItem.Cost)
		}
		for _, item := range room.AdditionalCosts {
			addLine(item.Description, item.Cost)
		}
	}

	for _, item := range slot.CustomLineItems {
		addLine(item.Description, item.Cost)
	}
	return out
}

// periodDescription expands one billed period: "6h Daytime @ $40/hour" for
// hourly rooms, "Evening Flat Rate" for flat ones.
func periodDescription(hours, rate float64, rateType models.RateType, period string) string {
	if rateType == models.RateFlat {
		return fmt.Sprintf("%s Flat Rate", period)
	}
	return fmt.Sprintf("%s %s @ %s/hour", formatHours(hours), period, FormatMoney(rate))
}

func formatHours(hours float64) string {
	if hours == float64(int(hours)) {
		return fmt.Sprintf("%dh", int(hours))
	}
	return fmt.Sprintf("%.1fh", hours)
}

// FormatMoney renders a dollar amount without cents when whole.
func FormatMoney(amount float64) string {
	rounded := pricing.Round2(amount)
	if rounded == float64(int(rounded)) {
		return fmt.Sprintf("$%d", int(rounded))
	}
	return fmt.Sprintf("$%.2f", rounded)
}
