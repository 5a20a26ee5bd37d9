package pricing

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"tranzac/internal/models"

	"gopkg.in/yaml.v3"
)

// PeriodRate is the private/public base price for one room, day and period.
type PeriodRate struct {
	Private float64 `yaml:"private"`
	Public  float64 `yaml:"public"`
}

// DayRates maps a period to its base rate for one day of week.
type DayRates map[models.Period]PeriodRate

// RoomRates holds a room's full rate card.
type RoomRates struct {
	Room            models.Room
	DaytimeRateType models.RateType
	EveningRateType models.RateType
	Days            map[time.Weekday]DayRates
}

// Table is the static pricing lookup: room/day/period base prices, the
// resource cost table, and the surcharge conditions. Immutable once built.
type Table struct {
	rooms     map[string]*RoomRates
	order     []string
	resources map[string]float64
	options   []models.ResourceOption
}

// Room resolves a room by slug.
func (t *Table) Room(slug string) (models.Room, bool) {
	rr, ok := t.rooms[slug]
	if !ok {
		return models.Room{}, false
	}
	return rr.Room, true
}

// Rooms lists the configured rooms in stable order.
func (t *Table) Rooms() []models.Room {
	out := make([]models.Room, 0, len(t.order))
	for _, slug := range t.order {
		out = append(out, t.rooms[slug].Room)
	}
	return out
}

// BasePrice looks up the base price for a room, day, period and audience.
// A missing rule is an error, never a silent zero: a defaulted price would
// under-bill without anyone noticing.
func (t *Table) BasePrice(slug string, day time.Weekday, period models.Period, private bool) (float64, error) {
	rr, ok := t.rooms[slug]
	if !ok {
		return 0, fmt.Errorf("room %q: %w", slug, models.ErrRuleNotFound)
	}
	dayRates, ok := rr.Days[day]
	if !ok {
		return 0, fmt.Errorf("room %q day %s: %w", slug, day, models.ErrRuleNotFound)
	}
	rate, ok := dayRates[period]
	if !ok {
		return 0, fmt.Errorf("room %q day %s period %s: %w", slug, day, period, models.ErrRuleNotFound)
	}
	if private {
		return rate.Private, nil
	}
	return rate.Public, nil
}

// RateTypes returns the daytime and evening billing modes for a room.
func (t *Table) RateTypes(slug string) (daytime, evening models.RateType, err error) {
	rr, ok := t.rooms[slug]
	if !ok {
		return "", "", fmt.Errorf("room %q: %w", slug, models.ErrRuleNotFound)
	}
	return rr.DaytimeRateType, rr.EveningRateType, nil
}

// ResourceCost looks up the flat surcharge for a resource id.
func (t *Table) ResourceCost(id string) (float64, error) {
	cost, ok := t.resources[id]
	if !ok {
		return 0, fmt.Errorf("resource %q: %w", id, models.ErrResourceNotFound)
	}
	return cost, nil
}

// ResourceLabel returns the display label for a resource id, falling back
// to the id itself.
func (t *Table) ResourceLabel(id string) string {
	for _, opt := range t.options {
		if opt.Value == id {
			return opt.Label
		}
	}
	return id
}

// ResourceOptions lists the bookable resources with display labels.
func (t *Table) ResourceOptions() []models.ResourceOption {
	return t.options
}

// tableFile is the yaml representation of the rate card.
type tableFile struct {
	Rooms []struct {
		ID              string              `yaml:"id"`
		Name            string              `yaml:"name"`
		Slug            string              `yaml:"slug"`
		DaytimeRateType string              `yaml:"daytime_rate_type"`
		EveningRateType string              `yaml:"evening_rate_type"`
		Rates           map[string]DayRates `yaml:"rates"` // keyed by lowercase weekday
	} `yaml:"rooms"`
	Resources []struct {
		Value string  `yaml:"value"`
		Label string  `yaml:"label"`
		Cost  float64 `yaml:"cost"`
	} `yaml:"resources"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// LoadTable reads a rate card from yaml. An empty path yields the built-in
// canonical table.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing rules: %w", err)
	}

	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse pricing rules: %w", err)
	}

	t := &Table{
		rooms:     make(map[string]*RoomRates),
		resources: make(map[string]float64),
	}

	for _, r := range file.Rooms {
		if r.Slug == "" {
			return nil, fmt.Errorf("room %q has no slug: %w", r.Name, models.ErrValidation)
		}
		days := make(map[time.Weekday]DayRates, len(r.Rates))
		for name, rates := range r.Rates {
			day, ok := weekdayNames[strings.ToLower(name)]
			if !ok {
				return nil, fmt.Errorf("room %q: unknown weekday %q: %w", r.Slug, name, models.ErrValidation)
			}
			days[day] = rates
		}
		t.rooms[r.Slug] = &RoomRates{
			Room:            models.Room{ID: r.ID, Name: r.Name, Slug: r.Slug},
			DaytimeRateType: parseRateType(r.DaytimeRateType),
			EveningRateType: parseRateType(r.EveningRateType),
			Days:            days,
		}
		t.order = append(t.order, r.Slug)
	}

	for _, res := range file.Resources {
		t.resources[res.Value] = res.Cost
		t.options = append(t.options, models.ResourceOption{Value: res.Value, Label: res.Label})
	}
	sort.Slice(t.options, func(i, j int) bool { return t.options[i].Value < t.options[j].Value })

	return t, nil
}

func parseRateType(s string) models.RateType {
	if models.RateType(strings.ToLower(strings.TrimSpace(s))) == models.RateFlat {
		return models.RateFlat
	}
	return models.RateHourly
}

func rate(private, public float64) PeriodRate {
	return PeriodRate{Private: private, Public: public}
}

func dayRates(morning, afternoon, evening PeriodRate) DayRates {
	return DayRates{
		models.PeriodMorning:   morning,
		models.PeriodAfternoon: afternoon,
		models.PeriodEvening:   evening,
	}
}

// week builds a full weekly rate card from a weekday (Mon-Thu), Friday and
// weekend (Sat-Sun) card, matching how the venue actually prices.
func week(weekday, friday, weekend DayRates) map[time.Weekday]DayRates {
	return map[time.Weekday]DayRates{
		time.Monday:    weekday,
		time.Tuesday:   weekday,
		time.Wednesday: weekday,
		time.Thursday:  weekday,
		time.Friday:    friday,
		time.Saturday:  weekend,
		time.Sunday:    weekend,
	}
}

// DefaultTable is the canonical rate card. The historical snapshots carried
// two diverging tables; this is the reconciled one.
func DefaultTable() *Table {
	t := &Table{
		rooms:     make(map[string]*RoomRates),
		resources: make(map[string]float64),
	}

	add := func(name, slug string, daytimeType, eveningType models.RateType, days map[time.Weekday]DayRates) {
		t.rooms[slug] = &RoomRates{
			Room:            models.Room{ID: slug, Name: name, Slug: slug},
			DaytimeRateType: daytimeType,
			EveningRateType: eveningType,
			Days:            days,
		}
		t.order = append(t.order, slug)
	}

	add("Living Room", "living-room", models.RateHourly, models.RateHourly, week(
		dayRates(rate(100, 80), rate(150, 120), rate(200, 160)),
		dayRates(rate(150, 120), rate(200, 160), rate(250, 200)),
		dayRates(rate(200, 160), rate(250, 200), rate(300, 240)),
	))

	add("Main Hall", "main-hall", models.RateFlat, models.RateFlat, week(
		dayRates(rate(200, 160), rate(250, 200), rate(300, 240)),
		dayRates(rate(250, 200), rate(300, 240), rate(350, 280)),
		dayRates(rate(300, 240), rate(350, 280), rate(300, 240)),
	))

	add("Zine Library", "zine-library", models.RateHourly, models.RateHourly, week(
		dayRates(rate(50, 40), rate(75, 60), rate(100, 80)),
		dayRates(rate(75, 60), rate(100, 80), rate(125, 100)),
		dayRates(rate(100, 80), rate(125, 100), rate(150, 120)),
	))

	add("Parking Lot", "parking-lot", models.RateHourly, models.RateHourly, week(
		dayRates(rate(30, 25), rate(45, 35), rate(60, 50)),
		dayRates(rate(45, 35), rate(60, 50), rate(75, 60)),
		dayRates(rate(60, 50), rate(75, 60), rate(90, 70)),
	))

	add("The Full Building", "the-full-building", models.RateFlat, models.RateFlat, week(
		dayRates(rate(300, 240), rate(400, 320), rate(500, 400)),
		dayRates(rate(400, 320), rate(500, 400), rate(600, 480)),
		dayRates(rate(500, 400), rate(600, 480), rate(700, 560)),
	))

	add("Southern Cross", "southern-cross", models.RateHourly, models.RateHourly, week(
		dayRates(rate(80, 65), rate(100, 80), rate(120, 100)),
		dayRates(rate(100, 80), rate(120, 100), rate(140, 120)),
		dayRates(rate(120, 100), rate(140, 120), rate(160, 140)),
	))

	t.resources = map[string]float64{
		"bar":       50,
		"food":      100,
		"security":  75,
		"tech":      120,
		"door":      60,
		"piano":     200,
		"projector": 150,
	}
	t.options = []models.ResourceOption{
		{Value: "bar", Label: "Bar Staff"},
		{Value: "door", Label: "Door Staff"},
		{Value: "food", Label: "Food"},
		{Value: "piano", Label: "Piano"},
		{Value: "projector", Label: "Projector"},
		{Value: "security", Label: "Security"},
		{Value: "tech", Label: "Tech Staff"},
	}

	return t
}
