package appliance

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/bher20/billoptimizer/internal/tariff"
)

// DaysPerMonth is the billing month length used for estimates.
const DaysPerMonth = 30

// Usage is how many of an appliance run and for how long each day.
type Usage struct {
	ID          string  `json:"id" validate:"required"`
	Count       int     `json:"count" validate:"gte=0"`
	HoursPerDay float64 `json:"hours" validate:"gte=0,lte=24"`
}

// Item is one appliance's share of the estimate.
type Item struct {
	Appliance
	Count        int     `json:"count"`
	HoursPerDay  float64 `json:"hours"`
	DailyUnits   float64 `json:"daily_units"`
	MonthlyUnits float64 `json:"monthly_units"`
	Percentage   float64 `json:"percentage"`
}

// Consumption is the monthly consumption implied by a set of usages.
type Consumption struct {
	Items        []Item  `json:"items"`
	DailyUnits   float64 `json:"daily_units"`
	MonthlyUnits float64 `json:"monthly_units"`
}

// Estimate computes monthly units as watts x hours x count / 1000 x 30 per
// appliance. Idle entries (count or hours zero) contribute nothing.
func Estimate(usages []Usage) (*Consumption, error) {
	var (
		items []Item
		total float64
	)
	for _, u := range usages {
		a, ok := Lookup(u.ID)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAppliance, u.ID)
		}
		if u.Count < 0 {
			return nil, fmt.Errorf("%w: %s count must be non-negative", tariff.ErrInvalidInput, u.ID)
		}
		if math.IsNaN(u.HoursPerDay) || u.HoursPerDay < 0 || u.HoursPerDay > 24 {
			return nil, fmt.Errorf("%w: %s hours must be within [0, 24]", tariff.ErrInvalidInput, u.ID)
		}
		if u.Count == 0 || u.HoursPerDay == 0 {
			continue
		}
		daily := float64(a.Watts) * u.HoursPerDay * float64(u.Count) / 1000
		monthly := daily * DaysPerMonth
		items = append(items, Item{
			Appliance:    a,
			Count:        u.Count,
			HoursPerDay:  u.HoursPerDay,
			DailyUnits:   round(daily, 2),
			MonthlyUnits: round(monthly, 2),
		})
		total += monthly
	}

	for i := range items {
		items[i].Percentage = round(items[i].MonthlyUnits/total*100, 1)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].MonthlyUnits > items[j].MonthlyUnits })

	monthly := round(total, 2)
	return &Consumption{
		Items:        items,
		DailyUnits:   round(monthly/DaysPerMonth, 2),
		MonthlyUnits: monthly,
	}, nil
}

// EstimateFromHours is the single-unit form keyed by appliance id. Unknown
// ids are skipped.
func EstimateFromHours(hours map[string]float64) (*Consumption, error) {
	known := lo.PickBy(hours, func(id string, _ float64) bool {
		_, ok := Lookup(id)
		return ok
	})
	usages := lo.MapToSlice(known, func(id string, h float64) Usage {
		return Usage{ID: id, Count: 1, HoursPerDay: h}
	})
	sort.Slice(usages, func(i, j int) bool { return usages[i].ID < usages[j].ID })
	return Estimate(usages)
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
