package planner

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bher20/billoptimizer/internal/tariff"
)

// ErrUnknownMeasure is returned for a measure id that is not offered.
var ErrUnknownMeasure = errors.New("unknown savings measure")

// Measure is an optimization the household can adopt. Reduction is the share
// of monthly units it saves and Rate the average price of a saved unit.
type Measure struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Reduction   decimal.Decimal `json:"reduction"`
	Rate        decimal.Decimal `json:"rate"`
}

var measures = []Measure{
	measure("led_lights", "LED Lights Upgrade", "Replace all bulbs with LED lights", "0.08", "20"),
	measure("ac_temperature", "AC Temperature Optimization", "Set AC to 24°C instead of lower", "0.15", "25"),
	measure("phantom_load", "Reduce Phantom Load", "Unplug devices when not in use", "0.05", "20"),
	measure("peak_shifting", "Peak Hour Shifting", "Shift usage to off-peak hours", "0.10", "22"),
	measure("efficient_appliances", "Energy Efficient Appliances", "Upgrade to 5-star rated appliances", "0.12", "25"),
	measure("water_heater_timer", "Water Heater Timer", "Use timer for water heater", "0.07", "20"),
}

func measure(id, name, desc, reduction, rate string) Measure {
	return Measure{
		ID:          id,
		Name:        name,
		Description: desc,
		Reduction:   decimal.RequireFromString(reduction),
		Rate:        decimal.RequireFromString(rate),
	}
}

// Measures lists the available measures in display order.
func Measures() []Measure {
	out := make([]Measure, len(measures))
	copy(out, measures)
	return out
}

// MeasureSaving is the monthly effect of one measure.
type MeasureSaving struct {
	Measure             string `json:"measure"`
	Name                string `json:"name"`
	UnitsSaved          int64  `json:"units_saved"`
	MonthlySavings      int64  `json:"monthly_savings"`
	ReductionPercentage int64  `json:"reduction_percentage"`
}

// Savings totals the selected measures.
type Savings struct {
	Breakdown           []MeasureSaving `json:"savings_breakdown"`
	TotalMonthlySavings int64           `json:"total_monthly_savings"`
	AnnualSavings       int64           `json:"annual_savings"`
}

// SavingsBreakdown prices each selected measure against current monthly
// units. Totals are rounded once from the unrounded sum.
func SavingsBreakdown(current float64, ids []string) (*Savings, error) {
	if err := checkUnits("current", current); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: select at least one measure", tariff.ErrInvalidInput)
	}

	units := decimal.NewFromFloat(current)
	total := decimal.Zero
	out := &Savings{}
	for _, id := range ids {
		m, ok := lookupMeasure(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMeasure, id)
		}
		saved := units.Mul(m.Reduction)
		money := saved.Mul(m.Rate)
		total = total.Add(money)
		out.Breakdown = append(out.Breakdown, MeasureSaving{
			Measure:             m.ID,
			Name:                m.Name,
			UnitsSaved:          saved.Round(0).IntPart(),
			MonthlySavings:      money.Round(0).IntPart(),
			ReductionPercentage: m.Reduction.Shift(2).IntPart(),
		})
	}
	out.TotalMonthlySavings = total.Round(0).IntPart()
	out.AnnualSavings = total.Mul(decimal.NewFromInt(12)).Round(0).IntPart()
	return out, nil
}

func lookupMeasure(id string) (Measure, bool) {
	for _, m := range measures {
		if m.ID == id {
			return m, true
		}
	}
	return Measure{}, false
}
