package appliance

import (
	"github.com/bher20/billoptimizer/internal/tariff"
)

// Simulation is a consumption estimate priced against a tariff category.
type Simulation struct {
	Consumption
	Category tariff.Category `json:"category"`
	Bill     *tariff.Bill    `json:"bill"`
	Slab     tariff.Slab     `json:"slab"`
	Insights []string        `json:"insights"`
}

// Simulate estimates consumption for usages and bills it under c.
func Simulate(t tariff.Table, c tariff.Category, usages []Usage) (*Simulation, error) {
	est, err := Estimate(usages)
	if err != nil {
		return nil, err
	}
	bill, err := t.Breakdown(est.MonthlyUnits, c)
	if err != nil {
		return nil, err
	}
	slab, err := t.SlabFor(est.MonthlyUnits, c)
	if err != nil {
		return nil, err
	}
	return &Simulation{
		Consumption: *est,
		Category:    c,
		Bill:        bill,
		Slab:        slab,
		Insights:    insights(est, bill.Amount),
	}, nil
}

func insights(est *Consumption, amount int64) []string {
	if est.MonthlyUnits == 0 {
		return nil
	}
	var out []string
	switch {
	case est.MonthlyUnits > 500:
		out = append(out, "Very high consumption detected. Consider energy audit.")
	case est.MonthlyUnits > 300:
		out = append(out, "High consumption. Focus on AC optimization.")
	case est.MonthlyUnits > 200:
		out = append(out, "Medium consumption. Good optimization opportunities.")
	}
	for _, it := range est.Items {
		if it.ID == "ac" {
			out = append(out, "AC is major contributor. Set to 24°C for savings.")
			break
		}
	}
	if amount > 10000 {
		out = append(out, "High bill potential. Consider tariff optimization.")
	}
	return append(out, "Peak hours (6-10 PM) increase costs significantly")
}
