package predict

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/bher20/billoptimizer/internal/tariff"
)

const (
	daysPerMonth = 30

	// Monthly units outside this range are treated as unreliable history.
	minHistoryUnits = 50
	maxHistoryUnits = 2000

	acWatts     = 1500
	fridgeWatts = 150
	fanWatts    = 75
	otherWatts  = 100

	ModelName = "Reliable Calculator"
)

// SlabInfo names the slab the estimate falls in.
type SlabInfo struct {
	Slab string          `json:"slab"`
	Rate decimal.Decimal `json:"rate"`
	Type tariff.Category `json:"type"`
}

// Prediction is a deterministic monthly bill estimate for a household.
type Prediction struct {
	PredictedBill        int64           `json:"predicted_bill"`
	EstimatedUnits       float64         `json:"estimated_units"`
	DailyUnits           float64         `json:"daily_units"`
	TariffSlab           SlabInfo        `json:"tariff_slab"`
	Bill                 *tariff.Bill    `json:"bill"`
	OptimizationTips     []string        `json:"optimization_tips"`
	SavingsOpportunities []string        `json:"savings_opportunities"`
	ModelConfidence      float64         `json:"model_confidence"`
	ModelName            string          `json:"model_name"`
	InputSummary         map[string]any  `json:"input_summary"`
	Input                Input           `json:"-"`
	ACShare              decimal.Decimal `json:"-"`
}

// Estimate predicts the monthly bill for in under table t.
func Estimate(t tariff.Table, in Input) (*Prediction, error) {
	units := monthlyUnits(in)
	units = math.Round(units*100) / 100

	bill, err := t.Breakdown(units, in.ConsumerType)
	if err != nil {
		return nil, err
	}
	slab, err := t.SlabFor(units, in.ConsumerType)
	if err != nil {
		return nil, err
	}
	daily := math.Round(units/daysPerMonth*100) / 100
	share := acShare(in)

	opps, err := savingsOpportunities(t, in.ConsumerType, units, bill.Amount, share, slab.Rate)
	if err != nil {
		return nil, err
	}

	return &Prediction{
		PredictedBill:  bill.Amount,
		EstimatedUnits: units,
		DailyUnits:     daily,
		TariffSlab: SlabInfo{
			Slab: slab.Label,
			Rate: slab.Rate,
			Type: in.ConsumerType,
		},
		Bill:                 bill,
		OptimizationTips:     tips(in, units, share),
		SavingsOpportunities: opps,
		ModelConfidence:      confidence(in, units, daily),
		ModelName:            ModelName,
		InputSummary: map[string]any{
			"household_size":   in.HouseholdSize,
			"total_appliances": in.NumAppliances,
			"ac_units":         in.ACUnits,
			"region":           in.Region,
			"consumer_type":    in.ConsumerType,
		},
		Input:   in,
		ACShare: share,
	}, nil
}

// monthlyUnits estimates consumption from the appliance mix, unless the
// household reported a plausible previous month.
func monthlyUnits(in Input) float64 {
	if in.PreviousUnits >= minHistoryUnits && in.PreviousUnits <= maxHistoryUnits {
		return in.PreviousUnits
	}
	perDay := float64(in.ACUnits*10+in.FridgeCount*2+in.FanCount+5) * in.UsageHours / 8
	return perDay * daysPerMonth
}

// acShare is the AC percentage of connected load, capped at 80.
func acShare(in Input) decimal.Decimal {
	other := in.NumAppliances - in.ACUnits - in.FridgeCount - in.FanCount
	if other < 0 {
		other = 0
	}
	ac := int64(in.ACUnits * acWatts)
	total := ac + int64(in.FridgeCount*fridgeWatts+in.FanCount*fanWatts+other*otherWatts)
	if total == 0 {
		return decimal.Zero
	}
	pct := decimal.NewFromInt(ac).Shift(2).Div(decimal.NewFromInt(total))
	return decimal.Min(pct, decimal.NewFromInt(80)).Round(1)
}

func tips(in Input, units float64, share decimal.Decimal) []string {
	var out []string
	switch {
	case units > 700:
		out = append(out,
			"Very high usage: you are in the top slab. Cut AC hours and shift heavy loads off-peak",
			"Consider an energy audit to find the largest consumers")
	case units > 300:
		out = append(out,
			"High usage: bring consumption below 300 units to drop a slab",
			"Set the AC to 24°C and clean its filters monthly")
	case units > 200:
		out = append(out,
			"Moderate usage: a small reduction keeps you under 200 units",
			"Switch remaining bulbs to LED")
	default:
		out = append(out, "Efficient usage: keep up the current habits")
	}

	if share.GreaterThan(decimal.NewFromInt(50)) {
		out = append(out, fmt.Sprintf("AC accounts for about %s%% of your load. Use timers and inverter units", share.String()))
	} else if share.GreaterThan(decimal.NewFromInt(30)) {
		out = append(out, "AC is a major load. Raise the thermostat by a degree or two")
	}

	// Peak demand relative to the average day.
	if 1.2+float64(in.ACUnits)*0.3 > 2 {
		out = append(out, "Several ACs push evening peak demand. Stagger their use between 6 and 10 PM")
	}

	return append(out,
		"Unplug chargers and idle electronics to remove phantom load",
		"Run washing machines and irons outside peak hours")
}

// savingsOpportunities prices slab reductions against the tariff table and the
// AC optimization at the current marginal rate.
func savingsOpportunities(t tariff.Table, c tariff.Category, units float64, amount int64, share, rate decimal.Decimal) ([]string, error) {
	var out []string
	for _, limit := range []float64{200, 300} {
		if units <= limit {
			continue
		}
		at, err := t.ComputeBill(limit, c)
		if err != nil {
			return nil, err
		}
		out = append(out, fmt.Sprintf("Reduce to %.0f units: Save Rs. %d/month", limit, amount-at))
	}
	if share.GreaterThan(decimal.NewFromInt(30)) {
		saving := decimal.NewFromFloat(units).Mul(decimal.RequireFromString("0.15")).Mul(rate).Round(0).IntPart()
		out = append(out, fmt.Sprintf("Optimize AC usage: Save Rs. %d/month", saving))
	}
	return out, nil
}

const maxConfidence = 0.9

func confidence(in Input, units, daily float64) float64 {
	c := decimal.RequireFromString("0.7")
	if units >= 100 && units <= 1000 {
		c = c.Add(decimal.RequireFromString("0.15"))
	}
	if in.ACUnits > 0 {
		c = c.Add(decimal.RequireFromString("0.1"))
	}
	if daily > 5 {
		c = c.Add(decimal.RequireFromString("0.05"))
	}
	return decimal.Min(c, decimal.NewFromFloat(maxConfidence)).InexactFloat64()
}
