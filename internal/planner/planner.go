package planner

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/bher20/billoptimizer/internal/tariff"
)

// Plan compares current consumption with a monthly target.
type Plan struct {
	Category         tariff.Category `json:"category"`
	CurrentUnits     float64         `json:"current_units"`
	TargetUnits      float64         `json:"target_units"`
	Difference       float64         `json:"difference"`
	Progress         int             `json:"progress"`
	MarginalRate     decimal.Decimal `json:"marginal_rate"`
	PotentialSavings int64           `json:"potential_savings"`
	AnnualSavings    int64           `json:"annual_savings"`
	CurrentBill      int64           `json:"current_bill"`
	TargetBill       int64           `json:"target_bill"`
	Tips             []string        `json:"tips"`
}

// NewPlan builds a plan for moving from current to target units under c.
// Potential savings price the reduction at the marginal rate of the current
// slab; CurrentBill and TargetBill give the exact tariff figures.
func NewPlan(t tariff.Table, current, target float64, c tariff.Category) (*Plan, error) {
	if err := checkUnits("current", current); err != nil {
		return nil, err
	}
	if err := checkUnits("target", target); err != nil {
		return nil, err
	}
	rate, err := t.MarginalRate(current, c)
	if err != nil {
		return nil, err
	}
	currentBill, err := t.ComputeBill(current, c)
	if err != nil {
		return nil, err
	}
	targetBill, err := t.ComputeBill(target, c)
	if err != nil {
		return nil, err
	}

	diff := current - target
	p := &Plan{
		Category:     c,
		CurrentUnits: current,
		TargetUnits:  target,
		Difference:   diff,
		Progress:     progress(current, target),
		MarginalRate: rate,
		CurrentBill:  currentBill,
		TargetBill:   targetBill,
		Tips:         planTips(diff),
	}
	if diff > 0 {
		monthly := decimal.NewFromFloat(diff).Mul(rate).Round(0)
		annual := monthly.Mul(decimal.NewFromInt(12))
		if annual.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
			return nil, fmt.Errorf("%w: savings for %v units exceed the largest payable amount", tariff.ErrInvalidInput, diff)
		}
		p.PotentialSavings = monthly.IntPart()
		p.AnnualSavings = annual.IntPart()
	}
	return p, nil
}

// progress is target as a percentage of current, capped at 100. With nothing
// consumed there is nothing left to reduce.
func progress(current, target float64) int {
	if current <= 0 {
		return 100
	}
	return int(math.Min(100, math.Round(target/current*100)))
}

func planTips(diff float64) []string {
	var tips []string
	switch {
	case diff > 200:
		tips = append(tips,
			"MAJOR REDUCTION NEEDED: Focus on high-consumption appliances like AC and water heaters",
			"URGENT: Replace all incandescent bulbs with LED lights - can save up to 80% on lighting",
			"CRITICAL: Optimize AC usage - set to 24°C, use timers, maintain filters")
	case diff > 100:
		tips = append(tips,
			"SIGNIFICANT REDUCTION: Focus on behavioral changes and appliance optimization",
			"Use fans instead of AC during moderate weather conditions",
			"Eliminate phantom load by unplugging electronic devices when not in use")
	case diff > 50:
		tips = append(tips,
			"MODERATE REDUCTION: Small adjustments can help you reach your goal",
			"Make the most of natural light during daytime hours",
			"Use washing machine with full loads and cold water settings")
	case diff > 0:
		tips = append(tips,
			"ALMOST THERE: You're close to your goal! Minor optimizations needed",
			"Continue monitoring your usage to maintain efficient patterns")
	default:
		tips = append(tips,
			"GOAL ACHIEVED: You're meeting your consumption goal",
			"Maintain these efficient usage patterns for continued savings")
	}
	return append(tips,
		"PATTERN: Similar households save 15-25% with systematic optimization",
		"TIMING: Use timers for water heaters and AC to optimize operation hours",
		"INSULATION: Ensure proper insulation to reduce cooling/heating needs")
}

func checkUnits(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: %s units must be a non-negative number", tariff.ErrInvalidInput, name)
	}
	if v > tariff.MaxUnits {
		return fmt.Errorf("%w: %s units must not exceed %v", tariff.ErrInvalidInput, name, float64(tariff.MaxUnits))
	}
	return nil
}
