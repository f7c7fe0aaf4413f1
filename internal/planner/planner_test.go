package planner

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bher20/billoptimizer/internal/tariff"
)

func TestNewPlan(t *testing.T) {
	p, err := NewPlan(tariff.DefaultTable(), 350, 250, tariff.General)
	require.NoError(t, err)

	assert.Equal(t, 100.0, p.Difference)
	assert.Equal(t, 71, p.Progress)
	assert.Equal(t, "32.03", p.MarginalRate.StringFixed(2))
	assert.Equal(t, int64(3203), p.PotentialSavings)
	assert.Equal(t, int64(38436), p.AnnualSavings)
	assert.Equal(t, int64(8211), p.CurrentBill)
	assert.Equal(t, int64(5276), p.TargetBill)
	assert.Contains(t, p.Tips[0], "MODERATE REDUCTION")
}

func TestNewPlan_GoalAchieved(t *testing.T) {
	p, err := NewPlan(tariff.DefaultTable(), 200, 250, tariff.Protected)
	require.NoError(t, err)
	assert.Equal(t, -50.0, p.Difference)
	assert.Equal(t, 100, p.Progress)
	assert.Zero(t, p.PotentialSavings)
	assert.Zero(t, p.AnnualSavings)
	assert.Contains(t, p.Tips[0], "GOAL ACHIEVED")
}

func TestNewPlan_ZeroConsumption(t *testing.T) {
	p, err := NewPlan(tariff.DefaultTable(), 0, 0, tariff.Lifeline)
	require.NoError(t, err)
	assert.Equal(t, 100, p.Progress)
	assert.Zero(t, p.PotentialSavings)
}

func TestNewPlan_TipLevels(t *testing.T) {
	tests := []struct {
		current, target float64
		prefix          string
	}{
		{600, 300, "MAJOR REDUCTION"},
		{400, 250, "SIGNIFICANT REDUCTION"},
		{300, 240, "MODERATE REDUCTION"},
		{300, 290, "ALMOST THERE"},
	}
	for _, tt := range tests {
		p, err := NewPlan(tariff.DefaultTable(), tt.current, tt.target, tariff.General)
		require.NoError(t, err)
		assert.Contains(t, p.Tips[0], tt.prefix, "%v -> %v", tt.current, tt.target)
		assert.Contains(t, p.Tips[len(p.Tips)-1], "INSULATION")
	}
}

func TestNewPlan_Errors(t *testing.T) {
	_, err := NewPlan(tariff.DefaultTable(), -1, 100, tariff.General)
	assert.ErrorIs(t, err, tariff.ErrInvalidInput)

	_, err = NewPlan(tariff.DefaultTable(), 100, -1, tariff.General)
	assert.ErrorIs(t, err, tariff.ErrInvalidInput)

	_, err = NewPlan(tariff.DefaultTable(), 100, 50, tariff.Category("Industrial"))
	assert.ErrorIs(t, err, tariff.ErrInvalidCategory)

	_, err = NewPlan(tariff.DefaultTable(), 1e18, 100, tariff.General)
	assert.ErrorIs(t, err, tariff.ErrInvalidInput)

	_, err = SavingsBreakdown(1e300, []string{"led_lights"})
	assert.ErrorIs(t, err, tariff.ErrInvalidInput)
}

func TestNewPlan_SavingsBeyondInt64(t *testing.T) {
	// Cheap up to the last unit, then a steep final band.
	steep := tariff.Table{tariff.General: {
		Category: tariff.General,
		Bands: []tariff.Band{
			{UpTo: tariff.MaxUnits - 1, Rate: decimal.Zero},
			{Rate: decimal.RequireFromString("1e12")},
		},
	}}
	_, err := NewPlan(steep, tariff.MaxUnits, 0, tariff.General)
	assert.ErrorIs(t, err, tariff.ErrInvalidInput)
}

func TestSavingsBreakdown(t *testing.T) {
	s, err := SavingsBreakdown(300, []string{"led_lights", "ac_temperature"})
	require.NoError(t, err)
	require.Len(t, s.Breakdown, 2)

	assert.Equal(t, MeasureSaving{
		Measure: "led_lights", Name: "LED Lights Upgrade",
		UnitsSaved: 24, MonthlySavings: 480, ReductionPercentage: 8,
	}, s.Breakdown[0])
	assert.Equal(t, int64(45), s.Breakdown[1].UnitsSaved)
	assert.Equal(t, int64(1125), s.Breakdown[1].MonthlySavings)
	assert.Equal(t, int64(15), s.Breakdown[1].ReductionPercentage)
	assert.Equal(t, int64(1605), s.TotalMonthlySavings)
	assert.Equal(t, int64(19260), s.AnnualSavings)
}

func TestSavingsBreakdown_Rounding(t *testing.T) {
	s, err := SavingsBreakdown(333, []string{"led_lights", "ac_temperature"})
	require.NoError(t, err)
	assert.Equal(t, int64(27), s.Breakdown[0].UnitsSaved)
	assert.Equal(t, int64(533), s.Breakdown[0].MonthlySavings)
	assert.Equal(t, int64(1249), s.Breakdown[1].MonthlySavings)
	assert.Equal(t, int64(1782), s.TotalMonthlySavings)
	assert.Equal(t, int64(21379), s.AnnualSavings)
}

func TestSavingsBreakdown_Errors(t *testing.T) {
	_, err := SavingsBreakdown(300, nil)
	assert.ErrorIs(t, err, tariff.ErrInvalidInput)

	_, err = SavingsBreakdown(300, []string{"solar_panels"})
	assert.ErrorIs(t, err, ErrUnknownMeasure)

	_, err = SavingsBreakdown(-10, []string{"led_lights"})
	assert.ErrorIs(t, err, tariff.ErrInvalidInput)
}

func TestMeasures(t *testing.T) {
	list := Measures()
	require.Len(t, list, 6)
	assert.Equal(t, "led_lights", list[0].ID)
	list[0].ID = "mutated"
	assert.Equal(t, "led_lights", Measures()[0].ID)
}
