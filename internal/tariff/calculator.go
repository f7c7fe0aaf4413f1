package tariff

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Table maps each category to its schedule.
type Table map[Category]Schedule

// Line is the share of a bill falling into one band.
type Line struct {
	Label string          `json:"label"`
	From  float64         `json:"from"`
	To    float64         `json:"to"`
	Units decimal.Decimal `json:"units"`
	Rate  decimal.Decimal `json:"rate"`
	Cost  decimal.Decimal `json:"cost"`
}

// Bill is the per-band decomposition of a monthly charge. Amount is Total
// rounded to the nearest whole currency unit.
type Bill struct {
	Category Category        `json:"category"`
	Units    float64         `json:"units"`
	Lines    []Line          `json:"lines"`
	Total    decimal.Decimal `json:"total"`
	Amount   int64           `json:"amount"`
}

// Slab identifies the band in which the last consumed unit falls.
type Slab struct {
	Category Category        `json:"category"`
	Index    int             `json:"index"`
	Label    string          `json:"label"`
	Rate     decimal.Decimal `json:"rate"`
}

// Schedule returns the schedule for c. Commercial consumers are billed on the
// General schedule unless the table defines its own.
func (t Table) Schedule(c Category) (Schedule, error) {
	if !c.Valid() {
		return Schedule{}, fmt.Errorf("%w: %q", ErrInvalidCategory, string(c))
	}
	if s, ok := t[c]; ok {
		return s, nil
	}
	if c == Commercial {
		if s, ok := t[General]; ok {
			s.Category = Commercial
			return s, nil
		}
	}
	return Schedule{}, fmt.Errorf("%w: no schedule for %s", ErrInvalidCategory, c)
}

// Validate checks every schedule in the table.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: empty table", ErrInvalidSchedule)
	}
	for c, s := range t {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidCategory, string(c))
		}
		if s.Category == "" {
			s.Category = c
		}
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Categories returns the categories the table can bill, in display order.
func (t Table) Categories() []Category {
	var out []Category
	for _, c := range Categories() {
		if _, err := t.Schedule(c); err == nil {
			out = append(out, c)
		}
	}
	return out
}

// ComputeBill returns the rounded bill for units consumed under category c.
func (t Table) ComputeBill(units float64, c Category) (int64, error) {
	b, err := t.Breakdown(units, c)
	if err != nil {
		return 0, err
	}
	return b.Amount, nil
}

// Breakdown returns the full per-band bill for units consumed under category c.
func (t Table) Breakdown(units float64, c Category) (*Bill, error) {
	if err := checkUnits(units); err != nil {
		return nil, err
	}
	s, err := t.Schedule(c)
	if err != nil {
		return nil, err
	}
	lines, total := s.walk(decimal.NewFromFloat(units))
	if total.GreaterThan(maxAmount) {
		return nil, fmt.Errorf("%w: bill for %v units exceeds the largest payable amount", ErrInvalidInput, units)
	}
	return &Bill{
		Category: c,
		Units:    units,
		Lines:    lines,
		Total:    total,
		Amount:   total.Round(0).IntPart(),
	}, nil
}

// SlabFor returns the band in which the last of units falls. Zero units
// resolve to the first band.
func (t Table) SlabFor(units float64, c Category) (Slab, error) {
	if err := checkUnits(units); err != nil {
		return Slab{}, err
	}
	s, err := t.Schedule(c)
	if err != nil {
		return Slab{}, err
	}
	i := s.bandIndex(units)
	return Slab{Category: c, Index: i, Label: s.Label(i), Rate: s.Bands[i].Rate}, nil
}

// MarginalRate is the per-unit rate charged on the last of units.
func (t Table) MarginalRate(units float64, c Category) (decimal.Decimal, error) {
	slab, err := t.SlabFor(units, c)
	if err != nil {
		return decimal.Zero, err
	}
	return slab.Rate, nil
}

// ComputeBill bills units against the default table.
func ComputeBill(units float64, c Category) (int64, error) {
	return DefaultTable().ComputeBill(units, c)
}

// MaxUnits is the largest monthly consumption accepted for billing.
const MaxUnits = 1e9

var maxAmount = decimal.NewFromInt(math.MaxInt64)

func checkUnits(units float64) error {
	if math.IsNaN(units) || math.IsInf(units, 0) {
		return fmt.Errorf("%w: units must be a finite number", ErrInvalidInput)
	}
	if units < 0 {
		return fmt.Errorf("%w: units must be non-negative, got %v", ErrInvalidInput, units)
	}
	if units > MaxUnits {
		return fmt.Errorf("%w: units must not exceed %v, got %v", ErrInvalidInput, float64(MaxUnits), units)
	}
	return nil
}
