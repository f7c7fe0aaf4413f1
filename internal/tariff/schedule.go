package tariff

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Band is one slab of a schedule. UpTo is the inclusive upper bound in units;
// zero marks the final, unbounded band.
type Band struct {
	UpTo        float64         `json:"up_to" yaml:"up_to"`
	Rate        decimal.Decimal `json:"rate" yaml:"rate"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
}

// Unbounded reports whether the band has no upper bound.
func (b Band) Unbounded() bool { return b.UpTo == 0 }

// Schedule is the ordered band list for one category.
type Schedule struct {
	Category Category `json:"category" yaml:"category"`
	Bands    []Band   `json:"bands" yaml:"bands"`
}

// Validate checks that bands ascend, cover [0, ∞) and carry non-negative rates.
func (s Schedule) Validate() error {
	if len(s.Bands) == 0 {
		return fmt.Errorf("%w: %s has no bands", ErrInvalidSchedule, s.Category)
	}
	prev := 0.0
	for i, b := range s.Bands {
		last := i == len(s.Bands)-1
		if b.Rate.IsNegative() {
			return fmt.Errorf("%w: %s band %d has negative rate %s", ErrInvalidSchedule, s.Category, i+1, b.Rate)
		}
		if math.IsNaN(b.UpTo) || math.IsInf(b.UpTo, 0) {
			return fmt.Errorf("%w: %s band %d bound must be a finite number", ErrInvalidSchedule, s.Category, i+1)
		}
		if b.Unbounded() {
			if !last {
				return fmt.Errorf("%w: %s band %d is unbounded but not last", ErrInvalidSchedule, s.Category, i+1)
			}
			continue
		}
		if last {
			return fmt.Errorf("%w: %s last band must be unbounded", ErrInvalidSchedule, s.Category)
		}
		if b.UpTo <= prev {
			return fmt.Errorf("%w: %s band %d bound %v not above %v", ErrInvalidSchedule, s.Category, i+1, b.UpTo, prev)
		}
		prev = b.UpTo
	}
	return nil
}

// lowerBound returns the exclusive lower bound of band i.
func (s Schedule) lowerBound(i int) float64 {
	if i == 0 {
		return 0
	}
	return s.Bands[i-1].UpTo
}

// bandIndex returns the index of the band holding the last consumed unit.
func (s Schedule) bandIndex(units float64) int {
	for i, b := range s.Bands {
		if b.Unbounded() || units <= b.UpTo {
			return i
		}
	}
	return len(s.Bands) - 1
}

// Label formats band i the way bills print it: "101-200 units", "701+ units".
func (s Schedule) Label(i int) string {
	lower := formatUnits(s.lowerBound(i) + 1)
	b := s.Bands[i]
	if b.Unbounded() {
		return lower + "+ units"
	}
	return lower + "-" + formatUnits(b.UpTo) + " units"
}

// RangeLabel formats band i for tariff listings: "1-100 units", "Above 700 units".
func (s Schedule) RangeLabel(i int) string {
	if s.Bands[i].Unbounded() {
		return "Above " + formatUnits(s.lowerBound(i)) + " units"
	}
	return s.Label(i)
}

// walk consumes units band by band in ascending order.
func (s Schedule) walk(units decimal.Decimal) ([]Line, decimal.Decimal) {
	var (
		lines     []Line
		total     = decimal.Zero
		remaining = units
	)
	for i, b := range s.Bands {
		if !remaining.IsPositive() {
			break
		}
		lower := s.lowerBound(i)
		take := remaining
		if !b.Unbounded() {
			width := decimal.NewFromFloat(b.UpTo).Sub(decimal.NewFromFloat(lower))
			take = decimal.Min(remaining, width)
		}
		cost := take.Mul(b.Rate)
		lines = append(lines, Line{
			Label: s.Label(i),
			From:  lower,
			To:    b.UpTo,
			Units: take,
			Rate:  b.Rate,
			Cost:  cost,
		})
		total = total.Add(cost)
		remaining = remaining.Sub(take)
	}
	return lines, total
}

func formatUnits(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
