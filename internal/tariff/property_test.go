package tariff

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

// TestBillMonotonic verifies the bill never decreases as consumption grows.
// Property: u1 <= u2 => bill(u1) <= bill(u2)
func TestBillMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)
	tbl := DefaultTable()

	properties.Property("bill is non-decreasing in units", prop.ForAll(
		func(a, b float64, ci int) bool {
			c := Categories()[ci]
			if a > b {
				a, b = b, a
			}
			lo, err1 := tbl.ComputeBill(a, c)
			hi, err2 := tbl.ComputeBill(b, c)
			return err1 == nil && err2 == nil && lo <= hi
		},
		gen.Float64Range(0, 5000),
		gen.Float64Range(0, 5000),
		gen.IntRange(0, len(Categories())-1),
	))

	properties.TestingRun(t)
}

// TestBillMatchesBreakdown verifies the rounded total agrees with the band sum.
// Property: ComputeBill(u) == round(sum(line.Cost))
func TestBillMatchesBreakdown(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)
	tbl := DefaultTable()

	properties.Property("amount equals rounded sum of lines", prop.ForAll(
		func(u float64, ci int) bool {
			c := Categories()[ci]
			b, err := tbl.Breakdown(u, c)
			if err != nil {
				return false
			}
			total := decimal.Zero
			for _, l := range b.Lines {
				total = total.Add(l.Cost)
			}
			return total.Equal(b.Total) && total.Round(0).IntPart() == b.Amount
		},
		gen.Float64Range(0, 10000),
		gen.IntRange(0, len(Categories())-1),
	))

	properties.Property("zero units bill zero", prop.ForAll(
		func(ci int) bool {
			got, err := tbl.ComputeBill(0, Categories()[ci])
			return err == nil && got == 0
		},
		gen.IntRange(0, len(Categories())-1),
	))

	properties.TestingRun(t)
}
