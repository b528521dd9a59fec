package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

var hundred = decimal.NewFromInt(100)

// Comparison holds a metric for the current and previous period. When the
// previous period predates the project's history HasPrevious is false and
// every previous-side value renders as null.
type Comparison struct {
	Current     decimal.Decimal
	Previous    decimal.Decimal
	HasPrevious bool
}

func Compare(current, previous decimal.Decimal, hasPrevious bool) Comparison {
	if !hasPrevious {
		previous = decimal.Zero
	}
	return Comparison{Current: current, Previous: previous, HasPrevious: hasPrevious}
}

func (c Comparison) Delta() decimal.Decimal { return c.Current.Sub(c.Previous) }

// Change renders delta_abs and delta_pct; delta_pct is null when the previous
// value is zero.
func (c Comparison) Change() models.Change {
	if !c.HasPrevious {
		return models.Change{}
	}
	delta := c.Delta()
	return models.Change{
		DeltaAbs: decimalPtr(delta),
		DeltaPct: ratio(delta, c.Previous),
	}
}

// PeriodValues renders both sides with their date ranges.
func (c Comparison) PeriodValues(pair models.PeriodPair) (models.PeriodValue, models.PeriodValue) {
	cur := models.PeriodValue{
		Value: decimalPtr(c.Current),
		From:  pair.Current.FromDate(),
		To:    pair.Current.ToDate(),
	}
	prev := models.PeriodValue{
		From: pair.Previous.FromDate(),
		To:   pair.Previous.ToDate(),
	}
	if c.HasPrevious {
		prev.Value = decimalPtr(c.Previous)
	}
	return cur, prev
}

// Rate is a ratio that may be undefined.
type Rate struct {
	Value decimal.Decimal
	OK    bool
}

func (r Rate) ptr() *float64 {
	if !r.OK {
		return nil
	}
	return decimalPtr(r.Value)
}

func rateOf(v decimal.Decimal, ok bool) Rate { return Rate{Value: v, OK: ok} }

// compareRates renders two ratios with their difference in percentage points.
func compareRates(current, previous Rate, hasPrevious bool) models.RateComparison {
	out := models.RateComparison{Current: current.ptr()}
	if !hasPrevious {
		return out
	}
	out.Previous = previous.ptr()
	if current.OK && previous.OK {
		out.DeltaPP = decimalPtr(current.Value.Sub(previous.Value).Mul(hundred))
	}
	return out
}

// deltaPP returns the percentage-point change of two rates, if defined.
func deltaPP(current, previous Rate, hasPrevious bool) (decimal.Decimal, bool) {
	if !hasPrevious || !current.OK || !previous.OK {
		return decimal.Zero, false
	}
	return current.Value.Sub(previous.Value).Mul(hundred), true
}
