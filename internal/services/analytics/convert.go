package analytics

import (
	"math"

	"github.com/shopspring/decimal"
)

// divisionPlaces bounds the scale of ratios computed in decimal.
const divisionPlaces = 12

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func floatPtr(f float64) *float64 { return &f }

func decimalPtr(d decimal.Decimal) *float64 { return floatPtr(toFloat(d)) }

// divide returns num/den and false when den is zero.
func divide(num, den decimal.Decimal) (decimal.Decimal, bool) {
	if den.IsZero() {
		return decimal.Zero, false
	}
	return num.DivRound(den, divisionPlaces), true
}

// ratio is divide rendered for responses: null on a zero denominator.
func ratio(num, den decimal.Decimal) *float64 {
	q, ok := divide(num, den)
	if !ok {
		return nil
	}
	return decimalPtr(q)
}

// share is a ratio that renders zero instead of null.
func share(num, den decimal.Decimal) float64 {
	q, ok := divide(num, den)
	if !ok {
		return 0
	}
	return toFloat(q)
}

func clampUnit(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}

// meanStd returns the mean and population standard deviation.
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}
