package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

// Totals accumulates the additive measures of a set of transactions.
// Money fields are exact; Orders is a distinct count and therefore is not
// additive across buckets or entities.
type Totals struct {
	Gross      decimal.Decimal
	Refunds    decimal.Decimal
	SaleFees   decimal.Decimal
	RefundFees decimal.Decimal
	Components [models.FeeComponents]decimal.Decimal
	SaleRows   int
	RefundRows int

	orders map[string]struct{}
}

// Add folds one transaction into the totals. Refund amounts are counted as
// positive magnitudes whatever sign the source carried.
func (t *Totals) Add(tx models.Transaction) {
	for i, f := range tx.Fees {
		if f.Valid {
			t.Components[i] = t.Components[i].Add(f.Decimal)
		}
	}
	fee := tx.FeeTotal()

	switch {
	case tx.IsSale():
		t.Gross = t.Gross.Add(tx.Amount)
		t.SaleFees = t.SaleFees.Add(fee)
		t.SaleRows++
		if key := tx.OrderKey(); key != "" {
			if t.orders == nil {
				t.orders = make(map[string]struct{})
			}
			t.orders[key] = struct{}{}
		}
	case tx.IsRefund():
		t.Refunds = t.Refunds.Add(tx.Amount.Abs())
		t.RefundFees = t.RefundFees.Add(fee)
		t.RefundRows++
	}
}

// Summarize reduces rows into one Totals value.
func Summarize(rows []models.Transaction) Totals {
	var t Totals
	for _, tx := range rows {
		t.Add(tx)
	}
	return t
}

// Net is gross sales minus refunds; fees are not subtracted.
func (t Totals) Net() decimal.Decimal { return t.Gross.Sub(t.Refunds) }

// Fees sums every fee component on sale and refund rows.
func (t Totals) Fees() decimal.Decimal { return t.SaleFees.Add(t.RefundFees) }

func (t Totals) Orders() int64 { return int64(len(t.orders)) }

func (t Totals) Empty() bool { return t.SaleRows == 0 && t.RefundRows == 0 }

// Value returns the requested metric.
func (t Totals) Value(metric models.MetricKey) decimal.Decimal {
	switch metric {
	case models.MetricGrossSales:
		return t.Gross
	case models.MetricRefunds:
		return t.Refunds
	case models.MetricNetRevenue:
		return t.Net()
	case models.MetricFeesTotal:
		return t.Fees()
	case models.MetricOrders:
		return decimal.NewFromInt(t.Orders())
	default:
		return decimal.Zero
	}
}

// RefundRate is refunds over gross sales; ok is false when there are no sales.
func (t Totals) RefundRate() (decimal.Decimal, bool) { return divide(t.Refunds, t.Gross) }

// FeeShare is fees over gross sales; ok is false when there are no sales.
func (t Totals) FeeShare() (decimal.Decimal, bool) { return divide(t.Fees(), t.Gross) }

func (t Totals) breakdown() models.NetBreakdown {
	return models.NetBreakdown{
		GrossSales: toFloat(t.Gross),
		Refunds:    toFloat(t.Refunds),
		NetRevenue: toFloat(t.Net()),
	}
}
