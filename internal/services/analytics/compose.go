package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

// header fills the parts every metric detail shares. optional lists the
// fields whose absence makes the metric partial.
func (s *Snapshot) header(metric models.MetricKey, p Policy, optional ...string) models.MetricDetails {
	cmp := s.Compare(metric)
	cur, prev := cmp.PeriodValues(s.Pair)
	return models.MetricDetails{
		Metric:       metric,
		Granularity:  s.Pair.Granularity,
		Current:      cur,
		Previous:     prev,
		Change:       cmp.Change(),
		Series:       s.Series.Points(metric),
		TopBuckets:   PeakBuckets(s.Series.Values(metric), p.PeakBuckets),
		Signals:      []models.Signal{},
		Insights:     []models.Insight{},
		Availability: MetricAvailability(s.Presence, optional...),
	}
}

// driverBlocks renders one tab per dimension, keyed by the plural name.
func (s *Snapshot) driverBlocks(rankings map[Dimension]Ranking, dims []Dimension, limit int) map[string]models.DimensionDrivers {
	out := make(map[string]models.DimensionDrivers, len(dims))
	for _, d := range dims {
		r := rankings[d]
		up, down := r.Split(limit)
		out[d.Plural()] = models.DimensionDrivers{
			Top:          r.Top(limit),
			Up:           up,
			Down:         down,
			Availability: s.DimensionAvailability(d),
		}
	}
	return out
}

// addPrimary adds the largest driver of change across dims to c.
func addPrimary(c *Composer, metric models.MetricKey, rankings map[Dimension]Ranking, dims []Dimension) {
	if dim, d, ok := PrimaryAcross(rankings, dims); ok {
		c.AddPrimaryDriver(metric, dim, d)
	}
}

func countComparison(current, previous int64, hasPrevious bool) models.CountComparison {
	out := models.CountComparison{Current: current}
	if !hasPrevious {
		return out
	}
	prev := previous
	out.Previous = &prev
	out.Change = Compare(decimal.NewFromInt(current), decimal.NewFromInt(previous), true).Change()
	return out
}

// entityRows groups the current period by dimension, NoValue included.
type entityRow struct {
	Name   string
	Totals *Totals
}

func (s *Snapshot) entityRows(d Dimension) []entityRow {
	groups := groupTotals(s.Current, d)
	out := make([]entityRow, 0, len(groups))
	for name, t := range groups {
		out = append(out, entityRow{Name: name, Totals: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// productNetRows compares sales and refunds per product, largest first by
// the order metric.
func (s *Snapshot) productNetRows(order models.MetricKey, limit int) []models.ProductNetRow {
	out := []models.ProductNetRow{}
	if !s.Presence[DimensionProduct.Field()] {
		return out
	}
	rows := s.entityRows(DimensionProduct)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Totals.Value(order).GreaterThan(rows[j].Totals.Value(order))
	})
	for _, r := range rows {
		if r.Name == NoValue {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		rate, ok := r.Totals.RefundRate()
		out = append(out, models.ProductNetRow{
			Name:       r.Name,
			GrossSales: toFloat(r.Totals.Gross),
			Refunds:    toFloat(r.Totals.Refunds),
			NetRevenue: toFloat(r.Totals.Net()),
			RefundRate: rateOf(rate, ok).ptr(),
		})
	}
	return out
}

// paymentMethodRows breaks the current period down by payment method. Share
// is the method's part of gross sales; rows without a method are included so
// the breakdown adds up to the totals.
func (s *Snapshot) paymentMethodRows() []models.PaymentMethodRow {
	out := []models.PaymentMethodRow{}
	if !s.Presence[DimensionPaymentMethod.Field()] {
		return out
	}
	rows := s.entityRows(DimensionPaymentMethod)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Totals.Gross.GreaterThan(rows[j].Totals.Gross)
	})
	for _, r := range rows {
		rate, ok := r.Totals.RefundRate()
		out = append(out, models.PaymentMethodRow{
			Name:       r.Name,
			GrossSales: toFloat(r.Totals.Gross),
			Refunds:    toFloat(r.Totals.Refunds),
			NetRevenue: toFloat(r.Totals.Net()),
			Fees:       toFloat(r.Totals.Fees()),
			Share:      share(r.Totals.Gross, s.CurrentTotals.Gross),
			RefundRate: rateOf(rate, ok).ptr(),
		})
	}
	return out
}

func (s *Snapshot) refundRates() (Rate, Rate) {
	cur, curOK := s.CurrentTotals.RefundRate()
	prev, prevOK := s.PreviousTotals.RefundRate()
	return rateOf(cur, curOK), rateOf(prev, prevOK)
}

func (s *Snapshot) feeShares() (Rate, Rate) {
	cur, curOK := s.CurrentTotals.FeeShare()
	prev, prevOK := s.PreviousTotals.FeeShare()
	return rateOf(cur, curOK), rateOf(prev, prevOK)
}
