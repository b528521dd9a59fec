package analytics

import (
	"context"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

// NetRevenue composes the net revenue detail: the gross/refunds/net split,
// refunds as a share of gross, drivers, per-product and per-method tables.
func NetRevenue(ctx context.Context, s *Snapshot, p Policy) (*models.NetRevenueDetails, error) {
	metric := models.MetricNetRevenue
	rankings, err := s.rankAll(ctx, metric, detailDimensions, SortDeltaDesc)
	if err != nil {
		return nil, err
	}

	out := &models.NetRevenueDetails{
		MetricDetails:  s.header(metric, p, DimensionPaymentMethod.Field()),
		Totals:         models.NetTotals{Current: s.CurrentTotals.breakdown()},
		Drivers:        s.driverBlocks(rankings, detailDimensions, p.driverLimit()),
		NetVsGross:     s.productNetRows(models.MetricGrossSales, p.driverLimit()),
		PaymentMethods: s.paymentMethodRows(),
	}
	if s.HasPrevious {
		prev := s.PreviousTotals.breakdown()
		out.Totals.Previous = &prev
	}

	curRate, prevRate := s.refundRates()
	out.RefundsShareOfGross = compareRates(curRate, prevRate, s.HasPrevious)

	out.Points = make([]models.NetSeriesPoint, 0, len(s.Series.Buckets))
	for _, b := range s.Series.Buckets {
		out.Points = append(out.Points, models.NetSeriesPoint{
			Bucket:     b.Key,
			GrossSales: toFloat(b.Totals.Gross),
			Refunds:    toFloat(b.Totals.Refunds),
			NetRevenue: toFloat(b.Totals.Net()),
		})
	}

	out.Signals = netSignals(s, p, out.TopBuckets, curRate, prevRate)

	c := NewComposer(p.InsightsLimit)
	for _, sig := range out.Signals {
		// the change line below says the same
		if sig.Type != models.SignalNetRevenueChange {
			c.AddSignal(sig)
		}
	}
	c.AddChange(metric, s.Compare(metric))
	addPrimary(c, metric, rankings, detailDimensions)
	c.AddConcentration(metric, DimensionProduct, rankings[DimensionProduct].Concentration())
	out.Insights = c.Insights()
	return out, nil
}

// netSignals evaluates the net revenue rules in a fixed order. When fewer
// than two rules fire, refund impact and the overall change fill in so the
// view always has something to say. The list is capped.
func netSignals(s *Snapshot, p Policy, peaks []string, curRate, prevRate Rate) []models.Signal {
	metric := models.MetricNetRevenue
	values := s.Series.Values(metric)
	net := s.Compare(metric)

	out := []models.Signal{}
	if sig, ok := PeakSignal(metric, values, peaks); ok {
		out = append(out, sig)
	}
	if sig, ok := RefundsAteGrowth(s.Compare(models.MetricGrossSales), net); ok {
		out = append(out, sig)
	}
	pp, ok := deltaPP(curRate, prevRate, s.HasPrevious)
	if sig, fired := RefundRateGrowth(pp, ok, p.RefundRateGrowthPP); fired {
		out = append(out, sig)
	}
	if spike, ok := DetectSpike(values); ok {
		out = append(out, SpikeSignal(metric, spike))
	}
	if len(out) < 2 {
		if sig, ok := RefundImpactSignal(curRate); ok {
			out = append(out, sig)
		}
	}
	if len(out) < 2 {
		if sig, ok := NetRevenueChange(net); ok {
			out = append(out, sig)
		}
	}
	if p.NetSignalsLimit > 0 && len(out) > p.NetSignalsLimit {
		out = out[:p.NetSignalsLimit]
	}
	return out
}
