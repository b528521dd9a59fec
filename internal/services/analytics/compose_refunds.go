package analytics

import (
	"context"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

// Refunds composes the refunds detail.
func Refunds(ctx context.Context, s *Snapshot, p Policy) (*models.RefundsDetails, error) {
	metric := models.MetricRefunds
	rankings, err := s.rankAll(ctx, metric, detailDimensions, SortDeltaDesc)
	if err != nil {
		return nil, err
	}

	curRate, prevRate := s.refundRates()
	out := &models.RefundsDetails{
		MetricDetails:  s.header(metric, p, DimensionPaymentMethod.Field()),
		RefundRate:     compareRates(curRate, prevRate, s.HasPrevious),
		SalesVsRefunds: s.productNetRows(models.MetricRefunds, p.SalesVsRefundsLimit),
		Drivers:        s.driverBlocks(rankings, detailDimensions, p.driverLimit()),
		Concentration:  rankings[DimensionProduct].Concentration(),
		PaymentMethods: s.paymentMethodRows(),
	}

	out.Points = make([]models.RefundSeriesPoint, 0, len(s.Series.Buckets))
	for _, b := range s.Series.Buckets {
		rate, ok := b.Totals.RefundRate()
		out.Points = append(out.Points, models.RefundSeriesPoint{
			Bucket:     b.Key,
			Refunds:    toFloat(b.Totals.Refunds),
			RefundRate: rateOf(rate, ok).ptr(),
		})
	}

	values := s.Series.Values(metric)
	if sig, ok := PeakSignal(metric, values, out.TopBuckets); ok {
		out.Signals = append(out.Signals, sig)
	}
	if spike, ok := DetectSpike(values); ok {
		out.Signals = append(out.Signals, SpikeSignal(metric, spike))
	}
	pp, ok := deltaPP(curRate, prevRate, s.HasPrevious)
	if sig, fired := RefundRateGrowth(pp, ok, p.RefundRateGrowthPP); fired {
		out.Signals = append(out.Signals, sig)
	}
	if sig, ok := ConcentrationRisk(metric, DimensionProduct, out.Concentration, p.threshold(metric)); ok {
		out.Signals = append(out.Signals, sig)
	}

	c := NewComposer(p.InsightsLimit)
	c.AddSignals(out.Signals)
	c.AddChange(metric, s.Compare(metric))
	addPrimary(c, metric, rankings, detailDimensions)
	c.AddConcentration(metric, DimensionProduct, out.Concentration)
	out.Insights = c.Insights()
	return out, nil
}
