package analytics

import (
	"context"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

// GrossSales composes the gross sales detail.
func GrossSales(ctx context.Context, s *Snapshot, p Policy) (*models.GrossSalesDetails, error) {
	metric := models.MetricGrossSales
	rankings, err := s.rankAll(ctx, metric, detailDimensions, SortDeltaDesc)
	if err != nil {
		return nil, err
	}

	out := &models.GrossSalesDetails{
		MetricDetails: s.header(metric, p, DimensionManager.Field()),
		Orders:        countComparison(s.CurrentTotals.Orders(), s.PreviousTotals.Orders(), s.HasPrevious),
		Drivers:       s.driverBlocks(rankings, detailDimensions, p.driverLimit()),
		Concentration: rankings[DimensionProduct].Concentration(),
	}

	values := s.Series.Values(metric)
	if sig, ok := PeakSignal(metric, values, out.TopBuckets); ok {
		out.Signals = append(out.Signals, sig)
	}
	if spike, ok := DetectSpike(values); ok {
		out.Signals = append(out.Signals, SpikeSignal(metric, spike))
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
