package analytics

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

var feeDimensions = []Dimension{DimensionProduct, DimensionPaymentMethod, DimensionManager}

// FeesTotal composes the fees detail. Fee share is measured against gross
// sales, the same denominator as the refund rate.
func FeesTotal(ctx context.Context, s *Snapshot, p Policy) (*models.FeesDetails, error) {
	metric := models.MetricFeesTotal
	rankings, err := s.rankAll(ctx, metric, feeDimensions, SortCurrentDesc)
	if err != nil {
		return nil, err
	}

	curShare, prevShare := s.feeShares()
	out := &models.FeesDetails{
		MetricDetails: s.header(metric, p),
		FeeShare:      compareRates(curShare, prevShare, s.HasPrevious),
		Components:    s.feeComponents(),
		Drivers:       s.driverBlocks(rankings, feeDimensions, p.driverLimit()),
		Efficiency:    feeEfficiency(s.CurrentTotals),
	}
	out.Availability = s.Availability(FieldFees)

	out.Points = make([]models.FeeSeriesPoint, 0, len(s.Series.Buckets))
	for _, b := range s.Series.Buckets {
		fs, ok := b.Totals.FeeShare()
		out.Points = append(out.Points, models.FeeSeriesPoint{
			Bucket:   b.Key,
			Fees:     toFloat(b.Totals.Fees()),
			FeeShare: rateOf(fs, ok).ptr(),
		})
	}

	anomalies := FeeAnomalies(s.Series.Values(metric))
	if sig, ok := FeeAnomalySignal(anomalies); ok {
		out.Signals = append(out.Signals, sig)
	}
	if sig, ok := FeeShareGrowth(curShare, prevShare, s.HasPrevious); ok {
		out.Signals = append(out.Signals, sig)
	}
	if sig, ok := s.paymentMethodShift(curShare, p.PaymentShiftDelta); ok {
		out.Signals = append(out.Signals, sig)
	}
	if sig, ok := FeesOnRefunds(s.CurrentTotals, p.FeesOnRefundsShare); ok {
		out.Signals = append(out.Signals, sig)
	}

	c := NewComposer(p.InsightsLimit)
	c.AddSignals(out.Signals)
	c.AddChange(metric, s.Compare(metric))
	addPrimary(c, metric, rankings, feeDimensions)
	out.Insights = c.Insights()
	return out, nil
}

// feeComponents lists the populated fee columns with their share of all fees.
func (s *Snapshot) feeComponents() []models.FeeComponentRow {
	out := []models.FeeComponentRow{}
	total := s.CurrentTotals.Fees()
	for i := 0; i < models.FeeComponents; i++ {
		if !s.Presence[FeeField(i)] {
			continue
		}
		row := models.FeeComponentRow{
			Key:     FeeField(i),
			Label:   fmt.Sprintf("Fee %d", i+1),
			Current: toFloat(s.CurrentTotals.Components[i]),
			Share:   share(s.CurrentTotals.Components[i], total),
		}
		if s.HasPrevious {
			row.Previous = decimalPtr(s.PreviousTotals.Components[i])
		}
		out = append(out, row)
	}
	return out
}

func feeEfficiency(t Totals) models.FeeEfficiency {
	fees := t.Fees()
	out := models.FeeEfficiency{
		FeePerOrder:   ratio(fees, decimal.NewFromInt(t.Orders())),
		FeePerRevenue: ratio(fees, t.Gross),
		FeesOnRefunds: toFloat(t.RefundFees),
	}
	if t.RefundRows > 0 {
		out.FeesOnRefundsShare = ratio(t.RefundFees, fees)
	}
	return out
}

// paymentMethodShift finds the method whose share of fees grew the most, by
// more than minDelta, while charging above the overall fee share.
func (s *Snapshot) paymentMethodShift(overall Rate, minDelta float64) (models.Signal, bool) {
	if !s.HasPrevious || !overall.OK || !s.Presence[DimensionPaymentMethod.Field()] {
		return models.Signal{}, false
	}
	curFees := s.CurrentTotals.Fees()
	prevFees := s.PreviousTotals.Fees()
	if !curFees.IsPositive() {
		return models.Signal{}, false
	}
	cur := groupTotals(s.Current, DimensionPaymentMethod)
	prev := groupTotals(s.Previous, DimensionPaymentMethod)

	var (
		bestName  string
		bestDelta decimal.Decimal
		found     bool
	)
	threshold := decimal.NewFromFloat(minDelta)
	for _, row := range s.entityRows(DimensionPaymentMethod) {
		if row.Name == NoValue {
			continue
		}
		shareNow, _ := divide(cur[row.Name].Fees(), curFees)
		shareBefore := decimal.Zero
		if p, ok := prev[row.Name]; ok {
			shareBefore, _ = divide(p.Fees(), prevFees)
		}
		delta := shareNow.Sub(shareBefore)
		methodShare, ok := cur[row.Name].FeeShare()
		if !ok || !delta.GreaterThan(threshold) || !methodShare.GreaterThan(overall.Value) {
			continue
		}
		if !found || delta.GreaterThan(bestDelta) {
			bestName, bestDelta, found = row.Name, delta, true
		}
	}
	if !found {
		return models.Signal{}, false
	}
	return models.Signal{
		Type:  models.SignalPaymentMethodShift,
		Title: "Payment method shift",
		Message: fmt.Sprintf("A shift towards %q raises fees: its share of fees grew by %s.",
			bestName, percent(toFloat(bestDelta))),
	}, true
}
