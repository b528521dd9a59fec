package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

// MetricLabel is the display name of a metric.
func MetricLabel(m models.MetricKey) string {
	switch m {
	case models.MetricGrossSales:
		return "Gross Sales"
	case models.MetricRefunds:
		return "Refunds"
	case models.MetricNetRevenue:
		return "Net Revenue"
	case models.MetricFeesTotal:
		return "Fees Total"
	case models.MetricOrders:
		return "Orders"
	}
	return string(m)
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func percent(f float64) string { return fmt.Sprintf("%.1f%%", f*100) }

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// PeakBuckets returns up to n bucket keys with the highest values, negative
// ones included. Gap-filled buckets without rows are skipped. Equal values are
// ordered most recent first.
func PeakBuckets(values []BucketValue, n int) []string {
	type ranked struct {
		BucketValue
		pos int
	}
	cand := make([]ranked, 0, len(values))
	for i, v := range values {
		if v.Rows > 0 {
			cand = append(cand, ranked{BucketValue: v, pos: i})
		}
	}
	sort.Slice(cand, func(i, j int) bool {
		if c := cand[i].Value.Cmp(cand[j].Value); c != 0 {
			return c > 0
		}
		return cand[i].pos > cand[j].pos
	})

	out := make([]string, 0, n)
	for i := 0; i < len(cand) && i < n; i++ {
		out = append(out, cand[i].Key)
	}
	return out
}

// PeakSignal reports the best bucket of the period.
func PeakSignal(metric models.MetricKey, values []BucketValue, peaks []string) (models.Signal, bool) {
	if len(peaks) == 0 {
		return models.Signal{}, false
	}
	var peak BucketValue
	for _, v := range values {
		if v.Key == peaks[0] {
			peak = v
			break
		}
	}
	label := MetricLabel(metric)
	return models.Signal{
		Type:    models.SignalPeakBucket,
		Title:   "Peak " + label,
		Message: fmt.Sprintf("%s peaked in %s at %s.", label, peak.Key, money(peak.Value)),
	}, true
}

// DetectSpike returns the largest bucket above mean+2σ or above 3×mean.
// It needs at least three buckets and a positive mean.
func DetectSpike(values []BucketValue) (BucketValue, bool) {
	if len(values) < 3 {
		return BucketValue{}, false
	}
	fs := make([]float64, len(values))
	for i, v := range values {
		fs[i] = toFloat(v.Value)
	}
	mean, std := meanStd(fs)
	if mean <= 0 {
		return BucketValue{}, false
	}

	best, found := -1, false
	for i, f := range fs {
		if f > mean+2*std || f > 3*mean {
			if !found || f > fs[best] {
				best, found = i, true
			}
		}
	}
	if !found {
		return BucketValue{}, false
	}
	return values[best], true
}

func SpikeSignal(metric models.MetricKey, spike BucketValue) models.Signal {
	return models.Signal{
		Type:     models.SignalMetricSpike,
		Title:    "Anomaly spike",
		Message:  fmt.Sprintf("Unusual spike of %s in %s: %s.", MetricLabel(metric), spike.Key, money(spike.Value)),
		Severity: models.SeverityWarn,
	}
}

// ZeroActivity flags a worst day without revenue or orders, which usually
// points at missing data rather than a real standstill.
func ZeroActivity(day string, net decimal.Decimal, orders int64) (models.Signal, bool) {
	if net.IsPositive() && orders > 0 {
		return models.Signal{}, false
	}
	reason := "no orders"
	if !net.IsPositive() {
		reason = "net revenue " + money(net)
	}
	return models.Signal{
		Type:    models.SignalZeroActivityDay,
		Title:   "Zero-activity day",
		Message: fmt.Sprintf("%s had %s. Check whether data for that day is complete.", day, reason),
	}, true
}

// ConcentrationRisk fires when the top entity's share exceeds threshold.
func ConcentrationRisk(metric models.MetricKey, dim Dimension, c models.Concentration, threshold float64) (models.Signal, bool) {
	if c.Top1Name == nil || c.Top1Share <= threshold {
		return models.Signal{}, false
	}
	return models.Signal{
		Type:  models.SignalConcentrationRisk,
		Title: "High concentration",
		Message: fmt.Sprintf("%s %q accounts for %s of %s.",
			capitalize(dim.Label()), *c.Top1Name, percent(c.Top1Share), MetricLabel(metric)),
		Severity: models.SeverityWarn,
	}, true
}

// RefundRateGrowth fires when the refund rate grew by at least thresholdPP
// percentage points.
func RefundRateGrowth(pp decimal.Decimal, ok bool, thresholdPP float64) (models.Signal, bool) {
	if !ok || pp.LessThan(decimal.NewFromFloat(thresholdPP)) {
		return models.Signal{}, false
	}
	return models.Signal{
		Type:    models.SignalRefundRateGrowth,
		Title:   "Refund rate growth",
		Message: fmt.Sprintf("Refund rate grew by %s pp.", pp.StringFixed(1)),
	}, true
}

// RefundsAteGrowth fires when sales grew but net revenue did not.
func RefundsAteGrowth(gross, net Comparison) (models.Signal, bool) {
	if !gross.HasPrevious || !gross.Delta().IsPositive() || net.Delta().IsPositive() {
		return models.Signal{}, false
	}
	return models.Signal{
		Type:     models.SignalRefundsAteGrowth,
		Title:    "Refunds ate growth",
		Message:  "Gross sales grew but net revenue did not: refunds absorbed the growth.",
		Severity: models.SeverityWarn,
	}, true
}

// FeeAnomalies returns the buckets whose fees deviate from the mean of the
// non-empty buckets by more than two standard deviations.
func FeeAnomalies(values []BucketValue) []string {
	nonZero := make([]float64, 0, len(values))
	for _, v := range values {
		if !v.Value.IsZero() {
			nonZero = append(nonZero, toFloat(v.Value))
		}
	}
	out := []string{}
	if len(nonZero) < 4 {
		return out
	}
	mean, std := meanStd(nonZero)
	if std == 0 {
		return out
	}
	for _, v := range values {
		if math.Abs(toFloat(v.Value)-mean) > 2*std {
			out = append(out, v.Key)
		}
	}
	return out
}

func FeeAnomalySignal(buckets []string) (models.Signal, bool) {
	if len(buckets) == 0 {
		return models.Signal{}, false
	}
	return models.Signal{
		Type:     models.SignalFeeAnomaly,
		Title:    "Fee anomaly",
		Message:  "Fees deviate sharply from the usual level in " + strings.Join(buckets, ", ") + ".",
		Severity: models.SeverityWarn,
	}, true
}

// FeeShareGrowth fires when fees take a larger share of sales than before.
func FeeShareGrowth(current, previous Rate, hasPrevious bool) (models.Signal, bool) {
	if !hasPrevious || !current.OK || !previous.OK || !current.Value.GreaterThan(previous.Value) {
		return models.Signal{}, false
	}
	return models.Signal{
		Type:    models.SignalFeeShareGrowth,
		Title:   "Fees outpace revenue",
		Message: fmt.Sprintf("Fee share grew to %s of gross sales.", percent(toFloat(current.Value))),
	}, true
}

// FeesOnRefunds fires when fees paid on refund rows reach threshold of all fees.
func FeesOnRefunds(t Totals, threshold float64) (models.Signal, bool) {
	if t.RefundRows == 0 || !t.Fees().IsPositive() {
		return models.Signal{}, false
	}
	s := share(t.RefundFees, t.Fees())
	if s < threshold {
		return models.Signal{}, false
	}
	return models.Signal{
		Type:    models.SignalFeesOnRefunds,
		Title:   "Fees on refunds",
		Message: fmt.Sprintf("Fees on refunds are %s of all fees.", percent(s)),
	}, true
}

func PrimaryDriverSignal(metric models.MetricKey, dim Dimension, d Driver) models.Signal {
	verb := "grew"
	if d.Delta().IsNegative() {
		verb = "fell"
	}
	return models.Signal{
		Type:  models.SignalPrimaryDriver,
		Title: "Primary driver",
		Message: fmt.Sprintf("%s %q %s by %s and drove the change in %s.",
			capitalize(dim.Label()), d.Name, verb, money(d.Delta().Abs()), MetricLabel(metric)),
	}
}

// NetRevenueChange summarizes the overall change of net revenue.
func NetRevenueChange(c Comparison) (models.Signal, bool) {
	if !c.HasPrevious {
		return models.Signal{}, false
	}
	msg := fmt.Sprintf("Net Revenue changed by %s", money(c.Delta()))
	if pct := ratio(c.Delta(), c.Previous); pct != nil {
		msg += fmt.Sprintf(" (%+.1f%%)", *pct*100)
	}
	return models.Signal{
		Type:    models.SignalNetRevenueChange,
		Title:   "Net Revenue change",
		Message: msg + ".",
	}, true
}

func RefundImpactSignal(rate Rate) (models.Signal, bool) {
	if !rate.OK {
		return models.Signal{}, false
	}
	return models.Signal{
		Type:    models.SignalRefundImpact,
		Title:   "Refund impact",
		Message: fmt.Sprintf("Refunds are %s of gross sales.", percent(toFloat(rate.Value))),
	}, true
}
