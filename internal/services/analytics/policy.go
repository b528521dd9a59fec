package analytics

import "github.com/romkarus000/analytics-product/internal/domain/models"

// Policy holds the thresholds and list sizes applied when composing details.
// The detectors themselves take thresholds as arguments.
type Policy struct {
	DriverLimit int
	// ConcentrationThreshold is the top-1 share above which a warning fires.
	ConcentrationThreshold map[models.MetricKey]float64
	RefundRateGrowthPP     float64
	FeesOnRefundsShare     float64
	PaymentShiftDelta      float64
	PeakBuckets            int
	SalesVsRefundsLimit    int
	NetSignalsLimit        int
	InsightsLimit          int
	SummaryDrivers         int
}

func DefaultPolicy() Policy {
	return Policy{
		DriverLimit: DefaultDriverLimit,
		ConcentrationThreshold: map[models.MetricKey]float64{
			models.MetricGrossSales: 0.6,
			models.MetricNetRevenue: 0.6,
			models.MetricRefunds:    0.5,
			models.MetricFeesTotal:  0.6,
		},
		RefundRateGrowthPP:  2,
		FeesOnRefundsShare:  0.05,
		PaymentShiftDelta:   0.05,
		PeakBuckets:         5,
		SalesVsRefundsLimit: 50,
		NetSignalsLimit:     4,
		InsightsLimit:       6,
		SummaryDrivers:      3,
	}
}

func (p Policy) threshold(metric models.MetricKey) float64 {
	if v, ok := p.ConcentrationThreshold[metric]; ok && v > 0 {
		return v
	}
	return 0.6
}

func (p Policy) driverLimit() int {
	if p.DriverLimit <= 0 {
		return DefaultDriverLimit
	}
	return p.DriverLimit
}
