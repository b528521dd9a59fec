package models

// MetricKey identifies a metric family.
type MetricKey string

const (
	MetricGrossSales MetricKey = "gross_sales"
	MetricRefunds    MetricKey = "refunds"
	MetricNetRevenue MetricKey = "net_revenue"
	MetricFeesTotal  MetricKey = "fees_total"
	MetricOrders     MetricKey = "orders"
)

// PeriodValue is a metric value over one period. Value is null only when the
// period lies before the start of the project's history.
type PeriodValue struct {
	Value *float64 `json:"value"`
	From  string   `json:"from"`
	To    string   `json:"to"`
}

// Change compares the current value with the previous one.
type Change struct {
	DeltaAbs *float64 `json:"delta_abs"`
	DeltaPct *float64 `json:"delta_pct"`
}

// RateComparison compares a ratio between periods; DeltaPP is in percentage points.
type RateComparison struct {
	Current  *float64 `json:"current"`
	Previous *float64 `json:"previous"`
	DeltaPP  *float64 `json:"delta_pp"`
}

// CountComparison compares an integer count between periods.
type CountComparison struct {
	Current  int64  `json:"current"`
	Previous *int64 `json:"previous"`
	Change   Change `json:"change"`
}

type SeriesPoint struct {
	Bucket string  `json:"bucket"`
	Value  float64 `json:"value"`
}

// DriverItem is one entity's contribution within a dimension.
type DriverItem struct {
	Name          string   `json:"name"`
	CurrentValue  float64  `json:"current_value"`
	PreviousValue *float64 `json:"previous_value"`
	DeltaAbs      *float64 `json:"delta_abs"`
	DeltaPct      *float64 `json:"delta_pct"`
	ShareCurrent  float64  `json:"share_current"`
}

// DimensionDrivers is the driver block rendered for one dimension tab.
type DimensionDrivers struct {
	Top          []DriverItem `json:"top"`
	Up           []DriverItem `json:"up"`
	Down         []DriverItem `json:"down"`
	Availability Availability `json:"availability"`
}

type Concentration struct {
	Top1Name  *string  `json:"top1_name"`
	Top1Share float64  `json:"top1_share"`
	Top3Names []string `json:"top3_names"`
	Top3Share float64  `json:"top3_share"`
}

type Severity string

const SeverityWarn Severity = "warn"

type SignalType string

const (
	SignalPeakBucket         SignalType = "peak_bucket"
	SignalMetricSpike        SignalType = "metric_spike"
	SignalZeroActivityDay    SignalType = "zero_activity_day"
	SignalConcentrationRisk  SignalType = "concentration_risk"
	SignalRefundRateGrowth   SignalType = "refund_rate_growth"
	SignalRefundsAteGrowth   SignalType = "refunds_ate_growth"
	SignalFeeAnomaly         SignalType = "fee_anomaly"
	SignalFeeShareGrowth     SignalType = "fee_share_growth"
	SignalFeesOnRefunds      SignalType = "fees_on_refunds"
	SignalPaymentMethodShift SignalType = "payment_method_shift"
	SignalPrimaryDriver      SignalType = "primary_driver"
	SignalNetRevenueChange   SignalType = "net_revenue_change"
	SignalRefundImpact       SignalType = "refund_impact"
)

// Signal is a derived observation. Severity is set only for warning rules.
type Signal struct {
	Type     SignalType `json:"type"`
	Title    string     `json:"title"`
	Message  string     `json:"message"`
	Severity Severity   `json:"severity,omitempty"`
}

// Insight is one renderable line of the composed narrative.
type Insight struct {
	Type     string   `json:"type"`
	Text     string   `json:"text"`
	Severity Severity `json:"severity,omitempty"`
}

type AvailabilityStatus string

const (
	StatusAvailable   AvailabilityStatus = "available"
	StatusPartial     AvailabilityStatus = "partial"
	StatusUnavailable AvailabilityStatus = "unavailable"
)

type Availability struct {
	Status        AvailabilityStatus `json:"status"`
	MissingFields []string           `json:"missing_fields"`
}
