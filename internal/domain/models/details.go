package models

// Metric detail responses. One type per metric family; all of them share the
// MetricDetails header so clients can render the common parts uniformly.

type MetricDetails struct {
	Metric       MetricKey     `json:"metric"`
	Granularity  Granularity   `json:"granularity"`
	Current      PeriodValue   `json:"current"`
	Previous     PeriodValue   `json:"previous"`
	Change       Change        `json:"change"`
	Series       []SeriesPoint `json:"series"`
	TopBuckets   []string      `json:"top_buckets"`
	Signals      []Signal      `json:"signals"`
	Insights     []Insight     `json:"insights"`
	Availability Availability  `json:"availability"`
}

type GrossSalesDetails struct {
	MetricDetails
	Orders        CountComparison             `json:"orders"`
	Drivers       map[string]DimensionDrivers `json:"drivers"`
	Concentration Concentration               `json:"concentration"`
}

// NetBreakdown splits net revenue into its parts for one period.
type NetBreakdown struct {
	GrossSales float64 `json:"gross_sales"`
	Refunds    float64 `json:"refunds"`
	NetRevenue float64 `json:"net_revenue"`
}

type NetTotals struct {
	Current  NetBreakdown  `json:"current"`
	Previous *NetBreakdown `json:"previous"`
}

type NetSeriesPoint struct {
	Bucket     string  `json:"bucket"`
	GrossSales float64 `json:"gross_sales"`
	Refunds    float64 `json:"refunds"`
	NetRevenue float64 `json:"net_revenue"`
}

// ProductNetRow compares sales and refunds of one entity in the current period.
type ProductNetRow struct {
	Name       string   `json:"name"`
	GrossSales float64  `json:"gross_sales"`
	Refunds    float64  `json:"refunds"`
	NetRevenue float64  `json:"net_revenue"`
	RefundRate *float64 `json:"refund_rate"`
}

type PaymentMethodRow struct {
	Name       string   `json:"name"`
	GrossSales float64  `json:"gross_sales"`
	Refunds    float64  `json:"refunds"`
	NetRevenue float64  `json:"net_revenue"`
	Fees       float64  `json:"fees"`
	Share      float64  `json:"share"`
	RefundRate *float64 `json:"refund_rate"`
}

type NetRevenueDetails struct {
	MetricDetails
	Totals              NetTotals                   `json:"totals"`
	RefundsShareOfGross RateComparison              `json:"refunds_share_of_gross"`
	Points              []NetSeriesPoint            `json:"points"`
	Drivers             map[string]DimensionDrivers `json:"drivers"`
	NetVsGross          []ProductNetRow             `json:"net_vs_gross"`
	PaymentMethods      []PaymentMethodRow          `json:"payment_methods"`
}

type RefundSeriesPoint struct {
	Bucket     string   `json:"bucket"`
	Refunds    float64  `json:"refunds"`
	RefundRate *float64 `json:"refund_rate"`
}

type RefundsDetails struct {
	MetricDetails
	RefundRate     RateComparison              `json:"refund_rate"`
	Points         []RefundSeriesPoint         `json:"points"`
	SalesVsRefunds []ProductNetRow             `json:"sales_vs_refunds"`
	Drivers        map[string]DimensionDrivers `json:"drivers"`
	Concentration  Concentration               `json:"concentration"`
	PaymentMethods []PaymentMethodRow          `json:"payment_methods"`
}

type FeeSeriesPoint struct {
	Bucket   string   `json:"bucket"`
	Fees     float64  `json:"fees_total"`
	FeeShare *float64 `json:"fee_share"`
}

type FeeComponentRow struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Current  float64  `json:"current"`
	Previous *float64 `json:"previous"`
	Share    float64  `json:"share"`
}

type FeeEfficiency struct {
	FeePerOrder        *float64 `json:"fee_per_order"`
	FeePerRevenue      *float64 `json:"fee_per_revenue"`
	FeesOnRefunds      float64  `json:"fees_on_refunds"`
	FeesOnRefundsShare *float64 `json:"fees_on_refunds_share"`
}

type FeesDetails struct {
	MetricDetails
	FeeShare   RateComparison              `json:"fee_share"`
	Points     []FeeSeriesPoint            `json:"points"`
	Components []FeeComponentRow           `json:"components"`
	Drivers    map[string]DimensionDrivers `json:"drivers"`
	Efficiency FeeEfficiency               `json:"efficiency"`
}

type DaySeriesPoint struct {
	Date       string  `json:"date"`
	NetRevenue float64 `json:"net_revenue"`
	Orders     int64   `json:"orders"`
}

// DayDriverItem compares an entity's revenue on one day with its average day.
type DayDriverItem struct {
	Name       string   `json:"name"`
	Revenue    float64  `json:"revenue"`
	AverageDay float64  `json:"average_day"`
	DeltaAbs   float64  `json:"delta_abs"`
	DeltaPct   *float64 `json:"delta_pct"`
}

type DayDetail struct {
	Date              string                     `json:"date"`
	NetRevenue        float64                    `json:"net_revenue"`
	Orders            int64                      `json:"orders"`
	DeltaVsAverage    float64                    `json:"delta_vs_average"`
	DeltaVsAveragePct *float64                   `json:"delta_vs_average_pct"`
	Drivers           map[string][]DayDriverItem `json:"drivers"`
}

type BestWorstDaysDetails struct {
	Metric            MetricKey        `json:"metric"`
	Current           PeriodValue      `json:"current"`
	Previous          PeriodValue      `json:"previous"`
	Change            Change           `json:"change"`
	Series            []DaySeriesPoint `json:"series"`
	AverageDayRevenue float64          `json:"average_day_revenue"`
	Best              *DayDetail       `json:"best"`
	Worst             *DayDetail       `json:"worst"`
	Signals           []Signal         `json:"signals"`
	Insights          []Insight        `json:"insights"`
	Availability      Availability     `json:"availability"`
}

type DriversDetails struct {
	Metric        MetricKey     `json:"metric"`
	Dimension     string        `json:"dimension"`
	Sort          string        `json:"sort"`
	Current       PeriodValue   `json:"current"`
	Previous      PeriodValue   `json:"previous"`
	Items         []DriverItem  `json:"items"`
	Up            []DriverItem  `json:"up"`
	Down          []DriverItem  `json:"down"`
	Concentration Concentration `json:"concentration"`
	Availability  Availability  `json:"availability"`
}

type SummaryDriver struct {
	Dimension string   `json:"dimension"`
	Name      string   `json:"name"`
	Current   float64  `json:"current"`
	Previous  float64  `json:"previous"`
	DeltaAbs  float64  `json:"delta_abs"`
	DeltaPct  *float64 `json:"delta_pct"`
}

type SummaryItem struct {
	Metric   MetricKey       `json:"metric"`
	Current  PeriodValue     `json:"current"`
	Previous PeriodValue     `json:"previous"`
	Change   Change          `json:"change"`
	Drivers  []SummaryDriver `json:"drivers"`
	Text     string          `json:"text"`
}

type SummaryDetails struct {
	From     string        `json:"from"`
	To       string        `json:"to"`
	Items    []SummaryItem `json:"items"`
	Insights []Insight     `json:"insights"`
}
