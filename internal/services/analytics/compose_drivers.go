package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

// DriversQuery selects one ranking.
type DriversQuery struct {
	Metric    models.MetricKey
	Dimension Dimension
	Sort      SortMode
	Limit     int
}

// Drivers ranks one dimension for one metric. An unavailable dimension gives
// empty lists and an unavailable status rather than an error.
func Drivers(ctx context.Context, s *Snapshot, q DriversQuery) (*models.DriversDetails, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.Sort == "" {
		q.Sort = SortDeltaDesc
	}
	if q.Limit <= 0 {
		q.Limit = DefaultDriverLimit
	}

	cmp := s.Compare(q.Metric)
	cur, prev := cmp.PeriodValues(s.Pair)
	r := s.rank(q.Metric, q.Dimension, q.Sort)
	up, down := r.Split(q.Limit)
	return &models.DriversDetails{
		Metric:        q.Metric,
		Dimension:     string(q.Dimension),
		Sort:          string(q.Sort),
		Current:       cur,
		Previous:      prev,
		Items:         r.Top(q.Limit),
		Up:            up,
		Down:          down,
		Concentration: r.Concentration(),
		Availability:  s.DimensionAvailability(q.Dimension),
	}, nil
}

var summaryMetrics = []models.MetricKey{
	models.MetricGrossSales,
	models.MetricRefunds,
	models.MetricNetRevenue,
	models.MetricOrders,
}

var summaryDimensions = []Dimension{DimensionProduct, DimensionGroup, DimensionManager, DimensionPaymentMethod}

// Summary gives one line per headline metric with the entities that moved
// it the most, across all dimensions.
func Summary(ctx context.Context, s *Snapshot, p Policy) (*models.SummaryDetails, error) {
	out := &models.SummaryDetails{
		From:     s.Pair.Current.FromDate(),
		To:       s.Pair.Current.ToDate(),
		Items:    make([]models.SummaryItem, 0, len(summaryMetrics)),
		Insights: []models.Insight{},
	}

	c := NewComposer(p.InsightsLimit)
	for _, metric := range summaryMetrics {
		rankings, err := s.rankAll(ctx, metric, summaryDimensions, SortDeltaDesc)
		if err != nil {
			return nil, err
		}
		cmp := s.Compare(metric)
		cur, prev := cmp.PeriodValues(s.Pair)
		out.Items = append(out.Items, models.SummaryItem{
			Metric:   metric,
			Current:  cur,
			Previous: prev,
			Change:   cmp.Change(),
			Drivers:  summaryDrivers(rankings, p.SummaryDrivers),
			Text:     changeText(metric, cmp),
		})
		if metric == models.MetricNetRevenue {
			c.AddChange(metric, cmp)
			addPrimary(c, metric, rankings, summaryDimensions)
		}
	}

	net := s.Compare(models.MetricNetRevenue)
	if sig, ok := RefundsAteGrowth(s.Compare(models.MetricGrossSales), net); ok {
		c.AddSignal(sig)
	}
	curRate, prevRate := s.refundRates()
	pp, ok := deltaPP(curRate, prevRate, s.HasPrevious)
	if sig, fired := RefundRateGrowth(pp, ok, p.RefundRateGrowthPP); fired {
		c.AddSignal(sig)
	}
	out.Insights = c.Insights()
	return out, nil
}

// summaryDrivers picks the n navigable entities with the largest absolute
// change over all rankings.
func summaryDrivers(rankings map[Dimension]Ranking, n int) []models.SummaryDriver {
	type candidate struct {
		dim   Dimension
		order int
		d     Driver
	}
	var cands []candidate
	for order, dim := range summaryDimensions {
		r, ok := rankings[dim]
		if !ok || !r.HasPrevious {
			continue
		}
		for _, d := range r.Navigable() {
			if !d.Delta().IsZero() {
				cands = append(cands, candidate{dim: dim, order: order, d: d})
			}
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if c := cands[i].d.Delta().Abs().Cmp(cands[j].d.Delta().Abs()); c != 0 {
			return c > 0
		}
		if cands[i].order != cands[j].order {
			return cands[i].order < cands[j].order
		}
		return cands[i].d.Name < cands[j].d.Name
	})

	out := make([]models.SummaryDriver, 0, n)
	for i := 0; i < len(cands) && i < n; i++ {
		d := cands[i].d
		out = append(out, models.SummaryDriver{
			Dimension: string(cands[i].dim),
			Name:      d.Name,
			Current:   toFloat(d.Current),
			Previous:  toFloat(d.Previous),
			DeltaAbs:  toFloat(d.Delta()),
			DeltaPct:  ratio(d.Delta(), d.Previous),
		})
	}
	return out
}

// changeText is the one-line description of a metric's change.
func changeText(metric models.MetricKey, cmp Comparison) string {
	label := MetricLabel(metric)
	format := money
	if metric == models.MetricOrders {
		format = func(d decimal.Decimal) string { return d.StringFixed(0) }
	}
	if !cmp.HasPrevious {
		return fmt.Sprintf("%s: %s. No earlier data to compare with.", label, format(cmp.Current))
	}
	delta := cmp.Delta()
	if delta.IsZero() {
		return fmt.Sprintf("%s is unchanged at %s.", label, format(cmp.Current))
	}
	verb := "grew"
	if delta.IsNegative() {
		verb = "fell"
	}
	text := fmt.Sprintf("%s %s by %s to %s", label, verb, format(delta.Abs()), format(cmp.Current))
	if pct := ratio(delta, cmp.Previous); pct != nil {
		text += fmt.Sprintf(" (%+.1f%%)", *pct*100)
	}
	return text + "."
}
