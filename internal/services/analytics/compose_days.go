package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

var dayDimensions = []Dimension{DimensionProduct, DimensionManager, DimensionPaymentMethod}

// BestWorstDays finds the days with the highest and lowest net revenue of the
// current period and explains each against the average day. The series is
// always daily, whatever the period length. Ties go to the earliest day.
func BestWorstDays(ctx context.Context, s *Snapshot, p Policy) (*models.BestWorstDaysDetails, error) {
	metric := models.MetricNetRevenue
	cmp := s.Compare(metric)
	cur, prev := cmp.PeriodValues(s.Pair)
	days := Aggregate(s.Current, s.Pair.Current, models.GranularityDay, s.Location)

	out := &models.BestWorstDaysDetails{
		Metric:       metric,
		Current:      cur,
		Previous:     prev,
		Change:       cmp.Change(),
		Series:       make([]models.DaySeriesPoint, 0, len(days.Buckets)),
		Signals:      []models.Signal{},
		Insights:     []models.Insight{},
		Availability: MetricAvailability(s.Presence, DimensionManager.Field()),
	}
	for _, b := range days.Buckets {
		out.Series = append(out.Series, models.DaySeriesPoint{
			Date:       b.Key,
			NetRevenue: toFloat(b.Totals.Net()),
			Orders:     b.Totals.Orders(),
		})
	}
	if len(days.Buckets) == 0 {
		return out, nil
	}

	dayCount := decimal.NewFromInt(int64(len(days.Buckets)))
	average, _ := divide(s.CurrentTotals.Net(), dayCount)
	out.AverageDayRevenue = toFloat(average)

	if s.CurrentTotals.Empty() {
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bestIdx, worstIdx := 0, 0
	for i, b := range days.Buckets {
		net := b.Totals.Net()
		if net.GreaterThan(days.Buckets[bestIdx].Totals.Net()) {
			bestIdx = i
		}
		if net.LessThan(days.Buckets[worstIdx].Totals.Net()) {
			worstIdx = i
		}
	}

	averages := s.entityDayAverages(dayCount)
	best := s.dayDetail(days.Buckets[bestIdx], average, averages, true, p.driverLimit())
	worst := s.dayDetail(days.Buckets[worstIdx], average, averages, false, p.driverLimit())
	out.Best, out.Worst = &best, &worst

	worstBucket := days.Buckets[worstIdx]
	if sig, ok := ZeroActivity(worstBucket.Key, worstBucket.Totals.Net(), worstBucket.Totals.Orders()); ok {
		out.Signals = append(out.Signals, sig)
	}
	if spike, ok := DetectSpike(days.Values(metric)); ok {
		out.Signals = append(out.Signals, SpikeSignal(metric, spike))
	}

	c := NewComposer(p.InsightsLimit)
	c.AddSignals(out.Signals)
	c.AddChange(metric, cmp)
	for _, d := range []*models.DayDetail{out.Best, out.Worst} {
		for _, dim := range dayDimensions {
			items := d.Drivers[dim.Plural()]
			if len(items) > 0 {
				c.add(priorityPrimaryDriver, models.Insight{
					Type: InsightPrimaryDriver,
					Text: dayDriverText(d.Date, dim, items[0]),
				})
				break
			}
		}
	}
	out.Insights = c.Insights()
	return out, nil
}

// entityDayAverages returns, per dimension and entity, the average net
// revenue per day of the period.
func (s *Snapshot) entityDayAverages(days decimal.Decimal) map[Dimension]map[string]decimal.Decimal {
	out := make(map[Dimension]map[string]decimal.Decimal, len(dayDimensions))
	for _, dim := range dayDimensions {
		avg := make(map[string]decimal.Decimal)
		for name, t := range groupTotals(s.Current, dim) {
			avg[name], _ = divide(t.Net(), days)
		}
		out[dim] = avg
	}
	return out
}

func (s *Snapshot) dayDetail(b Bucket, average decimal.Decimal, averages map[Dimension]map[string]decimal.Decimal, best bool, limit int) models.DayDetail {
	delta := b.Totals.Net().Sub(average)
	out := models.DayDetail{
		Date:              b.Key,
		NetRevenue:        toFloat(b.Totals.Net()),
		Orders:            b.Totals.Orders(),
		DeltaVsAverage:    toFloat(delta),
		DeltaVsAveragePct: ratio(delta, average),
		Drivers:           make(map[string][]models.DayDriverItem, len(dayDimensions)),
	}

	var rows []models.Transaction
	for _, tx := range s.Current {
		if BucketKey(tx.PaidAt.In(s.Location), models.GranularityDay) == b.Key {
			rows = append(rows, tx)
		}
	}

	for _, dim := range dayDimensions {
		items := []models.DayDriverItem{}
		if !s.Presence[dim.Field()] {
			out.Drivers[dim.Plural()] = items
			continue
		}
		onDay := groupTotals(rows, dim)
		type entry struct {
			name         string
			revenue, avg decimal.Decimal
			delta        decimal.Decimal
		}
		entries := make([]entry, 0, len(averages[dim]))
		for name, avg := range averages[dim] {
			if name == NoValue {
				continue
			}
			revenue := decimal.Zero
			if t, ok := onDay[name]; ok {
				revenue = t.Net()
			}
			entries = append(entries, entry{name: name, revenue: revenue, avg: avg, delta: revenue.Sub(avg)})
		}
		sort.Slice(entries, func(i, j int) bool {
			c := entries[i].delta.Cmp(entries[j].delta)
			if !best {
				c = -c
			}
			if c != 0 {
				return c > 0
			}
			return entries[i].name < entries[j].name
		})
		for i := 0; i < len(entries) && i < limit; i++ {
			e := entries[i]
			items = append(items, models.DayDriverItem{
				Name:       e.name,
				Revenue:    toFloat(e.revenue),
				AverageDay: toFloat(e.avg),
				DeltaAbs:   toFloat(e.delta),
				DeltaPct:   ratio(e.delta, e.avg),
			})
		}
		out.Drivers[dim.Plural()] = items
	}
	return out
}

func dayDriverText(date string, dim Dimension, item models.DayDriverItem) string {
	verb := "above"
	delta := item.DeltaAbs
	if delta < 0 {
		verb = "below"
		delta = -delta
	}
	return fmt.Sprintf("%s %q was %.2f %s its average day on %s.",
		capitalize(dim.Label()), item.Name, delta, verb, date)
}
