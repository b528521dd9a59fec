package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

// BucketKey returns the stable label of the bucket containing t:
// YYYY-MM-DD for days and YYYY-Www (ISO-8601 year and week) for weeks.
func BucketKey(t time.Time, g models.Granularity) string {
	if g == models.GranularityWeek {
		y, w := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	}
	return t.Format(models.DateLayout)
}

// bucketStart returns the first day of the bucket containing t, in t's zone.
func bucketStart(t time.Time, g models.Granularity) time.Time {
	day := StartOfDay(t, t.Location())
	if g == models.GranularityWeek {
		offset := (int(day.Weekday()) + 6) % 7
		day = day.AddDate(0, 0, -offset)
	}
	return day
}

func nextBucket(start time.Time, g models.Granularity) time.Time {
	if g == models.GranularityWeek {
		return start.AddDate(0, 0, 7)
	}
	return start.AddDate(0, 0, 1)
}

type Bucket struct {
	Key    string
	Start  time.Time
	Totals Totals
}

// Series is the ordered, gap-free list of buckets covering one period.
type Series struct {
	Granularity models.Granularity
	Buckets     []Bucket
}

// BucketValue is one bucket's value for a single metric.
type BucketValue struct {
	Key   string
	Value decimal.Decimal
	// Rows counts the transactions that fell into the bucket.
	Rows int
}

// Aggregate assigns rows of the period to buckets. Every slot between the
// period's first and last bucket is present, empty ones with zero totals.
// Rows outside the period are ignored.
func Aggregate(rows []models.Transaction, p models.Period, g models.Granularity, loc *time.Location) Series {
	if loc == nil {
		loc = time.UTC
	}
	from := p.From.In(loc)
	end := p.End().In(loc)

	s := Series{Granularity: g}
	index := make(map[string]int)
	for start := bucketStart(from, g); start.Before(end); start = nextBucket(start, g) {
		key := BucketKey(start, g)
		index[key] = len(s.Buckets)
		s.Buckets = append(s.Buckets, Bucket{Key: key, Start: start})
	}

	for _, tx := range rows {
		if !p.Contains(tx.PaidAt) {
			continue
		}
		i, ok := index[BucketKey(tx.PaidAt.In(loc), g)]
		if !ok {
			continue
		}
		s.Buckets[i].Totals.Add(tx)
	}
	return s
}

// Values projects the series onto one metric.
func (s Series) Values(metric models.MetricKey) []BucketValue {
	out := make([]BucketValue, len(s.Buckets))
	for i, b := range s.Buckets {
		out[i] = BucketValue{Key: b.Key, Value: b.Totals.Value(metric), Rows: b.Totals.SaleRows + b.Totals.RefundRows}
	}
	return out
}

func (s Series) Points(metric models.MetricKey) []models.SeriesPoint {
	out := make([]models.SeriesPoint, len(s.Buckets))
	for i, b := range s.Buckets {
		out[i] = models.SeriesPoint{Bucket: b.Key, Value: toFloat(b.Totals.Value(metric))}
	}
	return out
}

// Sum adds up the buckets for a money metric.
func (s Series) Sum(metric models.MetricKey) decimal.Decimal {
	total := decimal.Zero
	for _, b := range s.Buckets {
		total = total.Add(b.Totals.Value(metric))
	}
	return total
}
