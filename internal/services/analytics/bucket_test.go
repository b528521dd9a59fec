package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

func TestBucketKey_ISOWeek(t *testing.T) {
	assert.Equal(t, "2024-W01", BucketKey(day("2024-01-01"), models.GranularityWeek))
	assert.Equal(t, "2023-W52", BucketKey(day("2023-12-31"), models.GranularityWeek))
	// 2020-12-31 is a Thursday of week 53 of 2020, 2021-01-03 still belongs to it.
	assert.Equal(t, "2020-W53", BucketKey(day("2021-01-03"), models.GranularityWeek))
	assert.Equal(t, "2024-01-01", BucketKey(day("2024-01-01"), models.GranularityDay))
}

func TestAggregate_FillsGaps(t *testing.T) {
	rows := []models.Transaction{
		sale("2024-01-02", "100"),
		sale("2024-01-04", "50"),
		sale("2024-01-04", "25"),
	}
	p := pairOf(t, "2024-01-01", "2024-01-05").Current

	s := Aggregate(rows, p, models.GranularityDay, time.UTC)
	require.Len(t, s.Buckets, 5)

	points := s.Points(models.MetricGrossSales)
	assert.Equal(t, []models.SeriesPoint{
		{Bucket: "2024-01-01", Value: 0},
		{Bucket: "2024-01-02", Value: 100},
		{Bucket: "2024-01-03", Value: 0},
		{Bucket: "2024-01-04", Value: 75},
		{Bucket: "2024-01-05", Value: 0},
	}, points)
}

func TestAggregate_WeeksAcrossYearBoundary(t *testing.T) {
	rows := []models.Transaction{
		sale("2023-12-31", "10"),
		sale("2024-01-01", "20"),
		sale("2024-01-14", "30"),
	}
	p := pairOf(t, "2023-12-25", "2024-01-14").Current

	s := Aggregate(rows, p, models.GranularityWeek, time.UTC)
	keys := make([]string, 0, len(s.Buckets))
	for _, b := range s.Buckets {
		keys = append(keys, b.Key)
	}
	assert.Equal(t, []string{"2023-W52", "2024-W01", "2024-W02"}, keys)
	assert.True(t, s.Buckets[0].Totals.Gross.Equal(dec("10")))
	assert.True(t, s.Buckets[1].Totals.Gross.Equal(dec("20")))
	assert.True(t, s.Buckets[2].Totals.Gross.Equal(dec("30")))
}

func TestAggregate_IgnoresRowsOutsidePeriod(t *testing.T) {
	rows := []models.Transaction{
		sale("2023-12-31", "999"),
		sale("2024-01-01", "1"),
		sale("2024-01-03", "999"),
	}
	p := pairOf(t, "2024-01-01", "2024-01-02").Current

	s := Aggregate(rows, p, models.GranularityDay, time.UTC)
	assert.True(t, s.Sum(models.MetricGrossSales).Equal(dec("1")))
}

func TestAggregate_BucketsSumToPeriodTotals(t *testing.T) {
	var rows []models.Transaction
	start := day("2024-01-01")
	for i := 0; i < 60; i++ {
		date := start.AddDate(0, 0, i).Format(models.DateLayout)
		rows = append(rows, sale(date, "10.10", fee(0, "0.33")))
		if i%7 == 0 {
			rows = append(rows, refund(date, "3.05", fee(1, "0.10")))
		}
	}
	s := snapshotOf(t, "2024-01-01", "2024-02-29", rows...)
	require.Equal(t, models.GranularityWeek, s.Pair.Granularity)

	for _, m := range []models.MetricKey{
		models.MetricGrossSales, models.MetricRefunds, models.MetricNetRevenue, models.MetricFeesTotal,
	} {
		assert.True(t, s.Series.Sum(m).Equal(s.CurrentTotals.Value(m)), "metric %s", m)

		var sum float64
		for _, p := range s.Series.Points(m) {
			sum += p.Value
		}
		assert.InDelta(t, toFloat(s.CurrentTotals.Value(m)), sum, 1e-6, "metric %s", m)
	}
}
