package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

// Snapshot is the request-scoped, read-only input of every composition: the
// rows of both periods fetched once, split in memory. It is safe for
// concurrent use as long as nobody modifies the row slices.
type Snapshot struct {
	Pair        models.PeriodPair
	Location    *time.Location
	Current     []models.Transaction
	Previous    []models.Transaction
	HasPrevious bool

	CurrentTotals  Totals
	PreviousTotals Totals
	Series         Series
	Presence       Presence
}

// NewSnapshot splits rows into the two periods. The previous period counts as
// available only when the project has a transaction before its end; when it
// does not, previous values render as null instead of zero.
func NewSnapshot(pair models.PeriodPair, rows []models.Transaction, firstTx time.Time, hasHistory bool, loc *time.Location) *Snapshot {
	if loc == nil {
		loc = time.UTC
	}
	s := &Snapshot{
		Pair:        pair,
		Location:    loc,
		Current:     make([]models.Transaction, 0, len(rows)),
		Previous:    make([]models.Transaction, 0),
		HasPrevious: hasHistory && firstTx.Before(pair.Previous.End()),
	}
	for _, tx := range rows {
		switch {
		case pair.Current.Contains(tx.PaidAt):
			s.Current = append(s.Current, tx)
		case pair.Previous.Contains(tx.PaidAt):
			s.Previous = append(s.Previous, tx)
		}
	}
	sortRows(s.Current)
	sortRows(s.Previous)

	s.CurrentTotals = Summarize(s.Current)
	s.PreviousTotals = Summarize(s.Previous)
	s.Series = Aggregate(s.Current, pair.Current, pair.Granularity, loc)
	s.Presence = ScanFields(s.Current)
	return s
}

// sortRows fixes the row order so repeated computations are identical
// regardless of the order the store returned them in.
func sortRows(rows []models.Transaction) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.PaidAt.Equal(b.PaidAt) {
			return a.PaidAt.Before(b.PaidAt)
		}
		if a.TransactionID != b.TransactionID {
			return a.TransactionID < b.TransactionID
		}
		return a.OrderID < b.OrderID
	})
}

// Compare pairs the totals of both periods for a metric.
func (s *Snapshot) Compare(metric models.MetricKey) Comparison {
	return Compare(s.CurrentTotals.Value(metric), s.PreviousTotals.Value(metric), s.HasPrevious)
}

// Availability evaluates fields against the current period rows.
func (s *Snapshot) Availability(fields ...string) models.Availability {
	return Evaluate(s.Presence, fields...)
}

func (s *Snapshot) DimensionAvailability(d Dimension) models.Availability {
	return Evaluate(s.Presence, d.Field())
}

// rank computes a ranking, or an empty one when the dimension is unavailable.
func (s *Snapshot) rank(metric models.MetricKey, d Dimension, mode SortMode) Ranking {
	if !s.Presence[d.Field()] {
		return Ranking{Dimension: d, Metric: metric, Sort: mode, Total: s.CurrentTotals.Value(metric), HasPrevious: s.HasPrevious}
	}
	return RankDrivers(s.Current, s.Previous, s.HasPrevious, DriverOptions{Metric: metric, Dimension: d, Sort: mode})
}

// rankAll ranks dims concurrently. Unavailable dimensions get an empty ranking
// without being computed.
func (s *Snapshot) rankAll(ctx context.Context, metric models.MetricKey, dims []Dimension, mode SortMode) (map[Dimension]Ranking, error) {
	available := make([]Dimension, 0, len(dims))
	for _, d := range dims {
		if s.Presence[d.Field()] {
			available = append(available, d)
		}
	}
	out, err := RankDimensions(ctx, s.Current, s.Previous, s.HasPrevious, metric, available, mode)
	if err != nil {
		return nil, err
	}
	for _, d := range dims {
		if _, ok := out[d]; !ok {
			out[d] = s.rank(metric, d, mode)
		}
	}
	return out, nil
}
