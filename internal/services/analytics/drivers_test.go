package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

func driverRows() (current, previous []models.Transaction) {
	current = []models.Transaction{
		sale("2024-02-01", "500", product("Course A")),
		sale("2024-02-02", "300", product("Course B")),
		sale("2024-02-02", "100", product("Course C")),
		sale("2024-02-03", "100"),
	}
	previous = []models.Transaction{
		sale("2024-01-28", "200", product("Course A")),
		sale("2024-01-29", "300", product("Course B")),
		sale("2024-01-29", "400", product("Course D")),
	}
	return current, previous
}

func TestRankDrivers_FullListSumsToTotal(t *testing.T) {
	cur, prev := driverRows()
	r := RankDrivers(cur, prev, true, DriverOptions{Metric: models.MetricGrossSales, Dimension: DimensionProduct})

	items := r.Items()
	var sum, shares float64
	for _, it := range items {
		sum += it.CurrentValue
		shares += it.ShareCurrent
	}
	assert.InDelta(t, 1000.0, sum, 1e-6)
	assert.InDelta(t, 1.0, shares, 1e-6)
	assert.True(t, r.Total.Equal(dec("1000")))
}

func TestRankDrivers_DeltaFields(t *testing.T) {
	cur, prev := driverRows()
	r := RankDrivers(cur, prev, true, DriverOptions{Metric: models.MetricGrossSales, Dimension: DimensionProduct})

	byName := map[string]models.DriverItem{}
	for _, it := range r.Items() {
		byName[it.Name] = it
	}

	a := byName["Course A"]
	assert.Equal(t, 300.0, *a.DeltaAbs)
	assert.Equal(t, 1.5, *a.DeltaPct)

	c := byName["Course C"]
	assert.Equal(t, 0.0, *c.PreviousValue)
	assert.Equal(t, 100.0, *c.DeltaAbs)
	assert.Nil(t, c.DeltaPct, "no percentage change from zero")

	d := byName["Course D"]
	assert.Equal(t, 0.0, d.CurrentValue)
	assert.Equal(t, -400.0, *d.DeltaAbs)
}

func TestRankDrivers_SortModes(t *testing.T) {
	cur, prev := driverRows()
	names := func(items []models.DriverItem) []string {
		out := make([]string, 0, len(items))
		for _, it := range items {
			out = append(out, it.Name)
		}
		return out
	}
	rank := func(mode SortMode) []string {
		r := RankDrivers(cur, prev, true, DriverOptions{Metric: models.MetricGrossSales, Dimension: DimensionProduct, Sort: mode})
		return names(r.Top(10))
	}

	assert.Equal(t, []string{"Course A", "Course C", "Course B", "Course D"}, rank(SortDeltaDesc))
	assert.Equal(t, []string{"Course D", "Course B", "Course C", "Course A"}, rank(SortDeltaAsc))
	assert.Equal(t, []string{"Course A", "Course B", "Course C", "Course D"}, rank(SortCurrentDesc))
}

func TestRankDrivers_NoValueExcludedFromNavigation(t *testing.T) {
	cur, prev := driverRows()
	r := RankDrivers(cur, prev, true, DriverOptions{Metric: models.MetricGrossSales, Dimension: DimensionProduct})

	var inFull bool
	for _, it := range r.Items() {
		if it.Name == NoValue {
			inFull = true
		}
	}
	assert.True(t, inFull)
	for _, it := range r.Top(10) {
		assert.NotEqual(t, NoValue, it.Name)
	}
	assert.Len(t, r.Top(2), 2)
}

func TestRankDrivers_Split(t *testing.T) {
	cur, prev := driverRows()
	r := RankDrivers(cur, prev, true, DriverOptions{Metric: models.MetricGrossSales, Dimension: DimensionProduct})

	up, down := r.Split(10)
	require.Len(t, up, 2)
	assert.Equal(t, "Course A", up[0].Name)
	assert.Equal(t, "Course C", up[1].Name)
	require.Len(t, down, 1)
	assert.Equal(t, "Course D", down[0].Name)
	// Course B did not change and is in neither list.
}

func TestRankDrivers_NoPreviousPeriod(t *testing.T) {
	cur, prev := driverRows()
	r := RankDrivers(cur, prev, false, DriverOptions{Metric: models.MetricGrossSales, Dimension: DimensionProduct})

	up, down := r.Split(10)
	assert.Empty(t, up)
	assert.NotNil(t, up)
	assert.Empty(t, down)

	top := r.Top(10)
	require.NotEmpty(t, top)
	assert.Equal(t, "Course A", top[0].Name)
	assert.Nil(t, top[0].PreviousValue)
	assert.Nil(t, top[0].DeltaAbs)
	_, ok := r.Primary()
	assert.False(t, ok)
}

func TestRankDrivers_GroupUsesDeepestLevel(t *testing.T) {
	rows := []models.Transaction{
		sale("2024-02-01", "10", group("Courses", "Design")),
		sale("2024-02-01", "20", group("Courses")),
		sale("2024-02-01", "30", group("Courses", "Design")),
	}
	r := RankDrivers(rows, nil, false, DriverOptions{Metric: models.MetricGrossSales, Dimension: DimensionGroup})
	top := r.Top(10)
	require.Len(t, top, 2)
	assert.Equal(t, "Design", top[0].Name)
	assert.Equal(t, 40.0, top[0].CurrentValue)
}

func TestRankDimensions_MatchesSequentialRanking(t *testing.T) {
	cur, prev := driverRows()
	dims := []Dimension{DimensionProduct, DimensionManager, DimensionPaymentMethod}

	got, err := RankDimensions(context.Background(), cur, prev, true, models.MetricGrossSales, dims, SortDeltaDesc)
	require.NoError(t, err)
	require.Len(t, got, len(dims))
	for _, d := range dims {
		want := RankDrivers(cur, prev, true, DriverOptions{Metric: models.MetricGrossSales, Dimension: d, Sort: SortDeltaDesc})
		assert.Equal(t, want.Items(), got[d].Items(), "dimension %s", d)
	}
}

func TestRankDimensions_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cur, prev := driverRows()
	_, err := RankDimensions(ctx, cur, prev, true, models.MetricGrossSales, []Dimension{DimensionProduct}, SortDeltaDesc)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseDimension(t *testing.T) {
	d, err := ParseDimension("managers")
	require.NoError(t, err)
	assert.Equal(t, DimensionManager, d)

	d, err = ParseDimension("payment_method")
	require.NoError(t, err)
	assert.Equal(t, DimensionPaymentMethod, d)

	_, err = ParseDimension("city")
	var dimErr *UnknownDimensionError
	assert.ErrorAs(t, err, &dimErr)
}
