package analytics

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

// SortMode orders a driver ranking.
type SortMode string

const (
	SortDeltaDesc   SortMode = "delta_desc"
	SortDeltaAsc    SortMode = "delta_asc"
	SortCurrentDesc SortMode = "current_desc"
)

// DefaultDriverLimit is the navigable list size when the caller gives none.
const DefaultDriverLimit = 10

func ParseSortMode(s string) (SortMode, error) {
	switch m := SortMode(s); m {
	case "":
		return SortDeltaDesc, nil
	case SortDeltaDesc, SortDeltaAsc, SortCurrentDesc:
		return m, nil
	}
	return "", &UnknownSortError{Sort: s}
}

// NamedValue is an entity with one value, used for concentration.
type NamedValue struct {
	Name  string
	Value decimal.Decimal
}

// Driver is one entity's metric in both periods.
type Driver struct {
	Name     string
	Current  decimal.Decimal
	Previous decimal.Decimal
}

func (d Driver) Delta() decimal.Decimal { return d.Current.Sub(d.Previous) }

// Ranking is the full, untruncated driver list of one dimension. Rows
// without a tag are kept under NoValue so the list sums to the metric total.
type Ranking struct {
	Dimension   Dimension
	Metric      models.MetricKey
	Sort        SortMode
	Total       decimal.Decimal
	HasPrevious bool
	Drivers     []Driver
}

// DriverOptions selects what RankDrivers computes.
type DriverOptions struct {
	Metric    models.MetricKey
	Dimension Dimension
	Sort      SortMode
}

// RankDrivers computes per-entity totals over both periods and sorts them.
// Without a previous period the delta orders fall back to current_desc.
func RankDrivers(current, previous []models.Transaction, hasPrevious bool, opts DriverOptions) Ranking {
	if opts.Sort == "" {
		opts.Sort = SortDeltaDesc
	}
	cur := groupTotals(current, opts.Dimension)
	prev := map[string]*Totals{}
	if hasPrevious {
		prev = groupTotals(previous, opts.Dimension)
	}

	r := Ranking{
		Dimension:   opts.Dimension,
		Metric:      opts.Metric,
		Sort:        opts.Sort,
		Total:       Summarize(current).Value(opts.Metric),
		HasPrevious: hasPrevious,
	}
	for name, t := range cur {
		d := Driver{Name: name, Current: t.Value(opts.Metric)}
		if p, ok := prev[name]; ok {
			d.Previous = p.Value(opts.Metric)
		}
		r.Drivers = append(r.Drivers, d)
	}
	for name, p := range prev {
		if _, ok := cur[name]; !ok {
			r.Drivers = append(r.Drivers, Driver{Name: name, Previous: p.Value(opts.Metric)})
		}
	}

	mode := opts.Sort
	if !hasPrevious {
		mode = SortCurrentDesc
	}
	sortDrivers(r.Drivers, mode)
	return r
}

func groupTotals(rows []models.Transaction, d Dimension) map[string]*Totals {
	out := make(map[string]*Totals)
	for _, tx := range rows {
		name := d.Name(tx)
		t, ok := out[name]
		if !ok {
			t = &Totals{}
			out[name] = t
		}
		t.Add(tx)
	}
	return out
}

func sortDrivers(ds []Driver, mode SortMode) {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		var c int
		switch mode {
		case SortDeltaAsc:
			c = a.Delta().Cmp(b.Delta())
		case SortCurrentDesc:
			c = b.Current.Cmp(a.Current)
		default:
			c = b.Delta().Cmp(a.Delta())
		}
		if c != 0 {
			return c < 0
		}
		return a.Name < b.Name
	})
}

// item renders a driver against the dimension total.
func (r Ranking) item(d Driver) models.DriverItem {
	it := models.DriverItem{
		Name:         d.Name,
		CurrentValue: toFloat(d.Current),
		ShareCurrent: share(d.Current, r.Total),
	}
	if r.HasPrevious {
		it.PreviousValue = decimalPtr(d.Previous)
		it.DeltaAbs = decimalPtr(d.Delta())
		it.DeltaPct = ratio(d.Delta(), d.Previous)
	}
	return it
}

// Items renders the full list, NoValue included.
func (r Ranking) Items() []models.DriverItem {
	out := make([]models.DriverItem, 0, len(r.Drivers))
	for _, d := range r.Drivers {
		out = append(out, r.item(d))
	}
	return out
}

// Navigable returns the drivers that can be drilled into.
func (r Ranking) Navigable() []Driver {
	out := make([]Driver, 0, len(r.Drivers))
	for _, d := range r.Drivers {
		if d.Name != NoValue {
			out = append(out, d)
		}
	}
	return out
}

// Top renders the first n navigable drivers in ranking order.
func (r Ranking) Top(n int) []models.DriverItem {
	if n <= 0 {
		n = DefaultDriverLimit
	}
	nav := r.Navigable()
	if len(nav) > n {
		nav = nav[:n]
	}
	out := make([]models.DriverItem, 0, len(nav))
	for _, d := range nav {
		out = append(out, r.item(d))
	}
	return out
}

// Split returns growth and decline contributors, each truncated to n.
// Zero-delta entities are in neither list; without a previous period both
// lists are empty.
func (r Ranking) Split(n int) (up, down []models.DriverItem) {
	if n <= 0 {
		n = DefaultDriverLimit
	}
	up, down = []models.DriverItem{}, []models.DriverItem{}
	if !r.HasPrevious {
		return up, down
	}
	var ups, downs []Driver
	for _, d := range r.Navigable() {
		switch d.Delta().Sign() {
		case 1:
			ups = append(ups, d)
		case -1:
			downs = append(downs, d)
		}
	}
	sortDrivers(ups, SortDeltaDesc)
	sortDrivers(downs, SortDeltaAsc)
	for i := 0; i < len(ups) && i < n; i++ {
		up = append(up, r.item(ups[i]))
	}
	for i := 0; i < len(downs) && i < n; i++ {
		down = append(down, r.item(downs[i]))
	}
	return up, down
}

// CurrentValues lists every entity with its current value, NoValue included.
func (r Ranking) CurrentValues() []NamedValue {
	out := make([]NamedValue, 0, len(r.Drivers))
	for _, d := range r.Drivers {
		out = append(out, NamedValue{Name: d.Name, Value: d.Current})
	}
	return out
}

// Concentration measures the full ranked list against the total. Untagged
// rows compete as NoValue, so a large untagged share is reported.
func (r Ranking) Concentration() models.Concentration {
	return Concentrate(r.CurrentValues(), r.Total)
}

// Primary returns the navigable driver with the largest absolute change.
func (r Ranking) Primary() (Driver, bool) {
	if !r.HasPrevious {
		return Driver{}, false
	}
	var best Driver
	found := false
	for _, d := range r.Navigable() {
		delta := d.Delta()
		if delta.IsZero() {
			continue
		}
		if !found || delta.Abs().GreaterThan(best.Delta().Abs()) ||
			(delta.Abs().Equal(best.Delta().Abs()) && d.Name < best.Name) {
			best, found = d, true
		}
	}
	return best, found
}

// RankDimensions ranks several dimensions concurrently over the same rows.
// The rows are only read, so no locking is needed.
func RankDimensions(ctx context.Context, current, previous []models.Transaction, hasPrevious bool,
	metric models.MetricKey, dims []Dimension, mode SortMode) (map[Dimension]Ranking, error) {
	results := make([]Ranking, len(dims))
	g, ctx := errgroup.WithContext(ctx)
	for i, d := range dims {
		i, d := i, d
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = RankDrivers(current, previous, hasPrevious, DriverOptions{
				Metric:    metric,
				Dimension: d,
				Sort:      mode,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[Dimension]Ranking, len(dims))
	for i, d := range dims {
		out[d] = results[i]
	}
	return out, nil
}
