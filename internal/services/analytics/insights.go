package analytics

import (
	"fmt"
	"sort"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

// Insight priorities, most material first.
const (
	priorityWarning = iota
	priorityChange
	priorityPrimaryDriver
	priorityConcentration
	priorityInfo
)

const (
	InsightChange        = "change"
	InsightPrimaryDriver = "primary_driver"
	InsightConcentration = "concentration"
)

type composed struct {
	priority int
	seq      int
	insight  models.Insight
}

// Composer collects insight lines and orders them by a fixed priority.
// Lines of equal priority keep the order they were added in.
type Composer struct {
	limit   int
	entries []composed
}

func NewComposer(limit int) *Composer {
	return &Composer{limit: limit}
}

func (c *Composer) add(priority int, in models.Insight) {
	c.entries = append(c.entries, composed{priority: priority, seq: len(c.entries), insight: in})
}

// AddSignal turns a fired signal into a line; warnings rank first.
func (c *Composer) AddSignal(s models.Signal) {
	p := priorityInfo
	if s.Severity == models.SeverityWarn {
		p = priorityWarning
	}
	c.add(p, models.Insight{Type: string(s.Type), Text: s.Message, Severity: s.Severity})
}

func (c *Composer) AddSignals(signals []models.Signal) {
	for _, s := range signals {
		c.AddSignal(s)
	}
}

// AddChange describes the overall change versus the previous period.
func (c *Composer) AddChange(metric models.MetricKey, cmp Comparison) {
	if !cmp.HasPrevious {
		return
	}
	c.add(priorityChange, models.Insight{Type: InsightChange, Text: changeText(metric, cmp)})
}

// AddPrimaryDriver names the entity behind most of the change.
func (c *Composer) AddPrimaryDriver(metric models.MetricKey, dim Dimension, d Driver) {
	s := PrimaryDriverSignal(metric, dim, d)
	c.add(priorityPrimaryDriver, models.Insight{Type: InsightPrimaryDriver, Text: s.Message})
}

// AddConcentration summarizes the top entities. It is skipped when a
// concentration warning already covers the same dimension.
func (c *Composer) AddConcentration(metric models.MetricKey, dim Dimension, conc models.Concentration) {
	if conc.Top1Name == nil {
		return
	}
	for _, e := range c.entries {
		if e.insight.Type == string(models.SignalConcentrationRisk) {
			return
		}
	}
	text := fmt.Sprintf("Top %s %q holds %s of %s", dim.Label(), *conc.Top1Name,
		percent(conc.Top1Share), MetricLabel(metric))
	if len(conc.Top3Names) > 1 {
		text += fmt.Sprintf("; the top %d hold %s", len(conc.Top3Names), percent(conc.Top3Share))
	}
	c.add(priorityConcentration, models.Insight{Type: InsightConcentration, Text: text + "."})
}

// Insights returns the ordered, capped lines. The result is never nil.
func (c *Composer) Insights() []models.Insight {
	entries := append([]composed(nil), c.entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority < entries[j].priority
		}
		return entries[i].seq < entries[j].seq
	})

	out := make([]models.Insight, 0, len(entries))
	for _, e := range entries {
		if c.limit > 0 && len(out) == c.limit {
			break
		}
		out = append(out, e.insight)
	}
	return out
}

// PrimaryAcross returns the driver with the largest absolute change over
// several rankings. Ties keep the first dimension in dims order.
func PrimaryAcross(rankings map[Dimension]Ranking, dims []Dimension) (Dimension, Driver, bool) {
	var (
		bestDim Dimension
		best    Driver
		found   bool
	)
	for _, dim := range dims {
		r, ok := rankings[dim]
		if !ok {
			continue
		}
		d, ok := r.Primary()
		if !ok {
			continue
		}
		if !found || d.Delta().Abs().GreaterThan(best.Delta().Abs()) {
			bestDim, best, found = dim, d, true
		}
	}
	return bestDim, best, found
}
