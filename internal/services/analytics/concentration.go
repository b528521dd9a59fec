package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

// Concentrate computes top-1 and top-3 shares of total. Shares are measured
// against total, not against the sum of values, so a truncated or partial list
// still reports the share of the whole period. Only positive values compete.
func Concentrate(values []NamedValue, total decimal.Decimal) models.Concentration {
	out := models.Concentration{Top3Names: []string{}}
	if !total.IsPositive() {
		return out
	}

	ranked := make([]NamedValue, 0, len(values))
	for _, v := range values {
		if v.Value.IsPositive() {
			ranked = append(ranked, v)
		}
	}
	if len(ranked) == 0 {
		return out
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if c := ranked[i].Value.Cmp(ranked[j].Value); c != 0 {
			return c > 0
		}
		return ranked[i].Name < ranked[j].Name
	})

	name := ranked[0].Name
	out.Top1Name = &name
	out.Top1Share = clampUnit(share(ranked[0].Value, total))

	sum := decimal.Zero
	for i := 0; i < len(ranked) && i < 3; i++ {
		sum = sum.Add(ranked[i].Value)
		out.Top3Names = append(out.Top3Names, ranked[i].Name)
	}
	out.Top3Share = clampUnit(share(sum, total))
	return out
}
