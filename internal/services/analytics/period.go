package analytics

import (
	"time"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

// weekThresholdDays is the span above which series switch to weekly buckets.
// The span is to-from, so a 32-day inclusive window is still daily.
const weekThresholdDays = 31

// ResolvePeriods builds the current period [from, to] and the equally long
// period right before it. Both dates are inclusive calendar days in loc.
func ResolvePeriods(from, to time.Time, loc *time.Location) (models.PeriodPair, error) {
	if loc == nil {
		loc = time.UTC
	}
	from = StartOfDay(from, loc)
	to = StartOfDay(to, loc)
	if from.After(to) {
		return models.PeriodPair{}, &InvalidRangeError{From: from, To: to}
	}

	span := civilDays(from, to)
	prevTo := from.AddDate(0, 0, -1)
	prevFrom := prevTo.AddDate(0, 0, -span)

	g := models.GranularityDay
	if span > weekThresholdDays {
		g = models.GranularityWeek
	}
	return models.PeriodPair{
		Current:     models.Period{Label: models.PeriodCurrent, From: from, To: to},
		Previous:    models.Period{Label: models.PeriodPrevious, From: prevFrom, To: prevTo},
		Granularity: g,
	}, nil
}

// StartOfDay returns local midnight of the calendar day containing t.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// civilDays counts calendar days from a to b, ignoring DST shifts of the zone.
func civilDays(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
