package models

import "time"

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// Granularity is the width of a series bucket.
type Granularity string

const (
	GranularityDay  Granularity = "day"
	GranularityWeek Granularity = "week"
)

const (
	PeriodCurrent  = "current"
	PeriodPrevious = "previous"
)

// Period is an inclusive range of calendar days. From and To are midnights
// in the project timezone; End gives the exclusive upper bound.
type Period struct {
	Label string
	From  time.Time
	To    time.Time
}

// End returns the first instant after the period.
func (p Period) End() time.Time { return p.To.AddDate(0, 0, 1) }

// Days is the number of calendar days covered.
func (p Period) Days() int {
	n := 0
	for d := p.From; !d.After(p.To); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// Contains reports whether the instant falls inside [From, End).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.From) && t.Before(p.End())
}

func (p Period) FromDate() string { return p.From.Format(DateLayout) }
func (p Period) ToDate() string   { return p.To.Format(DateLayout) }

// PeriodPair is a current period with its equally long predecessor.
type PeriodPair struct {
	Current     Period
	Previous    Period
	Granularity Granularity
}
