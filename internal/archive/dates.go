package archive

import (
	"fmt"
	"time"
)

// Melt season months, inclusive.
const (
	MeltSeasonStart = time.June
	MeltSeasonEnd   = time.September
)

// TimeFilter selects daily acquisitions between Start and End, inclusive.
type TimeFilter struct {
	Start      time.Time
	End        time.Time
	MeltSeason bool
}

func (f TimeFilter) Validate() error {
	if f.Start.IsZero() || f.End.IsZero() {
		return fmt.Errorf("date range needs both a start and an end date")
	}
	if f.End.Before(f.Start) {
		return fmt.Errorf("end date %s is before start date %s", f.End.Format(time.DateOnly), f.Start.Format(time.DateOnly))
	}
	return nil
}

func (f TimeFilter) Accept(t time.Time) bool {
	day := truncate(t)
	if day.Before(truncate(f.Start)) || day.After(truncate(f.End)) {
		return false
	}
	if f.MeltSeason {
		return t.Month() >= MeltSeasonStart && t.Month() <= MeltSeasonEnd
	}
	return true
}

// Dates lists every accepted day.
func (f TimeFilter) Dates() []time.Time {
	var out []time.Time
	for d := truncate(f.Start); !d.After(truncate(f.End)); d = d.AddDate(0, 0, 1) {
		if f.Accept(d) {
			out = append(out, d)
		}
	}
	return out
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
