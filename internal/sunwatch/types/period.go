package types

import "time"

type PeriodKind string

const (
	PeriodSunrise PeriodKind = "sunrise"
	PeriodSunset  PeriodKind = "sunset"
)

// Period is a derived time window during which a sun event is considered
// active.  Start is inclusive, End exclusive.
type Period struct {
	Kind  PeriodKind `json:"period_type"`
	Start time.Time  `json:"start_time"`
	End   time.Time  `json:"end_time"`
}

// Contains reports whether t falls inside the period.  A period starting at
// exactly t counts as active so the resolver never reports "upcoming in 0
// minutes".
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}
