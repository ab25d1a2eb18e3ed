package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/mkarlsen/sunwatch/internal/sunwatch/types"
)

// goldenHourPadding extends the sunrise window past the morning golden hour
// and opens the sunset window ahead of the evening one.
const goldenHourPadding = 30 * time.Minute

// ErrMalformedEvent marks a record whose derived periods are unusable
// (missing marker or end not after start).  It is a data-quality defect, not
// a scheduling failure: the resolver logs it and treats the date as having
// no periods.
var ErrMalformedEvent = errors.New("malformed sun event")

// PeriodsFor derives the day's two candidate windows from a record:
//
//	sunrise: [dawn, golden_hour_morning_end + 30m)
//	sunset:  [golden_hour_evening_start - 30m, dusk)
func PeriodsFor(ev types.SunEvent) (sunrise, sunset types.Period, err error) {
	for _, m := range []struct {
		name string
		t    time.Time
	}{
		{"dawn", ev.Dawn},
		{"dusk", ev.Dusk},
		{"golden_hour_morning_end", ev.GoldenHourMorningEnd},
		{"golden_hour_evening_start", ev.GoldenHourEveningStart},
	} {
		if m.t.IsZero() {
			return types.Period{}, types.Period{},
				fmt.Errorf("%w: %s missing %s", ErrMalformedEvent, ev.Date.Format("2006-01-02"), m.name)
		}
	}

	sunrise = types.Period{
		Kind:  types.PeriodSunrise,
		Start: ev.Dawn,
		End:   ev.GoldenHourMorningEnd.Add(goldenHourPadding),
	}
	sunset = types.Period{
		Kind:  types.PeriodSunset,
		Start: ev.GoldenHourEveningStart.Add(-goldenHourPadding),
		End:   ev.Dusk,
	}

	for _, p := range []types.Period{sunrise, sunset} {
		if !p.End.After(p.Start) {
			return types.Period{}, types.Period{},
				fmt.Errorf("%w: %s %s period ends at %s, before start %s",
					ErrMalformedEvent, ev.Date.Format("2006-01-02"), p.Kind,
					p.End.Format("15:04:05"), p.Start.Format("15:04:05"))
		}
	}

	return sunrise, sunset, nil
}
