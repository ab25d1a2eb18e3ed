package store

import (
	"context"
	"errors"
	"time"

	"github.com/mkarlsen/sunwatch/internal/sunwatch/types"
)

// ErrNotFound is returned when no sun-event record exists for a date.
// It is an expected condition, distinct from a lookup failure: callers that
// tolerate a missing date must test for it with errors.Is rather than treat
// every error as "no data".
var ErrNotFound = errors.New("no sun event for date")

// EventStore is the read-side contract the scheduler depends on.  Records
// are keyed by calendar date; the time-of-day portion of the argument is
// ignored.
type EventStore interface {
	GetByDate(ctx context.Context, date time.Time) (types.SunEvent, error)
}

// DateKey normalizes a timestamp to its calendar-date lookup key.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
