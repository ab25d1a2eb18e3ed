package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mkarlsen/sunwatch/internal/sunwatch/store"
	"github.com/mkarlsen/sunwatch/internal/sunwatch/types"
)

// Resolver answers "is a period active at this instant, and what comes next"
// from event data.  It is pure given a frozen now and fixed store contents,
// so the monitor and the HTTP layer can both call it without coordinating.
type Resolver struct {
	store  store.EventStore
	logger *log.Logger
}

func NewResolver(st store.EventStore, logger *log.Logger) *Resolver {
	return &Resolver{store: st, logger: logger}
}

// Resolve returns the state of the world at now.  A missing record for a
// date is tolerated (that date simply has no periods); a failed lookup is
// returned as an error so callers never mistake an outage for a quiet day.
func (r *Resolver) Resolve(ctx context.Context, now time.Time, lookAhead time.Duration) (types.Snapshot, error) {
	snap := types.Snapshot{CheckedAt: now}

	var candidates []types.Period

	today, err := r.periodsOn(ctx, now)
	if err != nil {
		return snap, fmt.Errorf("resolve %s: %w", store.DateKey(now), err)
	}
	for _, p := range today {
		// Start inclusive, end exclusive: a period starting exactly at
		// now is already active, never "upcoming in 0 minutes".
		if p.Contains(now) {
			snap.Current = &p
			return snap, nil
		}
		if p.Start.After(now) {
			candidates = append(candidates, p)
		}
	}

	// Near midnight, tomorrow's sunrise can start before today's data is
	// exhausted; it is the only next-date period worth consulting.
	midnight := startOfDay(now).AddDate(0, 0, 1)
	if midnight.Sub(now) <= lookAhead {
		tomorrow, err := r.periodsOn(ctx, now.AddDate(0, 0, 1))
		if err != nil {
			return snap, fmt.Errorf("resolve %s: %w", store.DateKey(now.AddDate(0, 0, 1)), err)
		}
		for _, p := range tomorrow {
			if p.Kind == types.PeriodSunrise && p.Start.After(now) {
				candidates = append(candidates, p)
			}
		}
	}

	for _, p := range candidates {
		if p.Start.Sub(now) > lookAhead {
			continue
		}
		if snap.Upcoming == nil || p.Start.Before(snap.Upcoming.Start) {
			snap.Upcoming = &p
		}
	}

	return snap, nil
}

// periodsOn returns the usable periods for a calendar date.  Missing and
// malformed records both yield an empty slice; only lookup failures are
// returned as errors.
func (r *Resolver) periodsOn(ctx context.Context, date time.Time) ([]types.Period, error) {
	ev, err := r.store.GetByDate(ctx, date)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sunrise, sunset, err := PeriodsFor(ev)
	if err != nil {
		r.logger.Printf("skipping unusable sun event: %v", err)
		return nil, nil
	}
	return []types.Period{sunrise, sunset}, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
