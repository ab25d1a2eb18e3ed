package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/mkarlsen/sunwatch/internal/db"
	"github.com/mkarlsen/sunwatch/internal/sunwatch/store"
	"github.com/mkarlsen/sunwatch/internal/sunwatch/types"
)

// EventStore reads sun-event records from the sun_events table.  Time-of-day
// columns are stored as "HH:MM:SS" wall-clock strings and combined with the
// row's date in the process's local time zone on read, matching the extractor
// output format.
type EventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
	loc    *time.Location
}

func NewEventStore(db *sql.DB, writer *dbpkg.Worker) *EventStore {
	return &EventStore{db: db, writer: writer, loc: time.Local}
}

func (s *EventStore) GetByDate(ctx context.Context, date time.Time) (types.SunEvent, error) {
	key := store.DateKey(date)

	var (
		dawn, sunrise, sunset, dusk string
		ghMorningEnd, ghEveningSt   string
		altitude, azimuth           sql.NullFloat64
	)

	err := s.db.QueryRowContext(ctx, `
SELECT dawn, sunrise, sunset, dusk,
       golden_hour_morning_end, golden_hour_evening_start,
       sun_altitude, azimuth
FROM sun_events
WHERE date = ?;
`, key).Scan(&dawn, &sunrise, &sunset, &dusk, &ghMorningEnd, &ghEveningSt, &altitude, &azimuth)

	if err == sql.ErrNoRows {
		return types.SunEvent{}, store.ErrNotFound
	}
	if err != nil {
		return types.SunEvent{}, fmt.Errorf("GetByDate %s: %w", key, err)
	}

	day, err := time.ParseInLocation("2006-01-02", key, s.loc)
	if err != nil {
		return types.SunEvent{}, fmt.Errorf("GetByDate parse date %s: %w", key, err)
	}

	ev := types.SunEvent{Date: day}
	for _, f := range []struct {
		raw string
		dst *time.Time
	}{
		{dawn, &ev.Dawn},
		{sunrise, &ev.Sunrise},
		{sunset, &ev.Sunset},
		{dusk, &ev.Dusk},
		{ghMorningEnd, &ev.GoldenHourMorningEnd},
		{ghEveningSt, &ev.GoldenHourEveningStart},
	} {
		t, err := combineDateTime(day, f.raw)
		if err != nil {
			return types.SunEvent{}, fmt.Errorf("GetByDate %s: %w", key, err)
		}
		*f.dst = t
	}

	if altitude.Valid {
		ev.SunAltitude = altitude.Float64
	}
	if azimuth.Valid {
		ev.Azimuth = azimuth.Float64
	}

	return ev, nil
}

// UpsertEvent inserts or replaces the record for its date.  Used by the
// import tool and the dev seeder, never by the monitor.
func (s *EventStore) UpsertEvent(ctx context.Context, ev types.SunEvent) error {
	key := store.DateKey(ev.Date)
	nowMs := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO sun_events(
  date, dawn, sunrise, sunset, dusk,
  golden_hour_morning_end, golden_hour_evening_start,
  sun_altitude, azimuth, created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(date) DO UPDATE SET
  dawn = excluded.dawn,
  sunrise = excluded.sunrise,
  sunset = excluded.sunset,
  dusk = excluded.dusk,
  golden_hour_morning_end = excluded.golden_hour_morning_end,
  golden_hour_evening_start = excluded.golden_hour_evening_start,
  sun_altitude = excluded.sun_altitude,
  azimuth = excluded.azimuth,
  updated_at_ms = excluded.updated_at_ms;
`, key,
			ev.Dawn.Format("15:04:05"),
			ev.Sunrise.Format("15:04:05"),
			ev.Sunset.Format("15:04:05"),
			ev.Dusk.Format("15:04:05"),
			ev.GoldenHourMorningEnd.Format("15:04:05"),
			ev.GoldenHourEveningStart.Format("15:04:05"),
			ev.SunAltitude, ev.Azimuth, nowMs, nowMs,
		); err != nil {
			return fmt.Errorf("UpsertEvent %s: %w", key, err)
		}
		return nil
	})
}

// combineDateTime attaches an "HH:MM:SS" wall-clock string to a calendar day.
func combineDateTime(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04:05", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad time %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		t.Hour(), t.Minute(), t.Second(), 0, day.Location()), nil
}
