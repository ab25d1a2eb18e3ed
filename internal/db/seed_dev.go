package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDev inserts sun-event rows for today and tomorrow so a fresh dev
// database has something for the monitor to schedule against.  The times are
// representative mid-latitude summer values, not computed.
func SeedDev(ctx context.Context, db *sql.DB) error {
	now := time.Now()
	nowMs := now.UTC().UnixMilli()

	for _, daysAhead := range []int{0, 1} {
		date := now.AddDate(0, 0, daysAhead).Format("2006-01-02")

		if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO sun_events(
  date, dawn, sunrise, sunset, dusk,
  golden_hour_morning_end, golden_hour_evening_start,
  sun_altitude, azimuth, created_at_ms, updated_at_ms
) VALUES (?, '05:42:10', '06:16:43', '21:28:05', '22:02:40',
  '07:06:35', '20:38:12', 52.3, 180.1, ?, ?);
`, date, nowMs, nowMs); err != nil {
			return fmt.Errorf("seed sun_events %s: %w", date, err)
		}
	}

	return nil
}
