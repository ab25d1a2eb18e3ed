package types

import "time"

// SunEvent holds one calendar date's astronomical markers.  All time fields
// are wall-clock instants on that date, in the same time zone the monitoring
// process runs in.  Records are immutable once loaded from a store.
type SunEvent struct {
	Date    time.Time `json:"date"`
	Dawn    time.Time `json:"dawn"`
	Sunrise time.Time `json:"sunrise"`
	Sunset  time.Time `json:"sunset"`
	Dusk    time.Time `json:"dusk"`

	GoldenHourMorningEnd   time.Time `json:"golden_hour_morning_end"`
	GoldenHourEveningStart time.Time `json:"golden_hour_evening_start"`

	// Auxiliary values carried through from the source data; not used by
	// the scheduling logic.
	SunAltitude float64 `json:"sun_altitude,omitempty"`
	Azimuth     float64 `json:"azimuth,omitempty"`
}
