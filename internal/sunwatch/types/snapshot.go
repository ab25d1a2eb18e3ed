package types

import "time"

// Snapshot is the monitor's last-observed state.  It is replaced wholesale
// each scheduling cycle, never mutated in place, so readers always see a
// consistent view.
//
// Current is non-nil while a period is active.  Upcoming is non-nil when no
// period is active but one starts within the monitor's look-ahead horizon.
// The two are never both set.
type Snapshot struct {
	CheckedAt time.Time `json:"checked_at"`
	Current   *Period   `json:"current,omitempty"`
	Upcoming  *Period   `json:"upcoming,omitempty"`
	NextWake  time.Time `json:"next_wake"`
}

// Active reports whether the snapshot observed an active period.
func (s Snapshot) Active() bool { return s.Current != nil }
