package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mkarlsen/sunwatch/internal/sunwatch/store"
	"github.com/mkarlsen/sunwatch/internal/sunwatch/types"
)

// Store reads sun events from a JSON file of the form
//
//	{"sun_events": {"2026-06-21": {"dawn": "06:16:43", ...}, ...}}
//
// with "HH:MM:SS" wall-clock fields interpreted in the process's local time
// zone.  The whole file is parsed into memory up front; Watch can keep the
// cache current when the file is rewritten by the extractor.
type Store struct {
	path   string
	logger *log.Logger
	loc    *time.Location

	mu     sync.RWMutex
	events map[string]types.SunEvent
}

type fileFormat struct {
	SunEvents map[string]rawEvent `json:"sun_events"`
}

type rawEvent struct {
	Dawn                   string  `json:"dawn"`
	Sunrise                string  `json:"sunrise"`
	Sunset                 string  `json:"sunset"`
	Dusk                   string  `json:"dusk"`
	GoldenHourMorningEnd   string  `json:"golden_hour_morning_end"`
	GoldenHourEveningStart string  `json:"golden_hour_evening_start"`
	SunAltitude            float64 `json:"sun_altitude"`
	Azimuth                float64 `json:"azimuth"`
}

// New creates a Store and performs the initial load.
func New(path string, logger *log.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		logger: logger,
		loc:    time.Local,
	}
	events, err := s.load()
	if err != nil {
		return nil, err
	}
	s.events = events
	return s, nil
}

func (s *Store) GetByDate(_ context.Context, date time.Time) (types.SunEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[store.DateKey(date)]
	if !ok {
		return types.SunEvent{}, store.ErrNotFound
	}
	return ev, nil
}

// Len returns the number of loaded records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// All returns a copy of every loaded record, in no particular order.  Used
// by the import tool.
func (s *Store) All() []types.SunEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.SunEvent, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	return out
}

// Watch starts a background goroutine that reloads the cache whenever the
// file is rewritten.  A reload that fails to parse keeps the previous cache.
// Call the returned stop function to clean up.
func (s *Store) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("events watcher: %w", err)
	}
	if err := w.Add(s.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("events watcher add %s: %w", s.path, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					events, err := s.load()
					if err != nil {
						s.logger.Printf("events reload failed, keeping previous data: %v", err)
						continue
					}
					s.mu.Lock()
					s.events = events
					s.mu.Unlock()
					s.logger.Printf("events reloaded from %s (%d dates)", s.path, len(events))
				}
			case <-w.Errors:
				// Ignore watcher errors.
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

func (s *Store) load() (map[string]types.SunEvent, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}

	var f fileFormat
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse events file %s: %w", s.path, err)
	}

	events := make(map[string]types.SunEvent, len(f.SunEvents))
	for dateStr, raw := range f.SunEvents {
		ev, err := s.parseEvent(dateStr, raw)
		if err != nil {
			return nil, fmt.Errorf("events file %s: %w", s.path, err)
		}
		events[dateStr] = ev
	}
	return events, nil
}

func (s *Store) parseEvent(dateStr string, raw rawEvent) (types.SunEvent, error) {
	day, err := time.ParseInLocation("2006-01-02", dateStr, s.loc)
	if err != nil {
		return types.SunEvent{}, fmt.Errorf("bad date %q: %w", dateStr, err)
	}

	ev := types.SunEvent{
		Date:        day,
		SunAltitude: raw.SunAltitude,
		Azimuth:     raw.Azimuth,
	}

	for _, f := range []struct {
		name string
		raw  string
		dst  *time.Time
	}{
		{"dawn", raw.Dawn, &ev.Dawn},
		{"sunrise", raw.Sunrise, &ev.Sunrise},
		{"sunset", raw.Sunset, &ev.Sunset},
		{"dusk", raw.Dusk, &ev.Dusk},
		{"golden_hour_morning_end", raw.GoldenHourMorningEnd, &ev.GoldenHourMorningEnd},
		{"golden_hour_evening_start", raw.GoldenHourEveningStart, &ev.GoldenHourEveningStart},
	} {
		t, err := time.Parse("15:04:05", f.raw)
		if err != nil {
			return types.SunEvent{}, fmt.Errorf("%s: bad %s %q: %w", dateStr, f.name, f.raw, err)
		}
		*f.dst = time.Date(day.Year(), day.Month(), day.Day(),
			t.Hour(), t.Minute(), t.Second(), 0, s.loc)
	}

	return ev, nil
}
