package service

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/mkarlsen/sunwatch/internal/metrics"
	"github.com/mkarlsen/sunwatch/internal/sunwatch/types"
)

// MonitorState is the scheduler's lifecycle state.
type MonitorState int32

const (
	StateBootstrapping MonitorState = iota // before the first resolve completes
	StateRunning
	StateStopped // terminal, reached only via cancellation
)

func (s MonitorState) String() string {
	switch s {
	case StateBootstrapping:
		return "bootstrapping"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MonitorConfig holds the scheduling parameters.  Zero values fall back to
// the defaults below.
type MonitorConfig struct {
	// LookAhead is how far into the future an upcoming period is still
	// reported (and anchors the midnight rollover check).  Default 30m.
	LookAhead time.Duration

	// FallbackPoll is the re-check interval when no period is active and
	// none is upcoming.  Default 5m.
	FallbackPoll time.Duration

	// LookupTimeout bounds each cycle's repository access so a stalled
	// store cannot silently turn into unbounded drift.  Default 10s.
	LookupTimeout time.Duration
}

// MonitorDeps holds the collaborators for NewMonitor.  Clock and Sleeper
// default to the real implementations when nil; tests inject synthetic ones.
type MonitorDeps struct {
	Resolver *Resolver
	Clock    Clock
	Sleeper  Sleeper
	Logger   *log.Logger
}

// Monitor is the background scheduler.  Each cycle it resolves the current
// state, publishes a snapshot for readers, computes the next wake instant
// from event data, and sleeps until exactly that instant.  Waking at
// absolute instants (never "sleep for N from whenever we got here") is what
// keeps long uptimes drift-free.
//
// The loop is serial; only cancellation stops it.  A failed cycle keeps the
// previous snapshot and retries on the fallback interval.
type Monitor struct {
	resolver *Resolver
	clock    Clock
	sleeper  Sleeper
	cfg      MonitorConfig
	logger   *log.Logger

	state  atomic.Int32
	snap   atomic.Pointer[types.Snapshot]
	cancel context.CancelFunc
	done   chan struct{}

	// touched only by the loop goroutine
	consecutiveFailures int
}

// NewMonitor creates a monitor but does not start it.  Call Start to begin
// the background loop.
func NewMonitor(d MonitorDeps, cfg MonitorConfig) *Monitor {
	if d.Clock == nil {
		d.Clock = SystemClock()
	}
	if d.Sleeper == nil {
		d.Sleeper = TimerSleeper()
	}
	if cfg.LookAhead <= 0 {
		cfg.LookAhead = 30 * time.Minute
	}
	if cfg.FallbackPoll <= 0 {
		cfg.FallbackPoll = 5 * time.Minute
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 10 * time.Second
	}

	m := &Monitor{
		resolver: d.Resolver,
		clock:    d.Clock,
		sleeper:  d.Sleeper,
		cfg:      cfg,
		logger:   d.Logger,
		done:     make(chan struct{}),
	}
	m.state.Store(int32(StateBootstrapping))
	return m
}

// Start begins the background scheduling loop.  The loop exits when ctx is
// cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	go m.loop(ctx)

	m.logger.Printf("sun-event monitor started (look_ahead=%s, fallback_poll=%s)",
		m.cfg.LookAhead, m.cfg.FallbackPoll)
}

// Stop signals the monitor to exit and waits for it to finish.  Safe to call
// more than once.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	<-m.done
}

// State returns the scheduler's lifecycle state.
func (m *Monitor) State() MonitorState {
	return MonitorState(m.state.Load())
}

// Current returns the last published snapshot without resolving.  ok is
// false until the first cycle has published.
func (m *Monitor) Current() (snap types.Snapshot, ok bool) {
	p := m.snap.Load()
	if p == nil {
		return types.Snapshot{}, false
	}
	return *p, true
}

// Upcoming performs a fresh resolve at the caller's horizon and returns the
// nearest upcoming period, or nil if a period is active or nothing starts
// within lookAhead.  It never touches the monitor's own snapshot.
func (m *Monitor) Upcoming(ctx context.Context, lookAhead time.Duration) (*types.Period, error) {
	snap, err := m.resolver.Resolve(ctx, m.clock.Now(), lookAhead)
	if err != nil {
		return nil, err
	}
	return snap.Upcoming, nil
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)
	defer func() {
		m.state.Store(int32(StateStopped))
		m.logger.Printf("sun-event monitor stopped")
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		// One timestamp per cycle; every comparison and the wake target
		// derive from this single instant.
		now := m.clock.Now()
		wake := m.cycle(ctx, now)

		if m.State() == StateBootstrapping {
			m.state.Store(int32(StateRunning))
		}

		if err := m.sleeper.SleepUntil(ctx, wake); err != nil {
			return
		}
	}
}

// cycle runs one resolve-publish-plan step and returns the absolute wake
// instant.  It never returns an error: resolution failures are logged,
// counted, and converted into a fallback poll so the loop survives.
func (m *Monitor) cycle(ctx context.Context, now time.Time) time.Time {
	rctx, cancel := context.WithTimeout(ctx, m.cfg.LookupTimeout)
	snap, err := m.resolver.Resolve(rctx, now, m.cfg.LookAhead)
	cancel()

	if err != nil {
		m.consecutiveFailures++
		metrics.MonitorCycleFailures.Inc()
		m.logger.Printf("monitor cycle failed (consecutive=%d, retry in %s): %v",
			m.consecutiveFailures, m.cfg.FallbackPoll, err)
		// Readers keep the last-known-good snapshot.
		return now.Add(m.cfg.FallbackPoll)
	}
	m.consecutiveFailures = 0

	var wake time.Time
	switch {
	case snap.Current != nil:
		// The period's end is the earliest moment the state can change.
		wake = snap.Current.End
	case snap.Upcoming != nil:
		wake = snap.Upcoming.Start
	default:
		wake = now.Add(m.cfg.FallbackPoll)
	}
	snap.NextWake = wake

	m.observeTransitions(snap)
	m.snap.Store(&snap)
	metrics.MonitorCycles.Inc()

	return wake
}

// observeTransitions logs and counts period boundaries by comparing the new
// snapshot against the previous one.
func (m *Monitor) observeTransitions(next types.Snapshot) {
	var prevCurrent *types.Period
	if prev := m.snap.Load(); prev != nil {
		prevCurrent = prev.Current
	}

	switch {
	case next.Current != nil && !samePeriod(prevCurrent, next.Current):
		metrics.MonitorActivePeriod.Set(1)
		metrics.PeriodTransitions.WithLabelValues(string(next.Current.Kind), "start").Inc()
		m.logger.Printf("%s period active until %s",
			next.Current.Kind, next.Current.End.Format("15:04:05"))
	case next.Current == nil && prevCurrent != nil:
		metrics.MonitorActivePeriod.Set(0)
		metrics.PeriodTransitions.WithLabelValues(string(prevCurrent.Kind), "end").Inc()
		m.logger.Printf("%s period ended", prevCurrent.Kind)
	case next.Current == nil && next.Upcoming != nil:
		m.logger.Printf("next %s period starts at %s",
			next.Upcoming.Kind, next.Upcoming.Start.Format("15:04:05"))
	}
}

func samePeriod(a, b *types.Period) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Kind == b.Kind && a.Start.Equal(b.Start) && a.End.Equal(b.End)
}
