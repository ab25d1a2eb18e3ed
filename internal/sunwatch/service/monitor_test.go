package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mkarlsen/sunwatch/internal/metrics"
	"github.com/mkarlsen/sunwatch/internal/sunwatch/service"
	"github.com/mkarlsen/sunwatch/internal/sunwatch/store"
	"github.com/mkarlsen/sunwatch/internal/sunwatch/store/memory"
	"github.com/mkarlsen/sunwatch/internal/sunwatch/types"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// fakeSleeper records every wake target and advances the fake clock to it,
// so the loop experiences instantaneous, perfectly punctual sleeps.  Once
// maxWakes targets have been recorded it blocks until cancellation.
type fakeSleeper struct {
	clock    *fakeClock
	maxWakes int
	reached  chan struct{}

	mu    sync.Mutex
	wakes []time.Time
}

func newFakeSleeper(clock *fakeClock, maxWakes int) *fakeSleeper {
	return &fakeSleeper{clock: clock, maxWakes: maxWakes, reached: make(chan struct{})}
}

func (s *fakeSleeper) SleepUntil(ctx context.Context, t time.Time) error {
	s.mu.Lock()
	s.wakes = append(s.wakes, t)
	n := len(s.wakes)
	if n == s.maxWakes {
		close(s.reached)
	}
	s.mu.Unlock()

	if n >= s.maxWakes {
		<-ctx.Done()
		return ctx.Err()
	}
	s.clock.Set(t)
	return nil
}

func (s *fakeSleeper) Wakes() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Time, len(s.wakes))
	copy(out, s.wakes)
	return out
}

func (s *fakeSleeper) waitReached(t *testing.T) {
	t.Helper()
	select {
	case <-s.reached:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor never reached the expected number of cycles")
	}
}

func newTestMonitor(st store.EventStore, clock *fakeClock, sleeper service.Sleeper) *service.Monitor {
	return service.NewMonitor(service.MonitorDeps{
		Resolver: service.NewResolver(st, silentLogger()),
		Clock:    clock,
		Sleeper:  sleeper,
		Logger:   silentLogger(),
	}, service.MonitorConfig{
		LookAhead:    30 * time.Minute,
		FallbackPoll: 5 * time.Minute,
	})
}

func TestMonitor_StartsBootstrapping(t *testing.T) {
	m := newTestMonitor(memory.New(), &fakeClock{}, newFakeSleeper(&fakeClock{}, 1))

	if m.State() != service.StateBootstrapping {
		t.Errorf("expected bootstrapping before Start, got %v", m.State())
	}
	if _, ok := m.Current(); ok {
		t.Error("expected no snapshot before the first cycle")
	}
}

func TestMonitor_WithinPeriod_WakesAtPeriodEnd(t *testing.T) {
	d := day(2026, 6, 21)
	ms := memory.New()
	ms.Put(eventOn(d))

	clock := &fakeClock{t: at(d, 7, 0, 0)}
	sleeper := newFakeSleeper(clock, 1)
	m := newTestMonitor(ms, clock, sleeper)

	m.Start(context.Background())
	sleeper.waitReached(t)
	m.Stop()

	wakes := sleeper.Wakes()
	if !wakes[0].Equal(at(d, 8, 6, 35)) {
		t.Errorf("expected wake at sunrise period end 08:06:35, got %v", wakes[0])
	}

	snap, ok := m.Current()
	if !ok {
		t.Fatal("expected a published snapshot")
	}
	if snap.Current == nil || snap.Current.Kind != types.PeriodSunrise {
		t.Fatalf("expected active sunrise period, got %+v", snap)
	}
	if !snap.NextWake.Equal(wakes[0]) {
		t.Errorf("snapshot next wake %v disagrees with sleep target %v", snap.NextWake, wakes[0])
	}
}

func TestMonitor_NoData_FallbackPoll(t *testing.T) {
	d := day(2026, 6, 21)
	clock := &fakeClock{t: at(d, 12, 0, 0)}
	sleeper := newFakeSleeper(clock, 1)
	m := newTestMonitor(memory.New(), clock, sleeper)

	m.Start(context.Background())
	sleeper.waitReached(t)
	m.Stop()

	if want := at(d, 12, 5, 0); !sleeper.Wakes()[0].Equal(want) {
		t.Errorf("expected fallback wake %v, got %v", want, sleeper.Wakes()[0])
	}
}

// Every wake instant must be derivable from event data or from the cycle's
// own now plus the fallback interval — never from accumulated sleep time.
func TestMonitor_WakeInstants_AreAbsolute(t *testing.T) {
	d := day(2026, 6, 21)
	ms := memory.New()
	ms.Put(eventOn(d))
	ms.Put(eventOn(day(2026, 6, 22)))

	clock := &fakeClock{t: at(d, 21, 33, 0)}
	sleeper := newFakeSleeper(clock, 4)
	m := newTestMonitor(ms, clock, sleeper)

	m.Start(context.Background())
	sleeper.waitReached(t)
	m.Stop()

	want := []time.Time{
		at(d, 21, 33, 35), // upcoming sunset start
		at(d, 22, 56, 40), // sunset end (active after waking exactly at start)
		at(d, 23, 1, 40),  // nothing upcoming: end + 5m
		at(d, 23, 6, 40),  // still nothing: previous wake + 5m
	}
	got := sleeper.Wakes()
	if len(got) != len(want) {
		t.Fatalf("expected %d wakes, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("wake %d: got %v, want %v", i, got[i], want[i])
		}
	}

	if m.State() != service.StateStopped {
		t.Errorf("expected stopped after Stop, got %v", m.State())
	}
}

type flakyStore struct {
	inner     store.EventStore
	failAfter int
	calls     int
}

func (s *flakyStore) GetByDate(ctx context.Context, date time.Time) (types.SunEvent, error) {
	s.calls++
	if s.calls > s.failAfter {
		return types.SunEvent{}, errors.New("backend unavailable")
	}
	return s.inner.GetByDate(ctx, date)
}

func TestMonitor_ResolveFailure_KeepsLastSnapshotAndRetries(t *testing.T) {
	d := day(2026, 6, 21)
	ms := memory.New()
	ms.Put(eventOn(d))
	flaky := &flakyStore{inner: ms, failAfter: 1}

	clock := &fakeClock{t: at(d, 7, 0, 0)}
	sleeper := newFakeSleeper(clock, 3)
	m := newTestMonitor(flaky, clock, sleeper)

	failuresBefore := testutil.ToFloat64(metrics.MonitorCycleFailures)

	m.Start(context.Background())
	sleeper.waitReached(t)
	m.Stop()

	want := []time.Time{
		at(d, 8, 6, 35),  // healthy cycle: sunrise period end
		at(d, 8, 11, 35), // lookup failed: fallback from the cycle's now
		at(d, 8, 16, 35), // still failing: fallback again
	}
	got := sleeper.Wakes()
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("wake %d: got %v, want %v", i, got[i], want[i])
		}
	}

	// Readers still see the last good snapshot from 07:00.
	snap, ok := m.Current()
	if !ok {
		t.Fatal("expected last-known-good snapshot to survive failures")
	}
	if !snap.CheckedAt.Equal(at(d, 7, 0, 0)) {
		t.Errorf("expected snapshot from 07:00, got %v", snap.CheckedAt)
	}

	if delta := testutil.ToFloat64(metrics.MonitorCycleFailures) - failuresBefore; delta < 2 {
		t.Errorf("expected at least 2 failure increments, got %v", delta)
	}
}

// blockingSleeper parks until cancellation, mimicking a long real sleep.
type blockingSleeper struct {
	sleeping chan struct{}
	once     sync.Once
}

func (s *blockingSleeper) SleepUntil(ctx context.Context, _ time.Time) error {
	s.once.Do(func() { close(s.sleeping) })
	<-ctx.Done()
	return ctx.Err()
}

func TestMonitor_StopDuringSleep_StopsPromptly(t *testing.T) {
	d := day(2026, 6, 21)
	ms := memory.New()
	ms.Put(eventOn(d))

	cs := &countingStore{inner: ms}
	clock := &fakeClock{t: at(d, 7, 0, 0)}
	sleeper := &blockingSleeper{sleeping: make(chan struct{})}
	m := newTestMonitor(cs, clock, sleeper)

	m.Start(context.Background())

	select {
	case <-sleeper.sleeping:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor never went to sleep")
	}

	callsBeforeStop := cs.calls
	m.Stop()
	m.Stop() // idempotent

	if m.State() != service.StateStopped {
		t.Errorf("expected stopped, got %v", m.State())
	}
	if cs.calls != callsBeforeStop {
		t.Errorf("expected no further cycles after Stop, got %d extra", cs.calls-callsBeforeStop)
	}
}

func TestMonitor_Upcoming_UsesCallerHorizon(t *testing.T) {
	d := day(2026, 6, 21)
	ms := memory.New()
	ms.Put(eventOn(d))

	clock := &fakeClock{t: at(d, 12, 0, 0)}
	m := newTestMonitor(ms, clock, newFakeSleeper(clock, 1))

	// At midday nothing is within the monitor's own 30m horizon, but a
	// 12 hour horizon reaches the evening sunset window.
	p, err := m.Upcoming(context.Background(), 12*time.Hour)
	if err != nil {
		t.Fatalf("Upcoming: %v", err)
	}
	if p == nil || p.Kind != types.PeriodSunset {
		t.Fatalf("expected upcoming sunset, got %v", p)
	}
	if !p.Start.Equal(at(d, 21, 33, 35)) {
		t.Errorf("expected start 21:33:35, got %v", p.Start)
	}

	// A fresh resolve must not publish anything.
	if _, ok := m.Current(); ok {
		t.Error("Upcoming must not publish a snapshot")
	}
}
