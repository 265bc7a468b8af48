package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu      sync.Mutex
	cycles  int
	results map[string]string
	panics  bool
}

func (f *fakeRunner) CollectAll(ctx context.Context) map[string]string {
	f.mu.Lock()
	f.cycles++
	f.mu.Unlock()
	if f.panics {
		panic("collector exploded")
	}
	return f.results
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cycles
}

type fakeCleaner struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (f *fakeCleaner) CleanupExpired(retentionDays int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, retentionDays)
	return f.err
}

func (f *fakeCleaner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSink struct {
	mu      sync.Mutex
	results map[string]string
	at      time.Time
	calls   int
}

func (f *fakeSink) SetCycle(results map[string]string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = results
	f.at = at
	f.calls++
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestScheduler_RunsFirstCycleImmediately(t *testing.T) {
	runner := &fakeRunner{results: map[string]string{"ch1": "ok"}}
	cleaner := &fakeCleaner{}
	sink := &fakeSink{}

	s := New(runner, cleaner, Options{Interval: time.Hour, RetentionDays: 90, Status: sink})
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, func() bool { return runner.count() >= 1 })
	waitFor(t, func() bool { return cleaner.count() >= 1 })

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, map[string]string{"ch1": "ok"}, sink.results)
	assert.False(t, sink.at.IsZero())

	cleaner.mu.Lock()
	defer cleaner.mu.Unlock()
	assert.Equal(t, []int{90}, cleaner.calls)
}

func TestScheduler_TicksAtInterval(t *testing.T) {
	runner := &fakeRunner{results: map[string]string{}}
	s := New(runner, &fakeCleaner{}, Options{Interval: 20 * time.Millisecond})
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, func() bool { return runner.count() >= 3 })
}

func TestScheduler_DoubleStartIsNoOp(t *testing.T) {
	runner := &fakeRunner{results: map[string]string{}}
	s := New(runner, &fakeCleaner{}, Options{Interval: time.Hour})

	s.Start(context.Background())
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, func() bool { return runner.count() >= 1 })

	// A second Start must not have spawned a second loop: with a 1h
	// interval the only cycles are the immediate ones.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, runner.count())
	assert.True(t, s.Running())
}

func TestScheduler_StopWaitsForLoopExit(t *testing.T) {
	runner := &fakeRunner{results: map[string]string{}}
	s := New(runner, &fakeCleaner{}, Options{Interval: time.Hour})

	s.Start(context.Background())
	waitFor(t, func() bool { return runner.count() >= 1 })
	s.Stop()

	assert.False(t, s.Running())

	// Stopping again is a no-op.
	s.Stop()
	assert.False(t, s.Running())
}

func TestScheduler_Restartable(t *testing.T) {
	runner := &fakeRunner{results: map[string]string{}}
	s := New(runner, &fakeCleaner{}, Options{Interval: time.Hour})

	s.Start(context.Background())
	waitFor(t, func() bool { return runner.count() >= 1 })
	s.Stop()

	s.Start(context.Background())
	defer s.Stop()
	waitFor(t, func() bool { return runner.count() >= 2 })
	assert.True(t, s.Running())
}

func TestScheduler_ParentContextCancelStopsLoop(t *testing.T) {
	runner := &fakeRunner{results: map[string]string{}}
	s := New(runner, &fakeCleaner{}, Options{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	waitFor(t, func() bool { return runner.count() >= 1 })

	cancel()
	time.Sleep(50 * time.Millisecond)
	before := runner.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, runner.count())

	// Stop still cleans up the running flag after the loop died on its own.
	s.Stop()
	assert.False(t, s.Running())
}

func TestScheduler_CycleSurvivesPanicAndCleanupError(t *testing.T) {
	runner := &fakeRunner{panics: true}
	cleaner := &fakeCleaner{err: assert.AnError}
	sink := &fakeSink{}

	s := New(runner, cleaner, Options{Interval: 20 * time.Millisecond, Status: sink})
	s.Start(context.Background())
	defer s.Stop()

	// The loop keeps ticking despite the panicking collector and failing
	// cleanup, and the sink still sees each (empty) cycle.
	waitFor(t, func() bool { return runner.count() >= 2 })
	waitFor(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return sink.calls >= 2
	})

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Empty(t, sink.results)
}

func TestNew_Defaults(t *testing.T) {
	s := New(&fakeRunner{}, &fakeCleaner{}, Options{})
	require.Equal(t, time.Hour, s.interval)
	require.Equal(t, 365, s.retentionDays)
	assert.False(t, s.Running())
}
