// Package scheduler drives periodic snapshot collection and retention
// cleanup on a fixed wall-clock cadence.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// CycleRunner runs one collection pass. Satisfied by collector.Collector.
type CycleRunner interface {
	CollectAll(ctx context.Context) map[string]string
}

// Cleaner deletes expired snapshots. Satisfied by store.Store.
type Cleaner interface {
	CleanupExpired(retentionDays int) error
}

// StatusSink receives the outcome of each collection cycle.
type StatusSink interface {
	SetCycle(results map[string]string, at time.Time)
}

// Options configure a Scheduler.
type Options struct {
	Interval      time.Duration // defaults to one hour
	RetentionDays int           // defaults to 365
	Status        StatusSink    // optional
}

// Scheduler owns the background collection loop. The caller holds the handle
// and is responsible for stopping it on shutdown; there is no package-level
// state.
type Scheduler struct {
	collector     CycleRunner
	store         Cleaner
	interval      time.Duration
	retentionDays int
	status        StatusSink

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a stopped scheduler.
func New(c CycleRunner, st Cleaner, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = 365
	}
	return &Scheduler{
		collector:     c,
		store:         st,
		interval:      opts.Interval,
		retentionDays: opts.RetentionDays,
		status:        opts.Status,
	}
}

// Start launches the collection loop. The first cycle runs immediately.
// Starting an already-running scheduler is a logged no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		slog.Warn("scheduler already running")
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(loopCtx)
	slog.Info("monitoring scheduler started",
		"interval", s.interval,
		"retention_days", s.retentionDays,
	)
}

// Stop cancels the loop and waits for it to exit. Each cycle's side effects
// are idempotent single-row operations, so cancellation at any point is
// safe; an in-flight cycle simply abandons its remaining servers. Stopping a
// stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	slog.Info("monitoring scheduler stopped")
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	s.runCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle executes one collection pass followed by retention cleanup.
// Failures in either half are logged and never stop the loop.
func (s *Scheduler) runCycle(ctx context.Context) {
	results := s.collectAll(ctx)
	slog.Info("monitoring collection done", "results", results)
	if s.status != nil {
		s.status.SetCycle(results, time.Now())
	}

	if err := s.store.CleanupExpired(s.retentionDays); err != nil {
		slog.Error("monitoring cleanup error", "error", err)
	}
}

// collectAll shields the loop from collector-level bugs: a panic inside a
// cycle is logged and treated as a failed cycle.
func (s *Scheduler) collectAll(ctx context.Context) (results map[string]string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("monitoring collection panic", "panic", r)
			results = map[string]string{}
		}
	}()
	return s.collector.CollectAll(ctx)
}
