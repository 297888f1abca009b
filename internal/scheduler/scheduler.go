// Package scheduler coalesces bursts of recompute requests into a single run.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bep/debounce"
	"go.opentelemetry.io/otel/metric"
)

// DefaultDelay is the quiet period after the last request before the work runs.
const DefaultDelay = 100 * time.Millisecond

// Scheduler runs its work function once after requests stop arriving for the delay.
// Every Request cancels the pending run and reschedules it.
type Scheduler struct {
	mu        sync.Mutex
	runMu     sync.Mutex
	debounced func(f func())
	work      func()
	pending   bool
	stopped   bool

	requested metric.Int64Counter
	runs      metric.Int64Counter
}

// New creates a scheduler. A non-positive delay uses DefaultDelay.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(delay time.Duration, work func()) (*Scheduler, error) {
	if delay <= 0 {
		delay = DefaultDelay
	}
	s := &Scheduler{
		debounced: debounce.New(delay),
		work:      work,
	}

	m := meter()
	var err error
	s.requested, err = m.Int64Counter(
		"scheduler.requests",
		metric.WithDescription("Total recompute requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating requests counter: %w", err)
	}
	s.runs, err = m.Int64Counter(
		"scheduler.runs",
		metric.WithDescription("Total coalesced runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating runs counter: %w", err)
	}
	return s, nil
}

// Request schedules a run, replacing any pending one. Requests after Stop are ignored.
func (s *Scheduler) Request() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.pending = true
	s.mu.Unlock()

	s.requested.Add(context.Background(), 1)
	s.debounced(func() { s.fire() })
}

// Flush runs pending work immediately on the calling goroutine.
// It reports whether anything was pending.
func (s *Scheduler) Flush() bool {
	return s.fire()
}

// Stop cancels pending work and disables further requests.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = false
	s.stopped = true
}

func (s *Scheduler) fire() bool {
	s.mu.Lock()
	if !s.pending || s.stopped {
		s.mu.Unlock()
		return false
	}
	s.pending = false
	s.mu.Unlock()

	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.work()
	s.runs.Add(context.Background(), 1)
	return true
}
