// Package session owns the working snapshot of one calculator instance and keeps
// its scene up to date through the coalescing scheduler.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/artycalc/artycalc/internal/correction"
	"github.com/artycalc/artycalc/internal/scene"
	"github.com/artycalc/artycalc/internal/scheduler"
	"github.com/artycalc/artycalc/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Listener receives every freshly computed scene.
type Listener func(scene.Scene)

// Session holds the snapshot and the latest scene
type Session struct {
	mu        sync.RWMutex
	snap      *core.Snapshot
	latest    scene.Scene
	listeners []Listener

	sched  *scheduler.Scheduler
	logger *slog.Logger

	recomputes   metric.Int64Counter
	calibrations metric.Int64Counter
}

// New creates a session with a fresh snapshot. Edits are recomputed after delay
// of inactivity. A nil logger uses slog.Default().
func New(delay time.Duration, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		snap:   core.NewSnapshot(),
		logger: logger,
	}

	m := meter()
	var err error
	s.recomputes, err = m.Int64Counter(
		"session.recomputes",
		metric.WithDescription("Total scene recomputes"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating recompute counter: %w", err)
	}
	s.calibrations, err = m.Int64Counter(
		"session.calibrations",
		metric.WithDescription("Total calibration requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating calibration counter: %w", err)
	}

	s.sched, err = scheduler.New(delay, func() { s.Recompute() })
	if err != nil {
		return nil, err
	}
	s.latest = scene.Recompute(s.snap)
	return s, nil
}

// OnScene registers a listener called after every recompute.
func (s *Session) OnScene(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Snapshot returns a copy of the current snapshot.
func (s *Session) Snapshot() core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Scene returns the most recently computed scene.
func (s *Session) Scene() scene.Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Update applies fn to the snapshot under the write lock and schedules a recompute.
// Azimuths are normalized after fn returns, even when it fails.
func (s *Session) Update(fn func(*core.Snapshot) error) error {
	s.mu.Lock()
	err := fn(s.snap)
	s.snap.Normalize()
	s.mu.Unlock()

	s.sched.Request()
	return err
}

// Load replaces the snapshot with a preset and schedules a recompute.
func (s *Session) Load(p core.Snapshot) {
	_ = s.Update(func(snap *core.Snapshot) error {
		snap.Import(p)
		return nil
	})
	s.logger.Info("preset loaded", "name", p.Name, "targets", len(p.Targets), "guns", len(p.Guns))
}

// Recompute builds the scene now, stores it and notifies listeners.
func (s *Session) Recompute() scene.Scene {
	s.mu.Lock()
	sc := scene.Recompute(s.snap)
	s.latest = sc
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	s.recomputes.Add(context.Background(), 1,
		metric.WithAttributes(attribute.Bool("valid", sc.Valid)))
	if !sc.Valid {
		for _, p := range sc.Problems {
			s.logger.Debug("scene incomplete", "entity", p.Entity, "error", p.Err)
		}
	}
	for _, l := range listeners {
		l(sc)
	}
	return sc
}

// Flush runs a pending recompute immediately.
func (s *Session) Flush() bool {
	return s.sched.Flush()
}

// Calibrate derives gun i's correction from its last hit. The scene is recomputed
// synchronously when the correction changes.
func (s *Session) Calibrate(i int) (correction.Output, bool, error) {
	s.mu.Lock()
	out, changed, err := scene.Calibrate(s.snap, i)
	s.mu.Unlock()

	s.calibrations.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("verdict", string(out.Verdict))))
	if err != nil {
		return out, false, err
	}
	s.logger.Info("gun calibrated", "gun", i, "verdict", out.Verdict,
		"correctionX", out.CorrectionX, "correctionY", out.CorrectionY)
	if changed {
		s.Recompute()
	}
	return out, changed, nil
}

// LogAttrs returns attributes describing the session, for logging.SessionHandler.
func (s *Session) LogAttrs() []slog.Attr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return []slog.Attr{
		slog.String("preset", s.snap.Name),
		slog.Int("guns", len(s.snap.Guns)),
	}
}

// Close cancels any pending recompute.
func (s *Session) Close() {
	s.sched.Stop()
}
