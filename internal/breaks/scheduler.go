// Package breaks counts accumulated active work time and raises short/long
// break reminders at minute boundaries.
package breaks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/akruglov/chronometer/internal/config"
	"github.com/akruglov/chronometer/internal/events"
)

// Scheduler is a pure counter-driven reminder generator with no persistence
// of its own. Pause and Resume gate the tick without touching the counter,
// so a resumed session keeps counting from where it left off.
type Scheduler struct {
	cfg *config.Config
	bus *events.Bus

	mu          sync.Mutex
	workSeconds int
	isActive    bool
	ticking     bool
}

func New(cfg *config.Config) *Scheduler {
	return &Scheduler{
		cfg: cfg,
		bus: events.NewBus(),
	}
}

// Events returns the scheduler's event stream.
func (s *Scheduler) Events() *events.Bus { return s.bus }

// Start begins counting work time. The counter is deliberately not reset.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isActive = true
	s.ticking = true
	slog.Info("break scheduler started", "work_seconds", s.workSeconds)
}

// Pause suspends the counter without resetting it.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticking = false
}

// Resume restarts the counter after a pause.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isActive {
		s.ticking = true
	}
}

// Stop deactivates the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isActive = false
	s.ticking = false
}

// Reset zeroes the work counter. Called after a break is acknowledged.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workSeconds = 0
}

// WorkSeconds returns the accumulated work time.
func (s *Scheduler) WorkSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workSeconds
}

// IsActive reports whether the scheduler has been started and not stopped.
func (s *Scheduler) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isActive
}

// Run drives the 1 Hz counter until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick advances the counter and fires a reminder exactly on minute
// boundaries. The long-break check takes priority; short and long reminders
// are never emitted on the same tick.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	if !s.ticking {
		s.mu.Unlock()
		return
	}

	s.workSeconds++
	var evs []events.Event
	if s.workSeconds%60 == 0 {
		workMinutes := s.workSeconds / 60
		switch {
		case workMinutes%s.cfg.LongBreakInterval == 0:
			slog.Info("long break due", "work_minutes", workMinutes)
			evs = []events.Event{
				{Type: events.LongBreakDue},
				{Type: events.BreakReminder, BreakKind: "long", DurationMinutes: s.cfg.LongBreakDuration},
			}
		case workMinutes%s.cfg.ShortBreakInterval == 0:
			slog.Info("short break due", "work_minutes", workMinutes)
			evs = []events.Event{
				{Type: events.ShortBreakDue},
				{Type: events.BreakReminder, BreakKind: "short", DurationMinutes: s.cfg.ShortBreakDuration},
			}
		}
	}
	s.mu.Unlock()

	for _, ev := range evs {
		s.bus.Publish(ev)
	}
}
