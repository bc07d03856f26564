// Package tracker owns the lifecycle of the current work session and its
// elapsed-time clock.
package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/akruglov/chronometer/internal/database"
	"github.com/akruglov/chronometer/internal/events"
	"github.com/akruglov/chronometer/internal/models"
)

// saveEvery bounds persistence I/O on the 1 Hz tick: the running session is
// written on every 60th tick, so at most 59 seconds of clock are lost on a
// crash.
const saveEvery = 60

// Tracker is the session state machine. All commands and the tick are
// serialized behind one mutex; invalid commands are no-ops rather than
// errors, so redundant calls from the UI layer are harmless. Events are
// published after the lock is released, so subscribers may call into any
// component.
type Tracker struct {
	db  *database.DB
	bus *events.Bus
	now func() time.Time

	mu      sync.Mutex
	current *models.Session
	elapsed int
	running bool
}

func New(db *database.DB) *Tracker {
	return &Tracker{
		db:  db,
		bus: events.NewBus(),
		now: time.Now,
	}
}

// Events returns the tracker's event stream.
func (t *Tracker) Events() *events.Bus { return t.bus }

// Restore adopts the most recent non-completed session, if any. A session
// that was paused when the process died stays paused; an active one resumes
// ticking.
func (t *Tracker) Restore() error {
	session, err := t.db.GetActiveSession()
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}

	t.mu.Lock()
	t.current = session
	t.elapsed = session.TotalDuration
	t.running = session.IsActive()
	t.mu.Unlock()

	slog.Info("restored session", "id", session.ID, "status", session.Status, "elapsed", session.TotalDuration)
	return nil
}

// Start begins a new session, or resumes the current one if it is paused.
// Calling Start while already active is a no-op.
func (t *Tracker) Start() {
	t.mu.Lock()
	var ev *events.Event
	switch {
	case t.current == nil:
		t.current = models.NewSession(t.now())
		t.elapsed = 0
		t.running = true
		t.save(t.current)
		slog.Info("session started", "id", t.current.ID)
		ev = &events.Event{Type: events.SessionStarted, Session: t.current}
	case t.current.IsPaused():
		t.current.Resume()
		t.running = true
		t.save(t.current)
		slog.Info("session resumed", "id", t.current.ID)
		ev = &events.Event{Type: events.SessionResumed, Session: t.current}
	}
	t.mu.Unlock()

	if ev != nil {
		t.bus.Publish(*ev)
	}
}

// Pause suspends the current session. Only valid while active.
func (t *Tracker) Pause() {
	t.mu.Lock()
	if t.current == nil || !t.current.IsActive() {
		t.mu.Unlock()
		return
	}

	t.running = false
	t.current.Pause()
	t.current.BreaksCount++
	t.save(t.current)
	id := t.current.ID
	t.mu.Unlock()

	slog.Info("session paused", "id", id)
	t.bus.Publish(events.Event{Type: events.SessionPaused})
}

// Stop completes the current session. Calling Stop with no session is a
// no-op.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if t.current == nil {
		t.mu.Unlock()
		return
	}

	t.running = false
	t.current.Complete(t.now())
	t.save(t.current)

	completed := t.current
	t.current = nil
	t.elapsed = 0
	t.mu.Unlock()

	slog.Info("session completed", "id", completed.ID, "total", completed.TotalDuration)
	t.bus.Publish(events.Event{Type: events.SessionStopped, Session: completed})
}

// Flush persists the current session immediately, without changing its
// state. Used at shutdown so at most the batching window is ever at risk,
// and a clean exit loses nothing.
func (t *Tracker) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		t.save(t.current)
	}
}

// Current returns a copy of the current session, or nil.
func (t *Tracker) Current() *models.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return nil
	}
	c := *t.current
	return &c
}

// Elapsed returns the elapsed seconds of the current session.
func (t *Tracker) Elapsed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed
}

// IsRunning reports whether the clock is ticking.
func (t *Tracker) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// IsPaused reports whether the current session is paused.
func (t *Tracker) IsPaused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current != nil && t.current.IsPaused()
}

// Run drives the 1 Hz clock until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick()
		}
	}
}

// Tick advances the clock by one second while a session is active.
func (t *Tracker) Tick() {
	t.mu.Lock()
	if !t.running || t.current == nil {
		t.mu.Unlock()
		return
	}

	t.elapsed++
	t.current.TotalDuration = t.elapsed
	t.current.ActiveDuration = t.elapsed

	if t.elapsed%saveEvery == 0 {
		t.save(t.current)
	}
	elapsed := t.elapsed
	t.mu.Unlock()

	t.bus.Publish(events.Event{Type: events.TimeUpdated, Elapsed: elapsed})
}

// save persists the session. A write failure is logged and retried at the
// next save point instead of blocking the tick.
func (t *Tracker) save(s *models.Session) {
	if err := t.db.SaveSession(s); err != nil {
		slog.Error("failed to save session", "id", s.ID, "error", err)
	}
}
