// Package coordinator wires the tracker, activity monitor and break
// scheduler together. It owns the reaction contract between them: each
// component only ever sees its own commands and event stream.
package coordinator

import (
	"fmt"
	"log/slog"

	"github.com/akruglov/chronometer/internal/breaks"
	"github.com/akruglov/chronometer/internal/events"
	"github.com/akruglov/chronometer/internal/models"
	"github.com/akruglov/chronometer/internal/monitor"
	"github.com/akruglov/chronometer/internal/notify"
	"github.com/akruglov/chronometer/internal/tracker"
)

type Coordinator struct {
	tracker  *tracker.Tracker
	monitor  *monitor.Monitor
	breaks   *breaks.Scheduler
	notifier *notify.Notifier
}

// New subscribes the coordinator to all three components. Wiring happens
// once, at construction.
func New(t *tracker.Tracker, m *monitor.Monitor, b *breaks.Scheduler, n *notify.Notifier) *Coordinator {
	c := &Coordinator{tracker: t, monitor: m, breaks: b, notifier: n}

	t.Events().Subscribe(c.onTrackerEvent)
	m.Events().Subscribe(c.onMonitorEvent)
	b.Events().Subscribe(c.onBreakEvent)

	return c
}

// Bootstrap aligns the monitor and break scheduler with a session restored
// at startup. Restore does not emit lifecycle events, so the reaction
// contract has to be replayed for the adopted session: an active session
// gets monitoring and a counting break scheduler, a paused one stays paused
// but is set up so a later resume starts the counter again.
func (c *Coordinator) Bootstrap() {
	s := c.tracker.Current()
	if s == nil {
		return
	}

	switch {
	case s.IsActive():
		c.monitor.StartMonitoring(s.ID)
		c.breaks.Start()
	case s.IsPaused():
		// Monitoring keeps running across a pause, matching the state a
		// live pause would have left behind.
		c.monitor.StartMonitoring(s.ID)
		c.breaks.Start()
		c.breaks.Pause()
	}
}

func (c *Coordinator) onTrackerEvent(ev events.Event) {
	switch ev.Type {
	case events.SessionStarted:
		c.monitor.StartMonitoring(ev.Session.ID)
		c.breaks.Start()
	case events.SessionResumed:
		c.breaks.Resume()
	case events.SessionPaused:
		c.breaks.Pause()
	case events.SessionStopped:
		c.monitor.StopMonitoring()
		c.breaks.Stop()
		c.notifySessionSummary(ev.Session)
	}
}

func (c *Coordinator) onMonitorEvent(ev events.Event) {
	switch ev.Type {
	case events.IdleDetected:
		// Auto-pause is unconditional: an idle user is not working.
		if c.tracker.IsRunning() {
			slog.Info("auto-pausing session on idle", "idle_seconds", ev.IdleSeconds)
			c.tracker.Pause()
		}
	case events.UserReturned:
		// Resuming is a user decision; only surface a prompt.
		if c.tracker.IsPaused() {
			c.notifier.Notify("user_returned", "Welcome back",
				"Tracking is paused. Resume your session when you are ready.")
		}
	}
}

func (c *Coordinator) onBreakEvent(ev events.Event) {
	if ev.Type != events.BreakReminder {
		return
	}

	title := "Time for a short break"
	if ev.BreakKind == "long" {
		title = "Time for a long break"
	}
	c.notifier.Notify("break_reminder", title,
		fmt.Sprintf("Step away for %d minutes.", ev.DurationMinutes))
}

func (c *Coordinator) notifySessionSummary(s *models.Session) {
	if s == nil {
		return
	}
	c.notifier.Notify("session_completed", "Session completed",
		fmt.Sprintf("You worked %s with %d breaks.",
			models.FormatDuration(s.TotalDuration), s.BreaksCount))
}
