// Package monitor polls the platform probes, maintains the currently open
// activity record for the session being tracked, and raises idle/return
// events.
package monitor

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/akruglov/chronometer/internal/config"
	"github.com/akruglov/chronometer/internal/database"
	"github.com/akruglov/chronometer/internal/events"
	"github.com/akruglov/chronometer/internal/models"
	"github.com/akruglov/chronometer/internal/probe"
)

const pollInterval = 2 * time.Second

// Monitor owns idle detection and foreground-activity capture. Probe
// failures are never fatal: they are logged at debug level and the poll
// carries on as if nothing changed.
type Monitor struct {
	db    *database.DB
	cfg   *config.Config
	probe probe.Probe
	bus   *events.Bus
	now   func() time.Time

	mu         sync.Mutex
	monitoring bool
	sessionID  string
	isIdle     bool
	current    *models.Activity
	lastApp    string
	lastTitle  string
}

func New(db *database.DB, cfg *config.Config, p probe.Probe) *Monitor {
	return &Monitor{
		db:    db,
		cfg:   cfg,
		probe: p,
		bus:   events.NewBus(),
		now:   time.Now,
	}
}

// Events returns the monitor's event stream.
func (m *Monitor) Events() *events.Bus { return m.bus }

// StartMonitoring begins polling on behalf of the given session. The session
// id is only stored as a foreign key for activity records.
func (m *Monitor) StartMonitoring(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessionID = sessionID
	m.monitoring = true
	m.isIdle = false
	m.lastApp = ""
	m.lastTitle = ""
	slog.Info("activity monitoring started", "session_id", sessionID)
}

// StopMonitoring closes any open activity record and stops polling.
// Idempotent.
func (m *Monitor) StopMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.monitoring {
		return
	}
	m.monitoring = false
	m.closeCurrentLocked()
	slog.Info("activity monitoring stopped")
}

// IsMonitoring reports whether the poll is live.
func (m *Monitor) IsMonitoring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monitoring
}

// IsIdle reports whether the user is currently considered idle.
func (m *Monitor) IsIdle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isIdle
}

// Current returns a copy of the open activity record, or nil.
func (m *Monitor) Current() *models.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	c := *m.current
	return &c
}

// Run drives the poll until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Poll()
		}
	}
}

// Poll runs one monitoring cycle: idle check first, then foreground capture
// when the user is not idle.
func (m *Monitor) Poll() {
	m.mu.Lock()
	if !m.monitoring {
		m.mu.Unlock()
		return
	}

	var evs []events.Event

	if m.cfg.IdleDetectionEnabled {
		evs = append(evs, m.checkIdleLocked()...)
	}
	if !m.isIdle {
		evs = append(evs, m.checkForegroundLocked()...)
	}
	m.mu.Unlock()

	for _, ev := range evs {
		m.bus.Publish(ev)
	}
}

// checkIdleLocked evaluates the idle threshold. A probe failure leaves the
// idle state untouched.
func (m *Monitor) checkIdleLocked() []events.Event {
	idleSeconds, err := m.probe.IdleSeconds()
	if err != nil {
		slog.Debug("idle probe failed", "error", err)
		return nil
	}

	if idleSeconds >= m.cfg.IdleTimeout {
		if !m.isIdle {
			m.isIdle = true
			slog.Info("idle detected", "idle_seconds", idleSeconds)
			return []events.Event{{Type: events.IdleDetected, IdleSeconds: idleSeconds}}
		}
	} else if m.isIdle {
		m.isIdle = false
		slog.Info("user returned")
		return []events.Event{{Type: events.UserReturned}}
	}
	return nil
}

// checkForegroundLocked closes and reopens the activity record when the
// foreground application changes.
func (m *Monitor) checkForegroundLocked() []events.Event {
	app, title, err := m.probe.ForegroundWindow()
	if err != nil {
		slog.Debug("foreground probe failed", "error", err)
		return nil
	}
	if app == "" || app == m.lastApp {
		return nil
	}

	m.closeCurrentLocked()

	now := m.now()
	m.current = models.NewActivity(m.sessionID, app, title,
		Classify(app, m.cfg.ProductiveApps, m.cfg.DistractingApps), now)
	if err := m.db.SaveActivity(m.current); err != nil {
		slog.Error("failed to save activity", "id", m.current.ID, "error", err)
	}

	m.lastApp = app
	m.lastTitle = title
	return []events.Event{{Type: events.ActivityChanged, AppName: app, WindowTitle: title}}
}

// closeCurrentLocked finishes the open activity record, if any, and persists
// it with its final duration.
func (m *Monitor) closeCurrentLocked() {
	if m.current == nil {
		return
	}
	m.current.Stop(m.now())
	if err := m.db.SaveActivity(m.current); err != nil {
		slog.Error("failed to save activity", "id", m.current.ID, "error", err)
	}
	m.current = nil
}

// Classify assigns a productivity label by case-insensitive substring match
// against the configured app lists. Productive wins over distracting.
func Classify(appName string, productive, distracting []string) models.ActivityType {
	lower := strings.ToLower(appName)

	for _, app := range productive {
		if app != "" && strings.Contains(lower, strings.ToLower(app)) {
			return models.ActivityProductive
		}
	}
	for _, app := range distracting {
		if app != "" && strings.Contains(lower, strings.ToLower(app)) {
			return models.ActivityDistracting
		}
	}
	return models.ActivityNeutral
}
