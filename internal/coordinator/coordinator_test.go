package coordinator

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/akruglov/chronometer/internal/breaks"
	"github.com/akruglov/chronometer/internal/config"
	"github.com/akruglov/chronometer/internal/database"
	"github.com/akruglov/chronometer/internal/monitor"
	"github.com/akruglov/chronometer/internal/notify"
	"github.com/akruglov/chronometer/internal/tracker"
)

type fakeProbe struct {
	idle int
	app  string
}

func (p *fakeProbe) IdleSeconds() (int, error) { return p.idle, nil }

func (p *fakeProbe) ForegroundWindow() (string, string, error) { return p.app, "", nil }

type engine struct {
	db      *database.DB
	probe   *fakeProbe
	tracker *tracker.Tracker
	monitor *monitor.Monitor
	breaks  *breaks.Scheduler
}

func testEngine(t *testing.T) *engine {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), time.Local)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		ShortBreakInterval:   25,
		ShortBreakDuration:   5,
		LongBreakInterval:    100,
		LongBreakDuration:    15,
		IdleDetectionEnabled: true,
		IdleTimeout:          300,
		ProductiveApps:       []string{"code"},
		DistractingApps:      []string{"youtube"},
	}

	e := &engine{
		db:    db,
		probe: &fakeProbe{},
	}
	e.tracker = tracker.New(db)
	e.monitor = monitor.New(db, cfg, e.probe)
	e.breaks = breaks.New(cfg)
	New(e.tracker, e.monitor, e.breaks, notify.New(false, "", ""))
	return e
}

// tickBreaks drives the break scheduler n seconds forward and reports how
// far the counter actually moved. The counter only runs while ticking.
func tickBreaks(e *engine, n int) int {
	before := e.breaks.WorkSeconds()
	for i := 0; i < n; i++ {
		e.breaks.Tick()
	}
	return e.breaks.WorkSeconds() - before
}

func TestSessionStartedWiresMonitorAndBreaks(t *testing.T) {
	e := testEngine(t)

	e.tracker.Start()

	if !e.monitor.IsMonitoring() {
		t.Error("monitor should be started with the session")
	}
	if !e.breaks.IsActive() {
		t.Error("break scheduler should be started with the session")
	}

	// The monitor records against the new session's id.
	e.probe.app = "code"
	e.monitor.Poll()
	current := e.monitor.Current()
	if current == nil || current.SessionID != e.tracker.Current().ID {
		t.Errorf("activity not bound to session: %+v", current)
	}
}

func TestPauseResumeGateBreakCounter(t *testing.T) {
	e := testEngine(t)
	e.tracker.Start()

	if got := tickBreaks(e, 10); got != 10 {
		t.Fatalf("break counter advanced %d while active, want 10", got)
	}

	e.tracker.Pause()
	if got := tickBreaks(e, 10); got != 0 {
		t.Errorf("break counter advanced %d while paused, want 0", got)
	}

	e.tracker.Start() // resume
	if got := tickBreaks(e, 5); got != 5 {
		t.Errorf("break counter advanced %d after resume, want 5", got)
	}
}

func TestSessionStoppedStopsMonitorAndBreaks(t *testing.T) {
	e := testEngine(t)
	e.tracker.Start()
	e.probe.app = "code"
	e.monitor.Poll()

	e.tracker.Stop()

	if e.monitor.IsMonitoring() {
		t.Error("monitor should be stopped with the session")
	}
	if e.breaks.IsActive() {
		t.Error("break scheduler should be stopped with the session")
	}

	// The open activity was flushed.
	activities, _ := e.db.GetActivitiesBySession(e.trackerStoppedSessionID(t))
	if len(activities) != 1 || activities[0].EndTime == nil {
		t.Errorf("open activity not flushed on stop: %+v", activities)
	}
}

// trackerStoppedSessionID digs the completed session out of the store.
func (e *engine) trackerStoppedSessionID(t *testing.T) string {
	t.Helper()
	sessions, err := e.db.GetSessionsByDate(time.Now())
	if err != nil || len(sessions) == 0 {
		t.Fatalf("no sessions found: %v", err)
	}
	return sessions[0].ID
}

func TestIdleAutoPausesActiveSession(t *testing.T) {
	e := testEngine(t)
	e.tracker.Start()

	e.probe.idle = 400
	e.monitor.Poll()

	if !e.tracker.IsPaused() {
		t.Error("tracker should auto-pause on idle")
	}
	if got := tickBreaks(e, 5); got != 0 {
		t.Errorf("break counter advanced %d after idle pause, want 0", got)
	}
}

func TestUserReturnedDoesNotAutoResume(t *testing.T) {
	e := testEngine(t)
	e.tracker.Start()

	e.probe.idle = 400
	e.monitor.Poll()
	e.probe.idle = 10
	e.monitor.Poll()

	if !e.tracker.IsPaused() {
		t.Error("return from idle must not auto-resume; resuming is a user action")
	}

	// An explicit start resumes.
	e.tracker.Start()
	if e.tracker.IsPaused() || !e.tracker.IsRunning() {
		t.Error("explicit start should resume the session")
	}
}

func TestIdleWhileAlreadyPausedIsHarmless(t *testing.T) {
	e := testEngine(t)
	e.tracker.Start()
	e.tracker.Pause()
	breaksBefore := e.tracker.Current().BreaksCount

	e.probe.idle = 400
	e.monitor.Poll()

	if e.tracker.Current().BreaksCount != breaksBefore {
		t.Error("idle on a paused session must not double-count a break")
	}
}

func TestBootstrapRestoredActiveSession(t *testing.T) {
	e := testEngine(t)
	e.tracker.Start()
	id := e.tracker.Current().ID

	// Simulate a restart: fresh components over the same database.
	e2 := &engine{db: e.db, probe: &fakeProbe{}}
	cfg := &config.Config{
		ShortBreakInterval: 25, ShortBreakDuration: 5,
		LongBreakInterval: 100, LongBreakDuration: 15,
		IdleDetectionEnabled: true, IdleTimeout: 300,
	}
	e2.tracker = tracker.New(e.db)
	e2.monitor = monitor.New(e.db, cfg, e2.probe)
	e2.breaks = breaks.New(cfg)
	c := New(e2.tracker, e2.monitor, e2.breaks, notify.New(false, "", ""))

	if err := e2.tracker.Restore(); err != nil {
		t.Fatal(err)
	}
	c.Bootstrap()

	if got := e2.tracker.Current(); got == nil || got.ID != id {
		t.Fatalf("restored wrong session: %+v", got)
	}
	if !e2.monitor.IsMonitoring() {
		t.Error("monitoring should be bootstrapped for a restored active session")
	}
	if !e2.breaks.IsActive() {
		t.Error("break scheduler should be bootstrapped for a restored active session")
	}
}

func TestBootstrapRestoredPausedSessionStaysPaused(t *testing.T) {
	e := testEngine(t)
	e.tracker.Start()
	e.tracker.Pause()

	e2tracker := tracker.New(e.db)
	cfg := &config.Config{
		ShortBreakInterval: 25, ShortBreakDuration: 5,
		LongBreakInterval: 100, LongBreakDuration: 15,
	}
	e2monitor := monitor.New(e.db, cfg, &fakeProbe{})
	e2breaks := breaks.New(cfg)
	c := New(e2tracker, e2monitor, e2breaks, notify.New(false, "", ""))

	if err := e2tracker.Restore(); err != nil {
		t.Fatal(err)
	}
	c.Bootstrap()

	if !e2tracker.IsPaused() {
		t.Fatal("restored session should stay paused")
	}
	e2breaks.Tick()
	if e2breaks.WorkSeconds() != 0 {
		t.Error("break counter must not run for a restored paused session")
	}

	// Resuming brings the counter back.
	e2tracker.Start()
	e2breaks.Tick()
	if e2breaks.WorkSeconds() != 1 {
		t.Error("break counter should resume with the session")
	}
}
