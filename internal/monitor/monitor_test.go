package monitor

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/akruglov/chronometer/internal/config"
	"github.com/akruglov/chronometer/internal/database"
	"github.com/akruglov/chronometer/internal/events"
	"github.com/akruglov/chronometer/internal/models"
)

type fakeProbe struct {
	idle    int
	idleErr error
	app     string
	title   string
	fgErr   error
}

func (p *fakeProbe) IdleSeconds() (int, error) {
	return p.idle, p.idleErr
}

func (p *fakeProbe) ForegroundWindow() (string, string, error) {
	return p.app, p.title, p.fgErr
}

func testMonitor(t *testing.T) (*Monitor, *fakeProbe, *database.DB, *[]events.Event) {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), time.UTC)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		IdleDetectionEnabled: true,
		IdleTimeout:          300,
		ProductiveApps:       []string{"code"},
		DistractingApps:      []string{"youtube"},
	}
	p := &fakeProbe{}
	m := New(db, cfg, p)

	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		clock = clock.Add(2 * time.Second)
		return clock
	}

	var recorded []events.Event
	m.Events().Subscribe(func(ev events.Event) {
		recorded = append(recorded, ev)
	})
	return m, p, db, &recorded
}

func eventTypes(evs []events.Event) []events.Type {
	types := make([]events.Type, len(evs))
	for i, ev := range evs {
		types[i] = ev.Type
	}
	return types
}

func TestFirstPollOpensActivity(t *testing.T) {
	m, p, db, recorded := testMonitor(t)
	m.StartMonitoring("s-1")
	p.app, p.title = "code", "main.go"

	m.Poll()

	current := m.Current()
	if current == nil {
		t.Fatal("no activity opened on first poll")
	}
	if current.SessionID != "s-1" || current.ApplicationName != "code" || current.WindowTitle != "main.go" {
		t.Errorf("activity fields wrong: %+v", current)
	}
	if current.Type != models.ActivityProductive {
		t.Errorf("classification = %s, want productive", current.Type)
	}
	if len(*recorded) != 1 || (*recorded)[0].Type != events.ActivityChanged {
		t.Errorf("expected one ActivityChanged, got %v", eventTypes(*recorded))
	}

	saved, err := db.GetActivitiesBySession("s-1")
	if err != nil || len(saved) != 1 {
		t.Fatalf("open activity not persisted: %v, %d", err, len(saved))
	}
	if saved[0].EndTime != nil {
		t.Error("freshly opened activity should have no end time")
	}
}

func TestAppChangeClosesPreviousActivity(t *testing.T) {
	m, p, db, recorded := testMonitor(t)
	m.StartMonitoring("s-1")

	p.app = "code"
	m.Poll()
	p.app = "youtube"
	m.Poll()

	saved, _ := db.GetActivitiesBySession("s-1")
	if len(saved) != 2 {
		t.Fatalf("expected 2 records, got %d", len(saved))
	}
	// Newest first.
	open, closed := saved[0], saved[1]
	if closed.ApplicationName != "code" || closed.EndTime == nil {
		t.Errorf("previous record not closed: %+v", closed)
	}
	if closed.Duration <= 0 {
		t.Errorf("closed duration = %d, want > 0", closed.Duration)
	}
	if open.ApplicationName != "youtube" || open.EndTime != nil {
		t.Errorf("new record wrong: %+v", open)
	}
	if open.Type != models.ActivityDistracting {
		t.Errorf("classification = %s, want distracting", open.Type)
	}
	// Records never overlap: the new one starts at or after the old close.
	if open.StartTime.Before(*closed.EndTime) {
		t.Errorf("records overlap: open %v before close %v", open.StartTime, closed.EndTime)
	}

	if got := eventTypes(*recorded); len(got) != 2 || got[0] != events.ActivityChanged || got[1] != events.ActivityChanged {
		t.Errorf("events = %v", got)
	}
}

func TestSameAppIsNoChange(t *testing.T) {
	m, p, db, recorded := testMonitor(t)
	m.StartMonitoring("s-1")

	p.app, p.title = "code", "a.go"
	m.Poll()
	p.title = "b.go" // title change alone is not an app change
	m.Poll()
	m.Poll()

	saved, _ := db.GetActivitiesBySession("s-1")
	if len(saved) != 1 {
		t.Errorf("expected 1 record, got %d", len(saved))
	}
	if len(*recorded) != 1 {
		t.Errorf("expected 1 event, got %v", eventTypes(*recorded))
	}
}

func TestIdleTransitionEmitsOnce(t *testing.T) {
	m, p, _, recorded := testMonitor(t)
	m.StartMonitoring("s-1")

	p.idle = 310
	m.Poll()
	m.Poll() // still idle, no second event
	if !m.IsIdle() {
		t.Fatal("monitor should be idle")
	}

	p.idle = 50
	m.Poll()
	if m.IsIdle() {
		t.Fatal("monitor should no longer be idle")
	}

	got := *recorded
	idleCount, returnCount := 0, 0
	for _, ev := range got {
		switch ev.Type {
		case events.IdleDetected:
			idleCount++
			if ev.IdleSeconds != 310 {
				t.Errorf("IdleDetected seconds = %d, want 310", ev.IdleSeconds)
			}
		case events.UserReturned:
			returnCount++
		}
	}
	if idleCount != 1 {
		t.Errorf("IdleDetected fired %d times, want 1", idleCount)
	}
	if returnCount != 1 {
		t.Errorf("UserReturned fired %d times, want 1", returnCount)
	}
}

func TestNoForegroundPollingWhileIdle(t *testing.T) {
	m, p, db, _ := testMonitor(t)
	m.StartMonitoring("s-1")

	p.app = "code"
	m.Poll()

	p.idle = 400
	p.app = "youtube" // changes while idle must not be recorded
	m.Poll()
	m.Poll()

	saved, _ := db.GetActivitiesBySession("s-1")
	if len(saved) != 1 {
		t.Fatalf("expected 1 record, got %d", len(saved))
	}
	// The open activity is left open during idle.
	if saved[0].EndTime != nil {
		t.Error("open activity should not be closed by idle")
	}
}

func TestIdleDetectionDisabled(t *testing.T) {
	m, p, _, recorded := testMonitor(t)
	m.cfg.IdleDetectionEnabled = false
	m.StartMonitoring("s-1")

	p.idle = 1000
	p.app = "code"
	m.Poll()

	for _, ev := range *recorded {
		if ev.Type == events.IdleDetected {
			t.Fatal("IdleDetected fired with idle detection disabled")
		}
	}
	// Foreground capture still works.
	if m.Current() == nil {
		t.Error("activity should still be captured")
	}
}

func TestProbeFailuresAreNoChange(t *testing.T) {
	m, p, db, recorded := testMonitor(t)
	m.StartMonitoring("s-1")

	p.idleErr = errors.New("no display")
	p.fgErr = errors.New("no display")
	m.Poll()

	if len(*recorded) != 0 {
		t.Errorf("no events expected on probe failure, got %v", eventTypes(*recorded))
	}
	saved, _ := db.GetActivitiesBySession("s-1")
	if len(saved) != 0 {
		t.Errorf("no records expected, got %d", len(saved))
	}

	// Idle state survives a flaky idle probe.
	p.idleErr = nil
	p.fgErr = nil
	p.idle = 400
	m.Poll()
	p.idleErr = errors.New("transient")
	m.Poll()
	if !m.IsIdle() {
		t.Error("idle state should be unchanged when the probe fails")
	}
}

func TestStopMonitoringClosesOpenActivity(t *testing.T) {
	m, p, db, _ := testMonitor(t)
	m.StartMonitoring("s-1")
	p.app = "code"
	m.Poll()

	m.StopMonitoring()
	m.StopMonitoring() // idempotent

	if m.IsMonitoring() {
		t.Error("monitoring should be stopped")
	}
	saved, _ := db.GetActivitiesBySession("s-1")
	if len(saved) != 1 {
		t.Fatalf("expected 1 record, got %d", len(saved))
	}
	if saved[0].EndTime == nil {
		t.Error("open activity not flushed on stop")
	}
}

func TestPollWithoutMonitoringIsNoOp(t *testing.T) {
	m, p, db, recorded := testMonitor(t)
	p.app = "code"

	m.Poll()

	if len(*recorded) != 0 {
		t.Errorf("no events expected, got %v", eventTypes(*recorded))
	}
	saved, _ := db.GetActivitiesBySession("")
	if len(saved) != 0 {
		t.Errorf("no records expected, got %d", len(saved))
	}
}

func TestClassify(t *testing.T) {
	productive := []string{"code"}
	distracting := []string{"youtube"}

	tests := []struct {
		app  string
		want models.ActivityType
	}{
		{"Visual Studio Code", models.ActivityProductive},
		{"YouTube Music", models.ActivityDistracting},
		{"Unknown App", models.ActivityNeutral},
		{"CODE", models.ActivityProductive},
		{"", models.ActivityNeutral},
	}
	for _, tt := range tests {
		if got := Classify(tt.app, productive, distracting); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.app, got, tt.want)
		}
	}
}

func TestClassifyProductiveWinsOverDistracting(t *testing.T) {
	// An app matching both lists is productive: the productive list is
	// consulted first.
	got := Classify("code review on youtube", []string{"code"}, []string{"youtube"})
	if got != models.ActivityProductive {
		t.Errorf("got %s, want productive", got)
	}
}
