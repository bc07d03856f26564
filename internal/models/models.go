package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a work session.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusPaused    SessionStatus = "paused"
	StatusCompleted SessionStatus = "completed"
)

// ActivityType is the productivity classification of an activity record.
type ActivityType string

const (
	ActivityProductive  ActivityType = "productive"
	ActivityNeutral     ActivityType = "neutral"
	ActivityDistracting ActivityType = "distracting"
	ActivityUnknown     ActivityType = "unknown"
)

// Session represents one continuous block of tracked work time.
type Session struct {
	ID             string        `json:"id"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        *time.Time    `json:"end_time,omitempty"`
	Status         SessionStatus `json:"status"`
	TotalDuration  int           `json:"total_duration"`  // seconds
	ActiveDuration int           `json:"active_duration"` // seconds
	IdleDuration   int           `json:"idle_duration"`   // seconds
	BreaksCount    int           `json:"breaks_count"`
	Notes          string        `json:"notes"`
}

// NewSession creates an active session starting now.
func NewSession(now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartTime: now,
		Status:    StatusActive,
	}
}

func (s *Session) IsActive() bool { return s.Status == StatusActive }
func (s *Session) IsPaused() bool { return s.Status == StatusPaused }

// Pause moves an active session to paused. Any other state is left unchanged.
func (s *Session) Pause() {
	if s.Status == StatusActive {
		s.Status = StatusPaused
	}
}

// Resume moves a paused session back to active.
func (s *Session) Resume() {
	if s.Status == StatusPaused {
		s.Status = StatusActive
	}
}

// Complete terminates the session. end_time is set only here.
func (s *Session) Complete(now time.Time) {
	s.Status = StatusCompleted
	s.EndTime = &now
}

// Activity represents one contiguous interval during which a single
// foreground application held focus.
type Activity struct {
	ID              string       `json:"id"`
	SessionID       string       `json:"session_id"`
	ApplicationName string       `json:"application_name"`
	WindowTitle     string       `json:"window_title"`
	StartTime       time.Time    `json:"start_time"`
	EndTime         *time.Time   `json:"end_time,omitempty"`
	Duration        int          `json:"duration"` // seconds, computed at close
	Type            ActivityType `json:"activity_type"`
}

// NewActivity opens a new activity record for the given session.
func NewActivity(sessionID, appName, windowTitle string, typ ActivityType, now time.Time) *Activity {
	return &Activity{
		ID:              uuid.NewString(),
		SessionID:       sessionID,
		ApplicationName: appName,
		WindowTitle:     windowTitle,
		StartTime:       now,
		Type:            typ,
	}
}

// IsOpen reports whether the record has not been closed yet.
func (a *Activity) IsOpen() bool { return a.EndTime == nil }

// Stop closes the record and computes its duration.
func (a *Activity) Stop(now time.Time) {
	a.EndTime = &now
	a.Duration = int(now.Sub(a.StartTime).Seconds())
	if a.Duration < 0 {
		a.Duration = 0
	}
}

// DailyStats is the per-day aggregate over sessions.
type DailyStats struct {
	Date          string `json:"date"`
	SessionsCount int    `json:"sessions_count"`
	TotalTime     int    `json:"total_time"`
	ActiveTime    int    `json:"active_time"`
	BreaksCount   int    `json:"breaks_count"`
}

// ProductivityStats is time spent per classification for one day.
type ProductivityStats struct {
	Productive  int `json:"productive"`
	Neutral     int `json:"neutral"`
	Distracting int `json:"distracting"`
}

// FormatClock renders seconds as HH:MM:SS.
func FormatClock(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatDuration renders seconds as a short human-readable duration.
func FormatDuration(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// WeekBounds returns the Monday and Sunday of the week containing t.
func WeekBounds(t time.Time) (time.Time, time.Time) {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	start := t.AddDate(0, 0, -(weekday - 1))
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 6)
}
