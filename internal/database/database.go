package database

import (
	"database/sql"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/akruglov/chronometer/internal/models"
)

// timeLayout is the stored timestamp format. Timestamps are written as
// naive wall-clock time in the database's timezone, so sqlite's date()
// groups rows by that timezone's calendar day. Storing an offset would make
// date() fall back to the UTC day instead.
const timeLayout = "2006-01-02 15:04:05"

type DB struct {
	*sql.DB
	loc *time.Location
}

// New opens (or creates) the database at path and applies the schema. All
// timestamps are stored and grouped in loc. A schema failure here is the
// only storage error that is fatal to startup.
func New(path string, loc *time.Location) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	if loc == nil {
		loc = time.Local
	}
	d := &DB{db, loc}
	if err := d.migrate(); err != nil {
		return nil, err
	}

	slog.Info("database initialized", "path", path)
	return d, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			start_time TEXT NOT NULL,
			end_time TEXT,
			status TEXT NOT NULL,
			total_duration INTEGER DEFAULT 0,
			active_duration INTEGER DEFAULT 0,
			idle_duration INTEGER DEFAULT 0,
			breaks_count INTEGER DEFAULT 0,
			notes TEXT DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON sessions(start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status)`,

		`CREATE TABLE IF NOT EXISTS activities (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			application_name TEXT NOT NULL,
			window_title TEXT,
			start_time TEXT NOT NULL,
			end_time TEXT,
			duration INTEGER DEFAULT 0,
			activity_type TEXT DEFAULT 'unknown',
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_session ON activities(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_start_time ON activities(start_time)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

// --- Session operations ---

// SaveSession upserts a session by id in a single statement.
func (db *DB) SaveSession(s *models.Session) error {
	_, err := db.Exec(`
		INSERT INTO sessions (id, start_time, end_time, status, total_duration, active_duration, idle_duration, breaks_count, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			status = excluded.status,
			total_duration = excluded.total_duration,
			active_duration = excluded.active_duration,
			idle_duration = excluded.idle_duration,
			breaks_count = excluded.breaks_count,
			notes = excluded.notes
	`, s.ID, db.formatTime(s.StartTime), db.formatNullableTime(s.EndTime), string(s.Status),
		s.TotalDuration, s.ActiveDuration, s.IdleDuration, s.BreaksCount, s.Notes)
	return err
}

// GetSession returns the session with the given id, or nil if not found.
func (db *DB) GetSession(id string) (*models.Session, error) {
	row := db.QueryRow(`
		SELECT id, start_time, end_time, status, total_duration, active_duration, idle_duration, breaks_count, notes
		FROM sessions WHERE id = ?
	`, id)
	return db.scanSession(row)
}

// GetActiveSession returns the most recent session that is still active or
// paused, or nil when none exists. Used at startup to resume an interrupted
// session.
func (db *DB) GetActiveSession() (*models.Session, error) {
	row := db.QueryRow(`
		SELECT id, start_time, end_time, status, total_duration, active_duration, idle_duration, breaks_count, notes
		FROM sessions
		WHERE status IN ('active', 'paused')
		ORDER BY start_time DESC
		LIMIT 1
	`)
	return db.scanSession(row)
}

// GetSessionsByDate returns all sessions that started on the given calendar
// date in the database's timezone, newest first.
func (db *DB) GetSessionsByDate(date time.Time) ([]*models.Session, error) {
	rows, err := db.Query(`
		SELECT id, start_time, end_time, status, total_duration, active_duration, idle_duration, breaks_count, notes
		FROM sessions
		WHERE date(start_time) = ?
		ORDER BY start_time DESC
	`, date.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := db.scanSessionFrom(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// --- Activity operations ---

// SaveActivity upserts an activity record by id.
func (db *DB) SaveActivity(a *models.Activity) error {
	_, err := db.Exec(`
		INSERT INTO activities (id, session_id, application_name, window_title, start_time, end_time, duration, activity_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			session_id = excluded.session_id,
			application_name = excluded.application_name,
			window_title = excluded.window_title,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			duration = excluded.duration,
			activity_type = excluded.activity_type
	`, a.ID, a.SessionID, a.ApplicationName, a.WindowTitle, db.formatTime(a.StartTime),
		db.formatNullableTime(a.EndTime), a.Duration, string(a.Type))
	return err
}

// GetActivitiesBySession returns all activity records for a session, newest
// first.
func (db *DB) GetActivitiesBySession(sessionID string) ([]*models.Activity, error) {
	rows, err := db.Query(`
		SELECT id, session_id, application_name, window_title, start_time, end_time, duration, activity_type
		FROM activities
		WHERE session_id = ?
		ORDER BY start_time DESC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []*models.Activity
	for rows.Next() {
		a, err := db.scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// --- Aggregation queries ---

// GetAppStatistics sums activity duration per application for one day.
func (db *DB) GetAppStatistics(date time.Time) (map[string]int, error) {
	rows, err := db.Query(`
		SELECT application_name, SUM(duration) AS total_duration
		FROM activities
		WHERE date(start_time) = ?
		GROUP BY application_name
		ORDER BY total_duration DESC
	`, date.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var app string
		var total int
		if err := rows.Scan(&app, &total); err != nil {
			return nil, err
		}
		stats[app] = total
	}
	return stats, rows.Err()
}

// GetProductivityStats sums activity duration per classification for one day.
func (db *DB) GetProductivityStats(date time.Time) (*models.ProductivityStats, error) {
	rows, err := db.Query(`
		SELECT activity_type, SUM(duration) AS total_duration
		FROM activities
		WHERE date(start_time) = ?
		GROUP BY activity_type
	`, date.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &models.ProductivityStats{}
	for rows.Next() {
		var typ string
		var total int
		if err := rows.Scan(&typ, &total); err != nil {
			return nil, err
		}
		switch models.ActivityType(typ) {
		case models.ActivityProductive:
			stats.Productive = total
		case models.ActivityDistracting:
			stats.Distracting = total
		case models.ActivityNeutral:
			stats.Neutral = total
		}
	}
	return stats, rows.Err()
}

// GetDailyStats aggregates sessions that started on the given date.
func (db *DB) GetDailyStats(date time.Time) (*models.DailyStats, error) {
	stats := &models.DailyStats{Date: date.Format("2006-01-02")}
	err := db.QueryRow(`
		SELECT
			COUNT(*) AS sessions_count,
			COALESCE(SUM(total_duration), 0) AS total_time,
			COALESCE(SUM(active_duration), 0) AS active_time,
			COALESCE(SUM(breaks_count), 0) AS breaks_count
		FROM sessions
		WHERE date(start_time) = ?
	`, stats.Date).Scan(&stats.SessionsCount, &stats.TotalTime, &stats.ActiveTime, &stats.BreaksCount)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// GetWeeklyStats returns one row per date in [start, end] that has at least
// one session.
func (db *DB) GetWeeklyStats(start, end time.Time) ([]*models.DailyStats, error) {
	rows, err := db.Query(`
		SELECT
			date(start_time) AS date,
			COUNT(*) AS sessions_count,
			COALESCE(SUM(total_duration), 0) AS total_time,
			COALESCE(SUM(active_duration), 0) AS active_time
		FROM sessions
		WHERE date(start_time) BETWEEN ? AND ?
		GROUP BY date(start_time)
		ORDER BY date(start_time)
	`, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*models.DailyStats
	for rows.Next() {
		s := &models.DailyStats{}
		if err := rows.Scan(&s.Date, &s.SessionsCount, &s.TotalTime, &s.ActiveTime); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// --- Scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func (db *DB) scanSession(row *sql.Row) (*models.Session, error) {
	s, err := db.scanSessionFrom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (db *DB) scanSessionFrom(r rowScanner) (*models.Session, error) {
	var s models.Session
	var startStr string
	var endStr sql.NullString
	var status string
	if err := r.Scan(&s.ID, &startStr, &endStr, &status, &s.TotalDuration,
		&s.ActiveDuration, &s.IdleDuration, &s.BreaksCount, &s.Notes); err != nil {
		return nil, err
	}
	s.Status = models.SessionStatus(status)
	var err error
	if s.StartTime, err = db.parseTime(startStr); err != nil {
		return nil, err
	}
	if s.EndTime, err = db.parseNullableTime(endStr); err != nil {
		return nil, err
	}
	return &s, nil
}

func (db *DB) scanActivity(r rowScanner) (*models.Activity, error) {
	var a models.Activity
	var startStr string
	var endStr, title sql.NullString
	var typ string
	if err := r.Scan(&a.ID, &a.SessionID, &a.ApplicationName, &title, &startStr,
		&endStr, &a.Duration, &typ); err != nil {
		return nil, err
	}
	a.WindowTitle = title.String
	a.Type = models.ActivityType(typ)
	var err error
	if a.StartTime, err = db.parseTime(startStr); err != nil {
		return nil, err
	}
	if a.EndTime, err = db.parseNullableTime(endStr); err != nil {
		return nil, err
	}
	return &a, nil
}

func (db *DB) formatTime(t time.Time) string {
	return t.In(db.loc).Format(timeLayout)
}

func (db *DB) formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return db.formatTime(*t)
}

func (db *DB) parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, s, db.loc)
}

func (db *DB) parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := db.parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
