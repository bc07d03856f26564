package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/akruglov/chronometer/internal/breaks"
	"github.com/akruglov/chronometer/internal/config"
	"github.com/akruglov/chronometer/internal/database"
	"github.com/akruglov/chronometer/internal/models"
	"github.com/akruglov/chronometer/internal/tracker"
)

type Handler struct {
	cfg     *config.Config
	db      *database.DB
	tracker *tracker.Tracker
	breaks  *breaks.Scheduler
}

func NewHandler(cfg *config.Config, db *database.DB, t *tracker.Tracker, b *breaks.Scheduler) *Handler {
	return &Handler{
		cfg:     cfg,
		db:      db,
		tracker: t,
		breaks:  b,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Stats
	mux.HandleFunc("GET /api/v1/stats/daily", h.getDailyStats)
	mux.HandleFunc("GET /api/v1/stats/weekly", h.getWeeklyStats)
	mux.HandleFunc("GET /api/v1/stats/apps", h.getAppStats)
	mux.HandleFunc("GET /api/v1/stats/productivity", h.getProductivityStats)

	// Sessions
	mux.HandleFunc("GET /api/v1/sessions", h.getSessions)
	mux.HandleFunc("GET /api/v1/sessions/current", h.getCurrentSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}/activities", h.getSessionActivities)

	// Tracker commands
	mux.HandleFunc("POST /api/v1/tracker/start", h.startTracking)
	mux.HandleFunc("POST /api/v1/tracker/pause", h.pauseTracking)
	mux.HandleFunc("POST /api/v1/tracker/stop", h.stopTracking)

	// Break commands
	mux.HandleFunc("POST /api/v1/breaks/reset", h.resetBreaks)

	// Health check
	mux.HandleFunc("GET /health", h.healthCheck)
}

// --- Response helpers ---

type APIResponse struct {
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, APIResponse{Error: message})
}

// queryDate parses the "date" query parameter, defaulting to today.
func (h *Handler) queryDate(r *http.Request) (time.Time, error) {
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		return time.Now().In(h.cfg.GetTimezone()), nil
	}
	return time.Parse("2006-01-02", dateStr)
}

// --- Stats handlers ---

// getDailyStats returns the aggregate for one day.
// GET /api/v1/stats/daily?date=2024-01-01
func (h *Handler) getDailyStats(w http.ResponseWriter, r *http.Request) {
	date, err := h.queryDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}

	stats, err := h.db.GetDailyStats(date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Data: stats})
}

// getWeeklyStats returns one row per day with sessions in the range. With no
// parameters it covers the current week.
// GET /api/v1/stats/weekly?start=2024-01-01&end=2024-01-07
func (h *Handler) getWeeklyStats(w http.ResponseWriter, r *http.Request) {
	start, end := models.WeekBounds(time.Now().In(h.cfg.GetTimezone()))

	if s := r.URL.Query().Get("start"); s != "" {
		var err error
		if start, err = time.Parse("2006-01-02", s); err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date")
			return
		}
	}
	if e := r.URL.Query().Get("end"); e != "" {
		var err error
		if end, err = time.Parse("2006-01-02", e); err != nil {
			writeError(w, http.StatusBadRequest, "invalid end date")
			return
		}
	}

	stats, err := h.db.GetWeeklyStats(start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Data: stats})
}

// getAppStats returns per-application time for one day.
// GET /api/v1/stats/apps?date=2024-01-01
func (h *Handler) getAppStats(w http.ResponseWriter, r *http.Request) {
	date, err := h.queryDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}

	stats, err := h.db.GetAppStatistics(date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Data: stats})
}

// getProductivityStats returns per-classification time for one day.
// GET /api/v1/stats/productivity?date=2024-01-01
func (h *Handler) getProductivityStats(w http.ResponseWriter, r *http.Request) {
	date, err := h.queryDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}

	stats, err := h.db.GetProductivityStats(date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Data: stats})
}

// --- Session handlers ---

// getSessions lists the sessions for one day, newest first.
// GET /api/v1/sessions?date=2024-01-01
func (h *Handler) getSessions(w http.ResponseWriter, r *http.Request) {
	date, err := h.queryDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}

	sessions, err := h.db.GetSessionsByDate(date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Data: sessions})
}

type currentSessionResponse struct {
	Session      *models.Session `json:"session"`
	Elapsed      int             `json:"elapsed_seconds"`
	ElapsedClock string          `json:"elapsed_clock"`
	WorkSeconds  int             `json:"work_seconds"`
}

// getCurrentSession returns the live session state, or 404 when nothing is
// being tracked.
// GET /api/v1/sessions/current
func (h *Handler) getCurrentSession(w http.ResponseWriter, r *http.Request) {
	session := h.tracker.Current()
	if session == nil {
		writeError(w, http.StatusNotFound, "no current session")
		return
	}

	elapsed := h.tracker.Elapsed()
	writeJSON(w, http.StatusOK, APIResponse{Data: currentSessionResponse{
		Session:      session,
		Elapsed:      elapsed,
		ElapsedClock: models.FormatClock(elapsed),
		WorkSeconds:  h.breaks.WorkSeconds(),
	}})
}

// getSessionActivities lists the activity records of one session.
// GET /api/v1/sessions/{id}/activities
func (h *Handler) getSessionActivities(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	session, err := h.db.GetSession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	activities, err := h.db.GetActivitiesBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Data: activities})
}

// --- Tracker command handlers ---

// startTracking starts a new session or resumes a paused one.
// POST /api/v1/tracker/start
func (h *Handler) startTracking(w http.ResponseWriter, r *http.Request) {
	h.tracker.Start()
	writeJSON(w, http.StatusOK, APIResponse{Data: h.tracker.Current()})
}

// pauseTracking pauses the current session.
// POST /api/v1/tracker/pause
func (h *Handler) pauseTracking(w http.ResponseWriter, r *http.Request) {
	h.tracker.Pause()
	writeJSON(w, http.StatusOK, APIResponse{Data: h.tracker.Current()})
}

// stopTracking completes the current session.
// POST /api/v1/tracker/stop
func (h *Handler) stopTracking(w http.ResponseWriter, r *http.Request) {
	h.tracker.Stop()
	writeJSON(w, http.StatusOK, APIResponse{Data: "stopped"})
}

// resetBreaks zeroes the accumulated work counter, acknowledging a break.
// POST /api/v1/breaks/reset
func (h *Handler) resetBreaks(w http.ResponseWriter, r *http.Request) {
	h.breaks.Reset()
	writeJSON(w, http.StatusOK, APIResponse{Data: map[string]int{"work_seconds": h.breaks.WorkSeconds()}})
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
