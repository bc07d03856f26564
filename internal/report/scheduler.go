// Package report produces the daily summary: aggregate figures for the
// previous day, logged and pushed through the notifier on a cron schedule.
package report

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/akruglov/chronometer/internal/config"
	"github.com/akruglov/chronometer/internal/database"
	"github.com/akruglov/chronometer/internal/models"
	"github.com/akruglov/chronometer/internal/notify"
)

type Scheduler struct {
	cfg      *config.Config
	db       *database.DB
	notifier *notify.Notifier
	cron     *cron.Cron
}

func NewScheduler(cfg *config.Config, db *database.DB, notifier *notify.Notifier) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		db:       db,
		notifier: notifier,
	}
}

// Start registers the daily report job. An invalid cron expression falls
// back to a 24h ticker rather than failing startup.
func (s *Scheduler) Start() {
	loc := s.cfg.GetTimezone()
	s.cron = cron.New(cron.WithLocation(loc))

	_, err := s.cron.AddFunc(s.cfg.ReportSchedule, func() {
		s.ReportYesterday()
	})
	if err != nil {
		slog.Error("failed to add cron job, falling back to 24h ticker", "schedule", s.cfg.ReportSchedule, "error", err)
		go func() {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for range ticker.C {
				s.ReportYesterday()
			}
		}()
		return
	}

	slog.Info("scheduled daily report", "schedule", s.cfg.ReportSchedule, "timezone", loc.String())
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// ReportYesterday logs and notifies the summary for the previous day.
func (s *Scheduler) ReportYesterday() {
	yesterday := time.Now().In(s.cfg.GetTimezone()).AddDate(0, 0, -1)
	summary, err := s.BuildSummary(yesterday)
	if err != nil {
		slog.Error("failed to build daily report", "date", yesterday.Format("2006-01-02"), "error", err)
		return
	}

	slog.Info("daily report",
		"date", summary.Date,
		"sessions", summary.Stats.SessionsCount,
		"total", models.FormatClock(summary.Stats.TotalTime),
		"productive", models.FormatClock(summary.Productivity.Productive),
		"distracting", models.FormatClock(summary.Productivity.Distracting))

	s.notifier.Notify("daily_report", "Daily report for "+summary.Date, summary.Render())
}

// Summary is one day in review.
type Summary struct {
	Date         string
	Stats        *models.DailyStats
	Productivity *models.ProductivityStats
	TopApps      []AppUsage
}

type AppUsage struct {
	Name    string
	Seconds int
}

// BuildSummary aggregates the day's sessions and activities.
func (s *Scheduler) BuildSummary(date time.Time) (*Summary, error) {
	stats, err := s.db.GetDailyStats(date)
	if err != nil {
		return nil, err
	}
	productivity, err := s.db.GetProductivityStats(date)
	if err != nil {
		return nil, err
	}
	apps, err := s.db.GetAppStatistics(date)
	if err != nil {
		return nil, err
	}

	usage := make([]AppUsage, 0, len(apps))
	for name, seconds := range apps {
		usage = append(usage, AppUsage{Name: name, Seconds: seconds})
	}
	sort.Slice(usage, func(i, j int) bool {
		if usage[i].Seconds != usage[j].Seconds {
			return usage[i].Seconds > usage[j].Seconds
		}
		return usage[i].Name < usage[j].Name
	})
	if len(usage) > 5 {
		usage = usage[:5]
	}

	return &Summary{
		Date:         date.Format("2006-01-02"),
		Stats:        stats,
		Productivity: productivity,
		TopApps:      usage,
	}, nil
}

// Render formats the summary as a short human-readable message.
func (r *Summary) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d sessions, %s worked, %d breaks.",
		r.Stats.SessionsCount, models.FormatDuration(r.Stats.TotalTime), r.Stats.BreaksCount)
	fmt.Fprintf(&b, " Productive %s, distracting %s.",
		models.FormatDuration(r.Productivity.Productive),
		models.FormatDuration(r.Productivity.Distracting))
	for i, app := range r.TopApps {
		if i == 0 {
			b.WriteString(" Top apps:")
		}
		fmt.Fprintf(&b, " %s (%s)", app.Name, models.FormatDuration(app.Seconds))
	}
	return b.String()
}
