package report

import (
	"context"
	"log"
	"time"

	"garagedesk/internal/config"
	"garagedesk/internal/notify"
)

// Scheduler posts periodic summaries to configured surfaces.
type Scheduler struct {
	Builder Builder
	Gateway notify.Gateway
	Config  *config.Config
	Logger  *log.Logger
}

func (s *Scheduler) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

type scheduledRun struct {
	period   Period
	schedule config.ReportSchedule
}

func (s *Scheduler) enabled() []scheduledRun {
	var runs []scheduledRun
	if s.Config == nil {
		return runs
	}
	if s.Config.Reports.Daily.Enabled {
		runs = append(runs, scheduledRun{PeriodDaily, s.Config.Reports.Daily})
	}
	if s.Config.Reports.Weekly.Enabled {
		runs = append(runs, scheduledRun{PeriodWeekly, s.Config.Reports.Weekly})
	}
	if s.Config.Reports.Monthly.Enabled {
		runs = append(runs, scheduledRun{PeriodMonthly, s.Config.Reports.Monthly})
	}
	return runs
}

// Start launches one goroutine per enabled schedule. It returns
// immediately; cancel ctx to stop.
func (s *Scheduler) Start(ctx context.Context) {
	for _, run := range s.enabled() {
		go s.loop(ctx, run)
	}
}

func (s *Scheduler) loop(ctx context.Context, run scheduledRun) {
	for {
		next := nextRun(s.Builder.now(), run.period, run.schedule)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		s.post(ctx, run)
	}
}

func (s *Scheduler) post(ctx context.Context, run scheduledRun) {
	summary, err := s.Builder.Build(ctx, run.period)
	if err != nil {
		s.logger().Printf("report: build %s summary: %v", run.period, err)
		return
	}
	surface := run.schedule.Surface
	if surface == "" {
		surface = s.Config.Surface("completed")
	}
	msg := notify.Message{
		Title:    summary.Title(),
		Body:     summary.Render(),
		Severity: "info",
	}
	if err := s.Gateway.Announce(ctx, surface, msg); err != nil {
		s.logger().Printf("report: announce %s summary on %s: %v", run.period, surface, err)
	}
}

// nextRun is the next occurrence of the schedule after now: daily at
// hour:minute, weekly on day_of_week, monthly on day_of_month.
func nextRun(now time.Time, period Period, sched config.ReportSchedule) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), sched.Hour, sched.Minute, 0, 0, now.Location())
	switch period {
	case PeriodWeekly:
		next = next.AddDate(0, 0, (sched.DayOfWeek-int(next.Weekday())+7)%7)
		if !next.After(now) {
			next = next.AddDate(0, 0, 7)
		}
	case PeriodMonthly:
		day := sched.DayOfMonth
		if day < 1 {
			day = 1
		}
		next = time.Date(now.Year(), now.Month(), day, sched.Hour, sched.Minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 1, 0)
		}
	default:
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
	}
	return next
}
