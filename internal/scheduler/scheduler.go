// Package scheduler pushes the daily and monthly expense summaries to LINE.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/dvloznov/garden-ledger/internal/linebot"
	"github.com/dvloznov/garden-ledger/internal/reply"
	"github.com/dvloznov/garden-ledger/internal/store"
)

// ErrNotConfigured means there is no messenger or push target.
var ErrNotConfigured = errors.New("scheduler: summary target not configured")

const runTimeout = 2 * time.Minute

// Config holds the cron specs (standard 5-field format) and the push target.
type Config struct {
	DailySpec   string
	MonthlySpec string
	Target      string
	Location    *time.Location
}

// Scheduler runs the summary jobs.
type Scheduler struct {
	cron      *cron.Cron
	repo      store.Repository
	messenger linebot.Messenger
	cfg       Config
	log       zerolog.Logger
	now       func() time.Time
}

// New creates a scheduler; cron times are evaluated in cfg.Location. A nil
// messenger leaves the scheduler idle.
func New(repo store.Repository, messenger linebot.Messenger, cfg Config, log zerolog.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	c := cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithLogger(cron.PrintfLogger(&log)),
	)
	return &Scheduler{cron: c, repo: repo, messenger: messenger, cfg: cfg, log: log, now: time.Now}
}

func (s *Scheduler) configured() bool {
	return s.messenger != nil && s.cfg.Target != ""
}

// Start registers the jobs and starts the cron loop. Without a messenger or
// target nothing is scheduled.
func (s *Scheduler) Start() error {
	if !s.configured() {
		s.log.Info().Msg("Summary target not configured, scheduled summaries disabled")
		return nil
	}

	if s.cfg.DailySpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.DailySpec, s.runDaily); err != nil {
			return fmt.Errorf("Scheduler.Start: daily spec %q: %w", s.cfg.DailySpec, err)
		}
	}
	if s.cfg.MonthlySpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.MonthlySpec, s.runMonthly); err != nil {
			return fmt.Errorf("Scheduler.Start: monthly spec %q: %w", s.cfg.MonthlySpec, err)
		}
	}

	s.cron.Start()
	s.log.Info().
		Int("jobs", len(s.cron.Entries())).
		Str("location", s.cfg.Location.String()).
		Msg("Summary scheduler started")
	return nil
}

// Stop stops the cron loop; the returned context is done when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Today returns the current date in the scheduler's location.
func (s *Scheduler) Today() civil.Date {
	return civil.DateOf(s.now().In(s.cfg.Location))
}

// SendDaily pushes the group summary for day. It reports false when the day
// has no expenses.
func (s *Scheduler) SendDaily(ctx context.Context, day civil.Date) (bool, error) {
	if !s.configured() {
		return false, ErrNotConfigured
	}

	sum, err := s.repo.Summary(ctx, store.SummaryQuery{From: day, To: day})
	if err != nil {
		return false, fmt.Errorf("SendDaily: %w", err)
	}
	if sum.Count == 0 {
		return false, nil
	}

	if err := s.messenger.Push(ctx, s.cfg.Target, reply.DailySummary(sum)); err != nil {
		return false, fmt.Errorf("SendDaily: %w", err)
	}
	return true, nil
}

// SendMonthly pushes the group summary for a calendar month. It reports false
// when the month has no expenses.
func (s *Scheduler) SendMonthly(ctx context.Context, year int, month time.Month) (bool, error) {
	if !s.configured() {
		return false, ErrNotConfigured
	}

	from, to := MonthRange(year, month)
	sum, err := s.repo.Summary(ctx, store.SummaryQuery{From: from, To: to})
	if err != nil {
		return false, fmt.Errorf("SendMonthly: %w", err)
	}
	if sum.Count == 0 {
		return false, nil
	}

	if err := s.messenger.Push(ctx, s.cfg.Target, reply.MonthlySummary(sum)); err != nil {
		return false, fmt.Errorf("SendMonthly: %w", err)
	}
	return true, nil
}

func (s *Scheduler) runDaily() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	day := s.Today()
	sent, err := s.SendDaily(ctx, day)
	switch {
	case err != nil:
		s.log.Error().Err(err).Str("date", day.String()).Msg("Daily summary failed")
	case !sent:
		s.log.Info().Str("date", day.String()).Msg("No expenses today, daily summary skipped")
	default:
		s.log.Info().Str("date", day.String()).Msg("Daily summary sent")
	}
}

func (s *Scheduler) runMonthly() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	year, month := PreviousMonth(s.Today())
	sent, err := s.SendMonthly(ctx, year, month)
	switch {
	case err != nil:
		s.log.Error().Err(err).Int("year", year).Str("month", month.String()).Msg("Monthly summary failed")
	case !sent:
		s.log.Info().Int("year", year).Str("month", month.String()).Msg("No expenses last month, monthly summary skipped")
	default:
		s.log.Info().Int("year", year).Str("month", month.String()).Msg("Monthly summary sent")
	}
}

// MonthRange returns the first and last day of a month.
func MonthRange(year int, month time.Month) (civil.Date, civil.Date) {
	first := civil.Date{Year: year, Month: month, Day: 1}
	return first, first.AddMonths(1).AddDays(-1)
}

// PreviousMonth returns the month before the one containing d.
func PreviousMonth(d civil.Date) (int, time.Month) {
	prev := civil.Date{Year: d.Year, Month: d.Month, Day: 1}.AddMonths(-1)
	return prev.Year, prev.Month
}
