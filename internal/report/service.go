// Package report generates weekly standup reports: it loads a window of
// updates, produces exactly one summary for it and persists snapshots.
package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/skill-bright/cde-huddle-sub001/internal/calendar"
	"github.com/skill-bright/cde-huddle-sub001/internal/model"
	"github.com/skill-bright/cde-huddle-sub001/internal/storage"
	"github.com/skill-bright/cde-huddle-sub001/internal/summarizer"
)

// MaxSpanDays is the widest window a report may cover.
const MaxSpanDays = 14

const (
	defaultSnapshotLimit = 10
	defaultHistoryLimit  = 7
	maxLimit             = 100
)

// AISummarizer attempts an AI summary and reports the outcome as a tagged
// result instead of failing.
type AISummarizer interface {
	Attempt(ctx context.Context, report *model.WeeklyReport) summarizer.Result
}

// Service is the report use case.
type Service struct {
	repo     storage.Repository
	ai       AISummarizer
	fallback summarizer.RuleBased
	team     []model.Member
	calendar *calendar.Calendar
	logger   *slog.Logger
}

// New creates a Service. ai may be nil to disable AI summaries; an empty
// team accepts updates from anyone.
func New(repo storage.Repository, ai AISummarizer, team []model.Member, cal *calendar.Calendar, logger *slog.Logger) *Service {
	if cal == nil {
		cal = calendar.New()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		repo:     repo,
		ai:       ai,
		team:     team,
		calendar: cal,
		logger:   logger,
	}
}

// Option adjusts a single report generation.
type Option func(*options)

type options struct {
	includeAI bool
}

// WithoutAI skips the AI summary and uses the rule-based one.
func WithoutAI() Option {
	return func(o *options) { o.includeAI = false }
}

// ValidateRange checks that both dates parse, that weekStart is not after
// weekEnd and that the window spans at most MaxSpanDays.
func ValidateRange(weekStart, weekEnd string) error {
	if _, err := calendar.ParseDate(weekStart); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDateRange, err)
	}
	if _, err := calendar.ParseDate(weekEnd); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDateRange, err)
	}
	days, err := calendar.DaysBetween(weekStart, weekEnd)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDateRange, err)
	}
	if days < 0 {
		return fmt.Errorf("%w: week end %s is before week start %s", ErrInvalidDateRange, weekEnd, weekStart)
	}
	if days > MaxSpanDays {
		return fmt.Errorf("%w: %d day span exceeds %d days", ErrInvalidDateRange, days, MaxSpanDays)
	}
	return nil
}

// GenerateWeeklyReport builds the report for [weekStart, weekEnd]. Invalid
// windows fail with ErrInvalidDateRange before anything is loaded, and load
// failures wrap ErrRepository. AI failures never surface: the rule-based
// summary is used instead.
func (s *Service) GenerateWeeklyReport(ctx context.Context, weekStart, weekEnd string, opts ...Option) (*model.WeeklyReport, error) {
	o := options{includeAI: true}
	for _, opt := range opts {
		opt(&o)
	}

	if err := ValidateRange(weekStart, weekEnd); err != nil {
		return nil, err
	}

	report, err := s.repo.GetWeeklyReport(ctx, weekStart, weekEnd)
	if err != nil {
		s.logger.Error("failed to load weekly report", "err", err, "week_start", weekStart, "week_end", weekEnd)
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	if report == nil {
		report = &model.WeeklyReport{WeekStart: weekStart, WeekEnd: weekEnd, Entries: []model.Entry{}}
	}

	return report.WithSummary(s.summarize(ctx, report, o.includeAI)), nil
}

// GenerateCurrentWeek builds the report for the calendar week containing today.
func (s *Service) GenerateCurrentWeek(ctx context.Context, opts ...Option) (*model.WeeklyReport, error) {
	return s.GenerateWeeklyReport(ctx, s.calendar.CurrentWeekStart(), s.calendar.CurrentWeekEnd(), opts...)
}

// CurrentWeek returns the Monday and Sunday of the current week.
func (s *Service) CurrentWeek() (string, string) {
	return s.calendar.CurrentWeekStart(), s.calendar.CurrentWeekEnd()
}

func (s *Service) summarize(ctx context.Context, report *model.WeeklyReport, includeAI bool) model.ReportSummary {
	if !report.HasData() {
		return summarizer.NoDataSummary()
	}

	if includeAI && s.ai != nil {
		result := s.ai.Attempt(ctx, report)
		if result.OK() {
			return result.Summary
		}
		s.logger.Warn("AI summary failed, using rule-based summary",
			"err", result.Err, "week_start", report.WeekStart, "week_end", report.WeekEnd)
	}

	return s.fallback.Summarize(report)
}

// SaveSnapshot upserts a generated snapshot of report.
func (s *Service) SaveSnapshot(ctx context.Context, report *model.WeeklyReport) error {
	if err := s.repo.SaveReportSnapshot(ctx, model.NewSnapshot(report)); err != nil {
		return fmt.Errorf("report: failed to save snapshot: %w", err)
	}
	s.logger.Info("saved report snapshot", "week_start", report.WeekStart, "week_end", report.WeekEnd,
		"total_updates", report.TotalUpdates())
	return nil
}

// RecordFailure stores a failed snapshot for the week so the failure is
// visible alongside generated reports.
func (s *Service) RecordFailure(ctx context.Context, weekStart, weekEnd string, cause error) error {
	if err := s.repo.SaveReportSnapshot(ctx, model.FailedSnapshot(weekStart, weekEnd, cause)); err != nil {
		return fmt.Errorf("report: failed to record failure: %w", err)
	}
	return nil
}

// ListSnapshots returns stored snapshots, most recently updated first.
func (s *Service) ListSnapshots(ctx context.Context, limit int) ([]model.ReportSnapshot, error) {
	snaps, err := s.repo.ListReportSnapshots(ctx, clampLimit(limit, defaultSnapshotLimit))
	if err != nil {
		return nil, fmt.Errorf("report: failed to list snapshots: %w", err)
	}
	if snaps == nil {
		snaps = []model.ReportSnapshot{}
	}
	return snaps, nil
}

// History returns the most recent days with updates, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]model.Entry, error) {
	entries, err := s.repo.GetHistory(ctx, clampLimit(limit, defaultHistoryLimit))
	if err != nil {
		return nil, fmt.Errorf("report: failed to load history: %w", err)
	}
	if entries == nil {
		entries = []model.Entry{}
	}
	return entries, nil
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return min(limit, maxLimit)
}

// Team returns the configured roster.
func (s *Service) Team() []model.Member {
	if s.team == nil {
		return []model.Member{}
	}
	return s.team
}

// SubmitUpdate stores one person's update. When a roster is configured the
// person must be on it; the stored name takes the roster's spelling and an
// empty role is filled from the roster. A zero timestamp is set to now.
func (s *Service) SubmitUpdate(ctx context.Context, record model.UpdateRecord) (model.UpdateRecord, error) {
	record.PersonName = strings.TrimSpace(record.PersonName)
	if record.PersonName == "" {
		return model.UpdateRecord{}, fmt.Errorf("%w: name is required", ErrInvalidUpdate)
	}

	if len(s.team) > 0 {
		m, ok := s.member(record.PersonName)
		if !ok {
			return model.UpdateRecord{}, fmt.Errorf("%w: %s", ErrUnknownMember, record.PersonName)
		}
		record.PersonName = m.Name
		if record.Role == "" {
			record.Role = m.Role
		}
	}

	if record.Timestamp.IsZero() {
		record.Timestamp = s.calendar.Current()
	}

	if err := s.repo.SaveUpdate(ctx, record); err != nil {
		return model.UpdateRecord{}, fmt.Errorf("report: failed to save update: %w", err)
	}
	s.logger.Info("saved standup update", "name", record.PersonName, "date", calendar.DateOf(record.Timestamp))
	return record, nil
}

func (s *Service) member(name string) (model.Member, bool) {
	for _, m := range s.team {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return model.Member{}, false
}
