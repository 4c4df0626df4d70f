package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/skill-bright/cde-huddle-sub001/internal/calendar"
	"github.com/skill-bright/cde-huddle-sub001/internal/model"
	"github.com/skill-bright/cde-huddle-sub001/internal/publisher"
	"github.com/skill-bright/cde-huddle-sub001/internal/report"
)

// Reporter is the part of the report service the weekly job needs.
type Reporter interface {
	CurrentWeek() (string, string)
	GenerateWeeklyReport(ctx context.Context, weekStart, weekEnd string, opts ...report.Option) (*model.WeeklyReport, error)
	SaveSnapshot(ctx context.Context, r *model.WeeklyReport) error
	RecordFailure(ctx context.Context, weekStart, weekEnd string, cause error) error
}

// Runner orchestrates the generate -> snapshot -> publish pipeline.
type Runner struct {
	reporter   Reporter
	publishers []publisher.Publisher
	logger     *slog.Logger
}

func New(reporter Reporter, pubs []publisher.Publisher, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		reporter:   reporter,
		publishers: pubs,
		logger:     logger,
	}
}

// Run executes the full pipeline once for the current week.
func (r *Runner) Run(ctx context.Context) error {
	weekStart, weekEnd := r.reporter.CurrentWeek()
	log := r.logger.With("week_start", weekStart, "week_end", weekEnd)
	log.Info("starting weekly report pipeline")

	// Step 1: Generate
	rep, err := r.reporter.GenerateWeeklyReport(ctx, weekStart, weekEnd)
	if err != nil {
		if recErr := r.reporter.RecordFailure(ctx, weekStart, weekEnd, err); recErr != nil {
			log.Error("failed to record report failure", "err", recErr)
		}
		return fmt.Errorf("runner: generate failed: %w", err)
	}
	log.Info("generated weekly report", "entries", len(rep.Entries), "total_updates", rep.TotalUpdates())

	// Step 2: Snapshot
	if err := r.reporter.SaveSnapshot(ctx, rep); err != nil {
		return fmt.Errorf("runner: snapshot failed: %w", err)
	}

	// Step 3: Publish - Continue with other publishers even if one fails
	var publishErrors []error
	for _, pub := range r.publishers {
		if err := pub.Publish(ctx, rep); err != nil {
			publishErrors = append(publishErrors, fmt.Errorf("publish via %T failed: %w", pub, err))
			log.Warn("publisher failed", "publisher", fmt.Sprintf("%T", pub), "err", err)
		} else {
			log.Info("published weekly report", "publisher", fmt.Sprintf("%T", pub))
		}
	}

	// If all publishers failed, return an error
	if len(publishErrors) == len(r.publishers) && len(r.publishers) > 0 {
		return fmt.Errorf("runner: all publishers failed: %w", errors.Join(publishErrors...))
	}

	if len(publishErrors) > 0 {
		log.Warn("pipeline completed with publisher failures", "failed", len(publishErrors), "publishers", len(r.publishers))
	} else {
		log.Info("pipeline completed successfully")
	}
	return nil
}

// Schedule registers Run on a cron spec evaluated in the team timezone and
// starts the scheduler. The caller stops it.
func (r *Runner) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(calendar.Location()))
	_, err := c.AddFunc(spec, func() {
		r.logger.Info("cron triggered, running weekly report")
		if err := r.Run(ctx); err != nil {
			r.logger.Error("scheduled run failed", "err", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("runner: invalid schedule %q: %w", spec, err)
	}
	c.Start()
	r.logger.Info("scheduled weekly report", "schedule", spec)
	return c, nil
}
