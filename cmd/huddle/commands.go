package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/skill-bright/cde-huddle-sub001/internal/calendar"
	"github.com/skill-bright/cde-huddle-sub001/internal/model"
	"github.com/skill-bright/cde-huddle-sub001/internal/report"
	"github.com/skill-bright/cde-huddle-sub001/internal/server"
)

// ServeCmd serves the HTTP API and, unless disabled, the weekly schedule.
type ServeCmd struct {
	NoSchedule bool `help:"Do not run the weekly report job."`
}

func (c *ServeCmd) Run(a *app) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var drafts server.Drafter
	if a.drafts != nil {
		drafts = a.drafts
	}
	srv := server.New(a.cfg.Server, a.service, drafts, a.logger)
	srv.Start()

	if !c.NoSchedule {
		stop, err := a.schedule(ctx)
		if err != nil {
			return err
		}
		defer stop()
	}

	waitForSignal(a)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("server shutdown error", "err", err)
	}
	a.logger.Info("shutdown complete")
	return nil
}

// RunCmd runs the weekly report job.
type RunCmd struct {
	Once bool `help:"Run the job once and exit."`
}

func (c *RunCmd) Run(a *app) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Single-run mode: run the pipeline once and exit
	if c.Once {
		a.logger.Info("running weekly report (once mode)")
		return a.runner.Run(ctx)
	}

	stop, err := a.schedule(ctx)
	if err != nil {
		return err
	}
	waitForSignal(a)
	cancel()
	stop()
	a.logger.Info("shutdown complete")
	return nil
}

// schedule runs the job on start when configured and registers it with
// cron. The returned func stops the scheduler.
func (a *app) schedule(ctx context.Context) (func(), error) {
	if a.cfg.RunOnStart {
		a.logger.Info("running initial weekly report")
		if err := a.runner.Run(ctx); err != nil {
			a.logger.Error("initial run failed", "err", err)
		}
	}
	c, err := a.runner.Schedule(ctx, a.cfg.Schedule)
	if err != nil {
		return nil, err
	}
	return func() { <-c.Stop().Done() }, nil
}

func waitForSignal(a *app) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	a.logger.Info("received signal, shutting down", "signal", sig.String())
}

// ReportCmd generates one report and prints it.
type ReportCmd struct {
	WeekStart string `help:"First day of the window (YYYY-MM-DD). Defaults to this Monday."`
	WeekEnd   string `help:"Last day of the window (YYYY-MM-DD). Defaults to this Sunday."`
	NoAI      bool   `name:"no-ai" help:"Use the rule-based summary only."`
	Save      bool   `help:"Store the report as a snapshot."`
}

func (c *ReportCmd) Run(a *app) error {
	ctx := context.Background()

	weekStart, weekEnd := c.WeekStart, c.WeekEnd
	if weekStart == "" && weekEnd == "" {
		weekStart, weekEnd = a.service.CurrentWeek()
	}

	var opts []report.Option
	if c.NoAI {
		opts = append(opts, report.WithoutAI())
	}
	rep, err := a.service.GenerateWeeklyReport(ctx, weekStart, weekEnd, opts...)
	if err != nil {
		return err
	}
	if c.Save {
		if err := a.service.SaveSnapshot(ctx, rep); err != nil {
			return err
		}
	}
	return printJSON(a, rep)
}

// SubmitCmd stores one update.
type SubmitCmd struct {
	Name      string `required:"" help:"Team member name."`
	Role      string `help:"Role; defaults to the roster role."`
	Yesterday string `default:"None" help:"What was done on the previous working day."`
	Today     string `default:"None" help:"What is planned for today."`
	Blockers  string `default:"None" help:"Anything blocking progress."`
	Date      string `help:"Date of the update (YYYY-MM-DD). Defaults to today."`
}

func (c *SubmitCmd) Run(a *app) error {
	rec := model.UpdateRecord{
		PersonName: c.Name,
		Role:       c.Role,
		Yesterday:  c.Yesterday,
		Today:      c.Today,
		Blockers:   c.Blockers,
	}
	if c.Date != "" {
		d, err := calendar.ParseDate(c.Date)
		if err != nil {
			return err
		}
		rec.Timestamp = d.Add(12 * time.Hour)
	}

	saved, err := a.service.SubmitUpdate(context.Background(), rec)
	if err != nil {
		return err
	}
	return printJSON(a, saved)
}

// TokenCmd prints an API bearer token for a team member.
type TokenCmd struct {
	Name string `arg:"" help:"Team member the token is issued to."`
}

func (c *TokenCmd) Run(a *app) error {
	var name string
	for _, m := range a.service.Team() {
		if strings.EqualFold(m.Name, c.Name) {
			name = m.Name
		}
	}
	if name == "" {
		if len(a.service.Team()) > 0 {
			return fmt.Errorf("%w: %s", report.ErrUnknownMember, c.Name)
		}
		name = c.Name
	}

	token, err := server.IssueToken([]byte(a.cfg.Server.AuthSecret), name, a.cfg.Server.TokenTTL, time.Now())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, token)
	return err
}

func printJSON(a *app, v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
