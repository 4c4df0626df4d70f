package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/skill-bright/cde-huddle-sub001/internal/calendar"
	"github.com/skill-bright/cde-huddle-sub001/internal/config"
	"github.com/skill-bright/cde-huddle-sub001/internal/draft"
	"github.com/skill-bright/cde-huddle-sub001/internal/logger"
	"github.com/skill-bright/cde-huddle-sub001/internal/publisher"
	"github.com/skill-bright/cde-huddle-sub001/internal/report"
	"github.com/skill-bright/cde-huddle-sub001/internal/retry"
	"github.com/skill-bright/cde-huddle-sub001/internal/runner"
	"github.com/skill-bright/cde-huddle-sub001/internal/storage"
	"github.com/skill-bright/cde-huddle-sub001/internal/summarizer"
)

// app holds the wired components shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	out     io.Writer
	store   *storage.SQLStore
	service *report.Service
	drafts  *draft.Generator
	runner  *runner.Runner
}

func newApp(cfg *config.Config, out io.Writer) (*app, error) {
	log := logger.Init(cfg.Log)

	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: log, out: out, store: store}

	// Build summarizer
	var ai report.AISummarizer
	if cfg.AI.Enabled {
		client := summarizer.NewAnthropicClient(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL)
		rc := retry.DefaultConfig()
		rc.MaxRetries = cfg.AI.Retries()
		rc.BaseDelay = cfg.AI.RetryBaseDelay
		ai = summarizer.NewAI(client, cfg.AI.MaxTokens, rc, log)
		a.drafts = &draft.Generator{Client: client}
		log.Info("AI summaries enabled", "model", cfg.AI.Model)
	}

	a.service = report.New(store, ai, cfg.Team, calendar.New(), log)

	// Build publishers
	pubs, err := buildPublishers(cfg.Publisher, out)
	if err != nil {
		store.Close()
		return nil, err
	}
	a.runner = runner.New(a.service, pubs, log)
	return a, nil
}

func buildPublishers(cfg config.PublisherConfig, out io.Writer) ([]publisher.Publisher, error) {
	var pubs []publisher.Publisher
	for _, t := range cfg.Types {
		switch t {
		case "stdout":
			pubs = append(pubs, publisher.NewWriterPublisher(out))
		case "email":
			pubs = append(pubs, publisher.NewEmailPublisher(
				cfg.Email.SMTPHost,
				cfg.Email.SMTPPort,
				cfg.Email.Username,
				cfg.Email.Password,
				cfg.Email.From,
				cfg.Email.To,
			))
		case "discord":
			pubs = append(pubs, publisher.NewDiscordPublisher(cfg.Discord.WebhookURL))
		default:
			return nil, fmt.Errorf("unknown publisher type: %s", t)
		}
	}
	return pubs, nil
}

// Close releases the store. It is safe to call more than once.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
}
