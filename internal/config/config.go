package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/skill-bright/cde-huddle-sub001/internal/model"
)

type Config struct {
	Schedule   string          `yaml:"schedule"`
	RunOnStart bool            `yaml:"run_on_start"`
	Team       []model.Member  `yaml:"team"`
	Storage    StorageConfig   `yaml:"storage"`
	AI         AIConfig        `yaml:"ai"`
	Log        LogConfig       `yaml:"log"`
	Server     ServerConfig    `yaml:"server"`
	Publisher  PublisherConfig `yaml:"publisher"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type AIConfig struct {
	Enabled        bool          `yaml:"enabled"`
	APIKey         string        `yaml:"api_key"`
	Model          string        `yaml:"model"`
	MaxTokens      int           `yaml:"max_tokens"`
	BaseURL        string        `yaml:"base_url"`
	MaxRetries     *int          `yaml:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
}

// Retries returns the configured retry count, defaulting to 2.
func (c AIConfig) Retries() int {
	if c.MaxRetries == nil {
		return 2
	}
	return *c.MaxRetries
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ServerConfig struct {
	Addr        string        `yaml:"addr"`
	CORSOrigins []string      `yaml:"cors_origins"`
	AuthSecret  string        `yaml:"auth_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

type PublisherConfig struct {
	Types   []string      `yaml:"types"`
	Email   EmailConfig   `yaml:"email"`
	Discord DiscordConfig `yaml:"discord"`
}

type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type EmailConfig struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func setDefaults(cfg *Config) {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 17 * * 5"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DSN == "" && cfg.Storage.Driver == "sqlite" {
		cfg.Storage.DSN = "data/huddle.db"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "claude-sonnet-4-20250514"
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = 4096
	}
	if cfg.AI.RetryBaseDelay == 0 {
		cfg.AI.RetryBaseDelay = 2 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.File == "" {
		cfg.Log.Console = true
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 5
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 30
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.TokenTTL == 0 {
		cfg.Server.TokenTTL = 7 * 24 * time.Hour
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if len(cfg.Publisher.Types) == 0 {
		cfg.Publisher.Types = []string{"stdout"}
	}
	if cfg.Publisher.Email.SMTPPort == 0 {
		cfg.Publisher.Email.SMTPPort = 587
	}
}

func validate(cfg *Config) error {
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return fmt.Errorf("config: invalid schedule %q: %w", cfg.Schedule, err)
	}

	seen := make(map[string]bool, len(cfg.Team))
	for i, m := range cfg.Team {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("config: team[%d].name is required", i)
		}
		key := strings.ToLower(m.Name)
		if seen[key] {
			return fmt.Errorf("config: duplicate team member %q", m.Name)
		}
		seen[key] = true
	}

	switch cfg.Storage.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("config: unsupported storage driver %q (supported: sqlite, postgres, mysql)", cfg.Storage.Driver)
	}
	if cfg.Storage.DSN == "" {
		return fmt.Errorf("config: storage.dsn is required for %s", cfg.Storage.Driver)
	}

	if cfg.AI.Enabled && cfg.AI.APIKey == "" {
		return fmt.Errorf("config: ai.api_key is required when ai is enabled (set ANTHROPIC_API_KEY env var)")
	}
	if cfg.AI.Retries() < 0 {
		return fmt.Errorf("config: ai.max_retries must not be negative")
	}

	if cfg.Server.TokenTTL < 0 {
		return fmt.Errorf("config: server.token_ttl must not be negative")
	}

	for _, t := range cfg.Publisher.Types {
		switch t {
		case "stdout":
		case "discord":
			if cfg.Publisher.Discord.WebhookURL == "" {
				return fmt.Errorf("config: publisher.discord.webhook_url is required for discord publisher")
			}
		case "email":
			if cfg.Publisher.Email.SMTPHost == "" {
				return fmt.Errorf("config: publisher.email.smtp_host is required for email publisher")
			}
			if len(cfg.Publisher.Email.To) == 0 {
				return fmt.Errorf("config: publisher.email.to is required for email publisher")
			}
			if cfg.Publisher.Email.From == "" {
				return fmt.Errorf("config: publisher.email.from is required for email publisher")
			}
		default:
			return fmt.Errorf("config: unsupported publisher type %q (supported: stdout, email, discord)", t)
		}
	}
	return nil
}

// Parse expands environment variables in data, applies defaults and
// validates the result.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse: %w", err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Load reads the config file, expands environment variables, applies defaults,
// and validates the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return cfg, nil
}
