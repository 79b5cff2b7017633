package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/adrg/xdg"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/elonfeng/dailygarden/pkg/corpus"
	"github.com/elonfeng/dailygarden/pkg/source"
)

const appName = "dailygarden"

// Config is the root configuration.
type Config struct {
	Timezone string         `yaml:"timezone"`
	Storage  StorageConfig  `yaml:"storage"`
	Caps     CapsConfig     `yaml:"caps"`
	Sources  SourcesConfig  `yaml:"sources"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Wrapup   WrapupConfig   `yaml:"wrapup"`
	Report   ReportConfig   `yaml:"report"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// StorageConfig selects where daily corpora are kept.
type StorageConfig struct {
	Driver     string `yaml:"driver"` // "file" or "sqlite"
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// CapsConfig bounds each corpus category.
type CapsConfig struct {
	HN    int `yaml:"hn"`
	World int `yaml:"world"`
	Local int `yaml:"local"`
}

// Corpus converts the caps for the merge engine.
func (c CapsConfig) Corpus() corpus.Caps {
	return corpus.Caps{HN: c.HN, World: c.World, Local: c.Local}
}

// SourcesConfig holds configuration for all collectors.
type SourcesConfig struct {
	HackerNews HackerNewsConfig `yaml:"hackernews"`
	World      WorldConfig      `yaml:"world"`
	Local      LocalConfig      `yaml:"local"`
	Wiki       WikiConfig       `yaml:"wiki"`
	APOD       APODConfig       `yaml:"apod"`
}

// HackerNewsConfig for the Algolia front page collector.
type HackerNewsConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Limit   int    `yaml:"limit"`
}

// WorldConfig for world news feeds.
type WorldConfig struct {
	Enabled bool          `yaml:"enabled"`
	Feeds   []source.Feed `yaml:"feeds"`
	PerFeed int           `yaml:"per_feed"`
	Limit   int           `yaml:"limit"` // per collection cycle
}

// LocalConfig for Google News searches about one area.
type LocalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Query   string `yaml:"query"`
	BaseURL string `yaml:"base_url"`
	PerFeed int    `yaml:"per_feed"`
	Limit   int    `yaml:"limit"`
}

// WikiConfig for Wikipedia "on this day" and random article.
type WikiConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Events  int    `yaml:"events"`
}

// APODConfig for the astronomy picture of the day.
type APODConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// ScheduleConfig holds cron specs for collection and the evening wrap-up.
type ScheduleConfig struct {
	Collect string `yaml:"collect"`
	Wrapup  string `yaml:"wrapup"`
}

// WrapupConfig configures the evening digest.
type WrapupConfig struct {
	Timezone         string `yaml:"timezone"` // defaults to the top-level timezone
	Hour             int    `yaml:"hour"`
	Top              int    `yaml:"top"`
	SummarySentences int    `yaml:"summary_sentences"`

	// Optional links in the message; %s expands to the date.
	ReportURL string `yaml:"report_url"`
	SiteURL   string `yaml:"site_url"`
}

// ReportConfig configures the Markdown daily report.
type ReportConfig struct {
	SummarySentences int `yaml:"summary_sentences"`
	Top              int `yaml:"top"`
}

// AlertsConfig configures wrap-up destinations.
type AlertsConfig struct {
	Email   EmailConfig   `yaml:"email"`
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// EmailConfig for SMTP delivery.
type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
	To       string `yaml:"to"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// DefaultDataDir is where corpora live when no data_dir is configured.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// DefaultPath is the config file looked up when no path is given and
// ./config.yaml does not exist.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Timezone: "America/New_York",
		Storage: StorageConfig{
			Driver:  "file",
			DataDir: DefaultDataDir(),
		},
		Caps: CapsConfig{
			HN:    corpus.DefaultHNCap,
			World: corpus.DefaultWorldCap,
			Local: corpus.DefaultLocalCap,
		},
		Sources: SourcesConfig{
			HackerNews: HackerNewsConfig{Enabled: true},
			World: WorldConfig{
				Enabled: true,
				Feeds:   source.DefaultWorldFeeds(),
				PerFeed: source.DefaultPerFeed,
				Limit:   60,
			},
			Local: LocalConfig{
				Enabled: true,
				Query:   "Northern Virginia",
				PerFeed: source.DefaultPerFeed,
				Limit:   30,
			},
			Wiki: WikiConfig{Enabled: true, Events: source.DefaultWikiEvents},
			APOD: APODConfig{Enabled: true},
		},
		Schedule: ScheduleConfig{
			Collect: "0 * * * *",
			Wrapup:  "0 22 * * *",
		},
		Wrapup: WrapupConfig{
			Hour:             22,
			Top:              10,
			SummarySentences: 4,
		},
		Report: ReportConfig{
			SummarySentences: 3,
			Top:              5,
		},
		Alerts: AlertsConfig{
			Email: EmailConfig{
				SMTPHost: "smtp.gmail.com",
				SMTPPort: 587,
				FromName: "Daily Knowledge Garden",
			},
		},
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Level: "info"},
	}
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

// Load reads configuration from a YAML file and applies env var overrides.
// An empty path tries ./config.yaml and then DefaultPath; if neither exists
// the defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = discover()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func discover() string {
	for _, p := range []string{"config.yaml", DefaultPath()} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DAILYGARDEN_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("DAILYGARDEN_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("LOCAL_QUERY"); v != "" {
		cfg.Sources.Local.Query = v
	}

	email := &cfg.Alerts.Email
	if v := os.Getenv("SMTP_HOST"); v != "" {
		email.SMTPHost = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			email.SMTPPort = port
		}
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		email.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		email.Password = v
	}
	if v := os.Getenv("FROM_EMAIL"); v != "" {
		email.From = v
	}
	if v := os.Getenv("TO_EMAIL"); v != "" {
		email.To = v
	}
	if email.From == "" {
		email.From = email.Username
	}
	if email.Username != "" && email.Password != "" && email.To != "" {
		email.Enabled = true
	}

	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs []error

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("config: timezone %q: %w", c.Timezone, err))
	}
	if c.Wrapup.Timezone != "" {
		if _, err := time.LoadLocation(c.Wrapup.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("config: wrapup.timezone %q: %w", c.Wrapup.Timezone, err))
		}
	}

	switch c.Storage.Driver {
	case "file", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("config: unsupported storage driver %q (supported: file, sqlite)", c.Storage.Driver))
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("config: storage.data_dir is required"))
	}

	if c.Wrapup.Hour < 0 || c.Wrapup.Hour > 23 {
		errs = append(errs, fmt.Errorf("config: wrapup.hour %d out of range 0-23", c.Wrapup.Hour))
	}
	schedules := []struct{ name, spec string }{
		{"schedule.collect", c.Schedule.Collect},
		{"schedule.wrapup", c.Schedule.Wrapup},
	}
	for _, s := range schedules {
		if s.spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(s.spec); err != nil {
			errs = append(errs, fmt.Errorf("config: %s %q: %w", s.name, s.spec, err))
		}
	}

	if c.Sources.Local.Enabled && strings.TrimSpace(c.Sources.Local.Query) == "" {
		errs = append(errs, errors.New("config: sources.local.query is required when local news is enabled"))
	}

	email := c.Alerts.Email
	if email.Enabled {
		if email.SMTPHost == "" || email.SMTPPort == 0 {
			errs = append(errs, errors.New("config: alerts.email.smtp_host and smtp_port are required for email"))
		}
		if email.To == "" || email.From == "" {
			errs = append(errs, errors.New("config: alerts.email.to and from are required for email"))
		}
	}
	if c.Alerts.Slack.Enabled && c.Alerts.Slack.WebhookURL == "" {
		errs = append(errs, errors.New("config: alerts.slack.webhook_url is required"))
	}
	if c.Alerts.Discord.Enabled && c.Alerts.Discord.WebhookURL == "" {
		errs = append(errs, errors.New("config: alerts.discord.webhook_url is required"))
	}
	if c.Alerts.Webhook.Enabled && c.Alerts.Webhook.URL == "" {
		errs = append(errs, errors.New("config: alerts.webhook.url is required"))
	}

	return errors.Join(errs...)
}

// Location returns the timezone that decides the corpus date.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WrapupLocation returns the timezone of the wrap-up gate.
func (c *Config) WrapupLocation() *time.Location {
	if c.Wrapup.Timezone == "" {
		return c.Location()
	}
	loc, err := time.LoadLocation(c.Wrapup.Timezone)
	if err != nil {
		return c.Location()
	}
	return loc
}
