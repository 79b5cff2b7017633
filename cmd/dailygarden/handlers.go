package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/elonfeng/dailygarden/internal/config"
	"github.com/elonfeng/dailygarden/internal/runner"
	"github.com/elonfeng/dailygarden/internal/scheduler"
	"github.com/elonfeng/dailygarden/internal/store"
	"github.com/elonfeng/dailygarden/pkg/alert"
	"github.com/elonfeng/dailygarden/pkg/report"
	"github.com/elonfeng/dailygarden/pkg/server"
	"github.com/elonfeng/dailygarden/pkg/source"
	"github.com/elonfeng/dailygarden/pkg/summarize"
)

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	var w io.Writer = os.Stderr
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func buildSources(cfg *config.Config) []source.Source {
	var sources []source.Source
	s := cfg.Sources

	if s.HackerNews.Enabled {
		sources = append(sources, source.NewHackerNews(s.HackerNews.URL, s.HackerNews.Limit))
	}
	if s.World.Enabled {
		sources = append(sources, source.NewNews(source.SourceWorld, s.World.Feeds, s.World.PerFeed, s.World.Limit))
	}
	if s.Local.Enabled {
		feeds := source.LocalFeeds(s.Local.BaseURL, s.Local.Query)
		sources = append(sources, source.NewNews(source.SourceLocal, feeds, s.Local.PerFeed, s.Local.Limit))
	}
	if s.Wiki.Enabled {
		sources = append(sources, source.NewWikipedia(s.Wiki.BaseURL, s.Wiki.Events))
	}
	if s.APOD.Enabled {
		sources = append(sources, source.NewAPOD(s.APOD.URL))
	}

	return sources
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier
	a := cfg.Alerts

	if a.Email.Enabled {
		notifiers = append(notifiers, alert.NewEmail(alert.EmailConfig{
			Host:     a.Email.SMTPHost,
			Port:     a.Email.SMTPPort,
			Username: a.Email.Username,
			Password: a.Email.Password,
			From:     a.Email.From,
			FromName: a.Email.FromName,
			To:       splitList(a.Email.To),
		}))
	}
	if a.Slack.Enabled && a.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(a.Slack.WebhookURL))
	}
	if a.Discord.Enabled && a.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(a.Discord.WebhookURL))
	}
	if a.Webhook.Enabled && a.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(a.Webhook.URL, a.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// app is everything a command needs, built from the config.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  store.Store
	runner *runner.Runner
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Log)

	db, err := store.Open(cfg.Storage.Driver, cfg.Storage.DataDir, cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	collector := source.NewCollector(logger.With().Str("component", "collector").Logger(), buildSources(cfg)...)
	r := runner.New(db, collector, buildAlertManager(cfg), runner.Options{
		Location:       cfg.Location(),
		WrapupLocation: cfg.WrapupLocation(),
		WrapupHour:     cfg.Wrapup.Hour,
		Caps:           cfg.Caps.Corpus(),
		Report: report.Options{
			SummarySentences: cfg.Report.SummarySentences,
			Top:              cfg.Report.Top,
		},
		Wrapup: report.WrapupOptions{
			Top:              cfg.Wrapup.Top,
			SummarySentences: cfg.Wrapup.SummarySentences,
			ReportURL:        cfg.Wrapup.ReportURL,
			SiteURL:          cfg.Wrapup.SiteURL,
		},
	}, logger.With().Str("component", "runner").Logger())

	return &app{cfg: cfg, logger: logger, store: db, runner: r}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func runCollect(ctx context.Context, out io.Writer, sources string) error {
	var only []source.SourceType
	if sources != "" {
		types, err := source.ParseSourceTypes(sources)
		if err != nil {
			return err
		}
		only = types
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.runner.Collect(ctx, time.Now(), only...)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "date\t%s\n", res.Date)
	fmt.Fprintf(w, "run\t%s (#%d today)\n", res.RunID, res.Runs)
	for _, cat := range []string{"hn", "world", "local"} {
		fmt.Fprintf(w, "%s\t%d\n", cat, res.Counts[cat])
	}
	if len(res.Failures) > 0 {
		fmt.Fprintf(w, "failed\t%s\n", strings.Join(res.Failures, ", "))
	}
	return w.Flush()
}

func runReport(ctx context.Context, out io.Writer, date string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if date == "" {
		date = a.runner.Date(time.Now())
	}
	md, err := a.runner.Report(ctx, date)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("nothing collected for %s (try: dailygarden collect)", date)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, md)
	return err
}

func runWrapup(ctx context.Context, out io.Writer, force, dryRun bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	w, err := a.runner.Wrapup(ctx, time.Now(), runner.WrapupOptions{Force: force, DryRun: dryRun})
	switch {
	case errors.Is(err, runner.ErrNotWrapupHour):
		fmt.Fprintf(out, "not wrap-up hour (%02d:00 %s); use --force to send now\n",
			a.cfg.Wrapup.Hour, a.cfg.WrapupLocation())
		return nil
	case errors.Is(err, store.ErrNotFound):
		fmt.Fprintln(out, "nothing collected today; skipping wrap-up")
		return nil
	case err != nil:
		return err
	}

	if dryRun {
		fmt.Fprintf(out, "Subject: %s\n\n%s", w.Subject, w.HTML)
		return nil
	}
	fmt.Fprintf(out, "wrap-up for %s sent with %d stories\n", w.Date, len(w.Stories))
	return nil
}

func runSummarize(in io.Reader, out io.Writer, path string, n int) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	_, err = fmt.Fprintln(out, summarize.Summarize(string(data), n))
	return err
}

func runServe(ctx context.Context, port int) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if port == 0 {
		port = a.cfg.Server.Port
	}

	srv := server.New(a.runner, port, a.logger.With().Str("component", "server").Logger())
	return srv.ListenAndServe(ctx)
}

func runDaemon(ctx context.Context, port int, runOnStart bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if port == 0 {
		port = a.cfg.Server.Port
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched, err := scheduler.New(a.runner, a.cfg.Schedule.Collect, wrapupSpec(a.cfg), a.cfg.Location(),
		a.logger.With().Str("component", "scheduler").Logger())
	if err != nil {
		return err
	}

	schedDone := make(chan error, 1)
	go func() { schedDone <- sched.Run(ctx, runOnStart) }()

	srv := server.New(a.runner, port, a.logger.With().Str("component", "server").Logger())
	srvErr := srv.ListenAndServe(ctx)
	cancel()

	if err := <-schedDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return srvErr
}

// wrapupSpec pins the wrap-up cron spec to the wrap-up timezone when it
// differs from the corpus timezone.
func wrapupSpec(cfg *config.Config) string {
	spec := cfg.Schedule.Wrapup
	if spec == "" || cfg.Wrapup.Timezone == "" || strings.HasPrefix(spec, "CRON_TZ=") || strings.HasPrefix(spec, "TZ=") {
		return spec
	}
	return "CRON_TZ=" + cfg.Wrapup.Timezone + " " + spec
}
