package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"PriceScanner/internal/config"
	"PriceScanner/internal/domain"
	"PriceScanner/internal/infrastructure/export"
	"PriceScanner/internal/infrastructure/feed"
	"PriceScanner/internal/infrastructure/parser"
	"PriceScanner/internal/infrastructure/scheduler"
	"PriceScanner/internal/infrastructure/storage"
	"PriceScanner/internal/infrastructure/telegram"
	"PriceScanner/internal/logging"
	"PriceScanner/internal/ports"
	"PriceScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	source   ports.FeedSource
	snaps    ports.SnapshotRepository
	pipeline *usecase.Pipeline
	closers  []func() error
}

// New builds the application; optional adapters are enabled by configuration.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	a.source = feed.NewSource(
		&http.Client{Timeout: cfg.Fetch.Timeout},
		cfg.Fetch.MaxBodyBytes,
		baseLogger.With("component", "source"),
	)

	deps := usecase.PipelineDeps{
		Source:    a.source,
		NewParser: a.newParser,
		Logger:    baseLogger.With("component", "pipeline"),
		Now: func() time.Time {
			return time.Now().In(cfg.Scheduler.Location())
		},
	}

	if cfg.Database.DSN != "" {
		repo, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open snapshot store: %w", err)
		}
		deps.Repository = repo
		a.snaps = repo
		a.closers = append(a.closers, repo.Close)
	}

	if cfg.Export.CSVPath != "" {
		writer, err := export.NewCSVWriter(cfg.Export.CSVPath)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("open csv export: %w", err)
		}
		deps.Reporter = writer
		a.closers = append(a.closers, writer.Close)
	}

	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		deps.Notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	a.pipeline = usecase.NewPipeline(deps)
	return a, nil
}

func (a *Application) newParser(opts domain.AnalysisOptions) ports.FeedParser {
	return parser.NewXMLParser(opts, a.logger.With("component", "parser"))
}

// Feeds resolves the configured feeds; an empty name selects all of them.
func (a *Application) Feeds(name string) ([]usecase.Feed, error) {
	var selected []config.FeedConfig
	if name == "" {
		selected = a.cfg.Feeds
	} else {
		fc, ok := a.cfg.Feed(name)
		if !ok {
			return nil, fmt.Errorf("unknown feed %q", name)
		}
		selected = []config.FeedConfig{fc}
	}

	feeds := make([]usecase.Feed, 0, len(selected))
	for _, fc := range selected {
		opts := fc.Options()
		if opts.Stores.Len() == 0 {
			a.logger.Warn("feed has no own stores, recommendations are disabled", "feed", fc.Name)
		}
		feeds = append(feeds, usecase.Feed{Name: fc.Name, URL: fc.URL, Options: opts})
	}
	return feeds, nil
}

// Analyze runs the pipeline once for the named feed, or every feed.
func (a *Application) Analyze(ctx context.Context, feedName string) ([]usecase.FeedReport, error) {
	feeds, err := a.Feeds(feedName)
	if err != nil {
		return nil, err
	}
	return a.pipeline.ProcessAll(ctx, feeds)
}

// ParseFile reads a local document and parses it with ad-hoc options.
// Nothing is persisted or exported.
func (a *Application) ParseFile(ctx context.Context, path string, opts domain.AnalysisOptions) (domain.ParseResult, error) {
	raw, err := a.source.Fetch(ctx, path)
	if err != nil {
		return domain.ParseResult{}, fmt.Errorf("read %s: %w", path, err)
	}
	result, err := a.newParser(opts).Parse(raw)
	if err != nil {
		return domain.ParseResult{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return result, nil
}

// LastSnapshots loads the most recent stored run of the named feed, or of every
// feed. Feeds that were never stored are skipped.
func (a *Application) LastSnapshots(ctx context.Context, feedName string) ([]usecase.FeedReport, error) {
	if a.snaps == nil {
		return nil, fmt.Errorf("snapshot store not configured")
	}
	feeds, err := a.Feeds(feedName)
	if err != nil {
		return nil, err
	}

	reports := make([]usecase.FeedReport, 0, len(feeds))
	for _, f := range feeds {
		snap, err := a.snaps.LatestSnapshot(ctx, f.Name)
		if errors.Is(err, storage.ErrNoSnapshot) {
			a.logger.Warn("no stored snapshot", "feed", f.Name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load snapshot %s: %w", f.Name, err)
		}
		reports = append(reports, usecase.FeedReport{
			Feed:      snap.Feed,
			RunID:     snap.RunID,
			FetchedAt: snap.FetchedAt,
			Result:    snap.Result,
		})
	}
	return reports, nil
}

// Watch re-runs the analysis every interval until ctx is cancelled.
// A non-positive interval falls back to the configured one.
func (a *Application) Watch(ctx context.Context, feedName string, interval time.Duration, onRun func(time.Time, []usecase.FeedReport, error)) error {
	feeds, err := a.Feeds(feedName)
	if err != nil {
		return err
	}
	if interval <= 0 {
		interval = a.cfg.Scheduler.Interval
	}

	ticker := scheduler.NewTickerScheduler(interval)
	sched := usecase.NewScheduler(ticker, a.pipeline, feeds, onRun)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("watching feeds", "feeds", len(feeds), "interval", interval.String())

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}

// Close releases the snapshot store and the export file.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
