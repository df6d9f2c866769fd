package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/ports"
)

// ParserFactory builds a parser bound to one feed's options.
type ParserFactory func(opts domain.AnalysisOptions) ports.FeedParser

// Feed is one price feed the pipeline analyzes.
type Feed struct {
	Name    string
	URL     string
	Options domain.AnalysisOptions
}

// FeedReport is the outcome of analyzing one feed.
type FeedReport struct {
	Feed      string
	RunID     string
	FetchedAt time.Time
	Result    domain.ParseResult
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.FeedSource
	NewParser  ParserFactory
	Repository ports.SnapshotRepository
	Reporter   ports.ReportWriter
	Notifier   ports.Notifier
	Logger     *slog.Logger
	Now        func() time.Time
}

// Pipeline implements the feed analysis workflow.
type Pipeline struct {
	source     ports.FeedSource
	newParser  ParserFactory
	repository ports.SnapshotRepository
	reporter   ports.ReportWriter
	notifier   ports.Notifier
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		source:     deps.Source,
		newParser:  deps.NewParser,
		repository: deps.Repository,
		reporter:   deps.Reporter,
		notifier:   deps.Notifier,
		logger:     deps.Logger,
		now:        now,
	}
}

// ProcessFeed fetches, parses and groups one feed, then hands the result to
// the optional repository, reporter and notifier.
func (p *Pipeline) ProcessFeed(ctx context.Context, feed Feed) (FeedReport, error) {
	if p.source == nil || p.newParser == nil {
		return FeedReport{}, fmt.Errorf("pipeline misconfigured")
	}

	raw, err := p.source.Fetch(ctx, feed.URL)
	if err != nil {
		return FeedReport{}, fmt.Errorf("fetch feed %s: %w", feed.Name, err)
	}

	result, err := p.newParser(feed.Options).Parse(raw)
	if err != nil {
		return FeedReport{}, fmt.Errorf("parse feed %s: %w", feed.Name, err)
	}

	report := FeedReport{
		Feed:      feed.Name,
		RunID:     uuid.NewString(),
		FetchedAt: p.now(),
		Result:    result,
	}
	p.info("feed analyzed", "feed", feed.Name, "run_id", report.RunID,
		"groups", len(result.ProductGroups), "listings", result.ListingCount())

	if p.repository != nil {
		err = p.repository.SaveSnapshot(ctx, domain.Snapshot{
			RunID:     report.RunID,
			Feed:      report.Feed,
			FetchedAt: report.FetchedAt,
			Result:    result,
		})
		if err != nil {
			return FeedReport{}, fmt.Errorf("persist feed %s: %w", feed.Name, err)
		}
	}

	if p.reporter != nil {
		if err := p.reporter.WriteGroups(feed.Name, result.ProductGroups); err != nil {
			return FeedReport{}, fmt.Errorf("export feed %s: %w", feed.Name, err)
		}
	}

	if p.notifier != nil {
		if digest := buildAlertDigest(feed.Name, result.ProductGroups); digest != "" {
			if err := p.notifier.PublishDigest(ctx, digest); err != nil {
				return FeedReport{}, fmt.Errorf("notify feed %s: %w", feed.Name, err)
			}
		}
	}

	return report, nil
}

// ProcessAll analyzes feeds concurrently and returns reports in input order.
// The first failure cancels the remaining feeds.
func (p *Pipeline) ProcessAll(ctx context.Context, feeds []Feed) ([]FeedReport, error) {
	reports := make([]FeedReport, len(feeds))

	g, gctx := errgroup.WithContext(ctx)
	for i, feed := range feeds {
		g.Go(func() error {
			report, err := p.ProcessFeed(gctx, feed)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// markdownEscaper guards the characters Telegram's legacy Markdown treats as markup.
var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func buildAlertDigest(feed string, groups []domain.ProductGroup) string {
	var b strings.Builder
	for _, g := range groups {
		if g.Recommendation == nil {
			continue
		}
		if b.Len() == 0 {
			fmt.Fprintf(&b, "*Price alerts: %s*\n\n", markdownEscaper.Replace(feed))
		}
		fmt.Fprintf(&b, "- %s\nMarket: %.2f - %.2f\n%s\n\n",
			markdownEscaper.Replace(g.DisplayName), g.MinPrice, g.MaxPrice, g.Recommendation.Message)
	}
	return b.String()
}

func (p *Pipeline) info(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}
