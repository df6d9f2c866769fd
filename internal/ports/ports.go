package ports

import (
	"context"
	"time"

	"PriceScanner/internal/domain"
)

// FeedSource pulls the raw XML document of a price feed.
type FeedSource interface {
	Fetch(ctx context.Context, location string) (string, error)
}

// FeedParser turns raw feed text into grouped products.
type FeedParser interface {
	Parse(raw string) (domain.ParseResult, error)
}

// SnapshotRepository keeps analyzed feeds for history.
type SnapshotRepository interface {
	SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) error
	LatestSnapshot(ctx context.Context, feed string) (domain.Snapshot, error)
}

// ReportWriter exports analyzed groups (CSV, etc.).
type ReportWriter interface {
	WriteGroups(feed string, groups []domain.ProductGroup) error
}

// Notifier streams pricing alerts to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
