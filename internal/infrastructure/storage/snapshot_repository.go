package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/ports"
)

const groupBatchSize = 100

// ErrNoSnapshot is returned when a feed has never been stored.
var ErrNoSnapshot = errors.New("no snapshot stored")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS analysis_runs (
		run_id          TEXT PRIMARY KEY,
		feed            TEXT      NOT NULL,
		fetched_at      TIMESTAMP NOT NULL,
		extraction_date TEXT,
		group_count     INTEGER   NOT NULL DEFAULT 0,
		listing_count   INTEGER   NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analysis_runs_feed ON analysis_runs(feed, fetched_at)`,
	`CREATE TABLE IF NOT EXISTS analysis_groups (
		run_id         TEXT             NOT NULL,
		position       INTEGER          NOT NULL,
		group_key      TEXT             NOT NULL,
		display_name   TEXT             NOT NULL DEFAULT '',
		min_price      DOUBLE PRECISION NOT NULL DEFAULT 0,
		max_price      DOUBLE PRECISION NOT NULL DEFAULT 0,
		recommendation TEXT             NOT NULL DEFAULT '',
		payload        TEXT             NOT NULL,
		PRIMARY KEY (run_id, position)
	)`,
}

// SnapshotRepository persists analyzed feeds into Postgres or SQLite.
type SnapshotRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.SnapshotRepository = (*SnapshotRepository)(nil)

// Open connects with the named driver ("postgres" or "sqlite") and migrates the schema.
func Open(ctx context.Context, driver, dsn string) (*SnapshotRepository, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	for i := 0; i < 5; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	repo := NewSnapshotRepository(db, driver)
	if err := repo.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return repo, nil
}

// NewSnapshotRepository wires an already opened sql.DB.
func NewSnapshotRepository(db *sql.DB, driver string) *SnapshotRepository {
	return &SnapshotRepository{db: db, builder: statementBuilder(driver)}
}

func statementBuilder(driver string) sq.StatementBuilderType {
	if driver == "postgres" {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

func (r *SnapshotRepository) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot stores the run header and its groups in feed order.
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) error {
	if r.db == nil {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var extraction any
	if snapshot.Result.ExtractionDate != nil {
		extraction = *snapshot.Result.ExtractionDate
	}

	query, args, err := r.builder.Insert("analysis_runs").
		Columns("run_id", "feed", "fetched_at", "extraction_date", "group_count", "listing_count").
		Values(snapshot.RunID, snapshot.Feed, snapshot.FetchedAt.UTC(), extraction,
			len(snapshot.Result.ProductGroups), snapshot.Result.ListingCount()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build run insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	groups := snapshot.Result.ProductGroups
	for start := 0; start < len(groups); start += groupBatchSize {
		end := min(start+groupBatchSize, len(groups))
		if err := r.insertGroups(ctx, tx, snapshot.RunID, start, groups[start:end]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) insertGroups(ctx context.Context, tx *sql.Tx, runID string, offset int, batch []domain.ProductGroup) error {
	insert := r.builder.Insert("analysis_groups").
		Columns("run_id", "position", "group_key", "display_name", "min_price", "max_price", "recommendation", "payload")

	for i, g := range batch {
		payload, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("marshal group %s: %w", g.GroupKey, err)
		}
		recommendation := ""
		if g.Recommendation != nil {
			recommendation = g.Recommendation.Message
		}
		insert = insert.Values(runID, offset+i, g.GroupKey, g.DisplayName, g.MinPrice, g.MaxPrice, recommendation, string(payload))
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build group insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert groups: %w", err)
	}
	return nil
}

// LatestSnapshot loads the most recent run stored for feed.
func (r *SnapshotRepository) LatestSnapshot(ctx context.Context, feed string) (domain.Snapshot, error) {
	if r.db == nil {
		return domain.Snapshot{}, ErrNoSnapshot
	}

	query, args, err := r.builder.
		Select("run_id", "feed", "fetched_at", "extraction_date").
		From("analysis_runs").
		Where(sq.Eq{"feed": feed}).
		OrderBy("fetched_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("build run query: %w", err)
	}

	var (
		snapshot   domain.Snapshot
		extraction sql.NullString
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&snapshot.RunID, &snapshot.Feed, &snapshot.FetchedAt, &extraction)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("query run: %w", err)
	}
	if extraction.Valid {
		v := extraction.String
		snapshot.Result.ExtractionDate = &v
	}

	groups, err := r.loadGroups(ctx, snapshot.RunID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snapshot.Result.ProductGroups = groups
	return snapshot, nil
}

func (r *SnapshotRepository) loadGroups(ctx context.Context, runID string) ([]domain.ProductGroup, error) {
	query, args, err := r.builder.
		Select("payload").
		From("analysis_groups").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build group query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}

	groups := make([]domain.ProductGroup, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan group: %w", err)
		}
		var g domain.ProductGroup
		if err := json.Unmarshal([]byte(payload), &g); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("decode group: %w", err)
		}
		groups = append(groups, g)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return groups, nil
}

// Close releases the database handle.
func (r *SnapshotRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}
