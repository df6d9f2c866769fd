package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"PriceScanner/internal/analysis"
	"PriceScanner/internal/domain"
	"PriceScanner/internal/ports"
)

var header = []string{
	"feed", "group_key", "display_name", "listing_id", "name", "seller", "price",
	"own_store", "price_status", "min_price", "max_price", "recommendation",
}

// CSVWriter writes one row per listing of the analyzed groups.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	closer io.Closer
	writer *csv.Writer
}

var _ ports.ReportWriter = (*CSVWriter)(nil)

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w, err := newWriter(f, f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

func newWriter(out io.Writer, closer io.Closer) (*CSVWriter, error) {
	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	return &CSVWriter{closer: closer, writer: w}, nil
}

// WriteGroups appends the listings of groups, in feed order.
func (c *CSVWriter) WriteGroups(feed string, groups []domain.ProductGroup) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, g := range groups {
		recommendation := ""
		if g.Recommendation != nil {
			recommendation = g.Recommendation.Message
		}
		for _, l := range g.Listings {
			row := []string{
				feed,
				g.GroupKey,
				g.DisplayName,
				l.ID,
				l.Name,
				l.Seller,
				formatPrice(l.Price),
				strconv.FormatBool(l.IsOwnStore),
				string(analysis.ClassifyPrice(l.Price, g.MinPrice, g.MaxPrice)),
				formatPrice(g.MinPrice),
				formatPrice(g.MaxPrice),
				recommendation,
			}
			if err := c.writer.Write(row); err != nil {
				return fmt.Errorf("csv: write row: %w", err)
			}
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writer.Flush()
	if c.closer == nil {
		return c.writer.Error()
	}
	return c.closer.Close()
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
