package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"PriceScanner/internal/ports"
)

const defaultMaxBodyBytes int64 = 16 << 20

// Source fetches price-feed documents over HTTP or from the local filesystem.
type Source struct {
	client       *http.Client
	maxBodyBytes int64
	logger       *slog.Logger
}

var _ ports.FeedSource = (*Source)(nil)

// NewSource wires an HTTP client; a nil client gets a 20s timeout and a
// non-positive limit falls back to 16 MiB.
func NewSource(client *http.Client, maxBodyBytes int64, logger *slog.Logger) *Source {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &Source{client: client, maxBodyBytes: maxBodyBytes, logger: logger}
}

// Fetch returns the document at location: an http(s) URL, a file:// URL or a plain path.
func (s *Source) Fetch(ctx context.Context, location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", fmt.Errorf("feed location is empty")
	}

	parsed, err := url.Parse(location)
	if err == nil {
		switch parsed.Scheme {
		case "http", "https":
			return s.fetchHTTP(ctx, location)
		case "file":
			return s.readFile(parsed.Path)
		}
	}

	return s.readFile(location)
}

func (s *Source) fetchHTTP(ctx context.Context, location string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "PriceScanner/1.0")
	req.Header.Set("Accept", "text/xml, application/xml;q=0.9, */*;q=0.1")

	s.debug("fetch feed", "url", location)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("feed returned %s", resp.Status)
	}

	body, err := readLimited(resp.Body, s.maxBodyBytes)
	if err != nil {
		return "", fmt.Errorf("read feed: %w", err)
	}

	s.debug("feed fetched", "url", location, "bytes", len(body), "content_type", resp.Header.Get("Content-Type"))
	return body, nil
}

func (s *Source) readFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open feed file: %w", err)
	}
	defer f.Close()

	body, err := readLimited(f, s.maxBodyBytes)
	if err != nil {
		return "", fmt.Errorf("read feed file %s: %w", path, err)
	}
	return body, nil
}

func readLimited(r io.Reader, limit int64) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(raw)) > limit {
		return "", fmt.Errorf("document exceeds %d bytes", limit)
	}
	return string(raw), nil
}

func (s *Source) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
