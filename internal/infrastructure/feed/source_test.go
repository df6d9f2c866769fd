package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `<products extraction_date="2025-01-01"><product group="a"><price>1</price></product></products>`

func TestSourceFetchHTTP(t *testing.T) {
	t.Parallel()

	uaCh := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uaCh <- r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(doc))
	}))
	defer server.Close()

	src := NewSource(server.Client(), 0, nil)
	body, err := src.Fetch(context.Background(), server.URL+"/feed.xml")
	require.NoError(t, err)
	assert.Equal(t, doc, body)
	assert.Equal(t, "PriceScanner/1.0", <-uaCh)
}

func TestSourceFetchHTTPNonOK(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewSource(server.Client(), 0, nil).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSourceFetchHTTPBodyLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	_, err := NewSource(server.Client(), 32, nil).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 32 bytes")
}

func TestSourceFetchFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "feed.xml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	src := NewSource(nil, 0, nil)

	body, err := src.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, doc, body)

	body, err = src.Fetch(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, doc, body)
}

func TestSourceFetchErrors(t *testing.T) {
	t.Parallel()

	src := NewSource(nil, 0, nil)

	_, err := src.Fetch(context.Background(), "  ")
	require.Error(t, err)

	_, err = src.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.xml"))
	require.Error(t, err)
}
