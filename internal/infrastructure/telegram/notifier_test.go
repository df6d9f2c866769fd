package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	path string
	form url.Values
}

func recordingServer(t *testing.T, calls chan<- call) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		calls <- call{path: r.URL.Path, form: r.PostForm}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPublishDigest(t *testing.T) {
	t.Parallel()

	calls := make(chan call, 1)
	server := recordingServer(t, calls)

	n := NewNotifier("TOKEN", "99").WithAPIBase(server.URL+"/", server.Client())
	require.NoError(t, n.PublishDigest(context.Background(), "*alert*"))

	got := <-calls
	assert.Equal(t, "/botTOKEN/sendMessage", got.path)
	assert.Equal(t, "99", got.form.Get("chat_id"))
	assert.Equal(t, "*alert*", got.form.Get("text"))
	assert.Equal(t, "Markdown", got.form.Get("parse_mode"))
}

func TestPublishDigestSplitsLongMessages(t *testing.T) {
	t.Parallel()

	calls := make(chan call, 4)
	server := recordingServer(t, calls)

	line := strings.Repeat("x", 99) + "\n"
	digest := strings.Repeat(line, 60)

	n := NewNotifier("T", "1").WithAPIBase(server.URL, server.Client())
	require.NoError(t, n.PublishDigest(context.Background(), digest))
	close(calls)

	var joined strings.Builder
	count := 0
	for c := range calls {
		text := c.form.Get("text")
		assert.LessOrEqual(t, len(text), maxMessageLen)
		joined.WriteString(text)
		count++
	}
	assert.Equal(t, 2, count)
	assert.Equal(t, digest, joined.String())
}

func TestPublishDigestErrors(t *testing.T) {
	t.Parallel()

	assert.Error(t, NewNotifier("", "1").PublishDigest(context.Background(), "x"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	err := NewNotifier("T", "1").WithAPIBase(server.URL, server.Client()).PublishDigest(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"short"}, splitMessage("short", 10))
	assert.Equal(t, []string{"aaa\n", "bbb\n", "cc"}, splitMessage("aaa\nbbb\ncc", 5))
	assert.Equal(t, []string{"abcde", "fg"}, splitMessage("abcdefg", 5))
}

func TestSplitMessageKeepsRunesAndEscapes(t *testing.T) {
	t.Parallel()

	parts := splitMessage("abcçé", 4)
	assert.Equal(t, []string{"abc", "çé"}, parts)

	parts = splitMessage("ab\\_cd", 3)
	assert.Equal(t, []string{"ab", "\\_c", "d"}, parts)

	for _, p := range splitMessage(strings.Repeat("ção ", 2000), 4096) {
		assert.True(t, utf8.ValidString(p))
		assert.LessOrEqual(t, len(p), 4096)
	}
}
