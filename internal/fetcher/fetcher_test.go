package fetcher

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"sricli/internal/config"
	apperrors "sricli/internal/errors"
	"sricli/pkg/contracts/domain"
)

func testFetcher(t *testing.T, dir string) *Fetcher {
	t.Helper()

	f := NewFetcher(slog.Default(), config.FetcherConfig{
		RetryAttempts:   3,
		DownloadTimeout: 10 * time.Second,
	}, dir)
	f.limiter = rate.NewLimiter(rate.Inf, 1)
	f.retryDelay = time.Millisecond
	return f
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "leftover temporary file %s", e.Name())
	}
}

func TestNewFetcherDefaults(t *testing.T) {
	f := NewFetcher(nil, config.FetcherConfig{}, t.TempDir())

	require.NotNil(t, f.logger)
	require.NotNil(t, f.client)
	assert.Equal(t, 12, f.config.RatePerMinute)
	assert.Equal(t, 1, f.config.RetryAttempts)
	assert.Equal(t, config.DownloadTimeout, f.client.Timeout)
}

func TestFetchLinksDownloads(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("PROVINCIA|TOTAL_VENTAS\nGUAYAS|100\n"))
	}))
	defer server.Close()

	dir := t.TempDir()
	f := testFetcher(t, dir)

	links := []DatasetLink{
		{URL: server.URL + "/sri_ventas_2024_01.csv", Year: 2024, Month: "01", Format: domain.DatasetFormatCSV},
		{URL: server.URL + "/sri_ventas_2024_02.csv", Year: 2024, Month: "02", Format: domain.DatasetFormatCSV},
	}

	result, err := f.FetchLinks(context.Background(), links, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"sri_ventas_2024_01.csv", "sri_ventas_2024_02.csv"}, result.Downloaded)
	assert.Empty(t, result.Skipped)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 2, result.Total())

	content, err := os.ReadFile(filepath.Join(dir, "sri_ventas_2024_01.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "PROVINCIA|TOTAL_VENTAS"))
	assertNoTempFiles(t, dir)
}

func TestFetchLinksSkipsExisting(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("fresh"))
	}))
	defer server.Close()

	dir := t.TempDir()
	existing := filepath.Join(dir, "sri_ventas_2024_01.csv")
	require.NoError(t, os.WriteFile(existing, []byte("stale"), 0644))

	f := testFetcher(t, dir)
	links := []DatasetLink{
		{URL: server.URL + "/sri_ventas_2024_01.csv", Year: 2024, Month: "01", Format: domain.DatasetFormatCSV},
	}

	t.Run("skips without force", func(t *testing.T) {
		result, err := f.FetchLinks(context.Background(), links, false)
		require.NoError(t, err)

		assert.Equal(t, []string{"sri_ventas_2024_01.csv"}, result.Skipped)
		assert.Empty(t, result.Downloaded)
		assert.Equal(t, int64(0), hits.Load())

		content, _ := os.ReadFile(existing)
		assert.Equal(t, "stale", string(content))
	})

	t.Run("force re-downloads", func(t *testing.T) {
		result, err := f.FetchLinks(context.Background(), links, true)
		require.NoError(t, err)

		assert.Equal(t, []string{"sri_ventas_2024_01.csv"}, result.Downloaded)
		assert.Equal(t, int64(1), hits.Load())

		content, _ := os.ReadFile(existing)
		assert.Equal(t, "fresh", string(content))
	})
}

func TestFetchLinksCollectsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "2024_02") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	dir := t.TempDir()
	f := testFetcher(t, dir)

	links := []DatasetLink{
		{URL: server.URL + "/sri_ventas_2024_01.csv", Year: 2024, Month: "01", Format: domain.DatasetFormatCSV},
		{URL: server.URL + "/sri_ventas_2024_02.csv", Year: 2024, Month: "02", Format: domain.DatasetFormatCSV},
		{URL: server.URL + "/sri_ventas_2024_03.csv", Year: 2024, Month: "03", Format: domain.DatasetFormatCSV},
	}

	result, err := f.FetchLinks(context.Background(), links, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"sri_ventas_2024_01.csv", "sri_ventas_2024_03.csv"}, result.Downloaded)
	assert.Equal(t, []string{"sri_ventas_2024_02.csv"}, result.Failed)

	_, statErr := os.Stat(filepath.Join(dir, "sri_ventas_2024_02.csv"))
	assert.True(t, os.IsNotExist(statErr), "failed download must not leave a destination file")
	assertNoTempFiles(t, dir)
}

func TestFetchLinksAbortsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	dir := t.TempDir()
	f := testFetcher(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	links := []DatasetLink{
		{URL: server.URL + "/sri_ventas_2024_01.csv", Year: 2024, Month: "01", Format: domain.DatasetFormatCSV},
	}

	_, err := f.FetchLinks(ctx, links, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDownloadFileRetries(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("second try"))
	}))
	defer server.Close()

	dir := t.TempDir()
	f := testFetcher(t, dir)
	dest := filepath.Join(dir, "sri_ventas_2024_01.csv")

	err := f.downloadFile(context.Background(), server.URL+"/sri_ventas_2024_01.csv", dest)
	require.NoError(t, err)

	assert.Equal(t, int64(2), hits.Load())
	content, _ := os.ReadFile(dest)
	assert.Equal(t, "second try", string(content))
}

func TestDownloadFileExhaustsRetries(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "broken", http.StatusInternalServerError)
	}))
	defer server.Close()

	dir := t.TempDir()
	f := testFetcher(t, dir)
	dest := filepath.Join(dir, "sri_ventas_2024_01.csv")

	err := f.downloadFile(context.Background(), server.URL+"/sri_ventas_2024_01.csv", dest)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeNetwork, appErr.Type)
	assert.Equal(t, int64(3), hits.Load())

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
	assertNoTempFiles(t, dir)
}

func TestDownloadFileCleansUpTruncatedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.Write([]byte("short"))
	}))
	defer server.Close()

	dir := t.TempDir()
	f := testFetcher(t, dir)
	f.config.RetryAttempts = 1
	dest := filepath.Join(dir, "sri_ventas_2024_01.csv")

	err := f.downloadFile(context.Background(), server.URL+"/sri_ventas_2024_01.csv", dest)
	require.Error(t, err)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "truncated download must not leave a destination file")
	assertNoTempFiles(t, dir)
}
