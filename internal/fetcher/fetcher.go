package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"sricli/internal/config"
	"sricli/internal/errors"
	"sricli/internal/infrastructure"
)

// Fetcher downloads monthly datasets from the SRI statistics portal. Link
// discovery needs a headless browser because the portal renders its file
// list with JavaScript; the files themselves are plain HTTP downloads.
type Fetcher struct {
	logger     *slog.Logger
	config     config.FetcherConfig
	outputDir  string
	client     *http.Client
	limiter    *rate.Limiter
	metrics    *infrastructure.BusinessMetrics
	retryDelay time.Duration
}

// FetchResult summarizes one fetch run. File names are canonical local
// names, not URLs.
type FetchResult struct {
	Downloaded []string
	Skipped    []string
	Failed     []string
}

// Total returns the number of links the run considered.
func (r *FetchResult) Total() int {
	return len(r.Downloaded) + len(r.Skipped) + len(r.Failed)
}

// NewFetcher creates a Fetcher that stores downloads under outputDir.
func NewFetcher(logger *slog.Logger, cfg config.FetcherConfig, outputDir string) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 12
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = config.DownloadTimeout
	}

	return &Fetcher{
		logger:     logger,
		config:     cfg,
		outputDir:  outputDir,
		client:     &http.Client{Timeout: cfg.DownloadTimeout},
		limiter:    rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), 1),
		metrics:    nil,
		retryDelay: time.Second,
	}
}

// SetMetrics attaches business metrics instruments. A nil receiver value
// disables recording.
func (f *Fetcher) SetMetrics(m *infrastructure.BusinessMetrics) {
	f.metrics = m
}

// FetchRange discovers portal links and downloads every dataset whose period
// falls inside [from, to]. Bounds are "YYYY-MM"; an empty bound is open
// ended. Existing files are skipped unless force is set.
//
// Individual download failures do not abort the run; they are collected in
// the result. The returned error is non-nil only when discovery fails or the
// context is cancelled.
func (f *Fetcher) FetchRange(ctx context.Context, from, to string, force bool) (*FetchResult, error) {
	links, err := f.DiscoverLinks(ctx)
	if err != nil {
		return nil, err
	}

	var inRange []DatasetLink
	for _, link := range links {
		if periodInRange(link.Period(), from, to) {
			inRange = append(inRange, link)
		}
	}

	f.logger.InfoContext(ctx, "fetch range resolved",
		"from", from,
		"to", to,
		"available", len(links),
		"selected", len(inRange))

	return f.FetchLinks(ctx, inRange, force)
}

// FetchLinks downloads the given links in order, honoring the rate limiter
// and the skip-existing rule.
func (f *Fetcher) FetchLinks(ctx context.Context, links []DatasetLink, force bool) (*FetchResult, error) {
	result := &FetchResult{}

	if err := os.MkdirAll(f.outputDir, 0750); err != nil {
		return nil, errors.NewStorageError(fmt.Sprintf("failed to create output directory %s", f.outputDir), err)
	}

	for _, link := range links {
		name := link.FileName()
		dest := filepath.Join(f.outputDir, name)

		if !force {
			if _, err := os.Stat(dest); err == nil {
				f.logger.DebugContext(ctx, "dataset already present, skipping",
					"file", name)
				result.Skipped = append(result.Skipped, name)
				continue
			}
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return result, err
		}

		start := time.Now()
		err := f.downloadFile(ctx, link.URL, dest)
		infrastructure.RecordFetchMetrics(ctx, f.metrics, link.Period(), time.Since(start), err)

		if err != nil {
			if ctx.Err() != nil {
				result.Failed = append(result.Failed, name)
				return result, ctx.Err()
			}
			f.logger.WarnContext(ctx, "dataset download failed",
				"file", name,
				"url", link.URL,
				"error", err)
			result.Failed = append(result.Failed, name)
			continue
		}

		f.logger.InfoContext(ctx, "dataset downloaded",
			"file", name,
			"period", link.Period(),
			"duration", time.Since(start).Round(time.Millisecond))
		result.Downloaded = append(result.Downloaded, name)
	}

	return result, nil
}

// downloadFile fetches url into dest, retrying transient failures. The body
// is written to a temporary file in the destination directory and renamed
// into place so readers never observe a partial download.
func (f *Fetcher) downloadFile(ctx context.Context, url, dest string) error {
	attempts := f.config.RetryAttempts

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = f.downloadOnce(ctx, url, dest)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
		if attempt < attempts {
			f.logger.DebugContext(ctx, "retrying download",
				"url", url,
				"attempt", attempt,
				"error", lastErr)
			select {
			case <-time.After(time.Duration(attempt) * f.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return errors.NewNetworkError(fmt.Sprintf("download failed after %d attempts: %s", attempts, url), lastErr)
}

func (f *Fetcher) downloadOnce(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return err
	}

	return nil
}
