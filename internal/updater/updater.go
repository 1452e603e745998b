// Package updater watches the SRI portal for dataset periods that are not
// on disk yet, so the UI can suggest an ingest without the user polling
// the portal by hand.
package updater

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"sricli/internal/fetcher"
	"sricli/internal/files"
)

// LinkDiscoverer lists the dataset links currently published on the
// portal. *fetcher.Fetcher implements it.
type LinkDiscoverer interface {
	DiscoverLinks(ctx context.Context) ([]fetcher.DatasetLink, error)
}

// UpdateInfo describes the portal periods missing from the local raw
// directory.
type UpdateInfo struct {
	Missing   []fetcher.DatasetLink
	CheckedAt time.Time
}

// Checker compares the portal's published datasets against the raw
// directory.
type Checker struct {
	discoverer LinkDiscoverer
	discovery  *files.Discovery
	rawDir     string
	logger     *slog.Logger
}

// NewChecker creates a dataset update checker.
func NewChecker(discoverer LinkDiscoverer, discovery *files.Discovery, rawDir string, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		discoverer: discoverer,
		discovery:  discovery,
		rawDir:     rawDir,
		logger:     logger.With(slog.String("component", "updater")),
	}
}

// Check returns the portal periods with no matching local dataset, sorted
// by period. A portal error is returned as is; having zero local datasets
// is not an error, it just means everything is missing.
func (c *Checker) Check(ctx context.Context) (*UpdateInfo, error) {
	links, err := c.discoverer.DiscoverLinks(ctx)
	if err != nil {
		return nil, err
	}

	local, err := c.discovery.FindDatasetFiles(c.rawDir)
	if err != nil {
		return nil, err
	}

	have := make(map[string]bool, len(local))
	for _, ds := range local {
		have[ds.Period()] = true
	}

	info := &UpdateInfo{CheckedAt: time.Now()}
	for _, link := range links {
		if !have[link.Period()] {
			info.Missing = append(info.Missing, link)
		}
	}
	sort.Slice(info.Missing, func(i, j int) bool {
		return info.Missing[i].Period() < info.Missing[j].Period()
	})
	return info, nil
}

// AutoChecker runs Check on an interval and hands the result to a
// callback, typically a websocket broadcast.
type AutoChecker struct {
	checker  *Checker
	interval time.Duration
	callback func(*UpdateInfo)
	logger   *slog.Logger

	stopOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

// NewAutoChecker creates an interval checker. The callback only fires
// when at least one period is missing.
func NewAutoChecker(checker *Checker, interval time.Duration, callback func(*UpdateInfo), logger *slog.Logger) *AutoChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoChecker{
		checker:  checker,
		interval: interval,
		callback: callback,
		logger:   logger.With(slog.String("component", "updater")),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the check loop. The first check runs after one interval,
// not immediately, so server startup never waits on the portal.
func (a *AutoChecker) Start() {
	go func() {
		defer close(a.done)
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		for {
			select {
			case <-a.quit:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				info, err := a.checker.Check(ctx)
				cancel()
				if err != nil {
					a.logger.Warn("dataset update check failed", slog.String("error", err.Error()))
					continue
				}
				if len(info.Missing) > 0 {
					a.logger.Info("new portal datasets available",
						slog.Int("missing", len(info.Missing)))
					a.callback(info)
				}
			}
		}
	}()
}

// Stop terminates the check loop and waits for it to exit.
func (a *AutoChecker) Stop() {
	a.stopOnce.Do(func() { close(a.quit) })
	<-a.done
}
