// Command fetcher downloads monthly sales datasets from the SRI
// statistics portal into the raw data directory. Link discovery drives a
// headless browser because the portal renders its file list client side.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"

	"sricli/internal/config"
	"sricli/internal/fetcher"
	"sricli/internal/infrastructure"
	"sricli/internal/validation"
)

var periodFlagRe = regexp.MustCompile(`^\d{4}-\d{2}$`)

func main() {
	godotenv.Load()

	from := flag.String("from", "", "start period (YYYY-MM), inclusive; empty for open start")
	to := flag.String("to", "", "end period (YYYY-MM), inclusive; empty for open end")
	force := flag.Bool("force", false, "re-download datasets that already exist locally")
	headless := flag.Bool("headless", true, "run the discovery browser headless")
	outDir := flag.String("out", "", "directory to save datasets (defaults to data/raw relative to executable)")
	flag.Parse()

	if err := validatePeriodFlags(*from, *to); err != nil {
		slog.Error("Invalid period flags", "error", err)
		os.Exit(1)
	}

	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	if *outDir == "" {
		*outDir = paths.RawDir
	}
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}
	cfg.Fetcher.Headless = *headless

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateOutputDirectory(*outDir); err != nil {
		logger.Error("Output directory validation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Starting SRI dataset fetch",
		slog.String("portal_url", cfg.Fetcher.PortalURL),
		slog.String("output_dir", *outDir),
		slog.String("from", *from),
		slog.String("to", *to),
		slog.Bool("force", *force),
		slog.Bool("headless", *headless))

	ctx, cancel := context.WithTimeout(context.Background(), config.FetcherTimeout)
	defer cancel()

	f := fetcher.NewFetcher(logger, cfg.Fetcher, *outDir)

	start := time.Now()
	result, err := f.FetchRange(ctx, *from, *to, *force)
	if err != nil {
		logger.Error("Fetch failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Fetch complete",
		slog.Int("downloaded", len(result.Downloaded)),
		slog.Int("skipped", len(result.Skipped)),
		slog.Int("failed", len(result.Failed)),
		slog.Duration("elapsed", time.Since(start)))

	fmt.Printf("Downloaded %d datasets (%d skipped, %d failed)\n",
		len(result.Downloaded), len(result.Skipped), len(result.Failed))

	if len(result.Failed) > 0 {
		os.Exit(1)
	}
}

// validatePeriodFlags checks the -from/-to flags: both optional, both
// YYYY-MM when present, and from must not come after to.
func validatePeriodFlags(from, to string) error {
	for _, period := range []string{from, to} {
		if period != "" && !periodFlagRe.MatchString(period) {
			return fmt.Errorf("period %q must be in YYYY-MM format", period)
		}
	}
	if from != "" && to != "" && from > to {
		return fmt.Errorf("start period %s is after end period %s", from, to)
	}
	return nil
}
