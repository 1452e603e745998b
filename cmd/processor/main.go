// Command processor runs the batch pipeline over downloaded SRI sales
// datasets: load and clean every sri_ventas_YYYY_MM file found in the
// input directory, export a combined clean CSV plus per-month files, and
// write the province summary in CSV and JSON form.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"sricli/internal/config"
	"sricli/internal/dataprocessing"
	"sricli/internal/exporter"
	"sricli/internal/files"
	"sricli/internal/infrastructure"
	"sricli/internal/validation"
	"sricli/pkg/contracts/domain"
)

// reportArchiveAge is how old a report file must be before a new batch run
// moves it into the archive subdirectory.
const reportArchiveAge = 30 * 24 * time.Hour

// processResult summarizes a batch run for the caller and the logs.
type processResult struct {
	FilesProcessed int
	Records        int
	ParseFailures  int
	SkippedRows    int
	Provinces      int
	CleanCSV       string
	SummaryCSV     string
	SummaryJSON    string
}

func main() {
	godotenv.Load()

	inDir := flag.String("in", "", "input directory with sri_ventas_YYYY_MM datasets (defaults to data/raw relative to executable)")
	outDir := flag.String("out", "", "output directory for reports (defaults to data/reports relative to executable)")
	sep := flag.String("sep", "|", "field separator used by CSV datasets")
	flag.Parse()

	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	if *inDir == "" {
		*inDir = paths.RawDir
	}
	if *outDir == "" {
		*outDir = paths.ReportsDir
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

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	separator, err := parseSeparator(*sep)
	if err != nil {
		logger.Error("Invalid separator flag", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Starting SRI sales processing",
		slog.String("input_dir", *inDir),
		slog.String("output_dir", *outDir),
		slog.String("separator", *sep))

	result, err := runProcessing(context.Background(), logger, *inDir, *outDir, separator, cfg.Processing.MaxWorkers)
	if err != nil {
		logger.Error("Processing failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Processing complete",
		slog.Int("files", result.FilesProcessed),
		slog.Int("records", result.Records),
		slog.Int("parse_failures", result.ParseFailures),
		slog.Int("provinces", result.Provinces))

	fmt.Printf("Processing complete: %d files\n", result.FilesProcessed)
	fmt.Println("All files processed")
}

// parseSeparator converts the -sep flag into the single rune the CSV
// reader needs.
func parseSeparator(s string) (rune, error) {
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, fmt.Errorf("separator must be a single character, got %q", s)
	}
	return runes[0], nil
}

// runProcessing executes the full batch pipeline: discover, load, export,
// summarize. Progress lines go to stdout so wrapping tools can track
// per-file progress.
func runProcessing(ctx context.Context, logger *slog.Logger, inDir, outDir string, separator rune, maxWorkers int) (*processResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Absolute paths keep the exporter from re-rooting relative output
	// files under the executable directory.
	inDir, err := filepath.Abs(inDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input directory: %w", err)
	}
	outDir, err = filepath.Abs(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateInputDirectory(inDir, config.DatasetFilePrefix+"*"); err != nil {
		return nil, err
	}
	if err := validator.ValidateOutputDirectory(outDir); err != nil {
		return nil, err
	}

	discovery := files.NewDiscovery(filepath.Dir(inDir))
	datasets, err := discovery.FindDatasetFiles(inDir)
	if err != nil {
		return nil, fmt.Errorf("failed to discover datasets: %w", err)
	}

	logger.Info("Dataset files discovered", slog.Int("count", len(datasets)))
	fmt.Printf("Found %d dataset files\n", len(datasets))

	loader := dataprocessing.NewLoader(logger, dataprocessing.LoaderConfig{
		Separator:  separator,
		MaxWorkers: maxWorkers,
	})
	summarizer := dataprocessing.NewSummarizer(logger, dataprocessing.DefaultSummarizerConfig())

	reportPaths := config.PathsFor(filepath.Dir(outDir))

	// Stale reports from earlier runs move aside before fresh ones land.
	manager := files.NewManager(reportPaths)
	if archived, err := manager.ArchiveOldReports(outDir, reportArchiveAge); err != nil {
		logger.Warn("Failed to archive old reports", slog.String("error", err.Error()))
	} else if archived > 0 {
		logger.Info("Archived old reports", slog.Int("count", archived))
		fmt.Printf("Archived %d old report files\n", archived)
	}

	datasetExporter := exporter.NewDatasetExporter(reportPaths)
	result := &processResult{
		CleanCSV:    filepath.Join(outDir, filepath.Base(reportPaths.CleanCSV)),
		SummaryCSV:  filepath.Join(outDir, filepath.Base(reportPaths.SummaryCSV)),
		SummaryJSON: filepath.Join(outDir, filepath.Base(reportPaths.SummaryJSON)),
	}

	if len(datasets) == 0 {
		logger.Warn("No dataset files found in input directory",
			slog.String("input_dir", inDir))

		// Empty but valid outputs keep downstream consumers working.
		if err := datasetExporter.ExportCleanDataset(nil, result.CleanCSV); err != nil {
			return nil, fmt.Errorf("failed to create empty clean dataset: %w", err)
		}
		if err := summarizer.WriteCSV(ctx, result.SummaryCSV, nil); err != nil {
			return nil, fmt.Errorf("failed to create empty summary CSV: %w", err)
		}
		if err := summarizer.WriteJSON(ctx, result.SummaryJSON, nil); err != nil {
			return nil, fmt.Errorf("failed to create empty summary JSON: %w", err)
		}
		return result, nil
	}

	stats := dataprocessing.LoadStats{}
	var combined []domain.SalesRecord
	for i, dataset := range datasets {
		logger.Info("Processing file",
			slog.Int("current", i+1),
			slog.Int("total", len(datasets)),
			slog.String("filename", dataset.Name))
		fmt.Printf("Processing file %d of %d: %s\n", i+1, len(datasets), dataset.Name)

		fileRecords, fileStats, err := loader.LoadFile(ctx, dataset.Path)
		if err != nil {
			logger.Error("Error loading dataset",
				slog.String("filename", dataset.Name),
				slog.String("error", err.Error()))
			continue
		}

		stats.Merge(fileStats)
		combined = append(combined, fileRecords...)
		result.FilesProcessed++
	}

	result.Records = len(combined)
	result.ParseFailures = stats.ParseFailures
	result.SkippedRows = stats.SkippedRows

	if err := datasetExporter.ExportCleanDataset(combined, result.CleanCSV); err != nil {
		return nil, fmt.Errorf("failed to export clean dataset: %w", err)
	}
	logger.Info("Saved clean dataset", slog.String("path", result.CleanCSV))

	monthlyDir := filepath.Join(outDir, "monthly")
	if err := datasetExporter.ExportMonthlyFiles(combined, monthlyDir); err != nil {
		return nil, fmt.Errorf("failed to export monthly files: %w", err)
	}

	provinceExporter := exporter.NewProvinceExporter(reportPaths)
	provincesDir := filepath.Join(outDir, "provinces")
	if err := provinceExporter.ExportProvinceFiles(combined, provincesDir); err != nil {
		return nil, fmt.Errorf("failed to export province files: %w", err)
	}

	summaries, err := summarizer.GenerateFromRecords(ctx, combined)
	if err != nil {
		return nil, fmt.Errorf("failed to generate province summary: %w", err)
	}
	result.Provinces = len(summaries)

	if err := summarizer.WriteCSV(ctx, result.SummaryCSV, summaries); err != nil {
		return nil, fmt.Errorf("failed to write summary CSV: %w", err)
	}
	if err := summarizer.WriteJSON(ctx, result.SummaryJSON, summaries); err != nil {
		return nil, fmt.Errorf("failed to write summary JSON: %w", err)
	}
	logger.Info("Saved province summaries",
		slog.String("csv", result.SummaryCSV),
		slog.String("json", result.SummaryJSON))

	return result, nil
}
