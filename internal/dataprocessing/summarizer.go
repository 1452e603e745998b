package dataprocessing

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"sricli/internal/errors"
	"sricli/pkg/contracts/domain"
)

// Summarizer generates the per-province summary consumed by the CLI report
// writers and the HTTP API. It consolidates the aggregation logic so both
// surfaces always produce identical numbers.
type Summarizer struct {
	logger   *slog.Logger
	decimals int
}

// SummarizerConfig holds configuration options for the Summarizer.
type SummarizerConfig struct {
	Decimals int // Number of decimal places for monetary columns in CSV output
}

// DefaultSummarizerConfig returns the configuration used by the CLI and server.
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{Decimals: 2}
}

// NewSummarizer creates a new province summarizer with the given configuration.
func NewSummarizer(logger *slog.Logger, config SummarizerConfig) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Decimals <= 0 {
		config.Decimals = 2
	}

	return &Summarizer{
		logger:   logger,
		decimals: config.Decimals,
	}
}

// GenerateFromRecords builds one summary row per province from cleaned sales
// records. Rows are sorted by province name for stable output.
func (s *Summarizer) GenerateFromRecords(ctx context.Context, records []domain.SalesRecord) ([]domain.ProvinceSummary, error) {
	s.logger.InfoContext(ctx, "generating province summaries from sales records",
		slog.Int("record_count", len(records)))

	if len(records) == 0 {
		return []domain.ProvinceSummary{}, nil
	}

	totals := NewAnalyzer(records).totalsByProvince()

	summaries := make([]domain.ProvinceSummary, 0, len(totals))
	for province, t := range totals {
		summary := domain.ProvinceSummary{
			Province:      province,
			Records:       t.records,
			Months:        len(t.months),
			TotalSales:    t.total,
			ZeroRateSales: t.zeroRate,
			Exports:       t.exports,
			Imports:       t.imports,
		}
		if t.total != 0 {
			summary.ZeroRateShare = (t.zeroRate / t.total) * 100
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Province < summaries[j].Province
	})

	s.logger.InfoContext(ctx, "successfully generated province summaries",
		slog.Int("province_count", len(summaries)))

	return summaries, nil
}

// WriteCSV writes province summaries to a CSV file. Column names match the
// upstream dataset vocabulary so the report joins cleanly with the raw files.
func (s *Summarizer) WriteCSV(ctx context.Context, path string, summaries []domain.ProvinceSummary) error {
	s.logger.InfoContext(ctx, "writing province summaries to CSV",
		slog.String("path", path),
		slog.Int("summary_count", len(summaries)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create directory for CSV output", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create CSV file for province summaries", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"PROVINCIA",
		"REGISTROS",
		"MESES",
		"TOTAL_VENTAS",
		"VENTAS_NETAS_TARIFA_0",
		"PORCENTAJE_TARIFA_0",
		"EXPORTACIONES",
		"IMPORTACIONES",
	}
	if err := writer.Write(header); err != nil {
		return errors.NewStorageError("failed to write CSV header row", err)
	}

	for _, summary := range summaries {
		row := []string{
			summary.Province,
			strconv.Itoa(summary.Records),
			strconv.Itoa(summary.Months),
			s.formatAmount(summary.TotalSales),
			s.formatAmount(summary.ZeroRateSales),
			s.formatAmount(summary.ZeroRateShare),
			s.formatAmount(summary.Exports),
			s.formatAmount(summary.Imports),
		}
		if err := writer.Write(row); err != nil {
			return errors.NewStorageError("failed to write CSV data row", err)
		}
	}

	s.logger.InfoContext(ctx, "successfully wrote province summaries to CSV",
		slog.String("path", path))

	return nil
}

// WriteJSON writes province summaries to a JSON file with metadata.
func (s *Summarizer) WriteJSON(ctx context.Context, path string, summaries []domain.ProvinceSummary) error {
	s.logger.InfoContext(ctx, "writing province summaries to JSON",
		slog.String("path", path),
		slog.Int("summary_count", len(summaries)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create directory for JSON output", err)
	}

	jsonData := map[string]interface{}{
		"provinces":    summaries,
		"count":        len(summaries),
		"generated_at": time.Now().Format(time.RFC3339),
		"format":       "province_summary_v1",
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create JSON file for province summaries", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(jsonData); err != nil {
		return errors.NewStorageError("failed to encode province summaries to JSON", err)
	}

	s.logger.InfoContext(ctx, "successfully wrote province summaries to JSON",
		slog.String("path", path))

	return nil
}

func (s *Summarizer) formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', s.decimals, 64)
}
