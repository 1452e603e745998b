package dataprocessing

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"sricli/internal/errors"
	"sricli/pkg/contracts/domain"
)

// utf8BOM is stripped from the front of CSV files exported by the portal.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoaderConfig holds configuration options for the Loader.
type LoaderConfig struct {
	Separator  rune // field separator for CSV datasets
	StrictMode bool // fail on malformed rows instead of skipping them
	MaxWorkers int  // concurrent file loads in LoadAll
}

// DefaultLoaderConfig returns the configuration matching the published
// SRI dataset format (pipe-separated, tolerant cleaning).
func DefaultLoaderConfig() LoaderConfig {
	return LoaderConfig{
		Separator:  '|',
		StrictMode: false,
		MaxWorkers: 4,
	}
}

// LoadStats reports what happened while loading a dataset. Cleaning never
// rejects a record, so failures surface here instead of as errors.
type LoadStats struct {
	Records       int `json:"records"`
	ParseFailures int `json:"parse_failures"`
	SkippedRows   int `json:"skipped_rows"`
}

// Merge adds the counts from other into s.
func (s *LoadStats) Merge(other LoadStats) {
	s.Records += other.Records
	s.ParseFailures += other.ParseFailures
	s.SkippedRows += other.SkippedRows
}

// Loader reads SRI sales datasets from CSV or Excel files and cleans
// every record on the way in.
type Loader struct {
	logger     *slog.Logger
	separator  rune
	strictMode bool
	maxWorkers int
}

// NewLoader creates a dataset loader with the given configuration.
func NewLoader(logger *slog.Logger, config LoaderConfig) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Separator == 0 {
		config.Separator = '|'
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 4
	}

	return &Loader{
		logger:     logger,
		separator:  config.Separator,
		strictMode: config.StrictMode,
		maxWorkers: config.MaxWorkers,
	}
}

// LoadCSV reads a pipe-separated dataset file. The first row is the header;
// columns are resolved by name so column order does not matter.
func (l *Loader) LoadCSV(ctx context.Context, path string) ([]domain.SalesRecord, LoadStats, error) {
	var stats LoadStats

	file, err := os.Open(path)
	if err != nil {
		return nil, stats, errors.NewStorageError(fmt.Sprintf("failed to open dataset %s", path), err)
	}
	defer file.Close()

	br := bufio.NewReader(file)
	if err := stripBOM(br); err != nil {
		return nil, stats, errors.NewParsingError(fmt.Sprintf("failed to read dataset %s", path), err)
	}

	reader := csv.NewReader(br)
	reader.Comma = l.separator
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			l.logger.WarnContext(ctx, "dataset file is empty",
				slog.String("path", path))
			return []domain.SalesRecord{}, stats, nil
		}
		return nil, stats, errors.NewParsingError(fmt.Sprintf("failed to read header of %s", path), err)
	}

	columns := mapColumns(header)
	if _, ok := columns[domain.ColumnProvince]; !ok {
		if l.strictMode {
			return nil, stats, errors.NewParsingError(
				fmt.Sprintf("dataset %s has no %s column", path, domain.ColumnProvince), nil)
		}
		l.logger.WarnContext(ctx, "dataset header missing province column, all rows default to DESCONOCIDA",
			slog.String("path", path))
	}

	var records []domain.SalesRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if l.strictMode {
				return nil, stats, errors.NewParsingError(fmt.Sprintf("malformed row in %s", path), err)
			}
			stats.SkippedRows++
			l.logger.WarnContext(ctx, "skipping malformed row",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}

		record, failures := parseRecord(columns, row)
		stats.ParseFailures += failures
		records = append(records, record)
	}

	stats.Records = len(records)

	l.logger.InfoContext(ctx, "dataset loaded",
		slog.String("path", path),
		slog.Int("records", stats.Records),
		slog.Int("parse_failures", stats.ParseFailures),
		slog.Int("skipped_rows", stats.SkippedRows))

	return records, stats, nil
}

// LoadExcel reads a dataset published as an Excel workbook. The sheet
// containing the sales columns is located by header inspection.
func (l *Loader) LoadExcel(ctx context.Context, path string) ([]domain.SalesRecord, LoadStats, error) {
	var stats LoadStats

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, stats, errors.NewStorageError(fmt.Sprintf("failed to open workbook %s", path), err)
	}
	defer f.Close()

	rows, sheetName, err := findSalesSheet(f)
	if err != nil {
		return nil, stats, errors.NewParsingError(fmt.Sprintf("no sales data sheet in %s", path), err)
	}

	l.logger.DebugContext(ctx, "found sales data sheet",
		slog.String("path", path),
		slog.String("sheet", sheetName))

	if len(rows) == 0 {
		return []domain.SalesRecord{}, stats, nil
	}

	columns := mapColumns(rows[0])

	records := make([]domain.SalesRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isEmptyRow(row) {
			stats.SkippedRows++
			continue
		}

		record, failures := parseRecord(columns, row)
		stats.ParseFailures += failures
		records = append(records, record)
	}

	stats.Records = len(records)

	l.logger.InfoContext(ctx, "dataset loaded",
		slog.String("path", path),
		slog.String("sheet", sheetName),
		slog.Int("records", stats.Records),
		slog.Int("parse_failures", stats.ParseFailures),
		slog.Int("skipped_rows", stats.SkippedRows))

	return records, stats, nil
}

// LoadFile dispatches to LoadCSV or LoadExcel based on the file extension.
func (l *Loader) LoadFile(ctx context.Context, path string) ([]domain.SalesRecord, LoadStats, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls":
		return l.LoadExcel(ctx, path)
	default:
		return l.LoadCSV(ctx, path)
	}
}

// LoadOrEmpty loads a dataset file, returning an empty slice with a warning
// when the file does not exist. Batch runs continue with whatever data is
// available instead of aborting.
func (l *Loader) LoadOrEmpty(ctx context.Context, path string) ([]domain.SalesRecord, LoadStats) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		l.logger.WarnContext(ctx, "dataset file not found, continuing with empty dataset",
			slog.String("path", path))
		return []domain.SalesRecord{}, LoadStats{}
	}

	records, stats, err := l.LoadFile(ctx, path)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to load dataset, continuing with empty dataset",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return []domain.SalesRecord{}, LoadStats{}
	}

	return records, stats
}

// LoadAll loads multiple dataset files concurrently and concatenates their
// records in input order. Missing files contribute empty datasets.
func (l *Loader) LoadAll(ctx context.Context, paths []string) ([]domain.SalesRecord, LoadStats, error) {
	results := make([][]domain.SalesRecord, len(paths))
	statsPerFile := make([]LoadStats, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.maxWorkers)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], statsPerFile[i] = l.LoadOrEmpty(gctx, path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, LoadStats{}, err
	}

	var stats LoadStats
	var records []domain.SalesRecord
	for i := range results {
		records = append(records, results[i]...)
		stats.Merge(statsPerFile[i])
	}
	stats.Records = len(records)

	l.logger.InfoContext(ctx, "all datasets loaded",
		slog.Int("files", len(paths)),
		slog.Int("records", stats.Records),
		slog.Int("parse_failures", stats.ParseFailures))

	return records, stats, nil
}

// stripBOM discards a leading UTF-8 byte order mark if present.
func stripBOM(br *bufio.Reader) error {
	prefix, err := br.Peek(len(utf8BOM))
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	if string(prefix) == string(utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return err
		}
	}
	return nil
}

// mapColumns maps normalized header names to their positions.
func mapColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		normalized := strings.ToUpper(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if _, exists := columns[normalized]; !exists {
			columns[normalized] = i
		}
	}
	return columns
}

// parseRecord builds a cleaned SalesRecord from a raw row. It returns the
// number of numeric fields that failed to parse and were zeroed.
func parseRecord(columns map[string]int, row []string) (domain.SalesRecord, int) {
	get := func(name string) string {
		if idx, ok := columns[name]; ok && idx < len(row) {
			return row[idx]
		}
		return ""
	}

	failures := 0
	clean := func(name string) float64 {
		value, ok := cleanNumber(get(name))
		if !ok {
			failures++
		}
		return value
	}

	record := domain.SalesRecord{
		Year:     parseYear(get(domain.ColumnYear)),
		Month:    strings.TrimSpace(get(domain.ColumnMonth)),
		Province: domain.NormalizeProvince(get(domain.ColumnProvince)),
	}

	record.TotalSales = clean(domain.ColumnTotalSales)
	record.ZeroRateSales = clean(domain.ColumnZeroRateSales)
	record.Exports = clean(domain.ColumnExports)
	record.Imports = clean(domain.ColumnImports)

	return record, failures
}

// cleanNumber applies the dataset cleaning rules to a raw numeric field:
// empty values become 0, decimal commas become points, unparseable values
// become 0 (reported via the second return), negatives are clamped to 0.
func cleanNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, true
	}

	s = strings.ReplaceAll(s, ",", ".")

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}

	if value < 0 {
		return 0, true
	}

	return value, true
}

// parseYear parses the ANIO column, defaulting to 0 on failure.
func parseYear(raw string) int {
	year, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return year
}

// findSalesSheet locates the worksheet containing the sales dataset by
// looking for the province column in the first rows of each sheet.
func findSalesSheet(f *excelize.File) ([][]string, string, error) {
	sheets := f.GetSheetList()

	for _, name := range sheets {
		rows, err := f.GetRows(name)
		if err != nil || len(rows) == 0 {
			continue
		}

		limit := len(rows)
		if limit > 4 {
			limit = 4
		}
		for i := 0; i < limit; i++ {
			rowText := strings.ToUpper(strings.Join(rows[i], " "))
			if strings.Contains(rowText, domain.ColumnProvince) &&
				strings.Contains(rowText, domain.ColumnTotalSales) {
				// Header may not be the first row; slice from it
				return rows[i:], name, nil
			}
		}
	}

	return nil, "", fmt.Errorf("no sheet with columns %s and %s", domain.ColumnProvince, domain.ColumnTotalSales)
}

// isEmptyRow reports whether every cell in the row is blank.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
