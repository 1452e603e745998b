package exporter

import (
	"fmt"
	"path/filepath"
	"sort"

	"sricli/internal/config"
	"sricli/pkg/contracts/domain"
)

// DatasetExporter writes cleaned sales datasets back to disk, either as one
// combined file or split by month.
type DatasetExporter struct {
	csvWriter *CSVWriter
}

// NewDatasetExporter creates a new cleaned dataset exporter
func NewDatasetExporter(paths *config.Paths) *DatasetExporter {
	return &DatasetExporter{
		csvWriter: NewCSVWriter(paths),
	}
}

// ExportCleanDataset exports all cleaned records to a single combined file.
// The output uses the dataset's native pipe separator and no BOM so it can
// be fed straight back into the loader or into analysis tools.
func (d *DatasetExporter) ExportCleanDataset(records []domain.SalesRecord, outputPath string) error {
	// Sort records by year, month and province for reproducible output
	sort.Slice(records, func(i, j int) bool {
		if records[i].Year != records[j].Year {
			return records[i].Year < records[j].Year
		}
		if records[i].Month != records[j].Month {
			return records[i].Month < records[j].Month
		}
		return records[i].Province < records[j].Province
	})

	var csvRecords [][]string
	for _, record := range records {
		csvRecords = append(csvRecords, d.recordToCSVRow(record))
	}

	return d.csvWriter.WriteCSV(outputPath, WriteOptions{
		Headers:   d.getHeaders(),
		Records:   csvRecords,
		Append:    false,
		BOMPrefix: false,
		Separator: config.DefaultSeparator,
	})
}

// ExportMonthlyFiles generates one cleaned CSV per year/month pair. Records
// without a month are not attributable and are left out.
func (d *DatasetExporter) ExportMonthlyFiles(records []domain.SalesRecord, outputDir string) error {
	recordsByMonth := d.groupByMonth(records)

	// Get sorted period keys
	var periods []string
	for period := range recordsByMonth {
		periods = append(periods, period)
	}
	sort.Strings(periods)

	for _, period := range periods {
		monthRecords := recordsByMonth[period]

		// Sort by province for consistent output
		sort.Slice(monthRecords, func(i, j int) bool {
			return monthRecords[i].Province < monthRecords[j].Province
		})

		filename := fmt.Sprintf("%s%s_clean.csv", config.DatasetFilePrefix, period)
		filePath := filepath.Join(outputDir, filename)

		var csvRecords [][]string
		for _, record := range monthRecords {
			csvRecords = append(csvRecords, d.recordToCSVRow(record))
		}

		err := d.csvWriter.WriteCSV(filePath, WriteOptions{
			Headers:   d.getHeaders(),
			Records:   csvRecords,
			Separator: config.DefaultSeparator,
		})
		if err != nil {
			return fmt.Errorf("failed to write monthly file for %s: %w", period, err)
		}
	}

	return nil
}

// ExportMonthlyFilesStreaming exports monthly files using streaming for large
// datasets, skipping periods listed in existingPeriods.
func (d *DatasetExporter) ExportMonthlyFilesStreaming(records []domain.SalesRecord, outputDir string, existingPeriods map[string]bool) error {
	recordsByMonth := d.groupByMonth(records)

	for period, monthRecords := range recordsByMonth {
		// Skip if already exists
		if existingPeriods != nil && existingPeriods[period] {
			continue
		}

		sort.Slice(monthRecords, func(i, j int) bool {
			return monthRecords[i].Province < monthRecords[j].Province
		})

		filename := fmt.Sprintf("%s%s_clean.csv", config.DatasetFilePrefix, period)
		filePath := filepath.Join(outputDir, filename)

		stream, err := d.csvWriter.CreateStreamWriter(filePath, WriteOptions{
			Headers:   d.getHeaders(),
			Separator: config.DefaultSeparator,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream writer for %s: %w", period, err)
		}

		for _, record := range monthRecords {
			if err := stream.WriteRecord(d.recordToCSVRow(record)); err != nil {
				stream.Close()
				return fmt.Errorf("failed to write record: %w", err)
			}
		}

		if err := stream.Close(); err != nil {
			return fmt.Errorf("failed to close stream for %s: %w", period, err)
		}
	}

	return nil
}

// groupByMonth groups records under a "YYYY_MM" period key.
func (d *DatasetExporter) groupByMonth(records []domain.SalesRecord) map[string][]domain.SalesRecord {
	recordsByMonth := make(map[string][]domain.SalesRecord)
	for _, record := range records {
		if record.Month == "" {
			continue
		}
		period := fmt.Sprintf("%04d_%s", record.Year, record.Month)
		recordsByMonth[period] = append(recordsByMonth[period], record)
	}
	return recordsByMonth
}

// getHeaders returns the CSV headers for cleaned sales records, matching the
// column names of the published datasets.
func (d *DatasetExporter) getHeaders() []string {
	return []string{
		domain.ColumnYear,
		domain.ColumnMonth,
		domain.ColumnProvince,
		domain.ColumnTotalSales,
		domain.ColumnZeroRateSales,
		domain.ColumnExports,
		domain.ColumnImports,
	}
}

// recordToCSVRow converts a sales record to a CSV row
func (d *DatasetExporter) recordToCSVRow(record domain.SalesRecord) []string {
	return []string{
		formatInt(record.Year),
		record.Month,
		record.Province,
		formatFloat(record.TotalSales),
		formatFloat(record.ZeroRateSales),
		formatFloat(record.Exports),
		formatFloat(record.Imports),
	}
}
