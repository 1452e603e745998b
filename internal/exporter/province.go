package exporter

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"sricli/internal/config"
	"sricli/pkg/contracts/domain"
)

// ProvinceExporter generates per-province report files
type ProvinceExporter struct {
	csvWriter *CSVWriter
}

// NewProvinceExporter creates a new province report exporter
func NewProvinceExporter(paths *config.Paths) *ProvinceExporter {
	return &ProvinceExporter{
		csvWriter: NewCSVWriter(paths),
	}
}

// ExportProvinceFiles generates an individual CSV file for each province with
// its full history, sorted chronologically. These files are meant for Excel
// users, so they carry a BOM and use comma separators.
func (p *ProvinceExporter) ExportProvinceFiles(records []domain.SalesRecord, outputDir string) error {
	// Group records by province
	recordsByProvince := make(map[string][]domain.SalesRecord)
	for _, record := range records {
		recordsByProvince[record.Province] = append(recordsByProvince[record.Province], record)
	}

	for province, provinceRecords := range recordsByProvince {
		// Sort by year then month (oldest to newest)
		sort.Slice(provinceRecords, func(i, j int) bool {
			if provinceRecords[i].Year != provinceRecords[j].Year {
				return provinceRecords[i].Year < provinceRecords[j].Year
			}
			return provinceRecords[i].Month < provinceRecords[j].Month
		})

		filename := fmt.Sprintf("%s_ventas.csv", sanitizeFilename(province))
		filePath := filepath.Join(outputDir, filename)

		var csvRecords [][]string
		for _, record := range provinceRecords {
			csvRecords = append(csvRecords, p.recordToCSVRow(record))
		}

		if err := p.csvWriter.WriteSimpleCSV(filePath, p.getHeaders(), csvRecords); err != nil {
			return fmt.Errorf("failed to write province file for %s: %w", province, err)
		}
	}

	return nil
}

// sanitizeFilename makes a province name safe to use as a file name.
// Province names may contain spaces ("EL ORO") or slashes.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_")
	return replacer.Replace(name)
}

// getHeaders returns the CSV headers for province history records.
// Using the same format as the cleaned dataset for consistency.
func (p *ProvinceExporter) getHeaders() []string {
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

// recordToCSVRow converts a sales record to a province CSV row
func (p *ProvinceExporter) recordToCSVRow(record domain.SalesRecord) []string {
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
