package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sricli/internal/dataprocessing"
	"sricli/pkg/contracts/domain"
)

func sampleRecords() []domain.SalesRecord {
	return []domain.SalesRecord{
		{Year: 2024, Month: "02", Province: "GUAYAS", TotalSales: 2000, ZeroRateSales: 300, Exports: 1000, Imports: 500},
		{Year: 2024, Month: "01", Province: "PICHINCHA", TotalSales: 1000, ZeroRateSales: 200, Exports: 500, Imports: 100},
		{Year: 2024, Month: "01", Province: "AZUAY", TotalSales: 3000, ZeroRateSales: 3000, Exports: 0, Imports: 1000},
		{Year: 2024, Month: "", Province: domain.UnknownProvince, TotalSales: 50},
	}
}

func readPipeCSV(t *testing.T, path string) [][]string {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = '|'
	rows, err := reader.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestDatasetExporter_ExportCleanDataset(t *testing.T) {
	_, paths := setupTestEnv(t)
	exporter := NewDatasetExporter(paths)

	require.NoError(t, exporter.ExportCleanDataset(sampleRecords(), paths.CleanCSV))

	content, err := os.ReadFile(paths.CleanCSV)
	require.NoError(t, err)
	assert.False(t, bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}), "combined file carries no BOM")

	rows := readPipeCSV(t, paths.CleanCSV)
	require.Len(t, rows, 5)

	assert.Equal(t, []string{"ANIO", "MES", "PROVINCIA", "TOTAL_VENTAS", "VENTAS_NETAS_TARIFA_0", "EXPORTACIONES", "IMPORTACIONES"}, rows[0])

	// Sorted by year, month, province; the record without a month sorts first.
	assert.Equal(t, domain.UnknownProvince, rows[1][2])
	assert.Equal(t, []string{"2024", "01", "AZUAY", "3000.00", "3000.00", "0.00", "1000.00"}, rows[2])
	assert.Equal(t, []string{"2024", "01", "PICHINCHA", "1000.00", "200.00", "500.00", "100.00"}, rows[3])
	assert.Equal(t, []string{"2024", "02", "GUAYAS", "2000.00", "300.00", "1000.00", "500.00"}, rows[4])
}

func TestDatasetExporter_CleanDatasetRoundTrips(t *testing.T) {
	_, paths := setupTestEnv(t)
	exporter := NewDatasetExporter(paths)

	require.NoError(t, exporter.ExportCleanDataset(sampleRecords(), paths.CleanCSV))

	loader := dataprocessing.NewLoader(slog.Default(), dataprocessing.DefaultLoaderConfig())
	records, stats, err := loader.LoadCSV(context.Background(), paths.CleanCSV)
	require.NoError(t, err)

	assert.Len(t, records, 4)
	assert.Equal(t, 0, stats.ParseFailures, "a cleaned dataset must reload without failures")
	assert.Equal(t, "AZUAY", records[1].Province)
	assert.Equal(t, 3000.0, records[1].TotalSales)
}

func TestDatasetExporter_ExportMonthlyFiles(t *testing.T) {
	_, paths := setupTestEnv(t)
	exporter := NewDatasetExporter(paths)

	require.NoError(t, exporter.ExportMonthlyFiles(sampleRecords(), "monthly"))

	january := paths.GetReportPath(filepath.Join("monthly", "sri_ventas_2024_01_clean.csv"))
	february := paths.GetReportPath(filepath.Join("monthly", "sri_ventas_2024_02_clean.csv"))

	janRows := readPipeCSV(t, january)
	require.Len(t, janRows, 3, "header plus two January records")
	assert.Equal(t, "AZUAY", janRows[1][2], "rows sorted by province")
	assert.Equal(t, "PICHINCHA", janRows[2][2])

	febRows := readPipeCSV(t, february)
	require.Len(t, febRows, 2)

	// The record without a month is not attributable to any file.
	entries, err := os.ReadDir(filepath.Dir(january))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDatasetExporter_ExportMonthlyFilesStreaming(t *testing.T) {
	_, paths := setupTestEnv(t)
	exporter := NewDatasetExporter(paths)

	existing := map[string]bool{"2024_01": true}
	require.NoError(t, exporter.ExportMonthlyFilesStreaming(sampleRecords(), "monthly", existing))

	_, err := os.Stat(paths.GetReportPath(filepath.Join("monthly", "sri_ventas_2024_01_clean.csv")))
	assert.True(t, os.IsNotExist(err), "existing period must be skipped")

	febRows := readPipeCSV(t, paths.GetReportPath(filepath.Join("monthly", "sri_ventas_2024_02_clean.csv")))
	require.Len(t, febRows, 2)
	assert.Equal(t, "GUAYAS", febRows[1][2])
}
