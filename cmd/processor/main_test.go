package main

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const datasetHeader = "ANIO|MES|PROVINCIA|TOTAL_VENTAS|VENTAS_NETAS_TARIFA_0|EXPORTACIONES|IMPORTACIONES\n"

func writeDataset(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(datasetHeader+body), 0o644))
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

func TestParseSeparator(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    rune
		wantErr bool
	}{
		{"pipe", "|", '|', false},
		{"comma", ",", ',', false},
		{"semicolon", ";", ';', false},
		{"empty", "", 0, true},
		{"multi char", "||", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSeparator(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunProcessing(t *testing.T) {
	inDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "reports")

	writeDataset(t, inDir, "sri_ventas_2024_01.csv",
		"2024|1|Pichincha|1000,50|200|50|300\n"+
			"2024|1|guayas|2000|400|150|1300\n")
	writeDataset(t, inDir, "sri_ventas_2024_02.csv",
		"2024|2|PICHINCHA|499,50|100|25|200\n"+
			"2024|2|Guayas|100|50|abc|-10\n")

	result, err := runProcessing(context.Background(), nil, inDir, outDir, '|', 2)
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesProcessed)
	assert.Equal(t, 4, result.Records)
	assert.Equal(t, 1, result.ParseFailures, "the non-numeric exports field is zeroed and counted")
	assert.Equal(t, 2, result.Provinces)

	// Clean dataset round-trips with normalized provinces.
	rows := readPipeCSV(t, result.CleanCSV)
	require.Len(t, rows, 5)
	assert.Equal(t, "GUAYAS", rows[1][2])
	assert.Equal(t, "PICHINCHA", rows[2][2])

	// One monthly file per period.
	monthlyDir := filepath.Join(outDir, "monthly")
	entries, err := os.ReadDir(monthlyDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// One file per province.
	provinceEntries, err := os.ReadDir(filepath.Join(outDir, "provinces"))
	require.NoError(t, err)
	assert.Len(t, provinceEntries, 2)

	// Province summary totals include decimal-comma values.
	summaryRows := readPipeCSV(t, result.SummaryCSV)
	require.Len(t, summaryRows, 3)
	byProvince := map[string][]string{}
	for _, row := range summaryRows[1:] {
		byProvince[row[0]] = row
	}
	assert.Equal(t, "1500.00", byProvince["PICHINCHA"][3])
	assert.Equal(t, "2100.00", byProvince["GUAYAS"][3])

	_, err = os.Stat(result.SummaryJSON)
	assert.NoError(t, err)
}

func TestRunProcessingEmptyInput(t *testing.T) {
	inDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "reports")

	result, err := runProcessing(context.Background(), nil, inDir, outDir, '|', 2)
	require.NoError(t, err)

	assert.Zero(t, result.FilesProcessed)
	assert.Zero(t, result.Records)

	// Empty outputs still carry headers.
	rows := readPipeCSV(t, result.CleanCSV)
	require.Len(t, rows, 1)
	assert.Equal(t, "ANIO", rows[0][0])

	summaryRows := readPipeCSV(t, result.SummaryCSV)
	assert.Len(t, summaryRows, 1)
}

func TestRunProcessingArchivesStaleReports(t *testing.T) {
	inDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "reports")
	require.NoError(t, os.MkdirAll(outDir, 0o755))

	stalePath := filepath.Join(outDir, "resumen_provincias_viejo.csv")
	require.NoError(t, os.WriteFile(stalePath, []byte("PROVINCIA|TOTAL_VENTAS\n"), 0o644))
	stale := time.Now().Add(-60 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(stalePath, stale, stale))

	writeDataset(t, inDir, "sri_ventas_2024_01.csv", "2024|1|Pichincha|100|10|5|2\n")

	_, err := runProcessing(context.Background(), nil, inDir, outDir, '|', 2)
	require.NoError(t, err)

	_, err = os.Stat(stalePath)
	assert.True(t, os.IsNotExist(err), "stale report should have moved")
	_, err = os.Stat(filepath.Join(outDir, "archive", "resumen_provincias_viejo.csv"))
	assert.NoError(t, err)

	// The fresh outputs of the same run stay in place.
	_, err = os.Stat(filepath.Join(outDir, "resumen_provincias.csv"))
	assert.NoError(t, err)
}

func TestRunProcessingMissingInputDir(t *testing.T) {
	_, err := runProcessing(context.Background(), nil, filepath.Join(t.TempDir(), "missing"), t.TempDir(), '|', 2)
	assert.ErrorContains(t, err, "does not exist")
}
