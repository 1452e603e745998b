package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sricli/pkg/contracts/domain"
)

func TestAnalyzerSalesByProvince(t *testing.T) {
	analyzer := NewAnalyzer(fixtureRecords(t))

	totals := analyzer.SalesByProvince()

	require.Len(t, totals, 4)
	assert.Equal(t, 1500.0, totals["PICHINCHA"])
	assert.Equal(t, 2100.0, totals["GUAYAS"])
	assert.Equal(t, 3000.0, totals["AZUAY"])
	assert.Equal(t, 0.0, totals["IMBABURA"], "cleaned NO_NUMERICO contributes zero")
}

func TestAnalyzerSalesForProvince(t *testing.T) {
	analyzer := NewAnalyzer(fixtureRecords(t))

	tests := []struct {
		name     string
		province string
		want     float64
	}{
		{name: "exact name", province: "PICHINCHA", want: 1500},
		{name: "lowercase with padding", province: "  pichincha ", want: 1500},
		{name: "unknown province", province: "NARNIA_NO_EXISTE", want: 0},
		{name: "empty maps to placeholder", province: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, analyzer.SalesForProvince(tt.province))
		})
	}
}

func TestAnalyzerExportsByMonth(t *testing.T) {
	analyzer := NewAnalyzer(fixtureRecords(t))

	totals := analyzer.ExportsByMonth()

	require.Len(t, totals, 4)
	assert.Equal(t, 700.0, totals["01"])
	assert.Equal(t, 1000.0, totals["02"], "clamped negative export adds nothing")
	assert.Equal(t, 0.0, totals["03"])
	assert.Equal(t, 0.0, totals["04"])
}

func TestAnalyzerExportsByMonthSkipsEmptyMonth(t *testing.T) {
	records := []domain.SalesRecord{
		{Province: "GUAYAS", Month: "01", Exports: 100},
		{Province: "GUAYAS", Month: "", Exports: 999},
	}

	totals := NewAnalyzer(records).ExportsByMonth()

	require.Len(t, totals, 1)
	assert.Equal(t, 100.0, totals["01"])
}

func TestAnalyzerTopImportProvince(t *testing.T) {
	t.Run("fixture winner", func(t *testing.T) {
		analyzer := NewAnalyzer(fixtureRecords(t))

		province, total := analyzer.TopImportProvince()
		assert.Equal(t, "GUAYAS", province)
		assert.Equal(t, 1300.0, total)
	})

	t.Run("empty dataset", func(t *testing.T) {
		province, total := NewAnalyzer(nil).TopImportProvince()
		assert.Equal(t, "", province)
		assert.Equal(t, 0.0, total)
	})

	t.Run("tie resolves alphabetically", func(t *testing.T) {
		records := []domain.SalesRecord{
			{Province: "ZAMORA CHINCHIPE", Imports: 500},
			{Province: "BOLIVAR", Imports: 500},
		}

		province, total := NewAnalyzer(records).TopImportProvince()
		assert.Equal(t, "BOLIVAR", province)
		assert.Equal(t, 500.0, total)
	})
}

func TestAnalyzerZeroRateShareByProvince(t *testing.T) {
	analyzer := NewAnalyzer(fixtureRecords(t))

	shares := analyzer.ZeroRateShareByProvince()

	require.Len(t, shares, 4)
	assert.Equal(t, 20.0, shares["PICHINCHA"])
	assert.InDelta(t, 16.6667, shares["GUAYAS"], 0.001)
	assert.Equal(t, 100.0, shares["AZUAY"])
	assert.Equal(t, 0.0, shares["IMBABURA"], "province without sales reports zero share")
}

func TestAnalyzerProvinces(t *testing.T) {
	analyzer := NewAnalyzer(fixtureRecords(t))

	provinces := analyzer.Provinces()

	assert.Equal(t, []string{"AZUAY", "GUAYAS", "IMBABURA", "PICHINCHA"}, provinces)
}

func TestAnalyzerEmpty(t *testing.T) {
	analyzer := NewAnalyzer(nil)

	assert.Equal(t, 0, analyzer.Len())
	assert.Empty(t, analyzer.SalesByProvince())
	assert.Empty(t, analyzer.ExportsByMonth())
	assert.Empty(t, analyzer.ZeroRateShareByProvince())
	assert.Empty(t, analyzer.Provinces())
}

func TestAnalyzerTotalsByProvince(t *testing.T) {
	totals := NewAnalyzer(fixtureRecords(t)).totalsByProvince()

	require.Contains(t, totals, "PICHINCHA")
	pichincha := totals["PICHINCHA"]
	assert.Equal(t, 2, pichincha.records)
	assert.Len(t, pichincha.months, 1, "both rows fall in month 01")
	assert.Equal(t, 1500.0, pichincha.total)
	assert.Equal(t, 300.0, pichincha.zeroRate)
	assert.Equal(t, 700.0, pichincha.exports)
	assert.Equal(t, 150.0, pichincha.imports)
}
