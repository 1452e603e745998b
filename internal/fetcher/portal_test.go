package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sricli/pkg/contracts/domain"
)

func TestParseDatasetLinks(t *testing.T) {
	portal := "https://www.sri.gob.ec/datasets"

	hrefs := []string{
		"/descargas/sri_ventas_2024_02.csv",
		"https://cdn.sri.gob.ec/files/sri_ventas_2024_01.csv",
		"sri_ventas_2023_12.xlsx?version=2",
		"/descargas/sri_ventas_2024_02.csv",
		"/descargas/resumen_provincias.csv",
		"/acerca-de",
		"javascript:void(0)",
		"",
	}

	links := parseDatasetLinks(portal, hrefs)
	require.Len(t, links, 3)

	assert.Equal(t, "2023-12", links[0].Period())
	assert.Equal(t, domain.DatasetFormatExcel, links[0].Format)
	assert.Equal(t, "https://www.sri.gob.ec/sri_ventas_2023_12.xlsx?version=2", links[0].URL)

	assert.Equal(t, "2024-01", links[1].Period())
	assert.Equal(t, "https://cdn.sri.gob.ec/files/sri_ventas_2024_01.csv", links[1].URL)

	assert.Equal(t, "2024-02", links[2].Period())
	assert.Equal(t, domain.DatasetFormatCSV, links[2].Format)
	assert.Equal(t, "https://www.sri.gob.ec/descargas/sri_ventas_2024_02.csv", links[2].URL)
}

func TestParseDatasetLinksKeepsBothFormats(t *testing.T) {
	links := parseDatasetLinks("https://example.com/", []string{
		"/sri_ventas_2024_01.csv",
		"/sri_ventas_2024_01.xlsx",
	})

	require.Len(t, links, 2)
	assert.Equal(t, links[0].Period(), links[1].Period())
	assert.NotEqual(t, links[0].Format, links[1].Format)
}

func TestDatasetLinkFileName(t *testing.T) {
	link := DatasetLink{Year: 2024, Month: "03", Format: domain.DatasetFormatCSV}
	assert.Equal(t, "sri_ventas_2024_03.csv", link.FileName())

	link.Format = domain.DatasetFormatExcel
	assert.Equal(t, "sri_ventas_2024_03.xlsx", link.FileName())
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantYear  int
		wantMonth string
		wantErr   bool
	}{
		{name: "valid period", input: "2024-01", wantYear: 2024, wantMonth: "01"},
		{name: "december", input: "2023-12", wantYear: 2023, wantMonth: "12"},
		{name: "month out of range", input: "2024-13", wantErr: true},
		{name: "missing month", input: "2024", wantErr: true},
		{name: "wrong separator", input: "2024_01", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			year, month, err := ParsePeriod(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantYear, year)
			assert.Equal(t, tt.wantMonth, month)
		})
	}
}

func TestPeriodInRange(t *testing.T) {
	tests := []struct {
		name   string
		period string
		from   string
		to     string
		want   bool
	}{
		{name: "inside range", period: "2024-02", from: "2024-01", to: "2024-03", want: true},
		{name: "at lower bound", period: "2024-01", from: "2024-01", to: "2024-03", want: true},
		{name: "at upper bound", period: "2024-03", from: "2024-01", to: "2024-03", want: true},
		{name: "before range", period: "2023-12", from: "2024-01", to: "2024-03", want: false},
		{name: "after range", period: "2024-04", from: "2024-01", to: "2024-03", want: false},
		{name: "open lower bound", period: "2019-01", from: "", to: "2024-03", want: true},
		{name: "open upper bound", period: "2030-06", from: "2024-01", to: "", want: true},
		{name: "fully open", period: "2024-02", from: "", to: "", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, periodInRange(tt.period, tt.from, tt.to))
		})
	}
}
