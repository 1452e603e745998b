package domain

import (
	"fmt"
	"strings"
)

// Column names of the SRI monthly sales datasets. The files are published
// with Spanish headers; they are the wire format and are kept verbatim.
const (
	ColumnYear          = "ANIO"
	ColumnMonth         = "MES"
	ColumnProvince      = "PROVINCIA"
	ColumnTotalSales    = "TOTAL_VENTAS"
	ColumnZeroRateSales = "VENTAS_NETAS_TARIFA_0"
	ColumnExports       = "EXPORTACIONES"
	ColumnImports       = "IMPORTACIONES"
)

// UnknownProvince is assigned to records whose PROVINCIA cell is empty or
// missing. Aggregations treat it as a regular province bucket.
const UnknownProvince = "DESCONOCIDA"

// SalesRecord is the authoritative representation of one row of an SRI
// sales dataset after cleaning. All loaders, analyzers, exporters and API
// responses use this structure.
//
// Cleaning invariants (enforced by the dataprocessing loader, not here):
//   - the four monetary fields are never negative and never NaN; dirty or
//     missing values degrade to 0.
//   - Province is trimmed and uppercased; empty becomes UnknownProvince.
//   - Month is kept verbatim ("01".."12"); it may be empty, and aggregations
//     by month skip such records.
type SalesRecord struct {
	Year          int     `json:"year,omitempty" csv:"ANIO"`
	Month         string  `json:"month" csv:"MES"`
	Province      string  `json:"province" csv:"PROVINCIA" validate:"required"`
	TotalSales    float64 `json:"total_sales" csv:"TOTAL_VENTAS" validate:"min=0"`
	ZeroRateSales float64 `json:"zero_rate_sales" csv:"VENTAS_NETAS_TARIFA_0" validate:"min=0"`
	Exports       float64 `json:"exports" csv:"EXPORTACIONES" validate:"min=0"`
	Imports       float64 `json:"imports" csv:"IMPORTACIONES" validate:"min=0"`
}

// NormalizeProvince returns the canonical form of a province name: trimmed,
// uppercased, UnknownProvince when empty.
func NormalizeProvince(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return UnknownProvince
	}
	return name
}

// ProvinceSummary is one row of the per-province aggregate report.
type ProvinceSummary struct {
	// Province is the canonical (uppercased) province name.
	Province string `json:"province" csv:"Province" validate:"required"`

	// Records is the number of dataset rows aggregated into this summary.
	Records int `json:"records" csv:"Records" validate:"min=0"`

	// Months is the number of distinct non-empty MES values seen.
	Months int `json:"months" csv:"Months" validate:"min=0"`

	TotalSales    float64 `json:"total_sales" csv:"TotalSales" validate:"min=0"`
	ZeroRateSales float64 `json:"zero_rate_sales" csv:"ZeroRateSales" validate:"min=0"`

	// ZeroRateShare is (ZeroRateSales/TotalSales)*100, or 0 when TotalSales
	// is 0.
	ZeroRateShare float64 `json:"zero_rate_share" csv:"ZeroRateShare" validate:"min=0"`

	Exports float64 `json:"exports" csv:"Exports" validate:"min=0"`
	Imports float64 `json:"imports" csv:"Imports" validate:"min=0"`
}

// Validate checks the summary against its structural rules.
func (s *ProvinceSummary) Validate() error {
	if s == nil {
		return fmt.Errorf("province summary cannot be nil")
	}
	if s.Province == "" {
		return fmt.Errorf("province is required")
	}
	if s.Records < 0 {
		return fmt.Errorf("records cannot be negative: %d", s.Records)
	}
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"total sales", s.TotalSales},
		{"zero rate sales", s.ZeroRateSales},
		{"zero rate share", s.ZeroRateShare},
		{"exports", s.Exports},
		{"imports", s.Imports},
	} {
		if v.value < 0 {
			return fmt.Errorf("%s cannot be negative: %.6f", v.name, v.value)
		}
	}
	return nil
}

// ProvinceTotal pairs a province with one aggregated amount. Used by API
// responses for ranked or keyed aggregates.
type ProvinceTotal struct {
	Province string  `json:"province"`
	Total    float64 `json:"total"`
}

// MonthlyTotal pairs a dataset month ("01".."12") with an aggregated amount.
type MonthlyTotal struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}
