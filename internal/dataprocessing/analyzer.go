package dataprocessing

import (
	"sort"

	"sricli/pkg/contracts/domain"
)

// Analyzer computes aggregates over a set of cleaned sales records. It is
// a pure in-memory view; loading and cleaning happen in the Loader.
type Analyzer struct {
	records []domain.SalesRecord
}

// NewAnalyzer creates an analyzer over the given records. The slice is not
// copied; callers must not mutate it while the analyzer is in use.
func NewAnalyzer(records []domain.SalesRecord) *Analyzer {
	return &Analyzer{records: records}
}

// Len returns the number of records under analysis.
func (a *Analyzer) Len() int {
	return len(a.records)
}

// Records returns the underlying records.
func (a *Analyzer) Records() []domain.SalesRecord {
	return a.records
}

// SalesByProvince returns the sum of TOTAL_VENTAS per province.
func (a *Analyzer) SalesByProvince() map[string]float64 {
	totals := make(map[string]float64)
	for _, r := range a.records {
		totals[r.Province] += r.TotalSales
	}
	return totals
}

// SalesForProvince returns the total sales for one province. The name is
// normalized before lookup, and unknown provinces yield 0.
func (a *Analyzer) SalesForProvince(province string) float64 {
	name := domain.NormalizeProvince(province)

	var total float64
	for _, r := range a.records {
		if r.Province == name {
			total += r.TotalSales
		}
	}
	return total
}

// ExportsByMonth returns the sum of EXPORTACIONES per month. Records with
// an empty MES are not attributable to a month and are skipped.
func (a *Analyzer) ExportsByMonth() map[string]float64 {
	totals := make(map[string]float64)
	for _, r := range a.records {
		if r.Month == "" {
			continue
		}
		totals[r.Month] += r.Exports
	}
	return totals
}

// TopImportProvince returns the province with the highest accumulated
// IMPORTACIONES and its total. Ties resolve to the alphabetically first
// province; an empty dataset yields ("", 0).
func (a *Analyzer) TopImportProvince() (string, float64) {
	totals := make(map[string]float64)
	for _, r := range a.records {
		totals[r.Province] += r.Imports
	}

	if len(totals) == 0 {
		return "", 0
	}

	provinces := make([]string, 0, len(totals))
	for p := range totals {
		provinces = append(provinces, p)
	}
	sort.Strings(provinces)

	top := provinces[0]
	for _, p := range provinces[1:] {
		if totals[p] > totals[top] {
			top = p
		}
	}

	return top, totals[top]
}

// ZeroRateShareByProvince returns, per province, the percentage of total
// sales that carried the zero VAT rate: (zero/total)*100. Provinces with no
// sales report a share of 0.
func (a *Analyzer) ZeroRateShareByProvince() map[string]float64 {
	type sums struct {
		total float64
		zero  float64
	}

	accum := make(map[string]*sums)
	for _, r := range a.records {
		s, ok := accum[r.Province]
		if !ok {
			s = &sums{}
			accum[r.Province] = s
		}
		s.total += r.TotalSales
		s.zero += r.ZeroRateSales
	}

	shares := make(map[string]float64, len(accum))
	for province, s := range accum {
		if s.total == 0 {
			shares[province] = 0
			continue
		}
		shares[province] = (s.zero / s.total) * 100
	}
	return shares
}

// Provinces returns the distinct provinces present, sorted alphabetically.
func (a *Analyzer) Provinces() []string {
	seen := make(map[string]struct{})
	for _, r := range a.records {
		seen[r.Province] = struct{}{}
	}

	provinces := make([]string, 0, len(seen))
	for p := range seen {
		provinces = append(provinces, p)
	}
	sort.Strings(provinces)
	return provinces
}

// provinceTotals accumulates all per-province aggregates in one pass for
// the Summarizer.
type provinceTotals struct {
	records  int
	months   map[string]struct{}
	total    float64
	zeroRate float64
	exports  float64
	imports  float64
}

// totalsByProvince aggregates every monetary column per province.
func (a *Analyzer) totalsByProvince() map[string]*provinceTotals {
	accum := make(map[string]*provinceTotals)
	for _, r := range a.records {
		t, ok := accum[r.Province]
		if !ok {
			t = &provinceTotals{months: make(map[string]struct{})}
			accum[r.Province] = t
		}

		t.records++
		if r.Month != "" {
			t.months[r.Month] = struct{}{}
		}
		t.total += r.TotalSales
		t.zeroRate += r.ZeroRateSales
		t.exports += r.Exports
		t.imports += r.Imports
	}
	return accum
}
