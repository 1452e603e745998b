package domain

import (
	"fmt"
	"time"
)

// DatasetFormat identifies the on-disk encoding of a dataset file.
type DatasetFormat string

const (
	DatasetFormatCSV   DatasetFormat = "csv"
	DatasetFormatExcel DatasetFormat = "xlsx"
)

// DatasetFile describes one discovered SRI dataset on disk. The canonical
// file name is sri_ventas_YYYY_MM followed by the format extension.
type DatasetFile struct {
	Name    string        `json:"name"`
	Path    string        `json:"path"`
	Year    int           `json:"year"`
	Month   string        `json:"month"`
	Format  DatasetFormat `json:"format"`
	Size    int64         `json:"size"`
	ModTime time.Time     `json:"mod_time"`
}

// Period returns the dataset period as "YYYY-MM".
func (f DatasetFile) Period() string {
	return fmt.Sprintf("%04d-%s", f.Year, f.Month)
}

// DatasetFileName builds the canonical dataset file name for a period.
func DatasetFileName(year int, month string, format DatasetFormat) string {
	return fmt.Sprintf("sri_ventas_%04d_%s.%s", year, month, format)
}
