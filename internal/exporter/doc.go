// Package exporter provides CSV export functionality for SRI Pulse reports.
//
// This package contains three main components:
//
// CSVWriter: Core CSV writing functionality with support for headers,
// custom separators, streaming, and UTF-8 BOM for Excel compatibility.
//
// DatasetExporter: Writes cleaned sales datasets, either combined into one
// pipe-separated file or split into per-month files.
//
// ProvinceExporter: Generates individual history files per province for
// spreadsheet users.
//
// Example usage:
//
//	// Export the combined cleaned dataset
//	datasetExporter := exporter.NewDatasetExporter(paths)
//	err := datasetExporter.ExportCleanDataset(records, paths.CleanCSV)
//
//	// Export one history file per province
//	provinceExporter := exporter.NewProvinceExporter(paths)
//	err = provinceExporter.ExportProvinceFiles(records, "provinces")
package exporter
