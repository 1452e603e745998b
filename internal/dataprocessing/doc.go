// Package dataprocessing provides the processing core for SRI sales datasets.
// It consolidates loading, cleaning, and analysis functionality into a cohesive
// package that handles the complete data lifecycle from raw dataset ingestion
// to aggregated province reports.
//
// # Architecture
//
// The package is organized into three main components:
//
// 1. Loader: Reads pipe-separated CSV and Excel datasets and cleans each record
// 2. Analyzer: Aggregates cleaned records (totals, monthly exports, shares)
// 3. Summarizer: Generates per-province summaries and writes CSV/JSON reports
//
// # Usage
//
// Loading a monthly dataset:
//
//	loader := dataprocessing.NewLoader(logger, dataprocessing.DefaultLoaderConfig())
//	records, stats, err := loader.LoadCSV(ctx, "data/raw/sri_ventas_2024_01.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Aggregating:
//
//	analyzer := dataprocessing.NewAnalyzer(records)
//	totals := analyzer.SalesByProvince()
//	top, amount := analyzer.TopImportProvince()
//
// Generating summaries:
//
//	summarizer := dataprocessing.NewSummarizer(logger, dataprocessing.DefaultSummarizerConfig())
//	summaries, err := summarizer.GenerateFromRecords(ctx, records)
//	err = summarizer.WriteCSV(ctx, "data/reports/resumen_provincias.csv", summaries)
//
// # Cleaning Rules
//
// Every record is cleaned on load, never rejected:
//
//	- Missing or empty numeric fields become 0.0
//	- Decimal commas are converted to decimal points before parsing
//	- Values that still fail to parse become 0.0 (counted in LoadStats)
//	- Negative amounts are clamped to 0.0
//	- Province names are trimmed, upper-cased, and default to "DESCONOCIDA"
//
// # Data Flow
//
// The typical data flow through this package:
//
//	Dataset File → Loader → SalesRecords → Analyzer/Summarizer → Reports
package dataprocessing
