// Package files provides file system operations and discovery utilities
// for SRI Pulse.
//
// This package contains two main components:
//
// Discovery: Provides file discovery operations such as finding dataset
// files (sri_ventas_YYYY_MM.csv/.xlsx sorted by period), Excel files, CSV
// files, and files matching glob patterns. GetLatestFile picks the most
// recently modified file from a listing.
//
// Manager: Moves report files around the data directory tree, archives
// reports past their retention age, and probes directories for
// writability. Relative paths resolve against the data directory tree.
//
// Example usage:
//
//	// Find the published datasets under the raw data directory
//	discovery := files.NewDiscovery(paths.RawDir)
//	datasets, err := discovery.FindDatasetFiles(".")
//
//	// Archive summaries older than the retention window
//	manager := files.NewManager(paths)
//	archived, err := manager.ArchiveOldReports(paths.ReportsDir, 30*24*time.Hour)
package files
