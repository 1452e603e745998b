// Package config provides centralized configuration management for SRI Pulse.
// It handles loading configuration from multiple sources, validation, and provides
// a type-safe API for accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (config.yaml)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern SRI_* for namespacing:
//
//	SRI_SERVER_PORT=8080
//	SRI_LOGGING_LEVEL=info
//	SRI_FETCHER_PORTAL_URL=https://www.sri.gob.ec/datasets
//	SRI_PROCESSING_SEPARATOR=|
//
// # Path Management
//
// The package provides centralized path management through the Paths type,
// which handles all file system paths relative to the executable location:
//
//	paths, err := config.GetPaths()
//	rawPath := paths.GetRawPath("sri_ventas_2024_01.csv")
//	reportPath := paths.GetReportPath("resumen_provincias.csv")
//
// # Validation
//
// All configuration is validated at load time to ensure:
//
//	- Port and worker counts are within acceptable ranges
//	- Log level, format and output are recognized values
//	- The dataset field separator is a single character
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
