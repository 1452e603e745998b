// Package app wires the SRI Pulse server together: configuration,
// logging, observability, services, the chi router and the HTTP server
// lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from config.yaml and SRI_-prefixed env vars
//	2. Initialize the slog logger and the OTel providers
//	3. Resolve the data tree and ensure its directories exist
//	4. Build the processing stack (loader, exporters, fetcher, operations)
//	5. Build the service layer and mount the HTTP handlers
//	6. Start the server, the websocket hub and the dataset update checker
//
// # Graceful Shutdown
//
// Run blocks until SIGINT or SIGTERM, then drains the HTTP server,
// cancels running operations, stops the websocket hub and flushes the
// OTel providers. Initialization errors are returned to the caller; the
// package never calls os.Exit.
package app
