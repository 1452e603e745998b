package config

import "time"

// Application constants for the SRI Pulse system
const (
	// Application Info
	AppName    = "SRI Pulse"
	AppVersion = "0.1.0"

	// Rate Limiting
	DefaultRateLimit = 100 // requests per minute
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	PortalNavTimeout    = 60 * time.Second
	DownloadTimeout     = 5 * time.Minute
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// File Paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultLogsDir    = "logs"
	DefaultRawDir     = "data/raw"
	DefaultReportsDir = "data/reports"

	// Operation Timeouts
	DefaultOperationTimeout = 2 * time.Hour
	FetcherTimeout          = 30 * time.Minute
	ProcessorTimeout        = 1 * time.Hour
	SummaryTimeout          = 15 * time.Minute

	// WebSocket Buffer Sizes
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Dataset file naming
	DatasetFilePrefix  = "sri_ventas_"
	DatasetFilePattern = `^sri_ventas_(\d{4})_(\d{2})\.(csv|xlsx)$`

	// Dataset wire format
	DefaultSeparator = '|'
)

// URLs and Endpoints
const (
	// SRI data sources
	SRIPortalURL    = "https://www.sri.gob.ec/datasets"
	SRIStatsSection = "saiku-ui/ventas"

	// API Endpoints (internal)
	APIBasePath        = "/api/v1"
	SalesEndpoint      = "/api/v1/sales"
	DatasetsEndpoint   = "/api/v1/datasets"
	OperationsEndpoint = "/api/v1/operations"
	HealthEndpoint     = "/api/v1/health"
	MetricsEndpoint    = "/metrics"

	// WebSocket Endpoints
	WebSocketEndpoint = "/ws"
)
