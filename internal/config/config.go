package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Security   SecurityConfig   `yaml:"security" envconfig:"SECURITY"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	Fetcher    FetcherConfig    `yaml:"fetcher" envconfig:"FETCHER"`
	Processing ProcessingConfig `yaml:"processing" envconfig:"PROCESSING"`
	WebSocket  WebSocketConfig  `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host             string        `yaml:"host" envconfig:"HOST" default:"localhost"`
	Port             int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout      time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout      time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes   int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	OperationTimeout time.Duration `yaml:"operation_timeout" envconfig:"OPERATION_TIMEOUT" default:"2h"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	RawDir     string `yaml:"raw_dir" envconfig:"RAW_DIR"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
	CacheDir   string `yaml:"cache_dir" envconfig:"CACHE_DIR"`
}

// FetcherConfig contains SRI portal fetcher configuration
type FetcherConfig struct {
	PortalURL       string        `yaml:"portal_url" envconfig:"PORTAL_URL" default:"https://www.sri.gob.ec/datasets"`
	Headless        bool          `yaml:"headless" envconfig:"HEADLESS" default:"true"`
	NavTimeout      time.Duration `yaml:"nav_timeout" envconfig:"NAV_TIMEOUT" default:"60s"`
	DownloadTimeout time.Duration `yaml:"download_timeout" envconfig:"DOWNLOAD_TIMEOUT" default:"5m"`
	RatePerMinute   int           `yaml:"rate_per_minute" envconfig:"RATE_PER_MINUTE" default:"12"`
	RetryAttempts   int           `yaml:"retry_attempts" envconfig:"RETRY_ATTEMPTS" default:"3"`
}

// ProcessingConfig contains dataset processing configuration
type ProcessingConfig struct {
	Separator  string `yaml:"separator" envconfig:"SEPARATOR" default:"|"`
	MaxWorkers int    `yaml:"max_workers" envconfig:"MAX_WORKERS" default:"4"`
	StrictMode bool   `yaml:"strict_mode" envconfig:"STRICT_MODE" default:"false"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
	WriteWait       time.Duration `yaml:"write_wait" envconfig:"WRITE_WAIT" default:"10s"`
	MaxMessageSize  int64         `yaml:"max_message_size" envconfig:"MAX_MESSAGE_SIZE" default:"524288"`
}

// Load builds the configuration from defaults, an optional config.yaml
// and SRI_-prefixed environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := getConfigFilePath(); path != "" {
		fileCfg, err := loadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		mergeConfigs(cfg, fileCfg)
	}

	// Environment variables win over file values
	if err := envconfig.Process("SRI", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration populated with safe defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "localhost",
			Port:             8080,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     15 * time.Second,
			IdleTimeout:      60 * time.Second,
			MaxHeaderBytes:   1 << 20,
			ShutdownTimeout:  30 * time.Second,
			OperationTimeout: DefaultOperationTimeout,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   "both",
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{},
		Fetcher: FetcherConfig{
			PortalURL:       SRIPortalURL,
			Headless:        true,
			NavTimeout:      PortalNavTimeout,
			DownloadTimeout: DownloadTimeout,
			RatePerMinute:   12,
			RetryAttempts:   3,
		},
		Processing: ProcessingConfig{
			Separator:  "|",
			MaxWorkers: 4,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  WebSocketReadBufferSize,
			WriteBufferSize: WebSocketWriteBufferSize,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
			WriteWait:       10 * time.Second,
			MaxMessageSize:  512 * 1024,
		},
	}
}

// loadFromFile reads a YAML configuration file.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// mergeConfigs overlays non-zero values from override onto base.
func mergeConfigs(base, override *Config) {
	if override.Server.Host != "" {
		base.Server.Host = override.Server.Host
	}
	if override.Server.Port != 0 {
		base.Server.Port = override.Server.Port
	}
	if override.Server.ReadTimeout != 0 {
		base.Server.ReadTimeout = override.Server.ReadTimeout
	}
	if override.Server.WriteTimeout != 0 {
		base.Server.WriteTimeout = override.Server.WriteTimeout
	}
	if override.Server.IdleTimeout != 0 {
		base.Server.IdleTimeout = override.Server.IdleTimeout
	}
	if override.Server.ShutdownTimeout != 0 {
		base.Server.ShutdownTimeout = override.Server.ShutdownTimeout
	}
	if override.Server.OperationTimeout != 0 {
		base.Server.OperationTimeout = override.Server.OperationTimeout
	}

	if len(override.Security.AllowedOrigins) > 0 {
		base.Security.AllowedOrigins = override.Security.AllowedOrigins
	}
	if override.Security.RateLimit.RPS != 0 {
		base.Security.RateLimit.RPS = override.Security.RateLimit.RPS
	}
	if override.Security.RateLimit.Burst != 0 {
		base.Security.RateLimit.Burst = override.Security.RateLimit.Burst
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}
	if override.Logging.Output != "" {
		base.Logging.Output = override.Logging.Output
	}
	if override.Logging.FilePath != "" {
		base.Logging.FilePath = override.Logging.FilePath
	}

	if override.Paths.DataDir != "" {
		base.Paths.DataDir = override.Paths.DataDir
	}
	if override.Paths.RawDir != "" {
		base.Paths.RawDir = override.Paths.RawDir
	}
	if override.Paths.ReportsDir != "" {
		base.Paths.ReportsDir = override.Paths.ReportsDir
	}
	if override.Paths.LogsDir != "" {
		base.Paths.LogsDir = override.Paths.LogsDir
	}
	if override.Paths.CacheDir != "" {
		base.Paths.CacheDir = override.Paths.CacheDir
	}

	if override.Fetcher.PortalURL != "" {
		base.Fetcher.PortalURL = override.Fetcher.PortalURL
	}
	if override.Fetcher.NavTimeout != 0 {
		base.Fetcher.NavTimeout = override.Fetcher.NavTimeout
	}
	if override.Fetcher.DownloadTimeout != 0 {
		base.Fetcher.DownloadTimeout = override.Fetcher.DownloadTimeout
	}
	if override.Fetcher.RatePerMinute != 0 {
		base.Fetcher.RatePerMinute = override.Fetcher.RatePerMinute
	}
	if override.Fetcher.RetryAttempts != 0 {
		base.Fetcher.RetryAttempts = override.Fetcher.RetryAttempts
	}

	if override.Processing.Separator != "" {
		base.Processing.Separator = override.Processing.Separator
	}
	if override.Processing.MaxWorkers != 0 {
		base.Processing.MaxWorkers = override.Processing.MaxWorkers
	}

	if override.WebSocket.ReadBufferSize != 0 {
		base.WebSocket.ReadBufferSize = override.WebSocket.ReadBufferSize
	}
	if override.WebSocket.WriteBufferSize != 0 {
		base.WebSocket.WriteBufferSize = override.WebSocket.WriteBufferSize
	}
	if override.WebSocket.PingPeriod != 0 {
		base.WebSocket.PingPeriod = override.WebSocket.PingPeriod
	}
	if override.WebSocket.PongWait != 0 {
		base.WebSocket.PongWait = override.WebSocket.PongWait
	}
}

// resolvePaths fills the Paths section from the executable-relative
// layout when a directory has not been overridden explicitly.
func (c *Config) resolvePaths() error {
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get application paths: %w", err)
	}

	if c.Paths.DataDir == "" {
		c.Paths.DataDir = paths.DataDir
	}
	if c.Paths.RawDir == "" {
		c.Paths.RawDir = paths.RawDir
	}
	if c.Paths.ReportsDir == "" {
		c.Paths.ReportsDir = paths.ReportsDir
	}
	if c.Paths.LogsDir == "" {
		c.Paths.LogsDir = paths.LogsDir
	}
	if c.Paths.CacheDir == "" {
		c.Paths.CacheDir = paths.CacheDir
	}

	// Log file lives under the logs directory unless given as absolute
	if c.Logging.FilePath != "" && !filepath.IsAbs(c.Logging.FilePath) {
		c.Logging.FilePath = filepath.Join(c.Paths.LogsDir, filepath.Base(c.Logging.FilePath))
	}

	return nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	switch c.Logging.Output {
	case "stdout", "file", "both":
	default:
		return fmt.Errorf("invalid log output: %s", c.Logging.Output)
	}

	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive, got %v", c.Security.RateLimit.RPS)
	}

	if len(c.Processing.Separator) != 1 {
		return fmt.Errorf("separator must be a single character, got %q", c.Processing.Separator)
	}

	if c.Processing.MaxWorkers < 1 {
		return fmt.Errorf("max workers must be positive, got %d", c.Processing.MaxWorkers)
	}

	if c.Fetcher.RatePerMinute < 1 {
		return fmt.Errorf("fetcher rate must be positive, got %d", c.Fetcher.RatePerMinute)
	}

	return nil
}

// getConfigFilePath returns the first config.yaml found in the usual
// locations, or empty when none exists.
func getConfigFilePath() string {
	candidates := []string{
		"config.yaml",
		"config.yml",
	}

	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(dir, "config.yaml"),
			filepath.Join(dir, "config.yml"),
		)
	}

	for _, path := range candidates {
		if FileExists(path) {
			return path
		}
	}

	return ""
}

// SeparatorRune returns the configured field separator as a rune.
func (c *ProcessingConfig) SeparatorRune() rune {
	if c.Separator == "" {
		return DefaultSeparator
	}
	return rune(c.Separator[0])
}

// Address returns the host:port the HTTP server binds to.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
