package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	// Save original environment to restore later
	originalEnv := make(map[string]string)
	envVars := []string{
		"SRI_SERVER_PORT", "SRI_SERVER_READ_TIMEOUT", "SRI_SERVER_WRITE_TIMEOUT",
		"SRI_SECURITY_ALLOWED_ORIGINS", "SRI_SECURITY_ENABLE_CORS",
		"SRI_LOGGING_LEVEL", "SRI_LOGGING_FORMAT", "SRI_LOGGING_OUTPUT",
		"SRI_PATHS_DATA_DIR", "SRI_PATHS_RAW_DIR", "SRI_PATHS_LOGS_DIR",
		"SRI_FETCHER_PORTAL_URL", "SRI_FETCHER_RATE_PER_MINUTE",
		"SRI_PROCESSING_SEPARATOR", "SRI_PROCESSING_MAX_WORKERS",
		"SRI_WEBSOCKET_READ_BUFFER_SIZE", "SRI_WEBSOCKET_WRITE_BUFFER_SIZE",
	}

	for _, envVar := range envVars {
		originalEnv[envVar] = os.Getenv(envVar)
	}

	defer func() {
		for _, envVar := range envVars {
			if val, exists := originalEnv[envVar]; exists && val != "" {
				os.Setenv(envVar, val)
			} else {
				os.Unsetenv(envVar)
			}
		}
	}()

	clearEnv := func() {
		for _, envVar := range envVars {
			os.Unsetenv(envVar)
		}
	}

	tests := []struct {
		name        string
		setupEnv    func()
		wantErr     bool
		errContains string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name:     "default configuration with no env vars",
			setupEnv: clearEnv,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "localhost", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

				assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
				assert.True(t, cfg.Security.EnableCORS)
				assert.True(t, cfg.Security.RateLimit.Enabled)
				assert.Equal(t, 100.0, cfg.Security.RateLimit.RPS)
				assert.Equal(t, 50, cfg.Security.RateLimit.Burst)

				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "both", cfg.Logging.Output)

				assert.Equal(t, SRIPortalURL, cfg.Fetcher.PortalURL)
				assert.True(t, cfg.Fetcher.Headless)
				assert.Equal(t, 12, cfg.Fetcher.RatePerMinute)

				assert.Equal(t, "|", cfg.Processing.Separator)
				assert.Equal(t, 4, cfg.Processing.MaxWorkers)

				assert.Equal(t, 1024, cfg.WebSocket.ReadBufferSize)
				assert.Equal(t, 1024, cfg.WebSocket.WriteBufferSize)
				assert.Equal(t, 30*time.Second, cfg.WebSocket.PingPeriod)
				assert.Equal(t, 60*time.Second, cfg.WebSocket.PongWait)

				// Paths resolved against the executable directory
				assert.True(t, filepath.IsAbs(cfg.Paths.DataDir))
				assert.True(t, filepath.IsAbs(cfg.Paths.RawDir))
				assert.True(t, filepath.IsAbs(cfg.Paths.ReportsDir))
			},
		},
		{
			name: "custom environment variables",
			setupEnv: func() {
				clearEnv()
				os.Setenv("SRI_SERVER_PORT", "9090")
				os.Setenv("SRI_SERVER_READ_TIMEOUT", "30s")
				os.Setenv("SRI_SECURITY_ALLOWED_ORIGINS", "http://example.com,https://example.com")
				os.Setenv("SRI_LOGGING_LEVEL", "debug")
				os.Setenv("SRI_FETCHER_PORTAL_URL", "https://portal.test/datasets")
				os.Setenv("SRI_FETCHER_RATE_PER_MINUTE", "6")
				os.Setenv("SRI_PROCESSING_SEPARATOR", ";")
				os.Setenv("SRI_PROCESSING_MAX_WORKERS", "8")
				os.Setenv("SRI_WEBSOCKET_READ_BUFFER_SIZE", "2048")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, []string{"http://example.com", "https://example.com"}, cfg.Security.AllowedOrigins)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "https://portal.test/datasets", cfg.Fetcher.PortalURL)
				assert.Equal(t, 6, cfg.Fetcher.RatePerMinute)
				assert.Equal(t, ";", cfg.Processing.Separator)
				assert.Equal(t, 8, cfg.Processing.MaxWorkers)
				assert.Equal(t, 2048, cfg.WebSocket.ReadBufferSize)
			},
		},
		{
			name: "invalid port number",
			setupEnv: func() {
				clearEnv()
				os.Setenv("SRI_SERVER_PORT", "99999")
			},
			wantErr:     true,
			errContains: "port",
		},
		{
			name: "invalid log level",
			setupEnv: func() {
				clearEnv()
				os.Setenv("SRI_LOGGING_LEVEL", "verbose")
			},
			wantErr:     true,
			errContains: "log level",
		},
		{
			name: "invalid log output",
			setupEnv: func() {
				clearEnv()
				os.Setenv("SRI_LOGGING_OUTPUT", "syslog")
			},
			wantErr:     true,
			errContains: "log output",
		},
		{
			name: "multi-character separator rejected",
			setupEnv: func() {
				clearEnv()
				os.Setenv("SRI_PROCESSING_SEPARATOR", "||")
			},
			wantErr:     true,
			errContains: "separator",
		},
		{
			name: "zero workers rejected",
			setupEnv: func() {
				clearEnv()
				os.Setenv("SRI_PROCESSING_MAX_WORKERS", "0")
			},
			wantErr:     true,
			errContains: "workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupEnv()

			cfg, err := Load()
			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Run("valid yaml file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		content := `
server:
  port: 9191
  host: 0.0.0.0
logging:
  level: warn
fetcher:
  rate_per_minute: 4
processing:
  separator: ";"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := loadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, 9191, cfg.Server.Port)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.Equal(t, 4, cfg.Fetcher.RatePerMinute)
		assert.Equal(t, ";", cfg.Processing.Separator)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [not: valid"), 0644))

		_, err := loadFromFile(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestMergeConfigs(t *testing.T) {
	base := Default()
	override := &Config{}
	override.Server.Port = 9999
	override.Logging.Level = "error"
	override.Paths.DataDir = "/srv/sri/data"
	override.Fetcher.RatePerMinute = 2
	override.Processing.Separator = ","

	mergeConfigs(base, override)

	assert.Equal(t, 9999, base.Server.Port)
	assert.Equal(t, "error", base.Logging.Level)
	assert.Equal(t, "/srv/sri/data", base.Paths.DataDir)
	assert.Equal(t, 2, base.Fetcher.RatePerMinute)
	assert.Equal(t, ",", base.Processing.Separator)

	// Fields absent from the override keep their defaults
	assert.Equal(t, "localhost", base.Server.Host)
	assert.Equal(t, "json", base.Logging.Format)
	assert.Equal(t, 4, base.Processing.MaxWorkers)
}

func TestValidate(t *testing.T) {
	valid := func() *Config { return Default() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"port too low", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, true},
		{"bad format", func(c *Config) { c.Logging.Format = "logfmt" }, true},
		{"bad output", func(c *Config) { c.Logging.Output = "null" }, true},
		{"empty separator", func(c *Config) { c.Processing.Separator = "" }, true},
		{"zero rate with limiter enabled", func(c *Config) { c.Security.RateLimit.RPS = 0 }, true},
		{"zero rate with limiter disabled", func(c *Config) {
			c.Security.RateLimit.Enabled = false
			c.Security.RateLimit.RPS = 0
		}, false},
		{"zero fetcher rate", func(c *Config) { c.Fetcher.RatePerMinute = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSeparatorRune(t *testing.T) {
	pc := ProcessingConfig{Separator: ";"}
	assert.Equal(t, ';', pc.SeparatorRune())

	empty := ProcessingConfig{}
	assert.Equal(t, '|', empty.SeparatorRune())
}

func TestServerAddress(t *testing.T) {
	sc := ServerConfig{Host: "0.0.0.0", Port: 8080}
	assert.Equal(t, "0.0.0.0:8080", sc.Address())
}
