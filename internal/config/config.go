package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Validation errors
var (
	ErrInvalidPort       = errors.New("invalid server port")
	ErrInvalidTimeout    = errors.New("timeout must be positive")
	ErrNoOrigins         = errors.New("at least one allowed origin must be specified")
	ErrNoUsers           = errors.New("at least one user must be configured")
	ErrInvalidEncoding   = errors.New("unsupported upload encoding")
	ErrInvalidUploadSize = errors.New("upload size limit must be positive")
	ErrInvalidLogLevel   = errors.New("invalid log level")
	ErrInvalidView       = errors.New("view sizes must be positive")
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Auth      AuthConfig      `yaml:"auth" envconfig:"AUTH"`
	Upload    UploadConfig    `yaml:"upload" envconfig:"UPLOAD"`
	Dashboard DashboardConfig `yaml:"dashboard" envconfig:"DASHBOARD"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	SecureCookies  bool            `yaml:"secure_cookies" envconfig:"SECURE_COOKIES"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	LoginThrottle  ThrottleConfig  `yaml:"login_throttle" envconfig:"LOGIN_THROTTLE"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// ThrottleConfig limits login attempts per client.
type ThrottleConfig struct {
	PerMinute float64 `yaml:"per_minute" envconfig:"PER_MINUTE"`
	Burst     int     `yaml:"burst" envconfig:"BURST"`
}

// AuthConfig holds the dashboard users and session settings. A user secret
// is either a plaintext password or a bcrypt hash.
type AuthConfig struct {
	Users       map[string]string `yaml:"users" envconfig:"USERS"`
	BcryptCost  int               `yaml:"bcrypt_cost" envconfig:"BCRYPT_COST"`
	SessionTTL  time.Duration     `yaml:"session_ttl" envconfig:"SESSION_TTL"`
	MaxSessions int               `yaml:"max_sessions" envconfig:"MAX_SESSIONS"`
	CookieName  string            `yaml:"cookie_name" envconfig:"COOKIE_NAME"`
}

// UploadConfig controls dataset uploads.
type UploadConfig struct {
	MaxBytes int64  `yaml:"max_bytes" envconfig:"MAX_BYTES"`
	Encoding string `yaml:"encoding" envconfig:"ENCODING"`
}

// DashboardConfig sizes the dashboard views.
type DashboardConfig struct {
	PreviewRows     int    `yaml:"preview_rows" envconfig:"PREVIEW_ROWS"`
	HistogramBins   int    `yaml:"histogram_bins" envconfig:"HISTOGRAM_BINS"`
	TopTypes        int    `yaml:"top_types" envconfig:"TOP_TYPES"`
	ChartAssetsHost string `yaml:"chart_assets_host" envconfig:"CHART_ASSETS_HOST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// TelemetryConfig selects tracing and metrics exporters.
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// Load loads configuration from the config file, a .env file and environment
// variables. An empty configFile searches the usual locations.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFile(ResolvePath(configFile))
}

// ResolvePath returns configFile, or the first config.yaml found in the
// usual locations when it is empty.
func ResolvePath(configFile string) string {
	if configFile != "" {
		return configFile
	}
	return getConfigFilePath()
}

// LoadFile loads defaults, then the YAML file if path is set, then the
// environment. It does not read .env.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Environment takes precedence over the file
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays YAML values onto cfg. A users map in the file
// replaces the default users instead of merging with them.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	defaults := cfg.Auth.Users
	cfg.Auth.Users = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg.Auth.Users = defaults
		return err
	}
	if cfg.Auth.Users == nil {
		cfg.Auth.Users = defaults
	}
	return nil
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}

	timeouts := map[string]time.Duration{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"server.request_timeout":  c.Server.RequestTimeout,
		"auth.session_ttl":        c.Auth.SessionTTL,
	}
	for name, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidTimeout, name)
		}
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return ErrNoOrigins
	}

	if len(c.Auth.Users) == 0 {
		return ErrNoUsers
	}
	if c.Auth.MaxSessions <= 0 {
		c.Auth.MaxSessions = DefaultMaxSessions
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = DefaultCookieName
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidUploadSize, c.Upload.MaxBytes)
	}
	switch strings.ToLower(c.Upload.Encoding) {
	case "", "latin1", "latin-1", "iso-8859-1", "cp1252", "windows-1252", "utf8", "utf-8":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidEncoding, c.Upload.Encoding)
	}

	if c.Dashboard.PreviewRows <= 0 || c.Dashboard.HistogramBins <= 0 || c.Dashboard.TopTypes <= 0 {
		return ErrInvalidView
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}
	if c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/platepulse.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
			LoginThrottle: ThrottleConfig{
				PerMinute: 10,
				Burst:     5,
			},
		},
		Auth: AuthConfig{
			Users: map[string]string{
				"admin": "password123",
				"user":  "zomato2024",
			},
			SessionTTL:  DefaultSessionTTL,
			MaxSessions: DefaultMaxSessions,
			CookieName:  DefaultCookieName,
		},
		Upload: UploadConfig{
			MaxBytes: DefaultMaxUpload,
			Encoding: "latin1",
		},
		Dashboard: DashboardConfig{
			PreviewRows:     DefaultPreviewRows,
			HistogramBins:   DefaultHistogramBins,
			TopTypes:        DefaultTopTypes,
			ChartAssetsHost: DefaultChartAssets,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "console",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "platepulse",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1,
		},
	}
}
