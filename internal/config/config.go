package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Backend       BackendConfig       `yaml:"backend"`
	JWT           JWTConfig           `yaml:"jwt"`
	Storage       StorageConfig       `yaml:"storage"`
	Capture       CaptureConfig       `yaml:"capture"`
	Database      DatabaseConfig      `yaml:"database"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Log           LogConfig           `yaml:"log"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// BackendConfig points at the Viaje Seguro booking API
type BackendConfig struct {
	BaseURL        string  `yaml:"base_url"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	VATPercent     float64 `yaml:"vat_percent"`
}

// JWTConfig contains settings to validate partner access tokens
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// StorageConfig contains delivery photo storage settings
type StorageConfig struct {
	Type            string   `yaml:"type"`       // "mock" or "firebase"
	UploadDir       string   `yaml:"upload_dir"` // For mock storage
	BaseURL         string   `yaml:"base_url"`   // Server base URL for mock URLs
	Bucket          string   `yaml:"bucket"`
	CredentialsFile string   `yaml:"credentials_file"`
	MaxFileSize     int64    `yaml:"max_file_size_mb"`
	AllowedTypes    []string `yaml:"allowed_types"`
}

// CaptureConfig controls the capture wizard
type CaptureConfig struct {
	MaxWidth           int `yaml:"max_width"`
	JPEGQuality        int `yaml:"jpeg_quality"`
	IdleTimeoutMinutes int `yaml:"idle_timeout_minutes"`
}

// DatabaseConfig contains PostgreSQL connection settings for the audit trail
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// NotificationsConfig contains the receipt email settings
type NotificationsConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ExpireIdleCaptures string `yaml:"expire_idle_captures"`
	PruneDashboards    string `yaml:"prune_dashboards"`
	SnapshotTTLMinutes int    `yaml:"snapshot_ttl_minutes"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("GRPC_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.GRPCPort)
	}

	// Backend
	if val := os.Getenv("BACKEND_BASE_URL"); val != "" {
		c.Backend.BaseURL = val
	}
	if val := os.Getenv("VAT_PERCENT"); val != "" {
		fmt.Sscanf(val, "%g", &c.Backend.VATPercent)
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Storage
	if val := os.Getenv("STORAGE_TYPE"); val != "" {
		c.Storage.Type = val
	}
	if val := os.Getenv("UPLOAD_DIR"); val != "" {
		c.Storage.UploadDir = val
	}
	if val := os.Getenv("FIREBASE_STORAGE_BUCKET"); val != "" {
		c.Storage.Bucket = val
	}
	if val := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); val != "" {
		c.Storage.CredentialsFile = val
	}

	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}

	// Notifications
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Notifications.SendGridAPIKey = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}

	// Backend validation
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base URL is required")
	}
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = 15
	}
	if c.Backend.VATPercent < 0 || c.Backend.VATPercent > 100 {
		return fmt.Errorf("invalid VAT percent: %g", c.Backend.VATPercent)
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	// Storage validation
	switch c.Storage.Type {
	case "", "mock":
		c.Storage.Type = "mock"
		if c.Storage.UploadDir == "" {
			return fmt.Errorf("upload directory is required")
		}
		if c.Storage.BaseURL == "" {
			c.Storage.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
		}
	case "firebase":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage bucket is required for firebase storage")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", c.Storage.Type)
	}
	if c.Storage.MaxFileSize == 0 {
		c.Storage.MaxFileSize = 10
	}
	if len(c.Storage.AllowedTypes) == 0 {
		c.Storage.AllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	}

	// Capture defaults
	if c.Capture.MaxWidth == 0 {
		c.Capture.MaxWidth = 1280
	}
	if c.Capture.JPEGQuality == 0 {
		c.Capture.JPEGQuality = 85
	}
	if c.Capture.JPEGQuality < 1 || c.Capture.JPEGQuality > 100 {
		return fmt.Errorf("invalid jpeg quality: %d", c.Capture.JPEGQuality)
	}
	if c.Capture.IdleTimeoutMinutes == 0 {
		c.Capture.IdleTimeoutMinutes = 30
	}

	// Database validation, only when the audit trail is on
	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	}

	// Notifications defaults
	if c.Notifications.FromName == "" {
		c.Notifications.FromName = "Viaje Seguro"
	}
	if c.Notifications.SendGridAPIKey != "" && c.Notifications.FromEmail == "" {
		return fmt.Errorf("notifications from_email is required when SendGrid is enabled")
	}

	// Scheduler defaults
	if c.Scheduler.ExpireIdleCaptures == "" {
		c.Scheduler.ExpireIdleCaptures = "0 */5 * * * *" // every 5 minutes
	}
	if c.Scheduler.PruneDashboards == "" {
		c.Scheduler.PruneDashboards = "0 0 * * * *" // hourly
	}
	if c.Scheduler.SnapshotTTLMinutes == 0 {
		c.Scheduler.SnapshotTTLMinutes = 60
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC health server address, or "" when disabled
func (c *Config) GetGRPCAddress() string {
	if c.Server.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

// BackendTimeout is the per-request timeout of the booking API client
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// CaptureIdleTimeout is how long an untouched capture session may stay open
func (c *Config) CaptureIdleTimeout() time.Duration {
	return time.Duration(c.Capture.IdleTimeoutMinutes) * time.Minute
}

// SnapshotTTL is how long a cached dashboard survives without a refresh
func (c *Config) SnapshotTTL() time.Duration {
	return time.Duration(c.Scheduler.SnapshotTTLMinutes) * time.Minute
}
