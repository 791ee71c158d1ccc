package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  host: 0.0.0.0
  port: 8080
  grpc_port: 9090
backend:
  base_url: https://api.viajeseguro.example
  vat_percent: 21
jwt:
  secret: 0123456789abcdef0123456789abcdef
  issuer: viaje-seguro
storage:
  type: mock
  upload_dir: ./uploads
capture:
  idle_timeout_minutes: 10
log:
  level: debug
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddress())
	assert.Equal(t, "0.0.0.0:9090", cfg.GetGRPCAddress())
	assert.Equal(t, 21.0, cfg.Backend.VATPercent)
	assert.Equal(t, 15*time.Second, cfg.BackendTimeout())
	assert.Equal(t, 10*time.Minute, cfg.CaptureIdleTimeout())
	assert.Equal(t, "http://localhost:8080", cfg.Storage.BaseURL)
	assert.Equal(t, 1280, cfg.Capture.MaxWidth)
	assert.Equal(t, 85, cfg.Capture.JPEGQuality)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "0 */5 * * * *", cfg.Scheduler.ExpireIdleCaptures)
	assert.Equal(t, time.Hour, cfg.SnapshotTTL())
	assert.False(t, cfg.Database.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "http://backend:3000")
	t.Setenv("VAT_PERCENT", "10.5")
	t.Setenv("SERVER_PORT", "8181")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "http://backend:3000", cfg.Backend.BaseURL)
	assert.Equal(t, 10.5, cfg.Backend.VATPercent)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 8080},
			Backend: BackendConfig{BaseURL: "http://backend"},
			JWT:     JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
			Storage: StorageConfig{UploadDir: "./uploads"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"Defaults", func(c *Config) {}, ""},
		{"Bad port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"No backend", func(c *Config) { c.Backend.BaseURL = "" }, "backend base URL is required"},
		{"Short secret", func(c *Config) { c.JWT.Secret = "short" }, "at least 32 characters"},
		{"Bad VAT", func(c *Config) { c.Backend.VATPercent = 120 }, "invalid VAT percent"},
		{"Firebase without bucket", func(c *Config) { c.Storage.Type = "firebase" }, "storage bucket is required"},
		{"Unknown storage", func(c *Config) { c.Storage.Type = "s3" }, "unknown storage type"},
		{"Mock without dir", func(c *Config) { c.Storage.UploadDir = "" }, "upload directory is required"},
		{"Bad quality", func(c *Config) { c.Capture.JPEGQuality = 101 }, "invalid jpeg quality"},
		{"Database without host", func(c *Config) { c.Database.Enabled = true }, "database host is required"},
		{"SendGrid without sender", func(c *Config) { c.Notifications.SendGridAPIKey = "SG.x" }, "from_email is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				assert.Equal(t, "mock", c.Storage.Type)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDatabaseConnectionString(t *testing.T) {
	c := &Config{Database: DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5432, Database: "audit", SSLMode: "disable"}}
	assert.Equal(t, "postgres://u:p@db:5432/audit?sslmode=disable", c.GetDatabaseConnectionString())
}

func TestGetSecurityLevel(t *testing.T) {
	assert.Equal(t, SecurityPublic, GetSecurityLevel("health"))
	assert.Equal(t, SecurityAccess, GetSecurityLevel("dashboard"))
	assert.Equal(t, SecurityAccess, GetSecurityLevel("something-new"))
}
