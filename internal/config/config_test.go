package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SGISI_AUTH_JWT_SECRET", "unit-test-secret")
	t.Setenv("SGISI_EVIDENCE_KEY", "0123456789abcdef0123456789abcdef")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 5, cfg.Auth.SignInBurst)
	assert.Equal(t, 12*time.Second, cfg.Auth.SignInRefill)
	assert.Equal(t, "data/evidencias", cfg.Evidence.Dir)
	assert.Equal(t, "stdout", cfg.Audit.Sink)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("SGISI_AUTH_JWT_SECRET", "unit-test-secret")
	t.Setenv("SGISI_EVIDENCE_KEY", "0123456789abcdef0123456789abcdef")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
audit:
  sink: file
log:
  level: debug
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "file", cfg.Audit.Sink)
	assert.Equal(t, "debug", cfg.Log.Level)
	// untouched keys keep their defaults
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Auth:     AuthConfig{JWTSecret: "secret"},
		Evidence: EvidenceConfig{Key: "0123456789abcdef0123456789abcdef"},
		Audit:    AuditConfig{Sink: "stdout"},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"short evidence key", func(c *Config) { c.Evidence.Key = "too-short" }},
		{"long evidence key", func(c *Config) { c.Evidence.Key = valid.Evidence.Key + "x" }},
		{"unknown audit sink", func(c *Config) { c.Audit.Sink = "kafka" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
