package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp moves the test into an empty directory so no config.yaml or
// .env from the repo is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, int64(4096), cfg.Anthropic.MaxTokens)
	assert.Equal(t, 60, cfg.Anthropic.TimeoutSecs)
	assert.Zero(t, cfg.Anthropic.RateLimit)
	assert.Empty(t, cfg.Mapping.InstructionPath)
	assert.Equal(t, 1, cfg.Retry.MaxAttempts)
	assert.False(t, cfg.Salesforce.Enabled)
	assert.Equal(t, "https://login.salesforce.com", cfg.Salesforce.LoginURL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.MaxUploadMB)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
	assert.InDelta(t, 0.25, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
anthropic:
  model: claude-haiku-4-5-20251001
  timeout_secs: 20
mapping:
  instruction_path: ./instruction.md
log:
  level: debug
  format: console
server:
  port: 9090
  cors_origins:
    - https://app.example.com
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, 20, cfg.Anthropic.TimeoutSecs)
	assert.Equal(t, "./instruction.md", cfg.Mapping.InstructionPath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.CORSOrigins)
	// Defaults still apply for unset values
	assert.Equal(t, 10, cfg.Server.MaxUploadMB)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
anthropic:
  model: from-file
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("MAPPER_ANTHROPIC_MODEL", "from-env")
	t.Setenv("MAPPER_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Anthropic.Model)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MAPPER_SERVER_PORT=3000\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("MAPPER_SERVER_PORT") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [port"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestKeySource(t *testing.T) {
	t.Setenv("MAPPER_ANTHROPIC_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	key := AnthropicConfig{}.KeySource()
	assert.Empty(t, key())

	t.Setenv("ANTHROPIC_API_KEY", "sk-fallback")
	assert.Equal(t, "sk-fallback", key())

	key = AnthropicConfig{Key: " sk-config "}.KeySource()
	assert.Equal(t, "sk-config", key())

	t.Setenv("MAPPER_ANTHROPIC_KEY", "sk-env")
	assert.Equal(t, "sk-env", key())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Anthropic.TimeoutSecs = 60
	cfg.Retry.MaxAttempts = 1
	cfg.Server.Port = 8080
	cfg.Server.MaxUploadMB = 10
	cfg.Monitoring.FailureRateThreshold = 0.25
	return cfg
}

func TestValidateServe(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	cfg.Server.Port = 8080
	cfg.Server.MaxUploadMB = 0
	err = cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.max_upload_mb")

	cfg.Server.MaxUploadMB = 10
	cfg.Monitoring.FailureRateThreshold = 1.5
	err = cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failure_rate_threshold")
}

func TestValidateMap_RetryBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Retry.MaxAttempts = 0
	err := cfg.Validate("map")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry.max_attempts must be between 1 and 10")

	cfg.Retry.MaxAttempts = 11
	assert.Error(t, cfg.Validate("map"))

	cfg.Retry.MaxAttempts = 10
	assert.NoError(t, cfg.Validate("map"))
}

func TestValidate_Common(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.TimeoutSecs = 0
	cfg.Anthropic.RateLimit = -1

	err := cfg.Validate("map")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.timeout_secs must be > 0")
	assert.Contains(t, err.Error(), "anthropic.rate_limit must be >= 0")
}

func TestValidateSalesforce(t *testing.T) {
	cfg := validDefaults()
	cfg.Salesforce.Enabled = true

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "salesforce.client_id is required")
	assert.Contains(t, err.Error(), "salesforce.username is required")
	assert.Contains(t, err.Error(), "salesforce.key_path is required")

	cfg.Salesforce.ClientID = "3MVG9"
	cfg.Salesforce.Username = "svc@example.com"
	cfg.Salesforce.KeyPath = "/etc/sf/key.pem"
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
