package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override, e.g. MAPPER_SERVER_PORT.
const EnvPrefix = "MAPPER"

// Config holds the full application configuration.
type Config struct {
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Mapping    MappingConfig    `yaml:"mapping" mapstructure:"mapping"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig configures the mapping service client.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst   int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// KeySource returns a func resolving the API key on every call, so a key
// set or rotated in the environment is picked up without a restart. The
// MAPPER_ANTHROPIC_KEY variable wins, then the configured key, then
// ANTHROPIC_API_KEY.
func (c AnthropicConfig) KeySource() func() string {
	configured := c.Key
	return func() string {
		if k := strings.TrimSpace(os.Getenv(EnvPrefix + "_ANTHROPIC_KEY")); k != "" {
			return k
		}
		if k := strings.TrimSpace(configured); k != "" {
			return k
		}
		return strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	}
}

// MappingConfig configures the mapping instruction.
type MappingConfig struct {
	// InstructionPath overrides the built-in instruction text.
	InstructionPath string `yaml:"instruction_path" mapstructure:"instruction_path"`
}

// RetryConfig is the caller-side retry policy for transient service
// failures. One attempt means no retry.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// SalesforceConfig holds Salesforce JWT auth settings. When Enabled, the
// Contact custom fields are loaded at startup and offered to the mapper.
type SalesforceConfig struct {
	Enabled   bool    `yaml:"enabled" mapstructure:"enabled"`
	ClientID  string  `yaml:"client_id" mapstructure:"client_id"`
	Username  string  `yaml:"username" mapstructure:"username"`
	KeyPath   string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL  string  `yaml:"login_url" mapstructure:"login_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int      `yaml:"port" mapstructure:"port"`
	MaxUploadMB     int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	CORSOrigins     []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownTimeout int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// MonitoringConfig configures webhook alerting on mapping health.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	LatencyThresholdSecs float64 `yaml:"latency_threshold_secs" mapstructure:"latency_threshold_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment, in
// increasing order of precedence.
func Load() (*Config, error) {
	// .env is optional; variables already set are left alone.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.timeout_secs", 60)
	v.SetDefault("anthropic.rate_limit", 0)
	v.SetDefault("anthropic.rate_burst", 1)
	v.SetDefault("mapping.instruction_path", "")
	v.SetDefault("retry.max_attempts", 1)
	v.SetDefault("retry.initial_backoff_ms", 1000)
	v.SetDefault("retry.max_backoff_ms", 20000)
	v.SetDefault("salesforce.enabled", false)
	v.SetDefault("salesforce.client_id", "")
	v.SetDefault("salesforce.username", "")
	v.SetDefault("salesforce.key_path", "")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.rate_limit", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout_secs", 15)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.latency_threshold_secs", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. Mode is "serve" or "map".
// The API key is not checked here: it is resolved per request and a
// missing key is reported by the mapper.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0 and <= 65535")
		}
		if c.Server.MaxUploadMB <= 0 {
			problems = append(problems, "server.max_upload_mb must be > 0")
		}
		if t := c.Monitoring.FailureRateThreshold; t < 0 || t > 1 {
			problems = append(problems, "monitoring.failure_rate_threshold must be between 0 and 1")
		}
	case "map":
		if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 10 {
			problems = append(problems, "retry.max_attempts must be between 1 and 10")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Anthropic.TimeoutSecs <= 0 {
		problems = append(problems, "anthropic.timeout_secs must be > 0")
	}
	if c.Anthropic.RateLimit < 0 {
		problems = append(problems, "anthropic.rate_limit must be >= 0")
	}
	if c.Salesforce.Enabled {
		if c.Salesforce.ClientID == "" {
			problems = append(problems, "salesforce.client_id is required when salesforce.enabled")
		}
		if c.Salesforce.Username == "" {
			problems = append(problems, "salesforce.username is required when salesforce.enabled")
		}
		if c.Salesforce.KeyPath == "" {
			problems = append(problems, "salesforce.key_path is required when salesforce.enabled")
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
