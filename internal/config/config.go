// Package config provides configuration loading, defaults, and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// MaxCredentialSlots bounds the enumerable CREDENTIAL_<n> environment slots.
const MaxCredentialSlots = 100

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Retry    RetryConfig    `mapstructure:"retry"`
}

type ServerConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	Mode              string `mapstructure:"mode"` // debug/release
	ReadHeaderTimeout int    `mapstructure:"read_header_timeout"`
	IdleTimeout       int    `mapstructure:"idle_timeout"`
}

type LogConfig struct {
	Level       string          `mapstructure:"level"`
	Format      string          `mapstructure:"format"`
	ServiceName string          `mapstructure:"service_name"`
	Environment string          `mapstructure:"env"`
	Caller      bool            `mapstructure:"caller"`
	Output      LogOutputConfig `mapstructure:"output"`
	Rotation    LogRotation     `mapstructure:"rotation"`
}

type LogOutputConfig struct {
	ToStdout bool   `mapstructure:"to_stdout"`
	ToFile   bool   `mapstructure:"to_file"`
	FilePath string `mapstructure:"file_path"`
}

type LogRotation struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
	LocalTime  bool `mapstructure:"local_time"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// Connection pool and timeout knobs.
	DialTimeoutSeconds  int `mapstructure:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int `mapstructure:"write_timeout_seconds"`
	PoolSize            int `mapstructure:"pool_size"`
}

// GatewayConfig protects the inbound surface with a single static API key.
type GatewayConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// OAuthConfig carries the client credentials for refresh_token grants.
type OAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TokenURL     string `mapstructure:"token_url"`
	ProxyURL     string `mapstructure:"proxy_url"`
}

type UpstreamConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	APIVersion string `mapstructure:"api_version"`
	ProxyURL   string `mapstructure:"proxy_url"`
	// TimeoutSeconds bounds a single upstream call.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type RetryConfig struct {
	MaxRetries  int `mapstructure:"max_retries"`
	BaseDelayMS int `mapstructure:"base_delay_ms"`
}

// ListenAddr returns the host:port the HTTP server binds.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Load reads and validates configuration.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		viper.AddConfigPath(dataDir)
	}
	viper.AddConfigPath("/app/data")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/credgate")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config error: %w", err)
		}
		// Missing config file falls back to defaults plus env.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config error: %w", err)
	}

	cfg.Server.Mode = strings.ToLower(strings.TrimSpace(cfg.Server.Mode))
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.Log.ServiceName = strings.TrimSpace(cfg.Log.ServiceName)
	cfg.Log.Environment = strings.TrimSpace(cfg.Log.Environment)
	cfg.Log.Output.FilePath = strings.TrimSpace(cfg.Log.Output.FilePath)
	cfg.Gateway.APIKey = strings.TrimSpace(cfg.Gateway.APIKey)
	cfg.OAuth.ClientID = strings.TrimSpace(cfg.OAuth.ClientID)
	cfg.OAuth.ClientSecret = strings.TrimSpace(cfg.OAuth.ClientSecret)
	cfg.OAuth.TokenURL = strings.TrimSpace(cfg.OAuth.TokenURL)
	cfg.OAuth.ProxyURL = strings.TrimSpace(cfg.OAuth.ProxyURL)
	cfg.Upstream.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Upstream.Endpoint), "/")
	cfg.Upstream.APIVersion = strings.TrimSpace(cfg.Upstream.APIVersion)
	cfg.Upstream.ProxyURL = strings.TrimSpace(cfg.Upstream.ProxyURL)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config error: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_header_timeout", 30)
	viper.SetDefault("server.idle_timeout", 120)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("log.service_name", "credgate")
	viper.SetDefault("log.env", "production")
	viper.SetDefault("log.caller", false)
	viper.SetDefault("log.output.to_stdout", true)
	viper.SetDefault("log.output.to_file", false)
	viper.SetDefault("log.rotation.max_size_mb", 100)
	viper.SetDefault("log.rotation.max_backups", 10)
	viper.SetDefault("log.rotation.max_age_days", 7)
	viper.SetDefault("log.rotation.compress", true)
	viper.SetDefault("log.rotation.local_time", true)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.dial_timeout_seconds", 5)
	viper.SetDefault("redis.read_timeout_seconds", 3)
	viper.SetDefault("redis.write_timeout_seconds", 3)
	viper.SetDefault("redis.pool_size", 50)

	viper.SetDefault("oauth.client_id", "")
	viper.SetDefault("oauth.client_secret", "")
	viper.SetDefault("oauth.token_url", "")

	viper.SetDefault("upstream.endpoint", "")
	viper.SetDefault("upstream.api_version", "")
	viper.SetDefault("upstream.timeout_seconds", 300)

	viper.SetDefault("retry.max_retries", 3)
	viper.SetDefault("retry.base_delay_ms", 1000)
}

func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	case "":
		return fmt.Errorf("log.level is required")
	default:
		return fmt.Errorf("log.level must be one of: debug/info/warn/error")
	}
	switch c.Log.Format {
	case "json", "console":
	case "":
		return fmt.Errorf("log.format is required")
	default:
		return fmt.Errorf("log.format must be one of: json/console")
	}
	if !c.Log.Output.ToStdout && !c.Log.Output.ToFile {
		return fmt.Errorf("log.output.to_stdout and log.output.to_file cannot both be false")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in (0, 65535]")
	}
	if c.OAuth.ClientID == "" {
		return fmt.Errorf("oauth.client_id is required")
	}
	if c.OAuth.ClientSecret == "" {
		return fmt.Errorf("oauth.client_secret is required")
	}
	if c.Retry.MaxRetries <= 0 {
		return fmt.Errorf("retry.max_retries must be positive")
	}
	if c.Retry.BaseDelayMS <= 0 {
		return fmt.Errorf("retry.base_delay_ms must be positive")
	}
	return nil
}

// CredentialSlots enumerates the CREDENTIAL_0..CREDENTIAL_99 environment
// slots in order, keeping only non-empty entries. Slot order becomes the
// credential pool index.
func CredentialSlots() []string {
	slots := make([]string, 0, 8)
	for i := 0; i < MaxCredentialSlots; i++ {
		raw := strings.TrimSpace(os.Getenv(fmt.Sprintf("CREDENTIAL_%d", i)))
		if raw == "" {
			continue
		}
		slots = append(slots, raw)
	}
	return slots
}
