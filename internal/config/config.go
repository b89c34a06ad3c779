// Package config provides Viper-based configuration management for siem-client
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultAPIURL is the log search endpoint used when --apiurl is not given
const DefaultAPIURL = "https://5clcj0iz8c.execute-api.us-east-1.amazonaws.com/prod/logs"

// ErrMissingCredentials is returned when the API key or secret is not set
var ErrMissingCredentials = errors.New("missing API key or secret")

// Config represents the complete siem-client configuration
type Config struct {
	API     APIConfig     `mapstructure:"api" json:"api"`
	Query   QueryConfig   `mapstructure:"query" json:"query"`
	Cursor  CursorConfig  `mapstructure:"cursor" json:"cursor"`
	HTTP    HTTPConfig    `mapstructure:"http" json:"http"`
	Logging LoggingConfig `mapstructure:"logging" json:"logging"`
	Output  OutputConfig  `mapstructure:"output" json:"output"`
}

// APIConfig holds the endpoint and credentials
type APIConfig struct {
	URL    string `mapstructure:"url" json:"url"`
	Key    string `mapstructure:"key" json:"key"`
	Secret string `mapstructure:"secret" json:"secret"`
	OrgURL string `mapstructure:"org_url" json:"org_url"`
}

// QueryConfig holds search defaults
type QueryConfig struct {
	Limit  int    `mapstructure:"limit" json:"limit"`
	Since  string `mapstructure:"since" json:"since"`
	Until  string `mapstructure:"until" json:"until"`
	Filter string `mapstructure:"filter" json:"filter"`
	Strict bool   `mapstructure:"strict" json:"strict"`
}

// CursorConfig selects where the resume cursor lives
type CursorConfig struct {
	Path           string `mapstructure:"path" json:"path"`
	RedisURL       string `mapstructure:"redis_url" json:"redis_url"`
	RedisKey       string `mapstructure:"redis_key" json:"redis_key"`
	ClearOnExhaust bool   `mapstructure:"clear_on_exhaust" json:"clear_on_exhaust"`
}

// HTTPConfig tunes the API client
type HTTPConfig struct {
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	MinInterval time.Duration `mapstructure:"min_interval" json:"min_interval"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Colors bool `mapstructure:"colors" json:"colors"`
}

// New returns a Viper instance with defaults, config search paths and
// environment bindings set up. Flags are bound by the caller before Load.
func New(cfgFile string) *viper.Viper {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".siem-client")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/siem-client")
	}

	// SIEM_CLIENT_API_URL, SIEM_CLIENT_CURSOR_PATH, ...
	v.SetEnvPrefix("SIEM_CLIENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The credentials also come from the plain variables the API docs use
	_ = v.BindEnv("api.key", "SIEM_CLIENT_API_KEY", "API_KEY")
	_ = v.BindEnv("api.secret", "SIEM_CLIENT_API_SECRET", "API_SECRET")

	setDefaults(v)
	return v
}

// Load reads the config file, if any, and unmarshals v into a Config
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.url", DefaultAPIURL)

	v.SetDefault("query.limit", 1000)
	v.SetDefault("query.strict", false)

	v.SetDefault("cursor.path", "")
	v.SetDefault("cursor.redis_url", "")
	v.SetDefault("cursor.redis_key", "siem-client:cursor")
	v.SetDefault("cursor.clear_on_exhaust", false)

	v.SetDefault("http.timeout", 60*time.Second)
	v.SetDefault("http.min_interval", time.Duration(0))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("output.colors", true)
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	if cfg.API.URL == "" {
		return fmt.Errorf("api url must not be empty")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", cfg.Logging.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s (must be text or json)", cfg.Logging.Format)
	}

	if cfg.HTTP.Timeout < 0 || cfg.HTTP.MinInterval < 0 {
		return fmt.Errorf("http durations must not be negative")
	}

	return nil
}

// RequireCredentials reports ErrMissingCredentials unless both the API key
// and secret are set
func (c *Config) RequireCredentials() error {
	var missing []string
	if c.API.Key == "" {
		missing = append(missing, "API key (--apikey or API_KEY)")
	}
	if c.API.Secret == "" {
		missing = append(missing, "API secret (--apisecret or API_SECRET)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s not set", ErrMissingCredentials, strings.Join(missing, " and "))
	}
	return nil
}

// MaskedSecret returns the API secret with all but the last four characters hidden
func (c *Config) MaskedSecret() string {
	s := c.API.Secret
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
