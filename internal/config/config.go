package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Gamma    GammaConfig    `mapstructure:"gamma"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Server   ServerConfig   `mapstructure:"server"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// GammaConfig holds Polymarket Gamma API configuration
type GammaConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Relays  []string      `mapstructure:"relays"` // CORS relay proxies tried after a direct fetch fails
	Tag     string        `mapstructure:"tag"`
	Limit   int           `mapstructure:"limit"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// GeminiConfig holds generative-language API configuration.
// The API key is read from the GEMINI_API_KEY environment variable and is
// deliberately not validated here: a missing key simply fails upstream.
type GeminiConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	ResearchModel string        `mapstructure:"research_model"`
	AnalysisModel string        `mapstructure:"analysis_model"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// ServerConfig holds the dashboard API server configuration
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// TelegramConfig holds value-alert notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MinEdge        float64       `mapstructure:"min_edge"` // minimum edge (percentage points) to alert on
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("PITCH_ORACLE")
	v.AutomaticEnv()

	// The Gemini key is a secret supplied via process environment
	_ = v.BindEnv("gemini.api_key", "GEMINI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Gamma defaults
	v.SetDefault("gamma.base_url", "https://gamma-api.polymarket.com")
	v.SetDefault("gamma.relays", []string{
		"https://api.allorigins.win/raw?url=",
		"https://corsproxy.io/?",
	})
	v.SetDefault("gamma.tag", "soccer")
	v.SetDefault("gamma.limit", 20)
	v.SetDefault("gamma.timeout", "30s")

	// Gemini defaults
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.research_model", "gemini-2.0-flash")
	v.SetDefault("gemini.analysis_model", "gemini-2.0-flash")
	v.SetDefault("gemini.timeout", "120s")

	// Server defaults
	v.SetDefault("server.addr", ":8080")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.min_edge", 5.0)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Gamma.BaseURL == "" {
		return fmt.Errorf("gamma.base_url is required")
	}
	if c.Gamma.Tag == "" {
		return fmt.Errorf("gamma.tag is required")
	}
	if c.Gamma.Limit < 1 {
		return fmt.Errorf("gamma.limit must be at least 1")
	}
	if c.Gamma.Timeout < 1*time.Second {
		return fmt.Errorf("gamma.timeout must be at least 1 second")
	}

	if c.Gemini.BaseURL == "" {
		return fmt.Errorf("gemini.base_url is required")
	}
	if c.Gemini.ResearchModel == "" {
		return fmt.Errorf("gemini.research_model is required")
	}
	if c.Gemini.AnalysisModel == "" {
		return fmt.Errorf("gemini.analysis_model is required")
	}
	if c.Gemini.Timeout < 1*time.Second {
		return fmt.Errorf("gemini.timeout must be at least 1 second")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
		if c.Telegram.MinEdge < 0 {
			return fmt.Errorf("telegram.min_edge must not be negative")
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
