package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultActiveResetMS is how long an entity stays active after a
	// successful action before resetting to idle, in milliseconds.
	DefaultActiveResetMS = 300

	// DefaultJanitorIntervalSec is the default stale-reference pruning
	// interval, in seconds.
	DefaultJanitorIntervalSec = 60

	// DefaultSignatureSeed seeds the signature generator's jitter source.
	DefaultSignatureSeed = 1
)

// Config holds all configuration for atlas-bridge.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Relevance RelevanceConfig `mapstructure:"relevance"`
	Claude    ClaudeConfig    `mapstructure:"claude"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	AuthToken  string `mapstructure:"auth_token"`
}

// RegistryConfig holds entity registry tuning.
type RegistryConfig struct {
	ActiveResetMS      int   `mapstructure:"active_reset_ms"`
	JanitorIntervalSec int   `mapstructure:"janitor_interval_sec"`
	SignatureSeed      int64 `mapstructure:"signature_seed"`
}

// ActiveReset returns the active-state reset delay as a duration.
func (r RegistryConfig) ActiveReset() time.Duration {
	return time.Duration(r.ActiveResetMS) * time.Millisecond
}

// JanitorInterval returns the pruning interval as a duration.
func (r RegistryConfig) JanitorInterval() time.Duration {
	return time.Duration(r.JanitorIntervalSec) * time.Second
}

// RelevanceConfig holds the relevance scoring weights.
type RelevanceConfig struct {
	NameMatch       float64 `mapstructure:"name_match"`
	CategoryMention float64 `mapstructure:"category_mention"`
	CapabilityMatch float64 `mapstructure:"capability_match"`
	CriticalBonus   float64 `mapstructure:"critical_bonus"`
	HighBonus       float64 `mapstructure:"high_bonus"`
	Interaction     float64 `mapstructure:"interaction"`
}

// ClaudeConfig holds Anthropic Claude API settings for query translation.
type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// String returns a safe representation of ClaudeConfig with the API key masked.
func (c ClaudeConfig) String() string {
	return fmt.Sprintf("ClaudeConfig{APIKey:%s, Model:%s}", maskAPIKey(c.APIKey), c.Model)
}

// maskAPIKey shows first 4 + last 4 chars, replacing the middle with asterisks.
func maskAPIKey(key string) string {
	const visible = 4
	if len(key) <= visible*2 {
		return "***"
	}
	return key[:visible] + "****" + key[len(key)-visible:]
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("api.listen_addr", ":8087")
	v.SetDefault("api.auth_token", "")

	v.SetDefault("registry.active_reset_ms", DefaultActiveResetMS)
	v.SetDefault("registry.janitor_interval_sec", DefaultJanitorIntervalSec)
	v.SetDefault("registry.signature_seed", DefaultSignatureSeed)

	v.SetDefault("relevance.name_match", 0.5)
	v.SetDefault("relevance.category_mention", 0.3)
	v.SetDefault("relevance.capability_match", 0.2)
	v.SetDefault("relevance.critical_bonus", 0.3)
	v.SetDefault("relevance.high_bonus", 0.2)
	v.SetDefault("relevance.interaction", 0.2)

	v.SetDefault("claude.model", "claude-haiku-4-5-20251001")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".atlas-bridge"))
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("ATLAS_BRIDGE")
	v.AutomaticEnv()

	// Map specific env vars
	_ = v.BindEnv("claude.api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("api.listen_addr", "ATLAS_BRIDGE_API_LISTEN_ADDR")
	_ = v.BindEnv("api.auth_token", "ATLAS_BRIDGE_API_AUTH_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK — use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	if c.API.ListenAddr == "" {
		return fmt.Errorf("api.listen_addr must not be empty")
	}
	if c.Registry.ActiveResetMS < 0 {
		return fmt.Errorf("registry.active_reset_ms must be >= 0")
	}
	if c.Registry.JanitorIntervalSec <= 0 {
		return fmt.Errorf("registry.janitor_interval_sec must be greater than 0")
	}
	for name, w := range map[string]float64{
		"relevance.name_match":       c.Relevance.NameMatch,
		"relevance.category_mention": c.Relevance.CategoryMention,
		"relevance.capability_match": c.Relevance.CapabilityMatch,
		"relevance.critical_bonus":   c.Relevance.CriticalBonus,
		"relevance.high_bonus":       c.Relevance.HighBonus,
		"relevance.interaction":      c.Relevance.Interaction,
	} {
		if w < 0 {
			return fmt.Errorf("%s must be >= 0", name)
		}
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
