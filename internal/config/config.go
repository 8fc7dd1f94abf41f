// Package config provides Viper-based configuration loading for the NPC decision daemon.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Model providers accepted in ModelConfig.Provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderLua       = "lua"
	ProviderNone      = "none"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// Enabled turns on persistence of NPC memory and trader reputation.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// ModelConfig selects and tunes the generative model used for complex decisions.
type ModelConfig struct {
	// Provider is one of "anthropic", "lua", or "none".
	Provider string `mapstructure:"provider"`
	// APIKey authenticates against the anthropic provider.
	APIKey string `mapstructure:"api_key"`
	// Name is the provider's model identifier.
	Name string `mapstructure:"name"`
	// BaseURL overrides the provider endpoint.
	BaseURL     string  `mapstructure:"base_url"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	// Timeout bounds a single model call.
	Timeout time.Duration `mapstructure:"timeout"`
	// ScriptPath is a .lua file or directory for the lua provider.
	ScriptPath string `mapstructure:"script_path"`
	// InstructionLimit bounds Lua opcodes per call.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// CombatConfig tunes the combat orchestrator caches.
type CombatConfig struct {
	DecisionCacheWindow time.Duration `mapstructure:"decision_cache_window"`
	ThreatCacheWindow   time.Duration `mapstructure:"threat_cache_window"`
	// ResponseCacheWindow reuses model responses across actors in the same situation.
	ResponseCacheWindow time.Duration `mapstructure:"response_cache_window"`
	SweepThreshold      int           `mapstructure:"sweep_threshold"`
	// SweepInterval is the period of the background cache sweeper; 0 disables it.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	Shards        int           `mapstructure:"shards"`
	// Seed makes negotiation rolls reproducible; 0 draws from crypto/rand.
	Seed uint64 `mapstructure:"seed"`
}

// TradeConfig tunes trade negotiation pricing.
type TradeConfig struct {
	// ModelPricing consults the model for contested negotiations.
	ModelPricing   bool          `mapstructure:"model_pricing"`
	PricingTimeout time.Duration `mapstructure:"pricing_timeout"`
}

// HealthConfig holds the gRPC health endpoint settings.
type HealthConfig struct {
	GRPCHost string `mapstructure:"grpc_host"`
	GRPCPort int    `mapstructure:"grpc_port"`
	// MetricsAddr is the "host:port" of the Prometheus scrape endpoint; empty disables it.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (h HealthConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.GRPCHost, h.GRPCPort)
}

// Config is the top-level application configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Model    ModelConfig    `mapstructure:"model"`
	Combat   CombatConfig   `mapstructure:"combat"`
	Trade    TradeConfig    `mapstructure:"trade"`
	Database DatabaseConfig `mapstructure:"database"`
	Health   HealthConfig   `mapstructure:"health"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	for _, err := range []error{
		validateLogging(c.Logging),
		validateModel(c.Model),
		validateCombat(c.Combat),
		validateTrade(c.Trade),
		validateDatabase(c.Database),
		validateHealth(c.Health),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateModel(m ModelConfig) error {
	var errs []string
	switch m.Provider {
	case ProviderAnthropic:
		if m.APIKey == "" {
			errs = append(errs, "model.api_key must not be empty for the anthropic provider")
		}
	case ProviderLua:
		if m.ScriptPath == "" {
			errs = append(errs, "model.script_path must not be empty for the lua provider")
		}
	case ProviderNone:
	default:
		errs = append(errs, fmt.Sprintf("model.provider must be one of [anthropic, lua, none], got %q", m.Provider))
	}
	if m.MaxTokens < 1 {
		errs = append(errs, fmt.Sprintf("model.max_tokens must be >= 1, got %d", m.MaxTokens))
	}
	if m.Temperature < 0 || m.Temperature > 1 {
		errs = append(errs, fmt.Sprintf("model.temperature must be in [0, 1], got %v", m.Temperature))
	}
	if m.Timeout <= 0 {
		errs = append(errs, "model.timeout must be positive")
	}
	if m.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("model.instruction_limit must be >= 0, got %d", m.InstructionLimit))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateCombat(c CombatConfig) error {
	var errs []string
	if c.DecisionCacheWindow <= 0 {
		errs = append(errs, "combat.decision_cache_window must be positive")
	}
	if c.ThreatCacheWindow <= 0 {
		errs = append(errs, "combat.threat_cache_window must be positive")
	}
	if c.ResponseCacheWindow < 0 {
		errs = append(errs, "combat.response_cache_window must not be negative")
	}
	if c.SweepThreshold < 1 {
		errs = append(errs, fmt.Sprintf("combat.sweep_threshold must be >= 1, got %d", c.SweepThreshold))
	}
	if c.SweepInterval < 0 {
		errs = append(errs, "combat.sweep_interval must not be negative")
	}
	if c.Shards < 1 {
		errs = append(errs, fmt.Sprintf("combat.shards must be >= 1, got %d", c.Shards))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateTrade(t TradeConfig) error {
	if t.ModelPricing && t.PricingTimeout <= 0 {
		return errors.New("trade.pricing_timeout must be positive when trade.model_pricing is set")
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	if !d.Enabled {
		return nil
	}
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateHealth(h HealthConfig) error {
	var errs []string
	if h.GRPCHost == "" {
		errs = append(errs, "health.grpc_host must not be empty")
	}
	if h.GRPCPort < 1 || h.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("health.grpc_port must be 1-65535, got %d", h.GRPCPort))
	}
	if h.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(h.MetricsAddr); err != nil {
			errs = append(errs, fmt.Sprintf("health.metrics_addr must be host:port, got %q", h.MetricsAddr))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and the
// environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with NPCBRAIN_ prefix
	v.SetEnvPrefix("NPCBRAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns the configuration produced by Load with no file and no
// environment overrides.
func Defaults() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("model.provider", ProviderNone)
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.name", "claude-3-5-haiku-latest")
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.max_tokens", 100)
	v.SetDefault("model.temperature", 0.7)
	v.SetDefault("model.timeout", "1500ms")
	v.SetDefault("model.script_path", "")
	v.SetDefault("model.instruction_limit", 100_000)

	v.SetDefault("combat.decision_cache_window", "2s")
	v.SetDefault("combat.threat_cache_window", "1s")
	v.SetDefault("combat.response_cache_window", "3s")
	v.SetDefault("combat.sweep_threshold", 100)
	v.SetDefault("combat.sweep_interval", "5s")
	v.SetDefault("combat.shards", 16)
	v.SetDefault("combat.seed", 0)

	v.SetDefault("trade.model_pricing", false)
	v.SetDefault("trade.pricing_timeout", "1s")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "npcbrain")
	v.SetDefault("database.password", "npcbrain")
	v.SetDefault("database.name", "npcbrain")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("health.grpc_host", "127.0.0.1")
	v.SetDefault("health.grpc_port", 50061)
	v.SetDefault("health.metrics_addr", "")
}
