package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Fetch         FetchConfig         `yaml:"fetch" mapstructure:"fetch"`
	Evidence      EvidenceConfig      `yaml:"evidence" mapstructure:"evidence"`
	Extract       ExtractConfig       `yaml:"extract" mapstructure:"extract"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Anthropic     AnthropicConfig     `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini        GeminiConfig        `yaml:"gemini" mapstructure:"gemini"`
	Vendor        VendorConfig        `yaml:"vendor" mapstructure:"vendor"`
	Institutional InstitutionalConfig `yaml:"institutional" mapstructure:"institutional"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            int      `yaml:"port" mapstructure:"port"`
	ShutdownSecs    int      `yaml:"shutdown_secs" mapstructure:"shutdown_secs"`
	AllowedOrigins  []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RequestTimeoutS int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// CacheConfig configures the result cache backend.
type CacheConfig struct {
	Driver          string `yaml:"driver" mapstructure:"driver"`
	Path            string `yaml:"path" mapstructure:"path"`
	DatabaseURL     string `yaml:"database_url" mapstructure:"database_url"`
	TTLDays         int    `yaml:"ttl_days" mapstructure:"ttl_days"`
	CleanupSchedule string `yaml:"cleanup_schedule" mapstructure:"cleanup_schedule"`
}

// TTL returns the configured cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLDays) * 24 * time.Hour
}

// FetchConfig configures page retrieval.
type FetchConfig struct {
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries        int     `yaml:"max_retries" mapstructure:"max_retries"`
	BackoffBaseMs     int     `yaml:"backoff_base_ms" mapstructure:"backoff_base_ms"`
	BlockedMultiplier float64 `yaml:"blocked_multiplier" mapstructure:"blocked_multiplier"`
	MaxBodyBytes      int64   `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HostRate          float64 `yaml:"host_rate" mapstructure:"host_rate"`
	BrowserFallback   bool    `yaml:"browser_fallback" mapstructure:"browser_fallback"`
	BrowserPath       string  `yaml:"browser_path" mapstructure:"browser_path"`
	BrowserTimeoutS   int     `yaml:"browser_timeout_secs" mapstructure:"browser_timeout_secs"`
}

// EvidenceConfig configures the evidence fan-out.
type EvidenceConfig struct {
	BudgetMs       int `yaml:"budget_ms" mapstructure:"budget_ms"`
	Concurrency    int `yaml:"concurrency" mapstructure:"concurrency"`
	MaxWindows     int `yaml:"max_windows" mapstructure:"max_windows"`
	MaxWindowChars int `yaml:"max_window_chars" mapstructure:"max_window_chars"`
	BlockThreshold int `yaml:"block_threshold" mapstructure:"block_threshold"`
	MaxAliases     int `yaml:"max_aliases" mapstructure:"max_aliases"`
	SearchAliases  int `yaml:"search_aliases" mapstructure:"search_aliases"`
	ExtractGraceMs int `yaml:"extract_grace_ms" mapstructure:"extract_grace_ms"`
}

// ExtractConfig configures rating extraction.
type ExtractConfig struct {
	MaxChars            int     `yaml:"max_chars" mapstructure:"max_chars"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	MaxFallbackCalls    int     `yaml:"max_fallback_calls" mapstructure:"max_fallback_calls"`
	TimeoutSecs         int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// LLMConfig selects the generative provider.
type LLMConfig struct {
	Provider     string `yaml:"provider" mapstructure:"provider"`
	AliasAugment bool   `yaml:"alias_augment" mapstructure:"alias_augment"`
	MaxAttempts  int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// VendorConfig holds credentials for the paid ratings API.
type VendorConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// InstitutionalConfig enables the stricter validation mode.
type InstitutionalConfig struct {
	Enabled     bool `yaml:"enabled" mapstructure:"enabled"`
	RequireDate bool `yaml:"require_date" mapstructure:"require_date"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RATINGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_secs", 10)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.request_timeout_secs", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.path", "ratings_cache.db")
	v.SetDefault("cache.ttl_days", 7)
	v.SetDefault("cache.cleanup_schedule", "@every 1h")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.backoff_base_ms", 1000)
	v.SetDefault("fetch.blocked_multiplier", 3.0)
	v.SetDefault("fetch.max_body_bytes", 1<<20)
	v.SetDefault("fetch.host_rate", 4.0)
	v.SetDefault("fetch.browser_fallback", false)
	v.SetDefault("fetch.browser_timeout_secs", 20)
	v.SetDefault("evidence.budget_ms", 8000)
	v.SetDefault("evidence.concurrency", 6)
	v.SetDefault("evidence.max_windows", 12)
	v.SetDefault("evidence.max_window_chars", 1500)
	v.SetDefault("evidence.block_threshold", 2)
	v.SetDefault("evidence.max_aliases", 8)
	v.SetDefault("evidence.search_aliases", 6)
	v.SetDefault("evidence.extract_grace_ms", 2000)
	v.SetDefault("extract.max_chars", 6000)
	v.SetDefault("extract.confidence_threshold", 0.6)
	v.SetDefault("extract.max_fallback_calls", 4)
	v.SetDefault("extract.timeout_secs", 10)
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.alias_augment", true)
	v.SetDefault("llm.max_attempts", 2)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("vendor.timeout_secs", 10)
	v.SetDefault("institutional.enabled", false)
	v.SetDefault("institutional.require_date", true)

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

// Validate checks the settings a command needs. mode is the command name.
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Cache.TTLDays <= 0 {
		errs = append(errs, "cache.ttl_days must be positive")
	}
	switch c.Cache.Driver {
	case "sqlite":
		if c.Cache.Path == "" {
			errs = append(errs, "cache.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Cache.DatabaseURL == "" {
			errs = append(errs, "cache.database_url is required for the postgres driver")
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("cache.driver %q is not supported", c.Cache.Driver))
	}

	switch c.LLM.Provider {
	case "anthropic", "gemini", "none", "":
	default:
		errs = append(errs, fmt.Sprintf("llm.provider %q is not supported", c.LLM.Provider))
	}

	if c.Extract.ConfidenceThreshold < 0 || c.Extract.ConfidenceThreshold > 1 {
		errs = append(errs, "extract.confidence_threshold must be within [0,1]")
	}

	if mode == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
		if c.Evidence.BudgetMs <= 0 {
			errs = append(errs, "evidence.budget_ms must be positive")
		}
		if c.Evidence.Concurrency <= 0 {
			errs = append(errs, "evidence.concurrency must be positive")
		}
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
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
