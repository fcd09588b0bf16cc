// Package config provides configuration structs and utilities for the spendgate application.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config represents the root configuration for the spendgate application.
type Config struct {
	Providers     ProviderConfigs     `yaml:"providers"`
	Logging       LoggingConfig       `yaml:"logging"`
	Cache         CacheConfig         `yaml:"cache"`
	Budget        BudgetConfig        `yaml:"budget"`
	Context       ContextConfig       `yaml:"context"`
	Limits        LimitsConfig        `yaml:"limits"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ProviderConfigs holds configuration for all paid AI providers.
type ProviderConfigs struct {
	OpenAI OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey             string        `yaml:"api_key"`
	BaseURL            string        `yaml:"base_url,omitempty"` // Optional custom endpoint (e.g., for proxies)
	Enabled            bool          `yaml:"enabled"`
	Timeout            time.Duration `yaml:"timeout"`
	TextModel          string        `yaml:"text_model"`
	TranscriptionModel string        `yaml:"transcription_model"`
	ModerationModel    string        `yaml:"moderation_model"`
	MaxRetries         int           `yaml:"max_retries"`
}

// LoggingConfig holds configuration for application logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// CacheConfig holds configuration for response and image caching.
type CacheConfig struct {
	Enabled            bool          `yaml:"enabled"`
	Backend            string        `yaml:"backend"` // memory, sqlite, redis
	ResponseTTL        time.Duration `yaml:"response_ttl"`
	CleanupPeriod      time.Duration `yaml:"cleanup_period"`
	ImageCacheCapacity int           `yaml:"image_cache_capacity"`
	SQLitePath         string        `yaml:"sqlite_path"`
	Redis              RedisConfig   `yaml:"redis"`
}

// RedisConfig holds connection settings for the Redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// BudgetConfig holds the daily spending cap and provider prices.
type BudgetConfig struct {
	DailyCapUSD float64     `yaml:"daily_cap_usd"`
	Prices      PriceConfig `yaml:"prices"`
}

// PriceConfig holds per-unit provider prices in USD.
type PriceConfig struct {
	TextInputPerMTok      float64 `yaml:"text_input_per_mtok"`
	TextOutputPerMTok     float64 `yaml:"text_output_per_mtok"`
	TranscriptionPerMin   float64 `yaml:"transcription_per_minute"`
	VisionHighPerImage    float64 `yaml:"vision_high_per_image"`
	VisionLowPerImage     float64 `yaml:"vision_low_per_image"`
}

// ContextConfig holds conversation history settings.
type ContextConfig struct {
	MaxTurns int `yaml:"max_turns"`
}

// LimitsConfig holds hard input limits enforced before any spend.
type LimitsConfig struct {
	MaxVoiceSeconds     float64 `yaml:"max_voice_seconds"`
	VisionHighMaxBytes  int64   `yaml:"vision_high_max_bytes"`
}

// ObservabilityConfig holds configuration for observability features.
type ObservabilityConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig holds configuration for distributed tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`       // Whether tracing is enabled
	ExporterType string  `yaml:"exporter_type"` // none, stdout, otlp
	OTLPEndpoint string  `yaml:"otlp_endpoint"` // OTLP collector endpoint
	SampleRate   float64 `yaml:"sample_rate"`   // Sampling rate (0.0 to 1.0)
	ServiceName  string  `yaml:"service_name"`  // Service name for traces
}

// Default configuration values.
const (
	DefaultTimeout            = 30 * time.Second
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
	DefaultTextModel          = "gpt-4o-mini"
	DefaultTranscriptionModel = "whisper-1"
	DefaultModerationModel    = "omni-moderation-latest"
	DefaultMaxRetries         = 3

	// Cache defaults
	DefaultCacheEnabled       = true
	DefaultCacheBackend       = "memory"
	DefaultResponseTTL        = 24 * time.Hour
	DefaultCacheCleanupPeriod = 1 * time.Hour
	DefaultImageCacheCapacity = 5000
	DefaultRedisAddr          = "localhost:6379"
	DefaultRedisPoolSize      = 10

	// Budget defaults
	DefaultDailyCapUSD          = 1.00
	DefaultTextInputPerMTok     = 0.150
	DefaultTextOutputPerMTok    = 0.600
	DefaultTranscriptionPerMin  = 0.006
	DefaultVisionHighPerImage   = 0.019125
	DefaultVisionLowPerImage    = 0.002125

	// Context defaults
	DefaultMaxTurns = 10

	// Limit defaults
	DefaultMaxVoiceSeconds    = 300.0
	DefaultVisionHighMaxBytes = 1 << 20 // payloads above this use low detail

	// Observability defaults
	DefaultTracingEnabled      = false
	DefaultTracingExporterType = "none"
	DefaultTracingSampleRate   = 1.0
	DefaultTracingServiceName  = "spendgate"
)

// Valid log levels.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Valid log formats.
var validLogFormats = map[string]bool{
	"json": true,
	"text": true,
}

// Valid cache backends.
var validCacheBackends = map[string]bool{
	"memory": true,
	"sqlite": true,
	"redis":  true,
}

// Valid tracing exporter types.
var validTracingExporterTypes = map[string]bool{
	"none":   true,
	"stdout": true,
	"otlp":   true,
}

// NewDefaultConfig creates a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		Providers: ProviderConfigs{
			OpenAI: OpenAIConfig{
				Enabled:            true,
				Timeout:            DefaultTimeout,
				TextModel:          DefaultTextModel,
				TranscriptionModel: DefaultTranscriptionModel,
				ModerationModel:    DefaultModerationModel,
				MaxRetries:         DefaultMaxRetries,
			},
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Cache: CacheConfig{
			Enabled:            DefaultCacheEnabled,
			Backend:            DefaultCacheBackend,
			ResponseTTL:        DefaultResponseTTL,
			CleanupPeriod:      DefaultCacheCleanupPeriod,
			ImageCacheCapacity: DefaultImageCacheCapacity,
			Redis: RedisConfig{
				Addr:     DefaultRedisAddr,
				PoolSize: DefaultRedisPoolSize,
			},
		},
		Budget: BudgetConfig{
			DailyCapUSD: DefaultDailyCapUSD,
			Prices: PriceConfig{
				TextInputPerMTok:    DefaultTextInputPerMTok,
				TextOutputPerMTok:   DefaultTextOutputPerMTok,
				TranscriptionPerMin: DefaultTranscriptionPerMin,
				VisionHighPerImage:  DefaultVisionHighPerImage,
				VisionLowPerImage:   DefaultVisionLowPerImage,
			},
		},
		Context: ContextConfig{
			MaxTurns: DefaultMaxTurns,
		},
		Limits: LimitsConfig{
			MaxVoiceSeconds:    DefaultMaxVoiceSeconds,
			VisionHighMaxBytes: DefaultVisionHighMaxBytes,
		},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{
				Enabled:      DefaultTracingEnabled,
				ExporterType: DefaultTracingExporterType,
				SampleRate:   DefaultTracingSampleRate,
				ServiceName:  DefaultTracingServiceName,
			},
		},
	}
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	if err := c.Providers.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("providers: %w", err))
	}
	if err := c.Cache.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}
	if err := c.Budget.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("budget: %w", err))
	}
	if err := c.Context.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("context: %w", err))
	}
	if err := c.Limits.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("limits: %w", err))
	}
	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observability: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the LoggingConfig is valid.
func (l *LoggingConfig) Validate() error {
	var errs []error

	if l.Level != "" && !validLogLevels[l.Level] {
		errs = append(errs, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", l.Level))
	}
	if l.Format != "" && !validLogFormats[l.Format] {
		errs = append(errs, fmt.Errorf("invalid log format %q: must be one of json, text", l.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the ProviderConfigs is valid.
func (p *ProviderConfigs) Validate() error {
	return p.OpenAI.Validate()
}

// Validate checks if the OpenAIConfig is valid.
func (o *OpenAIConfig) Validate() error {
	var errs []error

	if o.Timeout < 0 {
		errs = append(errs, errors.New("openai: timeout must be non-negative"))
	}
	if o.MaxRetries < 0 {
		errs = append(errs, errors.New("openai: max_retries must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the CacheConfig is valid.
func (c *CacheConfig) Validate() error {
	var errs []error

	if c.Backend != "" && !validCacheBackends[c.Backend] {
		errs = append(errs, fmt.Errorf("invalid backend %q: must be one of memory, sqlite, redis", c.Backend))
	}
	if c.ResponseTTL < 0 {
		errs = append(errs, errors.New("response_ttl must be non-negative"))
	}
	if c.CleanupPeriod < 0 {
		errs = append(errs, errors.New("cleanup_period must be non-negative"))
	}
	if c.ImageCacheCapacity < 0 {
		errs = append(errs, errors.New("image_cache_capacity must be non-negative"))
	}
	if c.Backend == "redis" && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required for the redis backend"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the BudgetConfig is valid.
func (b *BudgetConfig) Validate() error {
	var errs []error

	if b.DailyCapUSD <= 0 {
		errs = append(errs, errors.New("daily_cap_usd must be positive"))
	}
	for name, price := range map[string]float64{
		"text_input_per_mtok":      b.Prices.TextInputPerMTok,
		"text_output_per_mtok":     b.Prices.TextOutputPerMTok,
		"transcription_per_minute": b.Prices.TranscriptionPerMin,
		"vision_high_per_image":    b.Prices.VisionHighPerImage,
		"vision_low_per_image":     b.Prices.VisionLowPerImage,
	} {
		if price < 0 {
			errs = append(errs, fmt.Errorf("%s must be non-negative", name))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the ContextConfig is valid.
func (c *ContextConfig) Validate() error {
	if c.MaxTurns < 0 {
		return errors.New("max_turns must be non-negative")
	}
	return nil
}

// Validate checks if the LimitsConfig is valid.
func (l *LimitsConfig) Validate() error {
	var errs []error

	if l.MaxVoiceSeconds < 0 {
		errs = append(errs, errors.New("max_voice_seconds must be non-negative"))
	}
	if l.VisionHighMaxBytes < 0 {
		errs = append(errs, errors.New("vision_high_max_bytes must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the ObservabilityConfig is valid.
func (o *ObservabilityConfig) Validate() error {
	return o.Tracing.Validate()
}

// Validate checks if the TracingConfig is valid.
func (t *TracingConfig) Validate() error {
	var errs []error

	if t.ExporterType != "" && !validTracingExporterTypes[t.ExporterType] {
		errs = append(errs, fmt.Errorf("invalid exporter type %q: must be one of none, stdout, otlp", t.ExporterType))
	}
	if t.SampleRate < 0.0 || t.SampleRate > 1.0 {
		errs = append(errs, errors.New("sample_rate must be between 0.0 and 1.0"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
