package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Budget.DailyCapUSD != 1.00 {
		t.Errorf("expected default daily cap 1.00, got %f", cfg.Budget.DailyCapUSD)
	}
	if cfg.Cache.ResponseTTL != 24*time.Hour {
		t.Errorf("expected default response TTL 24h, got %v", cfg.Cache.ResponseTTL)
	}
	if cfg.Cache.ImageCacheCapacity != 5000 {
		t.Errorf("expected default image cache capacity 5000, got %d", cfg.Cache.ImageCacheCapacity)
	}
	if cfg.Context.MaxTurns != 10 {
		t.Errorf("expected default max turns 10, got %d", cfg.Context.MaxTurns)
	}
	if cfg.Limits.MaxVoiceSeconds != 300 {
		t.Errorf("expected default max voice seconds 300, got %f", cfg.Limits.MaxVoiceSeconds)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "valid default",
			modify:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name:    "invalid log format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "invalid log format",
		},
		{
			name:    "invalid cache backend",
			modify:  func(c *Config) { c.Cache.Backend = "memcached" },
			wantErr: "invalid backend",
		},
		{
			name: "redis backend without addr",
			modify: func(c *Config) {
				c.Cache.Backend = "redis"
				c.Cache.Redis.Addr = ""
			},
			wantErr: "redis.addr is required",
		},
		{
			name:    "zero daily cap",
			modify:  func(c *Config) { c.Budget.DailyCapUSD = 0 },
			wantErr: "daily_cap_usd must be positive",
		},
		{
			name:    "negative price",
			modify:  func(c *Config) { c.Budget.Prices.TranscriptionPerMin = -0.01 },
			wantErr: "transcription_per_minute must be non-negative",
		},
		{
			name:    "negative max turns",
			modify:  func(c *Config) { c.Context.MaxTurns = -1 },
			wantErr: "max_turns must be non-negative",
		},
		{
			name:    "invalid exporter type",
			modify:  func(c *Config) { c.Observability.Tracing.ExporterType = "jaeger" },
			wantErr: "invalid exporter type",
		},
		{
			name:    "sample rate out of range",
			modify:  func(c *Config) { c.Observability.Tracing.SampleRate = 1.5 },
			wantErr: "sample_rate must be between",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoaderLoadMissingFileReturnsDefaults(t *testing.T) {
	loader, err := NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}

	cfg, err := loader.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Budget.DailyCapUSD != DefaultDailyCapUSD {
		t.Errorf("expected default config, got cap %f", cfg.Budget.DailyCapUSD)
	}
}

func TestLoaderLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
budget:
  daily_cap_usd: 2.50
cache:
  backend: sqlite
  response_ttl: 1h
context:
  max_turns: 4
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}
	cfg, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Budget.DailyCapUSD != 2.50 {
		t.Errorf("expected cap 2.50, got %f", cfg.Budget.DailyCapUSD)
	}
	if cfg.Cache.Backend != "sqlite" {
		t.Errorf("expected backend sqlite, got %s", cfg.Cache.Backend)
	}
	if cfg.Cache.ResponseTTL != time.Hour {
		t.Errorf("expected TTL 1h, got %v", cfg.Cache.ResponseTTL)
	}
	if cfg.Context.MaxTurns != 4 {
		t.Errorf("expected max turns 4, got %d", cfg.Context.MaxTurns)
	}
	// Unset fields keep their defaults.
	if cfg.Budget.Prices.TextInputPerMTok != DefaultTextInputPerMTok {
		t.Errorf("expected default input price, got %f", cfg.Budget.Prices.TextInputPerMTok)
	}
}

func TestLoaderLoadFromFileMissing(t *testing.T) {
	loader, err := NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}

	if _, err := loader.LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoaderSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}

	cfg := NewDefaultConfig()
	cfg.Budget.DailyCapUSD = 0.50
	cfg.Cache.Backend = "memory"

	if err := loader.Save(cfg, ""); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := loader.LoadFromFile(loader.DefaultConfigPath())
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Budget.DailyCapUSD != 0.50 {
		t.Errorf("expected cap 0.50 after round trip, got %f", loaded.Budget.DailyCapUSD)
	}
}
