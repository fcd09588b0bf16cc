package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		check  func(t *testing.T, buf *bytes.Buffer)
	}{
		{
			name: "text format",
			config: Config{
				Level:  LevelInfo,
				Format: FormatText,
			},
			check: func(t *testing.T, buf *bytes.Buffer) {
				if !strings.Contains(buf.String(), "level=INFO") {
					t.Error("expected text format with level=INFO")
				}
			},
		},
		{
			name: "json format",
			config: Config{
				Level:  LevelInfo,
				Format: FormatJSON,
			},
			check: func(t *testing.T, buf *bytes.Buffer) {
				var m map[string]interface{}
				if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
					t.Errorf("expected valid JSON output: %v", err)
				}
				if m["level"] != "INFO" {
					t.Errorf("expected level INFO, got %v", m["level"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.config.Output = buf

			logger := New(tt.config)
			logger.Info("test message")

			tt.check(t, buf)
		})
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     Level
		logMethod func(l *Logger)
		expected  bool
	}{
		{
			name:      "debug at debug level",
			level:     LevelDebug,
			logMethod: func(l *Logger) { l.Debug("test") },
			expected:  true,
		},
		{
			name:      "debug at info level",
			level:     LevelInfo,
			logMethod: func(l *Logger) { l.Debug("test") },
			expected:  false,
		},
		{
			name:      "info at info level",
			level:     LevelInfo,
			logMethod: func(l *Logger) { l.Info("test") },
			expected:  true,
		},
		{
			name:      "warn at error level",
			level:     LevelError,
			logMethod: func(l *Logger) { l.Warn("test") },
			expected:  false,
		},
		{
			name:      "error at error level",
			level:     LevelError,
			logMethod: func(l *Logger) { l.Error("test") },
			expected:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := New(Config{
				Level:  tt.level,
				Format: FormatText,
				Output: buf,
			})

			tt.logMethod(logger)

			hasOutput := buf.Len() > 0
			if hasOutput != tt.expected {
				t.Errorf("expected output=%v, got output=%v", tt.expected, hasOutput)
			}
		})
	}
}

func TestContextEnrichment(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{
		Level:  LevelInfo,
		Format: FormatJSON,
		Output: buf,
	})

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = WithUserID(ctx, "user-7")
	ctx = WithProvider(ctx, "openai")
	ctx = WithCategory(ctx, "greeting")

	logger.InfoContext(ctx, "handling request")

	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected valid JSON output: %v", err)
	}
	if m["request_id"] != "req-123" {
		t.Errorf("expected request_id req-123, got %v", m["request_id"])
	}
	if m["user_id"] != "user-7" {
		t.Errorf("expected user_id user-7, got %v", m["user_id"])
	}
	if m["provider"] != "openai" {
		t.Errorf("expected provider openai, got %v", m["provider"])
	}
	if m["category"] != "greeting" {
		t.Errorf("expected category greeting, got %v", m["category"])
	}
}

func TestRequestIDExtraction(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-abc")
	if got := RequestID(ctx); got != "req-abc" {
		t.Errorf("expected req-abc, got %q", got)
	}
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}
}

func TestWith(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{
		Level:  LevelInfo,
		Format: FormatJSON,
		Output: buf,
	})

	child := logger.With("component", "gateway")
	child.Info("message")

	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected valid JSON output: %v", err)
	}
	if m["component"] != "gateway" {
		t.Errorf("expected component gateway, got %v", m["component"])
	}
}

func TestDomainHelpers(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{
		Level:  LevelDebug,
		Format: FormatJSON,
		Output: buf,
	})
	ctx := context.Background()

	LogCacheHit(ctx, logger, "fp-1", 3, 0.002)
	LogCacheMiss(ctx, logger, "fp-2")
	LogCostIncurred(ctx, logger, "user-1", 0.003, 0.45)
	LogBudgetRejected(ctx, logger, "user-2", 0.02, 0.99, 1.00)
	LogProviderRequest(ctx, logger, "openai", "chat.completions")
	LogProviderResponse(ctx, logger, "openai", "chat.completions", 120*time.Millisecond, nil)
	LogProviderResponse(ctx, logger, "openai", "transcription", 50*time.Millisecond, errors.New("timeout"))

	out := buf.String()
	for _, want := range []string{
		"cache hit", "cache miss", "cost charged", "budget exceeded",
		"provider request completed", "provider request failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log output to contain %q", want)
		}
	}
}
