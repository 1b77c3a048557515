package logging

import (
	"testing"
	"time"

	"nerdops/internal/config"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, lc config.LoggingConfig, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	InitializeWithCore(core, lc)
	t.Cleanup(func() { InitializeWithCore(zapcore.NewNopCore(), config.LoggingConfig{}) })
	return logs
}

func TestCategoryLoggerWritesNamedEntries(t *testing.T) {
	logs := observe(t, config.LoggingConfig{}, zapcore.DebugLevel)

	Billing("fetched balance for %s", "acct")
	InspectDebug("listed %d tables", 3)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].LoggerName != "billing" || entries[0].Message != "fetched balance for acct" {
		t.Errorf("unexpected first entry: %s %q", entries[0].LoggerName, entries[0].Message)
	}
	if entries[1].LoggerName != "inspect" || entries[1].Level != zapcore.DebugLevel {
		t.Errorf("unexpected second entry: %s %v", entries[1].LoggerName, entries[1].Level)
	}
}

func TestDisabledCategoryIsSilent(t *testing.T) {
	logs := observe(t, config.LoggingConfig{Categories: map[string]bool{"billing": false}}, zapcore.DebugLevel)

	BillingWarn("should not appear")
	InspectWarn("should appear")

	if got := logs.FilterLoggerName("billing").Len(); got != 0 {
		t.Errorf("expected billing to be silent, got %d entries", got)
	}
	if got := logs.FilterLoggerName("inspect").Len(); got != 1 {
		t.Errorf("expected 1 inspect entry, got %d", got)
	}
}

func TestGetCachesPerCategory(t *testing.T) {
	observe(t, config.LoggingConfig{}, zapcore.InfoLevel)

	if Get(CategoryBoot) != Get(CategoryBoot) {
		t.Error("expected Get to return the cached logger")
	}
	if Get(CategoryBoot) == Get(CategoryInspect) {
		t.Error("expected distinct loggers per category")
	}
}

func TestWithRequestIDAddsField(t *testing.T) {
	logs := observe(t, config.LoggingConfig{}, zapcore.InfoLevel)

	WithRequestID(CategoryBilling, "req-123").Info("sending request")

	entries := logs.FilterField(zapcore.Field{Key: "req", Type: zapcore.StringType, String: "req-123"}).All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry tagged with req-123, got %d", len(entries))
	}
}

func TestTimerStopWithThreshold(t *testing.T) {
	logs := observe(t, config.LoggingConfig{}, zapcore.DebugLevel)

	timer := StartTimer(CategoryInspect, "slow query")
	time.Sleep(2 * time.Millisecond)
	timer.StopWithThreshold(time.Nanosecond)

	if got := logs.FilterLevelExact(zapcore.WarnLevel).Len(); got != 1 {
		t.Errorf("expected one slow warning, got %d", got)
	}

	StartTimer(CategoryInspect, "fast query").StopWithThreshold(time.Hour)
	if got := logs.FilterLevelExact(zapcore.DebugLevel).Len(); got != 1 {
		t.Errorf("expected one debug completion entry, got %d", got)
	}
}

func TestEffectiveLevel(t *testing.T) {
	tests := []struct {
		name    string
		lc      config.LoggingConfig
		verbose bool
		want    zapcore.Level
	}{
		{"production default", config.LoggingConfig{Level: "debug"}, false, zapcore.WarnLevel},
		{"verbose wins", config.LoggingConfig{}, true, zapcore.DebugLevel},
		{"debug mode info", config.LoggingConfig{DebugMode: true, Level: "info"}, false, zapcore.InfoLevel},
		{"debug mode debug", config.LoggingConfig{DebugMode: true, Level: "debug"}, false, zapcore.DebugLevel},
		{"debug mode warning alias", config.LoggingConfig{DebugMode: true, Level: "warning"}, false, zapcore.WarnLevel},
		{"debug mode error", config.LoggingConfig{DebugMode: true, Level: "error"}, false, zapcore.ErrorLevel},
		{"debug mode unknown", config.LoggingConfig{DebugMode: true, Level: "loud"}, false, zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := effectiveLevel(tt.lc, tt.verbose); got != tt.want {
				t.Errorf("effectiveLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInitialize(t *testing.T) {
	t.Cleanup(func() { InitializeWithCore(zapcore.NewNopCore(), config.LoggingConfig{}) })

	if err := Initialize(config.LoggingConfig{Format: "json"}, false); err != nil {
		t.Fatalf("Initialize(json) failed: %v", err)
	}
	if err := Initialize(config.LoggingConfig{Format: "console"}, true); err != nil {
		t.Fatalf("Initialize(console) failed: %v", err)
	}
	Sync()
}
