// Package logging provides config-driven categorized logging for the nerdops tools.
// Loggers are zap-backed and write to stderr so stdout stays reserved for reports.
// Without debug_mode or --verbose only warnings and errors are emitted.
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"nerdops/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, flag and config resolution
	CategoryConfig  Category = "config"  // Config loading
	CategoryBilling Category = "billing" // Credits balance API calls
	CategoryInspect Category = "inspect" // Database inspection queries
)

// Logger wraps a sugared zap logger with a category
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	base     = zap.NewNop()
	cfg      config.LoggingConfig
	loggers  = make(map[Category]*Logger)
	loggerMu sync.RWMutex
)

// Initialize builds the process-wide zap logger from config.
// verbose forces debug level regardless of config.
func Initialize(lc config.LoggingConfig, verbose bool) error {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	zcfg.DisableStacktrace = true
	if lc.Format != "json" {
		zcfg.Encoding = "console"
		zcfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(effectiveLevel(lc, verbose))

	logger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	setBase(logger, lc)
	return nil
}

// InitializeWithCore installs a caller-provided core. Used by tests to observe output.
func InitializeWithCore(core zapcore.Core, lc config.LoggingConfig) {
	setBase(zap.New(core), lc)
}

func setBase(logger *zap.Logger, lc config.LoggingConfig) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	base = logger
	cfg = lc
	loggers = make(map[Category]*Logger)
}

// effectiveLevel resolves the zap level: verbose > debug_mode level > warn.
func effectiveLevel(lc config.LoggingConfig, verbose bool) zapcore.Level {
	if verbose {
		return zapcore.DebugLevel
	}
	if !lc.DebugMode {
		return zapcore.WarnLevel
	}
	switch strings.ToLower(lc.Level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Sync flushes buffered log entries.
func Sync() {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	_ = base.Sync()
}

// Get returns (or creates) a logger for the given category.
// Disabled categories get a no-op logger.
func Get(category Category) *Logger {
	loggerMu.RLock()
	if l, ok := loggers[category]; ok {
		loggerMu.RUnlock()
		return l
	}
	loggerMu.RUnlock()

	loggerMu.Lock()
	defer loggerMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	z := zap.NewNop()
	if cfg.IsCategoryEnabled(string(category)) {
		z = base.Named(string(category))
	}
	l := &Logger{category: category, sugar: z.Sugar()}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// With returns a child logger carrying structured key/value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// WithRequestID returns a category logger tagged with a request correlation ID.
func WithRequestID(category Category, requestID string) *Logger {
	return Get(category).With("req", requestID)
}

// =============================================================================
// Convenience functions
// =============================================================================

func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

func Billing(format string, args ...interface{}) {
	Get(CategoryBilling).Info(format, args...)
}

func BillingWarn(format string, args ...interface{}) {
	Get(CategoryBilling).Warn(format, args...)
}

func Inspect(format string, args ...interface{}) {
	Get(CategoryInspect).Info(format, args...)
}

func InspectDebug(format string, args ...interface{}) {
	Get(CategoryInspect).Debug(format, args...)
}

func InspectWarn(format string, args ...interface{}) {
	Get(CategoryInspect).Warn(format, args...)
}

// =============================================================================
// Timing
// =============================================================================

// Timer measures an operation and logs its duration on Stop.
type Timer struct {
	category  Category
	operation string
	start     time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, operation: operation, start: time.Now()}
}

// Stop logs the elapsed time at debug level and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.operation, elapsed)
	return elapsed
}

// StopWithThreshold logs at warn level when the operation exceeded threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s slow: %v (threshold %v)", t.operation, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.operation, elapsed)
	}
	return elapsed
}
