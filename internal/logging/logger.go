// Package logging provides config-driven categorized logging for testhub.
// Every category is a named child of one zap logger. With no output configured
// all categories are no-ops, which keeps the terminal UI free of log noise.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"testhub/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, config loading
	CategoryUI        Category = "ui"        // Shell navigation, page events
	CategoryUpload    Category = "upload"    // Selection, submission, backend responses
	CategoryClipboard Category = "clipboard" // Copy-to-clipboard
	CategoryWatch     Category = "watch"     // Selected-file watcher
)

var (
	base      = zap.NewNop()
	loggers   = make(map[Category]*zap.SugaredLogger)
	loggersMu sync.RWMutex
)

// Initialize builds the root logger from cfg.
// An empty cfg.File leaves logging disabled.
func Initialize(cfg config.LoggingConfig) error {
	if cfg.File == "" {
		SetLogger(zap.NewNop())
		return nil
	}

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = zap.NewAtomicLevelAt(parsed)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	zcfg.Sampling = nil
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if strings.EqualFold(cfg.Format, "json") {
		zcfg.Encoding = "json"
	} else {
		zcfg.Encoding = "console"
	}

	output := cfg.File
	if output != "stderr" && output != "stdout" {
		if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	zcfg.OutputPaths = []string{output}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	SetLogger(logger)

	Get(CategoryBoot).Infow("logging initialized", "level", level.String(), "format", zcfg.Encoding, "output", output)
	return nil
}

// SetLogger replaces the root logger and drops cached category loggers.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	loggersMu.Lock()
	defer loggersMu.Unlock()
	base = l
	loggers = make(map[Category]*zap.SugaredLogger)
}

// Root returns the root logger.
func Root() *zap.Logger {
	loggersMu.RLock()
	defer loggersMu.RUnlock()
	return base
}

// Get returns (or creates) the logger for the given category.
func Get(category Category) *zap.SugaredLogger {
	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}
	l := base.Named(string(category)).Sugar()
	loggers[category] = l
	return l
}

// Sync flushes buffered entries. Call at shutdown.
func Sync() {
	_ = Root().Sync()
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Infof(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debugf(format, args...)
}

// BootWarn logs a warning to the boot category
func BootWarn(format string, args ...interface{}) {
	Get(CategoryBoot).Warnf(format, args...)
}

// UI logs to the ui category
func UI(format string, args ...interface{}) {
	Get(CategoryUI).Infof(format, args...)
}

// UIDebug logs debug to the ui category
func UIDebug(format string, args ...interface{}) {
	Get(CategoryUI).Debugf(format, args...)
}

// Upload logs to the upload category
func Upload(format string, args ...interface{}) {
	Get(CategoryUpload).Infof(format, args...)
}

// UploadDebug logs debug to the upload category
func UploadDebug(format string, args ...interface{}) {
	Get(CategoryUpload).Debugf(format, args...)
}

// UploadWarn logs a warning to the upload category
func UploadWarn(format string, args ...interface{}) {
	Get(CategoryUpload).Warnf(format, args...)
}

// UploadError logs an error to the upload category
func UploadError(format string, args ...interface{}) {
	Get(CategoryUpload).Errorf(format, args...)
}

// Clipboard logs to the clipboard category
func Clipboard(format string, args ...interface{}) {
	Get(CategoryClipboard).Infof(format, args...)
}

// ClipboardError logs an error to the clipboard category
func ClipboardError(format string, args ...interface{}) {
	Get(CategoryClipboard).Errorf(format, args...)
}

// WatchDebug logs debug to the watch category
func WatchDebug(format string, args ...interface{}) {
	Get(CategoryWatch).Debugf(format, args...)
}

// WatchWarn logs a warning to the watch category
func WatchWarn(format string, args ...interface{}) {
	Get(CategoryWatch).Warnf(format, args...)
}

// =============================================================================
// REQUEST ID TRACING
// =============================================================================

// WithRequestID returns a category logger that tags every entry with requestID.
func WithRequestID(category Category, requestID string) *zap.SugaredLogger {
	return Get(category).With("request_id", requestID)
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debugw(t.op+" completed", "elapsed", elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warnw(t.op+" slow", "elapsed", elapsed, "threshold", threshold)
	} else {
		Get(t.category).Debugw(t.op+" completed", "elapsed", elapsed)
	}
	return elapsed
}
