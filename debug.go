// Package main - debug.go
//
// This file implements centralized logging and debug image dumps.
//
// Major Components:
//
// 1. Logging System:
//    - Thread-safe file logging to Debug.log
//    - Four log levels: DEBUG, INFO, WARN, ERROR
//    - Microsecond timestamps for performance analysis
//    - File is truncated (cleared) on each startup
//    - Global logger instance accessible via convenience functions
//
// 2. Debug Image Dumps:
//    - Saves region crops (calibrated bars, enemy name area, skill tray)
//      as PNG files under debug/ for offline inspection
//    - Rate limited so a misconfigured region cannot flood the disk
//
// Logging Best Practices:
//   - DEBUG: Detailed operation info (match scores, coordinates, timing)
//   - INFO: Important events (startup, calibration, state transitions, kills)
//   - WARN: Non-critical issues (capture retry, low OCR confidence)
//   - ERROR: Serious problems (calibration failure, input dispatch errors)
package main

import (
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vcaesar/imgo"
)

// Logger provides thread-safe logging functionality to Debug.log file.
//
// The logger writes all messages to a file with timestamps and log levels.
// Thread safety is ensured via mutex, allowing multiple goroutines to log
// concurrently without race conditions.
//
// File Behavior:
// Debug.log is truncated (O_TRUNC) on each startup to prevent log accumulation.
// This ensures the log file always contains only the current session's messages.
type Logger struct {
	file   *os.File
	logger *log.Logger
	mu     sync.Mutex
}

var globalLogger *Logger

// InitLogger initializes the global logger to write to Debug.log in current directory
// The log file is truncated (cleared) on each startup
func InitLogger() error {
	// Use O_TRUNC to clear the file on startup
	file, err := os.OpenFile("Debug.log", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	globalLogger = &Logger{
		file:   file,
		logger: log.New(file, "", log.LstdFlags|log.Lmicroseconds),
	}

	globalLogger.Info("Logger initialized (log file cleared)")
	return nil
}

// CloseLogger closes the log file
func CloseLogger() {
	if globalLogger != nil && globalLogger.file != nil {
		globalLogger.Info("Logger closing")
		globalLogger.file.Close()
	}
}

// Debug logs debug level messages
func (l *Logger) Debug(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Printf("[DEBUG] "+format, v...)
}

// Info logs info level messages
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Printf("[INFO] "+format, v...)
}

// Warn logs warning level messages
func (l *Logger) Warn(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Printf("[WARN] "+format, v...)
}

// Error logs error level messages
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Printf("[ERROR] "+format, v...)
}

// LogDebug is a convenience function for debug logging
func LogDebug(format string, v ...interface{}) {
	if globalLogger != nil {
		globalLogger.Debug(format, v...)
	}
}

// LogInfo is a convenience function for info logging
func LogInfo(format string, v ...interface{}) {
	if globalLogger != nil {
		globalLogger.Info(format, v...)
	}
}

// LogWarn is a convenience function for warning logging
func LogWarn(format string, v ...interface{}) {
	if globalLogger != nil {
		globalLogger.Warn(format, v...)
	}
}

// LogError is a convenience function for error logging
func LogError(format string, v ...interface{}) {
	if globalLogger != nil {
		globalLogger.Error(format, v...)
	}
}

// DebugDumper saves region crops as PNG files for offline inspection.
//
// Dumps are rate limited per label: at most one image per label per
// minInterval. Disabled dumpers are a no-op so perception code can call
// Dump unconditionally.
type DebugDumper struct {
	dir         string
	enabled     bool
	minInterval time.Duration

	mu       sync.Mutex
	lastDump map[string]time.Time
}

// NewDebugDumper creates a dumper writing into dir. When enabled is false
// all Dump calls are no-ops.
func NewDebugDumper(dir string, enabled bool) *DebugDumper {
	return &DebugDumper{
		dir:         dir,
		enabled:     enabled,
		minInterval: 5 * time.Second,
		lastDump:    make(map[string]time.Time),
	}
}

// Dump saves the region of the frame under the given label.
// Returns without error when disabled or rate limited.
func (d *DebugDumper) Dump(label string, frame *Frame, region Bounds) error {
	if d == nil || !d.enabled || frame == nil || frame.Image == nil {
		return nil
	}

	d.mu.Lock()
	last, seen := d.lastDump[label]
	now := time.Now()
	if seen && now.Sub(last) < d.minInterval {
		d.mu.Unlock()
		return nil
	}
	d.lastDump[label] = now
	d.mu.Unlock()

	clipped := region.Clip(frame.Image.Bounds())
	if clipped.Empty() {
		LogWarn("DebugDumper: region %+v outside frame for %s", region, label)
		return nil
	}

	crop := frame.Image.SubImage(clipped.Rect()).(*image.RGBA)

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("failed to create debug dir: %w", err)
	}

	path := filepath.Join(d.dir, fmt.Sprintf("%s_%s.png", label, now.Format("150405")))
	if err := imgo.SaveToPNG(path, crop); err != nil {
		LogError("DebugDumper: failed to save %s: %v", path, err)
		return err
	}

	LogDebug("DebugDumper: saved %s (%dx%d)", path, clipped.W, clipped.H)
	return nil
}
