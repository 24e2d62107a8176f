// Package logging wires a rotating log sink (lumberjack) behind a
// structured slog.Logger, and adapts it to the narrow Infof/Warnf shape
// internal/patch and internal/storage/sqlite already expect from their
// own Logger interfaces, so one concrete type satisfies both without
// either package importing this one.
package logging

import (
	"fmt"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger rotates its output through lumberjack and logs structured
// records through slog at Info/Warn level.
type Logger struct {
	sink   *lumberjack.Logger
	logger *slog.Logger
}

// New opens a rotating log file at path. maxSizeMB caps a single file
// before rollover; lumberjack keeps up to 5 rotated files and compresses
// them, matching its own defaults for everything this package doesn't
// override.
func New(path string, maxSizeMB int) *Logger {
	if maxSizeMB <= 0 {
		maxSizeMB = 20
	}
	sink := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}
	return &Logger{
		sink:   sink,
		logger: slog.New(slog.NewTextHandler(sink, nil)),
	}
}

// Infof logs a formatted message at info level.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

// Warnf logs a formatted message at warn level.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted message at error level.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

// Close flushes and closes the underlying rotating file.
func (l *Logger) Close() error {
	return l.sink.Close()
}
