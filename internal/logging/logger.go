// Package logging wraps log/slog with file output, size-based rotation and
// a process-global logger for the background workers.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config holds logger configuration.
type Config struct {
	Level      slog.Level
	OutputFile string // empty = stdout only
	MaxSize    int64  // bytes before rotation
	MaxBackups int
	JSONFormat bool
	AddSource  bool
}

// Logger wraps slog.Logger with file lifecycle management.
type Logger struct {
	slog   *slog.Logger
	config Config
	file   *os.File
	mu     sync.Mutex
}

var (
	global *Logger
	once   sync.Once
)

// Initialize configures the global logger. Must run before any worker
// starts; later calls are no-ops.
func Initialize(config Config) error {
	var initErr error
	once.Do(func() {
		l, err := New(config)
		if err != nil {
			initErr = fmt.Errorf("initialize logger: %w", err)
			return
		}
		global = l
		slog.SetDefault(l.slog)
	})
	return initErr
}

// New creates a logger instance.
func New(config Config) (*Logger, error) {
	if config.MaxSize == 0 {
		config.MaxSize = 10 * 1024 * 1024
	}
	if config.MaxBackups == 0 {
		config.MaxBackups = 3
	}

	l := &Logger{config: config}

	writers := []io.Writer{os.Stdout}
	if config.OutputFile != "" {
		dir := filepath.Dir(config.OutputFile)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory %s: %w", dir, err)
		}
		if err := l.rotateIfNeeded(); err != nil {
			return nil, fmt.Errorf("rotate logs: %w", err)
		}
		file, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", config.OutputFile, err)
		}
		l.file = file
		writers = append(writers, file)
	}

	opts := &slog.HandlerOptions{Level: config.Level, AddSource: config.AddSource}
	out := io.MultiWriter(writers...)

	var handler slog.Handler
	if config.JSONFormat {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	l.slog = slog.New(handler)
	return l, nil
}

func (l *Logger) rotateIfNeeded() error {
	info, err := os.Stat(l.config.OutputFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < l.config.MaxSize {
		return nil
	}

	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	for i := l.config.MaxBackups - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", l.config.OutputFile, i)
		newPath := fmt.Sprintf("%s.%d", l.config.OutputFile, i+1)
		if _, err := os.Stat(oldPath); err == nil {
			os.Rename(oldPath, newPath)
		}
	}
	if err := os.Rename(l.config.OutputFile, l.config.OutputFile+".1"); err != nil {
		return fmt.Errorf("rotate log file: %w", err)
	}
	return nil
}

// Slog exposes the underlying slog.Logger for component child loggers.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Close closes the log file if one is open.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Close closes the global logger's file.
func Close() error {
	if global != nil {
		return global.Close()
	}
	return nil
}

// DefaultConfig returns the standard configuration: human-readable text in
// verbose mode, JSON to a timestamped file otherwise.
func DefaultConfig(verbose bool) Config {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logFile := filepath.Join("logs", fmt.Sprintf("talent_%s.log", time.Now().Format("2006-01-02")))
	return Config{
		Level:      level,
		OutputFile: logFile,
		JSONFormat: !verbose,
		AddSource:  verbose,
	}
}
