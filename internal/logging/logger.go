package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Config holds logger configuration.
type Config struct {
	Level      slog.Level
	OutputFile string // empty = stdout only
	JSONFormat bool   // JSON in production, text for debugging
	AddSource  bool
}

// Logger wraps slog.Logger with file lifecycle management.
type Logger struct {
	slog *slog.Logger
	file *os.File
}

var (
	global *Logger
	once   sync.Once
)

// Initialize configures the global logger and installs it as the slog
// default so component loggers (slog.Default().With(...)) share handlers.
func Initialize(cfg Config) error {
	var initErr error
	once.Do(func() {
		l, err := New(cfg)
		if err != nil {
			initErr = fmt.Errorf("initialize logger: %w", err)
			return
		}
		global = l
		slog.SetDefault(l.slog)
	})
	return initErr
}

// New creates a logger from the given configuration.
func New(cfg Config) (*Logger, error) {
	l := &Logger{}

	var out io.Writer = os.Stdout
	if cfg.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", cfg.OutputFile, err)
		}
		l.file = f
		out = io.MultiWriter(os.Stdout, f)
	}

	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.JSONFormat {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	l.slog = slog.New(handler)
	return l, nil
}

// Component returns a child logger tagged with a component name.
func (l *Logger) Component(name string) *slog.Logger {
	return l.slog.With("component", name)
}

// Close releases the log file, if one is open.
func (l *Logger) Close() error {
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Component returns a component-tagged logger from the global logger,
// or from slog's default when Initialize was never called (tests).
func Component(name string) *slog.Logger {
	if global != nil {
		return global.Component(name)
	}
	return slog.Default().With("component", name)
}

// Close closes the global logger's file output.
func Close() error {
	if global != nil {
		return global.Close()
	}
	return nil
}

// DefaultConfig returns production-leaning defaults: JSON to a log file,
// text to stdout when debugging.
func DefaultConfig(debug bool) Config {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return Config{
		Level:      level,
		JSONFormat: !debug,
		AddSource:  debug,
	}
}
