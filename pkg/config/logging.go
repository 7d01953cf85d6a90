package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// LogConfig contains logging configuration.
type LogConfig struct {
	Level string `json:"level,omitempty"` // debug, info, warn, error
	File  string `json:"file,omitempty"`  // log file path (empty = stderr only)
}

// DefaultLogConfig returns default logging configuration.
func DefaultLogConfig() *LogConfig {
	return &LogConfig{Level: "info"}
}

// Setup installs the default slog logger per the configuration and
// returns a close function for the log file, if one was opened.
func (c *LogConfig) Setup() (func() error, error) {
	if c == nil {
		c = DefaultLogConfig()
	}

	closer := func() error { return nil }
	var w io.Writer = os.Stderr
	if c.File != "" {
		dir := filepath.Dir(c.File)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(c.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
		closer = f.Close
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLogLevel(c.Level)})
	slog.SetDefault(slog.New(handler))
	return closer, nil
}

// ParseLogLevel parses a string to a slog level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "warn":
		return slog.LevelWarn
	case "ERROR", "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
