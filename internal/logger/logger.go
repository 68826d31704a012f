// Package logger builds the process-wide slog logger from the configured
// level and format.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel represents the severity of a log message
type LogLevel int

// Log level constants
const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	DISABLED
)

// LogFormat defines how log messages are formatted
type LogFormat int

// Log format constants
const (
	TEXT LogFormat = iota
	JSON
)

var levelNames = map[LogLevel]string{
	DEBUG:    "DEBUG",
	INFO:     "INFO",
	WARN:     "WARN",
	ERROR:    "ERROR",
	DISABLED: "DISABLED",
}

// String returns the upper-case level name.
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "INFO"
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config holds configuration options for the logger
type Config struct {
	Level       LogLevel
	Format      LogFormat
	Output      io.Writer
	DefaultTags map[string]interface{}
}

// DefaultConfig returns a default logger configuration. Output goes to
// stderr so stdout stays free for the MCP stdio transport.
func DefaultConfig() *Config {
	return &Config{
		Level:       INFO,
		Format:      TEXT,
		Output:      os.Stderr,
		DefaultTags: map[string]interface{}{"service": "protext"},
	}
}

// New creates a logger with the given configuration. A DISABLED level
// discards everything.
func New(config *Config) *slog.Logger {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Level == DISABLED {
		return slog.New(discardHandler{})
	}

	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: config.Level.slogLevel()}
	var handler slog.Handler
	if config.Format == JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	l := slog.New(handler)
	for k, v := range config.DefaultTags {
		l = l.With(k, v)
	}
	return l
}

// SetupDefault builds a logger from config and installs it as the slog default.
func SetupDefault(config *Config) *slog.Logger {
	l := New(config)
	slog.SetDefault(l)
	return l
}

// FromStrings is New for textual settings as found in configuration files.
func FromStrings(level, format string, out io.Writer) *slog.Logger {
	config := DefaultConfig()
	config.Level = ParseLevel(level)
	config.Format = ParseFormat(format)
	if out != nil {
		config.Output = out
	}
	return New(config)
}

// ParseLevel converts a string level to a LogLevel
func ParseLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "DISABLED", "OFF", "NONE":
		return DISABLED
	default:
		return INFO
	}
}

// ParseFormat converts "json" to JSON and anything else to TEXT.
func ParseFormat(format string) LogFormat {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return JSON
	}
	return TEXT
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
