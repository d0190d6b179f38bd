package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// ServiceName is attached to every log line.
const ServiceName = "blog-cms-api"

// Options controls logger construction. Zero values fall back to the
// LOG_LEVEL, LOG_FORMAT and ENV environment variables.
type Options struct {
	Level  string
	Format string // "json" or "pretty"
	Env    string
	Out    io.Writer
}

// New creates a new zerolog logger with structured output
func New() zerolog.Logger {
	return NewWithOptions(Options{})
}

// NewWithOptions creates a logger from explicit options
func NewWithOptions(opts Options) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	if opts.Level == "" {
		opts.Level = os.Getenv("LOG_LEVEL")
	}
	if opts.Format == "" {
		opts.Format = os.Getenv("LOG_FORMAT")
	}
	if opts.Env == "" {
		opts.Env = os.Getenv("ENV")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	logLevel := ParseLevel(opts.Level)

	// Pretty console output in development or on an interactive terminal
	if usePretty(opts, out) {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			Level(logLevel).
			With().
			Timestamp().
			Caller().
			Str("service", ServiceName).
			Logger()
	}

	// JSON output for production
	return zerolog.New(out).
		Level(logLevel).
		With().
		Timestamp().
		Str("service", ServiceName).
		Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func usePretty(opts Options, out io.Writer) bool {
	if opts.Env == "development" {
		return true
	}
	if opts.Format != "pretty" {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
