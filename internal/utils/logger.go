package utils

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quantmind-br/jsonbundler/internal/domain"
)

// Log formats
const (
	FormatPretty = "pretty"
	FormatJSON   = "json"
)

// Logger wraps zerolog.Logger with the context fields used by bundling
type Logger struct {
	zerolog.Logger
}

// LoggerOptions configures NewLogger. Output defaults to stderr; Verbose
// forces the debug level.
type LoggerOptions struct {
	Level   string
	Format  string
	Output  io.Writer
	Verbose bool
}

// NewLogger creates a logger. Unknown levels fall back to info.
func NewLogger(opts LoggerOptions) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(opts.Format, FormatPretty) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	level := zerolog.DebugLevel
	if !opts.Verbose {
		level = levelOf(opts.Level)
	}

	return &Logger{Logger: zerolog.New(out).Level(level).With().Timestamp().Logger()}
}

func levelOf(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || level == zerolog.NoLevel || level > zerolog.ErrorLevel {
		return zerolog.InfoLevel
	}
	return level
}

func (l *Logger) with(key, value string) *Logger {
	return &Logger{Logger: l.Logger.With().Str(key, value).Logger()}
}

// WithComponent tags entries with the emitting package
func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// WithEnvironment tags entries with the environment being built
func (l *Logger) WithEnvironment(env string) *Logger {
	return l.with("env", env)
}

// WithFile tags entries with a manifest, fragment or schema path
func (l *Logger) WithFile(path string) *Logger {
	return l.with("file", path)
}

// LogIssues writes one error entry per violation, tagged with target
func (l *Logger) LogIssues(target string, issues domain.Issues) {
	for _, iss := range issues {
		l.Error().
			Str("schema", target).
			Str("path", iss.Path).
			Str("keyword", iss.Keyword).
			Msg(iss.Message)
	}
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}
