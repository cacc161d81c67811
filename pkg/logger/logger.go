package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"socialscope/pkg/config"
)

// Logger is the logging interface the rest of the module depends on.
// The *WithFields variants attach per-call fields; WithField/WithFields
// return a child logger whose fields stick to every later message.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Fatal(msg string)

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	DebugWithFields(msg string, fields map[string]interface{})
	InfoWithFields(msg string, fields map[string]interface{})
	WarnWithFields(msg string, fields map[string]interface{})
	ErrorWithFields(msg string, fields map[string]interface{})

	GetZerolog() *zerolog.Logger
}

type zlLogger struct {
	zl zerolog.Logger
}

// New builds a Logger from the logging configuration. Console output goes
// through zerolog's ConsoleWriter; when a file is configured both receive
// every message.
func New(cfg *config.LoggingConfig) (Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zerolog.TimeFieldFormat = time.RFC3339

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	var out io.Writer = console
	if cfg.File != "" {
		f, err := openLogFile(cfg.File)
		if err != nil {
			return nil, err
		}
		out = zerolog.MultiLevelWriter(console, f)
	}

	zl := zerolog.New(out).Level(level).With().
		Timestamp().
		Str("app", "socialscope").
		Logger()
	return &zlLogger{zl: zl}, nil
}

func openLogFile(path string) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func parseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "fatal":
		return zerolog.FatalLevel, nil
	case "disabled":
		return zerolog.Disabled, nil
	}
	return zerolog.InfoLevel, fmt.Errorf("unknown log level: %s", level)
}

func (l *zlLogger) Debug(msg string) { l.zl.Debug().Msg(msg) }
func (l *zlLogger) Info(msg string)  { l.zl.Info().Msg(msg) }
func (l *zlLogger) Warn(msg string)  { l.zl.Warn().Msg(msg) }
func (l *zlLogger) Error(msg string) { l.zl.Error().Msg(msg) }
func (l *zlLogger) Fatal(msg string) { l.zl.Fatal().Msg(msg) }

func (l *zlLogger) WithField(key string, value interface{}) Logger {
	return &zlLogger{zl: l.zl.With().Interface(key, value).Logger()}
}

func (l *zlLogger) WithFields(fields map[string]interface{}) Logger {
	return &zlLogger{zl: l.zl.With().Fields(fields).Logger()}
}

func (l *zlLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return &zlLogger{zl: l.zl.With().Err(err).Logger()}
}

func (l *zlLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.zl.Debug().Fields(fields).Msg(msg)
}

func (l *zlLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.zl.Info().Fields(fields).Msg(msg)
}

func (l *zlLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.zl.Warn().Fields(fields).Msg(msg)
}

func (l *zlLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.zl.Error().Fields(fields).Msg(msg)
}

func (l *zlLogger) GetZerolog() *zerolog.Logger { return &l.zl }

var globalLogger Logger

// Initialize sets up the process-wide logger used by GetLogger.
func Initialize(cfg *config.LoggingConfig) error {
	lg, err := New(cfg)
	if err != nil {
		return err
	}
	globalLogger = lg
	log.Logger = *lg.GetZerolog()
	return nil
}

// GetLogger returns the global logger, creating an info-level console
// logger if Initialize was never called.
func GetLogger() Logger {
	if globalLogger == nil {
		globalLogger, _ = New(&config.LoggingConfig{Level: "info"})
	}
	return globalLogger
}
