package logger

import (
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// Logger wraps slog.Logger, the handler underneath is a zap core.
type Logger struct {
	*slog.Logger
	sync func() error
}

// New creates a development (console) logger with the specified level.
func New(level string) *Logger {
	return NewForEnv(level, "development")
}

// NewForEnv picks the encoder by environment: JSON for "production", console otherwise.
func NewForEnv(level, environment string) *Logger {
	var cfg zap.Config
	if strings.EqualFold(environment, "production") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.Development = false
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true

	zl := zap.Must(cfg.Build())
	return &Logger{
		Logger: slog.New(zapslog.NewHandler(zl.Core())),
		sync:   zl.Sync,
	}
}

// FromCore builds a Logger on an existing zap core (tests use an observer core).
func FromCore(core zapcore.Core) *Logger {
	return &Logger{
		Logger: slog.New(zapslog.NewHandler(core)),
		sync:   core.Sync,
	}
}

// WithFields returns a new logger with the given fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{Logger: l.Logger.With(args...), sync: l.sync}
}

// Sync flushes buffered entries. stdout sync errors are ignored by callers.
func (l *Logger) Sync() error {
	if l.sync == nil {
		return nil
	}
	return l.sync()
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

var defaultLogger = New("info")

// Default returns the default logger.
func Default() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger and routes slog.Default through it.
func SetDefault(logger *Logger) {
	defaultLogger = logger
	slog.SetDefault(logger.Logger)
}
