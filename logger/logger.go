// Package logger builds the zap loggers of the tools from configuration,
// and carries them in contexts.
package logger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the settings of the logger.
type Config struct {
	// Level is the minimum level logged: debug, info, warn or error.
	Level string `toml:"level" yaml:"level"`
	// Encoding is "console" or "json".
	Encoding string `toml:"encoding" yaml:"encoding"`
	// Output lists the paths logs are written to. Empty means stderr.
	Output []string `toml:"output" yaml:"output"`
	// Development enables stack traces on warnings and panics on DPanic.
	Development bool `toml:"development" yaml:"development"`
}

// NewConfig returns the default settings.
func NewConfig() Config {
	return Config{Level: "info", Encoding: "console"}
}

// ParseLevel converts a level name. The empty string is info.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(name) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error", "err":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
}

// New builds a logger from cfg.
func New(cfg Config) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if cfg.Encoding != "" {
		zc.Encoding = cfg.Encoding
	}
	if zc.Encoding == "console" {
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = []string{"stderr"}
	if len(cfg.Output) > 0 {
		zc.OutputPaths = cfg.Output
	}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

type contextKey struct{}

// NewContext returns a context carrying log.
func NewContext(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, log)
}

// L returns the logger of ctx, or a no-op logger.
func L(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(contextKey{}).(*zap.Logger); ok {
		return log
	}
	return zap.NewNop()
}
