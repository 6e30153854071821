// Package logging builds the zap logger shared by every component.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the logger profile.
type Config struct {
	Environment string // "development" enables debug level and caller info
	Level       string // debug, info, warn, error; empty uses the profile default
	File        string // rotate into this file when set, stdout otherwise
}

// Rotation limits for file output.
const (
	maxSizeMB  = 100
	maxBackups = 5
	maxAgeDays = 28
)

// New creates a JSON logger for cfg.
func New(cfg Config) (*zap.Logger, error) {
	level, err := parseLevel(cfg)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var out zapcore.WriteSyncer
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		out = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		})
	} else {
		out = zapcore.Lock(os.Stdout)
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), out, zap.NewAtomicLevelAt(level))

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if isDevelopment(cfg.Environment) {
		opts = append(opts, zap.AddCaller(), zap.Development())
	}
	return zap.New(core, opts...), nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func parseLevel(cfg Config) (zapcore.Level, error) {
	if cfg.Level == "" {
		if isDevelopment(cfg.Environment) {
			return zapcore.DebugLevel, nil
		}
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	return level, nil
}

func isDevelopment(env string) bool {
	switch strings.ToLower(env) {
	case "development", "dev", "local":
		return true
	}
	return false
}
